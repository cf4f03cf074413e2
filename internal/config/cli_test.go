package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadWithFlagsOverridesFileValues(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Int("hops", 0, "")
	if err := flags.Parse([]string{"--rpc", "http://localhost:9545", "--hops", "5"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithFlags("", flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.RPC) != 1 || cfg.RPC[0] != "http://localhost:9545" {
		t.Fatalf("expected flag rpc override, got %v", cfg.RPC)
	}
	if cfg.Hops != 5 {
		t.Fatalf("expected hops overridden to 5, got %d", cfg.Hops)
	}
}

func TestLoadWithFlagsLeavesUnsetFieldsAtDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("hops", 0, "")
	if err := flags.Parse(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithFlags("", flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hops != Default().Hops {
		t.Fatalf("expected default hops %d, got %d", Default().Hops, cfg.Hops)
	}
}
