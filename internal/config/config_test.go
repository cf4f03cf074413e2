package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestDefaultValidateFailsWithoutRPC(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty config")
	}
}

func TestValidateHopsBounds(t *testing.T) {
	cfg := Default()
	cfg.RPC = []string{"http://localhost:8545"}
	cfg.Key = "deadbeef"
	cfg.ArbAddress = common.HexToAddress("0x0000000000000000000000000000000000000001")
	cfg.OrderbookAddress = common.HexToAddress("0x0000000000000000000000000000000000000002")
	cfg.OrdersPath = "orders.json"

	cfg.Hops = 11
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected hops validation error")
	}
	cfg.Hops = 7

	cfg.Retries = 4
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected retries validation error")
	}
	cfg.Retries = 3

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
