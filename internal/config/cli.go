package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadWithFlags resolves Config the way Load does (defaults, TOML file,
// env) and then layers cobra/pflag CLI flags on top via viper, the same
// "flags win over file/env" binding the teacher's internal/config.Load
// applies with v.BindPFlags, generalized here to sit on top of an
// already-resolved Config rather than building the record from viper
// alone.
func LoadWithFlags(tomlPath string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Load(tomlPath)
	if err != nil {
		return nil, err
	}
	if flags == nil {
		return cfg, nil
	}

	v := viper.New()
	v.SetEnvPrefix("CLEARING")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}

	if flags.Changed("rpc") {
		cfg.RPC = v.GetStringSlice("rpc")
	}
	if flags.Changed("flashbot-rpc") {
		cfg.FlashbotRPC = v.GetString("flashbot-rpc")
	}
	if flags.Changed("key") {
		cfg.Key = v.GetString("key")
	}
	if flags.Changed("arb-address") {
		cfg.ArbAddress = common.HexToAddress(v.GetString("arb-address"))
	}
	if flags.Changed("orderbook-address") {
		cfg.OrderbookAddress = common.HexToAddress(v.GetString("orderbook-address"))
	}
	if flags.Changed("orders-path") {
		cfg.OrdersPath = v.GetString("orders-path")
	}
	if flags.Changed("hops") {
		cfg.Hops = v.GetInt("hops")
	}
	if flags.Changed("retries") {
		cfg.Retries = v.GetInt("retries")
	}
	if flags.Changed("repetitions") {
		cfg.Repetitions = v.GetInt("repetitions")
	}
	if flags.Changed("sleep") {
		cfg.SleepSeconds = v.GetInt("sleep")
	}
	if flags.Changed("bundle") {
		cfg.Bundle = v.GetBool("bundle")
	}
	if flags.Changed("max-ratio") {
		cfg.MaxRatio = v.GetBool("max-ratio")
	}
	if flags.Changed("gas-coverage") {
		cfg.GasCoveragePercent = v.GetInt("gas-coverage")
	}
	if flags.Changed("route-code-version") {
		cfg.RouteCodeVersion = v.GetString("route-code-version")
	}
	if flags.Changed("gas-headroom-bps") {
		cfg.GasHeadroomBps = v.GetInt("gas-headroom-bps")
	}
	if flags.Changed("db-path") {
		cfg.DBPath = v.GetString("db-path")
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = v.GetString("cache-dir")
	}
	if flags.Changed("leader-lock-redis-addr") {
		cfg.LeaderLockRedisAddr = v.GetString("leader-lock-redis-addr")
	}
	return cfg, nil
}
