// Command clear is the clearing core's entrypoint: a round-runner
// daemon (run), a one-shot no-submit opportunity scan (scan), and a
// config-validation check (validate-config). Grounded on the teacher's
// cmd/indexer multi-subcommand cobra root, generalized from indexer's
// run/decode/aggregate trio to this domain's run/scan/validate-config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rainclear/clearing-core/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "clear",
		Short:        "on-chain orderbook clearing",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "TOML config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the round loop, submitting clearing transactions",
		RunE:  runRun,
	}
	addRoundFlags(runCmd.Flags())
	root.AddCommand(runCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "probe one round for opportunities without submitting",
		RunE:  runScan,
	}
	addRoundFlags(scanCmd.Flags())
	root.AddCommand(scanCmd)

	validateCmd := &cobra.Command{
		Use:   "validate-config",
		Short: "resolve and validate the settings record, then exit",
		RunE:  runValidateConfig,
	}
	addRoundFlags(validateCmd.Flags())
	root.AddCommand(validateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addRoundFlags registers the spec §6 configuration surface as flags
// on a subcommand, each one optional: an unset flag leaves the file/env
// layer's value untouched (config.LoadWithFlags only applies a flag
// when flags.Changed reports it was actually passed).
func addRoundFlags(flags *pflag.FlagSet) {
	flags.StringSlice("rpc", nil, "RPC endpoint(s), comma-separated")
	flags.String("flashbot-rpc", "", "private/flashbot-style submission endpoint")
	flags.String("key", "", "signer private key (hex)")
	flags.String("arb-address", "", "arb contract address")
	flags.String("orderbook-address", "", "orderbook contract address")
	flags.String("orders-path", "", "path to a JSON order-set file")
	flags.Int("hops", 0, "binary-search sizer hop count")
	flags.Int("retries", 0, "sizer retry count")
	flags.Int("repetitions", 0, "round repetitions (-1 = infinite)")
	flags.Int("sleep", 0, "seconds to sleep between rounds")
	flags.Bool("bundle", false, "bundle same-direction take-orders into one BP")
	flags.Bool("max-ratio", false, "accept any IO ratio (maximumIORatio = max uint256) and skip the first-hop ratio filter")
	flags.Int("gas-coverage", 0, "gas bounty coverage percent")
	flags.String("route-code-version", "", "route processor calldata version")
	flags.Int("gas-headroom-bps", 0, "gas estimate headroom in basis points")
	flags.String("db-path", "", "sqlite cache/report database path")
	flags.String("cache-dir", "", "cache directory (stored in the config; no command reads it, the prewarm cache lives at --db-path)")
	flags.String("leader-lock-redis-addr", "", "redis addr for leader election across replicas (empty disables)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.LoadWithFlags(cfgFile, cmd.Flags())
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func runValidateConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("config ok: %d rpc endpoint(s), orderbook=%s, arb=%s, hops=%d, retries=%d, timeout=%s\n",
		len(cfg.RPC), cfg.OrderbookAddress, cfg.ArbAddress, cfg.Hops, cfg.Retries, cfg.Timeout())
	return nil
}
