package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rainclear/clearing-core/internal/bundler"
	"github.com/rainclear/clearing-core/internal/types"
)

// runScan builds one pass of bundles and probes every pair with
// pair.Processor.Probe instead of Process, reporting would-be
// opportunities without signing or sending anything. Shares
// wireDeployment with run so scan observes the exact same oracle and
// processor configuration the live round loop would use.
func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dep, err := wireDeployment(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dep.Close()

	bps, err := bundler.Build(ctx, dep.client, dep.orderList, bundler.Options{Bundle: cfg.Bundle})
	if err != nil {
		return fmt.Errorf("build bundles: %w", err)
	}

	found := 0
	for _, bp := range bps {
		report, outcome, err := dep.processor.Probe(ctx, bp, nil)
		if err != nil {
			fmt.Printf("%s/%s: error: %v\n", bp.SellSymbol, bp.BuySymbol, err)
			continue
		}
		if report.Status != types.StatusFoundOpportunity {
			fmt.Printf("%s/%s: %s (%s)\n", bp.SellSymbol, bp.BuySymbol, report.Status, report.HaltReason)
			continue
		}
		found++
		fmt.Printf("%s/%s: opportunity, maxInput=%s estimatedProfit=%s\n",
			bp.SellSymbol, bp.BuySymbol, outcome.MaxInput, outcome.EstimatedProfit)
	}

	fmt.Printf("\nscanned %d pair(s), %d opportunity(ies)\n", len(bps), found)
	return nil
}
