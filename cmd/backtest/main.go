package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/backtest"
	"github.com/rainclear/clearing-core/internal/bundler"
	"github.com/rainclear/clearing-core/internal/clear/intraorderbook"
	"github.com/rainclear/clearing-core/internal/clear/routeprocessor"
	"github.com/rainclear/clearing-core/internal/config"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/gasoracle"
	"github.com/rainclear/clearing-core/internal/orders"
	"github.com/rainclear/clearing-core/internal/pair"
	"github.com/rainclear/clearing-core/internal/poolseed"
	"github.com/rainclear/clearing-core/internal/quote"
	"github.com/rainclear/clearing-core/internal/simulate"
	"github.com/rainclear/clearing-core/internal/telemetry"
	"github.com/rainclear/clearing-core/internal/types"
)

// Command backtest replays a historical block range through the pair
// processor's Probe path and compares its predicted opportunities
// against what actually cleared on the tracked orderbook. Adapted from
// the teacher's own cmd/backtest/main.go flag/RunE shape; the runner
// underneath now drives internal/pair.Processor.Probe and
// internal/simulate's fork-and-replay path instead of the teacher's
// two-pool AMM detector, so this entrypoint wires the same
// configuration surface cmd/clear does rather than a single ALCHEMY_URL.
func main() {
	var (
		cfgPath    = flag.String("config", "", "path to TOML config file")
		dbPath     = flag.String("db", "data/mempool.db", "path to mempool database")
		startBlock = flag.Uint64("start", 0, "start block number (inclusive)")
		endBlock   = flag.Uint64("end", 0, "end block number (inclusive)")
	)
	flag.Parse()

	if *startBlock >= *endBlock {
		fmt.Println("error: start block must be < end block")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.RPC) == 0 || cfg.OrdersPath == "" {
		fmt.Println("error: config must set rpc[] and orders_path for a backtest run")
		os.Exit(1)
	}

	client, err := eth.NewClient(cfg.RPC)
	if err != nil {
		fmt.Printf("failed to connect to rpc: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	orderList, err := orders.LoadFromFile(cfg.OrdersPath)
	if err != nil {
		fmt.Printf("failed to load orders: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	processor, quoteOrc, err := buildProcessor(ctx, client, cfg)
	if err != nil {
		fmt.Printf("failed to build processor: %v\n", err)
		os.Exit(1)
	}
	if err := poolseed.Seed(ctx, quoteOrc, orderList, cfg.LPAllowList); err != nil {
		fmt.Printf("warning: pool seed failed: %v\n", err)
	}

	runner, err := backtest.NewRunner(client, *dbPath, processor, orderList,
		bundler.Options{Bundle: cfg.Bundle}, cfg.OrderbookAddress)
	if err != nil {
		fmt.Printf("failed to create runner: %v\n", err)
		os.Exit(1)
	}
	defer runner.Close()

	report, err := runner.RunBacktest(ctx, *startBlock, *endBlock)
	if err != nil {
		fmt.Printf("backtest failed: %v\n", err)
		os.Exit(1)
	}

	report.Print()
}

// buildProcessor wires just enough of the live deployment (C1/C2/C4/C5)
// for Probe's opportunity search; no submitter is built since Probe
// never signs or sends a transaction.
func buildProcessor(ctx context.Context, client *eth.Client, cfg *config.Config) (*pair.Processor, *quote.Oracle, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch chain id: %w", err)
	}

	quoteOrc := quote.NewOracle(client, 256, types.RouteCodeVersion(cfg.RouteCodeVersion))
	gasOrc := gasoracle.New(client, 12*time.Second, 1)
	sim := simulate.NewRPCSimulator(client, int64(cfg.GasHeadroomBps), []gethabi.ABI{abiutil.OrderbookABI})
	rp := routeprocessor.New(quoteOrc, sim, chainID)
	iob := intraorderbook.New(sim)

	logger, _ := telemetry.New("warn")

	processor := pair.New(pair.Deps{
		Client:         client,
		Gas:            gasOrc,
		Fetcher:        quoteOrc,
		Pools:          quoteOrc,
		Sim:            sim,
		RouteProcessor: rp,
		IntraOrderbook: iob,
		Logger:         logger,
	}, pair.Options{
		Hops:                  cfg.Hops,
		Retries:               cfg.Retries,
		MaxRatio:              cfg.MaxRatio,
		GasCoveragePercent:    int64(cfg.GasCoveragePercent),
		RouteCodeVersion:      types.RouteCodeVersion(cfg.RouteCodeVersion),
		ArbContractAddress:    cfg.ArbAddress,
		RouteProcessorAddress: cfg.RouteProcessorAddresses[cfg.RouteCodeVersion],
		OrderbookAddress:      cfg.OrderbookAddress,
	})

	return processor, quoteOrc, nil
}
