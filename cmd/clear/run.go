package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/bundler"
	"github.com/rainclear/clearing-core/internal/clear/intraorderbook"
	"github.com/rainclear/clearing-core/internal/clear/routeprocessor"
	"github.com/rainclear/clearing-core/internal/config"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/gasoracle"
	"github.com/rainclear/clearing-core/internal/leaderlock"
	"github.com/rainclear/clearing-core/internal/orders"
	"github.com/rainclear/clearing-core/internal/pair"
	"github.com/rainclear/clearing-core/internal/poolseed"
	"github.com/rainclear/clearing-core/internal/quote"
	"github.com/rainclear/clearing-core/internal/round"
	"github.com/rainclear/clearing-core/internal/simulate"
	"github.com/rainclear/clearing-core/internal/storage"
	"github.com/rainclear/clearing-core/internal/types"
)

const leaderLockKey = "clearing-core:leader"

// deployment bundles every long-lived, round-shared collaborator spec
// §5 says belongs to the process rather than to a pair or round
// ("Signers, clients, and data-fetchers are owned by the long-lived
// process and shared read-only across rounds"). Built once per process
// by wireDeployment, reused by both run and scan.
type deployment struct {
	client    *eth.Client
	quoteOrc  *quote.Oracle
	gasOrc    *gasoracle.Oracle
	processor *pair.Processor
	cacheDB   *storage.CacheDB
	logger    *zap.Logger
	cfg       *config.Config
	orderList []*types.Order
}

func wireDeployment(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*deployment, error) {
	client, err := eth.NewClient(cfg.RPC)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	submitter, err := eth.NewSubmitter(client, cfg.Key, chainID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("build submitter: %w", err)
	}

	var privateSubmitter *eth.Submitter
	if cfg.FlashbotRPC != "" {
		privateClient, err := eth.NewClient([]string{cfg.FlashbotRPC})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("connect flashbot rpc: %w", err)
		}
		privateSubmitter, err = eth.NewSubmitter(privateClient, cfg.Key, chainID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("build flashbot submitter: %w", err)
		}
	}

	quoteOrc := quote.NewOracle(client, 256, types.RouteCodeVersion(cfg.RouteCodeVersion))
	gasOrc := gasoracle.New(client, 12*time.Second, 1)
	sim := simulate.NewRPCSimulator(client, int64(cfg.GasHeadroomBps), []gethabi.ABI{abiutil.OrderbookABI})
	rp := routeprocessor.New(quoteOrc, sim, chainID)
	iob := intraorderbook.New(sim)

	cacheDB, err := storage.NewCacheDB(cfg.DBPath)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	processor := pair.New(pair.Deps{
		Client:           client,
		Gas:              gasOrc,
		Fetcher:          quoteOrc,
		Pools:            quoteOrc,
		Sim:              sim,
		RouteProcessor:   rp,
		IntraOrderbook:   iob,
		Submitter:        submitter,
		PrivateSubmitter: privateSubmitter,
		Logger:           logger,
	}, pair.Options{
		Hops:                  cfg.Hops,
		Retries:               cfg.Retries,
		MaxRatio:              cfg.MaxRatio,
		GasCoveragePercent:    int64(cfg.GasCoveragePercent),
		RouteCodeVersion:      types.RouteCodeVersion(cfg.RouteCodeVersion),
		ArbContractAddress:    cfg.ArbAddress,
		RouteProcessorAddress: routeProcessorAddress(cfg),
		OrderbookAddress:      cfg.OrderbookAddress,
		SignerAddress:         submitter.Address(),
		ReceiptTimeout:        cfg.Timeout(),
	})

	var orderList []*types.Order
	if cfg.OrdersPath != "" {
		orderList, err = orders.LoadFromFile(cfg.OrdersPath)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("load orders: %w", err)
		}
	}
	// cfg.Subgraphs is validated as an alternative order source (spec
	// §6) but no GraphQL client is wired yet; see DESIGN.md.

	if err := poolseed.Seed(ctx, quoteOrc, orderList, cfg.LPAllowList); err != nil {
		logger.Warn("initial pool seed failed", zap.Error(err))
	}

	return &deployment{
		client:    client,
		quoteOrc:  quoteOrc,
		gasOrc:    gasOrc,
		processor: processor,
		cacheDB:   cacheDB,
		logger:    logger,
		cfg:       cfg,
		orderList: orderList,
	}, nil
}

func routeProcessorAddress(cfg *config.Config) common.Address {
	return cfg.RouteProcessorAddresses[cfg.RouteCodeVersion]
}

func (d *deployment) Close() {
	d.cacheDB.Close()
	d.client.Close()
}

func runRun(cmd *cobra.Command, _ []string) error {
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

	release, err := acquireLeaderLockIfConfigured(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}

	runner := round.New(round.Deps{
		Client:     dep.client,
		Pools:      dep.quoteOrc,
		Processor:  dep.processor,
		Logger:     logger,
		ReportSink: dep.cacheDB.SaveRound,
	}, round.Options{
		Repetitions:         cfg.Repetitions,
		Sleep:               cfg.Sleep(),
		PoolRefreshInterval: cfg.PoolRefreshInterval(),
		Bundle:              bundler.Options{Bundle: cfg.Bundle, Shuffle: true},
	})

	logger.Info("run start",
		zap.Int("rpc_endpoints", len(cfg.RPC)),
		zap.String("orderbook", cfg.OrderbookAddress.Hex()),
		zap.Int("orders", len(dep.orderList)),
		zap.Int("repetitions", cfg.Repetitions),
	)

	_, err = runner.RunLoop(ctx, dep.orderList)
	return err
}

// acquireLeaderLockIfConfigured claims the single clearing-core leader
// slot over Redis when cfg.LeaderLockRedisAddr is set, refusing to
// start the round loop at all if another replica already holds it
// rather than racing it. Returns a nil release func when leader
// election is disabled.
func acquireLeaderLockIfConfigured(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(), error) {
	if cfg.LeaderLockRedisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.LeaderLockRedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("leader lock: connect redis: %w", err)
	}

	lock := leaderlock.New(rdb)
	release, err := lock.Acquire(ctx, leaderLockKey, 30*time.Second)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("leader lock: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := lock.Renew(ctx, leaderLockKey, 30*time.Second); err != nil {
					logger.Warn("leader lock renew failed", zap.Error(err))
				}
			}
		}
	}()

	logger.Info("acquired leader lock", zap.String("addr", cfg.LeaderLockRedisAddr))
	return func() {
		close(stop)
		release()
		_ = rdb.Close()
	}, nil
}
