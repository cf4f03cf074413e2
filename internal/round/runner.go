// Package round implements C9, the Round Runner: iterates the bundled
// pairs for one pass, producing a report per pair and composing them
// into a RoundReport, then repeats per the configured repetition count
// with an inter-round sleep and a periodic pool-cache invalidation.
// Grounded on spec §4.8 directly; the closest teacher analogue is
// cmd/scan-range/main.go's `for block := start; block <= end; block +=
// step` polling loop, generalized from a fixed block range into an
// indefinite (or counted) round loop with typed early termination.
package round

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rainclear/clearing-core/internal/bundler"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/pair"
	"github.com/rainclear/clearing-core/internal/types"
)

// PoolInvalidator is the subset of *quote.Oracle the runner depends on
// to force a pool re-discovery at the configured refresh cadence.
type PoolInvalidator interface {
	Invalidate()
}

// BundleBuilder rebuilds the round's BundledPairs from the raw order
// set, reading fresh vault balances and quotes (spec §3 "BP and TO are
// owned by the round; they are constructed from order records at round
// start"). Defaults to bundler.Build; tests substitute a canned
// builder the same way C4/C5 substitute a canned quote.Fetcher.
type BundleBuilder func(ctx context.Context, client *eth.Client, orders []*types.Order, opts bundler.Options) ([]*types.BundledPair, error)

// Deps bundles the round-scoped collaborators: the chain client and
// order set bundling reads fresh balances from each round, the pool
// cache the runner invalidates on a timer, and the processor that
// drives each pair through C2-C6 and submission.
type Deps struct {
	Client       *eth.Client
	Pools        PoolInvalidator
	Processor    *pair.Processor
	BuildBundles BundleBuilder // nil defaults to bundler.Build
	Logger       *zap.Logger
	ReportSink   func(*types.RoundReport) error // optional; cmd/clear wires storage.CacheDB.SaveRound
}

// Options carries the round-loop configuration spec §6 enumerates:
// repetitions (-1 = infinite), inter-round sleep, the bundler's
// bundle-on/off and shuffle switches, and the pool-refresh cadence.
type Options struct {
	Repetitions         int
	Sleep               time.Duration
	PoolRefreshInterval time.Duration
	Bundle              bundler.Options
}

// Runner drives the round loop. A zero-value lastPoolRefresh means the
// very first round always rebuilds the pool cache before bundling.
type Runner struct {
	deps            Deps
	opts            Options
	lastPoolRefresh time.Time
}

func New(deps Deps, opts Options) *Runner {
	if opts.Repetitions == 0 {
		opts.Repetitions = -1
	}
	if deps.BuildBundles == nil {
		deps.BuildBundles = bundler.Build
	}
	return &Runner{deps: deps, opts: opts}
}

// RunLoop drives the full repeated round loop against a static order
// set, honoring Options.Repetitions, Options.Sleep, and
// Options.PoolRefreshInterval, and stopping early the first time a
// pair report halts on NoWalletFund (spec §4.8 "terminates early only
// on NoWalletFund"). It returns the last RoundReport produced.
func (r *Runner) RunLoop(ctx context.Context, orders []*types.Order) (*types.RoundReport, error) {
	var last *types.RoundReport
	for i := 0; r.opts.Repetitions < 0 || i < r.opts.Repetitions; i++ {
		if ctx.Err() != nil {
			return last, ctx.Err()
		}

		if r.shouldRefreshPools() {
			if r.deps.Pools != nil {
				r.deps.Pools.Invalidate()
			}
			r.lastPoolRefresh = time.Now()
		}

		report, err := r.RunOnce(ctx, orders, i)
		last = report
		if err != nil {
			return last, err
		}
		if r.deps.ReportSink != nil {
			if sinkErr := r.deps.ReportSink(report); sinkErr != nil {
				r.log().Warn("round report sink failed", zap.Int("round", i), zap.Error(sinkErr))
			}
		}
		if report.HaltReason == types.HaltNoWalletFund {
			r.log().Warn("round halted", zap.Int("round", i), zap.String("reason", string(report.HaltReason)))
			return last, nil
		}

		if r.opts.Repetitions >= 0 && i == r.opts.Repetitions-1 {
			break
		}
		if r.opts.Sleep > 0 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(r.opts.Sleep):
			}
		}
	}
	return last, nil
}

// shouldRefreshPools reports whether the pool cache has never been
// populated, or the configured refresh interval has elapsed.
func (r *Runner) shouldRefreshPools() bool {
	if r.lastPoolRefresh.IsZero() {
		return true
	}
	if r.opts.PoolRefreshInterval <= 0 {
		return false
	}
	return time.Since(r.lastPoolRefresh) >= r.opts.PoolRefreshInterval
}

// RunOnce rebuilds bundles from the current order set and runs every
// pair through the processor once, in bundle-list order (spec §4.8
// "completion order equals iteration order of the bundle list").
// roundIndex is recorded on the report for observability only.
func (r *Runner) RunOnce(ctx context.Context, orders []*types.Order, roundIndex int) (*types.RoundReport, error) {
	report := &types.RoundReport{RoundIndex: roundIndex, StartedAt: time.Now().Unix()}

	bps, err := r.deps.BuildBundles(ctx, r.deps.Client, orders, r.opts.Bundle)
	if err != nil {
		return nil, fmt.Errorf("round: build bundles: %w", err)
	}

	opposing := findOpposingOrders(bps)

	for _, bp := range bps {
		pairReport, err := r.deps.Processor.Process(ctx, bp, opposing[bp.Key()])
		if err != nil {
			if err == pair.ErrNoWalletFund {
				report.Pairs = append(report.Pairs, pairReport)
				report.HaltReason = types.HaltNoWalletFund
				report.EndedAt = time.Now().Unix()
				return report, nil
			}
			return nil, fmt.Errorf("round: process pair %s/%s: %w", bp.SellSymbol, bp.BuySymbol, err)
		}
		report.Pairs = append(report.Pairs, pairReport)
	}

	report.EndedAt = time.Now().Unix()
	return report, nil
}

// findOpposingOrders pairs up bundles trading the inverse direction of
// the same orderbook's sell/buy tokens, giving the processor a "Bob"
// take-order to try an intra-orderbook clear against before falling
// back to the AMM-liquidity route (spec §4.5's preconditions: distinct
// order id and owner, which the processor re-checks per candidate).
func findOpposingOrders(bps []*types.BundledPair) map[types.PairKey]*types.TakeOrder {
	byKey := make(map[types.PairKey]*types.BundledPair, len(bps))
	for _, bp := range bps {
		byKey[bp.Key()] = bp
	}

	opposing := make(map[types.PairKey]*types.TakeOrder, len(bps))
	for _, bp := range bps {
		inverse := types.PairKey{Orderbook: bp.Orderbook, SellToken: bp.BuyToken, BuyToken: bp.SellToken}
		other, ok := byKey[inverse]
		if !ok || len(other.TakeOrders) == 0 {
			continue
		}
		opposing[bp.Key()] = other.TakeOrders[0]
	}
	return opposing
}

func (r *Runner) log() *zap.Logger {
	if r.deps.Logger != nil {
		return r.deps.Logger
	}
	return zap.NewNop()
}
