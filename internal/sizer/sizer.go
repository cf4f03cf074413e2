// Package sizer implements C6, the Binary-Search Sizer: drives a
// dryrun (C4 or C5) across H iterations, adjusting the candidate input
// up or down by halving steps to maximise the cleared size, plus the
// R-way parallel retries variant. Grounded on the teacher's
// internal/arbitrage/math.go FindOptimalInput, a ternary search over a
// fixed 20 iterations maximising swap profit; generalized into the
// spec's halving-step feasibility search (not a profit search: C6
// searches for the largest feasible input, profit falls out of the
// dryrun outcome itself) with the early-return rules at j=1 and j=H.
package sizer

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/rainclear/clearing-core/internal/types"
)

// DefaultHops is H, the default number of halving-step iterations
// (spec §4.6 "H = configured hops, default 7").
const DefaultHops = 7

// DryrunFunc probes feasibility at maxInput. A non-nil error is always
// a terminal NoWalletFund — every other outcome, success or failure,
// is carried in the returned *types.DryrunOutcome.
type DryrunFunc func(ctx context.Context, maxInput *big.Int) (*types.DryrunOutcome, error)

// Result is the sizer's own outcome: either the best DryrunOutcome
// found, or a FailReason explaining why none was found.
type Result struct {
	Outcome *types.DryrunOutcome // nil on failure
	Reason  types.FailReason     // set on failure
	Err     error                // set only on NoWalletFund abort
}

// Run executes the spec §4.6 procedure for one dryrun function across
// hops iterations, searching for the largest maxInput <= vaultBalance
// that the dryrun accepts.
func Run(ctx context.Context, dryrun DryrunFunc, vaultBalance *big.Int, hops int) Result {
	if hops <= 0 {
		hops = DefaultHops
	}
	if vaultBalance.Sign() <= 0 {
		return Result{Reason: types.FailNoOpportunity}
	}

	cursor := new(big.Int).Set(vaultBalance)
	lastSuccess := true
	var best *types.DryrunOutcome
	sawNonNoRoute := false

	for j := 1; j <= hops; j++ {
		step := stepAt(vaultBalance, j) // vaultBalance / 2^j, used to adjust the cursor after this iteration

		outcome, err := dryrun(ctx, cursor)
		if err != nil {
			return Result{Reason: types.FailNoWalletFund, Err: err}
		}

		if outcome.Success {
			lastSuccess = true
			best = outcome
			if j == 1 || j == hops {
				// Early-return: j=1 captures the common full-balance clear;
				// j=hops returns the best refined size.
				return Result{Outcome: outcome}
			}
			cursor = new(big.Int).Add(cursor, step)
			continue
		}

		lastSuccess = false
		if outcome.Reason == types.FailNoWalletFund {
			return Result{Reason: types.FailNoWalletFund}
		}
		if outcome.Reason != types.FailNoRoute {
			sawNonNoRoute = true
		}
		cursor = new(big.Int).Sub(cursor, step)
		if cursor.Sign() < 0 {
			cursor = big.NewInt(0)
		}
	}

	if best != nil {
		return Result{Outcome: best}
	}
	_ = lastSuccess
	if !sawNonNoRoute {
		return Result{Reason: types.FailNoRoute}
	}
	return Result{Reason: types.FailNoOpportunity}
}

// stepAt returns vaultBalance / 2^j.
func stepAt(vaultBalance *big.Int, j int) *big.Int {
	return new(big.Int).Rsh(vaultBalance, uint(j))
}

// RetryResult is one mode's sizer outcome, tagged with the mode it ran
// under so FindOppWithRetries can report which duplication level won.
type RetryResult struct {
	Mode types.Mode
	Result
}

// FindOppWithRetries runs a binary-search sizer once per mode in
// {Single, Double, Triple} concurrently under one cancellation scope,
// and returns the fulfilled outcome with the greatest maxInput — spec
// §4.6's "parallel variant findOppWithRetries ... picks the fulfilled
// outcome with the greatest maxInput", implemented as structured
// concurrency per spec §9's re-architecture cue ("spawn R tasks under
// a single cancellation scope; collect all outcomes; cancel peers once
// a terminal NoWalletFund is observed") using
// golang.org/x/sync/errgroup, sourced from alanyoungcy-polymarketbot's
// fan-out pattern.
func FindOppWithRetries(ctx context.Context, dryrunFor func(types.Mode) DryrunFunc, vaultBalance *big.Int, hops int, retries int) (*RetryResult, error) {
	all := []types.Mode{types.ModeSingle, types.ModeDouble, types.ModeTriple}
	if retries <= 0 || retries > len(all) {
		retries = len(all)
	}
	modes := all[:retries]
	results := make([]RetryResult, len(modes))

	group, gctx := errgroup.WithContext(ctx)
	for i, mode := range modes {
		i, mode := i, mode
		group.Go(func() error {
			res := Run(gctx, dryrunFor(mode), vaultBalance, hops)
			results[i] = RetryResult{Mode: mode, Result: res}
			if res.Reason == types.FailNoWalletFund {
				return res.Err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	var winner *RetryResult
	for i := range results {
		r := results[i]
		if r.Outcome == nil {
			continue
		}
		if winner == nil || r.Outcome.MaxInput.Cmp(winner.Outcome.MaxInput) > 0 {
			winner = &r
		}
	}
	if winner == nil {
		return &RetryResult{Result: Result{Reason: types.FailNoOpportunity}}, nil
	}
	return winner, nil
}
