package sizer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rainclear/clearing-core/internal/types"
)

func outcomeAt(threshold int64) DryrunFunc {
	return func(ctx context.Context, maxInput *big.Int) (*types.DryrunOutcome, error) {
		if maxInput.Cmp(big.NewInt(threshold)) <= 0 {
			return &types.DryrunOutcome{Success: true, MaxInput: new(big.Int).Set(maxInput)}, nil
		}
		return &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity}, nil
	}
}

func TestRunFullBalanceSucceedsOnFirstHop(t *testing.T) {
	dryrun := outcomeAt(1_000_000)
	res := Run(context.Background(), dryrun, big.NewInt(1_000_000), 7)
	if res.Outcome == nil || !res.Outcome.Success {
		t.Fatalf("expected success at j=1, got %+v", res)
	}
	if res.Outcome.MaxInput.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("expected full balance accepted, got %s", res.Outcome.MaxInput)
	}
}

func TestRunNarrowsDownToFeasibleSize(t *testing.T) {
	vault := big.NewInt(1_000_000)
	dryrun := outcomeAt(300_000) // below half the vault, above a quarter
	res := Run(context.Background(), dryrun, vault, 7)
	if res.Outcome == nil || !res.Outcome.Success {
		t.Fatalf("expected a feasible size to be found, got %+v", res)
	}
	if res.Outcome.MaxInput.Cmp(vault) >= 0 {
		t.Errorf("expected a size below the vault balance, got %s", res.Outcome.MaxInput)
	}
}

func TestRunNoRouteWhenEveryStepFails(t *testing.T) {
	dryrun := func(ctx context.Context, maxInput *big.Int) (*types.DryrunOutcome, error) {
		return &types.DryrunOutcome{Success: false, Reason: types.FailNoRoute}, nil
	}
	res := Run(context.Background(), dryrun, big.NewInt(1_000_000), 7)
	if res.Outcome != nil {
		t.Fatalf("expected no outcome, got %+v", res.Outcome)
	}
	if res.Reason != types.FailNoRoute {
		t.Errorf("expected NoRoute, got %s", res.Reason)
	}
}

func TestRunAbortsOnNoWalletFund(t *testing.T) {
	sentinel := errors.New("insufficient signer balance")
	dryrun := func(ctx context.Context, maxInput *big.Int) (*types.DryrunOutcome, error) {
		return nil, sentinel
	}
	res := Run(context.Background(), dryrun, big.NewInt(1_000_000), 7)
	if res.Reason != types.FailNoWalletFund {
		t.Fatalf("expected NoWalletFund, got %s", res.Reason)
	}
	if !errors.Is(res.Err, sentinel) {
		t.Errorf("expected wrapped sentinel error, got %v", res.Err)
	}
}

func TestRunZeroVaultBalanceIsNoOpportunity(t *testing.T) {
	res := Run(context.Background(), outcomeAt(1), big.NewInt(0), 7)
	if res.Reason != types.FailNoOpportunity {
		t.Errorf("expected NoOpportunity for a zero vault, got %s", res.Reason)
	}
}

func TestFindOppWithRetriesPicksGreatestMaxInput(t *testing.T) {
	thresholds := map[types.Mode]int64{
		types.ModeSingle: 200_000,
		types.ModeDouble: 700_000,
		types.ModeTriple: 100_000,
	}
	dryrunFor := func(m types.Mode) DryrunFunc { return outcomeAt(thresholds[m]) }

	winner, err := FindOppWithRetries(context.Background(), dryrunFor, big.NewInt(1_000_000), 7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner.Mode != types.ModeDouble {
		t.Errorf("expected ModeDouble to win with the highest threshold, got %s", winner.Mode)
	}
}

func TestFindOppWithRetriesAbortsWhenAnyModeHitsNoWalletFund(t *testing.T) {
	sentinel := errors.New("insufficient signer balance")
	dryrunFor := func(m types.Mode) DryrunFunc {
		if m == types.ModeTriple {
			return func(ctx context.Context, maxInput *big.Int) (*types.DryrunOutcome, error) {
				return nil, sentinel
			}
		}
		return outcomeAt(1_000_000)
	}
	_, err := FindOppWithRetries(context.Background(), dryrunFor, big.NewInt(1_000_000), 7, 3)
	if err == nil {
		t.Fatal("expected an error from the NoWalletFund branch")
	}
}
