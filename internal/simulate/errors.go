// Package simulate implements the Transaction Simulator (C3): given an
// assembled calldata payload, estimate gas and classify whether
// execution would revert as a node-side revert, a wallet-funding
// failure, or a retryable local/transport error.
//
// Grounded on the teacher's internal/simulator package. The teacher's
// StateFork/Executor/ForkedStateDB machinery (fork.go, statedb.go,
// executor.go) is kept for the supplemented local-EVM backtest harness;
// this file adds the live-RPC path (RPCSimulator) that the Pair
// Processor and both dryrun components actually call in production,
// classifying errors the way the teacher's BundleSimulator.ExecuteBundle
// classifies a reverted step (result.RevertReason / RevertedAt), but
// promoted to the spec's typed FailReason variants instead of a bare
// string.
package simulate

import (
	"context"
	"errors"
	"strings"

	"github.com/rainclear/clearing-core/internal/types"
)

// SimError is the classified outcome of a failed estimateGas call.
type SimError struct {
	Reason    types.FailReason
	NodeError bool // true: decodable on-chain revert. false: transport/timeout, retryable.
	Snapshot  *types.ErrorSnapshot
	Err       error
}

func (e *SimError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Reason)
}

func (e *SimError) Unwrap() error { return e.Err }

// classify maps a raw estimateGas error into the spec §4.3 taxonomy:
//   - InsufficientFundsForGas -> NoWalletFund (terminal for the round)
//   - node-side revert with decodable data -> NoOpportunity
//   - transport/timeout -> retryable local error (NodeError=false)
func classify(err error) *SimError {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "insufficient funds"):
		return &SimError{
			Reason:    types.FailNoWalletFund,
			NodeError: true,
			Err:       err,
			Snapshot: &types.ErrorSnapshot{
				Message: err.Error(),
				Name:    "InsufficientFundsForGas",
				Severity: types.SeverityHigh,
			},
		}
	case isContextDeadline(err) || strings.Contains(msg, "timeout") || strings.Contains(msg, "connection"):
		return &SimError{
			Reason:    types.FailNoOpportunity,
			NodeError: false,
			Err:       err,
			Snapshot: &types.ErrorSnapshot{
				Message:  err.Error(),
				Name:     "TransportError",
				Severity: types.SeverityMedium,
			},
		}
	case strings.Contains(msg, "revert") || strings.Contains(msg, "execution reverted"):
		return &SimError{
			Reason:    types.FailNoOpportunity,
			NodeError: true,
			Err:       err,
			Snapshot: &types.ErrorSnapshot{
				Message:  err.Error(),
				Name:     "Reverted",
				Severity: types.SeverityLow,
				GasDiagnostic: gasDiagnostic(msg),
			},
		}
	default:
		return &SimError{
			Reason:    types.FailNoOpportunity,
			NodeError: true,
			Err:       err,
			Snapshot: &types.ErrorSnapshot{
				Message:  err.Error(),
				Name:     "UnknownRevert",
				Severity: types.SeverityMedium,
			},
		}
	}
}

func isContextDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func gasDiagnostic(lowerMsg string) string {
	switch {
	case strings.Contains(lowerMsg, "out of gas") && strings.Contains(lowerMsg, "account"):
		return "account ran out of gas"
	case strings.Contains(lowerMsg, "out of gas"):
		return "transaction ran out of specified gas"
	default:
		return ""
	}
}
