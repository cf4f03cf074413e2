package backtest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/types"
)

// MempoolTx is one pending transaction captured off the mempool feed.
// Ingestion stays useful ground-truth input regardless of what domain
// the detector underneath looks for, so this is unchanged from before.
type MempoolTx struct {
	Hash          common.Hash
	RawTx         []byte
	Timestamp     uint64
	BlockNumber   uint64
	GasPrice      *big.Int
	To            *common.Address
	From          common.Address
	IncludedBlock uint64
	Value         *big.Int
}

// BacktestReport aggregates the per-block comparisons over one block range.
type BacktestReport struct {
	StartBlock uint64
	EndBlock   uint64
	Results    []*BlockResult
	Metrics    BacktestMetrics
}

// BlockResult holds what the pair processor would have reported for
// every bundle probed at one block, alongside what actually cleared
// against the tracked orderbook in that same block.
type BlockResult struct {
	BlockNumber uint64
	Predicted   []*types.PairReport
	Actual      []*ActualClear
}

// BacktestMetrics summarizes a BacktestReport: how often the detector
// found an opportunity in a block where a clear actually happened, and
// how often it would have fired with nothing to show for it on-chain.
// Unlike the two-pool AMM metrics this replaces, there is no
// per-transaction true/false-positive pairing: TakeOrderV2/AfterClear
// events carry the clearing sender and volume, not the order id a
// prediction targets, so the comparison stays at block granularity.
type BacktestMetrics struct {
	BlocksAnalyzed      int
	BlocksWithActual    int
	BlocksWithPredicted int
	BlocksMissed        int // actual clear happened, nothing predicted
	BlocksFalseAlarm    int // opportunity predicted, nothing cleared
	BlocksBothAgree     int
}

// CalculateMetrics derives BacktestMetrics from Results.
func (r *BacktestReport) CalculateMetrics() {
	var m BacktestMetrics
	for _, res := range r.Results {
		m.BlocksAnalyzed++
		hasActual := len(res.Actual) > 0
		hasPredicted := len(res.Predicted) > 0
		if hasActual {
			m.BlocksWithActual++
		}
		if hasPredicted {
			m.BlocksWithPredicted++
		}
		switch {
		case hasActual && hasPredicted:
			m.BlocksBothAgree++
		case hasActual && !hasPredicted:
			m.BlocksMissed++
		case !hasActual && hasPredicted:
			m.BlocksFalseAlarm++
		}
	}
	r.Metrics = m
}

// Print renders the report's metrics to stdout, the teacher's
// fmt.Printf-based report style from its own BacktestReport.Print
// (never retrieved in the source this repo was built from, but the
// same plain-text summary every other cmd/ entrypoint in this module
// prints).
func (r *BacktestReport) Print() {
	m := r.Metrics
	fmt.Printf("\nbacktest report: blocks %d-%d\n", r.StartBlock, r.EndBlock)
	fmt.Printf("  blocks analyzed:      %d\n", m.BlocksAnalyzed)
	fmt.Printf("  blocks with actual:   %d\n", m.BlocksWithActual)
	fmt.Printf("  blocks with predicted: %d\n", m.BlocksWithPredicted)
	fmt.Printf("  both agree:           %d\n", m.BlocksBothAgree)
	fmt.Printf("  missed:               %d\n", m.BlocksMissed)
	fmt.Printf("  false alarms:         %d\n", m.BlocksFalseAlarm)
}
