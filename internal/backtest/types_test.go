package backtest

import (
	"math/big"
	"testing"

	"github.com/rainclear/clearing-core/internal/types"
)

func TestCalculateMetricsClassifiesEachBlock(t *testing.T) {
	report := &BacktestReport{
		StartBlock: 100,
		EndBlock:   103,
		Results: []*BlockResult{
			{BlockNumber: 100, Actual: nil, Predicted: nil},
			{BlockNumber: 101, Actual: []*ActualClear{{ClearedAmount: big.NewInt(1)}}, Predicted: []*types.PairReport{{Status: types.StatusFoundOpportunity}}},
			{BlockNumber: 102, Actual: []*ActualClear{{ClearedAmount: big.NewInt(1)}}, Predicted: nil},
			{BlockNumber: 103, Actual: nil, Predicted: []*types.PairReport{{Status: types.StatusFoundOpportunity}}},
		},
	}

	report.CalculateMetrics()

	if report.Metrics.BlocksAnalyzed != 4 {
		t.Fatalf("expected 4 blocks analyzed, got %d", report.Metrics.BlocksAnalyzed)
	}
	if report.Metrics.BlocksBothAgree != 1 {
		t.Fatalf("expected 1 block where actual and predicted agree, got %d", report.Metrics.BlocksBothAgree)
	}
	if report.Metrics.BlocksMissed != 1 {
		t.Fatalf("expected 1 missed block, got %d", report.Metrics.BlocksMissed)
	}
	if report.Metrics.BlocksFalseAlarm != 1 {
		t.Fatalf("expected 1 false-alarm block, got %d", report.Metrics.BlocksFalseAlarm)
	}
}
