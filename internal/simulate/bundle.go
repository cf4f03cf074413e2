package simulate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BundleResult is the outcome of replaying an atomic sequence of
// transactions — grounded on the teacher's simulator.BundleResult.
type BundleResult struct {
	Success      bool
	Transactions []*TxResult
	TotalGasUsed uint64
	RevertedAt   int
}

type TxResult struct {
	TxHash       common.Hash
	Success      bool
	GasUsed      uint64
	Logs         []*types.Log
	ReturnData   []byte
	RevertReason string
}

// BundleExecutor replays transactions atomically against a StateFork:
// all succeed or all are rolled back. Grounded verbatim on the
// teacher's simulator.BundleSimulator.ExecuteBundle; used by the
// backtest harness (internal/backtest) to replay historical bundles
// against a forked state. The live clearing path's C4/C5 dryruns use
// RPCSimulator.EstimateGas directly and never go through this type.
type BundleExecutor struct {
	executor *ForkExecutor
	fork     *StateFork
}

func NewBundleExecutor(f *StateFork) *BundleExecutor {
	return &BundleExecutor{executor: NewForkExecutor(f), fork: f}
}

func (b *BundleExecutor) ExecuteBundle(txs []*types.Transaction, block *types.Block) (*BundleResult, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("empty bundle")
	}

	snapID := b.fork.Snapshot()
	result := &BundleResult{
		Success:      true,
		Transactions: make([]*TxResult, 0, len(txs)),
		RevertedAt:   -1,
	}

	for i, tx := range txs {
		execResult, err := b.executor.ExecuteTransaction(tx, block)
		if err != nil {
			b.fork.RevertToSnapshot(snapID)
			return nil, fmt.Errorf("bundle tx %d failed with error: %w", i, err)
		}

		txResult := &TxResult{
			TxHash:       tx.Hash(),
			Success:      execResult.Success,
			GasUsed:      execResult.GasUsed,
			Logs:         execResult.Logs,
			ReturnData:   execResult.ReturnData,
			RevertReason: execResult.RevertReason,
		}
		result.Transactions = append(result.Transactions, txResult)
		result.TotalGasUsed += execResult.GasUsed

		if !execResult.Success {
			result.Success = false
			result.RevertedAt = i
			b.fork.RevertToSnapshot(snapID)
			return result, nil
		}
	}

	return result, nil
}
