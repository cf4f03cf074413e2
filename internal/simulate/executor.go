package simulate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
)

// ForkExecutor replays one signed transaction against a StateFork using
// a local EVM instance, grounded verbatim on the teacher's
// simulator.Executor. Used only by the backtest harness — the live
// pipeline estimates gas over RPC via RPCSimulator.
type ForkExecutor struct {
	fork   *StateFork
	config *params.ChainConfig
}

func NewForkExecutor(fork *StateFork) *ForkExecutor {
	return &ForkExecutor{
		fork:   fork,
		config: params.MainnetChainConfig,
	}
}

func (e *ForkExecutor) ExecuteTransaction(tx *types.Transaction, targetBlock *types.Block) (*ExecResult, error) {
	stateDB := newForkedStateDB(e.fork)

	block := e.fork.BlockContext()
	blockContext := vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     func(n uint64) common.Hash { return common.Hash{} },
		Coinbase:    targetBlock.Coinbase(),
		BlockNumber: targetBlock.Number(),
		Time:        targetBlock.Time(),
		Difficulty:  targetBlock.Difficulty(),
		GasLimit:    targetBlock.GasLimit(),
		BaseFee:     targetBlock.BaseFee(),
	}

	signer := types.LatestSignerForChainID(tx.ChainId())
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}

	evm := vm.NewEVM(blockContext, stateDB, e.config, vm.Config{})
	evm.SetTxContext(vm.TxContext{
		Origin:   sender,
		GasPrice: tx.GasPrice(),
	})

	snap := stateDB.Snapshot()

	msg := &core.Message{
		To:         tx.To(),
		From:       sender,
		Nonce:      tx.Nonce(),
		Value:      tx.Value(),
		GasLimit:   tx.Gas(),
		GasPrice:   tx.GasPrice(),
		GasFeeCap:  tx.GasFeeCap(),
		GasTipCap:  tx.GasTipCap(),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
	}

	_, err = core.IntrinsicGas(msg.Data, msg.AccessList, nil, msg.To == nil, true, true, true)
	if err != nil {
		return nil, fmt.Errorf("intrinsic gas validation failed: %w", err)
	}

	gp := new(core.GasPool).AddGas(block.GasLimit())
	result, err := core.ApplyMessage(evm, msg, gp)
	if err != nil {
		stateDB.RevertToSnapshot(snap)
		return &ExecResult{
			Success:      false,
			RevertReason: err.Error(),
		}, nil
	}

	execResult := &ExecResult{
		Success:    !result.Failed(),
		GasUsed:    result.UsedGas,
		ReturnData: result.ReturnData,
		Logs:       stateDB.logs,
	}

	if result.Failed() {
		execResult.RevertReason = result.Err.Error()
		stateDB.RevertToSnapshot(snap)
	}

	return execResult, nil
}
