package backtest

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/eth"
)

// ActualClear is one real on-chain clearing transaction against the
// tracked orderbook, the ground truth a backtest compares predicted
// opportunities against. Grounded on the teacher's ActualArbitrage,
// generalized from raw Uniswap V2 Swap-event byte offsets (an
// AMM-specific signature the teacher decoded by hand) to the
// orderbook's own TakeOrderV2/AfterClear events, already decoded by
// abiutil.ClearedAmount for the live pair processor.
type ActualClear struct {
	TxHash        common.Hash
	BlockNumber   uint64
	From          common.Address
	ClearedAmount *big.Int
	GasUsed       uint64
}

// FindActualClears scans a block's receipts for TakeOrderV2/AfterClear
// events emitted by orderbookAddr and groups them per transaction,
// mirroring the teacher's per-tx swap grouping but against the
// orderbook's own clearing events instead of a pool's Swap log.
func FindActualClears(ctx context.Context, client *eth.Client, blockNum uint64, orderbookAddr common.Address) ([]*ActualClear, error) {
	receipts, err := client.GetBlockReceipts(ctx, blockNum)
	if err != nil {
		return nil, fmt.Errorf("fetch receipts for block %d: %w", blockNum, err)
	}

	takeOrderID := abiutil.OrderbookABI.Events["TakeOrderV2"].ID
	afterClearID := abiutil.OrderbookABI.Events["AfterClear"].ID

	var clears []*ActualClear
	for _, receipt := range receipts {
		var relevant []*gethtypes.Log
		for _, l := range receipt.Logs {
			if l.Address != orderbookAddr || len(l.Topics) == 0 {
				continue
			}
			if l.Topics[0] == takeOrderID || l.Topics[0] == afterClearID {
				relevant = append(relevant, l)
			}
		}
		if len(relevant) == 0 {
			continue
		}

		cleared := abiutil.ClearedAmount(relevant)
		if cleared.Sign() == 0 {
			continue
		}

		var from common.Address
		if len(relevant[0].Topics) > 1 {
			from = common.BytesToAddress(relevant[0].Topics[1].Bytes())
		}

		clears = append(clears, &ActualClear{
			TxHash:        relevant[0].TxHash,
			BlockNumber:   blockNum,
			From:          from,
			ClearedAmount: cleared,
			GasUsed:       receipt.GasUsed,
		})
	}

	return clears, nil
}
