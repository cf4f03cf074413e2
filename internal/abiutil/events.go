package abiutil

import (
	"math/big"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ClearedAmount scans a receipt's logs for TakeOrderV2 (route-processor
// clears) and AfterClear (intra-orderbook clears) events and sums the
// output amounts, giving the pair processor the sell-token volume
// actually cleared on-chain without re-deriving it from the dryrun's
// pre-submission estimate (spec §4.7 "clearedAmount from decoded log
// events between orderbook and arb contract").
func ClearedAmount(logs []*gethtypes.Log) *big.Int {
	total := new(big.Int)
	takeOrderID := OrderbookABI.Events["TakeOrderV2"].ID
	afterClearID := OrderbookABI.Events["AfterClear"].ID

	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case takeOrderID:
			values := make(map[string]any)
			if err := OrderbookABI.UnpackIntoMap(values, "TakeOrderV2", l.Data); err == nil {
				if output, ok := values["output"].(*big.Int); ok {
					total.Add(total, output)
				}
			}
		case afterClearID:
			values := make(map[string]any)
			if err := OrderbookABI.UnpackIntoMap(values, "AfterClear", l.Data); err == nil {
				if output, ok := values["aliceOutput"].(*big.Int); ok {
					total.Add(total, output)
				}
			}
		}
	}
	return total
}
