// Package poolseed populates a quote.Oracle's pool map from a fixed LP
// allow-list ahead of the first round, shared by cmd/clear's live run
// and cmd/backtest's historical replay so both wire pools the same
// way. Grounded on spec §4.1's pool-discovery precondition
// ("HasPools must be true before a dryrun is attempted"); no teacher
// analogue exists since the teacher hardcodes its two pools.
package poolseed

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/bundler"
	"github.com/rainclear/clearing-core/internal/quote"
	"github.com/rainclear/clearing-core/internal/types"
)

// Seed registers every LP allow-listed pool against every distinct
// (sellToken, buyToken) pair the given order set trades. A candidate
// pool that does not actually trade a given pair is silently skipped
// by the oracle's own route search; re-fetching the same pool once per
// distinct pair is the tradeoff for a single pass over the allow-list
// instead of a per-pool factory lookup.
func Seed(ctx context.Context, oracle *quote.Oracle, orderList []*types.Order, lpAllowList []string) error {
	if len(orderList) == 0 || len(lpAllowList) == 0 {
		return nil
	}

	pools := make([]common.Address, len(lpAllowList))
	for i, a := range lpAllowList {
		pools[i] = common.HexToAddress(a)
	}

	seen := map[types.PairKey]bool{}
	for _, to := range bundler.ExpandTakeOrders(orderList) {
		key := types.PairKey{Orderbook: to.Order.OrderbookAddr, SellToken: to.SellToken().Token, BuyToken: to.BuyToken().Token}
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := oracle.RefreshPair(ctx, key.SellToken, key.BuyToken, pools, nil, nil); err != nil {
			return fmt.Errorf("poolseed: seed %s/%s: %w", key.SellToken, key.BuyToken, err)
		}
	}
	return nil
}
