package quote

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/types"
)

// ErrNoWay is returned when no pool in the map trades the requested
// pair, or every candidate pool yields zero output (spec §4.4.1
// "If NoWay, fail NoRoute").
var ErrNoWay = errors.New("quote: no route")

// Fetcher is the C1 contract: best route and amount-out for a token
// pair at a given input size. C4/C5 depend on this interface, not on
// *Oracle directly, so backtests can substitute a canned fetcher.
type Fetcher interface {
	Quote(ctx context.Context, sellToken, buyToken common.Address, amountIn *big.Int, blockNum *big.Int) (*Route, error)
}

// Oracle is the live C1 implementation: a memoised pool map refreshed
// on a timer, backed by on-chain reads through eth.Client. Grounded on
// the teacher's GetWETHUSDCPools/GetWETHUSDTPools, generalized from
// two hardcoded pairs into an LRU-cached pool map keyed by any
// (token0, token1) pair. Pools enter the map only through
// RegisterPools/RefreshPair; no factory lookup is made.
type Oracle struct {
	client  *eth.Client
	poolMap *PoolMap
	version types.RouteCodeVersion
}

// NewOracle builds a quote oracle reading pools through client, with a
// pool map cache capacity of poolMapSize pairs, tagging every route with
// version.
func NewOracle(client *eth.Client, poolMapSize int, version types.RouteCodeVersion) *Oracle {
	return &Oracle{
		client:  client,
		poolMap: NewPoolMap(poolMapSize),
		version: version,
	}
}

// RegisterPools seeds the pool map for a pair so the oracle does not
// need to discover pairs via factory getPair calls — the bundler
// already knows which orderbook pairs need quoting (spec §4.1's
// "groups take-order records by (orderbook, sellToken, buyToken)").
func (o *Oracle) RegisterPools(sellToken, buyToken common.Address, pools []*Pool) {
	o.poolMap.Put(pairKeyOf(sellToken, buyToken), pools)
}

// RefreshPair reloads every named pool address for a pair from chain
// and re-registers them: the live-RPC half of the pool discovery the
// teacher's GetWETHUSDCPools hardcodes for one pair; here any
// (sellToken, buyToken, poolAddrs) triple works, fed by the LP
// allow-list (spec §6 "lps") the round runner resolves once at
// startup.
func (o *Oracle) RefreshPair(ctx context.Context, sellToken, buyToken common.Address, poolAddrs []common.Address, dexNames []string, blockNum *big.Int) error {
	pools := make([]*Pool, 0, len(poolAddrs))
	for i, addr := range poolAddrs {
		dex := "unknown"
		if i < len(dexNames) {
			dex = dexNames[i]
		}
		p, err := LoadPool(ctx, o.client, addr, dex, blockNum)
		if err != nil {
			return err
		}
		pools = append(pools, p)
	}
	o.RegisterPools(sellToken, buyToken, pools)
	return nil
}

// Quote implements Fetcher: best route and amount-out for sellToken ->
// buyToken at amountIn, at blockNum (nil = latest).
func (o *Oracle) Quote(ctx context.Context, sellToken, buyToken common.Address, amountIn *big.Int, blockNum *big.Int) (*Route, error) {
	pools, ok := o.poolMap.Get(pairKeyOf(sellToken, buyToken))
	if !ok || len(pools) == 0 {
		return nil, ErrNoWay
	}
	return bestRoute(pools, sellToken, buyToken, amountIn, o.version)
}

// HasPools reports whether the pool map already has at least one pool
// registered for the pair, the check the pair processor's HavePools
// state performs before attempting a dryrun (spec §4.7 state machine).
func (o *Oracle) HasPools(sellToken, buyToken common.Address) bool {
	pools, ok := o.poolMap.Get(pairKeyOf(sellToken, buyToken))
	return ok && len(pools) > 0
}

// Invalidate drops the whole pool map, forcing the next Quote to
// return ErrNoWay until RegisterPools repopulates it. Used by the
// round runner at the configured pool-refresh interval (spec §6
// "poolUpdateInterval (minutes)", §9 "process-wide pool cache ... an
// explicit cache type with refresh()/invalidate()").
func (o *Oracle) Invalidate() {
	o.poolMap.Purge()
}
