// Package gasoracle implements C2: current gas price and a reference
// native-token price expressed in the buy-token, memoised per
// (token, block-height-bucket) with a bounded TTL so a tight dryrun
// loop does not re-quote on every iteration (spec §4.2). Grounded on
// the teacher's detector.go gas-cost-in-USDC conversion, reimplemented
// without big.Float: spec §9 forbids floating point for amounts or
// ratios, and detector.go's own "gasCostFloat" path is exactly the
// kind of precision loss that rule exists to rule out.
package gasoracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rainclear/clearing-core/internal/bigmath"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/quote"
)

// Oracle answers gasPrice() and ethPrice() with a bounded-TTL cache
// keyed by (buyToken, block-height-bucket).
type Oracle struct {
	client     *eth.Client
	cache      *expirable.LRU[ethPriceKey, *big.Int]
	bucketSize uint64
}

type ethPriceKey struct {
	token  common.Address
	bucket uint64
}

// New builds a gas oracle whose ethPrice memoisation expires after ttl
// and buckets block numbers into groups of bucketSize so a run of
// dryruns against the same handful of blocks shares one quote.
func New(client *eth.Client, ttl time.Duration, bucketSize uint64) *Oracle {
	if bucketSize == 0 {
		bucketSize = 1
	}
	return &Oracle{
		client:     client,
		cache:      expirable.NewLRU[ethPriceKey, *big.Int](256, nil, ttl),
		bucketSize: bucketSize,
	}
}

// GasPrice returns the current suggested gas price in wei.
func (o *Oracle) GasPrice(ctx context.Context) (*big.Int, error) {
	return o.client.SuggestGasPrice(ctx)
}

// EthPrice returns 1 native token's value expressed in buyToken units
// (18-decimal fixed point), by routing 1e18 wei of native token through
// fetcher into buyToken and scaling the result to 18 decimals. Returns
// (nil, quote.ErrNoWay) when fetcher has no route, matching spec
// §4.2's "Returns empty/none when no route exists."
func (o *Oracle) EthPrice(ctx context.Context, buyToken common.Address, buyDecimals uint8, blockNum *big.Int, fetcher quote.Fetcher) (*big.Int, error) {
	bucket := uint64(0)
	if blockNum != nil {
		bucket = blockNum.Uint64() / o.bucketSize
	}
	key := ethPriceKey{token: buyToken, bucket: bucket}
	if cached, ok := o.cache.Get(key); ok {
		return cached, nil
	}

	oneNative := new(big.Int).Set(bigmath.Wad) // 1 native token, 18 decimals
	route, err := fetcher.Quote(ctx, eth.WETHAddress, buyToken, oneNative, blockNum)
	if err != nil {
		return nil, fmt.Errorf("gasoracle: ethPrice route: %w", err)
	}

	price18 := bigmath.Scale18(route.AmountOut, buyDecimals)
	o.cache.Add(key, price18)
	return price18, nil
}

// GasCostInToken converts a gas cost in wei to buy-token units (18
// decimal) given a previously obtained ethPrice (also 18 decimal),
// used by C4/C7 to express gas cost and net profit in the same unit as
// income (spec §4.7 "convert to buy-token via the previously obtained
// ethPrice").
func GasCostInToken(gasCostWei *big.Int, ethPrice18 *big.Int) *big.Int {
	gasCostWei18 := bigmath.Scale18(gasCostWei, 18)
	return bigmath.WadMul(gasCostWei18, ethPrice18)
}
