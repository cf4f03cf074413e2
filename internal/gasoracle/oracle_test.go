package gasoracle

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rainclear/clearing-core/internal/bigmath"
	"github.com/rainclear/clearing-core/internal/quote"
)

// fakeFetcher returns a fixed amountOut regardless of input, and counts
// how many times Quote was called so tests can confirm the cache is
// actually saving a round trip.
type fakeFetcher struct {
	amountOut *big.Int
	calls     int
}

func (f *fakeFetcher) Quote(_ context.Context, _, _ common.Address, _ *big.Int, _ *big.Int) (*quote.Route, error) {
	f.calls++
	return &quote.Route{AmountOut: f.amountOut}, nil
}

func newTestOracle() *Oracle {
	return &Oracle{
		cache:      expirable.NewLRU[ethPriceKey, *big.Int](256, nil, time.Minute),
		bucketSize: 1,
	}
}

func TestEthPriceCachesPerBlockBucket(t *testing.T) {
	o := newTestOracle()
	fetcher := &fakeFetcher{amountOut: big.NewInt(2_000)}
	buyToken := common.HexToAddress("0x1")

	price1, err := o.EthPrice(context.Background(), buyToken, 18, big.NewInt(100), fetcher)
	if err != nil {
		t.Fatalf("EthPrice: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 fetcher call, got %d", fetcher.calls)
	}

	price2, err := o.EthPrice(context.Background(), buyToken, 18, big.NewInt(100), fetcher)
	if err != nil {
		t.Fatalf("EthPrice (cached): %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected cache hit to avoid a second fetcher call, got %d calls", fetcher.calls)
	}
	if price1.Cmp(price2) != 0 {
		t.Fatalf("cached price %s does not match original %s", price2, price1)
	}
}

func TestEthPriceDifferentBucketsDoNotShareCache(t *testing.T) {
	o := newTestOracle()
	o.bucketSize = 10
	fetcher := &fakeFetcher{amountOut: big.NewInt(2_000)}
	buyToken := common.HexToAddress("0x1")

	if _, err := o.EthPrice(context.Background(), buyToken, 18, big.NewInt(5), fetcher); err != nil {
		t.Fatalf("EthPrice: %v", err)
	}
	if _, err := o.EthPrice(context.Background(), buyToken, 18, big.NewInt(15), fetcher); err != nil {
		t.Fatalf("EthPrice: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("expected a fetcher call per distinct bucket, got %d calls", fetcher.calls)
	}
}

func TestEthPricePropagatesFetcherError(t *testing.T) {
	o := newTestOracle()
	buyToken := common.HexToAddress("0x1")
	_, err := o.EthPrice(context.Background(), buyToken, 18, nil, errFetcher{})
	if err == nil {
		t.Fatal("expected an error from a fetcher that cannot route")
	}
}

type errFetcher struct{}

func (errFetcher) Quote(context.Context, common.Address, common.Address, *big.Int, *big.Int) (*quote.Route, error) {
	return nil, quote.ErrNoWay
}

func TestGasCostInTokenScalesAndMultiplies(t *testing.T) {
	gasCostWei := big.NewInt(21_000 * 1_000_000_000) // 21000 gas * 1 gwei
	ethPrice18 := new(big.Int).Mul(big.NewInt(2_000), bigmath.Wad)

	got := GasCostInToken(gasCostWei, ethPrice18)

	want := bigmath.WadMul(bigmath.Scale18(gasCostWei, 18), ethPrice18)
	if got.Cmp(want) != 0 {
		t.Fatalf("GasCostInToken = %s, want %s", got, want)
	}
	if got.Sign() <= 0 {
		t.Fatalf("expected a positive token-denominated gas cost, got %s", got)
	}
}
