package round

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/bundler"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/pair"
	"github.com/rainclear/clearing-core/internal/quote"
	"github.com/rainclear/clearing-core/internal/types"
)

var nextOrderID = 0

func bp(orderbook, sellSym, buySym string, sellTok, buyTok common.Address) *types.BundledPair {
	nextOrderID++
	return &types.BundledPair{
		Orderbook:  common.HexToAddress(orderbook),
		SellSymbol: sellSym,
		SellToken:  sellTok,
		BuySymbol:  buySym,
		BuyToken:   buyTok,
		TakeOrders: []*types.TakeOrder{
			{
				Order: &types.Order{ID: common.BigToHash(big.NewInt(int64(nextOrderID)))},
				Quote: types.Quote{MaxOutput: big.NewInt(1_000_000), Ratio: big.NewInt(1e18)},
			},
		},
	}
}

func TestFindOpposingOrdersPairsInverseDirections(t *testing.T) {
	weth := common.HexToAddress("0x1")
	usdc := common.HexToAddress("0x2")
	a := bp("0xbook", "WETH", "USDC", weth, usdc)
	b := bp("0xbook", "USDC", "WETH", usdc, weth)

	opposing := findOpposingOrders([]*types.BundledPair{a, b})
	if opposing[a.Key()] == nil || opposing[a.Key()] != b.TakeOrders[0] {
		t.Errorf("expected a's opposing order to be b's take-order")
	}
	if opposing[b.Key()] == nil || opposing[b.Key()] != a.TakeOrders[0] {
		t.Errorf("expected b's opposing order to be a's take-order")
	}
}

func TestFindOpposingOrdersNoneWhenNoInverseBundle(t *testing.T) {
	weth := common.HexToAddress("0x1")
	usdc := common.HexToAddress("0x2")
	a := bp("0xbook", "WETH", "USDC", weth, usdc)

	opposing := findOpposingOrders([]*types.BundledPair{a})
	if opposing[a.Key()] != nil {
		t.Errorf("expected no opposing order, got %+v", opposing[a.Key()])
	}
}

func fakeBuilder(bps []*types.BundledPair) BundleBuilder {
	return func(ctx context.Context, client *eth.Client, orders []*types.Order, opts bundler.Options) ([]*types.BundledPair, error) {
		return bps, nil
	}
}

func TestRunOnceCollectsOneReportPerBundle(t *testing.T) {
	weth := common.HexToAddress("0x1")
	usdc := common.HexToAddress("0x2")
	a := bp("0xbook", "WETH", "USDC", weth, usdc)

	processor := pair.New(pair.Deps{Gas: &stubGas{}}, pair.Options{})
	r := New(Deps{Processor: processor, BuildBundles: fakeBuilder([]*types.BundledPair{a})}, Options{})

	report, err := r.RunOnce(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Pairs) != 1 {
		t.Fatalf("expected 1 pair report, got %d", len(report.Pairs))
	}
}

func TestRunLoopStopsAfterConfiguredRepetitions(t *testing.T) {
	weth := common.HexToAddress("0x1")
	usdc := common.HexToAddress("0x2")
	a := bp("0xbook", "WETH", "USDC", weth, usdc)

	processor := pair.New(pair.Deps{Gas: &stubGas{}}, pair.Options{})
	r := New(Deps{Processor: processor, BuildBundles: fakeBuilder([]*types.BundledPair{a})}, Options{Repetitions: 2, Sleep: time.Millisecond})

	report, err := r.RunLoop(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RoundIndex != 1 {
		t.Errorf("expected the loop to run 2 rounds (last index 1), got %d", report.RoundIndex)
	}
}

type stubGas struct{}

func (s *stubGas) GasPrice(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (s *stubGas) EthPrice(ctx context.Context, buyToken common.Address, buyDecimals uint8, blockNum *big.Int, fetcher quote.Fetcher) (*big.Int, error) {
	return big.NewInt(1), nil
}
