package quote

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/types"
)

func TestAmountOutV2MatchesConstantProductFormula(t *testing.T) {
	amountIn := big.NewInt(1_000)
	reserveIn := big.NewInt(1_000_000)
	reserveOut := big.NewInt(2_000_000)

	got := amountOutV2(amountIn, reserveIn, reserveOut)

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	want := new(big.Int).Mul(amountInWithFee, reserveOut)
	denom := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(1000)), amountInWithFee)
	want.Quo(want, denom)

	if got.Cmp(want) != 0 {
		t.Fatalf("amountOutV2 = %s, want %s", got, want)
	}
}

func TestAmountOutV2ZeroOnNonPositiveInput(t *testing.T) {
	if out := amountOutV2(big.NewInt(0), big.NewInt(100), big.NewInt(100)); out.Sign() != 0 {
		t.Fatalf("expected zero output for zero amountIn, got %s", out)
	}
	if out := amountOutV2(big.NewInt(100), big.NewInt(0), big.NewInt(100)); out.Sign() != 0 {
		t.Fatalf("expected zero output for zero reserveIn, got %s", out)
	}
	if out := amountOutV2(big.NewInt(100), big.NewInt(100), big.NewInt(0)); out.Sign() != 0 {
		t.Fatalf("expected zero output for zero reserveOut, got %s", out)
	}
}

func TestBestRoutePicksHighestAmountOut(t *testing.T) {
	sell := common.HexToAddress("0x1")
	buy := common.HexToAddress("0x2")

	shallow := &Pool{Address: common.HexToAddress("0xa"), Token0: sell, Token1: buy,
		Reserve0: big.NewInt(1_000), Reserve1: big.NewInt(1_000), DEX: "shallow"}
	deep := &Pool{Address: common.HexToAddress("0xb"), Token0: sell, Token1: buy,
		Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(1_000_000), DEX: "deep"}

	route, err := bestRoute([]*Pool{shallow, deep}, sell, buy, big.NewInt(100), types.RouteCodeVersion("v1"))
	if err != nil {
		t.Fatalf("bestRoute: %v", err)
	}
	if route.Pool.Address != deep.Address {
		t.Fatalf("expected deep pool to win, got %s", route.Pool.DEX)
	}
	if route.Version != types.RouteCodeVersion("v1") {
		t.Fatalf("route version not threaded through, got %s", route.Version)
	}
}

func TestBestRouteSkipsPoolsThatDoNotTradeThePair(t *testing.T) {
	sell := common.HexToAddress("0x1")
	buy := common.HexToAddress("0x2")
	other := common.HexToAddress("0x3")

	unrelated := &Pool{Address: common.HexToAddress("0xc"), Token0: sell, Token1: other,
		Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(1_000_000)}

	_, err := bestRoute([]*Pool{unrelated}, sell, buy, big.NewInt(100), types.RouteCodeVersion("v1"))
	if err != ErrNoWay {
		t.Fatalf("expected ErrNoWay, got %v", err)
	}
}

func TestBestRouteNoPools(t *testing.T) {
	sell := common.HexToAddress("0x1")
	buy := common.HexToAddress("0x2")
	if _, err := bestRoute(nil, sell, buy, big.NewInt(100), types.RouteCodeVersion("v1")); err != ErrNoWay {
		t.Fatalf("expected ErrNoWay on empty pool list, got %v", err)
	}
}
