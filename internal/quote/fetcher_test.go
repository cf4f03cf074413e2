package quote

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/types"
)

func TestOracleHasPoolsAndQuoteAfterRegisterPools(t *testing.T) {
	sell := common.HexToAddress("0x1")
	buy := common.HexToAddress("0x2")
	o := &Oracle{poolMap: NewPoolMap(4), version: types.RouteCodeVersion("v1")}

	if o.HasPools(sell, buy) {
		t.Fatal("expected no pools registered yet")
	}
	if _, err := o.Quote(context.Background(), sell, buy, big.NewInt(100), nil); err != ErrNoWay {
		t.Fatalf("expected ErrNoWay before registration, got %v", err)
	}

	pool := &Pool{Address: common.HexToAddress("0xa"), Token0: sell, Token1: buy,
		Reserve0: big.NewInt(1_000_000), Reserve1: big.NewInt(1_000_000)}
	o.RegisterPools(sell, buy, []*Pool{pool})

	if !o.HasPools(sell, buy) {
		t.Fatal("expected pools registered after RegisterPools")
	}

	route, err := o.Quote(context.Background(), sell, buy, big.NewInt(100), nil)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if route.Pool.Address != pool.Address {
		t.Fatalf("Quote returned unexpected pool %s", route.Pool.Address)
	}
}

func TestOracleInvalidateDropsAllPairs(t *testing.T) {
	sell := common.HexToAddress("0x1")
	buy := common.HexToAddress("0x2")
	o := &Oracle{poolMap: NewPoolMap(4), version: types.RouteCodeVersion("v1")}
	o.RegisterPools(sell, buy, []*Pool{{Address: common.HexToAddress("0xa"), Token0: sell, Token1: buy}})

	o.Invalidate()

	if o.HasPools(sell, buy) {
		t.Fatal("expected Invalidate to clear every registered pair")
	}
}

func TestOracleQuoteUnregisteredPairReturnsErrNoWay(t *testing.T) {
	o := NewOracle(nil, 4, types.RouteCodeVersion("v1"))
	_, err := o.Quote(context.Background(), common.HexToAddress("0x1"), common.HexToAddress("0x2"), big.NewInt(1), nil)
	if err != ErrNoWay {
		t.Fatalf("expected ErrNoWay, got %v", err)
	}
}
