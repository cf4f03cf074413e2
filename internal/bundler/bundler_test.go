package bundler

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/types"
)

func mkOrder(id byte, owner common.Address, sell, buy common.Address, sellVault *big.Int) *types.Order {
	var h common.Hash
	h[31] = id
	return &types.Order{
		ID:            h,
		Owner:         owner,
		OrderbookAddr: common.HexToAddress("0xaaaa"),
		Inputs:        []types.IO{{Token: buy, Decimals: 18, VaultID: big.NewInt(1)}},
		Outputs:       []types.IO{{Token: sell, Decimals: 18, VaultID: sellVault}},
	}
}

func TestExpandTakeOrdersSkipsSameTokenCombinations(t *testing.T) {
	weth := common.HexToAddress("0x1111")
	usdc := common.HexToAddress("0x2222")
	owner := common.HexToAddress("0x3333")

	order := &types.Order{
		ID:    common.HexToHash("0x01"),
		Owner: owner,
		Inputs: []types.IO{
			{Token: weth, Decimals: 18, VaultID: big.NewInt(1)},
			{Token: usdc, Decimals: 6, VaultID: big.NewInt(1)},
		},
		Outputs: []types.IO{
			{Token: usdc, Decimals: 6, VaultID: big.NewInt(2)},
		},
	}

	tos := ExpandTakeOrders([]*types.Order{order})
	if len(tos) != 1 {
		t.Fatalf("expected 1 take-order (usdc input skipped as same-token), got %d", len(tos))
	}
	if tos[0].InputIOIndex != 0 || tos[0].OutputIOIndex != 0 {
		t.Errorf("expected the weth-input/usdc-output combination, got in=%d out=%d", tos[0].InputIOIndex, tos[0].OutputIOIndex)
	}
}

func TestGroupBundledSharesOneBPAcrossMatchingOrders(t *testing.T) {
	weth := common.HexToAddress("0x1111")
	usdc := common.HexToAddress("0x2222")
	ownerA := common.HexToAddress("0xaaa1")
	ownerB := common.HexToAddress("0xaaa2")

	orderA := mkOrder(1, ownerA, usdc, weth, big.NewInt(100))
	orderB := mkOrder(2, ownerB, usdc, weth, big.NewInt(200))
	orderA.OrderbookAddr = common.HexToAddress("0xaaaa")
	orderB.OrderbookAddr = common.HexToAddress("0xaaaa")

	tos := ExpandTakeOrders([]*types.Order{orderA, orderB})
	for _, to := range tos {
		to.Quote = types.Quote{MaxOutput: big.NewInt(1), Ratio: big.NewInt(1)}
	}

	bps := groupBundled(tos)
	if len(bps) != 1 {
		t.Fatalf("expected both orders to land in one BP, got %d", len(bps))
	}
	if len(bps[0].TakeOrders) != 2 {
		t.Errorf("expected 2 take-orders in the shared BP, got %d", len(bps[0].TakeOrders))
	}
}

func TestGroupUnbundledProducesOneBPPerTakeOrder(t *testing.T) {
	weth := common.HexToAddress("0x1111")
	usdc := common.HexToAddress("0x2222")
	owner := common.HexToAddress("0xaaa1")

	orderA := mkOrder(1, owner, usdc, weth, big.NewInt(100))
	orderB := mkOrder(2, owner, usdc, weth, big.NewInt(200))

	tos := ExpandTakeOrders([]*types.Order{orderA, orderB})
	bps := groupUnbundled(tos)
	if len(bps) != 2 {
		t.Fatalf("expected one BP per take-order, got %d", len(bps))
	}
	for _, bp := range bps {
		if len(bp.TakeOrders) != 1 {
			t.Errorf("expected exactly 1 take-order per unbundled BP, got %d", len(bp.TakeOrders))
		}
	}
}
