package intraorderbook

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/bigmath"
	"github.com/rainclear/clearing-core/internal/types"
)

func makeOrder(id string, owner string) *types.Order {
	return &types.Order{
		ID:    common.HexToHash(id),
		Owner: common.HexToAddress(owner),
	}
}

func TestPreconditionsOKRejectsSameOrderID(t *testing.T) {
	order := makeOrder("0x1", "0xa")
	alice := &types.TakeOrder{Order: order, Quote: types.Quote{Ratio: big.NewInt(1)}}
	bob := &types.TakeOrder{Order: order, Quote: types.Quote{Ratio: big.NewInt(1)}}

	if preconditionsOK(alice, bob) {
		t.Fatal("expected same order id to fail preconditions")
	}
}

func TestPreconditionsOKRejectsSameOwner(t *testing.T) {
	alice := &types.TakeOrder{Order: makeOrder("0x1", "0xa"), Quote: types.Quote{Ratio: big.NewInt(1)}}
	bob := &types.TakeOrder{Order: makeOrder("0x2", "0xa"), Quote: types.Quote{Ratio: big.NewInt(1)}}

	if preconditionsOK(alice, bob) {
		t.Fatal("expected same owner to fail preconditions")
	}
}

func TestPreconditionsOKRequiresRatioOverlap(t *testing.T) {
	alice := &types.TakeOrder{Order: makeOrder("0x1", "0xa"), Quote: types.Quote{Ratio: bigmath.Wad}}
	bob := &types.TakeOrder{Order: makeOrder("0x2", "0xb"), Quote: types.Quote{Ratio: bigmath.Wad}}

	if preconditionsOK(alice, bob) {
		t.Fatal("expected ratio product >= 1e18 to fail the overlap check")
	}

	bob.Quote.Ratio = new(big.Int).Div(bigmath.Wad, big.NewInt(2))
	if !preconditionsOK(alice, bob) {
		t.Fatal("expected overlapping ratios to pass preconditions")
	}
}

func TestAssembleMulticallProducesThreeCalls(t *testing.T) {
	alice := abiutil.OrderV3{Owner: common.HexToAddress("0xa")}
	bob := abiutil.OrderV3{Owner: common.HexToAddress("0xb")}
	cfg := abiutil.ClearConfigV2{
		AliceInputIOIndex:  big.NewInt(0),
		AliceOutputIOIndex: big.NewInt(0),
		BobInputIOIndex:    big.NewInt(0),
		BobOutputIOIndex:   big.NewInt(0),
		AliceBountyVaultId: abiutil.BountyVaultID,
		BobBountyVaultId:   abiutil.BountyVaultID,
	}
	buyToken := common.HexToAddress("0x1")
	sellToken := common.HexToAddress("0x2")

	calldata, err := assembleMulticall(alice, bob, cfg, buyToken, sellToken, nil)
	if err != nil {
		t.Fatalf("assembleMulticall: %v", err)
	}
	if len(calldata) == 0 {
		t.Fatal("expected non-empty multicall calldata")
	}
}

func TestAssembleMulticallWithBountyDiffersFromZeroBounty(t *testing.T) {
	alice := abiutil.OrderV3{Owner: common.HexToAddress("0xa")}
	bob := abiutil.OrderV3{Owner: common.HexToAddress("0xb")}
	cfg := abiutil.ClearConfigV2{
		AliceInputIOIndex:  big.NewInt(0),
		AliceOutputIOIndex: big.NewInt(0),
		BobInputIOIndex:    big.NewInt(0),
		BobOutputIOIndex:   big.NewInt(0),
		AliceBountyVaultId: abiutil.BountyVaultID,
		BobBountyVaultId:   abiutil.BountyVaultID,
	}
	buyToken := common.HexToAddress("0x1")
	sellToken := common.HexToAddress("0x2")

	zero, err := assembleMulticall(alice, bob, cfg, buyToken, sellToken, nil)
	if err != nil {
		t.Fatalf("assembleMulticall(zero): %v", err)
	}
	withBounty, err := assembleMulticall(alice, bob, cfg, buyToken, sellToken, big.NewInt(500))
	if err != nil {
		t.Fatalf("assembleMulticall(bounty): %v", err)
	}

	if string(zero) == string(withBounty) {
		t.Fatal("expected bounty task to change the assembled calldata")
	}
}

func TestToOrderV3AndIOV2Conversion(t *testing.T) {
	order := &types.Order{
		ID:    common.HexToHash("0xabc"),
		Owner: common.HexToAddress("0x1"),
		Inputs: []types.IO{
			{Token: common.HexToAddress("0x2"), Decimals: 18, VaultID: big.NewInt(7)},
		},
	}

	got := toOrderV3(order)
	if got.Owner != order.Owner {
		t.Fatalf("owner mismatch: got %s want %s", got.Owner, order.Owner)
	}
	if len(got.ValidInputs) != 1 || got.ValidInputs[0].VaultId.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("ValidInputs not converted correctly: %+v", got.ValidInputs)
	}
}
