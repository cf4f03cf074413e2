package routeprocessor

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/bigmath"
	"github.com/rainclear/clearing-core/internal/types"
)

func TestGasBountyAppliesCoverageThenHeadroom(t *testing.T) {
	gasCostWei := big.NewInt(1_000_000)
	got := gasBounty(gasCostWei, 50, GasBountyHeadroomBps)

	covered := bigmath.PercentOf(gasCostWei, 50)
	want := bigmath.BasisHeadroom(covered, GasBountyHeadroomBps)

	if got.Cmp(want) != 0 {
		t.Fatalf("gasBounty = %s, want %s", got, want)
	}
}

func TestEncodeMinBountyNilOnZero(t *testing.T) {
	if b := encodeMinBounty(big.NewInt(0)); b != nil {
		t.Fatalf("expected nil bytecode for zero bounty, got %x", b)
	}
	if b := encodeMinBounty(nil); b != nil {
		t.Fatalf("expected nil bytecode for nil bounty, got %x", b)
	}
}

func TestEncodeMinBountyNonZero(t *testing.T) {
	bounty := big.NewInt(12345)
	got := encodeMinBounty(bounty)
	if got == nil {
		t.Fatal("expected non-nil bytecode for a positive bounty")
	}
	if new(big.Int).SetBytes(got).Cmp(bounty) != 0 {
		t.Fatalf("encodeMinBounty round-trip mismatch: got %x", got)
	}
}

func TestToIOV2PreservesFields(t *testing.T) {
	token := common.HexToAddress("0x1")
	vault := big.NewInt(42)
	ios := []types.IO{{Token: token, Decimals: 6, VaultID: vault}}

	got := toIOV2(ios)

	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Token != token || got[0].Decimals != 6 || got[0].VaultId.Cmp(vault) != 0 {
		t.Fatalf("toIOV2 did not preserve fields: %+v", got[0])
	}
}

func TestToOrderV3DerivesNonceFromOrderID(t *testing.T) {
	id := common.HexToHash("0xabc")
	order := &types.Order{ID: id, Owner: common.HexToAddress("0x1")}

	got := toOrderV3(order)

	if common.BytesToHash(got.Nonce[:]) != id {
		t.Fatalf("expected nonce to mirror order ID, got %x want %x", got.Nonce, id)
	}
	if got.Owner != order.Owner {
		t.Fatalf("owner not preserved: got %s want %s", got.Owner, order.Owner)
	}
}

func TestToTakeOrderConfigsPreservesIndices(t *testing.T) {
	order := &types.Order{ID: common.HexToHash("0x1"), Owner: common.HexToAddress("0x2")}
	orders := []*types.TakeOrder{{Order: order, InputIOIndex: 1, OutputIOIndex: 2}}

	got := toTakeOrderConfigs(orders)

	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].InputIOIndex.Int64() != 1 || got[0].OutputIOIndex.Int64() != 2 {
		t.Fatalf("indices not preserved: %+v", got[0])
	}
}
