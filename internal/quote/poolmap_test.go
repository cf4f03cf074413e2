package quote

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPairKeyOfIsDirectionIndependent(t *testing.T) {
	a := common.HexToAddress("0x1")
	b := common.HexToAddress("0x2")

	if pairKeyOf(a, b) != pairKeyOf(b, a) {
		t.Fatal("pairKeyOf should not depend on argument order")
	}
}

func TestPoolMapPutGet(t *testing.T) {
	m := NewPoolMap(4)
	key := pairKeyOf(common.HexToAddress("0x1"), common.HexToAddress("0x2"))
	pools := []*Pool{{Address: common.HexToAddress("0xa")}}

	if _, ok := m.Get(key); ok {
		t.Fatal("expected miss on empty map")
	}

	m.Put(key, pools)
	got, ok := m.Get(key)
	if !ok || len(got) != 1 || got[0].Address != pools[0].Address {
		t.Fatalf("Get returned %v, %v; want %v, true", got, ok, pools)
	}
}

func TestPoolMapPurgeClearsEntries(t *testing.T) {
	m := NewPoolMap(4)
	key := pairKeyOf(common.HexToAddress("0x1"), common.HexToAddress("0x2"))
	m.Put(key, []*Pool{{Address: common.HexToAddress("0xa")}})

	m.Purge()

	if _, ok := m.Get(key); ok {
		t.Fatal("expected miss after Purge")
	}
}

func TestNewPoolMapDefaultsNonPositiveSize(t *testing.T) {
	m := NewPoolMap(0)
	if m.cache == nil {
		t.Fatal("expected a usable cache with default size")
	}
}
