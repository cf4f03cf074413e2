package quote

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// pairKey canonicalizes a (sellToken, buyToken) pair into a single
// comparable map key, independent of direction, since the same pool
// set serves both legs of the pair.
type pairKey struct {
	a, b common.Address
}

func pairKeyOf(sellToken, buyToken common.Address) pairKey {
	if sellToken.Cmp(buyToken) <= 0 {
		return pairKey{sellToken, buyToken}
	}
	return pairKey{buyToken, sellToken}
}

// PoolMap is the "explicit cache type with refresh()/invalidate() and
// a timer" spec §9 asks for in place of a hidden global, backed by
// github.com/hashicorp/golang-lru/v2 — a dependency the teacher's
// go.mod already declares but never imports; this is where it gets
// wired in, for the exact concern (pool memoisation) the spec names.
type PoolMap struct {
	cache *lru.Cache[pairKey, []*Pool]
}

// NewPoolMap builds a pool map bounded to size pairs; least-recently
// used pairs are evicted once the round tracks more pairs than that.
func NewPoolMap(size int) *PoolMap {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[pairKey, []*Pool](size)
	if err != nil {
		// only possible on size <= 0, guarded above.
		panic(err)
	}
	return &PoolMap{cache: c}
}

func (m *PoolMap) Put(key pairKey, pools []*Pool) {
	m.cache.Add(key, pools)
}

func (m *PoolMap) Get(key pairKey) ([]*Pool, bool) {
	return m.cache.Get(key)
}

// Purge drops every cached pair, used on the configured pool-refresh
// tick. Spec §5 describes this as deleting and recreating the
// backing directory for the on-disk mem-cache; the in-process pool
// map mirrors that by being rebuilt from scratch on the next round's
// RegisterPools calls rather than patched incrementally.
func (m *PoolMap) Purge() {
	m.cache.Purge()
}
