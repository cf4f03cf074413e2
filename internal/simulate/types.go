package simulate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExecResult is the outcome of replaying one transaction against a
// StateFork — used only by the local-EVM backtest path (supplemented
// feature), never by the live RPCSimulator above. Grounded on the
// teacher's simulator.SimulationResult.
type ExecResult struct {
	Success      bool
	GasUsed      uint64
	Logs         []*types.Log
	ReturnData   []byte
	RevertReason string
}

// stateCache is the in-memory account/storage snapshot a StateFork
// maintains on top of RPC reads, grounded on the teacher's
// simulator.StateCache.
type stateCache struct {
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	code     map[common.Address][]byte
	storage  map[common.Address]map[common.Hash]common.Hash
}

func newStateCache() *stateCache {
	return &stateCache{
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		code:     make(map[common.Address][]byte),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (c *stateCache) clone() *stateCache {
	out := newStateCache()
	for addr, bal := range c.balances {
		out.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, nonce := range c.nonces {
		out.nonces[addr] = nonce
	}
	for addr, code := range c.code {
		out.code[addr] = code
	}
	for addr, slots := range c.storage {
		out.storage[addr] = make(map[common.Hash]common.Hash, len(slots))
		for slot, val := range slots {
			out.storage[addr][slot] = val
		}
	}
	return out
}
