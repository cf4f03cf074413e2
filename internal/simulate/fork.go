package simulate

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/storage"
)

// StateFork is a read-through cache over a historical block's state,
// used to replay transactions locally without a full archive node.
// Grounded verbatim on the teacher's simulator.StateFork; only renamed
// fields stay package-private since the backtest harness is the sole
// caller. The optional persist layer backs the in-memory cache with
// storage.CacheDB so repeated backtest passes over the same block
// range don't re-fetch account/storage state from the RPC endpoint
// every run.
type StateFork struct {
	client      *eth.Client
	blockNumber *big.Int
	block       *types.Block
	persist     *storage.CacheDB

	cache *stateCache
	mu    sync.RWMutex

	snapshots []*stateCache
}

func NewStateFork(client *eth.Client, blockNumber *big.Int) (*StateFork, error) {
	return NewStateForkWithCache(client, blockNumber, nil)
}

// NewStateForkWithCache is NewStateFork plus a persistent prewarm
// cache: every RPC-sourced read is written through to persist, and
// every read checks persist before falling back to RPC, the same
// layering the teacher's CacheDB batch-prewarm operations existed for.
func NewStateForkWithCache(client *eth.Client, blockNumber *big.Int, persist *storage.CacheDB) (*StateFork, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	block, err := client.BlockByNumber(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block %s: %w", blockNumber, err)
	}

	return &StateFork{
		client:      client,
		blockNumber: blockNumber,
		block:       block,
		persist:     persist,
		cache:       newStateCache(),
		snapshots:   make([]*stateCache, 0),
	}, nil
}

func (f *StateFork) GetBalance(addr common.Address) (*big.Int, error) {
	f.mu.RLock()
	if bal, ok := f.cache.balances[addr]; ok {
		f.mu.RUnlock()
		return new(big.Int).Set(bal), nil
	}
	f.mu.RUnlock()

	if f.persist != nil {
		if bal, ok := f.persist.GetBalance(f.blockNumber.Uint64(), addr); ok {
			f.mu.Lock()
			f.cache.balances[addr] = bal
			f.mu.Unlock()
			return new(big.Int).Set(bal), nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bal, err := f.client.BalanceAt(ctx, addr, f.blockNumber)
	if err != nil {
		return nil, fmt.Errorf("rpc balance read for %s at %s: %w", addr.Hex(), f.blockNumber, err)
	}

	f.mu.Lock()
	f.cache.balances[addr] = bal
	f.mu.Unlock()
	if f.persist != nil {
		_ = f.persist.SetBalance(f.blockNumber.Uint64(), addr, bal)
	}

	return new(big.Int).Set(bal), nil
}

func (f *StateFork) GetNonce(addr common.Address) (uint64, error) {
	f.mu.RLock()
	if nonce, ok := f.cache.nonces[addr]; ok {
		f.mu.RUnlock()
		return nonce, nil
	}
	f.mu.RUnlock()

	if f.persist != nil {
		if nonce, ok := f.persist.GetNonce(f.blockNumber.Uint64(), addr); ok {
			f.mu.Lock()
			f.cache.nonces[addr] = nonce
			f.mu.Unlock()
			return nonce, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nonce, err := f.client.NonceAt(ctx, addr, f.blockNumber)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.cache.nonces[addr] = nonce
	f.mu.Unlock()
	if f.persist != nil {
		_ = f.persist.SetNonce(f.blockNumber.Uint64(), addr, nonce)
	}

	return nonce, nil
}

func (f *StateFork) GetCode(addr common.Address) ([]byte, error) {
	f.mu.RLock()
	if code, ok := f.cache.code[addr]; ok {
		f.mu.RUnlock()
		return code, nil
	}
	f.mu.RUnlock()

	if f.persist != nil {
		if code, ok := f.persist.GetCode(f.blockNumber.Uint64(), addr); ok {
			f.mu.Lock()
			f.cache.code[addr] = code
			f.mu.Unlock()
			return code, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	code, err := f.client.CodeAt(ctx, addr, f.blockNumber)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache.code[addr] = code
	f.mu.Unlock()
	if f.persist != nil {
		_ = f.persist.SetCode(f.blockNumber.Uint64(), addr, code)
	}

	return code, nil
}

func (f *StateFork) GetStorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	f.mu.RLock()
	if addrStorage, ok := f.cache.storage[addr]; ok {
		if val, ok := addrStorage[slot]; ok {
			f.mu.RUnlock()
			return val, nil
		}
	}
	f.mu.RUnlock()

	if f.persist != nil {
		if val, ok := f.persist.GetStorage(f.blockNumber.Uint64(), addr, slot); ok {
			f.mu.Lock()
			if f.cache.storage[addr] == nil {
				f.cache.storage[addr] = make(map[common.Hash]common.Hash)
			}
			f.cache.storage[addr][slot] = val
			f.mu.Unlock()
			return val, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	data, err := f.client.StorageAt(ctx, addr, slot, f.blockNumber)
	if err != nil {
		return common.Hash{}, err
	}

	val := common.BytesToHash(data)

	f.mu.Lock()
	if f.cache.storage[addr] == nil {
		f.cache.storage[addr] = make(map[common.Hash]common.Hash)
	}
	f.cache.storage[addr][slot] = val
	f.mu.Unlock()
	if f.persist != nil {
		_ = f.persist.SetStorage(f.blockNumber.Uint64(), addr, slot, val)
	}

	return val, nil
}

func (f *StateFork) SetBalance(addr common.Address, bal *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.balances[addr] = new(big.Int).Set(bal)
}

func (f *StateFork) SetNonce(addr common.Address, nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.nonces[addr] = nonce
}

func (f *StateFork) SetCode(addr common.Address, code []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.code[addr] = code
}

func (f *StateFork) SetStorageAt(addr common.Address, slot common.Hash, val common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache.storage[addr] == nil {
		f.cache.storage[addr] = make(map[common.Hash]common.Hash)
	}
	f.cache.storage[addr][slot] = val
}

// Snapshot records a revert point and returns its id.
func (f *StateFork) Snapshot() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshots = append(f.snapshots, f.cache.clone())
	return len(f.snapshots) - 1
}

func (f *StateFork) RevertToSnapshot(snapID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if snapID < 0 || snapID >= len(f.snapshots) {
		return fmt.Errorf("invalid snapshot id: %d", snapID)
	}

	f.cache = f.snapshots[snapID]
	f.snapshots = f.snapshots[:snapID]

	return nil
}

func (f *StateFork) BlockContext() *types.Block {
	return f.block
}
