package simulate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie/utils"
	"github.com/holiman/uint256"
)

// forkedStateDB implements vm.StateDB against a StateFork, grounded
// verbatim on the teacher's simulator.ForkedStateDB.
type forkedStateDB struct {
	fork            *StateFork
	logs            []*types.Log
	refund          uint64
	accessList      map[common.Address]map[common.Hash]bool
	accessListAddr  map[common.Address]bool
	originalStorage map[common.Address]map[common.Hash]common.Hash
}

func newForkedStateDB(fork *StateFork) *forkedStateDB {
	return &forkedStateDB{
		fork:            fork,
		logs:            make([]*types.Log, 0),
		accessList:      make(map[common.Address]map[common.Hash]bool),
		accessListAddr:  make(map[common.Address]bool),
		originalStorage: make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (s *forkedStateDB) CreateAccount(addr common.Address) {
	s.fork.SetBalance(addr, big.NewInt(0))
	s.fork.SetNonce(addr, 0)
}

func (s *forkedStateDB) CreateContract(addr common.Address) {
	s.CreateAccount(addr)
}

func (s *forkedStateDB) GetBalance(addr common.Address) *uint256.Int {
	bal, err := s.fork.GetBalance(addr)
	if err != nil {
		return uint256.NewInt(0)
	}
	val, overflow := uint256.FromBig(bal)
	if overflow {
		return uint256.NewInt(0)
	}
	return val
}

func (s *forkedStateDB) AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int {
	bal := s.GetBalance(addr)
	newBal := new(uint256.Int).Add(bal, amount)
	s.fork.SetBalance(addr, newBal.ToBig())
	return *bal
}

func (s *forkedStateDB) SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) uint256.Int {
	bal := s.GetBalance(addr)
	newBal := new(uint256.Int).Sub(bal, amount)
	s.fork.SetBalance(addr, newBal.ToBig())
	return *bal
}

func (s *forkedStateDB) GetNonce(addr common.Address) uint64 {
	nonce, err := s.fork.GetNonce(addr)
	if err != nil {
		return 0
	}
	return nonce
}

func (s *forkedStateDB) SetNonce(addr common.Address, nonce uint64, reason tracing.NonceChangeReason) {
	s.fork.SetNonce(addr, nonce)
}

func (s *forkedStateDB) GetCode(addr common.Address) []byte {
	code, err := s.fork.GetCode(addr)
	if err != nil {
		return nil
	}
	return code
}

func (s *forkedStateDB) GetCodeSize(addr common.Address) int {
	return len(s.GetCode(addr))
}

func (s *forkedStateDB) GetCodeHash(addr common.Address) common.Hash {
	code := s.GetCode(addr)
	if len(code) == 0 {
		if s.Exist(addr) {
			return crypto.Keccak256Hash(nil)
		}
		return common.Hash{}
	}
	return crypto.Keccak256Hash(code)
}

func (s *forkedStateDB) SetCode(addr common.Address, code []byte, reason tracing.CodeChangeReason) []byte {
	oldCode := s.GetCode(addr)
	s.fork.SetCode(addr, code)
	return oldCode
}

func (s *forkedStateDB) GetState(addr common.Address, hash common.Hash) common.Hash {
	val, err := s.fork.GetStorageAt(addr, hash)
	if err != nil {
		return common.Hash{}
	}
	return val
}

func (s *forkedStateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	oldVal := s.GetState(addr, key)
	s.fork.SetStorageAt(addr, key, value)
	return oldVal
}

func (s *forkedStateDB) GetStateAndCommittedState(addr common.Address, hash common.Hash) (common.Hash, common.Hash) {
	current := s.GetState(addr, hash)

	if addrMap, ok := s.originalStorage[addr]; ok {
		if orig, ok := addrMap[hash]; ok {
			return current, orig
		}
	}
	if s.originalStorage[addr] == nil {
		s.originalStorage[addr] = make(map[common.Hash]common.Hash)
	}
	s.originalStorage[addr][hash] = current
	return current, current
}

func (s *forkedStateDB) GetStorageRoot(addr common.Address) common.Hash {
	return common.Hash{}
}

func (s *forkedStateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return common.Hash{}
}

func (s *forkedStateDB) SetTransientState(addr common.Address, key, value common.Hash) {}

func (s *forkedStateDB) Exist(addr common.Address) bool {
	code := s.GetCode(addr)
	balance := s.GetBalance(addr)
	nonce := s.GetNonce(addr)
	return len(code) > 0 || balance.Sign() > 0 || nonce > 0
}

func (s *forkedStateDB) Empty(addr common.Address) bool {
	return !s.Exist(addr)
}

func (s *forkedStateDB) Snapshot() int {
	return s.fork.Snapshot()
}

func (s *forkedStateDB) RevertToSnapshot(id int) {
	s.fork.RevertToSnapshot(id)
}

func (s *forkedStateDB) AddLog(log *types.Log) {
	s.logs = append(s.logs, log)
}

func (s *forkedStateDB) Logs() []*types.Log {
	return s.logs
}

func (s *forkedStateDB) AddRefund(gas uint64) {
	s.refund += gas
}

func (s *forkedStateDB) SubRefund(gas uint64) {
	if gas > s.refund {
		s.refund = 0
	} else {
		s.refund -= gas
	}
}

func (s *forkedStateDB) GetRefund() uint64 {
	return s.refund
}

func (s *forkedStateDB) AddPreimage(hash common.Hash, preimage []byte) {}

func (s *forkedStateDB) SelfDestruct(addr common.Address) uint256.Int {
	bal := s.GetBalance(addr)
	s.fork.SetBalance(addr, big.NewInt(0))
	return *bal
}

func (s *forkedStateDB) HasSelfDestructed(addr common.Address) bool {
	return false
}

func (s *forkedStateDB) SelfDestruct6780(addr common.Address) (uint256.Int, bool) {
	return s.SelfDestruct(addr), true
}

func (s *forkedStateDB) AddAddressToAccessList(addr common.Address) { s.accessListAddr[addr] = true }

func (s *forkedStateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	s.accessListAddr[addr] = true
	if s.accessList[addr] == nil {
		s.accessList[addr] = make(map[common.Hash]bool)
	}
	s.accessList[addr][slot] = true
}

func (s *forkedStateDB) AddressInAccessList(addr common.Address) bool {
	return s.accessListAddr[addr]
}

func (s *forkedStateDB) SlotInAccessList(addr common.Address, slot common.Hash) (bool, bool) {
	addrOk := s.accessListAddr[addr]
	if !addrOk {
		return false, false
	}
	if s.accessList[addr] == nil {
		return true, false
	}
	return true, s.accessList[addr][slot]
}

func (s *forkedStateDB) Prepare(rules params.Rules, sender, coinbase common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	s.AddAddressToAccessList(sender)
	if dest != nil {
		s.AddAddressToAccessList(*dest)
	}
	s.AddAddressToAccessList(coinbase)
	for _, addr := range precompiles {
		s.AddAddressToAccessList(addr)
	}
	for _, el := range txAccesses {
		s.AddAddressToAccessList(el.Address)
		for _, key := range el.StorageKeys {
			s.AddSlotToAccessList(el.Address, key)
		}
	}
}

func (s *forkedStateDB) PointCache() *utils.PointCache { return nil }

func (s *forkedStateDB) Witness() *stateless.Witness { return nil }

func (s *forkedStateDB) AccessEvents() *state.AccessEvents { return nil }

func (s *forkedStateDB) Finalise(deleteEmptyObjects bool) {}
