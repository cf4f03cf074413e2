package abiutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// orderbookABIJSON declares every orderbook/arb function this module
// packs calldata for. Tuple component names match the Go mirror types
// in types.go field-for-field, the way go-ethereum's abi.Pack expects
// when given a Go struct for a tuple argument.
const orderbookABIJSON = `[
{
	"name": "arb3",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "orderbook", "type": "address"},
		{"name": "takeOrdersConfig", "type": "tuple", "components": [
			{"name": "MinimumInput", "type": "uint256"},
			{"name": "MaximumInput", "type": "uint256"},
			{"name": "MaximumIORatio", "type": "uint256"},
			{"name": "Orders", "type": "tuple[]", "components": [
				{"name": "Order", "type": "tuple", "components": [
					{"name": "Owner", "type": "address"},
					{"name": "Evaluable", "type": "tuple", "components": [
						{"name": "Interpreter", "type": "address"},
						{"name": "Store", "type": "address"},
						{"name": "Bytecode", "type": "bytes"}
					]},
					{"name": "ValidInputs", "type": "tuple[]", "components": [
						{"name": "Token", "type": "address"},
						{"name": "Decimals", "type": "uint8"},
						{"name": "VaultId", "type": "uint256"}
					]},
					{"name": "ValidOutputs", "type": "tuple[]", "components": [
						{"name": "Token", "type": "address"},
						{"name": "Decimals", "type": "uint8"},
						{"name": "VaultId", "type": "uint256"}
					]},
					{"name": "Nonce", "type": "bytes32"}
				]},
				{"name": "InputIOIndex", "type": "uint256"},
				{"name": "OutputIOIndex", "type": "uint256"},
				{"name": "SignedContext", "type": "tuple[]", "components": [
					{"name": "Signer", "type": "address"},
					{"name": "Context", "type": "uint256[]"},
					{"name": "Signature", "type": "bytes"}
				]}
			]},
			{"name": "Data", "type": "bytes"}
		]},
		{"name": "task", "type": "tuple", "components": [
			{"name": "Interpreter", "type": "address"},
			{"name": "Store", "type": "address"},
			{"name": "Bytecode", "type": "bytes"}
		]}
	],
	"outputs": []
},
{
	"name": "clear2",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "alice", "type": "tuple", "components": [
			{"name": "Owner", "type": "address"},
			{"name": "Evaluable", "type": "tuple", "components": [
				{"name": "Interpreter", "type": "address"},
				{"name": "Store", "type": "address"},
				{"name": "Bytecode", "type": "bytes"}
			]},
			{"name": "ValidInputs", "type": "tuple[]", "components": [
				{"name": "Token", "type": "address"},
				{"name": "Decimals", "type": "uint8"},
				{"name": "VaultId", "type": "uint256"}
			]},
			{"name": "ValidOutputs", "type": "tuple[]", "components": [
				{"name": "Token", "type": "address"},
				{"name": "Decimals", "type": "uint8"},
				{"name": "VaultId", "type": "uint256"}
			]},
			{"name": "Nonce", "type": "bytes32"}
		]},
		{"name": "bob", "type": "tuple", "components": [
			{"name": "Owner", "type": "address"},
			{"name": "Evaluable", "type": "tuple", "components": [
				{"name": "Interpreter", "type": "address"},
				{"name": "Store", "type": "address"},
				{"name": "Bytecode", "type": "bytes"}
			]},
			{"name": "ValidInputs", "type": "tuple[]", "components": [
				{"name": "Token", "type": "address"},
				{"name": "Decimals", "type": "uint8"},
				{"name": "VaultId", "type": "uint256"}
			]},
			{"name": "ValidOutputs", "type": "tuple[]", "components": [
				{"name": "Token", "type": "address"},
				{"name": "Decimals", "type": "uint8"},
				{"name": "VaultId", "type": "uint256"}
			]},
			{"name": "Nonce", "type": "bytes32"}
		]},
		{"name": "clearConfig", "type": "tuple", "components": [
			{"name": "AliceInputIOIndex", "type": "uint256"},
			{"name": "AliceOutputIOIndex", "type": "uint256"},
			{"name": "BobInputIOIndex", "type": "uint256"},
			{"name": "BobOutputIOIndex", "type": "uint256"},
			{"name": "AliceBountyVaultId", "type": "uint256"},
			{"name": "BobBountyVaultId", "type": "uint256"}
		]},
		{"name": "aliceSignedContext", "type": "tuple[]", "components": [
			{"name": "Signer", "type": "address"},
			{"name": "Context", "type": "uint256[]"},
			{"name": "Signature", "type": "bytes"}
		]},
		{"name": "bobSignedContext", "type": "tuple[]", "components": [
			{"name": "Signer", "type": "address"},
			{"name": "Context", "type": "uint256[]"},
			{"name": "Signature", "type": "bytes"}
		]}
	],
	"outputs": []
},
{
	"name": "withdraw2",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "token", "type": "address"},
		{"name": "vaultId", "type": "uint256"},
		{"name": "targetAmount", "type": "uint256"},
		{"name": "tasks", "type": "tuple[]", "components": [
			{"name": "Evaluable", "type": "tuple", "components": [
				{"name": "Interpreter", "type": "address"},
				{"name": "Store", "type": "address"},
				{"name": "Bytecode", "type": "bytes"}
			]},
			{"name": "SignedContext", "type": "tuple[]", "components": [
				{"name": "Signer", "type": "address"},
				{"name": "Context", "type": "uint256[]"},
				{"name": "Signature", "type": "bytes"}
			]}
		]}
	],
	"outputs": []
},
{
	"name": "multicall",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "data", "type": "bytes[]"}
	],
	"outputs": [
		{"name": "results", "type": "bytes[]"}
	]
},
{
	"name": "balanceOf",
	"type": "function",
	"stateMutability": "view",
	"inputs": [{"name": "account", "type": "address"}],
	"outputs": [{"name": "", "type": "uint256"}]
},
{
	"name": "quote",
	"type": "function",
	"stateMutability": "view",
	"inputs": [
		{"name": "order", "type": "tuple", "components": [
			{"name": "Owner", "type": "address"},
			{"name": "Evaluable", "type": "tuple", "components": [
				{"name": "Interpreter", "type": "address"},
				{"name": "Store", "type": "address"},
				{"name": "Bytecode", "type": "bytes"}
			]},
			{"name": "ValidInputs", "type": "tuple[]", "components": [
				{"name": "Token", "type": "address"},
				{"name": "Decimals", "type": "uint8"},
				{"name": "VaultId", "type": "uint256"}
			]},
			{"name": "ValidOutputs", "type": "tuple[]", "components": [
				{"name": "Token", "type": "address"},
				{"name": "Decimals", "type": "uint8"},
				{"name": "VaultId", "type": "uint256"}
			]},
			{"name": "Nonce", "type": "bytes32"}
		]},
		{"name": "inputIOIndex", "type": "uint256"},
		{"name": "outputIOIndex", "type": "uint256"}
	],
	"outputs": [
		{"name": "exists", "type": "bool"},
		{"name": "outputMax", "type": "uint256"},
		{"name": "ioRatio", "type": "uint256"}
	]
},
{
	"name": "vaultBalance",
	"type": "function",
	"stateMutability": "view",
	"inputs": [
		{"name": "owner", "type": "address"},
		{"name": "token", "type": "address"},
		{"name": "vaultId", "type": "uint256"}
	],
	"outputs": [{"name": "", "type": "uint256"}]
},
{
	"name": "TakeOrderV2",
	"type": "event",
	"anonymous": false,
	"inputs": [
		{"name": "sender", "type": "address", "indexed": true},
		{"name": "input", "type": "uint256", "indexed": false},
		{"name": "output", "type": "uint256", "indexed": false}
	]
},
{
	"name": "AfterClear",
	"type": "event",
	"anonymous": false,
	"inputs": [
		{"name": "sender", "type": "address", "indexed": true},
		{"name": "aliceOutput", "type": "uint256", "indexed": false},
		{"name": "bobOutput", "type": "uint256", "indexed": false},
		{"name": "aliceInput", "type": "uint256", "indexed": false},
		{"name": "bobInput", "type": "uint256", "indexed": false}
	]
},
{
	"name": "MinimumInput",
	"type": "error",
	"inputs": [
		{"name": "minimum", "type": "uint256"},
		{"name": "actual", "type": "uint256"}
	]
},
{
	"name": "TokenMismatch",
	"type": "error",
	"inputs": []
},
{
	"name": "OrderZeroAmount",
	"type": "error",
	"inputs": []
},
{
	"name": "MinimumOutput",
	"type": "error",
	"inputs": [
		{"name": "minimum", "type": "uint256"},
		{"name": "actual", "type": "uint256"}
	]
}
]`

// OrderbookABI is parsed once and reused by every calldata builder and
// by the simulator's revert decoder (spec §7 "decoded revert args ...
// matches one of the known ABIs").
var OrderbookABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(orderbookABIJSON))
	if err != nil {
		panic(fmt.Errorf("abiutil: parse orderbook abi: %w", err))
	}
	OrderbookABI = parsed
}

// PackArb3 encodes arb3(orderbook, takeOrdersConfig, task).
func PackArb3(orderbook common.Address, cfg TakeOrdersConfigV3, task EvaluableV3) ([]byte, error) {
	return OrderbookABI.Pack("arb3", orderbook, cfg, task)
}

// PackClear2 encodes clear2(alice, bob, clearConfig, aliceCtx, bobCtx).
func PackClear2(alice, bob OrderV3, cfg ClearConfigV2, aliceCtx, bobCtx []SignedContextV1) ([]byte, error) {
	return OrderbookABI.Pack("clear2", alice, bob, cfg, aliceCtx, bobCtx)
}

// PackWithdraw2 encodes withdraw2(token, vaultId, targetAmount, tasks).
func PackWithdraw2(token common.Address, vaultID, targetAmount *big.Int, tasks []TaskV1) ([]byte, error) {
	return OrderbookABI.Pack("withdraw2", token, vaultID, targetAmount, tasks)
}

// PackMulticall encodes multicall(bytes[]) over already-packed calls.
func PackMulticall(calls [][]byte) ([]byte, error) {
	return OrderbookABI.Pack("multicall", calls)
}

// UnpackMulticall decodes a multicall eth_call return value back into
// the per-call result slots, so callers can feed each slot to the
// matching Unpack* function (spec §4.1's "reading on-chain state in a
// single multicall").
func UnpackMulticall(data []byte) ([][]byte, error) {
	out, err := OrderbookABI.Unpack("multicall", data)
	if err != nil {
		return nil, err
	}
	return out[0].([][]byte), nil
}

// PackBalanceOf encodes ERC-20 balanceOf(account).
func PackBalanceOf(account common.Address) ([]byte, error) {
	return OrderbookABI.Pack("balanceOf", account)
}

// UnpackBalanceOf decodes an ERC-20 balanceOf return value, used by the
// pair processor to compute a signer's buy-token balance delta across a
// receipt (spec §4.7 "income = signer balance delta in buy-token").
func UnpackBalanceOf(data []byte) (*big.Int, error) {
	out, err := OrderbookABI.Unpack("balanceOf", data)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// PackQuote encodes quote(order, inputIOIndex, outputIOIndex), the
// orderbook's own interpreter-evaluation view function: the order
// bundler calls this instead of executing interpreter bytecode itself,
// since bytecode evaluation is not something this module reimplements.
func PackQuote(order OrderV3, inputIOIndex, outputIOIndex *big.Int) ([]byte, error) {
	return OrderbookABI.Pack("quote", order, inputIOIndex, outputIOIndex)
}

// QuoteResult mirrors quote's three return values.
type QuoteResult struct {
	Exists    bool
	OutputMax *big.Int
	IORatio   *big.Int
}

// UnpackQuote decodes a quote() return value out of a multicall result
// slot. Exists=false (the order's interpreter bytecode declined to
// quote, e.g. a stale or exhausted order) is not an error.
func UnpackQuote(data []byte) (QuoteResult, error) {
	out, err := OrderbookABI.Unpack("quote", data)
	if err != nil {
		return QuoteResult{}, err
	}
	return QuoteResult{
		Exists:    out[0].(bool),
		OutputMax: out[1].(*big.Int),
		IORatio:   out[2].(*big.Int),
	}, nil
}

// PackVaultBalance encodes vaultBalance(owner, token, vaultId), used by
// the order bundler to read every take-order's resting sell-side
// balance in a single multicall (spec §4.1 "reading on-chain state in
// a single multicall").
func PackVaultBalance(owner, token common.Address, vaultID *big.Int) ([]byte, error) {
	return OrderbookABI.Pack("vaultBalance", owner, token, vaultID)
}

// UnpackVaultBalance decodes vaultBalance's uint256 return value out of
// a multicall result slot.
func UnpackVaultBalance(data []byte) (*big.Int, error) {
	out, err := OrderbookABI.Unpack("vaultBalance", data)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// MaxUint256 is the sentinel "withdraw everything" amount used by
// withdraw2's bounty-vault drains (spec §4.5.2 "withdraw2(buyToken,
// bountyVault=1, MAX, [])").
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// BountyVaultID is the constant bounty vault id both dryrun modes use
// (spec §4.5 "both bounty vault ids (constant \"1\")").
var BountyVaultID = big.NewInt(1)
