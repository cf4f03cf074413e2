// Package abiutil builds and packs the calldata for every contract
// function the clearing core submits: arb3, multicall, clear2,
// withdraw2, and the orderbook ABI used to decode revert data.
// Grounded on the teacher's internal/arbitrage/builder.go, which packs
// a single router function (swapExactTokensForTokens) with an inline
// JSON ABI string and go-ethereum's accounts/abi package — the same
// technique, generalized to the orderbook's richer tuple-typed
// functions (§6 "Contract ABIs consumed").
package abiutil

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// IOV2 mirrors the on-chain IO struct: a vault-scoped token leg of an
// order (spec §3 Order "one or more inputs and outputs each describing
// a token address, decimals, and vault id").
type IOV2 struct {
	Token    common.Address
	Decimals uint8
	VaultId  *big.Int
}

// EvaluableV3 is the on-chain executable payload attached to an order
// or embedded as a post-clear task (spec §3 "evaluable", §4.4.5
// "task.bytecode").
type EvaluableV3 struct {
	Interpreter common.Address
	Store       common.Address
	Bytecode    []byte
}

// OrderV3 mirrors the on-chain order record.
type OrderV3 struct {
	Owner        common.Address
	Evaluable    EvaluableV3
	ValidInputs  []IOV2
	ValidOutputs []IOV2
	Nonce        [32]byte
}

// SignedContextV1 is an optional signer-attested context blob; the
// clearing core never needs to attach one itself but the ABI requires
// the argument.
type SignedContextV1 struct {
	Signer    common.Address
	Context   []*big.Int
	Signature []byte
}

// TaskV1 pairs an evaluable with signed context, used by withdraw2's
// post-withdraw hook (spec §4.5.3).
type TaskV1 struct {
	Evaluable     EvaluableV3
	SignedContext []SignedContextV1
}

// TakeOrderConfigV3 is one order entry inside a takeOrders call.
type TakeOrderConfigV3 struct {
	Order         OrderV3
	InputIOIndex  *big.Int
	OutputIOIndex *big.Int
	SignedContext []SignedContextV1
}

// TakeOrdersConfigV3 is the arb3/takeOrders argument bundle (spec
// §4.4.5).
type TakeOrdersConfigV3 struct {
	MinimumInput   *big.Int
	MaximumInput   *big.Int
	MaximumIORatio *big.Int
	Orders         []TakeOrderConfigV3
	Data           []byte
}

// ClearConfigV2 names the IO indices and bounty vaults for a two-order
// clear (spec §4.5.1).
type ClearConfigV2 struct {
	AliceInputIOIndex  *big.Int
	AliceOutputIOIndex *big.Int
	BobInputIOIndex    *big.Int
	BobOutputIOIndex   *big.Int
	AliceBountyVaultId *big.Int
	BobBountyVaultId   *big.Int
}
