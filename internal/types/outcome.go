package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FailReason is a dryrun's typed failure classification (spec §3 Dryrun
// Outcome, §9 "typed halt-reason variants; never string-match").
type FailReason string

const (
	FailNoRoute       FailReason = "NoRoute"
	FailNoOpportunity FailReason = "NoOpportunity"
	FailNoWalletFund  FailReason = "NoWalletFund"
)

// ErrorSnapshot captures everything the spec's §7 error-handling design
// requires: a short message, the error's classification, decoded revert
// args when available, and a gas diagnostic when a receipt exists.
type ErrorSnapshot struct {
	Message      string
	Name         string
	Details      string
	DecodedArgs  map[string]any
	GasDiagnostic string // "account ran out of gas" / "transaction ran out of specified gas" / ""
	NodeError    bool
	Severity     Severity
}

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// DryrunOutcome is the result of one C4/C5 probe at a given input size.
type DryrunOutcome struct {
	Success bool

	// success fields
	RawTx           *types.Transaction
	MaxInput        *big.Int // sell-token decimal units
	Price           *big.Int // 18-decimal market price observed
	RouteVisual     string
	GasCostInToken  *big.Int // buy-token decimal units
	EstimatedProfit *big.Int // buy-token decimal units
	OppBlockNumber  uint64

	// failure fields
	Reason        FailReason
	NodeError     error
	ErrorSnapshot *ErrorSnapshot
	SpanAttrs     map[string]any
	HasPriceMatch bool
}

// HaltReason enumerates every terminal/non-terminal condition a Pair
// Processor can surface, per spec §4.7. Kept as a closed string enum
// (not free-form errors) so callers can switch exhaustively.
type HaltReason string

const (
	HaltNone                    HaltReason = ""
	HaltNoWalletFund            HaltReason = "NoWalletFund"
	HaltFailedToGetVaultBalance HaltReason = "FailedToGetVaultBalance"
	HaltFailedToGetGasPrice     HaltReason = "FailedToGetGasPrice"
	HaltFailedToGetEthPrice     HaltReason = "FailedToGetEthPrice"
	HaltFailedToGetPools        HaltReason = "FailedToGetPools"
	HaltNoRoute                 HaltReason = "NoRoute"
	HaltNoOpportunity           HaltReason = "NoOpportunity"
	HaltTxFailed                HaltReason = "TxFailed"
	HaltTxMineFailed            HaltReason = "TxMineFailed"
	HaltUnexpectedError         HaltReason = "UnexpectedError"
)

// PairStatus is the outward-facing status of a Pair Report.
type PairStatus string

const (
	StatusEmptyVault       PairStatus = "EmptyVault"
	StatusNoOpportunity    PairStatus = "NoOpportunity"
	StatusFoundOpportunity PairStatus = "FoundOpportunity"
)

// PairReport is the per-pair outcome a round emits, per spec §3.
type PairReport struct {
	Status    PairStatus
	TokenPair string
	BuyToken  common.Address
	SellToken common.Address

	TxURL         string
	ClearedAmount *big.Int
	Income        *big.Int
	NetProfit     *big.Int
	GasCost       *big.Int
	ClearedOrders []common.Hash

	HaltReason HaltReason
	Snapshot   *ErrorSnapshot
}

// RoundReport aggregates every PairReport produced in one pass of the
// Round Runner, plus round-level bookkeeping (supplemented in
// SPEC_FULL.md — no change to the per-pair contract).
type RoundReport struct {
	RoundIndex int
	StartedAt  int64
	EndedAt    int64
	HaltReason HaltReason
	Pairs      []*PairReport
}
