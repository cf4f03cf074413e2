// Package types holds the round-scoped data model shared by every
// component of the clearing core: orders, take-order records, bundled
// pairs, dryrun outcomes, and the reports a round emits.
//
// Grounded on internal/arbitrage/types.go in the teacher (Pool,
// PairPools, Price, Opportunity) — the same shape, generalized from a
// two-pool AMM comparison to an orderbook take-order bundle.
package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// IO describes one input or output side of an Order: the token, its
// decimals, and the vault id it is held in on the orderbook.
type IO struct {
	Token    common.Address
	Decimals uint8
	VaultID  *big.Int
}

// Order is the immutable on-chain order record a round is built from.
type Order struct {
	ID              common.Hash
	Owner           common.Address
	OrderbookAddr   common.Address
	Inputs          []IO
	Outputs         []IO
	Evaluable       []byte // ABI-encoded evaluable config used at clear time
}

// Quote is the current market position of a take-order: the owner's
// resting vault balance on the sell side (MaxOutput) and the minimum
// price the owner will accept (Ratio), both already scaled to
// 18-decimal fixed point regardless of the underlying token decimals.
type Quote struct {
	MaxOutput *big.Int // 18-decimal, sell-token units
	Ratio     *big.Int // 18-decimal price: buy-token per sell-token
}

// TakeOrder (TO) is one buy/sell direction extracted from an Order.
type TakeOrder struct {
	Order        *Order
	InputIOIndex int // index into Order.Inputs (buy side)
	OutputIOIndex int // index into Order.Outputs (sell side)
	Quote        Quote
}

func (t *TakeOrder) BuyToken() IO  { return t.Order.Inputs[t.InputIOIndex] }
func (t *TakeOrder) SellToken() IO { return t.Order.Outputs[t.OutputIOIndex] }

// BundledPair (BP) groups every TakeOrder sharing
// (orderbook, sellToken, buyToken). Invariant: TakeOrders is non-empty;
// enforced by the bundler, never by callers.
type BundledPair struct {
	Orderbook common.Address

	SellToken   common.Address
	SellDecimals uint8
	SellSymbol  string

	BuyToken    common.Address
	BuyDecimals uint8
	BuySymbol   string

	TakeOrders []*TakeOrder
}

// Clone returns a shallow copy of BP with an independent TakeOrders
// slice, so that the profit-maximisation filter in dryrun mode (spec
// §3, §4.4.4, §9) never mutates the round-owned original and never
// aliases between concurrent retries.
func (bp *BundledPair) Clone() *BundledPair {
	clone := *bp
	clone.TakeOrders = make([]*TakeOrder, len(bp.TakeOrders))
	copy(clone.TakeOrders, bp.TakeOrders)
	return &clone
}

// FilterByRatio returns a filtered clone containing only take-orders
// whose ratio is at most ceiling. Used once, at the first hop of a
// bundle-mode dryrun, per spec §3/§4.4.4/§9 (no re-entry at later hops).
func (bp *BundledPair) FilterByRatio(ceiling *big.Int) *BundledPair {
	clone := bp.Clone()
	filtered := clone.TakeOrders[:0]
	for _, to := range clone.TakeOrders {
		if to.Quote.Ratio.Cmp(ceiling) <= 0 {
			filtered = append(filtered, to)
		}
	}
	clone.TakeOrders = filtered
	return clone
}

// PairKey identifies a bundle by (orderbook, sellToken, buyToken).
type PairKey struct {
	Orderbook common.Address
	SellToken common.Address
	BuyToken  common.Address
}

func (bp *BundledPair) Key() PairKey {
	return PairKey{Orderbook: bp.Orderbook, SellToken: bp.SellToken, BuyToken: bp.BuyToken}
}
