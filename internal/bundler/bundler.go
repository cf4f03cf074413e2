// Package bundler implements C8: groups raw order records into
// per-pair bundles and attaches current quote ratios and max outputs
// read from chain in a single multicall. Grounded on spec §4.1
// directly; there is no teacher analogue (the teacher never groups
// orders, it hardcodes two pools), so the shape follows the spec's own
// algorithm, built from abiutil's calldata builders and eth.Client's
// CallContract the way the teacher's internal/arbitrage/pools.go reads
// on-chain state.
package bundler

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"

	ethereum "github.com/ethereum/go-ethereum"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/bigmath"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/types"
)

// Options controls the two C8 modes plus the optional adversarial-order
// shuffle (spec §4.1 "Optionally shuffles the output").
type Options struct {
	Bundle  bool
	Shuffle bool
	Rand    *rand.Rand // nil disables Shuffle even if Options.Shuffle is true
}

// ExpandTakeOrders derives one TakeOrder per (outputIOIndex,
// inputIOIndex) combination of each order's valid sides, excluding a
// combination whose input and output token are identical (an order
// cannot take itself in the same token).
func ExpandTakeOrders(orders []*types.Order) []*types.TakeOrder {
	var tos []*types.TakeOrder
	for _, o := range orders {
		for outIdx, out := range o.Outputs {
			for inIdx, in := range o.Inputs {
				if out.Token == in.Token {
					continue
				}
				tos = append(tos, &types.TakeOrder{
					Order:         o,
					InputIOIndex:  inIdx,
					OutputIOIndex: outIdx,
				})
			}
		}
	}
	return tos
}

// Build groups the raw order set into BundledPairs and attaches
// quote.ratio/quote.maxOutput per take-order via one on-chain
// multicall, per spec §4.1. Returns BPs in stable first-encounter
// order; Options.Shuffle reorders the result afterward so iteration
// order in the round runner is not predictable to an adversary
// watching prior rounds.
func Build(ctx context.Context, client *eth.Client, orders []*types.Order, opts Options) ([]*types.BundledPair, error) {
	tos := ExpandTakeOrders(orders)
	if len(tos) == 0 {
		return nil, nil
	}

	if err := attachQuotes(ctx, client, tos); err != nil {
		return nil, fmt.Errorf("bundler: attach quotes: %w", err)
	}

	live := make([]*types.TakeOrder, 0, len(tos))
	for _, to := range tos {
		if to.Quote.MaxOutput != nil && to.Quote.MaxOutput.Sign() > 0 {
			live = append(live, to)
		}
	}
	if len(live) == 0 {
		return nil, nil
	}

	var bps []*types.BundledPair
	if opts.Bundle {
		bps = groupBundled(live)
	} else {
		bps = groupUnbundled(live)
	}

	if opts.Shuffle && opts.Rand != nil {
		opts.Rand.Shuffle(len(bps), func(i, j int) { bps[i], bps[j] = bps[j], bps[i] })
	}
	return bps, nil
}

// groupBundled implements bundle-on: one BP per (orderbook, sellToken,
// buyToken) triple, TakeOrders collecting every matching TO. Tie-break
// across equal bundles is stable by first encounter (spec §4.1).
func groupBundled(tos []*types.TakeOrder) []*types.BundledPair {
	index := map[types.PairKey]int{}
	var bps []*types.BundledPair
	for _, to := range tos {
		buy, sell := to.BuyToken(), to.SellToken()
		key := types.PairKey{Orderbook: to.Order.OrderbookAddr, SellToken: sell.Token, BuyToken: buy.Token}
		i, ok := index[key]
		if !ok {
			i = len(bps)
			index[key] = i
			bps = append(bps, &types.BundledPair{
				Orderbook:    to.Order.OrderbookAddr,
				SellToken:    sell.Token,
				SellDecimals: sell.Decimals,
				BuyToken:     buy.Token,
				BuyDecimals:  buy.Decimals,
			})
		}
		bps[i].TakeOrders = append(bps[i].TakeOrders, to)
	}
	return bps
}

// groupUnbundled implements bundle-off: one BP per individual TO.
func groupUnbundled(tos []*types.TakeOrder) []*types.BundledPair {
	bps := make([]*types.BundledPair, 0, len(tos))
	for _, to := range tos {
		buy, sell := to.BuyToken(), to.SellToken()
		bps = append(bps, &types.BundledPair{
			Orderbook:    to.Order.OrderbookAddr,
			SellToken:    sell.Token,
			SellDecimals: sell.Decimals,
			BuyToken:     buy.Token,
			BuyDecimals:  buy.Decimals,
			TakeOrders:   []*types.TakeOrder{to},
		})
	}
	return bps
}

// attachQuotes reads vaultBalance and quote for every take-order in a
// single multicall eth_call and fills in Quote.MaxOutput/Quote.Ratio,
// both already scaled to 18-decimal fixed point regardless of the
// underlying token's decimals (spec §3 BP invariant). A take-order
// whose quote() reports !exists is left with a nil Quote.MaxOutput and
// is filtered out by the zero-balance discard in Build, matching spec
// §4.1's "missing quotes mark the TO skipped."
func attachQuotes(ctx context.Context, client *eth.Client, tos []*types.TakeOrder) error {
	calls := make([][]byte, 0, 2*len(tos))
	for _, to := range tos {
		sell := to.SellToken()
		balCall, err := abiutil.PackVaultBalance(to.Order.Owner, sell.Token, sell.VaultID)
		if err != nil {
			return fmt.Errorf("pack vaultBalance: %w", err)
		}
		quoteCall, err := abiutil.PackQuote(toOrderV3(to.Order), big.NewInt(int64(to.InputIOIndex)), big.NewInt(int64(to.OutputIOIndex)))
		if err != nil {
			return fmt.Errorf("pack quote: %w", err)
		}
		calls = append(calls, balCall, quoteCall)
	}

	packed, err := abiutil.PackMulticall(calls)
	if err != nil {
		return fmt.Errorf("pack multicall: %w", err)
	}

	orderbook := tos[0].Order.OrderbookAddr
	raw, err := client.CallContract(ctx, ethereum.CallMsg{To: &orderbook, Data: packed}, nil)
	if err != nil {
		return fmt.Errorf("multicall eth_call: %w", err)
	}

	results, err := abiutil.UnpackMulticall(raw)
	if err != nil {
		return fmt.Errorf("unpack multicall: %w", err)
	}
	if len(results) != 2*len(tos) {
		return fmt.Errorf("multicall returned %d results, expected %d", len(results), 2*len(tos))
	}

	for i, to := range tos {
		sell := to.SellToken()
		balance, err := abiutil.UnpackVaultBalance(results[2*i])
		if err != nil {
			return fmt.Errorf("unpack vaultBalance: %w", err)
		}
		if balance.Sign() == 0 {
			continue // zero balance: leave Quote unset, discarded by the caller
		}
		quoted, err := abiutil.UnpackQuote(results[2*i+1])
		if err != nil {
			return fmt.Errorf("unpack quote: %w", err)
		}
		if !quoted.Exists {
			continue
		}
		to.Quote = types.Quote{
			MaxOutput: bigmath.Scale18(balance, sell.Decimals),
			Ratio:     quoted.IORatio,
		}
	}
	return nil
}

func toOrderV3(o *types.Order) abiutil.OrderV3 {
	var nonce [32]byte
	copy(nonce[:], o.ID.Bytes())
	return abiutil.OrderV3{
		Owner:        o.Owner,
		Evaluable:    abiutil.EvaluableV3{Bytecode: o.Evaluable},
		ValidInputs:  toIOV2(o.Inputs),
		ValidOutputs: toIOV2(o.Outputs),
		Nonce:        nonce,
	}
}

func toIOV2(ios []types.IO) []abiutil.IOV2 {
	out := make([]abiutil.IOV2, 0, len(ios))
	for _, io := range ios {
		out = append(out, abiutil.IOV2{Token: io.Token, Decimals: io.Decimals, VaultId: io.VaultID})
	}
	return out
}
