// Package routeprocessor implements C4, the Route-Processor Dryrun:
// builds an arb3 clearing calldata against the best route C1 can find
// for a bundled pair at a candidate input size, and probes feasibility
// with C3 at two stages (headroom, then exact gas-bounty coverage).
// Grounded on spec §4.4 directly; there is no single teacher analogue
// since the teacher never submits a real clearing tx, but the
// two-stage "estimate, then lock task.bytecode" shape follows the
// same gas-estimate-then-pad technique as
// internal/arbitrage/executor.go's getRevertReason/EstimateGas path,
// now split across two calldata variants instead of one.
package routeprocessor

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/bigmath"
	"github.com/rainclear/clearing-core/internal/quote"
	"github.com/rainclear/clearing-core/internal/simulate"
	"github.com/rainclear/clearing-core/internal/types"
)

// PriceHeadroomBps is the 2% block-lag headroom spec §4.4.4 applies to
// the first-hop bundle-mode profit-maximisation filter.
const PriceHeadroomBps = 200

// GasBountyHeadroomBps is the 1.03x headroom spec §4.4.7 applies to the
// gas bounty simulated in stage 2, before the exact bounty is locked
// into the final calldata.
const GasBountyHeadroomBps = 300

// Params bundles the inputs spec §4.4 names for one dryrun invocation.
type Params struct {
	BP                     *types.BundledPair
	FromToken, ToToken     common.Address
	MaxInput               *big.Int // sell-token decimal units
	GasPrice               *big.Int // wei
	EthPrice18             *big.Int // 18-decimal, buy-token per native
	Mode                   types.Mode
	MaxRatio               bool
	GasCoveragePercent     int64
	IsFirstHop             bool // first iteration of a bundle-mode dryrun; only then may the 2% filter mutate BP
	SignerAddress          common.Address
	ArbContractAddress     common.Address
	RouteProcessorAddress  common.Address
	RouteCodeVersion       types.RouteCodeVersion
}

// Dryrun is C4. fetcher supplies C1; sim supplies C3.
type Dryrun struct {
	fetcher quote.Fetcher
	sim     *simulate.RPCSimulator
	chainID *big.Int
	signer  gethtypes.Signer
}

func New(fetcher quote.Fetcher, sim *simulate.RPCSimulator, chainID *big.Int) *Dryrun {
	return &Dryrun{
		fetcher: fetcher,
		sim:     sim,
		chainID: chainID,
		signer:  gethtypes.LatestSignerForChainID(chainID),
	}
}

// Run executes the spec §4.4 procedure end to end.
func (d *Dryrun) Run(ctx context.Context, p Params) (*types.DryrunOutcome, error) {
	// 1. Query C1 for best route across pool map at maxInput.
	route, err := d.fetcher.Quote(ctx, p.FromToken, p.ToToken, p.MaxInput, nil)
	if err != nil {
		return &types.DryrunOutcome{Success: false, Reason: types.FailNoRoute}, nil
	}

	// 2. marketPrice = amountOut_18 * 1e18 / maxInput_18.
	maxInput18 := bigmath.Scale18(p.MaxInput, p.BP.SellDecimals)
	amountOut18 := bigmath.Scale18(route.AmountOut, p.BP.BuyDecimals)
	marketPrice := bigmath.WadDiv(amountOut18, maxInput18)

	bp := p.BP
	hasPriceMatch := true

	// 3. If marketPrice < BP.takeOrders[0].quote.ratio, fail NoOpportunity.
	if len(bp.TakeOrders) == 0 {
		return &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity, HasPriceMatch: false}, nil
	}
	if marketPrice.Cmp(bp.TakeOrders[0].Quote.Ratio) < 0 {
		return &types.DryrunOutcome{
			Success:       false,
			Reason:        types.FailNoOpportunity,
			HasPriceMatch: false,
			SpanAttrs:     map[string]any{"details.reason": "ratio greater than market price"},
		}, nil
	}

	// 4. First hop of a bundle-mode profit-maximisation run: shrink BP to
	// ratio <= marketPrice * 1.02. No re-entry at later hops (spec §3/§9).
	if p.IsFirstHop && p.Mode == types.ModeBundle && !p.MaxRatio {
		ceiling := bigmath.BasisHeadroom(marketPrice, PriceHeadroomBps)
		bp = bp.FilterByRatio(ceiling)
		if len(bp.TakeOrders) == 0 {
			return &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity, HasPriceMatch: true}, nil
		}
	}

	orders := p.Mode.Expand(bp)

	maximumIORatio := new(big.Int).Set(abiutil.MaxUint256)
	if !p.MaxRatio {
		maximumIORatio = marketPrice
	}

	routeData, err := abiutil.EncodeRouteData(p.RouteCodeVersion, route.RouteCode)
	if err != nil {
		return nil, fmt.Errorf("routeprocessor: encode route data: %w", err)
	}

	cfg := abiutil.TakeOrdersConfigV3{
		MinimumInput:   big.NewInt(1),
		MaximumInput:   p.MaxInput,
		MaximumIORatio: maximumIORatio,
		Orders:         toTakeOrderConfigs(orders),
		Data:           routeData,
	}

	// 5./6. Stage 1: zero-bounty task, simulate.
	zeroTask := abiutil.EvaluableV3{}
	calldata, err := abiutil.PackArb3(p.ArbContractAddress, cfg, zeroTask)
	if err != nil {
		return nil, fmt.Errorf("routeprocessor: pack arb3: %w", err)
	}

	to := p.RouteProcessorAddress
	stage1Gas, simErr := d.sim.EstimateGas(ctx, simulate.RawCall{From: p.SignerAddress, To: &to, Data: calldata})
	if simErr != nil {
		if simErr.Reason == types.FailNoWalletFund {
			return nil, simErr
		}
		return &types.DryrunOutcome{
			Success:       false,
			Reason:        simErr.Reason,
			NodeError:     simErr.Err,
			ErrorSnapshot: simErr.Snapshot,
			HasPriceMatch: hasPriceMatch,
		}, nil
	}

	finalGas := stage1Gas
	finalCalldata := calldata
	if p.GasCoveragePercent != 0 {
		gasCostWei := new(big.Int).Mul(p.GasPrice, new(big.Int).SetUint64(stage1Gas))

		headroomBounty := gasBounty(gasCostWei, p.GasCoveragePercent, GasBountyHeadroomBps)
		headroomTask := abiutil.EvaluableV3{Bytecode: encodeMinBounty(headroomBounty)}
		calldata2, err := abiutil.PackArb3(p.ArbContractAddress, cfg, headroomTask)
		if err != nil {
			return nil, fmt.Errorf("routeprocessor: pack arb3 stage2: %w", err)
		}
		stage2Gas, simErr := d.sim.EstimateGas(ctx, simulate.RawCall{From: p.SignerAddress, To: &to, Data: calldata2})
		if simErr != nil {
			if simErr.Reason == types.FailNoWalletFund {
				return nil, simErr
			}
			return &types.DryrunOutcome{
				Success:       false,
				Reason:        simErr.Reason,
				NodeError:     simErr.Err,
				ErrorSnapshot: simErr.Snapshot,
				HasPriceMatch: hasPriceMatch,
			}, nil
		}

		exactBounty := bigmath.PercentOf(gasCostWei, p.GasCoveragePercent)
		exactTask := abiutil.EvaluableV3{Bytecode: encodeMinBounty(exactBounty)}
		finalCalldata, err = abiutil.PackArb3(p.ArbContractAddress, cfg, exactTask)
		if err != nil {
			return nil, fmt.Errorf("routeprocessor: pack arb3 final: %w", err)
		}
		finalGas = stage2Gas
	}

	gasCostWei := new(big.Int).Mul(p.GasPrice, new(big.Int).SetUint64(finalGas))
	gasCostInToken := bigmath.Scale18To(bigmath.WadMul(bigmath.Scale18(gasCostWei, 18), p.EthPrice18), bp.BuyDecimals)

	estimatedProfit := new(big.Int).Sub(route.AmountOut, gasCostInToken)

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		To:       &to,
		Data:     finalCalldata,
		Gas:      finalGas,
		GasPrice: p.GasPrice,
		Value:    big.NewInt(0),
	})

	return &types.DryrunOutcome{
		Success:         true,
		RawTx:           tx,
		MaxInput:        p.MaxInput,
		Price:           marketPrice,
		RouteVisual:     route.RouteVisual,
		GasCostInToken:  gasCostInToken,
		EstimatedProfit: estimatedProfit,
		HasPriceMatch:   hasPriceMatch,
	}, nil
}

// gasBounty computes gasCost * coverage / 100 * (10000 + headroomBps) / 10000,
// the headroom-padded minimum bounty simulated in stage 2 (spec §4.4.7).
func gasBounty(gasCostWei *big.Int, coveragePercent, headroomBps int64) *big.Int {
	covered := bigmath.PercentOf(gasCostWei, coveragePercent)
	return bigmath.BasisHeadroom(covered, headroomBps)
}

// encodeMinBounty is a placeholder on-chain bytecode encoding for "the
// evaluable enforces a minimum bounty of at least minBounty". The real
// interpreter bytecode grammar is orderbook-interpreter-specific and
// out of scope for this module (spec's Non-goals exclude the
// interpreter bytecode compiler); this module only needs a
// deterministic, distinguishable placeholder so stage-1 and stage-2
// calldata differ in the field that actually changes.
func encodeMinBounty(minBounty *big.Int) []byte {
	if minBounty == nil || minBounty.Sign() == 0 {
		return nil
	}
	return minBounty.Bytes()
}

func toTakeOrderConfigs(orders []*types.TakeOrder) []abiutil.TakeOrderConfigV3 {
	out := make([]abiutil.TakeOrderConfigV3, 0, len(orders))
	for _, to := range orders {
		out = append(out, abiutil.TakeOrderConfigV3{
			Order:         toOrderV3(to.Order),
			InputIOIndex:  big.NewInt(int64(to.InputIOIndex)),
			OutputIOIndex: big.NewInt(int64(to.OutputIOIndex)),
		})
	}
	return out
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
