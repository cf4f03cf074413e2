// Package intraorderbook implements C5: a two-sided clear between a
// BundledPair's resting order ("Alice") and an opposing order on the
// same orderbook ("Bob"), probed with the same two-stage simulation
// strategy as C4 (spec §4.5). Grounded on abiutil's clear2/withdraw2
// calldata builders and the same gas-bounty headroom technique C4
// uses, since the spec explicitly says "two-stage simulation mirrors
// §4.4.7."
package intraorderbook

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/bigmath"
	"github.com/rainclear/clearing-core/internal/simulate"
	"github.com/rainclear/clearing-core/internal/types"
)

// GasBountyHeadroomBps mirrors routeprocessor.GasBountyHeadroomBps;
// kept as a local constant rather than an import to avoid coupling C5
// to C4's package for an unrelated reason (spec names them as two
// independent dryrun components that happen to share a numeric
// constant, not a shared implementation).
const GasBountyHeadroomBps = 300

// Params bundles the inputs spec §4.5 names.
type Params struct {
	Alice    *types.TakeOrder
	Opposing *types.TakeOrder // "Bob"

	GasPrice           *big.Int
	EthPrice18         *big.Int
	GasCoveragePercent int64

	OrderbookAddress common.Address
	SignerAddress    common.Address
}

// Dryrun is C5.
type Dryrun struct {
	sim *simulate.RPCSimulator
}

func New(sim *simulate.RPCSimulator) *Dryrun {
	return &Dryrun{sim: sim}
}

// preconditionsOK checks spec §4.5's three preconditions before any
// simulation is attempted: distinct order id, distinct owner, and
// price overlap (ratio product < 1e18).
func preconditionsOK(alice, bob *types.TakeOrder) bool {
	if alice.Order.ID == bob.Order.ID {
		return false
	}
	if alice.Order.Owner == bob.Order.Owner {
		return false
	}
	product := bigmath.WadMul(alice.Quote.Ratio, bob.Quote.Ratio)
	return product.Cmp(bigmath.Wad) < 0
}

// Run executes the spec §4.5 procedure: preconditions check, multicall
// assembly of clear2 + withdraw2(buy) + withdraw2(sell,[task]), and
// two-stage simulation mirroring C4's headroom-then-exact pattern.
func (d *Dryrun) Run(ctx context.Context, p Params) (*types.DryrunOutcome, error) {
	if !preconditionsOK(p.Alice, p.Opposing) {
		return &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity}, nil
	}

	aliceOrder := toOrderV3(p.Alice.Order)
	bobOrder := toOrderV3(p.Opposing.Order)

	clearCfg := abiutil.ClearConfigV2{
		AliceInputIOIndex:  big.NewInt(int64(p.Alice.InputIOIndex)),
		AliceOutputIOIndex: big.NewInt(int64(p.Alice.OutputIOIndex)),
		BobInputIOIndex:    big.NewInt(int64(p.Opposing.InputIOIndex)),
		BobOutputIOIndex:   big.NewInt(int64(p.Opposing.OutputIOIndex)),
		AliceBountyVaultId: abiutil.BountyVaultID,
		BobBountyVaultId:   abiutil.BountyVaultID,
	}

	buyToken := p.Alice.BuyToken()
	sellToken := p.Alice.SellToken()

	calldata, err := assembleMulticall(aliceOrder, bobOrder, clearCfg, buyToken.Token, sellToken.Token, nil)
	if err != nil {
		return nil, fmt.Errorf("intraorderbook: assemble stage1: %w", err)
	}

	to := p.OrderbookAddress
	stage1Gas, simErr := d.sim.EstimateGas(ctx, simulate.RawCall{From: p.SignerAddress, To: &to, Data: calldata})
	if simErr != nil {
		if simErr.Reason == types.FailNoWalletFund {
			return nil, simErr
		}
		return &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity, NodeError: simErr.Err, ErrorSnapshot: simErr.Snapshot}, nil
	}

	finalGas := stage1Gas
	finalCalldata := calldata
	if p.GasCoveragePercent != 0 {
		gasCostWei := new(big.Int).Mul(p.GasPrice, new(big.Int).SetUint64(stage1Gas))
		covered := bigmath.PercentOf(gasCostWei, p.GasCoveragePercent)
		headroom := bigmath.BasisHeadroom(covered, GasBountyHeadroomBps)

		calldata2, err := assembleMulticall(aliceOrder, bobOrder, clearCfg, buyToken.Token, sellToken.Token, headroom)
		if err != nil {
			return nil, fmt.Errorf("intraorderbook: assemble stage2: %w", err)
		}
		stage2Gas, simErr := d.sim.EstimateGas(ctx, simulate.RawCall{From: p.SignerAddress, To: &to, Data: calldata2})
		if simErr != nil {
			if simErr.Reason == types.FailNoWalletFund {
				return nil, simErr
			}
			return &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity, NodeError: simErr.Err, ErrorSnapshot: simErr.Snapshot}, nil
		}

		finalCalldata, err = assembleMulticall(aliceOrder, bobOrder, clearCfg, buyToken.Token, sellToken.Token, covered)
		if err != nil {
			return nil, fmt.Errorf("intraorderbook: assemble final: %w", err)
		}
		finalGas = stage2Gas
	}

	gasCostWei := new(big.Int).Mul(p.GasPrice, new(big.Int).SetUint64(finalGas))
	gasCostInToken := bigmath.Scale18To(bigmath.WadMul(bigmath.Scale18(gasCostWei, 18), p.EthPrice18), buyToken.Decimals)

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		To:       &to,
		Data:     finalCalldata,
		Gas:      finalGas,
		GasPrice: p.GasPrice,
		Value:    big.NewInt(0),
	})

	return &types.DryrunOutcome{
		Success:        true,
		RawTx:          tx,
		MaxInput:       p.Alice.Quote.MaxOutput,
		GasCostInToken: gasCostInToken,
		HasPriceMatch:  true,
	}, nil
}

// assembleMulticall packs clear2 + withdraw2(buy) + withdraw2(sell,
// [task]) per spec §4.5.1-3. minBounty nil means the zero-bounty task
// used on stage 1; non-nil embeds the coverage-gated bounty bytecode.
func assembleMulticall(alice, bob abiutil.OrderV3, cfg abiutil.ClearConfigV2, buyToken, sellToken common.Address, minBounty *big.Int) ([]byte, error) {
	clearCall, err := abiutil.PackClear2(alice, bob, cfg, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("pack clear2: %w", err)
	}

	withdrawBuy, err := abiutil.PackWithdraw2(buyToken, abiutil.BountyVaultID, abiutil.MaxUint256, nil)
	if err != nil {
		return nil, fmt.Errorf("pack withdraw2(buy): %w", err)
	}

	sellTask := abiutil.TaskV1{}
	if minBounty != nil && minBounty.Sign() > 0 {
		sellTask.Evaluable.Bytecode = minBounty.Bytes()
	}
	withdrawSell, err := abiutil.PackWithdraw2(sellToken, abiutil.BountyVaultID, abiutil.MaxUint256, []abiutil.TaskV1{sellTask})
	if err != nil {
		return nil, fmt.Errorf("pack withdraw2(sell): %w", err)
	}

	return abiutil.PackMulticall([][]byte{clearCall, withdrawBuy, withdrawSell})
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
