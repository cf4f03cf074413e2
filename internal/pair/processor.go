// Package pair implements C7, the Pair Processor: the end-to-end
// per-pair orchestration spec §4.7 names as a state machine from Init
// through HaveBalance, HaveGas&EthPrice, HavePools, to an opportunity
// outcome, submission, and receipt analysis. Grounded on spec §4.7
// directly; wires together C1 (quote.Fetcher), C2 (gasoracle.Oracle),
// C4/C5 (routeprocessor/intraorderbook), C6 (sizer), and eth.Submitter,
// none of which the teacher composes into one flow since it never
// submits a real clearing transaction.
package pair

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/rainclear/clearing-core/internal/abiutil"
	"github.com/rainclear/clearing-core/internal/clear/intraorderbook"
	"github.com/rainclear/clearing-core/internal/clear/routeprocessor"
	"github.com/rainclear/clearing-core/internal/gasoracle"
	"github.com/rainclear/clearing-core/internal/quote"
	"github.com/rainclear/clearing-core/internal/simulate"
	"github.com/rainclear/clearing-core/internal/sizer"
	"github.com/rainclear/clearing-core/internal/telemetry"
	"github.com/rainclear/clearing-core/internal/types"
)

// PoolSource reports whether pools are already known for a pair, the
// HavePools state's check. *quote.Oracle implements this.
type PoolSource interface {
	HasPools(sellToken, buyToken common.Address) bool
}

// GasSource is the C2 contract the processor depends on. *gasoracle.Oracle
// implements this; tests substitute a canned fake instead of standing
// up a live eth.Client.
type GasSource interface {
	GasPrice(ctx context.Context) (*big.Int, error)
	EthPrice(ctx context.Context, buyToken common.Address, buyDecimals uint8, blockNum *big.Int, fetcher quote.Fetcher) (*big.Int, error)
}

// TxSubmitter is the signing/broadcast contract Process needs.
// *eth.Submitter implements this; tests substitute a canned fake so
// S1/S6 can be exercised without a live signer.
type TxSubmitter interface {
	Submit(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Transaction, error)
}

// ReceiptClient is the subset of *eth.Client Process needs after
// submission: polling for the mined receipt and reading the signer's
// buy-token balance for the income-delta calculation. Split out so
// tests can fake receipt/balance behavior instead of standing up a
// live node.
type ReceiptClient interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RouteDryrun is the C4 contract. *routeprocessor.Dryrun implements
// this.
type RouteDryrun interface {
	Run(ctx context.Context, p routeprocessor.Params) (*types.DryrunOutcome, error)
}

// IntraOrderbookDryrun is the C5 contract. *intraorderbook.Dryrun
// implements this.
type IntraOrderbookDryrun interface {
	Run(ctx context.Context, p intraorderbook.Params) (*types.DryrunOutcome, error)
}

// RevertSimulator is the C3 contract classifyRevert needs.
// *simulate.RPCSimulator implements this.
type RevertSimulator interface {
	EstimateGas(ctx context.Context, call simulate.RawCall) (uint64, *simulate.SimError)
}

// Options carries the per-round configuration every dryrun invocation
// needs, resolved once from config.Config (spec §6's enumerated
// configuration surface).
type Options struct {
	Hops                   int
	Retries                int
	MaxRatio               bool
	GasCoveragePercent     int64
	RouteCodeVersion       types.RouteCodeVersion
	ArbContractAddress     common.Address
	RouteProcessorAddress  common.Address
	OrderbookAddress       common.Address
	SignerAddress          common.Address
	ReceiptTimeout         time.Duration
	PollInterval           time.Duration
}

// Deps bundles the long-lived, round-shared collaborators a processor
// needs (spec §5 "Signers, clients, and data-fetchers are owned by the
// long-lived process and shared read-only across rounds").
type Deps struct {
	Client           ReceiptClient
	Gas              GasSource
	Fetcher          quote.Fetcher
	Pools            PoolSource
	Sim              RevertSimulator
	RouteProcessor   RouteDryrun
	IntraOrderbook   IntraOrderbookDryrun
	Submitter        TxSubmitter
	PrivateSubmitter TxSubmitter // optional flashbot-style path, spec §4.7
	Logger           *zap.Logger
}

// ErrNoWalletFund is returned from Process when the signer cannot cover
// gas for the dryrun it attempted — the one halt reason that terminates
// the whole round (spec §4.8 "terminates early only on NoWalletFund").
var ErrNoWalletFund = fmt.Errorf("pair: signer has insufficient funds")

type Processor struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Processor {
	if opts.ReceiptTimeout == 0 {
		opts.ReceiptTimeout = 60 * time.Second
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Processor{deps: deps, opts: opts}
}

// Process runs one BP through the full state machine. opposing, when
// non-nil, is a same-orderbook counter-order the round runner found for
// an intra-orderbook clear (C5); when nil, the processor routes through
// the AMM-liquidity path (C4) only.
func (p *Processor) Process(ctx context.Context, bp *types.BundledPair, opposing *types.TakeOrder) (*types.PairReport, error) {
	tokenPair := fmt.Sprintf("%s/%s", bp.SellSymbol, bp.BuySymbol)
	span := telemetry.NewPairSpan(p.deps.Logger, tokenPair)

	report := &types.PairReport{
		TokenPair: tokenPair,
		BuyToken:  bp.BuyToken,
		SellToken: bp.SellToken,
	}

	if len(bp.TakeOrders) == 0 {
		report.Status, report.HaltReason = types.StatusEmptyVault, types.HaltNone
		span.Done("empty-vault")
		return report, nil
	}

	vaultBalance := bp.TakeOrders[0].Quote.MaxOutput
	if vaultBalance == nil || vaultBalance.Sign() == 0 {
		report.Status = types.StatusEmptyVault
		span.Done("empty-vault")
		return report, nil
	}

	gasPrice, err := p.deps.Gas.GasPrice(ctx)
	if err != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltFailedToGetGasPrice
		span.Set("error", err.Error()).Done("failed-gas-price")
		return report, nil
	}

	ethPrice, err := p.deps.Gas.EthPrice(ctx, bp.BuyToken, bp.BuyDecimals, nil, p.deps.Fetcher)
	if err != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltFailedToGetEthPrice
		span.Set("error", err.Error()).Done("failed-eth-price")
		return report, nil
	}

	if p.deps.Pools != nil && !p.deps.Pools.HasPools(bp.SellToken, bp.BuyToken) {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltFailedToGetPools
		span.Done("failed-pools")
		return report, nil
	}

	outcome, clearedOrders, walletErr := p.findOpportunity(ctx, bp, opposing, vaultBalance, gasPrice, ethPrice)
	if walletErr != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltNoWalletFund
		span.Done("no-wallet-fund")
		return report, ErrNoWalletFund
	}
	if outcome == nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltNoOpportunity
		span.Done("no-opportunity")
		return report, nil
	}

	span.Set("maxInput", outcome.MaxInput).Set("estimatedProfit", outcome.EstimatedProfit)

	signed, err := p.submit(ctx, outcome.RawTx)
	if err != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltTxFailed
		span.Set("error", err.Error()).Done("tx-failed")
		return report, nil
	}

	receipt, err := p.waitForReceipt(ctx, signed.Hash())
	if err != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltTxMineFailed
		span.Set("error", err.Error()).Done("tx-mine-failed")
		return report, nil
	}

	if receipt.Status == gethtypes.ReceiptStatusFailed {
		p.classifyRevert(ctx, outcome.RawTx, receipt)
		report.Status, report.HaltReason = types.StatusFoundOpportunity, types.HaltTxMineFailed
		report.TxURL = signed.Hash().Hex()
		span.Done("tx-reverted")
		return report, nil
	}

	report.Status = types.StatusFoundOpportunity
	report.TxURL = signed.Hash().Hex()
	report.ClearedOrders = clearedOrders
	report.ClearedAmount = abiutil.ClearedAmount(receipt.Logs)
	report.GasCost = new(big.Int).Mul(receipt.EffectiveGasPrice, new(big.Int).SetUint64(receipt.GasUsed))

	income, err := p.incomeDelta(ctx, bp.BuyToken, receipt.BlockNumber)
	if err == nil {
		report.Income = income
	}
	actualGasCostInToken := gasoracle.GasCostInToken(report.GasCost, ethPrice)
	if report.Income != nil {
		report.NetProfit = new(big.Int).Sub(report.Income, actualGasCostInToken)
	}

	span.Set("txHash", report.TxURL).Done("found-opportunity")
	return report, nil
}

// findOpportunity tries the intra-orderbook path first when an
// opposing order is supplied, falling back to the AMM-liquidity
// route-processor sized across H halving-step iterations and R
// duplication-mode retries (spec §4.6/§4.7).
func (p *Processor) findOpportunity(ctx context.Context, bp *types.BundledPair, opposing *types.TakeOrder, vaultBalance, gasPrice, ethPrice *big.Int) (*types.DryrunOutcome, []common.Hash, error) {
	alice := bp.TakeOrders[0]

	if opposing != nil && p.deps.IntraOrderbook != nil {
		outcome, err := p.deps.IntraOrderbook.Run(ctx, intraorderbook.Params{
			Alice:              alice,
			Opposing:           opposing,
			GasPrice:           gasPrice,
			EthPrice18:         ethPrice,
			GasCoveragePercent: p.opts.GasCoveragePercent,
			OrderbookAddress:   p.opts.OrderbookAddress,
			SignerAddress:      p.opts.SignerAddress,
		})
		if err != nil {
			if _, ok := err.(*simulate.SimError); ok {
				return nil, nil, err
			}
			return nil, nil, nil
		}
		if outcome.Success {
			return outcome, []common.Hash{alice.Order.ID, opposing.Order.ID}, nil
		}
	}

	if p.deps.RouteProcessor == nil {
		return nil, nil, nil
	}

	dryrunFor := func(mode types.Mode) sizer.DryrunFunc {
		return func(ctx context.Context, maxInput *big.Int) (*types.DryrunOutcome, error) {
			outcome, err := p.deps.RouteProcessor.Run(ctx, routeprocessor.Params{
				BP:                    bp,
				FromToken:             bp.SellToken,
				ToToken:               bp.BuyToken,
				MaxInput:              maxInput,
				GasPrice:              gasPrice,
				EthPrice18:            ethPrice,
				Mode:                  mode,
				MaxRatio:              p.opts.MaxRatio,
				GasCoveragePercent:    p.opts.GasCoveragePercent,
				IsFirstHop:            maxInput.Cmp(vaultBalance) == 0,
				SignerAddress:         p.opts.SignerAddress,
				ArbContractAddress:    p.opts.ArbContractAddress,
				RouteProcessorAddress: p.opts.RouteProcessorAddress,
				RouteCodeVersion:      p.opts.RouteCodeVersion,
			})
			if err != nil {
				if simErr, ok := err.(*simulate.SimError); ok && simErr.Reason == types.FailNoWalletFund {
					return nil, simErr
				}
				// A calldata-construction error is a configuration/data
				// bug, not a feasibility signal; surface it as a failed
				// probe so the sizer keeps narrowing instead of aborting
				// the whole round as if funds were insufficient.
				return &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity}, nil
			}
			return outcome, nil
		}
	}

	result, err := sizer.FindOppWithRetries(ctx, dryrunFor, vaultBalance, p.opts.Hops, p.opts.Retries)
	if err != nil {
		return nil, nil, err
	}
	if result.Outcome == nil {
		return nil, nil, nil
	}

	orderIDs := make([]common.Hash, 0, len(bp.TakeOrders))
	for _, to := range bp.TakeOrders {
		orderIDs = append(orderIDs, to.Order.ID)
	}
	return result.Outcome, orderIDs, nil
}

// Probe runs the same pre-submission checks and opportunity search
// Process does, without submitting a transaction or waiting for a
// receipt. The backtest harness uses this to compare predicted
// opportunities against on-chain ground truth without touching a live
// signer; the round runner's Process is the submitting counterpart.
func (p *Processor) Probe(ctx context.Context, bp *types.BundledPair, opposing *types.TakeOrder) (*types.PairReport, *types.DryrunOutcome, error) {
	tokenPair := fmt.Sprintf("%s/%s", bp.SellSymbol, bp.BuySymbol)
	span := telemetry.NewPairSpan(p.deps.Logger, tokenPair)

	report := &types.PairReport{
		TokenPair: tokenPair,
		BuyToken:  bp.BuyToken,
		SellToken: bp.SellToken,
	}

	if len(bp.TakeOrders) == 0 {
		report.Status, report.HaltReason = types.StatusEmptyVault, types.HaltNone
		span.Done("empty-vault")
		return report, nil, nil
	}

	vaultBalance := bp.TakeOrders[0].Quote.MaxOutput
	if vaultBalance == nil || vaultBalance.Sign() == 0 {
		report.Status = types.StatusEmptyVault
		span.Done("empty-vault")
		return report, nil, nil
	}

	gasPrice, err := p.deps.Gas.GasPrice(ctx)
	if err != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltFailedToGetGasPrice
		span.Set("error", err.Error()).Done("failed-gas-price")
		return report, nil, nil
	}

	ethPrice, err := p.deps.Gas.EthPrice(ctx, bp.BuyToken, bp.BuyDecimals, nil, p.deps.Fetcher)
	if err != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltFailedToGetEthPrice
		span.Set("error", err.Error()).Done("failed-eth-price")
		return report, nil, nil
	}

	if p.deps.Pools != nil && !p.deps.Pools.HasPools(bp.SellToken, bp.BuyToken) {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltFailedToGetPools
		span.Done("failed-pools")
		return report, nil, nil
	}

	outcome, clearedOrders, walletErr := p.findOpportunity(ctx, bp, opposing, vaultBalance, gasPrice, ethPrice)
	if walletErr != nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltNoWalletFund
		span.Done("no-wallet-fund")
		return report, nil, ErrNoWalletFund
	}
	if outcome == nil {
		report.Status, report.HaltReason = types.StatusNoOpportunity, types.HaltNoOpportunity
		span.Done("no-opportunity")
		return report, nil, nil
	}

	report.Status = types.StatusFoundOpportunity
	report.ClearedOrders = clearedOrders
	span.Set("maxInput", outcome.MaxInput).Set("estimatedProfit", outcome.EstimatedProfit).Done("probed-opportunity")
	return report, outcome, nil
}

func (p *Processor) submit(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Transaction, error) {
	submitter := p.deps.Submitter
	if p.deps.PrivateSubmitter != nil {
		submitter = p.deps.PrivateSubmitter
	}
	return submitter.Submit(ctx, tx)
}

// waitForReceipt polls for a mined receipt until one arrives or the
// configured timeout elapses (spec §4.7 "waits for the receipt with an
// optional wall-clock timeout").
func (p *Processor) waitForReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	deadline, cancel := context.WithTimeout(ctx, p.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := p.deps.Client.TransactionReceipt(deadline, hash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-deadline.Done():
			return nil, fmt.Errorf("pair: timed out waiting for receipt: %w", deadline.Err())
		case <-ticker.C:
		}
	}
}

// classifyRevert re-simulates the mined transaction to attribute a
// revert reason, per spec §4.7 "re-simulate the same tx at the mined
// block to obtain a revert reason."
func (p *Processor) classifyRevert(ctx context.Context, tx *gethtypes.Transaction, receipt *gethtypes.Receipt) {
	if p.deps.Sim == nil {
		return
	}
	p.deps.Sim.EstimateGas(ctx, simulate.RawCall{
		From:  p.opts.SignerAddress,
		To:    tx.To(),
		Data:  tx.Data(),
		Value: tx.Value(),
	})
}

// incomeDelta reads the signer's buyToken balance immediately before
// and after the clearing block and returns the difference (spec §4.7
// "income = signer balance delta in buy-token across the receipt").
func (p *Processor) incomeDelta(ctx context.Context, buyToken common.Address, blockNumber *big.Int) (*big.Int, error) {
	before := new(big.Int).Sub(blockNumber, big.NewInt(1))

	data, err := abiutil.PackBalanceOf(p.opts.SignerAddress)
	if err != nil {
		return nil, err
	}
	preRaw, err := p.deps.Client.CallContract(ctx, ethereum.CallMsg{To: &buyToken, Data: data}, before)
	if err != nil {
		return nil, err
	}
	pre, err := abiutil.UnpackBalanceOf(preRaw)
	if err != nil {
		return nil, err
	}

	postRaw, err := p.deps.Client.CallContract(ctx, ethereum.CallMsg{To: &buyToken, Data: data}, blockNumber)
	if err != nil {
		return nil, err
	}
	post, err := abiutil.UnpackBalanceOf(postRaw)
	if err != nil {
		return nil, err
	}

	return new(big.Int).Sub(post, pre), nil
}
