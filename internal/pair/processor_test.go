package pair

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/rainclear/clearing-core/internal/clear/intraorderbook"
	"github.com/rainclear/clearing-core/internal/clear/routeprocessor"
	"github.com/rainclear/clearing-core/internal/quote"
	"github.com/rainclear/clearing-core/internal/simulate"
	"github.com/rainclear/clearing-core/internal/types"
)

type fakeGas struct {
	gasPrice *big.Int
	gasErr   error
	ethPrice *big.Int
	ethErr   error
}

func (f *fakeGas) GasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, f.gasErr
}

func (f *fakeGas) EthPrice(ctx context.Context, buyToken common.Address, buyDecimals uint8, blockNum *big.Int, fetcher quote.Fetcher) (*big.Int, error) {
	return f.ethPrice, f.ethErr
}

type fakePools struct{ has bool }

func (f *fakePools) HasPools(sellToken, buyToken common.Address) bool { return f.has }

func okGas() *fakeGas {
	ethPrice, _ := new(big.Int).SetString("3000000000000000000000", 10) // 3000 USDC per ETH, 18-decimal
	return &fakeGas{gasPrice: big.NewInt(20_000_000_000), ethPrice: ethPrice}
}

func bpWithBalance(balance int64) *types.BundledPair {
	return &types.BundledPair{
		SellSymbol: "WETH",
		BuySymbol:  "USDC",
		TakeOrders: []*types.TakeOrder{
			{
				Order: &types.Order{ID: common.HexToHash("0x01")},
				Quote: types.Quote{MaxOutput: big.NewInt(balance), Ratio: big.NewInt(1e18)},
			},
		},
	}
}

func TestProcessEmptyVaultWhenNoTakeOrders(t *testing.T) {
	p := New(Deps{Gas: okGas()}, Options{})
	report, err := p.Process(context.Background(), &types.BundledPair{SellSymbol: "WETH", BuySymbol: "USDC"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != types.StatusEmptyVault {
		t.Errorf("expected EmptyVault, got %s", report.Status)
	}
}

func TestProcessEmptyVaultWhenZeroBalance(t *testing.T) {
	p := New(Deps{Gas: okGas()}, Options{})
	report, err := p.Process(context.Background(), bpWithBalance(0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != types.StatusEmptyVault {
		t.Errorf("expected EmptyVault, got %s", report.Status)
	}
}

func TestProcessHaltsOnGasPriceFailure(t *testing.T) {
	p := New(Deps{Gas: &fakeGas{gasErr: errors.New("rpc down")}}, Options{})
	report, err := p.Process(context.Background(), bpWithBalance(1_000_000), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.HaltReason != types.HaltFailedToGetGasPrice {
		t.Errorf("expected HaltFailedToGetGasPrice, got %s", report.HaltReason)
	}
}

func TestProcessHaltsOnEthPriceFailure(t *testing.T) {
	p := New(Deps{Gas: &fakeGas{gasPrice: big.NewInt(1), ethErr: errors.New("no price feed")}}, Options{})
	report, err := p.Process(context.Background(), bpWithBalance(1_000_000), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.HaltReason != types.HaltFailedToGetEthPrice {
		t.Errorf("expected HaltFailedToGetEthPrice, got %s", report.HaltReason)
	}
}

func TestProcessHaltsWhenPoolsMissing(t *testing.T) {
	p := New(Deps{Gas: okGas(), Pools: &fakePools{has: false}}, Options{})
	report, err := p.Process(context.Background(), bpWithBalance(1_000_000), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.HaltReason != types.HaltFailedToGetPools {
		t.Errorf("expected HaltFailedToGetPools, got %s", report.HaltReason)
	}
}

func TestProcessNoOpportunityWhenNoDryrunPathConfigured(t *testing.T) {
	p := New(Deps{Gas: okGas(), Pools: &fakePools{has: true}}, Options{})
	report, err := p.Process(context.Background(), bpWithBalance(1_000_000), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != types.StatusNoOpportunity || report.HaltReason != types.HaltNoOpportunity {
		t.Errorf("expected NoOpportunity, got status=%s halt=%s", report.Status, report.HaltReason)
	}
}

type fakeRouteDryrun struct {
	outcome *types.DryrunOutcome
	err     error
}

func (f *fakeRouteDryrun) Run(ctx context.Context, p routeprocessor.Params) (*types.DryrunOutcome, error) {
	return f.outcome, f.err
}

type fakeIntraOrderbook struct {
	outcome *types.DryrunOutcome
	err     error
}

func (f *fakeIntraOrderbook) Run(ctx context.Context, p intraorderbook.Params) (*types.DryrunOutcome, error) {
	return f.outcome, f.err
}

type fakeSubmitter struct{ err error }

func (f *fakeSubmitter) Submit(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return tx, nil
}

// fakeReceiptClient fakes the post-submission surface Process needs:
// a canned receipt, plus sequential balanceOf-call replies for
// incomeDelta's pre/post pair.
type fakeReceiptClient struct {
	receipt    *gethtypes.Receipt
	receiptErr error
	balances   []*big.Int
	callIdx    int
}

func (f *fakeReceiptClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	return f.receipt, f.receiptErr
}

func (f *fakeReceiptClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	amt := f.balances[f.callIdx]
	f.callIdx++
	return common.LeftPadBytes(amt.Bytes(), 32), nil
}

type fakeSim struct{}

func (f *fakeSim) EstimateGas(ctx context.Context, call simulate.RawCall) (uint64, *simulate.SimError) {
	return 0, nil
}

func routeOutcome(maxInput int64) *types.DryrunOutcome {
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		To:       &common.Address{},
		Gas:      21000,
		GasPrice: big.NewInt(1),
		Value:    big.NewInt(0),
	})
	return &types.DryrunOutcome{
		Success:         true,
		RawTx:           tx,
		MaxInput:        big.NewInt(maxInput),
		GasCostInToken:  big.NewInt(0),
		EstimatedProfit: big.NewInt(0),
	}
}

// S1: happy path. A route-processor opportunity is found, submitted,
// and mined successfully — Process reports FoundOpportunity with the
// tx hash and no halt.
func TestProcessFoundOpportunityHappyPath(t *testing.T) {
	receipt := &gethtypes.Receipt{
		Status:            gethtypes.ReceiptStatusSuccessful,
		BlockNumber:       big.NewInt(100),
		EffectiveGasPrice: big.NewInt(1),
		GasUsed:           21000,
	}
	p := New(Deps{
		Gas:            okGas(),
		Pools:          &fakePools{has: true},
		RouteProcessor: &fakeRouteDryrun{outcome: routeOutcome(1_000_000)},
		Submitter:      &fakeSubmitter{},
		Client: &fakeReceiptClient{
			receipt:  receipt,
			balances: []*big.Int{big.NewInt(100), big.NewInt(150)},
		},
	}, Options{})

	report, err := p.Process(context.Background(), bpWithBalance(1_000_000), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != types.StatusFoundOpportunity {
		t.Fatalf("expected FoundOpportunity, got status=%s halt=%s", report.Status, report.HaltReason)
	}
	if report.HaltReason != types.HaltNone {
		t.Errorf("expected no halt reason, got %s", report.HaltReason)
	}
	if report.TxURL == "" {
		t.Error("expected TxURL to be set")
	}
	if report.Income == nil || report.Income.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("expected income 50, got %v", report.Income)
	}
}

// S6: the tx is submitted and mined but reverts on-chain. Process must
// still report FoundOpportunity (an opportunity genuinely existed and
// was submitted) with TxURL set, halted on TxMineFailed — not silently
// downgraded to NoOpportunity.
func TestProcessFoundOpportunityOnRevertedReceipt(t *testing.T) {
	receipt := &gethtypes.Receipt{
		Status:      gethtypes.ReceiptStatusFailed,
		BlockNumber: big.NewInt(100),
	}
	p := New(Deps{
		Gas:            okGas(),
		Pools:          &fakePools{has: true},
		RouteProcessor: &fakeRouteDryrun{outcome: routeOutcome(1_000_000)},
		Submitter:      &fakeSubmitter{},
		Sim:            &fakeSim{},
		Client:         &fakeReceiptClient{receipt: receipt},
	}, Options{})

	report, err := p.Process(context.Background(), bpWithBalance(1_000_000), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != types.StatusFoundOpportunity {
		t.Errorf("expected FoundOpportunity on a reverted-but-submitted tx, got %s", report.Status)
	}
	if report.HaltReason != types.HaltTxMineFailed {
		t.Errorf("expected HaltTxMineFailed, got %s", report.HaltReason)
	}
	if report.TxURL == "" {
		t.Error("expected TxURL to be set even though the tx reverted")
	}
}

// S7: an opposing same-orderbook order is supplied, so Process routes
// through the intra-orderbook dryrun (C5) rather than the route
// processor, and the cleared-orders list names both sides of the
// match.
func TestProcessIntraOrderbookMatch(t *testing.T) {
	alice := bpWithBalance(1_000_000)
	opposing := &types.TakeOrder{
		Order: &types.Order{ID: common.HexToHash("0x02"), Owner: common.HexToAddress("0xb")},
		Quote: types.Quote{Ratio: big.NewInt(1)},
	}

	receipt := &gethtypes.Receipt{
		Status:            gethtypes.ReceiptStatusSuccessful,
		BlockNumber:       big.NewInt(100),
		EffectiveGasPrice: big.NewInt(1),
		GasUsed:           21000,
	}
	p := New(Deps{
		Gas:            okGas(),
		Pools:          &fakePools{has: true},
		IntraOrderbook: &fakeIntraOrderbook{outcome: routeOutcome(1_000_000)},
		RouteProcessor: &fakeRouteDryrun{outcome: &types.DryrunOutcome{Success: false, Reason: types.FailNoOpportunity}},
		Submitter:      &fakeSubmitter{},
		Client: &fakeReceiptClient{
			receipt:  receipt,
			balances: []*big.Int{big.NewInt(0), big.NewInt(0)},
		},
	}, Options{})

	report, err := p.Process(context.Background(), alice, opposing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != types.StatusFoundOpportunity {
		t.Fatalf("expected FoundOpportunity, got status=%s halt=%s", report.Status, report.HaltReason)
	}
	if len(report.ClearedOrders) != 2 {
		t.Fatalf("expected 2 cleared orders (alice + opposing), got %d", len(report.ClearedOrders))
	}
	if report.ClearedOrders[0] != alice.TakeOrders[0].Order.ID || report.ClearedOrders[1] != opposing.Order.ID {
		t.Errorf("expected cleared orders [alice, opposing], got %v", report.ClearedOrders)
	}
}
