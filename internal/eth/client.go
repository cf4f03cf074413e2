// Package eth wraps go-ethereum's ethclient with the surface the
// clearing core needs: reads, gas estimation, submission, and receipt
// waiting. Grounded directly on the teacher's internal/eth.Client,
// generalized from a read-only fork-fetching client into one that also
// signs and submits (C7), and that can route submission through a
// second, private RPC endpoint (spec §4.7 "Optional private
// submission").
package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the public-RPC read/write handle shared read-only across
// rounds (spec §5 "Signers, clients, and data-fetchers are owned by the
// long-lived process").
type Client struct {
	rpc  *ethclient.Client
	urls []string
	idx  int
}

// NewClient dials the first URL of the RPC endpoint list and keeps the
// rest for Rotate. The list is used in the order given: neither this
// constructor nor its callers shuffle it, per round or otherwise.
func NewClient(urls []string) (*Client, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("eth: no rpc urls configured")
	}
	rpc, err := ethclient.Dial(urls[0])
	if err != nil {
		return nil, fmt.Errorf("eth: dial %s: %w", urls[0], err)
	}
	return &Client{rpc: rpc, urls: urls, idx: 0}, nil
}

// Rotate redials the next RPC endpoint in the shuffled list, used when
// the current endpoint times out or errors repeatedly.
func (c *Client) Rotate() error {
	if len(c.urls) < 2 {
		return fmt.Errorf("eth: no alternate rpc url to rotate to")
	}
	c.idx = (c.idx + 1) % len(c.urls)
	rpc, err := ethclient.Dial(c.urls[c.idx])
	if err != nil {
		return fmt.Errorf("eth: redial %s: %w", c.urls[c.idx], err)
	}
	c.rpc.Close()
	c.rpc = rpc
	return nil
}

func (c *Client) Raw() *ethclient.Client { return c.rpc }

func (c *Client) Close() { c.rpc.Close() }

func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	return c.rpc.BlockByNumber(ctx, number)
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.rpc.HeaderByNumber(ctx, number)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.rpc.BalanceAt(ctx, account, blockNumber)
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return c.rpc.CodeAt(ctx, account, blockNumber)
}

func (c *Client) StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	return c.rpc.StorageAt(ctx, account, key, blockNumber)
}

func (c *Client) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	return c.rpc.NonceAt(ctx, account, blockNumber)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.rpc.PendingNonceAt(ctx, account)
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.rpc.CallContract(ctx, msg, blockNumber)
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.rpc.EstimateGas(ctx, msg)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.rpc.SuggestGasPrice(ctx)
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.rpc.SendTransaction(ctx, tx)
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.rpc.TransactionReceipt(ctx, hash)
}

// GetBlockReceipts batches a receipt fetch for every tx in a block, used
// by the backtest harness's actual-arbitrage scan.
func (c *Client) GetBlockReceipts(ctx context.Context, blockNum uint64) ([]*types.Receipt, error) {
	return c.rpc.BlockReceipts(ctx, rpc.BlockNumberOrHashWithNumber(rpc.BlockNumber(blockNum)))
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.rpc.ChainID(ctx)
}
