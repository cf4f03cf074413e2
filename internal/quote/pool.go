// Package quote implements the quote/liquidity oracle: given a token
// pair and an input size, it returns the best available route and the
// amount out across the tracked pool map. Grounded on the teacher's
// internal/arbitrage/pools.go (FetchReserves/FetchTokens/LoadPool),
// generalized from two hardcoded WETH/USDC and WETH/USDT pairs to an
// arbitrary pair looked up in a memoised pool map, per spec §4.1/§9
// ("process-wide pool cache ... an explicit cache type with
// refresh()/invalidate() and a timer; avoid hidden globals").
package quote

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/eth"
)

// Pool mirrors a uniswap-v2-style constant-product pool, same shape as
// the teacher's arbitrage.Pool.
type Pool struct {
	Address  common.Address
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
	DEX      string
}

// reserveFor returns the reserve on the side of sellToken and the
// reserve on the side of buyToken, or an error if neither token
// matches this pool.
func (p *Pool) reserveFor(sellToken, buyToken common.Address) (reserveIn, reserveOut *big.Int, err error) {
	switch {
	case p.Token0 == sellToken && p.Token1 == buyToken:
		return p.Reserve0, p.Reserve1, nil
	case p.Token1 == sellToken && p.Token0 == buyToken:
		return p.Reserve1, p.Reserve0, nil
	default:
		return nil, nil, fmt.Errorf("quote: pool %s does not trade %s/%s", p.Address, sellToken, buyToken)
	}
}

var pairABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(eth.UniswapV2PairABI))
	if err != nil {
		panic(fmt.Errorf("quote: parse pair abi: %w", err))
	}
	pairABI = parsed
}

// fetchReserves is the teacher's FetchReserves, unchanged in
// technique (pack ABI once at init rather than per call).
func fetchReserves(ctx context.Context, client *eth.Client, poolAddress common.Address, blockNum *big.Int) (reserve0, reserve1 *big.Int, err error) {
	data, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("pack getReserves: %w", err)
	}
	msg := ethereum.CallMsg{To: &poolAddress, Data: data}
	result, err := client.CallContract(ctx, msg, blockNum)
	if err != nil {
		return nil, nil, fmt.Errorf("call contract: %w", err)
	}
	unpacked, err := pairABI.Unpack("getReserves", result)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack reserves: %w", err)
	}
	if len(unpacked) < 2 {
		return nil, nil, fmt.Errorf("unexpected unpack result length: %d", len(unpacked))
	}
	reserve0, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("reserve0 type assertion failed")
	}
	reserve1, ok = unpacked[1].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("reserve1 type assertion failed")
	}
	return reserve0, reserve1, nil
}

func fetchTokens(ctx context.Context, client *eth.Client, poolAddress common.Address, blockNum *big.Int) (token0, token1 common.Address, err error) {
	data0, err := pairABI.Pack("token0")
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("pack token0: %w", err)
	}
	result0, err := client.CallContract(ctx, ethereum.CallMsg{To: &poolAddress, Data: data0}, blockNum)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("call token0: %w", err)
	}
	token0 = common.BytesToAddress(result0)

	data1, err := pairABI.Pack("token1")
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("pack token1: %w", err)
	}
	result1, err := client.CallContract(ctx, ethereum.CallMsg{To: &poolAddress, Data: data1}, blockNum)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("call token1: %w", err)
	}
	token1 = common.BytesToAddress(result1)
	return token0, token1, nil
}

// LoadPool fetches complete pool state at a block. Same procedure as
// the teacher's LoadPool.
func LoadPool(ctx context.Context, client *eth.Client, poolAddress common.Address, dex string, blockNum *big.Int) (*Pool, error) {
	token0, token1, err := fetchTokens(ctx, client, poolAddress, blockNum)
	if err != nil {
		return nil, fmt.Errorf("fetch tokens: %w", err)
	}
	reserve0, reserve1, err := fetchReserves(ctx, client, poolAddress, blockNum)
	if err != nil {
		return nil, fmt.Errorf("fetch reserves: %w", err)
	}
	return &Pool{
		Address:  poolAddress,
		Token0:   token0,
		Token1:   token1,
		Reserve0: reserve0,
		Reserve1: reserve1,
		DEX:      dex,
	}, nil
}
