package quote

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainclear/clearing-core/internal/types"
)

var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
)

// amountOutV2 computes a uniswap-v2 constant-product quote with a 0.3%
// fee: amountOut = amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997).
// Grounded on the constant-product math the teacher's detector.go
// assumes implicitly via FetchReserves/Price; this package is the
// first to actually compute an amount-out instead of a raw reserve
// ratio, since C1 needs a quote, not a price snapshot.
func amountOutV2(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	amountInWithFee := new(big.Int).Mul(amountIn, feeNumerator)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDenominator)
	denominator.Add(denominator, amountInWithFee)
	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	return numerator.Quo(numerator, denominator)
}

// Route is the best single-pool hop found for a sell/buy pair at a
// given input size, tagged with the route-code version configured for
// this module so C4 can pass it straight to abiutil.EncodeRouteData.
type Route struct {
	Pool       *Pool
	AmountOut  *big.Int
	Version    types.RouteCodeVersion
	RouteCode  []byte
	RouteVisual string
}

// bestRoute scans every pool trading sellToken/buyToken and returns
// the one yielding the largest amountOut for amountIn. Returns
// (nil, ErrNoWay) when no pool trades this pair or every
// candidate yields zero output.
func bestRoute(pools []*Pool, sellToken, buyToken common.Address, amountIn *big.Int, version types.RouteCodeVersion) (*Route, error) {
	var best *Route
	for _, p := range pools {
		reserveIn, reserveOut, err := p.reserveFor(sellToken, buyToken)
		if err != nil {
			continue
		}
		out := amountOutV2(amountIn, reserveIn, reserveOut)
		if out.Sign() <= 0 {
			continue
		}
		if best == nil || out.Cmp(best.AmountOut) > 0 {
			best = &Route{
				Pool:        p,
				AmountOut:   out,
				Version:     version,
				RouteCode:   encodeRouteCode(p),
				RouteVisual: p.DEX + ":" + p.Address.Hex(),
			}
		}
	}
	if best == nil {
		return nil, ErrNoWay
	}
	return best, nil
}

// encodeRouteCode produces the opaque route-code payload abiutil
// wraps with a version tag: the minimal bytes a route-processor needs
// to identify this hop (the pool address; no direction byte). The real
// route-processor route-code grammar is proprietary to each version;
// this module owns only the pool selection, not the byte grammar, so
// it emits the pool address as the payload and leaves version-specific
// encoding to the route-processor's own ABI at submission time.
func encodeRouteCode(p *Pool) []byte {
	return p.Address.Bytes()
}
