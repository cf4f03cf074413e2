// Package bigmath provides the 18-decimal fixed-point ("Wad") arithmetic
// shared by every component that prices or sizes a clearing trade.
//
// All amounts that cross a component boundary are carried as *big.Int in
// either token-decimal units or 18-decimal units; this package is the only
// place that converts between the two. Everything here mirrors the
// wide-big-integer style of the teacher's arbitrage price math
// (internal/arbitrage/math.go's CalculatePrice/GetAmountOut), generalized
// from float-based pool pricing to exact integer fixed-point so that
// ratio/price comparisons never lose precision.
package bigmath

import "math/big"

// Wad is 1.0 in 18-decimal fixed point.
var Wad = big.NewInt(1_000_000_000_000_000_000)

var pow10Cache = map[uint8]*big.Int{}

func pow10(n uint8) *big.Int {
	if v, ok := pow10Cache[n]; ok {
		return v
	}
	v := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	pow10Cache[n] = v
	return v
}

// Scale18 converts x from token-decimal units to 18-decimal fixed point.
// decimals <= 18 multiplies (exact, reversible); decimals > 18 divides
// (lossy, matches on-chain truncation behaviour for exotic high-decimal
// tokens).
func Scale18(x *big.Int, decimals uint8) *big.Int {
	if decimals == 18 {
		return new(big.Int).Set(x)
	}
	if decimals < 18 {
		return new(big.Int).Mul(x, pow10(18-decimals))
	}
	return new(big.Int).Div(x, pow10(decimals-18))
}

// Scale18To converts x from 18-decimal fixed point back to token-decimal
// units. The inverse of Scale18 for decimals <= 18.
func Scale18To(x *big.Int, decimals uint8) *big.Int {
	if decimals == 18 {
		return new(big.Int).Set(x)
	}
	if decimals < 18 {
		return new(big.Int).Div(x, pow10(18-decimals))
	}
	return new(big.Int).Mul(x, pow10(decimals-18))
}

// WadMul multiplies two 18-decimal fixed-point numbers, truncating toward
// zero like Solidity's mulDiv.
func WadMul(a, b *big.Int) *big.Int {
	return new(big.Int).Div(new(big.Int).Mul(a, b), Wad)
}

// WadDiv divides two 18-decimal fixed-point numbers, truncating toward
// zero.
func WadDiv(a, b *big.Int) *big.Int {
	if b.Sign() == 0 {
		return new(big.Int)
	}
	num := new(big.Int).Mul(a, Wad)
	return new(big.Int).Div(num, b)
}

// MulDiv computes floor(a*b/denominator) using a temporary that never
// truncates before the final division, the way every amountOut calculation
// in this module must.
func MulDiv(a, b, denominator *big.Int) *big.Int {
	num := new(big.Int).Mul(a, b)
	return new(big.Int).Div(num, denominator)
}

// PercentOf returns floor(x * pct / 100) for an integer percentage.
func PercentOf(x *big.Int, pct int64) *big.Int {
	num := new(big.Int).Mul(x, big.NewInt(pct))
	return new(big.Int).Div(num, big.NewInt(100))
}

// BasisHeadroom scales x by (10000+bps)/10000, used for the 1.03x gas
// headroom and 1.02x price-match headroom called out across the spec.
func BasisHeadroom(x *big.Int, bps int64) *big.Int {
	num := new(big.Int).Mul(x, big.NewInt(10000+bps))
	return new(big.Int).Div(num, big.NewInt(10000))
}

// Min returns the smaller of two big.Ints.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of two big.Ints.
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
