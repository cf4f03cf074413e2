package bigmath

import (
	"math/big"
	"testing"
)

func TestScale18RoundTrip(t *testing.T) {
	x := big.NewInt(123456789)
	for d := uint8(0); d <= 18; d++ {
		scaled := Scale18(x, d)
		back := Scale18To(scaled, d)
		if back.Cmp(x) != 0 {
			t.Fatalf("decimals=%d: round trip failed, got %s want %s", d, back, x)
		}
	}
}

func TestScale18Wad(t *testing.T) {
	// 1 USDC (1e6 raw units, 6 decimals) scales by 1e12 to exactly 1e18 in 18-decimal space.
	oneUSDC := big.NewInt(1_000_000)
	got := Scale18(oneUSDC, 6)
	want := new(big.Int).Mul(oneUSDC, new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil))
	if got.Cmp(want) != 0 {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestWadMulDiv(t *testing.T) {
	half := new(big.Int).Div(Wad, big.NewInt(2))
	two := new(big.Int).Mul(Wad, big.NewInt(2))

	if got := WadMul(half, two); got.Cmp(Wad) != 0 {
		t.Fatalf("half*2 = %s, want 1e18", got)
	}
	if got := WadDiv(Wad, two); got.Cmp(half) != 0 {
		t.Fatalf("1/2 = %s, want 0.5e18", got)
	}
}

func TestBasisHeadroom(t *testing.T) {
	x := big.NewInt(1000)
	got := BasisHeadroom(x, 300) // 3%
	if got.Cmp(big.NewInt(1030)) != 0 {
		t.Fatalf("got %s want 1030", got)
	}
}

func TestMinMax(t *testing.T) {
	a, b := big.NewInt(5), big.NewInt(9)
	if Min(a, b).Cmp(a) != 0 {
		t.Fatal("min wrong")
	}
	if Max(a, b).Cmp(b) != 0 {
		t.Fatal("max wrong")
	}
}
