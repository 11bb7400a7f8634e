package liquidity

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

func price(t *testing.T, tick int32) *uint256.Int {
	t.Helper()
	p, err := tickmath.SqrtPriceAtTick(tick)
	if err != nil {
		t.Fatalf("SqrtPriceAtTick(%d): %v", tick, err)
	}
	return p
}

func TestAddDelta(t *testing.T) {
	tests := []struct {
		name    string
		x       *uint256.Int
		delta   signed.I128
		want    string
		wantErr error
	}{
		{"add", uint256.NewInt(1), signed.FromInt64(0), "1", nil},
		{"add positive", uint256.NewInt(1), signed.FromInt64(1), "2", nil},
		{"subtract", uint256.NewInt(1), signed.FromInt64(-1), "0", nil},
		{"underflow", uint256.NewInt(0), signed.FromInt64(-1), "", ErrUnderflow},
		{"underflow larger", uint256.NewInt(3), signed.FromInt64(-4), "", ErrUnderflow},
		{"overflow", new(uint256.Int).SubUint64(fullmath.MaxU128, 14), signed.FromInt64(15), "", ErrOverflow},
		{"to max", new(uint256.Int).SubUint64(fullmath.MaxU128, 15), signed.FromInt64(15), fullmath.MaxU128.Dec(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddDelta(tt.x, tt.delta)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got.Dec() != tt.want {
				t.Errorf("AddDelta = %s, want %s", got.Dec(), tt.want)
			}
		})
	}
}

func TestAddDeltaInverse(t *testing.T) {
	x := uint256.MustFromDecimal("123456789012345678901234567890")
	for _, d := range []int64{0, 1, 1 << 40, 9_223_372_036_854_775_807} {
		delta := signed.FromInt64(d)
		up, err := AddDelta(x, delta)
		if err != nil {
			t.Fatalf("add %d: %v", d, err)
		}
		back, err := AddDelta(up, delta.Neg())
		if err != nil {
			t.Fatalf("sub %d: %v", d, err)
		}
		if !back.Eq(x) {
			t.Errorf("delta %d: %s != %s", d, back.Dec(), x.Dec())
		}
	}
}

func TestLiquidityAmountRoundTrip(t *testing.T) {
	sa, sb := price(t, -600), price(t, 600)

	tests := []struct {
		amount    uint64
		liquidity string
	}{
		{1_000_000, "16665000"},
		{123_456_789, "2057407434"},
		{1_000_000_000_000_000, "16665000373539200"},
	}

	for _, tt := range tests {
		lx, err := GetLiquidityForAmountX(sa, sb, tt.amount)
		if err != nil || lx.Dec() != tt.liquidity {
			t.Fatalf("liquidity for x %d = %v, %v, want %s", tt.amount, lx, err, tt.liquidity)
		}
		backX, err := GetAmountXForLiquidity(sa, sb, lx)
		if err != nil {
			t.Fatalf("amount x: %v", err)
		}
		if backX > tt.amount || tt.amount-backX > 1 {
			t.Errorf("x round trip %d -> %d", tt.amount, backX)
		}

		ly, err := GetLiquidityForAmountY(sb, sa, tt.amount)
		if err != nil || ly.Dec() != tt.liquidity {
			t.Fatalf("liquidity for y %d = %v, %v, want %s", tt.amount, ly, err, tt.liquidity)
		}
		backY, err := GetAmountYForLiquidity(sa, sb, ly)
		if err != nil {
			t.Fatalf("amount y: %v", err)
		}
		if backY > tt.amount || tt.amount-backY > 1 {
			t.Errorf("y round trip %d -> %d", tt.amount, backY)
		}
	}
}

func TestGetLiquidityForAmounts(t *testing.T) {
	sa, sb := price(t, -600), price(t, 600)

	tests := []struct {
		name    string
		current *uint256.Int
		want    string
	}{
		{"below range uses x", price(t, -1000), "16665000"},
		{"inside range uses min", fullmath.Q64, "33837499"},
		{"above range uses y", price(t, 1000), "16665000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetLiquidityForAmounts(tt.current, sa, sb, 1_000_000, 1_000_000)
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if got.Dec() != tt.want {
				t.Errorf("liquidity = %s, want %s", got.Dec(), tt.want)
			}
		})
	}

	x, y, err := GetAmountsForLiquidity(fullmath.Q64, sa, sb, uint256.NewInt(33837499))
	if err != nil || x != 999999 || y != 999999 {
		t.Errorf("amounts = %d, %d, %v", x, y, err)
	}

	if _, err := GetLiquidityForAmountX(sa, sa, 1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("empty range err = %v", err)
	}
}
