package signed

import (
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"
)

func TestI128AddSub(t *testing.T) {
	tests := []struct {
		name    string
		a, b    I128
		wantAdd string
		addErr  error
	}{
		{"positive", FromInt64(5), FromInt64(7), "12", nil},
		{"mixed", FromInt64(-5), FromInt64(7), "2", nil},
		{"negative", FromInt64(-5), FromInt64(-7), "-12", nil},
		{"cross word", FromInt64(math.MaxInt64), FromInt64(1), "9223372036854775808", nil},
		{"max overflow", MaxI128, FromInt64(1), "", ErrOverflow},
		{"min overflow", MinI128, FromInt64(-1), "", ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Add(tt.b)
			if !errors.Is(err, tt.addErr) {
				t.Fatalf("Add err = %v, want %v", err, tt.addErr)
			}
			if err == nil && got.String() != tt.wantAdd {
				t.Errorf("Add = %s, want %s", got, tt.wantAdd)
			}
			if err == nil {
				back, err := got.Sub(tt.b)
				if err != nil || back != tt.a {
					t.Errorf("Sub did not invert Add: %s, %v", back, err)
				}
			}
		})
	}
}

func TestI128Wrapping(t *testing.T) {
	if got := MaxI128.WrappingAdd(FromInt64(1)); got != MinI128 {
		t.Errorf("max+1 = %s, want %s", got, MinI128)
	}
	if got := MinI128.WrappingSub(FromInt64(1)); got != MaxI128 {
		t.Errorf("min-1 = %s, want %s", got, MaxI128)
	}
	if got := MinI128.Neg(); got != MinI128 {
		t.Errorf("-min = %s, want min", got)
	}
	if _, err := MaxI128.Sub(FromInt64(-1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("max-(-1) err = %v, want overflow", err)
	}
}

func TestI128MulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		wantMul string
		wantDiv string
	}{
		{"both positive", 1 << 40, 1 << 40, "1208925819614629174706176", "1"},
		{"negative times positive", -7, 3, "-21", "-2"},
		{"both negative", -9, -4, "36", "2"},
		{"truncate toward zero", 7, -2, "-14", "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromInt64(tt.a).Mul(FromInt64(tt.b))
			if err != nil {
				t.Fatalf("Mul: %v", err)
			}
			if m.String() != tt.wantMul {
				t.Errorf("Mul = %s, want %s", m, tt.wantMul)
			}
			d, err := FromInt64(tt.a).Div(FromInt64(tt.b))
			if err != nil {
				t.Fatalf("Div: %v", err)
			}
			if d.String() != tt.wantDiv {
				t.Errorf("Div = %s, want %s", d, tt.wantDiv)
			}
		})
	}

	if _, err := MaxI128.Mul(FromInt64(2)); !errors.Is(err, ErrOverflow) {
		t.Errorf("max*2 err = %v, want overflow", err)
	}
	if got, err := MinI128.Mul(FromInt64(1)); err != nil || got != MinI128 {
		t.Errorf("min*1 = %s, %v", got, err)
	}
	if _, err := MinI128.Div(FromInt64(-1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("min/-1 err = %v, want overflow", err)
	}
	if _, err := FromInt64(1).Div(I128{}); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("1/0 err = %v", err)
	}
}

func TestI128Shift(t *testing.T) {
	if got := FromInt64(-8).Shr(1); got != FromInt64(-4) {
		t.Errorf("-8>>1 = %s", got)
	}
	if got := FromInt64(-1).Shr(100); got != FromInt64(-1) {
		t.Errorf("-1>>100 = %s", got)
	}
	if got := FromInt64(1).Shl(127); got != MinI128 {
		t.Errorf("1<<127 = %s", got)
	}
	if got := FromInt64(1).Shl(70).Shr(70); got != FromInt64(1) {
		t.Errorf("round trip shift = %s", got)
	}
	if got := MinI128.Shr(64); got.String() != "-9223372036854775808" {
		t.Errorf("min>>64 = %s", got)
	}
}

func TestI128Conversions(t *testing.T) {
	u := uint256.MustFromDecimal("170141183460469231731687303715884105727")
	v, err := FromU128(u)
	if err != nil || v != MaxI128 {
		t.Fatalf("FromU128(max) = %s, %v", v, err)
	}
	if _, err := FromU128(new(uint256.Int).AddUint64(u, 1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("FromU128(2^127) err = %v", err)
	}
	n, err := NegFromU128(new(uint256.Int).AddUint64(u, 1))
	if err != nil || n != MinI128 {
		t.Errorf("NegFromU128(2^127) = %s, %v", n, err)
	}
	if MinI128.Abs().Dec() != "170141183460469231731687303715884105728" {
		t.Errorf("abs(min) = %s", MinI128.Abs().Dec())
	}

	p, err := Parse("-123456789012345678901234567890")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.String() != "-123456789012345678901234567890" {
		t.Errorf("Parse round trip = %s", p)
	}
	if FromInt64(-3).Cmp(FromInt64(2)) != -1 || FromInt64(2).Cmp(FromInt64(-3)) != 1 {
		t.Errorf("Cmp ordering wrong across signs")
	}
	if _, ok := MaxI128.Int64(); ok {
		t.Errorf("max fits int64")
	}
}

func TestCheckedInts(t *testing.T) {
	if _, err := AddInt32(math.MaxInt32, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("AddInt32 overflow not detected")
	}
	if _, err := SubInt32(math.MinInt32, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("SubInt32 overflow not detected")
	}
	if v, err := MulInt32(-443636, 1); err != nil || v != -443636 {
		t.Errorf("MulInt32 = %d, %v", v, err)
	}
	if _, err := AddInt64(math.MaxInt64, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("AddInt64 overflow not detected")
	}
	if _, err := SubInt64(math.MinInt64, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("SubInt64 overflow not detected")
	}
	if _, err := MulInt64(math.MaxInt64, 2); !errors.Is(err, ErrOverflow) {
		t.Errorf("MulInt64 overflow not detected")
	}
	if _, err := DivInt64(math.MinInt64, -1); !errors.Is(err, ErrOverflow) {
		t.Errorf("DivInt64 overflow not detected")
	}
	if WrappingAddInt64(math.MaxInt64, 1) != math.MinInt64 {
		t.Errorf("WrappingAddInt64 did not wrap")
	}
}
