package price

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

func TestParse(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"1", "18446744073709551616"},
		{"0.1", "5833372668713515884"},
		{"2.5", "29166863343567579424"},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got, err := Parse(tt.price)
			if err != nil {
				t.Fatal(err)
			}
			if got.Dec() != tt.want {
				t.Errorf("Parse(%s) = %s, want %s", tt.price, got.Dec(), tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		price   string
		wantErr error
	}{
		{"0", ErrInvalidPrice},
		{"-3", ErrInvalidPrice},
		{"abc", ErrInvalidPrice},
		{"1e40", tickmath.ErrSqrtPriceOutOfBounds},
		{"1e-40", tickmath.ErrSqrtPriceOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			if _, err := Parse(tt.price); !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%s) err = %v, want %v", tt.price, err, tt.wantErr)
			}
		})
	}
}

func TestFromSqrtPrice(t *testing.T) {
	tests := []struct {
		sqrtPrice *uint256.Int
		precision int32
		want      string
	}{
		{fullmath.Q64, DefaultPrecision, "1"},
		{uint256.NewInt(5833372668713515884), DefaultPrecision, "0.1"},
		{uint256.MustFromDecimal("29166863343567579424"), 12, "2.5"},
	}
	for _, tt := range tests {
		got := FromSqrtPrice(tt.sqrtPrice, tt.precision)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("FromSqrtPrice(%s) = %s, want %s", tt.sqrtPrice.Dec(), got, tt.want)
		}
	}
}
