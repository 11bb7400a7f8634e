// Package price converts between Q64.64 square-root prices and decimal
// prices quoted as Y per X.
package price

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

// DefaultPrecision is the number of decimal places returned by FromSqrtPrice
// when callers have no preference.
const DefaultPrecision int32 = 18

var ErrInvalidPrice = errors.New("invalid price")

var q128 = decimal.NewFromBigInt(fullmath.Q128.ToBig(), 0)

// FromSqrtPrice returns sqrtPrice^2 / 2^128 rounded to precision places.
func FromSqrtPrice(sqrtPrice *uint256.Int, precision int32) decimal.Decimal {
	s := decimal.NewFromBigInt(sqrtPrice.ToBig(), 0)
	return s.Mul(s).DivRound(q128, precision)
}

// ToSqrtPrice returns floor(sqrt(price * 2^128)). The result must lie inside
// the tick math bounds.
func ToSqrtPrice(p decimal.Decimal) (*uint256.Int, error) {
	if !p.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, p)
	}
	scaled := p.Mul(q128).BigInt()
	root, overflow := uint256.FromBig(new(big.Int).Sqrt(scaled))
	if overflow || root.Lt(tickmath.MinSqrtPrice) || root.Gt(tickmath.MaxSqrtPrice) {
		return nil, fmt.Errorf("%w: price %s", tickmath.ErrSqrtPriceOutOfBounds, p)
	}
	return root, nil
}

// Parse reads a decimal price string and converts it with ToSqrtPrice.
func Parse(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}
	return ToSqrtPrice(d)
}
