// Package sqrtprice holds the Q64.64 square-root price kernels: token
// amount deltas between two prices, the next price after adding or
// removing an amount, and the single swap step used by the pool loop.
package sqrtprice

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

var (
	ErrZeroLiquidity           = errors.New("zero liquidity")
	ErrAmountOverflow          = errors.New("token amount overflow")
	ErrNextSqrtPriceOutOfRange = errors.New("next sqrt price out of range")
	ErrInsufficientReserves    = errors.New("output exceeds price range reserves")
)

func sorted(a, b *uint256.Int) (*uint256.Int, *uint256.Int) {
	if a.Gt(b) {
		return b, a
	}
	return a, b
}

// AmountXDelta returns L * (sb - sa) / (sa * sb) at full width.
func AmountXDelta(sa, sb, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sa, sb = sorted(sa, sb)
	if sa.IsZero() {
		return nil, fmt.Errorf("%w: zero sqrt price", fullmath.ErrDivisionByZero)
	}
	num1 := new(uint256.Int).Lsh(liquidity, 64)
	num2 := new(uint256.Int).Sub(sb, sa)

	if roundUp {
		q, err := fullmath.MulDivCeil(num1, num2, sb)
		if err != nil {
			return nil, err
		}
		return fullmath.DivRoundUp(q, sa)
	}
	q, err := fullmath.MulDivFloor(num1, num2, sb)
	if err != nil {
		return nil, err
	}
	return q.Div(q, sa), nil
}

// AmountYDelta returns L * (sb - sa) / 2^64 at full width.
func AmountYDelta(sa, sb, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sa, sb = sorted(sa, sb)
	diff := new(uint256.Int).Sub(sb, sa)
	if roundUp {
		return fullmath.MulDivCeil(liquidity, diff, fullmath.Q64)
	}
	return fullmath.MulDivFloor(liquidity, diff, fullmath.Q64)
}

func GetAmountXDelta(sa, sb, liquidity *uint256.Int, roundUp bool) (uint64, error) {
	v, err := AmountXDelta(sa, sb, liquidity, roundUp)
	if err != nil {
		return 0, err
	}
	return toAmount(v)
}

func GetAmountYDelta(sa, sb, liquidity *uint256.Int, roundUp bool) (uint64, error) {
	v, err := AmountYDelta(sa, sb, liquidity, roundUp)
	if err != nil {
		return 0, err
	}
	return toAmount(v)
}

// GetAmountDeltas returns the token amounts for a signed liquidity change
// over [sa, sb]. Amounts owed to the pool round up, amounts paid out round down.
func GetAmountDeltas(sa, sb *uint256.Int, delta signed.I128, forX bool) (uint64, error) {
	roundUp := !delta.IsNeg()
	if forX {
		return GetAmountXDelta(sa, sb, delta.Abs(), roundUp)
	}
	return GetAmountYDelta(sa, sb, delta.Abs(), roundUp)
}

func toAmount(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, v.Dec())
	}
	return v.Uint64(), nil
}

// NextSqrtPriceFromAmountXRoundingUp moves the price by adding (price falls)
// or removing (price rises) amount of X.
func NextSqrtPriceFromAmountXRoundingUp(price, liquidity *uint256.Int, amount uint64, add bool) (*uint256.Int, error) {
	if amount == 0 {
		return new(uint256.Int).Set(price), nil
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	num1 := new(uint256.Int).Lsh(liquidity, 64)
	product := new(uint256.Int).Mul(uint256.NewInt(amount), price)

	var denominator *uint256.Int
	if add {
		denominator = new(uint256.Int).Add(num1, product)
	} else {
		if !num1.Gt(product) {
			return nil, ErrInsufficientReserves
		}
		denominator = new(uint256.Int).Sub(num1, product)
	}
	next, err := fullmath.MulDivCeil(num1, price, denominator)
	if err != nil {
		return nil, err
	}
	return checkPrice(next)
}

// NextSqrtPriceFromAmountYRoundingDown moves the price by adding (price
// rises) or removing (price falls) amount of Y.
func NextSqrtPriceFromAmountYRoundingDown(price, liquidity *uint256.Int, amount uint64, add bool) (*uint256.Int, error) {
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	amt := uint256.NewInt(amount)
	if add {
		quotient := new(uint256.Int).Lsh(amt, 64)
		quotient.Div(quotient, liquidity)
		return checkPrice(new(uint256.Int).Add(price, quotient))
	}

	quotient, err := fullmath.MulDivCeil(amt, fullmath.Q64, liquidity)
	if err != nil {
		return nil, err
	}
	if !price.Gt(quotient) {
		return nil, ErrInsufficientReserves
	}
	return checkPrice(new(uint256.Int).Sub(price, quotient))
}

func checkPrice(p *uint256.Int) (*uint256.Int, error) {
	if p.Lt(tickmath.MinSqrtPrice) || p.Gt(tickmath.MaxSqrtPrice) {
		return nil, fmt.Errorf("%w: %s", ErrNextSqrtPriceOutOfRange, p.Dec())
	}
	return p, nil
}

func GetNextSqrtPriceFromInput(price, liquidity *uint256.Int, amountIn uint64, xForY bool) (*uint256.Int, error) {
	if xForY {
		return NextSqrtPriceFromAmountXRoundingUp(price, liquidity, amountIn, true)
	}
	return NextSqrtPriceFromAmountYRoundingDown(price, liquidity, amountIn, true)
}

func GetNextSqrtPriceFromOutput(price, liquidity *uint256.Int, amountOut uint64, xForY bool) (*uint256.Int, error) {
	if xForY {
		return NextSqrtPriceFromAmountYRoundingDown(price, liquidity, amountOut, false)
	}
	return NextSqrtPriceFromAmountXRoundingUp(price, liquidity, amountOut, false)
}
