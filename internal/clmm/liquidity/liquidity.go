// Package liquidity converts between liquidity and token amounts and is the
// single place where liquidity deltas are checked for under/overflow.
package liquidity

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
)

var (
	ErrUnderflow    = errors.New("liquidity underflow")
	ErrOverflow     = errors.New("liquidity overflow")
	ErrInvalidRange = errors.New("invalid price range")
)

// AddDelta applies a signed delta to an unsigned 128-bit liquidity value.
func AddDelta(x *uint256.Int, y signed.I128) (*uint256.Int, error) {
	abs := y.Abs()
	if y.IsNeg() {
		if abs.Gt(x) {
			return nil, fmt.Errorf("%w: %s - %s", ErrUnderflow, x.Dec(), abs.Dec())
		}
		return new(uint256.Int).Sub(x, abs), nil
	}
	headroom := new(uint256.Int).Sub(fullmath.MaxU128, x)
	if abs.Gt(headroom) {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, x.Dec(), abs.Dec())
	}
	return new(uint256.Int).Add(x, abs), nil
}

func sortPrices(a, b *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if a.Gt(b) {
		a, b = b, a
	}
	if a.Eq(b) {
		return nil, nil, ErrInvalidRange
	}
	return a, b, nil
}

func checkU128(l *uint256.Int) (*uint256.Int, error) {
	if !fullmath.FitsU128(l) {
		return nil, ErrOverflow
	}
	return l, nil
}

// GetLiquidityForAmountX returns amount * (sa*sb/2^64) / (sb - sa), floored.
func GetLiquidityForAmountX(sa, sb *uint256.Int, amount uint64) (*uint256.Int, error) {
	sa, sb, err := sortPrices(sa, sb)
	if err != nil {
		return nil, err
	}
	intermediate, err := fullmath.MulDivFloor(sa, sb, fullmath.Q64)
	if err != nil {
		return nil, err
	}
	l, err := fullmath.MulDivFloor(uint256.NewInt(amount), intermediate, new(uint256.Int).Sub(sb, sa))
	if err != nil {
		return nil, err
	}
	return checkU128(l)
}

// GetLiquidityForAmountY returns amount * 2^64 / (sb - sa), floored.
func GetLiquidityForAmountY(sa, sb *uint256.Int, amount uint64) (*uint256.Int, error) {
	sa, sb, err := sortPrices(sa, sb)
	if err != nil {
		return nil, err
	}
	l, err := fullmath.MulDivFloor(uint256.NewInt(amount), fullmath.Q64, new(uint256.Int).Sub(sb, sa))
	if err != nil {
		return nil, err
	}
	return checkU128(l)
}

// GetLiquidityForAmounts returns the largest liquidity both amounts can fund
// at the current price.
func GetLiquidityForAmounts(current, sa, sb *uint256.Int, amountX, amountY uint64) (*uint256.Int, error) {
	sa, sb, err := sortPrices(sa, sb)
	if err != nil {
		return nil, err
	}
	switch {
	case current.Cmp(sa) <= 0:
		return GetLiquidityForAmountX(sa, sb, amountX)
	case current.Lt(sb):
		lx, err := GetLiquidityForAmountX(current, sb, amountX)
		if err != nil {
			return nil, err
		}
		ly, err := GetLiquidityForAmountY(sa, current, amountY)
		if err != nil {
			return nil, err
		}
		if lx.Lt(ly) {
			return lx, nil
		}
		return ly, nil
	default:
		return GetLiquidityForAmountY(sa, sb, amountY)
	}
}

func GetAmountXForLiquidity(sa, sb, l *uint256.Int) (uint64, error) {
	return sqrtprice.GetAmountXDelta(sa, sb, l, false)
}

func GetAmountYForLiquidity(sa, sb, l *uint256.Int) (uint64, error) {
	return sqrtprice.GetAmountYDelta(sa, sb, l, false)
}

// GetAmountsForLiquidity returns the floored token value of l over [sa, sb]
// at the current price.
func GetAmountsForLiquidity(current, sa, sb, l *uint256.Int) (amountX, amountY uint64, err error) {
	sa, sb, err = sortPrices(sa, sb)
	if err != nil {
		return 0, 0, err
	}
	switch {
	case current.Cmp(sa) <= 0:
		amountX, err = GetAmountXForLiquidity(sa, sb, l)
	case current.Lt(sb):
		if amountX, err = GetAmountXForLiquidity(current, sb, l); err != nil {
			return 0, 0, err
		}
		amountY, err = GetAmountYForLiquidity(sa, current, l)
	default:
		amountY, err = GetAmountYForLiquidity(sa, sb, l)
	}
	if err != nil {
		return 0, 0, err
	}
	return amountX, amountY, nil
}
