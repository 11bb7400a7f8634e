package sqrtprice

import (
	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
)

// FeeRateDenominator is the scale of swap fee rates (parts per million).
const FeeRateDenominator uint64 = 1_000_000

type SwapStep struct {
	NextSqrtPrice *uint256.Int
	AmountIn      uint64
	AmountOut     uint64
	FeeAmount     uint64
}

// ComputeSwapStep swaps within [current, target] given the active liquidity.
// The direction is x-for-y when current >= target. The returned price never
// passes target.
func ComputeSwapStep(
	current, target, liquidity *uint256.Int,
	amountRemaining uint64,
	feeRate uint64,
	exactIn bool,
) (*SwapStep, error) {
	xForY := current.Cmp(target) >= 0
	step := &SwapStep{}

	var amountIn, amountOut *uint256.Int
	var err error

	if exactIn {
		remainingLessFee, err := fullmath.MulDivFloorU64(amountRemaining, FeeRateDenominator-feeRate, FeeRateDenominator)
		if err != nil {
			return nil, err
		}
		if xForY {
			amountIn, err = AmountXDelta(target, current, liquidity, true)
		} else {
			amountIn, err = AmountYDelta(current, target, liquidity, true)
		}
		if err != nil {
			return nil, err
		}
		if uint256.NewInt(remainingLessFee).Cmp(amountIn) >= 0 {
			step.NextSqrtPrice = new(uint256.Int).Set(target)
		} else {
			step.NextSqrtPrice, err = GetNextSqrtPriceFromInput(current, liquidity, remainingLessFee, xForY)
			if err != nil {
				return nil, err
			}
		}
	} else {
		if xForY {
			amountOut, err = AmountYDelta(target, current, liquidity, false)
		} else {
			amountOut, err = AmountXDelta(current, target, liquidity, false)
		}
		if err != nil {
			return nil, err
		}
		if uint256.NewInt(amountRemaining).Cmp(amountOut) >= 0 {
			step.NextSqrtPrice = new(uint256.Int).Set(target)
		} else {
			step.NextSqrtPrice, err = GetNextSqrtPriceFromOutput(current, liquidity, amountRemaining, xForY)
			if err != nil {
				return nil, err
			}
		}
	}

	reachedTarget := step.NextSqrtPrice.Eq(target)

	if xForY {
		if !(reachedTarget && exactIn) {
			if amountIn, err = AmountXDelta(step.NextSqrtPrice, current, liquidity, true); err != nil {
				return nil, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if amountOut, err = AmountYDelta(step.NextSqrtPrice, current, liquidity, false); err != nil {
				return nil, err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			if amountIn, err = AmountYDelta(current, step.NextSqrtPrice, liquidity, true); err != nil {
				return nil, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if amountOut, err = AmountXDelta(current, step.NextSqrtPrice, liquidity, false); err != nil {
				return nil, err
			}
		}
	}

	if step.AmountIn, err = toAmount(amountIn); err != nil {
		return nil, err
	}
	if !exactIn && amountOut.Cmp(uint256.NewInt(amountRemaining)) > 0 {
		amountOut = uint256.NewInt(amountRemaining)
	}
	if step.AmountOut, err = toAmount(amountOut); err != nil {
		return nil, err
	}

	if exactIn && !reachedTarget {
		step.FeeAmount = amountRemaining - step.AmountIn
	} else {
		step.FeeAmount, err = fullmath.MulDivRoundU64(step.AmountIn, feeRate, FeeRateDenominator-feeRate)
		if err != nil {
			return nil, err
		}
	}
	return step, nil
}
