package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/liquidity"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

// ModifyLiquidity adds (delta > 0), removes (delta < 0) or pokes (delta == 0)
// a position's liquidity. Added liquidity is paid by splitting the required
// amounts out of xIn and yIn; whatever remains stays with the caller.
// Removed liquidity and accrued fees are credited to the position's coins
// owed and paid out by Collect.
func (p *Pool) ModifyLiquidity(pos *Position, delta signed.I128, xIn, yIn *balance.Balance) (amountX, amountY uint64, err error) {
	if err := p.checkUnlocked(); err != nil {
		return 0, 0, err
	}
	if pos.poolID != p.id {
		return 0, 0, fmt.Errorf("%w: %s != %s", ErrPoolIdMismatch, pos.poolID, p.id)
	}
	if err := p.checkRange(pos.tickLower, pos.tickUpper); err != nil {
		return 0, 0, err
	}
	if delta.IsZero() && pos.liquidity.IsZero() {
		return 0, 0, ErrNoPositionLiquidity
	}
	adding := delta.Sign() > 0
	if adding && (xIn == nil || yIn == nil) {
		return 0, 0, fmt.Errorf("%w: missing input balance", ErrInsufficientInputAmount)
	}
	if adding && (xIn.Coin() != p.coinX || yIn.Coin() != p.coinY) {
		return 0, 0, fmt.Errorf("%w: got %s/%s", ErrCoinMismatch, xIn.Coin(), yIn.Coin())
	}

	positionLiquidity, err := liquidity.AddDelta(&pos.liquidity, delta)
	if err != nil {
		return 0, 0, err
	}

	lower, upper := pos.tickLower, pos.tickUpper
	savedLower, lowerExisted := p.ticks.Get(lower)
	savedUpper, upperExisted := p.ticks.Get(upper)
	rollback := func() {
		p.ticks.Set(lower, savedLower, lowerExisted)
		p.ticks.Set(upper, savedUpper, upperExisted)
	}

	now := p.now()
	var flippedLower, flippedUpper bool
	if !delta.IsZero() {
		tickCumulative, spl, err := p.observations.ObserveSingle(now, 0, p.tickIndex, &p.liquidity)
		if err != nil {
			return 0, 0, err
		}
		g := p.globals(now, spl, tickCumulative)
		if flippedLower, err = p.ticks.Update(lower, p.tickIndex, delta, g, false, &p.maxLiquidityPerTick); err != nil {
			return 0, 0, err
		}
		if flippedUpper, err = p.ticks.Update(upper, p.tickIndex, delta, g, true, &p.maxLiquidityPerTick); err != nil {
			rollback()
			return 0, 0, err
		}
	}

	insideX, insideY := p.ticks.FeeGrowthInside(lower, upper, p.tickIndex, &p.feeGrowthGlobalX, &p.feeGrowthGlobalY)
	feesX, err := owedFees(&pos.liquidity, insideX, &pos.feeGrowthInsideXLast)
	if err != nil {
		rollback()
		return 0, 0, err
	}
	feesY, err := owedFees(&pos.liquidity, insideY, &pos.feeGrowthInsideYLast)
	if err != nil {
		rollback()
		return 0, 0, err
	}

	var poolLiquidity *uint256.Int
	inRange := p.tickIndex >= lower && p.tickIndex < upper
	if !delta.IsZero() {
		amountX, amountY, poolLiquidity, err = p.liquidityAmounts(lower, upper, delta, inRange)
		if err != nil {
			rollback()
			return 0, 0, err
		}
	}

	owedX, owedY := pos.coinsOwedX, pos.coinsOwedY
	if owedX, err = addOwed(owedX, feesX); err == nil {
		owedY, err = addOwed(owedY, feesY)
	}
	if err == nil && delta.IsNeg() {
		if owedX, err = addOwed(owedX, amountX); err == nil {
			owedY, err = addOwed(owedY, amountY)
		}
	}
	if err != nil {
		rollback()
		return 0, 0, err
	}

	var paidX, paidY *balance.Balance
	if adding {
		if xIn.Value() < amountX || yIn.Value() < amountY {
			rollback()
			return 0, 0, fmt.Errorf("%w: need %d/%d, have %d/%d",
				ErrInsufficientInputAmount, amountX, amountY, xIn.Value(), yIn.Value())
		}
		if err := p.checkReserveHeadroom(amountX, amountY); err != nil {
			rollback()
			return 0, 0, err
		}
		paidX, _ = xIn.Split(amountX)
		paidY, _ = yIn.Split(amountY)
	}

	// commit
	if flippedLower {
		_ = p.bitmap.FlipTick(lower, p.tickSpacing)
	}
	if flippedUpper {
		_ = p.bitmap.FlipTick(upper, p.tickSpacing)
	}
	if delta.IsNeg() {
		if flippedLower {
			p.ticks.Clear(lower)
		}
		if flippedUpper {
			p.ticks.Clear(upper)
		}
	}
	if poolLiquidity != nil {
		p.observations.Write(now, p.tickIndex, &p.liquidity)
		p.liquidity.Set(poolLiquidity)
	}
	if adding {
		_, _ = p.reserveX.Join(paidX)
		_, _ = p.reserveY.Join(paidY)
	}

	pos.liquidity.Set(positionLiquidity)
	pos.feeGrowthInsideXLast.Set(insideX)
	pos.feeGrowthInsideYLast.Set(insideY)
	pos.coinsOwedX, pos.coinsOwedY = owedX, owedY

	p.events.Emit(ModifyLiquidityEvent{
		PoolID:         p.id,
		TickLower:      lower,
		TickUpper:      upper,
		LiquidityDelta: delta.String(),
		AmountX:        amountX,
		AmountY:        amountY,
	})
	return amountX, amountY, nil
}

// liquidityAmounts returns the token amounts for delta over [lower, upper)
// and, when the range is active, the pool liquidity after the change.
func (p *Pool) liquidityAmounts(lower, upper int32, delta signed.I128, inRange bool) (uint64, uint64, *uint256.Int, error) {
	sa, err := tickmath.SqrtPriceAtTick(lower)
	if err != nil {
		return 0, 0, nil, err
	}
	sb, err := tickmath.SqrtPriceAtTick(upper)
	if err != nil {
		return 0, 0, nil, err
	}

	switch {
	case p.tickIndex < lower:
		amountX, err := sqrtprice.GetAmountDeltas(sa, sb, delta, true)
		return amountX, 0, nil, err
	case inRange:
		amountX, err := sqrtprice.GetAmountDeltas(&p.sqrtPrice, sb, delta, true)
		if err != nil {
			return 0, 0, nil, err
		}
		amountY, err := sqrtprice.GetAmountDeltas(sa, &p.sqrtPrice, delta, false)
		if err != nil {
			return 0, 0, nil, err
		}
		poolLiquidity, err := liquidity.AddDelta(&p.liquidity, delta)
		if err != nil {
			return 0, 0, nil, err
		}
		return amountX, amountY, poolLiquidity, nil
	default:
		amountY, err := sqrtprice.GetAmountDeltas(sa, sb, delta, false)
		return 0, amountY, nil, err
	}
}

func addOwed(owed, amount uint64) (uint64, error) {
	sum, err := fullmath.AddU64(owed, amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %d + %d", ErrCoinsOwedOverflow, owed, amount)
	}
	return sum, nil
}

// checkReserveHeadroom rejects deposits that would overflow a reserve.
func (p *Pool) checkReserveHeadroom(amountX, amountY uint64) error {
	if _, err := fullmath.AddU64(p.reserveX.Value(), amountX); err != nil {
		return fmt.Errorf("reserve x: %w", err)
	}
	if _, err := fullmath.AddU64(p.reserveY.Value(), amountY); err != nil {
		return fmt.Errorf("reserve y: %w", err)
	}
	return nil
}
