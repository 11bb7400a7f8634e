package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

// Position is a liquidity range in one pool. Its fields only change through
// ModifyLiquidity and Collect.
type Position struct {
	poolID    string
	coinX     balance.CoinType
	coinY     balance.CoinType
	feeRate   uint64
	tickLower int32
	tickUpper int32

	liquidity            uint256.Int
	feeGrowthInsideXLast uint256.Int
	feeGrowthInsideYLast uint256.Int
	coinsOwedX           uint64
	coinsOwedY           uint64
}

func (pos *Position) PoolID() string          { return pos.poolID }
func (pos *Position) CoinX() balance.CoinType { return pos.coinX }
func (pos *Position) CoinY() balance.CoinType { return pos.coinY }
func (pos *Position) FeeRate() uint64         { return pos.feeRate }
func (pos *Position) TickLower() int32        { return pos.tickLower }
func (pos *Position) TickUpper() int32        { return pos.tickUpper }
func (pos *Position) CoinsOwed() (x, y uint64) {
	return pos.coinsOwedX, pos.coinsOwedY
}

func (pos *Position) Liquidity() *uint256.Int {
	return new(uint256.Int).Set(&pos.liquidity)
}

func (pos *Position) FeeGrowthInsideLast() (x, y *uint256.Int) {
	return new(uint256.Int).Set(&pos.feeGrowthInsideXLast), new(uint256.Int).Set(&pos.feeGrowthInsideYLast)
}

// IsEmpty reports whether the position holds no liquidity and no debts.
func (pos *Position) IsEmpty() bool {
	return pos.liquidity.IsZero() && pos.coinsOwedX == 0 && pos.coinsOwedY == 0
}

func (p *Pool) checkRange(lower, upper int32) error {
	if lower >= upper {
		return fmt.Errorf("%w: lower %d >= upper %d", ErrInvalidTickRange, lower, upper)
	}
	if !tickmath.IsValidIndex(lower, p.tickSpacing) || !tickmath.IsValidIndex(upper, p.tickSpacing) {
		return fmt.Errorf("%w: [%d, %d) spacing %d", ErrInvalidTickRange, lower, upper, p.tickSpacing)
	}
	return nil
}

// OpenPosition creates an empty position over [lower, upper).
func (p *Pool) OpenPosition(lower, upper int32) (*Position, error) {
	if err := p.checkRange(lower, upper); err != nil {
		return nil, err
	}
	return &Position{
		poolID:    p.id,
		coinX:     p.coinX,
		coinY:     p.coinY,
		feeRate:   p.swapFeeRate,
		tickLower: lower,
		tickUpper: upper,
	}, nil
}

// ClosePosition retires a position once its liquidity and debts are zero.
func (p *Pool) ClosePosition(pos *Position) error {
	if pos.poolID != p.id {
		return fmt.Errorf("%w: %s != %s", ErrPoolIdMismatch, pos.poolID, p.id)
	}
	if !pos.IsEmpty() {
		return fmt.Errorf("%w: liquidity %s owed %d/%d", ErrPositionNotEmpty, pos.liquidity.Dec(), pos.coinsOwedX, pos.coinsOwedY)
	}
	return nil
}

// owedFees is the fee income accrued by liquidity since the last snapshot.
func owedFees(liquidity, inside, last *uint256.Int) (uint64, error) {
	growth := fullmath.WrappingSubU128(inside, last)
	fees, err := fullmath.MulDivFloor(growth, liquidity, fullmath.Q64)
	if err != nil {
		return 0, err
	}
	if !fees.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrCoinsOwedOverflow, fees.Dec())
	}
	return fees.Uint64(), nil
}

// PositionState is the persisted form of a position.
type PositionState struct {
	PoolID               string
	CoinX                balance.CoinType
	CoinY                balance.CoinType
	FeeRate              uint64
	TickLower            int32
	TickUpper            int32
	Liquidity            uint256.Int
	FeeGrowthInsideXLast uint256.Int
	FeeGrowthInsideYLast uint256.Int
	CoinsOwedX           uint64
	CoinsOwedY           uint64
}

func (pos *Position) State() PositionState {
	return PositionState{
		PoolID:               pos.poolID,
		CoinX:                pos.coinX,
		CoinY:                pos.coinY,
		FeeRate:              pos.feeRate,
		TickLower:            pos.tickLower,
		TickUpper:            pos.tickUpper,
		Liquidity:            pos.liquidity,
		FeeGrowthInsideXLast: pos.feeGrowthInsideXLast,
		FeeGrowthInsideYLast: pos.feeGrowthInsideYLast,
		CoinsOwedX:           pos.coinsOwedX,
		CoinsOwedY:           pos.coinsOwedY,
	}
}

// RestorePosition rebuilds a position from persisted state.
func RestorePosition(s PositionState) (*Position, error) {
	if s.TickLower >= s.TickUpper {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidTickRange, s.TickLower, s.TickUpper)
	}
	if !fullmath.FitsU128(&s.Liquidity) {
		return nil, fmt.Errorf("position liquidity %s exceeds u128", s.Liquidity.Dec())
	}
	return &Position{
		poolID:               s.PoolID,
		coinX:                s.CoinX,
		coinY:                s.CoinY,
		feeRate:              s.FeeRate,
		tickLower:            s.TickLower,
		tickUpper:            s.TickUpper,
		liquidity:            s.Liquidity,
		feeGrowthInsideXLast: s.FeeGrowthInsideXLast,
		feeGrowthInsideYLast: s.FeeGrowthInsideYLast,
		coinsOwedX:           s.CoinsOwedX,
		coinsOwedY:           s.CoinsOwedY,
	}, nil
}
