package pool

import (
	"fmt"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
)

// Collect pays out up to the requested amounts of a position's coins owed.
// Fees are only credited to coins owed when the position is touched, so
// callers poke with a zero ModifyLiquidity first to include fresh fees.
func (p *Pool) Collect(pos *Position, requestX, requestY uint64) (outX, outY *balance.Balance, err error) {
	if err := p.checkUnlocked(); err != nil {
		return nil, nil, err
	}
	if pos.poolID != p.id {
		return nil, nil, fmt.Errorf("%w: %s != %s", ErrPoolIdMismatch, pos.poolID, p.id)
	}
	if requestX == 0 && requestY == 0 {
		return nil, nil, ErrZeroAmount
	}

	amountX := min(requestX, pos.coinsOwedX)
	amountY := min(requestY, pos.coinsOwedY)
	if err := p.checkReserves(amountX, amountY); err != nil {
		return nil, nil, err
	}

	outX, _ = p.reserveX.Split(amountX)
	outY, _ = p.reserveY.Split(amountY)
	pos.coinsOwedX -= amountX
	pos.coinsOwedY -= amountY

	p.events.Emit(CollectEvent{
		PoolID:    p.id,
		TickLower: pos.tickLower,
		TickUpper: pos.tickUpper,
		AmountX:   amountX,
		AmountY:   amountY,
	})
	return outX, outY, nil
}

// CollectProtocolFee withdraws up to the requested accrued protocol fees.
func (p *Pool) CollectProtocolFee(requestX, requestY uint64) (outX, outY *balance.Balance, err error) {
	if err := p.checkUnlocked(); err != nil {
		return nil, nil, err
	}
	if requestX == 0 && requestY == 0 {
		return nil, nil, ErrZeroAmount
	}

	amountX := min(requestX, p.protocolFeeX)
	amountY := min(requestY, p.protocolFeeY)
	if err := p.checkReserves(amountX, amountY); err != nil {
		return nil, nil, err
	}

	outX, _ = p.reserveX.Split(amountX)
	outY, _ = p.reserveY.Split(amountY)
	p.protocolFeeX -= amountX
	p.protocolFeeY -= amountY

	p.events.Emit(CollectProtocolFeeEvent{PoolID: p.id, AmountX: amountX, AmountY: amountY})
	return outX, outY, nil
}

func (p *Pool) checkReserves(amountX, amountY uint64) error {
	if p.reserveX.Value() < amountX || p.reserveY.Value() < amountY {
		return fmt.Errorf("%w: need %d/%d, reserves %d/%d",
			ErrInsufficientReserve, amountX, amountY, p.reserveX.Value(), p.reserveY.Value())
	}
	return nil
}

// SetProtocolFeeRate sets the packed protocol fee denominators: the low
// nibble applies to swaps paying in X, the high nibble to swaps paying in Y.
// Each nibble is 0 (off) or 4 through 10, taking 1/n of the swap fee.
func (p *Pool) SetProtocolFeeRate(rate uint8) error {
	if err := p.checkUnlocked(); err != nil {
		return err
	}
	if !validProtocolFee(rate%16) || !validProtocolFee(rate>>4) {
		return fmt.Errorf("%w: %#x", ErrInvalidProtocolFeeRate, rate)
	}
	old := p.protocolFeeRate
	p.protocolFeeRate = rate
	p.events.Emit(FeeRateChangedEvent{PoolID: p.id, OldRate: old, NewRate: rate})
	return nil
}

func validProtocolFee(n uint8) bool {
	return n == 0 || (n >= 4 && n <= 10)
}
