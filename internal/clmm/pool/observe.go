package pool

import (
	"fmt"

	"github.com/holiman/uint256"
)

// IncreaseObservationCardinalityNext preallocates oracle slots. It returns
// the resulting cardinality next and never shrinks it.
func (p *Pool) IncreaseObservationCardinalityNext(next uint64) (uint64, error) {
	if err := p.checkUnlocked(); err != nil {
		return 0, err
	}
	old := p.observations.CardinalityNext()
	grown, err := p.observations.Grow(next)
	if err != nil {
		return 0, err
	}
	if grown != old {
		p.events.Emit(ObservationCardinalityEvent{PoolID: p.id, Old: old, New: grown})
	}
	return grown, nil
}

// Observe returns the tick and seconds-per-liquidity accumulators for each
// of secondsAgos.
func (p *Pool) Observe(secondsAgos []uint64) ([]int64, []*uint256.Int, error) {
	if p.sqrtPrice.IsZero() {
		return nil, nil, ErrNotInitialized
	}
	return p.observations.Observe(p.now(), secondsAgos, p.tickIndex, &p.liquidity)
}

// Cumulatives is a snapshot of the accumulators inside a tick range. Only
// differences between two snapshots of the same range are meaningful.
type Cumulatives struct {
	TickCumulativeInside      int64
	SecondsPerLiquidityInside *uint256.Int
	SecondsInside             uint64
}

// SnapshotCumulativesInside requires both bounds to be initialized ticks.
func (p *Pool) SnapshotCumulativesInside(lower, upper int32) (*Cumulatives, error) {
	if p.sqrtPrice.IsZero() {
		return nil, ErrNotInitialized
	}
	if err := p.checkRange(lower, upper); err != nil {
		return nil, err
	}
	lo, ok := p.ticks.Get(lower)
	if !ok || !lo.Initialized {
		return nil, fmt.Errorf("%w: %d", ErrTickNotInitialized, lower)
	}
	hi, ok := p.ticks.Get(upper)
	if !ok || !hi.Initialized {
		return nil, fmt.Errorf("%w: %d", ErrTickNotInitialized, upper)
	}

	switch {
	case p.tickIndex < lower:
		return &Cumulatives{
			TickCumulativeInside:      lo.TickCumulativeOutside - hi.TickCumulativeOutside,
			SecondsPerLiquidityInside: new(uint256.Int).Sub(&lo.SecondsPerLiquidityOutside, &hi.SecondsPerLiquidityOutside),
			SecondsInside:             lo.SecondsOutside - hi.SecondsOutside,
		}, nil
	case p.tickIndex < upper:
		now := p.now()
		tickCumulative, spl, err := p.observations.ObserveSingle(now, 0, p.tickIndex, &p.liquidity)
		if err != nil {
			return nil, err
		}
		spl.Sub(spl, &lo.SecondsPerLiquidityOutside)
		spl.Sub(spl, &hi.SecondsPerLiquidityOutside)
		return &Cumulatives{
			TickCumulativeInside:      tickCumulative - lo.TickCumulativeOutside - hi.TickCumulativeOutside,
			SecondsPerLiquidityInside: spl,
			SecondsInside:             now - lo.SecondsOutside - hi.SecondsOutside,
		}, nil
	default:
		return &Cumulatives{
			TickCumulativeInside:      hi.TickCumulativeOutside - lo.TickCumulativeOutside,
			SecondsPerLiquidityInside: new(uint256.Int).Sub(&hi.SecondsPerLiquidityOutside, &lo.SecondsPerLiquidityOutside),
			SecondsInside:             hi.SecondsOutside - lo.SecondsOutside,
		}, nil
	}
}
