// Package tick keeps per-tick liquidity and outside-accumulator state.
package tick

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/liquidity"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
)

var (
	ErrLiquidityGrossExceedsMax = errors.New("tick liquidity gross exceeds max per tick")
	ErrLiquidityNetOverflow     = errors.New("tick liquidity net overflow")
)

// Info is the ledger entry for one tick. Outside values are measured on the
// side of the tick away from the current price.
type Info struct {
	LiquidityGross             uint256.Int
	LiquidityNet               signed.I128
	FeeGrowthOutsideX          uint256.Int
	FeeGrowthOutsideY          uint256.Int
	TickCumulativeOutside      int64
	SecondsPerLiquidityOutside uint256.Int
	SecondsOutside             uint64
	Initialized                bool
}

// Globals are the pool-wide accumulators a tick snapshots when it is
// created or crossed.
type Globals struct {
	FeeGrowthX                    *uint256.Int
	FeeGrowthY                    *uint256.Int
	SecondsPerLiquidityCumulative *uint256.Int
	TickCumulative                int64
	Time                          uint64
}

type Table struct {
	ticks map[int32]*Info
}

func NewTable() *Table {
	return &Table{ticks: make(map[int32]*Info)}
}

// Get returns a copy of the tick's state.
func (t *Table) Get(tick int32) (Info, bool) {
	info, ok := t.ticks[tick]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

func (t *Table) Len() int {
	return len(t.ticks)
}

// Update applies delta to tick as the lower (upper=false) or upper bound of
// a range. It reports whether the tick flipped between initialized and not.
// Nothing is written when an error is returned.
func (t *Table) Update(tick, current int32, delta signed.I128, g Globals, upper bool, maxLiquidity *uint256.Int) (bool, error) {
	var info Info
	if existing, ok := t.ticks[tick]; ok {
		info = *existing
	}

	grossBefore := info.LiquidityGross
	grossAfter, err := liquidity.AddDelta(&grossBefore, delta)
	if err != nil {
		return false, err
	}
	if grossAfter.Gt(maxLiquidity) {
		return false, fmt.Errorf("%w: tick %d", ErrLiquidityGrossExceedsMax, tick)
	}

	var net signed.I128
	if upper {
		net, err = info.LiquidityNet.Sub(delta)
	} else {
		net, err = info.LiquidityNet.Add(delta)
	}
	if err != nil {
		return false, fmt.Errorf("%w: tick %d", ErrLiquidityNetOverflow, tick)
	}

	flipped := grossAfter.IsZero() != grossBefore.IsZero()

	if grossBefore.IsZero() {
		// growth before a tick is created is attributed below it
		if tick <= current {
			info.FeeGrowthOutsideX.Set(g.FeeGrowthX)
			info.FeeGrowthOutsideY.Set(g.FeeGrowthY)
			info.SecondsPerLiquidityOutside.Set(g.SecondsPerLiquidityCumulative)
			info.TickCumulativeOutside = g.TickCumulative
			info.SecondsOutside = g.Time
		}
		info.Initialized = true
	}

	info.LiquidityGross = *grossAfter
	info.LiquidityNet = net
	t.ticks[tick] = &info
	return flipped, nil
}

// Cross flips the tick's outside accumulators to the other side and returns
// its net liquidity for a left-to-right crossing.
func (t *Table) Cross(tick int32, g Globals) signed.I128 {
	info, ok := t.ticks[tick]
	if !ok {
		return signed.I128{}
	}
	info.FeeGrowthOutsideX = *fullmath.WrappingSubU128(g.FeeGrowthX, &info.FeeGrowthOutsideX)
	info.FeeGrowthOutsideY = *fullmath.WrappingSubU128(g.FeeGrowthY, &info.FeeGrowthOutsideY)
	info.SecondsPerLiquidityOutside.Sub(g.SecondsPerLiquidityCumulative, &info.SecondsPerLiquidityOutside)
	info.TickCumulativeOutside = g.TickCumulative - info.TickCumulativeOutside
	info.SecondsOutside = g.Time - info.SecondsOutside
	return info.LiquidityNet
}

// Clear drops the tick's storage.
func (t *Table) Clear(tick int32) {
	delete(t.ticks, tick)
}

// Set restores a previously read state, or removes the tick when exists is false.
func (t *Table) Set(tick int32, info Info, exists bool) {
	if !exists {
		delete(t.ticks, tick)
		return
	}
	cp := info
	t.ticks[tick] = &cp
}

// FeeGrowthInside returns the fee growth per unit of liquidity accrued
// inside [lower, upper), modulo 2^128.
func (t *Table) FeeGrowthInside(lower, upper, current int32, globalX, globalY *uint256.Int) (*uint256.Int, *uint256.Int) {
	lo, _ := t.Get(lower)
	hi, _ := t.Get(upper)

	var belowX, belowY, aboveX, aboveY *uint256.Int
	if current >= lower {
		belowX, belowY = &lo.FeeGrowthOutsideX, &lo.FeeGrowthOutsideY
	} else {
		belowX = fullmath.WrappingSubU128(globalX, &lo.FeeGrowthOutsideX)
		belowY = fullmath.WrappingSubU128(globalY, &lo.FeeGrowthOutsideY)
	}
	if current < upper {
		aboveX, aboveY = &hi.FeeGrowthOutsideX, &hi.FeeGrowthOutsideY
	} else {
		aboveX = fullmath.WrappingSubU128(globalX, &hi.FeeGrowthOutsideX)
		aboveY = fullmath.WrappingSubU128(globalY, &hi.FeeGrowthOutsideY)
	}

	insideX := fullmath.WrappingSubU128(fullmath.WrappingSubU128(globalX, belowX), aboveX)
	insideY := fullmath.WrappingSubU128(fullmath.WrappingSubU128(globalY, belowY), aboveY)
	return insideX, insideY
}

// All returns a copy of every stored tick.
func (t *Table) All() map[int32]Info {
	out := make(map[int32]Info, len(t.ticks))
	for k, v := range t.ticks {
		out[k] = *v
	}
	return out
}

// Restore replaces the table contents.
func (t *Table) Restore(ticks map[int32]Info) {
	t.ticks = make(map[int32]*Info, len(ticks))
	for k, v := range ticks {
		cp := v
		t.ticks[k] = &cp
	}
}
