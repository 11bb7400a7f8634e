package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/oracle"
	"github.com/hxuan190/clmm-engine/internal/clmm/tick"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

// State is the complete persisted form of a pool.
type State struct {
	ID               string
	CoinX            balance.CoinType
	CoinY            balance.CoinType
	SqrtPrice        uint256.Int
	TickIndex        int32
	TickSpacing      uint32
	Liquidity        uint256.Int
	FeeGrowthGlobalX uint256.Int
	FeeGrowthGlobalY uint256.Int
	ProtocolFeeRate  uint8
	SwapFeeRate      uint64
	ProtocolFeeX     uint64
	ProtocolFeeY     uint64
	ReserveX         uint64
	ReserveY         uint64
	Locked           bool

	Ticks        map[int32]tick.Info
	BitmapWords  map[int32]uint256.Int
	Observations oracle.Snapshot
}

// Export copies the pool state.
func (p *Pool) Export() State {
	return State{
		ID:               p.id,
		CoinX:            p.coinX,
		CoinY:            p.coinY,
		SqrtPrice:        p.sqrtPrice,
		TickIndex:        p.tickIndex,
		TickSpacing:      p.tickSpacing,
		Liquidity:        p.liquidity,
		FeeGrowthGlobalX: p.feeGrowthGlobalX,
		FeeGrowthGlobalY: p.feeGrowthGlobalY,
		ProtocolFeeRate:  p.protocolFeeRate,
		SwapFeeRate:      p.swapFeeRate,
		ProtocolFeeX:     p.protocolFeeX,
		ProtocolFeeY:     p.protocolFeeY,
		ReserveX:         p.reserveX.Value(),
		ReserveY:         p.reserveY.Value(),
		Locked:           p.locked,
		Ticks:            p.ticks.All(),
		BitmapWords:      p.bitmap.Words(),
		Observations:     p.observations.Snapshot(),
	}
}

// Import rebuilds a pool from exported state. Clock and Events come from cfg;
// identity and fee settings come from s.
func Import(cfg Config, s State) (*Pool, error) {
	cfg.ID, cfg.CoinX, cfg.CoinY = s.ID, s.CoinX, s.CoinY
	cfg.SwapFeeRate, cfg.TickSpacing = s.SwapFeeRate, s.TickSpacing
	p, err := newPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("import pool %s: %w", s.ID, err)
	}

	if !s.SqrtPrice.IsZero() {
		tickIndex, err := tickmath.TickAtSqrtPrice(&s.SqrtPrice)
		if err != nil {
			return nil, fmt.Errorf("import pool %s: %w", s.ID, err)
		}
		// a swap ending on a tick boundary moving down leaves the tick one below
		if tickIndex != s.TickIndex && tickIndex-1 != s.TickIndex {
			return nil, fmt.Errorf("import pool %s: tick %d inconsistent with price (tick %d)", s.ID, s.TickIndex, tickIndex)
		}
	}
	if err := p.observations.Restore(s.Observations); err != nil {
		return nil, fmt.Errorf("import pool %s: %w", s.ID, err)
	}

	p.sqrtPrice = s.SqrtPrice
	p.tickIndex = s.TickIndex
	p.liquidity = s.Liquidity
	p.feeGrowthGlobalX = s.FeeGrowthGlobalX
	p.feeGrowthGlobalY = s.FeeGrowthGlobalY
	p.protocolFeeRate = s.ProtocolFeeRate
	p.protocolFeeX = s.ProtocolFeeX
	p.protocolFeeY = s.ProtocolFeeY
	p.reserveX = balance.New(s.CoinX, s.ReserveX)
	p.reserveY = balance.New(s.CoinY, s.ReserveY)
	p.locked = s.Locked || s.SqrtPrice.IsZero()
	p.ticks.Restore(s.Ticks)
	p.bitmap.Restore(s.BitmapWords)
	return p, nil
}
