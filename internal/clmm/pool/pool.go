// Package pool is the concentrated-liquidity pool state machine. A Pool is
// not safe for concurrent use; callers serialize access per pool.
package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/bitmap"
	"github.com/hxuan190/clmm-engine/internal/clmm/oracle"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
	"github.com/hxuan190/clmm-engine/internal/clmm/tick"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

type Config struct {
	ID          string
	CoinX       balance.CoinType
	CoinY       balance.CoinType
	SwapFeeRate uint64
	TickSpacing uint32
	Clock       Clock
	Events      EventSink
}

type Pool struct {
	id    string
	coinX balance.CoinType
	coinY balance.CoinType

	sqrtPrice           uint256.Int
	tickIndex           int32
	tickSpacing         uint32
	maxLiquidityPerTick uint256.Int
	liquidity           uint256.Int

	feeGrowthGlobalX uint256.Int
	feeGrowthGlobalY uint256.Int
	protocolFeeRate  uint8
	swapFeeRate      uint64
	protocolFeeX     uint64
	protocolFeeY     uint64

	ticks        *tick.Table
	bitmap       *bitmap.Bitmap
	observations *oracle.Ring

	reserveX *balance.Balance
	reserveY *balance.Balance
	locked   bool

	clock  Clock
	events EventSink
}

func (c *Config) validate() error {
	if c.CoinX == c.CoinY {
		return fmt.Errorf("%w: %s", ErrIdenticalCoins, c.CoinX)
	}
	if c.SwapFeeRate >= sqrtprice.FeeRateDenominator {
		return fmt.Errorf("%w: %d", ErrInvalidFeeRate, c.SwapFeeRate)
	}
	return nil
}

func newPool(cfg Config) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	maxLiquidity, err := tickmath.MaxLiquidityPerTick(cfg.TickSpacing)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		id:                  cfg.ID,
		coinX:               cfg.CoinX,
		coinY:               cfg.CoinY,
		tickSpacing:         cfg.TickSpacing,
		maxLiquidityPerTick: *maxLiquidity,
		swapFeeRate:         cfg.SwapFeeRate,
		ticks:               tick.NewTable(),
		bitmap:              bitmap.New(),
		observations:        oracle.NewRing(),
		reserveX:            balance.Zero(cfg.CoinX),
		reserveY:            balance.Zero(cfg.CoinY),
		clock:               cfg.Clock,
		events:              cfg.Events,
	}
	if p.clock == nil {
		p.clock = SystemClock{}
	}
	if p.events == nil {
		p.events = nopSink{}
	}
	return p, nil
}

// New creates an uninitialized pool. It stays locked until Initialize.
func New(cfg Config) (*Pool, error) {
	p, err := newPool(cfg)
	if err != nil {
		return nil, err
	}
	p.locked = true
	p.events.Emit(PoolCreatedEvent{
		PoolID:      p.id,
		CoinX:       p.coinX,
		CoinY:       p.coinY,
		SwapFeeRate: p.swapFeeRate,
		TickSpacing: p.tickSpacing,
	})
	return p, nil
}

// Initialize sets the starting price, seeds the oracle and unlocks the pool.
func (p *Pool) Initialize(sqrtPrice *uint256.Int) error {
	if !p.sqrtPrice.IsZero() {
		return ErrAlreadyInitialized
	}
	tickIndex, err := tickmath.TickAtSqrtPrice(sqrtPrice)
	if err != nil {
		return err
	}

	p.sqrtPrice.Set(sqrtPrice)
	p.tickIndex = tickIndex
	p.observations.Initialize(p.clock.NowMs() / 1000)
	p.locked = false

	p.events.Emit(InitializeEvent{PoolID: p.id, SqrtPrice: sqrtPrice.Dec(), Tick: tickIndex})
	return nil
}

// now is the oracle time in seconds. It never runs behind the last
// observation so a clock step backwards cannot corrupt the accumulators.
func (p *Pool) now() uint64 {
	t := p.clock.NowMs() / 1000
	if last := p.observations.LastTimestamp(); t < last {
		return last
	}
	return t
}

// checkUnlocked guards every mutating entrypoint.
func (p *Pool) checkUnlocked() error {
	if p.sqrtPrice.IsZero() {
		return ErrNotInitialized
	}
	if p.locked {
		return ErrAlreadyLocked
	}
	return nil
}

func (p *Pool) globals(now uint64, splCumulative *uint256.Int, tickCumulative int64) tick.Globals {
	return tick.Globals{
		FeeGrowthX:                    new(uint256.Int).Set(&p.feeGrowthGlobalX),
		FeeGrowthY:                    new(uint256.Int).Set(&p.feeGrowthGlobalY),
		SecondsPerLiquidityCumulative: splCumulative,
		TickCumulative:                tickCumulative,
		Time:                          now,
	}
}

func (p *Pool) ID() string                  { return p.id }
func (p *Pool) CoinX() balance.CoinType     { return p.coinX }
func (p *Pool) CoinY() balance.CoinType     { return p.coinY }
func (p *Pool) TickIndex() int32            { return p.tickIndex }
func (p *Pool) TickSpacing() uint32         { return p.tickSpacing }
func (p *Pool) SwapFeeRate() uint64         { return p.swapFeeRate }
func (p *Pool) ProtocolFeeRate() uint8      { return p.protocolFeeRate }
func (p *Pool) ProtocolFees() (x, y uint64) { return p.protocolFeeX, p.protocolFeeY }
func (p *Pool) Reserves() (x, y uint64)     { return p.reserveX.Value(), p.reserveY.Value() }
func (p *Pool) Locked() bool                { return p.locked }
func (p *Pool) Initialized() bool           { return !p.sqrtPrice.IsZero() }

func (p *Pool) SqrtPrice() *uint256.Int {
	return new(uint256.Int).Set(&p.sqrtPrice)
}

func (p *Pool) Liquidity() *uint256.Int {
	return new(uint256.Int).Set(&p.liquidity)
}

func (p *Pool) MaxLiquidityPerTick() *uint256.Int {
	return new(uint256.Int).Set(&p.maxLiquidityPerTick)
}

func (p *Pool) FeeGrowthGlobal() (x, y *uint256.Int) {
	return new(uint256.Int).Set(&p.feeGrowthGlobalX), new(uint256.Int).Set(&p.feeGrowthGlobalY)
}

// Tick returns the ledger entry for an initialized tick.
func (p *Pool) Tick(index int32) (tick.Info, bool) {
	return p.ticks.Get(index)
}

// InitializedTicks returns every tick with liquidity referencing it.
func (p *Pool) InitializedTicks() map[int32]tick.Info {
	return p.ticks.All()
}

// ObservationState returns the oracle index, cardinality and cardinality next.
func (p *Pool) ObservationState() (index, cardinality, cardinalityNext uint64) {
	return p.observations.Index(), p.observations.Cardinality(), p.observations.CardinalityNext()
}
