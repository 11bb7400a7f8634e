package engine

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/adapters/persistence"
	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/metrics"
)

// PoolView is a consistent copy of a pool's header taken under its lock.
type PoolView struct {
	ID               string
	CoinX            balance.CoinType
	CoinY            balance.CoinType
	SwapFeeRate      uint64
	TickSpacing      uint32
	Initialized      bool
	Locked           bool
	SqrtPrice        *uint256.Int
	Tick             int32
	Liquidity        *uint256.Int
	FeeGrowthGlobalX *uint256.Int
	FeeGrowthGlobalY *uint256.Int
	ProtocolFeeRate  uint8
	ProtocolFeeX     uint64
	ProtocolFeeY     uint64
	ReserveX         uint64
	ReserveY         uint64

	ObservationIndex           uint64
	ObservationCardinality     uint64
	ObservationCardinalityNext uint64
}

func viewOf(p *pool.Pool) *PoolView {
	v := &PoolView{
		ID:          p.ID(),
		CoinX:       p.CoinX(),
		CoinY:       p.CoinY(),
		SwapFeeRate: p.SwapFeeRate(),
		TickSpacing: p.TickSpacing(),
		Initialized: p.Initialized(),
		Locked:      p.Locked(),
		SqrtPrice:   p.SqrtPrice(),
		Tick:        p.TickIndex(),
		Liquidity:   p.Liquidity(),
	}
	v.FeeGrowthGlobalX, v.FeeGrowthGlobalY = p.FeeGrowthGlobal()
	v.ProtocolFeeRate = p.ProtocolFeeRate()
	v.ProtocolFeeX, v.ProtocolFeeY = p.ProtocolFees()
	v.ReserveX, v.ReserveY = p.Reserves()
	v.ObservationIndex, v.ObservationCardinality, v.ObservationCardinalityNext = p.ObservationState()
	return v
}

// TickView is one initialized tick.
type TickView struct {
	Index             int32
	LiquidityGross    *uint256.Int
	LiquidityNet      signed.I128
	FeeGrowthOutsideX *uint256.Int
	FeeGrowthOutsideY *uint256.Int
}

// CreatePool registers a pool for the pair and fee tier. A nil sqrtPrice
// leaves it uninitialized.
func (svc *Service) CreatePool(coinA, coinB balance.CoinType, fee uint64, sqrtPrice *uint256.Int) (*PoolView, error) {
	var (
		p   *pool.Pool
		err error
	)
	if sqrtPrice == nil {
		p, err = svc.pools.CreatePool(coinA, coinB, fee)
	} else {
		p, err = svc.pools.CreateAndInitialize(coinA, coinB, fee, sqrtPrice)
	}
	if err != nil {
		return nil, err
	}
	metrics.PoolCount.Set(float64(svc.pools.Len()))
	svc.logger.Pool(p.ID()).Info().
		Str("coin_x", string(p.CoinX())).
		Str("coin_y", string(p.CoinY())).
		Uint64("fee", fee).
		Bool("initialized", p.Initialized()).
		Msg("[engine] pool created")

	var view *PoolView
	err = svc.withPool(p.ID(), true, func(p *pool.Pool) error {
		view = viewOf(p)
		return nil
	})
	return view, err
}

func (svc *Service) InitializePool(id string, sqrtPrice *uint256.Int) (*PoolView, error) {
	var view *PoolView
	err := svc.withPool(id, true, func(p *pool.Pool) error {
		if err := p.Initialize(sqrtPrice); err != nil {
			return err
		}
		view = viewOf(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Pool(id).Info().Str("sqrt_price", sqrtPrice.Dec()).Int32("tick", view.Tick).Msg("[engine] pool initialized")
	return view, nil
}

func (svc *Service) EnableFeeTier(fee uint64, spacing uint32) error {
	if err := svc.pools.EnableFeeTier(fee, spacing); err != nil {
		return err
	}
	svc.logger.Info().Uint64("fee", fee).Uint32("spacing", spacing).Msg("[engine] fee tier enabled")
	return nil
}

func (svc *Service) FeeTiers() map[uint64]uint32 {
	return svc.pools.FeeTiers()
}

func (svc *Service) Pool(id string) (*PoolView, error) {
	var view *PoolView
	err := svc.withPool(id, false, func(p *pool.Pool) error {
		view = viewOf(p)
		return nil
	})
	return view, err
}

// FindPool looks a pool up by pair (either order) and fee tier.
func (svc *Service) FindPool(coinA, coinB balance.CoinType, fee uint64) (*PoolView, bool) {
	p, ok := svc.pools.Get(coinA, coinB, fee)
	if !ok {
		return nil, false
	}
	view, err := svc.Pool(p.ID())
	return view, err == nil
}

// Pools returns every pool ordered by id.
func (svc *Service) Pools() []*PoolView {
	list := svc.pools.List()
	out := make([]*PoolView, 0, len(list))
	for _, p := range list {
		if view, err := svc.Pool(p.ID()); err == nil {
			out = append(out, view)
		}
	}
	return out
}

// Ticks returns the pool's initialized ticks in ascending order.
func (svc *Service) Ticks(id string) ([]TickView, error) {
	var out []TickView
	err := svc.withPool(id, false, func(p *pool.Pool) error {
		ticks := p.InitializedTicks()
		out = make([]TickView, 0, len(ticks))
		for index, info := range ticks {
			info := info
			out = append(out, TickView{
				Index:             index,
				LiquidityGross:    new(uint256.Int).Set(&info.LiquidityGross),
				LiquidityNet:      info.LiquidityNet,
				FeeGrowthOutsideX: new(uint256.Int).Set(&info.FeeGrowthOutsideX),
				FeeGrowthOutsideY: new(uint256.Int).Set(&info.FeeGrowthOutsideY),
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, err
}

func (svc *Service) Observe(id string, secondsAgos []uint64) ([]int64, []*uint256.Int, error) {
	var (
		ticks []int64
		spls  []*uint256.Int
	)
	err := svc.withPool(id, false, func(p *pool.Pool) error {
		var err error
		ticks, spls, err = p.Observe(secondsAgos)
		return err
	})
	return ticks, spls, err
}

func (svc *Service) SnapshotCumulativesInside(id string, lower, upper int32) (*pool.Cumulatives, error) {
	var c *pool.Cumulatives
	err := svc.withPool(id, false, func(p *pool.Pool) error {
		var err error
		c, err = p.SnapshotCumulativesInside(lower, upper)
		return err
	})
	return c, err
}

// Events returns up to limit of the newest events of a pool, oldest first.
func (svc *Service) Events(poolID string, limit int) []persistence.EventRecord {
	if limit <= 0 || limit > svc.conf.EventBuffer {
		limit = svc.conf.EventBuffer
	}
	return svc.events.Recent(poolID, limit)
}
