package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/adapters/persistence"
	"github.com/hxuan190/clmm-engine/internal/clmm/liquidity"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
	"github.com/hxuan190/clmm-engine/internal/metrics"
)

type PositionView struct {
	ID                   string
	Owner                string
	PoolID               string
	TickLower            int32
	TickUpper            int32
	Liquidity            *uint256.Int
	FeeGrowthInsideXLast *uint256.Int
	FeeGrowthInsideYLast *uint256.Int
	CoinsOwedX           uint64
	CoinsOwedY           uint64
}

func positionView(e *positionEntry) *PositionView {
	v := &PositionView{
		ID:        e.id,
		Owner:     e.owner,
		PoolID:    e.pos.PoolID(),
		TickLower: e.pos.TickLower(),
		TickUpper: e.pos.TickUpper(),
		Liquidity: e.pos.Liquidity(),
	}
	v.FeeGrowthInsideXLast, v.FeeGrowthInsideYLast = e.pos.FeeGrowthInsideLast()
	v.CoinsOwedX, v.CoinsOwedY = e.pos.CoinsOwed()
	return v
}

// LiquidityResult reports a liquidity change.
type LiquidityResult struct {
	Liquidity *uint256.Int
	AmountX   uint64
	AmountY   uint64
}

// AddLiquidityRequest deposits up to the desired amounts. The liquidity
// minted is the most the desired amounts allow at the current price.
type AddLiquidityRequest struct {
	AmountXDesired uint64
	AmountYDesired uint64
	AmountXMin     uint64
	AmountYMin     uint64
}

func (svc *Service) OpenPosition(owner, poolID string, lower, upper int32) (*PositionView, error) {
	if owner == "" {
		return nil, ErrInvalidAccount
	}
	var e *positionEntry
	err := svc.withPool(poolID, false, func(p *pool.Pool) error {
		pos, err := p.OpenPosition(lower, upper)
		if err != nil {
			return err
		}
		e = &positionEntry{id: svc.newID(), owner: owner, pos: pos}
		return nil
	})
	metrics.LiquidityOps.WithLabelValues("open", status(err)).Inc()
	if err != nil {
		return nil, err
	}

	svc.mu.Lock()
	svc.positions[e.id] = e
	svc.dirtyPositions[e.id] = struct{}{}
	open := len(svc.positions)
	svc.mu.Unlock()
	metrics.PositionCount.Set(float64(open))

	svc.logger.Pool(poolID).Info().Str("position", e.id).Str("owner", owner).
		Int32("lower", lower).Int32("upper", upper).Msg("[engine] position opened")
	return positionView(e), nil
}

// AddLiquidity withdraws the desired amounts from the owner, mints
// liquidity and credits back whatever the pool did not take.
func (svc *Service) AddLiquidity(owner, positionID string, req AddLiquidityRequest) (*LiquidityResult, error) {
	e, err := svc.entry(owner, positionID)
	if err != nil {
		return nil, err
	}
	return svc.addLiquidity(owner, e, req)
}

func (svc *Service) addLiquidity(owner string, e *positionEntry, req AddLiquidityRequest) (*LiquidityResult, error) {
	positionID := e.id
	var res *LiquidityResult
	err := svc.withPool(e.pos.PoolID(), true, func(p *pool.Pool) error {
		if err := svc.live(e); err != nil {
			return err
		}
		sa, sb, err := rangePrices(e.pos)
		if err != nil {
			return err
		}
		l, err := liquidity.GetLiquidityForAmounts(p.SqrtPrice(), sa, sb, req.AmountXDesired, req.AmountYDesired)
		if err != nil {
			return err
		}
		if l.IsZero() {
			return fmt.Errorf("%w: desired amounts mint no liquidity", pool.ErrZeroAmount)
		}
		// mints round up, so the rounded-down quote is a floor on the deposit
		floorX, floorY, err := liquidity.GetAmountsForLiquidity(p.SqrtPrice(), sa, sb, l)
		if err != nil {
			return err
		}
		if floorX < req.AmountXMin || floorY < req.AmountYMin {
			return fmt.Errorf("%w: would deposit %d/%d, min %d/%d", ErrSlippage, floorX, floorY, req.AmountXMin, req.AmountYMin)
		}
		delta, err := signed.FromU128(l)
		if err != nil {
			return err
		}

		xIn, err := svc.wallet.Withdraw(owner, p.CoinX(), req.AmountXDesired)
		if err != nil {
			return err
		}
		yIn, err := svc.wallet.Withdraw(owner, p.CoinY(), req.AmountYDesired)
		if err != nil {
			_ = svc.wallet.Credit(owner, xIn)
			return err
		}
		defer func() { _ = svc.wallet.Credit(owner, xIn, yIn) }()

		amountX, amountY, err := p.ModifyLiquidity(e.pos, delta, xIn, yIn)
		if err != nil {
			return err
		}
		res = &LiquidityResult{Liquidity: l, AmountX: amountX, AmountY: amountY}
		return nil
	})
	metrics.LiquidityOps.WithLabelValues("add", status(err)).Inc()
	if err != nil {
		return nil, err
	}
	svc.markPosition(positionID)
	svc.logger.Pool(e.pos.PoolID()).Info().Str("position", positionID).Str("liquidity", res.Liquidity.Dec()).
		Uint64("amount_x", res.AmountX).Uint64("amount_y", res.AmountY).Msg("[engine] liquidity added")
	return res, nil
}

// RemoveLiquidity burns liquidity and credits the amounts to the
// position's coins owed. Collect pays them out.
func (svc *Service) RemoveLiquidity(owner, positionID string, amount *uint256.Int, minX, minY uint64) (*LiquidityResult, error) {
	e, err := svc.entry(owner, positionID)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, pool.ErrZeroAmount
	}
	var res *LiquidityResult
	err = svc.withPool(e.pos.PoolID(), true, func(p *pool.Pool) error {
		if err := svc.live(e); err != nil {
			return err
		}
		sa, sb, err := rangePrices(e.pos)
		if err != nil {
			return err
		}
		// burns round down, so the quote is exact
		expX, expY, err := liquidity.GetAmountsForLiquidity(p.SqrtPrice(), sa, sb, amount)
		if err != nil {
			return err
		}
		if expX < minX || expY < minY {
			return fmt.Errorf("%w: would receive %d/%d, min %d/%d", ErrSlippage, expX, expY, minX, minY)
		}
		delta, err := signed.NegFromU128(amount)
		if err != nil {
			return err
		}
		amountX, amountY, err := p.ModifyLiquidity(e.pos, delta, nil, nil)
		if err != nil {
			return err
		}
		res = &LiquidityResult{Liquidity: new(uint256.Int).Set(amount), AmountX: amountX, AmountY: amountY}
		return nil
	})
	metrics.LiquidityOps.WithLabelValues("remove", status(err)).Inc()
	if err != nil {
		return nil, err
	}
	svc.markPosition(positionID)
	svc.logger.Pool(e.pos.PoolID()).Info().Str("position", positionID).Str("liquidity", amount.Dec()).
		Uint64("amount_x", res.AmountX).Uint64("amount_y", res.AmountY).Msg("[engine] liquidity removed")
	return res, nil
}

// Collect pokes the position to credit fresh fees, then pays out up to the
// requested amounts of coins owed.
func (svc *Service) Collect(owner, positionID string, maxX, maxY uint64) (x, y uint64, err error) {
	e, err := svc.entry(owner, positionID)
	if err != nil {
		return 0, 0, err
	}
	err = svc.withPool(e.pos.PoolID(), true, func(p *pool.Pool) error {
		if err := svc.live(e); err != nil {
			return err
		}
		if !e.pos.Liquidity().IsZero() {
			if _, _, err := p.ModifyLiquidity(e.pos, signed.I128{}, nil, nil); err != nil {
				return err
			}
		}
		owedX, owedY := e.pos.CoinsOwed()
		x, y = min(maxX, owedX), min(maxY, owedY)
		return svc.collectOwed(owner, p, e.pos, x, y)
	})
	metrics.LiquidityOps.WithLabelValues("collect", status(err)).Inc()
	if err != nil {
		return 0, 0, err
	}
	svc.markPosition(positionID)
	return x, y, nil
}

// collectOwed pays x and y of coins owed to owner. Both zero is a no-op.
func (svc *Service) collectOwed(owner string, p *pool.Pool, pos *pool.Position, x, y uint64) error {
	if x == 0 && y == 0 {
		return nil
	}
	outX, outY, err := p.Collect(pos, x, y)
	if err != nil {
		return err
	}
	if err := svc.wallet.Credit(owner, outX, outY); err != nil {
		return err
	}
	metrics.FeesCollected.WithLabelValues(string(p.CoinX()), "position").Add(float64(x))
	metrics.FeesCollected.WithLabelValues(string(p.CoinY()), "position").Add(float64(y))
	return nil
}

// ClosePosition retires an empty position.
func (svc *Service) ClosePosition(owner, positionID string) error {
	e, err := svc.entry(owner, positionID)
	if err != nil {
		return err
	}
	var open int
	err = svc.withPool(e.pos.PoolID(), false, func(p *pool.Pool) error {
		if err := svc.live(e); err != nil {
			return err
		}
		if err := p.ClosePosition(e.pos); err != nil {
			return err
		}
		// drop the entry before the pool unlocks so no queued operation sees it
		svc.mu.Lock()
		delete(svc.positions, positionID)
		delete(svc.dirtyPositions, positionID)
		if svc.storage != nil {
			svc.tombstones[positionID] = persistence.PositionRecord{ID: e.id, Owner: e.owner, Closed: true, State: e.pos.State()}
		}
		open = len(svc.positions)
		svc.mu.Unlock()
		return nil
	})
	metrics.LiquidityOps.WithLabelValues("close", status(err)).Inc()
	if err != nil {
		return err
	}
	metrics.PositionCount.Set(float64(open))
	svc.logger.Pool(e.pos.PoolID()).Info().Str("position", positionID).Msg("[engine] position closed")
	return nil
}

func (svc *Service) Position(id string) (*PositionView, error) {
	svc.mu.RLock()
	e, ok := svc.positions[id]
	svc.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	var v *PositionView
	err := svc.withPool(e.pos.PoolID(), false, func(*pool.Pool) error {
		v = positionView(e)
		return nil
	})
	return v, err
}

// Positions lists the owner's open positions ordered by id.
func (svc *Service) Positions(owner string) []*PositionView {
	svc.mu.RLock()
	ids := sortedIDs(svc.positions)
	svc.mu.RUnlock()
	out := make([]*PositionView, 0)
	for _, id := range ids {
		v, err := svc.Position(id)
		if err == nil && v.Owner == owner {
			out = append(out, v)
		}
	}
	return out
}

func rangePrices(pos *pool.Position) (*uint256.Int, *uint256.Int, error) {
	sa, err := tickmath.SqrtPriceAtTick(pos.TickLower())
	if err != nil {
		return nil, nil, err
	}
	sb, err := tickmath.SqrtPriceAtTick(pos.TickUpper())
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
