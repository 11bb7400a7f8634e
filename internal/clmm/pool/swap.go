package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
	"github.com/hxuan190/clmm-engine/internal/clmm/tick"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
)

// SwapReceipt records what a swap caller owes the pool. It must be settled
// exactly once with Pay.
type SwapReceipt struct {
	poolID   string
	debtX    uint64
	debtY    uint64
	consumed bool
}

func (r *SwapReceipt) PoolID() string       { return r.poolID }
func (r *SwapReceipt) Debts() (x, y uint64) { return r.debtX, r.debtY }

// SwapResult is the outcome of running the swap loop.
type SwapResult struct {
	AmountIn     uint64
	AmountOut    uint64
	FeeAmount    uint64
	ProtocolFee  uint64
	SqrtPrice    *uint256.Int
	Tick         int32
	Liquidity    *uint256.Int
	Steps        int
	TicksCrossed int

	feeGrowth *uint256.Int
	crossings []crossing
}

type crossing struct {
	tick    int32
	globals tick.Globals
}

// protocolFeeFor unpacks the protocol fee denominator for the input side.
func (p *Pool) protocolFeeFor(xForY bool) uint64 {
	if xForY {
		return uint64(p.protocolFeeRate % 16)
	}
	return uint64(p.protocolFeeRate >> 4)
}

func (p *Pool) checkPriceLimit(xForY bool, limit *uint256.Int) error {
	if xForY {
		if limit.Cmp(&p.sqrtPrice) >= 0 {
			return fmt.Errorf("%w: limit %s >= price %s", ErrPriceLimitAlreadyExceeded, limit.Dec(), p.sqrtPrice.Dec())
		}
		if limit.Cmp(tickmath.MinSqrtPrice) <= 0 {
			return fmt.Errorf("%w: %s", ErrPriceLimitOutOfBounds, limit.Dec())
		}
		return nil
	}
	if limit.Cmp(&p.sqrtPrice) <= 0 {
		return fmt.Errorf("%w: limit %s <= price %s", ErrPriceLimitAlreadyExceeded, limit.Dec(), p.sqrtPrice.Dec())
	}
	if limit.Cmp(tickmath.MaxSqrtPrice) >= 0 {
		return fmt.Errorf("%w: %s", ErrPriceLimitOutOfBounds, limit.Dec())
	}
	return nil
}

// computeSwap runs the swap loop against a read-only view of the pool.
// Tick crossings are returned for the caller to apply on commit.
func (p *Pool) computeSwap(xForY, exactIn bool, amount uint64, limit *uint256.Int, now uint64) (*SwapResult, error) {
	protocolFeeRate := p.protocolFeeFor(xForY)

	feeGrowth := new(uint256.Int).Set(&p.feeGrowthGlobalY)
	if xForY {
		feeGrowth.Set(&p.feeGrowthGlobalX)
	}

	var (
		remaining   = amount
		calculated  uint64
		feeTotal    uint64
		protocolFee uint64
		price       = new(uint256.Int).Set(&p.sqrtPrice)
		tickIndex   = p.tickIndex
		active      = new(uint256.Int).Set(&p.liquidity)
		steps       int
		crossings   []crossing

		observed       bool
		tickCumulative int64
		spl            *uint256.Int
	)

	for remaining != 0 && !price.Eq(limit) {
		next, initialized := p.bitmap.NextInitializedTickWithinOneWord(tickIndex, p.tickSpacing, xForY)
		if next < tickmath.MinTick {
			next = tickmath.MinTick
		} else if next > tickmath.MaxTick {
			next = tickmath.MaxTick
		}
		nextPrice, err := tickmath.SqrtPriceAtTick(next)
		if err != nil {
			return nil, err
		}

		target := nextPrice
		if (xForY && nextPrice.Lt(limit)) || (!xForY && nextPrice.Gt(limit)) {
			target = limit
		}

		step, err := sqrtprice.ComputeSwapStep(price, target, active, remaining, p.swapFeeRate, exactIn)
		if err != nil {
			return nil, err
		}
		steps++

		if exactIn {
			remaining -= step.AmountIn + step.FeeAmount
			if calculated, err = fullmath.AddU64(calculated, step.AmountOut); err != nil {
				return nil, fmt.Errorf("swap output: %w", err)
			}
		} else {
			remaining -= step.AmountOut
			in, err := fullmath.AddU64(step.AmountIn, step.FeeAmount)
			if err == nil {
				calculated, err = fullmath.AddU64(calculated, in)
			}
			if err != nil {
				return nil, fmt.Errorf("swap input: %w", err)
			}
		}
		feeTotal += step.FeeAmount

		fee := step.FeeAmount
		if protocolFeeRate > 0 {
			cut := fee / protocolFeeRate
			fee -= cut
			protocolFee += cut
		}
		if !active.IsZero() && fee > 0 {
			growth := new(uint256.Int).Lsh(uint256.NewInt(fee), 64)
			growth.Div(growth, active)
			feeGrowth = fullmath.WrappingAddU128(feeGrowth, growth)
		}

		if step.NextSqrtPrice.Eq(nextPrice) {
			if initialized {
				if !observed {
					tickCumulative, spl, err = p.observations.ObserveSingle(now, 0, p.tickIndex, &p.liquidity)
					if err != nil {
						return nil, err
					}
					observed = true
				}
				g := p.globals(now, new(uint256.Int).Set(spl), tickCumulative)
				if xForY {
					g.FeeGrowthX = new(uint256.Int).Set(feeGrowth)
				} else {
					g.FeeGrowthY = new(uint256.Int).Set(feeGrowth)
				}
				crossings = append(crossings, crossing{tick: next, globals: g})

				info, _ := p.ticks.Get(next)
				net := info.LiquidityNet
				if xForY {
					net = net.Neg()
				}
				if active, err = addLiquidityNet(active, net); err != nil {
					return nil, err
				}
			}
			if xForY {
				tickIndex = next - 1
			} else {
				tickIndex = next
			}
		} else if !step.NextSqrtPrice.Eq(price) {
			if tickIndex, err = tickmath.TickAtSqrtPrice(step.NextSqrtPrice); err != nil {
				return nil, err
			}
		}
		price = step.NextSqrtPrice
	}

	res := &SwapResult{
		FeeAmount:    feeTotal,
		ProtocolFee:  protocolFee,
		SqrtPrice:    price,
		Tick:         tickIndex,
		Liquidity:    active,
		Steps:        steps,
		TicksCrossed: len(crossings),
		feeGrowth:    feeGrowth,
		crossings:    crossings,
	}
	if exactIn {
		res.AmountIn, res.AmountOut = amount-remaining, calculated
	} else {
		res.AmountIn, res.AmountOut = calculated, amount-remaining
	}
	return res, nil
}

func addLiquidityNet(active *uint256.Int, net signed.I128) (*uint256.Int, error) {
	abs := net.Abs()
	if net.IsNeg() {
		if abs.Gt(active) {
			return nil, fmt.Errorf("%w: active %s crossing %s", ErrInsufficientLiquidity, active.Dec(), net)
		}
		return new(uint256.Int).Sub(active, abs), nil
	}
	sum := new(uint256.Int).Add(active, abs)
	if !fullmath.FitsU128(sum) {
		return nil, fmt.Errorf("%w: active liquidity %s", fullmath.ErrU128Overflow, sum.Dec())
	}
	return sum, nil
}

func (p *Pool) checkSwap(xForY bool, amount uint64, limit *uint256.Int) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	return p.checkPriceLimit(xForY, limit)
}

// QuoteSwap runs the swap loop without changing any state.
func (p *Pool) QuoteSwap(xForY, exactIn bool, amount uint64, limit *uint256.Int) (*SwapResult, error) {
	if p.sqrtPrice.IsZero() {
		return nil, ErrNotInitialized
	}
	if err := p.checkSwap(xForY, amount, limit); err != nil {
		return nil, err
	}
	return p.computeSwap(xForY, exactIn, amount, limit, p.now())
}

// Swap trades against the pool. The output balance is handed out at once
// and the pool stays locked until the receipt's debt is settled with Pay.
// One of the returned balances is always zero.
func (p *Pool) Swap(xForY, exactIn bool, amount uint64, limit *uint256.Int) (outX, outY *balance.Balance, receipt *SwapReceipt, err error) {
	if err := p.checkUnlocked(); err != nil {
		return nil, nil, nil, err
	}
	if err := p.checkSwap(xForY, amount, limit); err != nil {
		return nil, nil, nil, err
	}

	now := p.now()
	res, err := p.computeSwap(xForY, exactIn, amount, limit, now)
	if err != nil {
		return nil, nil, nil, err
	}

	reserveOut := p.reserveY
	if !xForY {
		reserveOut = p.reserveX
	}
	if reserveOut.Value() < res.AmountOut {
		return nil, nil, nil, fmt.Errorf("%w: out %d reserve %d", ErrInsufficientReserve, res.AmountOut, reserveOut.Value())
	}
	protocolX, protocolY := p.protocolFeeX, p.protocolFeeY
	if xForY {
		protocolX, err = fullmath.AddU64(protocolX, res.ProtocolFee)
	} else {
		protocolY, err = fullmath.AddU64(protocolY, res.ProtocolFee)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("protocol fee: %w", err)
	}

	// commit
	for _, c := range res.crossings {
		p.ticks.Cross(c.tick, c.globals)
	}
	if res.Tick != p.tickIndex {
		p.observations.Write(now, p.tickIndex, &p.liquidity)
	}
	p.sqrtPrice.Set(res.SqrtPrice)
	p.tickIndex = res.Tick
	p.liquidity.Set(res.Liquidity)
	if xForY {
		p.feeGrowthGlobalX.Set(res.feeGrowth)
	} else {
		p.feeGrowthGlobalY.Set(res.feeGrowth)
	}
	p.protocolFeeX, p.protocolFeeY = protocolX, protocolY

	out, _ := reserveOut.Split(res.AmountOut)
	receipt = &SwapReceipt{poolID: p.id}
	if xForY {
		outX, outY = balance.Zero(p.coinX), out
		receipt.debtX = res.AmountIn
	} else {
		outX, outY = out, balance.Zero(p.coinY)
		receipt.debtY = res.AmountIn
	}
	p.locked = true

	p.events.Emit(SwapEvent{
		PoolID:       p.id,
		XForY:        xForY,
		ExactIn:      exactIn,
		AmountIn:     res.AmountIn,
		AmountOut:    res.AmountOut,
		FeeAmount:    res.FeeAmount,
		ProtocolFee:  res.ProtocolFee,
		SqrtPrice:    res.SqrtPrice.Dec(),
		Liquidity:    res.Liquidity.Dec(),
		Tick:         res.Tick,
		TicksCrossed: res.TicksCrossed,
	})
	return outX, outY, receipt, nil
}

// Pay settles a swap receipt and unlocks the pool. Payments are joined into
// the reserves whole. A failed payment leaves the receipt open.
func (p *Pool) Pay(receipt *SwapReceipt, payX, payY *balance.Balance) error {
	if receipt.consumed {
		return ErrReceiptConsumed
	}
	if receipt.poolID != p.id {
		return fmt.Errorf("%w: %s != %s", ErrPoolIdMismatch, receipt.poolID, p.id)
	}
	if err := p.settle(payX, payY, receipt.debtX, receipt.debtY); err != nil {
		return err
	}
	receipt.consumed = true
	p.locked = false
	p.events.Emit(PayEvent{PoolID: p.id, AmountX: receipt.debtX, AmountY: receipt.debtY})
	return nil
}

// settle checks that payments cover the debts and joins them into the
// reserves.
func (p *Pool) settle(payX, payY *balance.Balance, debtX, debtY uint64) error {
	if payX == nil {
		payX = balance.Zero(p.coinX)
	}
	if payY == nil {
		payY = balance.Zero(p.coinY)
	}
	if payX.Coin() != p.coinX || payY.Coin() != p.coinY {
		return fmt.Errorf("%w: got %s/%s", ErrCoinMismatch, payX.Coin(), payY.Coin())
	}
	if payX.Value() < debtX || payY.Value() < debtY {
		return fmt.Errorf("%w: paid %d/%d, owed %d/%d",
			ErrInsufficientInputAmount, payX.Value(), payY.Value(), debtX, debtY)
	}
	if err := p.checkReserveHeadroom(payX.Value(), payY.Value()); err != nil {
		return err
	}
	_, _ = p.reserveX.Join(payX)
	_, _ = p.reserveY.Join(payY)
	return nil
}
