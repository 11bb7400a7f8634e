package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
	"github.com/hxuan190/clmm-engine/internal/metrics"
)

var ErrFlashNotRepaid = errors.New("flash loan not repaid")

// SwapRequest trades CoinIn against the pool's other coin. Amount is the
// input for exact-in swaps and the output for exact-out swaps. Threshold
// is the minimum output (exact-in) or maximum input (exact-out); zero
// disables the exact-out bound. A nil SqrtPriceLimit runs to the edge of
// the price range.
type SwapRequest struct {
	PoolID         string
	CoinIn         balance.CoinType
	ExactIn        bool
	Amount         uint64
	SqrtPriceLimit *uint256.Int
	Threshold      uint64
}

type SwapOutcome struct {
	PoolID       string
	CoinIn       balance.CoinType
	CoinOut      balance.CoinType
	AmountIn     uint64
	AmountOut    uint64
	FeeAmount    uint64
	ProtocolFee  uint64
	SqrtPrice    *uint256.Int
	Tick         int32
	Liquidity    *uint256.Int
	TicksCrossed int
}

func swapMode(exactIn bool) string {
	if exactIn {
		return "exact_in"
	}
	return "exact_out"
}

func (req SwapRequest) direction(p *pool.Pool) (xForY bool, coinOut balance.CoinType, err error) {
	switch req.CoinIn {
	case p.CoinX():
		return true, p.CoinY(), nil
	case p.CoinY():
		return false, p.CoinX(), nil
	}
	return false, "", fmt.Errorf("%w: %s in pool %s", ErrUnknownCoin, req.CoinIn, p.ID())
}

func (req SwapRequest) limit(xForY bool) *uint256.Int {
	if req.SqrtPriceLimit != nil {
		return req.SqrtPriceLimit
	}
	if xForY {
		return new(uint256.Int).AddUint64(tickmath.MinSqrtPrice, 1)
	}
	return new(uint256.Int).SubUint64(tickmath.MaxSqrtPrice, 1)
}

func (req SwapRequest) checkSlippage(res *pool.SwapResult) error {
	if req.ExactIn && res.AmountOut < req.Threshold {
		return fmt.Errorf("%w: out %d below minimum %d", ErrSlippage, res.AmountOut, req.Threshold)
	}
	if !req.ExactIn && req.Threshold > 0 && res.AmountIn > req.Threshold {
		return fmt.Errorf("%w: in %d above maximum %d", ErrSlippage, res.AmountIn, req.Threshold)
	}
	return nil
}

func outcome(req SwapRequest, coinOut balance.CoinType, res *pool.SwapResult) *SwapOutcome {
	return &SwapOutcome{
		PoolID:       req.PoolID,
		CoinIn:       req.CoinIn,
		CoinOut:      coinOut,
		AmountIn:     res.AmountIn,
		AmountOut:    res.AmountOut,
		FeeAmount:    res.FeeAmount,
		ProtocolFee:  res.ProtocolFee,
		SqrtPrice:    new(uint256.Int).Set(res.SqrtPrice),
		Tick:         res.Tick,
		Liquidity:    new(uint256.Int).Set(res.Liquidity),
		TicksCrossed: res.TicksCrossed,
	}
}

// Quote simulates a swap against the current pool state.
func (svc *Service) Quote(req SwapRequest) (*SwapOutcome, error) {
	var out *SwapOutcome
	err := svc.withPool(req.PoolID, false, func(p *pool.Pool) error {
		xForY, coinOut, err := req.direction(p)
		if err != nil {
			return err
		}
		res, err := p.QuoteSwap(xForY, req.ExactIn, req.Amount, req.limit(xForY))
		if err != nil {
			return err
		}
		out = outcome(req, coinOut, res)
		return nil
	})
	metrics.QuoteRequests.WithLabelValues(swapMode(req.ExactIn), status(err)).Inc()
	return out, err
}

// Swap executes req for owner. The input is withdrawn from the owner's
// wallet before the pool moves and the output is credited after the
// receipt is paid.
func (svc *Service) Swap(owner string, req SwapRequest) (*SwapOutcome, error) {
	if owner == "" {
		return nil, ErrInvalidAccount
	}
	start := time.Now()
	direction := "unknown"
	var out *SwapOutcome
	err := svc.withPool(req.PoolID, true, func(p *pool.Pool) error {
		xForY, coinOut, err := req.direction(p)
		if err != nil {
			return err
		}
		direction = "y_for_x"
		if xForY {
			direction = "x_for_y"
		}
		limit := req.limit(xForY)
		quote, err := p.QuoteSwap(xForY, req.ExactIn, req.Amount, limit)
		if err != nil {
			return err
		}
		if quote.AmountIn == 0 || quote.AmountOut == 0 {
			return fmt.Errorf("%w: swap would move price without trading", pool.ErrInsufficientLiquidity)
		}
		if err := req.checkSlippage(quote); err != nil {
			return err
		}
		payment, err := svc.wallet.Withdraw(owner, req.CoinIn, quote.AmountIn)
		if err != nil {
			return err
		}

		outX, outY, receipt, err := p.Swap(xForY, req.ExactIn, req.Amount, limit)
		if err != nil {
			_ = svc.wallet.Credit(owner, payment)
			return err
		}
		payX, payY := balance.Zero(p.CoinX()), balance.Zero(p.CoinY())
		debtX, debtY := receipt.Debts()
		debt := max(debtX, debtY)
		if debt != payment.Value() {
			svc.logger.Pool(p.ID()).Warn().Uint64("quoted", payment.Value()).Uint64("owed", debt).Msg("[engine] swap debt differs from quote")
			if debt > payment.Value() {
				extra, werr := svc.wallet.Withdraw(owner, req.CoinIn, debt-payment.Value())
				if werr != nil {
					svc.logger.Pool(p.ID()).Error().Err(werr).Msg("[engine] swap left unpaid, pool locked")
					return werr
				}
				_, _ = payment.Join(extra)
			} else {
				change, _ := payment.Split(payment.Value() - debt)
				_ = svc.wallet.Credit(owner, change)
			}
		}
		if xForY {
			_, _ = payX.Join(payment)
		} else {
			_, _ = payY.Join(payment)
		}
		if err := p.Pay(receipt, payX, payY); err != nil {
			svc.logger.Pool(p.ID()).Error().Err(err).Msg("[engine] swap payment rejected, pool locked")
			return err
		}
		if err := svc.wallet.Credit(owner, outX, outY); err != nil {
			return err
		}

		out = outcome(req, coinOut, quote)
		out.AmountIn = debt
		out.AmountOut = outX.Value() + outY.Value()
		return nil
	})

	mode := swapMode(req.ExactIn)
	metrics.SwapRequests.WithLabelValues(direction, mode, status(err)).Inc()
	metrics.SwapDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.TicksCrossed.Observe(float64(out.TicksCrossed))
	metrics.SwapVolume.WithLabelValues(string(out.CoinIn)).Add(float64(out.AmountIn))
	svc.logger.Pool(req.PoolID).Debug().
		Str("owner", owner).
		Str("coin_in", string(out.CoinIn)).
		Uint64("amount_in", out.AmountIn).
		Uint64("amount_out", out.AmountOut).
		Int32("tick", out.Tick).
		Msg("[engine] swap executed")
	return out, nil
}

// Donate gives amounts to in-range liquidity providers by borrowing
// nothing and repaying the donation as the flash fee.
func (svc *Service) Donate(owner, poolID string, amountX, amountY uint64) error {
	if amountX == 0 && amountY == 0 {
		return pool.ErrZeroAmount
	}
	return svc.withPool(poolID, true, func(p *pool.Pool) error {
		gift, err := svc.withdrawPair(owner, p, amountX, amountY)
		if err != nil {
			return err
		}
		_, _, receipt, err := p.Flash(0, 0)
		if err != nil {
			_ = svc.wallet.Credit(owner, gift[0], gift[1])
			return err
		}
		if err := p.Repay(receipt, gift[0], gift[1]); err != nil {
			svc.logger.Pool(p.ID()).Error().Err(err).Msg("[engine] donation rejected, pool locked")
			return err
		}
		svc.logger.Pool(p.ID()).Info().Str("owner", owner).Uint64("amount_x", amountX).Uint64("amount_y", amountY).Msg("[engine] donation")
		return nil
	})
}

// FlashHandler runs while the pool is locked. It may use the borrowed
// balances but must not call back into the same pool.
type FlashHandler func(borrowedX, borrowedY *balance.Balance) error

// FlashLoan lends amounts to fn. The fee is withdrawn from the owner up
// front. Whatever fn leaves in the borrowed balances is repaid and any
// shortfall is taken from the owner's wallet. Extra value beyond the debt
// is credited back to the owner.
func (svc *Service) FlashLoan(owner, poolID string, amountX, amountY uint64, fn FlashHandler) (feeX, feeY uint64, err error) {
	if owner == "" {
		return 0, 0, ErrInvalidAccount
	}
	err = svc.withPool(poolID, true, func(p *pool.Pool) error {
		if feeX, err = fullmath.MulDivRoundU64(amountX, p.SwapFeeRate(), sqrtprice.FeeRateDenominator); err != nil {
			return err
		}
		if feeY, err = fullmath.MulDivRoundU64(amountY, p.SwapFeeRate(), sqrtprice.FeeRateDenominator); err != nil {
			return err
		}
		fees, err := svc.withdrawPair(owner, p, feeX, feeY)
		if err != nil {
			return err
		}
		outX, outY, receipt, err := p.Flash(amountX, amountY)
		if err != nil {
			_ = svc.wallet.Credit(owner, fees[0], fees[1])
			return err
		}
		// reserves moved, so persist the pool even when the handler fails
		svc.markPool(p.ID())

		var fnErr error
		if fn != nil {
			fnErr = fn(outX, outY)
		}
		_, _ = outX.Join(fees[0])
		_, _ = outY.Join(fees[1])
		debtX, debtY := receipt.Debts()
		if err := svc.topUp(owner, outX, debtX); err != nil {
			return svc.flashStuck(p, err)
		}
		if err := svc.topUp(owner, outY, debtY); err != nil {
			return svc.flashStuck(p, err)
		}
		payX, _ := outX.Split(debtX)
		payY, _ := outY.Split(debtY)
		_ = svc.wallet.Credit(owner, outX, outY)
		if err := p.Repay(receipt, payX, payY); err != nil {
			return svc.flashStuck(p, err)
		}
		return fnErr
	})
	metrics.FlashLoans.WithLabelValues(status(err)).Inc()
	if err != nil {
		return 0, 0, err
	}
	svc.logger.Pool(poolID).Info().Str("owner", owner).
		Uint64("amount_x", amountX).Uint64("amount_y", amountY).
		Uint64("fee_x", feeX).Uint64("fee_y", feeY).Msg("[engine] flash loan repaid")
	return feeX, feeY, nil
}

// topUp withdraws from owner until b holds at least want.
func (svc *Service) topUp(owner string, b *balance.Balance, want uint64) error {
	if b.Value() >= want {
		return nil
	}
	extra, err := svc.wallet.Withdraw(owner, b.Coin(), want-b.Value())
	if err != nil {
		return err
	}
	_, err = b.Join(extra)
	return err
}

func (svc *Service) flashStuck(p *pool.Pool, err error) error {
	svc.logger.Pool(p.ID()).Error().Err(err).Msg("[engine] flash loan not repaid, pool locked")
	return fmt.Errorf("%w: %v", ErrFlashNotRepaid, err)
}

// withdrawPair takes amountX and amountY of the pool's coins from owner.
func (svc *Service) withdrawPair(owner string, p *pool.Pool, amountX, amountY uint64) ([2]*balance.Balance, error) {
	x, err := svc.wallet.Withdraw(owner, p.CoinX(), amountX)
	if err != nil {
		return [2]*balance.Balance{}, err
	}
	y, err := svc.wallet.Withdraw(owner, p.CoinY(), amountY)
	if err != nil {
		_ = svc.wallet.Credit(owner, x)
		return [2]*balance.Balance{}, err
	}
	return [2]*balance.Balance{x, y}, nil
}
