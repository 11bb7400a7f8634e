package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
)

// FlashReceipt records a flash loan. It must be settled exactly once with Repay.
type FlashReceipt struct {
	poolID   string
	amountX  uint64
	amountY  uint64
	feeX     uint64
	feeY     uint64
	consumed bool
}

func (r *FlashReceipt) PoolID() string { return r.poolID }

// Debts is principal plus fee for each side.
func (r *FlashReceipt) Debts() (x, y uint64) {
	return r.amountX + r.feeX, r.amountY + r.feeY
}

// Flash lends reserves out and locks the pool until Repay.
func (p *Pool) Flash(amountX, amountY uint64) (outX, outY *balance.Balance, receipt *FlashReceipt, err error) {
	if err := p.checkUnlocked(); err != nil {
		return nil, nil, nil, err
	}
	if p.liquidity.IsZero() {
		return nil, nil, nil, ErrInsufficientLiquidity
	}
	if p.reserveX.Value() < amountX || p.reserveY.Value() < amountY {
		return nil, nil, nil, fmt.Errorf("%w: borrow %d/%d, reserves %d/%d",
			ErrInsufficientReserve, amountX, amountY, p.reserveX.Value(), p.reserveY.Value())
	}
	feeX, err := flashFee(amountX, p.swapFeeRate)
	if err != nil {
		return nil, nil, nil, err
	}
	feeY, err := flashFee(amountY, p.swapFeeRate)
	if err != nil {
		return nil, nil, nil, err
	}

	outX, _ = p.reserveX.Split(amountX)
	outY, _ = p.reserveY.Split(amountY)
	p.locked = true

	p.events.Emit(FlashEvent{PoolID: p.id, AmountX: amountX, AmountY: amountY, FeeX: feeX, FeeY: feeY})
	return outX, outY, &FlashReceipt{
		poolID:  p.id,
		amountX: amountX,
		amountY: amountY,
		feeX:    feeX,
		feeY:    feeY,
	}, nil
}

func flashFee(amount, feeRate uint64) (uint64, error) {
	fee, err := fullmath.MulDivRoundU64(amount, feeRate, sqrtprice.FeeRateDenominator)
	if err != nil {
		return 0, err
	}
	if _, err := fullmath.AddU64(amount, fee); err != nil {
		return 0, fmt.Errorf("flash debt: %w", err)
	}
	return fee, nil
}

// Repay settles a flash loan and unlocks the pool. Everything paid beyond
// the principal goes to liquidity providers, less the protocol share.
func (p *Pool) Repay(receipt *FlashReceipt, payX, payY *balance.Balance) error {
	if receipt.consumed {
		return ErrReceiptConsumed
	}
	if receipt.poolID != p.id {
		return fmt.Errorf("%w: %s != %s", ErrPoolIdMismatch, receipt.poolID, p.id)
	}

	var paidX, paidY uint64
	if payX != nil {
		paidX = payX.Value()
	}
	if payY != nil {
		paidY = payY.Value()
	}
	debtX, debtY := receipt.Debts()
	if paidX < debtX || paidY < debtY {
		return fmt.Errorf("%w: paid %d/%d, owed %d/%d", ErrInsufficientInputAmount, paidX, paidY, debtX, debtY)
	}

	surplusX, surplusY := paidX-receipt.amountX, paidY-receipt.amountY
	protocolX := protocolCut(surplusX, p.protocolFeeFor(true))
	protocolY := protocolCut(surplusY, p.protocolFeeFor(false))
	newProtocolX, err := fullmath.AddU64(p.protocolFeeX, protocolX)
	if err != nil {
		return fmt.Errorf("protocol fee: %w", err)
	}
	newProtocolY, err := fullmath.AddU64(p.protocolFeeY, protocolY)
	if err != nil {
		return fmt.Errorf("protocol fee: %w", err)
	}
	if err := p.settle(payX, payY, debtX, debtY); err != nil {
		return err
	}

	p.protocolFeeX, p.protocolFeeY = newProtocolX, newProtocolY
	p.feeGrowthGlobalX = *p.addFeeGrowth(&p.feeGrowthGlobalX, surplusX-protocolX)
	p.feeGrowthGlobalY = *p.addFeeGrowth(&p.feeGrowthGlobalY, surplusY-protocolY)
	receipt.consumed = true
	p.locked = false

	p.events.Emit(RepayEvent{PoolID: p.id, PaidX: paidX, PaidY: paidY})
	return nil
}

func protocolCut(fee, rate uint64) uint64 {
	if rate == 0 {
		return 0
	}
	return fee / rate
}

func (p *Pool) addFeeGrowth(global *uint256.Int, fee uint64) *uint256.Int {
	if fee == 0 || p.liquidity.IsZero() {
		return new(uint256.Int).Set(global)
	}
	growth := new(uint256.Int).Lsh(uint256.NewInt(fee), 64)
	growth.Div(growth, &p.liquidity)
	return fullmath.WrappingAddU128(global, growth)
}
