package engine

import (
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/metrics"
)

// SetProtocolFeeRate sets the packed protocol fee denominators of a pool.
func (svc *Service) SetProtocolFeeRate(poolID string, rate uint8) error {
	err := svc.withPool(poolID, true, func(p *pool.Pool) error {
		return p.SetProtocolFeeRate(rate)
	})
	if err != nil {
		return err
	}
	svc.logger.Pool(poolID).Info().Uint8("rate", rate).Msg("[engine] protocol fee rate set")
	return nil
}

// CollectProtocolFee pays up to the requested protocol fees to recipient.
func (svc *Service) CollectProtocolFee(poolID, recipient string, maxX, maxY uint64) (x, y uint64, err error) {
	if recipient == "" {
		return 0, 0, ErrInvalidAccount
	}
	err = svc.withPool(poolID, true, func(p *pool.Pool) error {
		outX, outY, err := p.CollectProtocolFee(maxX, maxY)
		if err != nil {
			return err
		}
		x, y = outX.Value(), outY.Value()
		metrics.FeesCollected.WithLabelValues(string(p.CoinX()), "protocol").Add(float64(x))
		metrics.FeesCollected.WithLabelValues(string(p.CoinY()), "protocol").Add(float64(y))
		return svc.wallet.Credit(recipient, outX, outY)
	})
	if err != nil {
		return 0, 0, err
	}
	svc.logger.Pool(poolID).Info().Str("recipient", recipient).Uint64("amount_x", x).Uint64("amount_y", y).Msg("[engine] protocol fee collected")
	return x, y, nil
}

// IncreaseObservationCardinalityNext grows the oracle ring and returns the
// resulting target size.
func (svc *Service) IncreaseObservationCardinalityNext(poolID string, next uint64) (uint64, error) {
	var got uint64
	err := svc.withPool(poolID, true, func(p *pool.Pool) error {
		var err error
		got, err = p.IncreaseObservationCardinalityNext(next)
		return err
	})
	if err != nil {
		return 0, err
	}
	svc.logger.Pool(poolID).Info().Uint64("cardinality_next", got).Msg("[engine] observation cardinality increased")
	return got, nil
}
