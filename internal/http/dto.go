package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/hxuan190/clmm-engine/internal/adapters/persistence"
	"github.com/hxuan190/clmm-engine/internal/clmm/price"
	"github.com/hxuan190/clmm-engine/internal/services/engine"
)

// PoolResponse describes a pool. Q64.64 and Q128 fixed-point values are
// decimal strings; Price is CoinY per CoinX.
type PoolResponse struct {
	ID          string `json:"id"`
	CoinX       string `json:"coin_x"`
	CoinY       string `json:"coin_y"`
	SwapFeeRate uint64 `json:"swap_fee_rate"`
	TickSpacing uint32 `json:"tick_spacing"`
	Initialized bool   `json:"initialized"`
	Locked      bool   `json:"locked"`

	// Square root of the price as Q64.64
	SqrtPrice string `json:"sqrt_price"`
	Price     string `json:"price"`
	Tick      int32  `json:"tick"`

	// Active liquidity at the current tick
	Liquidity string `json:"liquidity"`

	FeeGrowthGlobalX string `json:"fee_growth_global_x"`
	FeeGrowthGlobalY string `json:"fee_growth_global_y"`
	ProtocolFeeRate  uint8  `json:"protocol_fee_rate"`
	ProtocolFeeX     uint64 `json:"protocol_fee_x"`
	ProtocolFeeY     uint64 `json:"protocol_fee_y"`
	ReserveX         uint64 `json:"reserve_x"`
	ReserveY         uint64 `json:"reserve_y"`

	ObservationIndex           uint64 `json:"observation_index"`
	ObservationCardinality     uint64 `json:"observation_cardinality"`
	ObservationCardinalityNext uint64 `json:"observation_cardinality_next"`
}

func poolResponse(v *engine.PoolView) PoolResponse {
	r := PoolResponse{
		ID:                         v.ID,
		CoinX:                      string(v.CoinX),
		CoinY:                      string(v.CoinY),
		SwapFeeRate:                v.SwapFeeRate,
		TickSpacing:                v.TickSpacing,
		Initialized:                v.Initialized,
		Locked:                     v.Locked,
		SqrtPrice:                  v.SqrtPrice.Dec(),
		Tick:                       v.Tick,
		Liquidity:                  v.Liquidity.Dec(),
		FeeGrowthGlobalX:           v.FeeGrowthGlobalX.Dec(),
		FeeGrowthGlobalY:           v.FeeGrowthGlobalY.Dec(),
		ProtocolFeeRate:            v.ProtocolFeeRate,
		ProtocolFeeX:               v.ProtocolFeeX,
		ProtocolFeeY:               v.ProtocolFeeY,
		ReserveX:                   v.ReserveX,
		ReserveY:                   v.ReserveY,
		ObservationIndex:           v.ObservationIndex,
		ObservationCardinality:     v.ObservationCardinality,
		ObservationCardinalityNext: v.ObservationCardinalityNext,
	}
	if v.Initialized {
		r.Price = price.FromSqrtPrice(v.SqrtPrice, price.DefaultPrecision).String()
	}
	return r
}

type TickResponse struct {
	Index             int32  `json:"index"`
	LiquidityGross    string `json:"liquidity_gross"`
	LiquidityNet      string `json:"liquidity_net"`
	FeeGrowthOutsideX string `json:"fee_growth_outside_x"`
	FeeGrowthOutsideY string `json:"fee_growth_outside_y"`
}

func tickResponses(ticks []engine.TickView) []TickResponse {
	out := make([]TickResponse, 0, len(ticks))
	for _, t := range ticks {
		out = append(out, TickResponse{
			Index:             t.Index,
			LiquidityGross:    t.LiquidityGross.Dec(),
			LiquidityNet:      t.LiquidityNet.String(),
			FeeGrowthOutsideX: t.FeeGrowthOutsideX.Dec(),
			FeeGrowthOutsideY: t.FeeGrowthOutsideY.Dec(),
		})
	}
	return out
}

type PositionResponse struct {
	ID                   string `json:"id"`
	Owner                string `json:"owner"`
	PoolID               string `json:"pool_id"`
	TickLower            int32  `json:"tick_lower"`
	TickUpper            int32  `json:"tick_upper"`
	Liquidity            string `json:"liquidity"`
	FeeGrowthInsideXLast string `json:"fee_growth_inside_x_last"`
	FeeGrowthInsideYLast string `json:"fee_growth_inside_y_last"`
	CoinsOwedX           uint64 `json:"coins_owed_x"`
	CoinsOwedY           uint64 `json:"coins_owed_y"`
}

func positionResponse(v *engine.PositionView) PositionResponse {
	return PositionResponse{
		ID:                   v.ID,
		Owner:                v.Owner,
		PoolID:               v.PoolID,
		TickLower:            v.TickLower,
		TickUpper:            v.TickUpper,
		Liquidity:            v.Liquidity.Dec(),
		FeeGrowthInsideXLast: v.FeeGrowthInsideXLast.Dec(),
		FeeGrowthInsideYLast: v.FeeGrowthInsideYLast.Dec(),
		CoinsOwedX:           v.CoinsOwedX,
		CoinsOwedY:           v.CoinsOwedY,
	}
}

type LiquidityResponse struct {
	Liquidity string `json:"liquidity"`
	AmountX   uint64 `json:"amount_x"`
	AmountY   uint64 `json:"amount_y"`
}

type AmountsResponse struct {
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
}

// SwapResponse reports an executed or quoted swap.
type SwapResponse struct {
	PoolID    string `json:"pool_id"`
	CoinIn    string `json:"coin_in"`
	CoinOut   string `json:"coin_out"`
	AmountIn  uint64 `json:"amount_in"`
	AmountOut uint64 `json:"amount_out"`

	// Swap fee paid, in CoinIn, including the protocol share
	FeeAmount   uint64 `json:"fee_amount"`
	ProtocolFee uint64 `json:"protocol_fee"`

	// Pool state after the swap
	SqrtPrice    string `json:"sqrt_price"`
	Price        string `json:"price"`
	Tick         int32  `json:"tick"`
	Liquidity    string `json:"liquidity"`
	TicksCrossed int    `json:"ticks_crossed"`

	// Bound enforced on execution: minimum out (ExactIn) or maximum in (ExactOut)
	Threshold uint64 `json:"threshold,omitempty"`
}

func swapResponse(o *engine.SwapOutcome) SwapResponse {
	return SwapResponse{
		PoolID:       o.PoolID,
		CoinIn:       string(o.CoinIn),
		CoinOut:      string(o.CoinOut),
		AmountIn:     o.AmountIn,
		AmountOut:    o.AmountOut,
		FeeAmount:    o.FeeAmount,
		ProtocolFee:  o.ProtocolFee,
		SqrtPrice:    o.SqrtPrice.Dec(),
		Price:        price.FromSqrtPrice(o.SqrtPrice, price.DefaultPrecision).String(),
		Tick:         o.Tick,
		Liquidity:    o.Liquidity.Dec(),
		TicksCrossed: o.TicksCrossed,
	}
}

type EventResponse struct {
	Seq         uint64 `json:"seq"`
	TimestampMs uint64 `json:"timestamp_ms"`
	Kind        string `json:"kind"`
	PoolID      string `json:"pool_id"`
	Data        any    `json:"data"`
}

func eventResponses(records []persistence.EventRecord) []EventResponse {
	out := make([]EventResponse, 0, len(records))
	for _, r := range records {
		out = append(out, EventResponse{
			Seq:         r.Seq,
			TimestampMs: r.TimestampMs,
			Kind:        r.Kind,
			PoolID:      r.PoolID,
			Data:        r.Data,
		})
	}
	return out
}

// parseSqrtPrice reads a pool price given either as a Q64.64 sqrt price or
// as a decimal price. Both empty means no price.
func parseSqrtPrice(sqrtPrice, decimalPrice string) (*uint256.Int, error) {
	switch {
	case sqrtPrice != "" && decimalPrice != "":
		return nil, fmt.Errorf("%w: give sqrt_price or price, not both", price.ErrInvalidPrice)
	case sqrtPrice != "":
		v, err := uint256.FromDecimal(sqrtPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: sqrt_price %q", price.ErrInvalidPrice, sqrtPrice)
		}
		return v, nil
	case decimalPrice != "":
		return price.Parse(decimalPrice)
	}
	return nil, nil
}

func parseU128(field, s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}

// parseSecondsAgos reads a comma separated list such as "0,60,3600".
func parseSecondsAgos(s string) ([]uint64, error) {
	parts := strings.Split(s, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seconds_agos %q", s)
		}
		out = append(out, v)
	}
	return out, nil
}
