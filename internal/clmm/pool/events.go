package pool

import (
	"time"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
)

// Event is an append-only audit record of a pool operation.
type Event interface {
	Kind() string
	Pool() string
}

// EventSink receives events in the order operations commit.
type EventSink interface {
	Emit(Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// Clock supplies wall-clock time in milliseconds.
type Clock interface {
	NowMs() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) NowMs() uint64 { return f() }

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) NowMs() uint64 { return uint64(time.Now().UnixMilli()) }

type PoolCreatedEvent struct {
	PoolID      string           `json:"pool_id"`
	CoinX       balance.CoinType `json:"coin_x"`
	CoinY       balance.CoinType `json:"coin_y"`
	SwapFeeRate uint64           `json:"swap_fee_rate"`
	TickSpacing uint32           `json:"tick_spacing"`
}

type InitializeEvent struct {
	PoolID    string `json:"pool_id"`
	SqrtPrice string `json:"sqrt_price"`
	Tick      int32  `json:"tick"`
}

type ModifyLiquidityEvent struct {
	PoolID         string `json:"pool_id"`
	TickLower      int32  `json:"tick_lower"`
	TickUpper      int32  `json:"tick_upper"`
	LiquidityDelta string `json:"liquidity_delta"`
	AmountX        uint64 `json:"amount_x"`
	AmountY        uint64 `json:"amount_y"`
}

type SwapEvent struct {
	PoolID       string `json:"pool_id"`
	XForY        bool   `json:"x_for_y"`
	ExactIn      bool   `json:"exact_in"`
	AmountIn     uint64 `json:"amount_in"`
	AmountOut    uint64 `json:"amount_out"`
	FeeAmount    uint64 `json:"fee_amount"`
	ProtocolFee  uint64 `json:"protocol_fee"`
	SqrtPrice    string `json:"sqrt_price"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
	TicksCrossed int    `json:"ticks_crossed"`
}

type PayEvent struct {
	PoolID  string `json:"pool_id"`
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
}

type FlashEvent struct {
	PoolID  string `json:"pool_id"`
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
	FeeX    uint64 `json:"fee_x"`
	FeeY    uint64 `json:"fee_y"`
}

type RepayEvent struct {
	PoolID string `json:"pool_id"`
	PaidX  uint64 `json:"paid_x"`
	PaidY  uint64 `json:"paid_y"`
}

type CollectEvent struct {
	PoolID    string `json:"pool_id"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	AmountX   uint64 `json:"amount_x"`
	AmountY   uint64 `json:"amount_y"`
}

type CollectProtocolFeeEvent struct {
	PoolID  string `json:"pool_id"`
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
}

type FeeRateChangedEvent struct {
	PoolID  string `json:"pool_id"`
	OldRate uint8  `json:"old_rate"`
	NewRate uint8  `json:"new_rate"`
}

type ObservationCardinalityEvent struct {
	PoolID string `json:"pool_id"`
	Old    uint64 `json:"old"`
	New    uint64 `json:"new"`
}

func (e PoolCreatedEvent) Kind() string            { return "pool_created" }
func (e InitializeEvent) Kind() string             { return "initialize" }
func (e ModifyLiquidityEvent) Kind() string        { return "modify_liquidity" }
func (e SwapEvent) Kind() string                   { return "swap" }
func (e PayEvent) Kind() string                    { return "pay" }
func (e FlashEvent) Kind() string                  { return "flash" }
func (e RepayEvent) Kind() string                  { return "repay" }
func (e CollectEvent) Kind() string                { return "collect" }
func (e CollectProtocolFeeEvent) Kind() string     { return "collect_protocol_fee" }
func (e FeeRateChangedEvent) Kind() string         { return "fee_rate_changed" }
func (e ObservationCardinalityEvent) Kind() string { return "observation_cardinality_increased" }

func (e PoolCreatedEvent) Pool() string            { return e.PoolID }
func (e InitializeEvent) Pool() string             { return e.PoolID }
func (e ModifyLiquidityEvent) Pool() string        { return e.PoolID }
func (e SwapEvent) Pool() string                   { return e.PoolID }
func (e PayEvent) Pool() string                    { return e.PoolID }
func (e FlashEvent) Pool() string                  { return e.PoolID }
func (e RepayEvent) Pool() string                  { return e.PoolID }
func (e CollectEvent) Pool() string                { return e.PoolID }
func (e CollectProtocolFeeEvent) Pool() string     { return e.PoolID }
func (e FeeRateChangedEvent) Pool() string         { return e.PoolID }
func (e ObservationCardinalityEvent) Pool() string { return e.PoolID }
