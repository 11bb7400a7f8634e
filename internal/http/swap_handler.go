package http

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/http/httputil"
	"github.com/hxuan190/clmm-engine/internal/services/engine"
)

const (
	SwapModeExactIn  = "ExactIn"
	SwapModeExactOut = "ExactOut"

	defaultSlippageBps = 50
	bpsDenominator     = 10_000
)

type SwapHandler struct {
	engineSvc *engine.Service
}

func NewSwapHandler(engineSvc *engine.Service) *SwapHandler {
	return &SwapHandler{engineSvc: engineSvc}
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/quote", h.quote)
	private.POST("", h.swap)
	private.POST("/flash", h.flash)
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

// SwapRequest represents a swap against a single pool
type SwapRequest struct {
	PoolID string `json:"pool_id" binding:"required"`
	CoinIn string `json:"coin_in" binding:"required"`

	// - "ExactIn": Amount is the exact input, output is estimated
	// - "ExactOut": Amount is the exact output desired, input is estimated
	SwapMode string `json:"swap_mode" binding:"required,oneof=ExactIn ExactOut"`
	Amount   uint64 `json:"amount" binding:"required"`

	// Optional Q64.64 sqrt price the swap may not cross
	SqrtPriceLimit string `json:"sqrt_price_limit"`

	// Minimum out (ExactIn) or maximum in (ExactOut). When omitted it is
	// derived from the quote with SlippageBps.
	Threshold *uint64 `json:"threshold"`

	// Slippage tolerance in basis points, default 50 (0.5%)
	SlippageBps *uint16 `json:"slippage_bps"`
}

func (r SwapRequest) toEngine() (engine.SwapRequest, error) {
	req := engine.SwapRequest{
		PoolID:  r.PoolID,
		CoinIn:  balance.CoinType(r.CoinIn),
		ExactIn: r.SwapMode == SwapModeExactIn,
		Amount:  r.Amount,
	}
	if r.SqrtPriceLimit != "" {
		limit, err := parseU128("sqrt_price_limit", r.SqrtPriceLimit)
		if err != nil {
			return req, err
		}
		req.SqrtPriceLimit = limit
	}
	if r.Threshold != nil {
		req.Threshold = *r.Threshold
	}
	return req, nil
}

// slippageThreshold widens a quote by bps: a floor on output for exact-in
// and a ceiling on input for exact-out.
func slippageThreshold(q *engine.SwapOutcome, exactIn bool, bps uint16) (uint64, error) {
	if bps > bpsDenominator {
		return 0, fmt.Errorf("slippage_bps %d above %d", bps, bpsDenominator)
	}
	if exactIn {
		return fullmath.MulDivFloorU64(q.AmountOut, bpsDenominator-uint64(bps), bpsDenominator)
	}
	return fullmath.MulDivCeilU64(q.AmountIn, bpsDenominator+uint64(bps), bpsDenominator)
}

func (h *SwapHandler) prepare(c *gin.Context) (engine.SwapRequest, *engine.SwapOutcome, bool) {
	var body SwapRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.BadRequest(c, err.Error())
		return engine.SwapRequest{}, nil, false
	}
	req, err := body.toEngine()
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return req, nil, false
	}
	quote, err := h.engineSvc.Quote(req)
	if err != nil {
		fail(c, err)
		return req, nil, false
	}
	if body.Threshold == nil {
		bps := uint16(defaultSlippageBps)
		if body.SlippageBps != nil {
			bps = *body.SlippageBps
		}
		if req.Threshold, err = slippageThreshold(quote, req.ExactIn, bps); err != nil {
			httputil.BadRequest(c, err.Error())
			return req, nil, false
		}
	}
	return req, quote, true
}

// @Summary Quote swap
// @Description Simulates a swap against one pool without changing it.
// @Description
// @Description **Swap Modes:**
// @Description - ExactIn: amount is the input, threshold is the minimum output
// @Description - ExactOut: amount is the output, threshold is the maximum input
// @Description
// @Description Without an explicit threshold it is derived from the quote and slippage_bps.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body SwapRequest true "Swap parameters"
// @Success 200 {object} SwapResponse
// @Failure 400 {object} httputil.Response "Invalid parameters or price limit"
// @Failure 404 {object} httputil.Response
// @Router /api/v1/swap/quote [post]
func (h *SwapHandler) quote(c *gin.Context) {
	req, quote, ok := h.prepare(c)
	if !ok {
		return
	}
	res := swapResponse(quote)
	res.Threshold = req.Threshold
	httputil.Success(c, res)
}

// @Summary Execute swap
// @Description Swaps against one pool and settles from the account's balances. Fails without changes when the
// @Description executed amounts cross the threshold.
// @Tags swap
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param request body SwapRequest true "Swap parameters"
// @Success 200 {object} SwapResponse
// @Failure 400 {object} httputil.Response "Slippage, price limit or insufficient balance"
// @Failure 404 {object} httputil.Response
// @Router /api/v1/swap [post]
func (h *SwapHandler) swap(c *gin.Context) {
	req, _, ok := h.prepare(c)
	if !ok {
		return
	}
	out, err := h.engineSvc.Swap(account(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	res := swapResponse(out)
	res.Threshold = req.Threshold
	httputil.Success(c, res)
}

// FlashRequest borrows and immediately repays, charging the flash fee.
type FlashRequest struct {
	PoolID  string `json:"pool_id" binding:"required"`
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
}

type FlashResponse struct {
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
	FeeX    uint64 `json:"fee_x"`
	FeeY    uint64 `json:"fee_y"`
}

// @Summary Flash loan
// @Tags swap
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param request body FlashRequest true "Amounts to borrow"
// @Success 200 {object} FlashResponse
// @Failure 400 {object} httputil.Response
// @Router /api/v1/swap/flash [post]
func (h *SwapHandler) flash(c *gin.Context) {
	var req FlashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	feeX, feeY, err := h.engineSvc.FlashLoan(account(c), req.PoolID, req.AmountX, req.AmountY, nil)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, FlashResponse{AmountX: req.AmountX, AmountY: req.AmountY, FeeX: feeX, FeeY: feeY})
}
