package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/clmm-engine/internal/http/httputil"
	"github.com/hxuan190/clmm-engine/internal/services/engine"
)

type PositionHandler struct {
	engineSvc *engine.Service
}

func NewPositionHandler(engineSvc *engine.Service) *PositionHandler {
	return &PositionHandler{engineSvc: engineSvc}
}

func (h *PositionHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:id", h.getPosition)

	private.GET("", h.listPositions)
	private.POST("", h.openPosition)
	private.POST("/:id/add", h.addLiquidity)
	private.POST("/:id/remove", h.removeLiquidity)
	private.POST("/:id/collect", h.collect)
	private.DELETE("/:id", h.closePosition)
}

func (h *PositionHandler) Root() string {
	return "/positions"
}

// @Summary Get position
// @Tags positions
// @Produce json
// @Param id path string true "Position id"
// @Success 200 {object} PositionResponse
// @Failure 404 {object} httputil.Response
// @Router /api/v1/positions/{id} [get]
func (h *PositionHandler) getPosition(c *gin.Context) {
	v, err := h.engineSvc.Position(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, positionResponse(v))
}

// @Summary List own positions
// @Tags positions
// @Produce json
// @Param X-Account header string true "Account"
// @Success 200 {array} PositionResponse
// @Router /api/v1/positions [get]
func (h *PositionHandler) listPositions(c *gin.Context) {
	views := h.engineSvc.Positions(account(c))
	out := make([]PositionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, positionResponse(v))
	}
	httputil.Success(c, out)
}

type OpenPositionRequest struct {
	PoolID    string `json:"pool_id" binding:"required"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
}

// @Summary Open position
// @Description Opens an empty position on a tick range. Both ticks must be multiples of the pool tick spacing.
// @Tags positions
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param request body OpenPositionRequest true "Pool and range"
// @Success 201 {object} PositionResponse
// @Failure 400 {object} httputil.Response "Invalid tick range"
// @Failure 404 {object} httputil.Response
// @Router /api/v1/positions [post]
func (h *PositionHandler) openPosition(c *gin.Context) {
	var req OpenPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	v, err := h.engineSvc.OpenPosition(account(c), req.PoolID, req.TickLower, req.TickUpper)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Created(c, positionResponse(v))
}

// AddLiquidityRequest deposits up to the desired amounts; the mins bound
// what the deposit may fall to at the current price.
type AddLiquidityRequest struct {
	AmountXDesired uint64 `json:"amount_x_desired"`
	AmountYDesired uint64 `json:"amount_y_desired"`
	AmountXMin     uint64 `json:"amount_x_min"`
	AmountYMin     uint64 `json:"amount_y_min"`
}

// @Summary Add liquidity
// @Description Mints the most liquidity the desired amounts allow at the current price and refunds the rest.
// @Tags positions
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param id path string true "Position id"
// @Param request body AddLiquidityRequest true "Desired and minimum amounts"
// @Success 200 {object} LiquidityResponse
// @Failure 400 {object} httputil.Response "Slippage or zero liquidity"
// @Failure 403 {object} httputil.Response
// @Router /api/v1/positions/{id}/add [post]
func (h *PositionHandler) addLiquidity(c *gin.Context) {
	var req AddLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	res, err := h.engineSvc.AddLiquidity(account(c), c.Param("id"), engine.AddLiquidityRequest(req))
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, LiquidityResponse{Liquidity: res.Liquidity.Dec(), AmountX: res.AmountX, AmountY: res.AmountY})
}

type RemoveLiquidityRequest struct {
	// Liquidity to burn as a decimal string
	Liquidity  string `json:"liquidity" binding:"required"`
	AmountXMin uint64 `json:"amount_x_min"`
	AmountYMin uint64 `json:"amount_y_min"`
}

// @Summary Remove liquidity
// @Description Burns liquidity into the position's coins owed. Use collect to withdraw them.
// @Tags positions
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param id path string true "Position id"
// @Param request body RemoveLiquidityRequest true "Liquidity and minimum amounts"
// @Success 200 {object} LiquidityResponse
// @Failure 400 {object} httputil.Response
// @Failure 403 {object} httputil.Response
// @Router /api/v1/positions/{id}/remove [post]
func (h *PositionHandler) removeLiquidity(c *gin.Context) {
	var req RemoveLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	l, err := parseU128("liquidity", req.Liquidity)
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	res, err := h.engineSvc.RemoveLiquidity(account(c), c.Param("id"), l, req.AmountXMin, req.AmountYMin)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, LiquidityResponse{Liquidity: res.Liquidity.Dec(), AmountX: res.AmountX, AmountY: res.AmountY})
}

// CollectRequest caps the payout per coin. Omitted caps collect everything.
type CollectRequest struct {
	AmountXMax *uint64 `json:"amount_x_max"`
	AmountYMax *uint64 `json:"amount_y_max"`
}

// @Summary Collect coins owed
// @Tags positions
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param id path string true "Position id"
// @Param request body CollectRequest false "Optional caps"
// @Success 200 {object} AmountsResponse
// @Router /api/v1/positions/{id}/collect [post]
func (h *PositionHandler) collect(c *gin.Context) {
	var req CollectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.BadRequest(c, err.Error())
			return
		}
	}
	maxX, maxY := ^uint64(0), ^uint64(0)
	if req.AmountXMax != nil {
		maxX = *req.AmountXMax
	}
	if req.AmountYMax != nil {
		maxY = *req.AmountYMax
	}
	x, y, err := h.engineSvc.Collect(account(c), c.Param("id"), maxX, maxY)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, AmountsResponse{AmountX: x, AmountY: y})
}

// @Summary Close empty position
// @Tags positions
// @Produce json
// @Param X-Account header string true "Account"
// @Param id path string true "Position id"
// @Success 200 {object} map[string]any
// @Failure 409 {object} httputil.Response "Position still has liquidity or coins owed"
// @Router /api/v1/positions/{id} [delete]
func (h *PositionHandler) closePosition(c *gin.Context) {
	if err := h.engineSvc.ClosePosition(account(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, gin.H{"id": c.Param("id"), "closed": true})
}
