package http

import (
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/http/httputil"
	"github.com/hxuan190/clmm-engine/internal/services/engine"
)

type PoolHandler struct {
	engineSvc *engine.Service
}

func NewPoolHandler(engineSvc *engine.Service) *PoolHandler {
	return &PoolHandler{engineSvc: engineSvc}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listPools)
	pub.GET("/:id", h.getPool)
	pub.GET("/:id/ticks", h.getTicks)
	pub.GET("/:id/observe", h.observe)
	pub.GET("/:id/cumulatives", h.cumulativesInside)
	pub.GET("/:id/events", h.getEvents)

	private.POST("", h.createPool)
	private.POST("/:id/initialize", h.initializePool)
	private.POST("/:id/donate", h.donate)

	admin.POST("/:id/protocol-fee-rate", h.setProtocolFeeRate)
	admin.POST("/:id/protocol-fee/collect", h.collectProtocolFee)
	admin.POST("/:id/observations/grow", h.growObservations)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolListResponse contains a page of pools ordered by id
type PoolListResponse struct {
	Pools []PoolResponse `json:"pools"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Pages int            `json:"pages"`
}

// listPools pages through every pool. With coin_a, coin_b and fee set it
// returns the single matching pool.
// @Summary List pools
// @Description Pages through every pool ordered by id. Passing coin_a, coin_b and fee returns the one matching pool.
// @Tags pools
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(50)
// @Param coin_a query string false "First coin of the pair"
// @Param coin_b query string false "Second coin of the pair"
// @Param fee query int false "Fee tier in parts per million, required with coin_a and coin_b"
// @Success 200 {object} PoolListResponse
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response "No pool for the pair and fee"
// @Router /api/v1/pools [get]
func (h *PoolHandler) listPools(c *gin.Context) {
	coinA, coinB := c.Query("coin_a"), c.Query("coin_b")
	if coinA != "" || coinB != "" {
		fee, err := strconv.ParseUint(c.Query("fee"), 10, 64)
		if err != nil {
			httputil.BadRequest(c, "fee is required with coin_a and coin_b")
			return
		}
		v, ok := h.engineSvc.FindPool(balance.CoinType(coinA), balance.CoinType(coinB), fee)
		if !ok {
			httputil.NotFound(c, "pool not found")
			return
		}
		httputil.Success(c, PoolListResponse{Pools: []PoolResponse{poolResponse(v)}, Total: 1, Page: 1, Limit: 1, Pages: 1})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	all := h.engineSvc.Pools()
	total := len(all)
	pages := (total + limit - 1) / limit
	offset := min((page-1)*limit, total)
	end := min(offset+limit, total)

	pools := make([]PoolResponse, 0, end-offset)
	for _, v := range all[offset:end] {
		pools = append(pools, poolResponse(v))
	}
	httputil.Success(c, PoolListResponse{
		Pools: pools,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	})
}

// @Summary Get pool
// @Tags pools
// @Produce json
// @Param id path string true "Pool id"
// @Success 200 {object} PoolResponse
// @Failure 404 {object} httputil.Response
// @Router /api/v1/pools/{id} [get]
func (h *PoolHandler) getPool(c *gin.Context) {
	v, err := h.engineSvc.Pool(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, poolResponse(v))
}

// @Summary List initialized ticks
// @Description Returns every initialized tick of the pool in ascending order with its liquidity and outside accumulators.
// @Tags pools
// @Produce json
// @Param id path string true "Pool id"
// @Success 200 {array} TickResponse
// @Failure 404 {object} httputil.Response
// @Router /api/v1/pools/{id}/ticks [get]
func (h *PoolHandler) getTicks(c *gin.Context) {
	ticks, err := h.engineSvc.Ticks(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, tickResponses(ticks))
}

// ObserveResponse holds one accumulator pair per requested seconds ago
type ObserveResponse struct {
	SecondsAgos                       []uint64 `json:"seconds_agos"`
	TickCumulatives                   []int64  `json:"tick_cumulatives"`
	SecondsPerLiquidityCumulativeX128 []string `json:"seconds_per_liquidity_cumulative_x128"`
}

// @Summary Observe oracle accumulators
// @Description Returns the tick and seconds-per-liquidity cumulatives for each requested offset into the past.
// @Description Offsets older than the oldest stored observation fail with 400.
// @Tags oracle
// @Produce json
// @Param id path string true "Pool id"
// @Param seconds_agos query string false "Comma separated offsets in seconds" default(0) example("0,60,300")
// @Success 200 {object} ObserveResponse
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Router /api/v1/pools/{id}/observe [get]
func (h *PoolHandler) observe(c *gin.Context) {
	secondsAgos, err := parseSecondsAgos(c.DefaultQuery("seconds_agos", "0"))
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	ticks, spls, err := h.engineSvc.Observe(c.Param("id"), secondsAgos)
	if err != nil {
		fail(c, err)
		return
	}
	res := ObserveResponse{
		SecondsAgos:                       secondsAgos,
		TickCumulatives:                   ticks,
		SecondsPerLiquidityCumulativeX128: make([]string, 0, len(spls)),
	}
	for _, s := range spls {
		res.SecondsPerLiquidityCumulativeX128 = append(res.SecondsPerLiquidityCumulativeX128, s.Dec())
	}
	httputil.Success(c, res)
}

type CumulativesResponse struct {
	TickCumulativeInside          int64  `json:"tick_cumulative_inside"`
	SecondsPerLiquidityInsideX128 string `json:"seconds_per_liquidity_inside_x128"`
	SecondsInside                 uint64 `json:"seconds_inside"`
}

// @Summary Snapshot cumulatives inside a range
// @Tags oracle
// @Produce json
// @Param id path string true "Pool id"
// @Param lower query int true "Lower tick, must be initialized"
// @Param upper query int true "Upper tick, must be initialized"
// @Success 200 {object} CumulativesResponse
// @Failure 400 {object} httputil.Response
// @Router /api/v1/pools/{id}/cumulatives [get]
func (h *PoolHandler) cumulativesInside(c *gin.Context) {
	lower, errL := strconv.ParseInt(c.Query("lower"), 10, 32)
	upper, errU := strconv.ParseInt(c.Query("upper"), 10, 32)
	if errL != nil || errU != nil {
		httputil.BadRequest(c, "lower and upper ticks are required")
		return
	}
	snap, err := h.engineSvc.SnapshotCumulativesInside(c.Param("id"), int32(lower), int32(upper))
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, CumulativesResponse{
		TickCumulativeInside:          snap.TickCumulativeInside,
		SecondsPerLiquidityInsideX128: snap.SecondsPerLiquidityInside.Dec(),
		SecondsInside:                 snap.SecondsInside,
	})
}

// @Summary Recent pool events
// @Tags pools
// @Produce json
// @Param id path string true "Pool id"
// @Param limit query int false "Maximum events returned" default(100)
// @Success 200 {array} EventResponse
// @Router /api/v1/pools/{id}/events [get]
func (h *PoolHandler) getEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	httputil.Success(c, eventResponses(h.engineSvc.Events(c.Param("id"), limit)))
}

// CreatePoolRequest opens a pool for a coin pair on an enabled fee tier.
// The coins are ordered by the engine. Without a price the pool is created
// uninitialized.
type CreatePoolRequest struct {
	CoinA string `json:"coin_a" binding:"required"`
	CoinB string `json:"coin_b" binding:"required"`

	// Swap fee in parts per million, e.g. 500 = 0.05%
	Fee uint64 `json:"fee" binding:"required"`

	// Initial price as a Q64.64 sqrt price, or as a decimal CoinY per CoinX
	SqrtPrice string `json:"sqrt_price"`
	Price     string `json:"price"`
}

// @Summary Create pool
// @Description Creates a pool for a coin pair on an enabled fee tier. With sqrt_price or price set the pool is initialized in the same call.
// @Tags pools
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param request body CreatePoolRequest true "Pool parameters"
// @Success 201 {object} PoolResponse
// @Failure 400 {object} httputil.Response "Identical coins, unknown fee tier or bad price"
// @Failure 409 {object} httputil.Response "Pool already exists"
// @Router /api/v1/pools [post]
func (h *PoolHandler) createPool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	sqrtPrice, err := parseSqrtPrice(req.SqrtPrice, req.Price)
	if err != nil {
		fail(c, err)
		return
	}
	v, err := h.engineSvc.CreatePool(balance.CoinType(req.CoinA), balance.CoinType(req.CoinB), req.Fee, sqrtPrice)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Created(c, poolResponse(v))
}

type InitializePoolRequest struct {
	SqrtPrice string `json:"sqrt_price"`
	Price     string `json:"price"`
}

// @Summary Initialize pool price
// @Tags pools
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param id path string true "Pool id"
// @Param request body InitializePoolRequest true "Initial price"
// @Success 200 {object} PoolResponse
// @Failure 409 {object} httputil.Response "Pool already initialized"
// @Router /api/v1/pools/{id}/initialize [post]
func (h *PoolHandler) initializePool(c *gin.Context) {
	var req InitializePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	sqrtPrice, err := parseSqrtPrice(req.SqrtPrice, req.Price)
	if err != nil {
		fail(c, err)
		return
	}
	if sqrtPrice == nil {
		httputil.BadRequest(c, "sqrt_price or price is required")
		return
	}
	v, err := h.engineSvc.InitializePool(c.Param("id"), sqrtPrice)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, poolResponse(v))
}

type AmountsRequest struct {
	AmountX uint64 `json:"amount_x"`
	AmountY uint64 `json:"amount_y"`
}

// @Summary Donate to in-range liquidity
// @Description Pays the amounts into the pool as fees for the currently active liquidity.
// @Tags pools
// @Accept json
// @Produce json
// @Param X-Account header string true "Account"
// @Param id path string true "Pool id"
// @Param request body AmountsRequest true "Amounts to donate"
// @Success 200 {object} AmountsResponse
// @Failure 400 {object} httputil.Response
// @Router /api/v1/pools/{id}/donate [post]
func (h *PoolHandler) donate(c *gin.Context) {
	var req AmountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if err := h.engineSvc.Donate(account(c), c.Param("id"), req.AmountX, req.AmountY); err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, AmountsResponse{AmountX: req.AmountX, AmountY: req.AmountY})
}

type ProtocolFeeRateRequest struct {
	// Low nibble applies to swaps paying X, high nibble to swaps paying Y.
	// Each nibble is 0 or 4-10.
	Rate *uint8 `json:"rate" binding:"required"`
}

// @Summary Set protocol fee rate
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Param id path string true "Pool id"
// @Param request body ProtocolFeeRateRequest true "Packed rate"
// @Success 200 {object} PoolResponse
// @Failure 400 {object} httputil.Response "Invalid protocol fee rate"
// @Router /api/v1/admin/pools/{id}/protocol-fee-rate [post]
func (h *PoolHandler) setProtocolFeeRate(c *gin.Context) {
	var req ProtocolFeeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if err := h.engineSvc.SetProtocolFeeRate(c.Param("id"), *req.Rate); err != nil {
		fail(c, err)
		return
	}
	v, err := h.engineSvc.Pool(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, poolResponse(v))
}

type CollectProtocolFeeRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	AmountX   uint64 `json:"amount_x"`
	AmountY   uint64 `json:"amount_y"`
}

// @Summary Collect protocol fees
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Param id path string true "Pool id"
// @Param request body CollectProtocolFeeRequest true "Recipient and caps"
// @Success 200 {object} AmountsResponse
// @Router /api/v1/admin/pools/{id}/protocol-fee/collect [post]
func (h *PoolHandler) collectProtocolFee(c *gin.Context) {
	var req CollectProtocolFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	x, y, err := h.engineSvc.CollectProtocolFee(c.Param("id"), req.Recipient, req.AmountX, req.AmountY)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, AmountsResponse{AmountX: x, AmountY: y})
}

type GrowObservationsRequest struct {
	CardinalityNext uint64 `json:"cardinality_next" binding:"required"`
}

// @Summary Grow the oracle ring
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Param id path string true "Pool id"
// @Param request body GrowObservationsRequest true "Target cardinality"
// @Success 200 {object} map[string]uint64
// @Router /api/v1/admin/pools/{id}/observations/grow [post]
func (h *PoolHandler) growObservations(c *gin.Context) {
	var req GrowObservationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	next, err := h.engineSvc.IncreaseObservationCardinalityNext(c.Param("id"), req.CardinalityNext)
	if err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, gin.H{"cardinality_next": next})
}

// FeeTierHandler lists and enables fee tiers.
type FeeTierHandler struct {
	engineSvc *engine.Service
}

func NewFeeTierHandler(engineSvc *engine.Service) *FeeTierHandler {
	return &FeeTierHandler{engineSvc: engineSvc}
}

func (h *FeeTierHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listFeeTiers)
	admin.POST("", h.enableFeeTier)
}

func (h *FeeTierHandler) Root() string {
	return "/fee-tiers"
}

type FeeTier struct {
	Fee         uint64 `json:"fee" binding:"required"`
	TickSpacing uint32 `json:"tick_spacing" binding:"required"`
}

// @Summary List fee tiers
// @Tags pools
// @Produce json
// @Success 200 {array} FeeTier
// @Router /api/v1/fee-tiers [get]
func (h *FeeTierHandler) listFeeTiers(c *gin.Context) {
	tiers := h.engineSvc.FeeTiers()
	out := make([]FeeTier, 0, len(tiers))
	for fee, spacing := range tiers {
		out = append(out, FeeTier{Fee: fee, TickSpacing: spacing})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fee < out[j].Fee })
	httputil.Success(c, out)
}

// @Summary Enable fee tier
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Param request body FeeTier true "Fee and tick spacing"
// @Success 201 {object} FeeTier
// @Failure 400 {object} httputil.Response
// @Router /api/v1/admin/fee-tiers [post]
func (h *FeeTierHandler) enableFeeTier(c *gin.Context) {
	var req FeeTier
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if err := h.engineSvc.EnableFeeTier(req.Fee, req.TickSpacing); err != nil {
		fail(c, err)
		return
	}
	httputil.Created(c, req)
}
