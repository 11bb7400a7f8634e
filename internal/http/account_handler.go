package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/http/httputil"
	"github.com/hxuan190/clmm-engine/internal/services/wallet"
)

type AccountHandler struct {
	walletSvc *wallet.Service
}

func NewAccountHandler(walletSvc *wallet.Service) *AccountHandler {
	return &AccountHandler{walletSvc: walletSvc}
}

func (h *AccountHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/supply/:coin", h.getSupply)

	private.GET("/balances", h.getBalances)
	private.POST("/faucet", h.faucet)
	private.POST("/redeem", h.redeem)
}

func (h *AccountHandler) Root() string {
	return "/accounts"
}

type BalancesResponse struct {
	Account  string            `json:"account"`
	Balances map[string]uint64 `json:"balances"`
}

func (h *AccountHandler) balances(owner string) BalancesResponse {
	res := BalancesResponse{Account: owner, Balances: make(map[string]uint64)}
	for coin, amount := range h.walletSvc.Balances(owner) {
		res.Balances[string(coin)] = amount
	}
	return res
}

func (h *AccountHandler) getBalances(c *gin.Context) {
	httputil.Success(c, h.balances(account(c)))
}

func (h *AccountHandler) getSupply(c *gin.Context) {
	coin := c.Param("coin")
	httputil.Success(c, gin.H{"coin": coin, "total_supply": h.walletSvc.TotalSupply(balance.CoinType(coin))})
}

type CoinAmountRequest struct {
	Coin   string `json:"coin" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// faucet mints test balances when the engine runs with the faucet enabled.
func (h *AccountHandler) faucet(c *gin.Context) {
	var req CoinAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if _, err := h.walletSvc.Faucet(account(c), balance.CoinType(req.Coin), req.Amount); err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, h.balances(account(c)))
}

func (h *AccountHandler) redeem(c *gin.Context) {
	var req CoinAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if _, err := h.walletSvc.Redeem(account(c), balance.CoinType(req.Coin), req.Amount); err != nil {
		fail(c, err)
		return
	}
	httputil.Success(c, h.balances(account(c)))
}
