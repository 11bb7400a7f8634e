package http

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/clmm-engine/internal/clmm/balance"
	"github.com/hxuan190/clmm-engine/internal/clmm/fullmath"
	"github.com/hxuan190/clmm-engine/internal/clmm/liquidity"
	"github.com/hxuan190/clmm-engine/internal/clmm/oracle"
	"github.com/hxuan190/clmm-engine/internal/clmm/pool"
	"github.com/hxuan190/clmm-engine/internal/clmm/price"
	"github.com/hxuan190/clmm-engine/internal/clmm/registry"
	"github.com/hxuan190/clmm-engine/internal/clmm/signed"
	"github.com/hxuan190/clmm-engine/internal/clmm/sqrtprice"
	"github.com/hxuan190/clmm-engine/internal/clmm/tick"
	"github.com/hxuan190/clmm-engine/internal/clmm/tickmath"
	"github.com/hxuan190/clmm-engine/internal/common"
	"github.com/hxuan190/clmm-engine/internal/http/httputil"
	"github.com/hxuan190/clmm-engine/internal/services/engine"
	"github.com/hxuan190/clmm-engine/internal/services/wallet"
)

var (
	notFoundErrors = []error{
		registry.ErrPoolNotFound,
		engine.ErrPositionNotFound,
	}
	forbiddenErrors = []error{
		engine.ErrNotOwner,
		wallet.ErrFaucetDisabled,
	}
	conflictErrors = []error{
		registry.ErrPoolExists,
		registry.ErrFeeTierExists,
		pool.ErrAlreadyInitialized,
		pool.ErrAlreadyLocked,
		pool.ErrNotInitialized,
		pool.ErrPositionNotEmpty,
		pool.ErrReceiptConsumed,
		engine.ErrSlippage,
		engine.ErrFlashNotRepaid,
	}
	badRequestErrors = []error{
		registry.ErrUnknownFeeTier,
		registry.ErrInvalidFeeTier,
		pool.ErrPoolIdMismatch,
		pool.ErrInsufficientInputAmount,
		pool.ErrPriceLimitAlreadyExceeded,
		pool.ErrPriceLimitOutOfBounds,
		pool.ErrInsufficientLiquidity,
		pool.ErrInvalidProtocolFeeRate,
		pool.ErrTickNotInitialized,
		pool.ErrInvalidTickRange,
		pool.ErrInvalidFeeRate,
		pool.ErrIdenticalCoins,
		pool.ErrCoinMismatch,
		pool.ErrZeroAmount,
		pool.ErrCoinsOwedOverflow,
		pool.ErrNoPositionLiquidity,
		pool.ErrInsufficientReserve,
		engine.ErrUnknownCoin,
		engine.ErrInvalidAccount,
		wallet.ErrInvalidAmount,
		wallet.ErrInvalidAccount,
		balance.ErrInsufficientValue,
		balance.ErrValueOverflow,
		price.ErrInvalidPrice,
		tickmath.ErrTickOutOfBounds,
		tickmath.ErrSqrtPriceOutOfBounds,
		oracle.ErrObservationTooOld,
		oracle.ErrCardinalityExceeded,
		liquidity.ErrOverflow,
		liquidity.ErrUnderflow,
		tick.ErrLiquidityGrossExceedsMax,
		sqrtprice.ErrAmountOverflow,
		sqrtprice.ErrInsufficientReserves,
		fullmath.ErrMulDivOverflow,
		signed.ErrOverflow,
	}
)

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// toHTTPError classifies engine errors. Anything unrecognized is a 500.
func toHTTPError(err error) *common.HttpError {
	switch {
	case matches(err, notFoundErrors):
		return common.HTTPErrorNotFound(err.Error())
	case matches(err, forbiddenErrors):
		return common.HTTPErrorForbidden(err.Error())
	case matches(err, conflictErrors):
		return common.HTTPErrorResourceConflict(err.Error())
	case matches(err, badRequestErrors):
		return common.HTTPErrorBadRequest(err.Error())
	}
	return common.HTTPErrorInternalError("")
}

func fail(c *gin.Context, err error) {
	e := toHTTPError(err)
	if e.StatusCode >= 500 {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("[http] request failed")
	}
	httputil.Abort(c, e)
}

func account(c *gin.Context) string {
	return c.GetString(common.AccountContextKey)
}
