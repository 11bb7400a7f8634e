package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/clmm-engine/internal/common"
)

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// Abort writes e and stops the handler chain.
func Abort(c *gin.Context, e *common.HttpError) {
	c.AbortWithStatusJSON(e.StatusCode, Response{
		Success: false,
		Code:    e.Code,
		Error:   e.Message,
	})
}

func BadRequest(c *gin.Context, err string) {
	Abort(c, common.HTTPErrorBadRequest(err))
}

func NotFound(c *gin.Context, err string) {
	Abort(c, common.HTTPErrorNotFound(err))
}

func Unauthorized(c *gin.Context, err string) {
	Abort(c, common.HTTPErrorUnauthorized(err))
}
