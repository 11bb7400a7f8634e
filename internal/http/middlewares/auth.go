package middlewares

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/clmm-engine/internal/common"
	"github.com/hxuan190/clmm-engine/internal/http/httputil"
)

// RequireAccount rejects requests without an account header and stores
// the account in the context.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetHeader(common.AccountHeader)
		if account == "" {
			httputil.Unauthorized(c, "missing "+common.AccountHeader+" header")
			return
		}
		c.Set(common.AccountContextKey, account)
		c.Next()
	}
}

// AdminAuth checks the admin token header. An empty token disables the
// admin API.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			httputil.Abort(c, common.HTTPErrorForbidden("admin API disabled"))
			return
		}
		got := c.GetHeader(common.AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			httputil.Unauthorized(c, "invalid admin token")
			return
		}
		c.Next()
	}
}
