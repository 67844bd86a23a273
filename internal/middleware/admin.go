package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"mutolaa/internal/misc"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware guards dashboard-only endpoints. An empty key leaves them open.
func AdminKeyMiddleware(key string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if key == "" {
			return
		}
		given := ctx.GetHeader(AdminKeyHeader)
		if given == "" {
			misc.ReturnStandardError(ctx, http.StatusUnauthorized, "admin key missing")
			return
		}
		if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			misc.ReturnStandardError(ctx, http.StatusUnauthorized, "admin key invalid")
			return
		}
	}
}
