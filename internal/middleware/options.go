package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func OptionsMiddleware(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodOptions {
		ctx.Next()
	} else {
		ctx.Header("Access-Control-Allow-Origin", viper.GetString("cors.origin"))
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "origin, content-type, accept, x-admin-key, x-request-id")
		ctx.Header("Allow", "HEAD,GET,POST,PUT,DELETE,OPTIONS")
		ctx.AbortWithStatus(http.StatusOK)
	}
}
