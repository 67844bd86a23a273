package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

func APIMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", viper.GetString("cors.origin"))
		ctx.Header("Cache-Control", "no-store")
	}
}
