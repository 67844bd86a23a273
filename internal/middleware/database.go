package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mutolaa/internal/stats"
)

func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("DB", db)
		ctx.Next()
	}
}

// StatsMiddleware exposes the aggregation service, which also carries the clock
func StatsMiddleware(service *stats.Service) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("Stats", service)
		ctx.Next()
	}
}
