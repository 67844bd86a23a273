package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mutolaa/internal/misc"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request. The level follows the status:
// 5xx errors, 4xx warnings, everything else info.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		requestID := ctx.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.Header(RequestIDHeader, requestID)
		reqLog := log.With().Str("request_id", requestID).Logger()
		ctx.Set("Logger", reqLog)

		ctx.Next()

		status := ctx.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = reqLog.Error()
		case status >= http.StatusBadRequest:
			event = reqLog.Warn()
		default:
			event = reqLog.Info()
		}
		if len(ctx.Errors) > 0 {
			event = event.Str("errors", ctx.Errors.String())
		}
		event.
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", ctx.ClientIP()).
			Msg("request")
	}
}

// RecoveryLogger turns a handler panic into a 500 error object
func RecoveryLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error().
					Interface("panic", recovered).
					Bytes("stack", debug.Stack()).
					Str("path", ctx.Request.URL.Path).
					Msg("handler panicked")
				misc.ReturnStandardError(ctx, http.StatusInternalServerError, "internal error")
			}
		}()
		ctx.Next()
	}
}
