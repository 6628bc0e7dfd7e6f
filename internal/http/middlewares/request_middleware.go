package middlewares

import (
	"log/slog"
	"time"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID accepts an upstream X-Request-Id of sane length or mints one.
// The id is echoed back and forwarded to the backend by the API client.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}

		c.Header(requestIDHeader, id)
		c.Set(CtxRequestID, id)
		c.Request = c.Request.WithContext(actorctx.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}

// RequestLogger writes one line per request. The session id is never logged:
// it is a bearer secret for the visitor's session.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		switch {
		case c.Writer.Status() >= 500:
			level = slog.LevelError
		case route == "/static/*filepath" || route == "/healthz" || route == "/readyz" || route == "/metrics":
			level = slog.LevelDebug
		}

		log.Log(c.Request.Context(), level, "http_request", attrs...)
	}
}
