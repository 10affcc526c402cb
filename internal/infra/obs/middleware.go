package obs

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
	requestIDCtxKey = "request_id"
)

type Middleware struct {
	Logger *slog.Logger
}

// RequestID tags the request and stores a child logger carrying the id.
func (m Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, id)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Set(requestIDCtxKey, id)
		if m.Logger != nil {
			c.Set(loggerKey, m.Logger.With("request_id", id))
		}
		c.Next()
	}
}

func (m Middleware) LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log := RequestLogger(c, m.Logger)
		if log == nil {
			return
		}
		status := c.Writer.Status()
		attrs := []any{"method", c.Request.Method, "path", c.FullPath(), "status", status, "duration", time.Since(start)}
		switch {
		case status >= 500:
			log.ErrorContext(c.Request.Context(), "http", attrs...)
		case status >= 400:
			log.WarnContext(c.Request.Context(), "http", attrs...)
		default:
			log.InfoContext(c.Request.Context(), "http", attrs...)
		}
	}
}

// RequestLogger returns the per-request logger, or fallback outside a request.
func RequestLogger(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return fallback
}

type requestIDKey struct{}

func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
