package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/shared/id"
)

// RequestIDKey is the context key carrying the generated request ID.
const RequestIDKey = "request_id"

// RequestID assigns each request a ULID and echoes it back to clients.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := id.NewRequestID().String()
		c.Set(RequestIDKey, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// RequestLogger logs one structured line per completed request.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if reqID, ok := c.Get(RequestIDKey); ok {
			fields = append(fields, zap.Any("request_id", reqID))
		}

		if c.Writer.Status() >= 500 {
			log.Error("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
