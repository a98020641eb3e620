package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commentator/internal/logging"
	"commentator/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestContext tags each request with an id and logs its completion.
func requestContext(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))

		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.Duration(logging.FieldElapsed, time.Since(started)),
		}
		reqLogger := logging.WithContext(c.Request.Context(), logger)
		if status >= 500 {
			reqLogger.Warn("request failed", logging.Args(attrs...)...)
			return
		}
		reqLogger.Debug("request served", logging.Args(attrs...)...)
	}
}
