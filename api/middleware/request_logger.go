package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workspace/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// RequestIDHeader echoes the request id assigned to every call.
const RequestIDHeader = "X-Request-ID"

// RequestLogger attaches a request-scoped logger to the request context and logs
// one line per completed request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, entry := logger.ContextWithLogger(c.Request.Context(), customLog)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, logger.RequestID(ctx))

		c.Next()

		entry.WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).String()).
			Infof("%s %s", c.Request.Method, c.Request.URL.Path)
	}
}
