package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Abra-CatAbra/foodsync-ai/internal/logger"
)

// LoggerMiddleware returns a Gin middleware that injects a request-scoped
// logger into the request context and logs request completion.
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := uuid.New().String()

		reqLog := log.WithFields(logger.Fields{
			"request_id":          requestID,
			logger.FieldComponent: "api",
		})
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))
		c.Set("logger", reqLog)

		c.Header("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}

		reqLog.WithFields(logger.Fields{
			"method":      c.Request.Method,
			"path":        fullPath,
			"status":      c.Writer.Status(),
			"duration_ms": latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
		}).Info("Request completed")
	}
}

// GetLogger extracts the request-scoped logger from the Gin context.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, exists := c.Get("logger"); exists {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}
