package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/artscene/internal/logger"
)

// LoggerKey is the context key of the request-scoped logger.
const LoggerKey = "logger"

// Logger creates a middleware that logs HTTP requests using structured logging.
// Requests addressing a scene get a logger tagged with its id.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Child logger tagged with the request and, when routed, the scene
		requestLogger := log.WithRequestID(GetRequestID(c))
		if sceneID := c.Param("scene"); sceneID != "" {
			requestLogger = requestLogger.WithScene(sceneID)
		}
		// Handlers pick it up through GetLogger
		c.Set(LoggerKey, requestLogger)

		c.Next()

		// Route is the registered pattern, path the concrete URL
		statusCode := c.Writer.Status()
		fields := logger.Fields{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"path":        c.Request.URL.Path,
			"status":      statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if len(c.Request.URL.RawQuery) > 0 {
			fields["query"] = c.Request.URL.RawQuery
		}
		// Errors attached by handlers only matter on failed requests
		if statusCode >= 400 && len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		// Level follows the status class
		switch {
		case statusCode >= 500:
			requestLogger.Error("Request completed with server error", nil, fields)
		case statusCode >= 400:
			requestLogger.Warn("Request completed with client error", fields)
		default:
			requestLogger.Info("Request completed", fields)
		}
	}
}

// GetLogger retrieves the request logger from the Gin context.
// Returns nil if not found.
func GetLogger(c *gin.Context) *logger.Logger {
	if v, exists := c.Get(LoggerKey); exists {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return nil
}
