package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/artscene/internal/logger"
)

// Recovery turns a panic in a handler into a logged 500 response instead of
// letting it take the server down.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := GetRequestID(c)

			// Prefer the request logger so the entry carries the request id
			requestLogger := GetLogger(c)
			if requestLogger == nil {
				requestLogger = log
			}

			// Stack is captured here, inside the deferred call
			requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", rec), logger.Fields{
				"request_id": requestID,
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"scene":      c.Param("scene"),
				"stack":      string(debug.Stack()),
			})

			// Same error envelope as the handlers, and no further handlers run
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":       "INTERNAL_SERVER_ERROR",
					"message":    "An unexpected error occurred",
					"request_id": requestID,
				},
			})
		}()

		c.Next()
	}
}
