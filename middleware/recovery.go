package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into a generic 500 that carries the request id. The
// stack goes to the log only. When a PDF, ZIP or event stream has already
// started, the connection is just aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(c)

				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)

				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": requestID,
				})
			}
		}()

		c.Next()
	}
}
