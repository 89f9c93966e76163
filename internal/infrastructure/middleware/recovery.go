package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/pkg/httputil"
)

// Recovery turns a panic in a handler or a decoder into a 500 with the
// standard error body, unless the response was already written.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			logger.Error("panic recovered",
				zap.Error(fmt.Errorf("panic: %v", recovered)),
				zap.ByteString("stack", debug.Stack()),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Bool("response_written", c.Writer.Written()),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			httputil.ErrorWithCode(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			c.Abort()
		}()
		c.Next()
	}
}
