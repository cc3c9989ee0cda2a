package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/guestbook/pkg/logger"
	"github.com/d60-Lab/guestbook/pkg/response"
)

// Recovery 捕获 panic，上报 Sentry，返回通用错误
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(c.Request)
			hub.Scope().SetTag(ContextRequestID, c.GetString(ContextRequestID))
			hub.RecoverWithContext(c.Request.Context(), r)

			logger.Error("panic recovered",
				zap.String("panic", fmt.Sprint(r)),
				zap.ByteString("stack", debug.Stack()),
				logger.RequestID(c.GetString(ContextRequestID)),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
				Code:    response.CodeInternalError,
				Message: response.GenericErrorMessage,
			})
		}()
		c.Next()
	}
}
