package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/FernandoVinha/TheManager/pkg/errors"
	"github.com/FernandoVinha/TheManager/pkg/logger"
	"github.com/FernandoVinha/TheManager/pkg/response"
)

// Recovery turns a handler panic into the INTERNAL_SERVER_ERROR envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			fields := []zap.Field{
				zap.String("route", routeLabel(c)),
				zap.String("method", c.Request.Method),
				zap.Any("panic", r),
				zap.Stack("stack"),
			}
			if actor := c.GetString(CtxUsernameKey); actor != "" {
				fields = append(fields, zap.String("actor", actor))
			}
			logger.WithModule("http").Error("handler panicked", fields...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, appErrors.ErrInternalServer)
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with ROUTE_NOT_FOUND.
func NotFoundHandler(c *gin.Context) {
	msg := fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path)
	response.Error(c, appErrors.New("ROUTE_NOT_FOUND", msg, http.StatusNotFound))
}
