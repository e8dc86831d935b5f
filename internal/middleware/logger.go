package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FernandoVinha/TheManager/pkg/logger"
)

// Logger emits one access line per request. Health probes log at debug so
// orchestrator polling does not drown the request log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", routeLabel(c)),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if actor := c.GetString(CtxUsernameKey); actor != "" {
			fields = append(fields, zap.String("actor", actor))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}

		logger.WithModule("http").Log(accessLevel(c.Request.URL.Path, status), "request", fields...)
	}
}

func accessLevel(path string, status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.WarnLevel
	case path == "/health" || path == "/health/ready" || path == "/api/health":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
