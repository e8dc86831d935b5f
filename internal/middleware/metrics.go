package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route, keeping
// arbitrary URLs out of the label set.
const unmatchedRoute = "unmatched"

// Metrics records latency per route template and tracks in-flight requests.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.APIInFlight.Inc()
		start := time.Now()

		defer func() {
			metrics.APIInFlight.Dec()
			metrics.APILatency.
				WithLabelValues(c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status())).
				Observe(time.Since(start).Seconds())
		}()

		c.Next()
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
