package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/research-hub/internal/metrics"
)

// MetricsMiddleware counts requests by method, matched route and status code.
// Unmatched paths share one label so scanners cannot blow up cardinality.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
