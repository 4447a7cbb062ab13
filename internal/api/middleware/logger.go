package middleware

import (
	"log"
	"strconv"
	"time"

	"hydrogen-bypass/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request and counts it by route and status code
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		log.Printf("[API] %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond))
	}
}
