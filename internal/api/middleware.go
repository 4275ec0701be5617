package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facetrack/internal/observability"
)

// LoggingMiddleware logs each request with slog and records its duration.
// The metric is labelled with the route template, not the raw path, so
// parameterized routes stay a single series.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		// scrapers and liveness probes would drown the log
		if path != "/metrics" && path != "/healthz" {
			slog.Info("request",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"duration", duration.String(),
				"ip", c.ClientIP(),
			)
		}

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(status),
		).Observe(duration.Seconds())
	}
}
