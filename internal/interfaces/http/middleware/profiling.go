package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/photolab/backend/internal/infrastructure/telemetry"
)

// Profiling tags the rest of the handler chain with route, method and studio
// pprof labels. Run it after the auth middleware so the studio is known.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		labels := map[string]string{
			telemetry.ProfilingLabelMethod:   c.Request.Method,
			telemetry.ProfilingLabelRoute:    c.FullPath(),
			telemetry.ProfilingLabelStudioID: c.GetString(StudioIDKey),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
