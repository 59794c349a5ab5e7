package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/reelscore/models"
)

// StatsProvider reports browser usage. *scraper.Browser satisfies it.
type StatsProvider interface {
	Stats() models.BrowserStats
}

// Health returns a handler for GET /api/v1/health.
//
// Reports browser utilisation and degrades status when > 80% of pages are
// active. An unlaunched browser is healthy.
func Health(sp StatsProvider, startTime time.Time, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.BrowserStats
		if sp != nil {
			stats = sp.Stats()
		}

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserStats: stats,
			Version:      version,
		})
	}
}
