package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/reelscore/api/handler"
	"github.com/use-agent/reelscore/api/middleware"
	"github.com/use-agent/reelscore/config"
)

// Deps are the services the routes need. Stats and Recorder may be nil.
type Deps struct {
	Service  handler.Service
	Stats    handler.StatsProvider
	Recorder handler.RunRecorder
	Version  string

	// Context bounds background report jobs. Nil means they are never
	// cancelled.
	Context context.Context
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health sits outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(deps.Stats, startTime, deps.Version))

	// Protected group: auth, then rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Single lookup
	protected.POST("/lookup", handler.Lookup(deps.Service))

	// Reports
	jobCtx := deps.Context
	if jobCtx == nil {
		jobCtx = context.Background()
	}
	protected.POST("/reports", handler.PostReport(jobCtx, deps.Service, deps.Recorder))
	protected.GET("/reports/:id", handler.GetReport())
	protected.GET("/reports/:id/export", handler.ExportReport())

	return r
}
