// Package v1 exposes the scoring engine and cache layer over a thin HTTP
// API. Handlers only translate between HTTP and the engine; no scoring or
// caching logic lives here.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/kctmenswear/bundle-engine/internal/profile"
	"github.com/kctmenswear/bundle-engine/server/scoring"
	"github.com/kctmenswear/bundle-engine/store/cache"
)

// APIV1Service bundles the handlers for the v1 HTTP API.
type APIV1Service struct {
	Profile *profile.Profile
	Cache   *cache.Cache
	Engine  *scoring.Engine
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(profile *profile.Profile, c *cache.Cache, engine *scoring.Engine) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Cache:   c,
		Engine:  engine,
	}
}

// Register mounts all v1 routes.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")

	group.POST("/bundles/score", s.ScoreBundle)
	group.POST("/bundles/score-bulk", s.ScoreBundles)
	group.POST("/bundles/:bundleID/optimize", s.OptimizeBundle)

	group.GET("/cache/metrics", s.GetCacheMetrics)
	group.POST("/cache/metrics/reset", s.ResetCacheMetrics)
	group.GET("/cache/health", s.GetCacheHealth)
	group.POST("/cache/invalidate", s.InvalidateCache)
	group.POST("/cache/clear", s.ClearCache)
}
