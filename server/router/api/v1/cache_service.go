package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// InvalidateCacheRequest is the body of POST /cache/invalidate. Either tags
// or a key pattern may be supplied; both in one call are allowed.
type InvalidateCacheRequest struct {
	Tags    []string `json:"tags,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// GetCacheMetrics returns the running cache counters.
func (s *APIV1Service) GetCacheMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Cache.Metrics())
}

// ResetCacheMetrics zeroes the running cache counters.
func (s *APIV1Service) ResetCacheMetrics(c echo.Context) error {
	s.Cache.ResetMetrics()
	return c.NoContent(http.StatusNoContent)
}

// GetCacheHealth reports backend connectivity and key count.
func (s *APIV1Service) GetCacheHealth(c echo.Context) error {
	info := s.Cache.GetHealthInfo(c.Request().Context())
	status := http.StatusOK
	if info.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, info)
}

// InvalidateCache evicts cache entries by tags and/or key pattern.
func (s *APIV1Service) InvalidateCache(c echo.Context) error {
	var request InvalidateCacheRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if len(request.Tags) == 0 && request.Pattern == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tags or pattern is required")
	}

	ctx := c.Request().Context()
	var removed int64
	if len(request.Tags) > 0 {
		removed += s.Cache.InvalidateByTags(ctx, request.Tags)
	}
	if request.Pattern != "" {
		removed += s.Cache.InvalidateByPattern(ctx, request.Pattern)
	}
	return c.JSON(http.StatusOK, map[string]int64{"removed": removed})
}

// ClearCache removes every key in the cache namespace.
func (s *APIV1Service) ClearCache(c echo.Context) error {
	removed := s.Cache.Clear(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]int64{"removed": removed})
}
