package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	scoringerrors "github.com/kctmenswear/bundle-engine/server/internal/errors"
	"github.com/kctmenswear/bundle-engine/server/scoring"
)

// ScoreBundleRequest is the body of POST /bundles/score.
type ScoreBundleRequest struct {
	Bundle   *scoring.OutfitBundle `json:"bundle"`
	Criteria map[string]float64    `json:"criteria,omitempty"`
	Context  scoring.Context       `json:"context,omitempty"`
}

// OptimizeBundleRequest is the body of POST /bundles/:bundleID/optimize.
type OptimizeBundleRequest struct {
	Bundle      *scoring.OutfitBundle `json:"bundle"`
	TargetScore float64               `json:"target_score"`
	Context     scoring.Context       `json:"context,omitempty"`
}

// ScoreBundle scores a single bundle.
func (s *APIV1Service) ScoreBundle(c echo.Context) error {
	var request ScoreBundleRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := s.Engine.ScoreBundle(c.Request().Context(), request.Bundle, request.Criteria, request.Context)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// ScoreBundles scores a list of bundles in one call.
func (s *APIV1Service) ScoreBundles(c echo.Context) error {
	var request scoring.BulkScoringRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := s.Engine.ScoreBundles(c.Request().Context(), &request)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// OptimizeBundle returns beneficial simulated modifications for a bundle.
func (s *APIV1Service) OptimizeBundle(c echo.Context) error {
	var request OptimizeBundleRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if request.Bundle != nil && request.Bundle.BundleID != c.Param("bundleID") {
		return echo.NewHTTPError(http.StatusBadRequest, "bundle_id in path and body disagree")
	}

	optimizations, err := s.Engine.GetOptimizationRecommendations(c.Request().Context(), request.Bundle, request.TargetScore, request.Context)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"bundle_id":     c.Param("bundleID"),
		"optimizations": optimizations,
	})
}

// toHTTPError maps scoring error codes onto HTTP statuses.
func toHTTPError(err error) *echo.HTTPError {
	switch scoringerrors.GetCodeFromError(err, scoringerrors.ErrCodeEvaluationFailed) {
	case scoringerrors.ErrCodeInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case scoringerrors.ErrCodeTimeout, scoringerrors.ErrCodeContextCanceled:
		return echo.NewHTTPError(http.StatusRequestTimeout, err.Error())
	case scoringerrors.ErrCodeServiceUnavailable, scoringerrors.ErrCodeCacheUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
