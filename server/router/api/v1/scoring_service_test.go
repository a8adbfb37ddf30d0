package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kctmenswear/bundle-engine/internal/profile"
	"github.com/kctmenswear/bundle-engine/server/scoring"
	"github.com/kctmenswear/bundle-engine/store/cache"
)

type steadyEvaluator struct {
	name  string
	score float64
}

func (e *steadyEvaluator) Name() string { return e.name }

func (e *steadyEvaluator) Evaluate(_ context.Context, _ *scoring.OutfitBundle, _ scoring.Context) (scoring.CriterionScore, error) {
	return scoring.CriterionScore{Score: e.score, Confidence: 0.9}, nil
}

func newTestService(t *testing.T) (*APIV1Service, *echo.Echo) {
	t.Helper()

	cacheLayer := cache.New(cache.NewMemoryBackend(), nil)
	evaluators := make([]scoring.Evaluator, 0, len(scoring.CriterionNames))
	for _, name := range scoring.CriterionNames {
		evaluators = append(evaluators, &steadyEvaluator{name: name, score: 0.8})
	}
	engine, err := scoring.NewEngine(cacheLayer, evaluators)
	require.NoError(t, err)

	service := NewAPIV1Service(&profile.Profile{Mode: "demo", Port: 8081, Version: "test"}, cacheLayer, engine)
	echoServer := echo.New()
	service.Register(echoServer)
	return service, echoServer
}

func request(echoServer *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	echoServer.ServeHTTP(rec, req)
	return rec
}

func TestScoreBundleHandler(t *testing.T) {
	_, echoServer := newTestService(t)

	t.Run("OK", func(t *testing.T) {
		body := `{"bundle":{"bundle_id":"b-1","pieces":[{"piece_id":"p-1","type":"suit","color":"navy","price":400,"available":true}],"occasion":"wedding","season":"summer","formality_level":3,"total_price":400,"final_price":380}}`
		rec := request(echoServer, http.MethodPost, "/api/v1/bundles/score", body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"bundle_id":"b-1"`)
		assert.Contains(t, rec.Body.String(), `"overall_score"`)
	})

	t.Run("MissingBundleID", func(t *testing.T) {
		rec := request(echoServer, http.MethodPost, "/api/v1/bundles/score", `{"bundle":{"pieces":[]}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		rec := request(echoServer, http.MethodPost, "/api/v1/bundles/score", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestScoreBundlesHandler(t *testing.T) {
	_, echoServer := newTestService(t)

	t.Run("OK", func(t *testing.T) {
		body := `{"bundles":[` +
			`{"bundle_id":"b-1","pieces":[],"occasion":"wedding","season":"summer","formality_level":3,"total_price":400,"final_price":380},` +
			`{"bundle_id":"b-2","pieces":[],"occasion":"prom","season":"spring","formality_level":4,"total_price":600,"final_price":600}]}`
		rec := request(echoServer, http.MethodPost, "/api/v1/bundles/score-bulk", body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_bundles":2`)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		rec := request(echoServer, http.MethodPost, "/api/v1/bundles/score-bulk", `{"bundles":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOptimizeBundleHandler(t *testing.T) {
	_, echoServer := newTestService(t)

	t.Run("OK", func(t *testing.T) {
		body := `{"bundle":{"bundle_id":"b-9","pieces":[],"occasion":"wedding","season":"summer","formality_level":3,"total_price":400,"final_price":380},"target_score":0.5}`
		rec := request(echoServer, http.MethodPost, "/api/v1/bundles/b-9/optimize", body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"bundle_id":"b-9"`)
	})

	t.Run("PathBodyMismatch", func(t *testing.T) {
		body := `{"bundle":{"bundle_id":"b-other"},"target_score":0.5}`
		rec := request(echoServer, http.MethodPost, "/api/v1/bundles/b-9/optimize", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCacheHandlers(t *testing.T) {
	service, echoServer := newTestService(t)

	t.Run("MetricsAndReset", func(t *testing.T) {
		body := `{"bundle":{"bundle_id":"b-m","pieces":[],"occasion":"wedding","season":"summer","formality_level":3,"total_price":400,"final_price":380}}`
		request(echoServer, http.MethodPost, "/api/v1/bundles/score", body)

		rec := request(echoServer, http.MethodGet, "/api/v1/cache/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"sets":1`)

		rec = request(echoServer, http.MethodPost, "/api/v1/cache/metrics/reset", "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(0), service.Cache.Metrics().Sets)
	})

	t.Run("Health", func(t *testing.T) {
		rec := request(echoServer, http.MethodGet, "/api/v1/cache/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"healthy"`)
	})

	t.Run("InvalidateByTag", func(t *testing.T) {
		body := `{"bundle":{"bundle_id":"b-inv","pieces":[],"occasion":"wedding","season":"summer","formality_level":3,"total_price":400,"final_price":380}}`
		request(echoServer, http.MethodPost, "/api/v1/bundles/score", body)

		rec := request(echoServer, http.MethodPost, "/api/v1/cache/invalidate", `{"tags":["bundle:b-inv"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"removed":1`)
	})

	t.Run("InvalidateRequiresTagsOrPattern", func(t *testing.T) {
		rec := request(echoServer, http.MethodPost, "/api/v1/cache/invalidate", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Clear", func(t *testing.T) {
		body := `{"bundle":{"bundle_id":"b-clr","pieces":[],"occasion":"wedding","season":"summer","formality_level":3,"total_price":400,"final_price":380}}`
		request(echoServer, http.MethodPost, "/api/v1/bundles/score", body)

		rec := request(echoServer, http.MethodPost, "/api/v1/cache/clear", "")
		require.Equal(t, http.StatusOK, rec.Code)

		health := service.Cache.GetHealthInfo(context.Background())
		assert.Equal(t, int64(0), health.KeyCount)
	})
}
