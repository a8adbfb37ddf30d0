package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	scoringerrors "github.com/kctmenswear/bundle-engine/server/internal/errors"
	"github.com/kctmenswear/bundle-engine/server/internal/observability"
	"github.com/kctmenswear/bundle-engine/store/cache"
)

// resultCacheTTL bounds how long a composite score result is served from
// cache before being recomputed.
const resultCacheTTL = 30 * time.Minute

// suggestionThreshold flags criteria for optimization suggestions; criteria
// below highPriorityThreshold are flagged high priority.
const (
	suggestionThreshold   = 0.7
	highPriorityThreshold = 0.5
	weakCriterionScore    = 0.6
)

// Engine orchestrates the criterion evaluators for one bundle, aggregates a
// weighted overall score and caches the composite result.
type Engine struct {
	cache      *cache.Cache
	evaluators []Evaluator
	logger     *slog.Logger
}

// NewEngine creates an Engine. The evaluator set is fixed at construction.
func NewEngine(c *cache.Cache, evaluators []Evaluator) (*Engine, error) {
	if c == nil {
		return nil, scoringerrors.InitializationFailed("scoring engine requires a cache", nil)
	}
	if len(evaluators) == 0 {
		return nil, scoringerrors.InitializationFailed("scoring engine requires evaluators", nil)
	}
	return &Engine{
		cache:      c,
		evaluators: evaluators,
		logger:     slog.Default(),
	}, nil
}

// ContextHash produces a deterministic, order-independent hash of a scoring
// context. encoding/json serializes map keys in sorted order at every level,
// so two contexts with equal contents always hash identically.
func ContextHash(sctx Context) string {
	payload, err := json.Marshal(sctx)
	if err != nil {
		payload = []byte("unhashable")
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16]
}

// resultCacheKey derives the cache key for a (bundle, context) combination.
func resultCacheKey(bundleID string, sctx Context) string {
	return fmt.Sprintf("scoring:bundle:%s:%s", bundleID, ContextHash(sctx))
}

// ScoreBundle scores one bundle. On a cache hit for the same (bundle,
// context) the cached result is returned and no evaluator runs.
func (e *Engine) ScoreBundle(ctx context.Context, bundle *OutfitBundle, criteriaOverrides map[string]float64, sctx Context) (*BundleScoreResult, error) {
	if bundle == nil || bundle.BundleID == "" {
		return nil, scoringerrors.InvalidArgument("bundle with bundle_id is required")
	}

	reqCtx := observability.NewRequestContext(e.logger, "scoring_engine")
	cacheKey := resultCacheKey(bundle.BundleID, sctx)

	var cached BundleScoreResult
	if e.cache.Get(ctx, cacheKey, &cached) {
		reqCtx.Debug("scoring served from cache",
			slog.String(observability.LogFieldBundleID, bundle.BundleID),
			slog.String(observability.LogFieldCacheKey, cacheKey))
		return &cached, nil
	}

	criteria := ResolveCriteria(criteriaOverrides)
	result := e.scoreUncached(ctx, bundle, criteria, sctx)

	e.cache.Set(ctx, cacheKey, result, &cache.SetOptions{
		TTL:  resultCacheTTL,
		Tags: []string{"scoring", "bundle:" + bundle.BundleID},
	})

	reqCtx.Info("bundle scored",
		slog.String(observability.LogFieldBundleID, bundle.BundleID),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return result, nil
}

// scoreUncached runs the full evaluation without touching the result cache.
// The optimization search uses it to score simulated variants without
// polluting cached results.
func (e *Engine) scoreUncached(ctx context.Context, bundle *OutfitBundle, criteria Criteria, sctx Context) *BundleScoreResult {
	breakdown := e.evaluateAll(ctx, bundle, sctx)

	var overall, confidenceSum float64
	for name, score := range breakdown {
		overall += score.Score * criteria.Weight(name)
		confidenceSum += score.Confidence
	}
	confidence := confidenceSum / float64(len(breakdown))

	result := &BundleScoreResult{
		BundleID:        bundle.BundleID,
		Success:         true,
		OverallScore:    overall,
		ConfidenceLevel: confidence,
		ScoreBreakdown:  breakdown,
		ScoredAt:        time.Now(),
	}
	result.PerformancePredictions = derivePredictions(bundle, result)
	result.OptimizationSuggestions = deriveSuggestions(breakdown)
	result.CompetitiveAnalysis = deriveCompetitiveAnalysis(bundle)
	result.RiskAssessment = deriveRiskAssessment(breakdown)
	return result
}

// evaluateAll fans the evaluators out concurrently. Evaluators are
// independent of one another; each writes only its own slot.
func (e *Engine) evaluateAll(ctx context.Context, bundle *OutfitBundle, sctx Context) map[string]CriterionScore {
	scores := make([]CriterionScore, len(e.evaluators))

	var wg sync.WaitGroup
	for i, evaluator := range e.evaluators {
		wg.Add(1)
		go func(i int, evaluator Evaluator) {
			defer wg.Done()
			scores[i] = safeEvaluate(ctx, evaluator, bundle, sctx, e.logger)
		}(i, evaluator)
	}
	wg.Wait()

	breakdown := make(map[string]CriterionScore, len(e.evaluators))
	for i, evaluator := range e.evaluators {
		breakdown[evaluator.Name()] = scores[i]
	}
	return breakdown
}

// derivePredictions projects expected performance from the overall score and
// the conversion, price and customer-match criteria.
func derivePredictions(bundle *OutfitBundle, result *BundleScoreResult) PerformancePredictions {
	conversion := result.ScoreBreakdown[CriterionConversion]
	price := result.ScoreBreakdown[CriterionPriceOptimization]
	customer := result.ScoreBreakdown[CriterionCustomerMatch]

	estimatedRate := conversion.Score * conversionRateCeiling
	return PerformancePredictions{
		EstimatedConversionRate: estimatedRate,
		RevenuePotential:        estimatedRate * bundle.FinalPrice,
		EstimatedSatisfaction:   0.6*customer.Score + 0.4*result.OverallScore,
		PriceCompetitiveness:    price.Score,
	}
}

// deriveSuggestions flags every criterion below the suggestion threshold.
func deriveSuggestions(breakdown map[string]CriterionScore) []OptimizationSuggestion {
	suggestions := []OptimizationSuggestion{}
	for _, name := range CriterionNames {
		score, ok := breakdown[name]
		if !ok || score.Score >= suggestionThreshold {
			continue
		}
		priority := "medium"
		if score.Score < highPriorityThreshold {
			priority = "high"
		}
		suggestions = append(suggestions, OptimizationSuggestion{
			Criterion:    name,
			Priority:     priority,
			CurrentScore: score.Score,
			Message:      fmt.Sprintf("%s scored %.2f, below the %.1f target", name, score.Score, suggestionThreshold),
		})
	}
	return suggestions
}

// deriveCompetitiveAnalysis tiers the bundle by final price.
func deriveCompetitiveAnalysis(bundle *OutfitBundle) CompetitiveAnalysis {
	position := "premium"
	switch {
	case bundle.FinalPrice < 300:
		position = "budget"
	case bundle.FinalPrice < 600:
		position = "mid_range"
	}
	return CompetitiveAnalysis{
		MarketPosition: position,
		PricePoint:     bundle.FinalPrice,
	}
}

// deriveRiskAssessment counts weak criteria: more than two below 0.6 is
// high risk, one or two is medium, none is low.
func deriveRiskAssessment(breakdown map[string]CriterionScore) RiskAssessment {
	var weak []string
	for _, name := range CriterionNames {
		if score, ok := breakdown[name]; ok && score.Score < weakCriterionScore {
			weak = append(weak, name)
		}
	}

	level := "low"
	switch {
	case len(weak) > 2:
		level = "high"
	case len(weak) >= 1:
		level = "medium"
	}
	return RiskAssessment{RiskLevel: level, WeakCriteria: weak}
}

// InvalidateBundle evicts every cached result for a bundle.
func (e *Engine) InvalidateBundle(ctx context.Context, bundleID string) int64 {
	return e.cache.InvalidateByTags(ctx, []string{"bundle:" + bundleID})
}
