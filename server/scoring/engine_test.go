package scoring

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kctmenswear/bundle-engine/store/cache"
)

// countingEvaluator wraps an evaluator and counts invocations.
type countingEvaluator struct {
	inner Evaluator
	calls atomic.Int64
}

func (c *countingEvaluator) Name() string { return c.inner.Name() }

func (c *countingEvaluator) Evaluate(ctx context.Context, bundle *OutfitBundle, sctx Context) (CriterionScore, error) {
	c.calls.Add(1)
	return c.inner.Evaluate(ctx, bundle, sctx)
}

// panickingEvaluator panics on every call.
type panickingEvaluator struct {
	name string
}

func (p *panickingEvaluator) Name() string { return p.name }

func (p *panickingEvaluator) Evaluate(context.Context, *OutfitBundle, Context) (CriterionScore, error) {
	panic("evaluator exploded")
}

func stubEvaluators(conversionRate float64, trendSignals []TrendSignal) []Evaluator {
	return []Evaluator{
		&ConversionEvaluator{Advisor: stubConversionAdvisor{
			prediction: ConversionPrediction{PredictedRate: conversionRate, Confidence: 0.8},
		}},
		&StyleCoherenceEvaluator{},
		&PriceOptimizationEvaluator{},
		&SeasonalRelevanceEvaluator{},
		&TrendAlignmentEvaluator{Advisor: stubTrendAdvisor{signals: trendSignals}},
		&CustomerMatchEvaluator{},
		&InventoryEfficiencyEvaluator{},
		&CrossSellPotentialEvaluator{},
	}
}

func newTestEngine(t *testing.T, evaluators []Evaluator) *Engine {
	t.Helper()
	engine, err := NewEngine(cache.New(cache.NewMemoryBackend(), nil), evaluators)
	require.NoError(t, err)
	return engine
}

func TestNewEngine(t *testing.T) {
	t.Run("RequiresCache", func(t *testing.T) {
		_, err := NewEngine(nil, stubEvaluators(0.1, nil))
		assert.Error(t, err)
	})

	t.Run("RequiresEvaluators", func(t *testing.T) {
		_, err := NewEngine(cache.New(cache.NewMemoryBackend(), nil), nil)
		assert.Error(t, err)
	})
}

func TestContextHash(t *testing.T) {
	t.Run("OrderIndependent", func(t *testing.T) {
		a := Context{"venue": "garden", "budget": 600.0, "customer": map[string]any{"x": 1.0, "y": 2.0}}
		b := Context{"budget": 600.0, "customer": map[string]any{"y": 2.0, "x": 1.0}, "venue": "garden"}
		assert.Equal(t, ContextHash(a), ContextHash(b))
	})

	t.Run("ContentSensitive", func(t *testing.T) {
		assert.NotEqual(t,
			ContextHash(Context{"venue": "garden"}),
			ContextHash(Context{"venue": "beach"}))
	})

	t.Run("StableKeys", func(t *testing.T) {
		sctx := Context{"venue": "garden"}
		assert.Equal(t,
			resultCacheKey("b-1", sctx),
			resultCacheKey("b-1", Context{"venue": "garden"}))
		assert.NotEqual(t,
			resultCacheKey("b-1", sctx),
			resultCacheKey("b-2", sctx))
	})
}

func TestScoreBundle(t *testing.T) {
	ctx := context.Background()

	t.Run("Bounds", func(t *testing.T) {
		engine := newTestEngine(t, stubEvaluators(0.15, nil))
		result, err := engine.ScoreBundle(ctx, sampleBundle(), nil, Context{})
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.GreaterOrEqual(t, result.OverallScore, 0.0)
		assert.LessOrEqual(t, result.OverallScore, 1.0)
		assert.GreaterOrEqual(t, result.ConfidenceLevel, 0.0)
		assert.LessOrEqual(t, result.ConfidenceLevel, 1.0)
		assert.Len(t, result.ScoreBreakdown, 8)
	})

	t.Run("SingleCriterionWeighting", func(t *testing.T) {
		engine := newTestEngine(t, stubEvaluators(0.20, localTrendSignals("summer")))

		overrides := map[string]float64{CriterionConversion: 1.0}
		for _, name := range CriterionNames[1:] {
			overrides[name] = 0
		}

		result, err := engine.ScoreBundle(ctx, sampleBundle(), overrides, Context{})
		require.NoError(t, err)
		// predicted 0.20 against the 0.25 ceiling.
		assert.InDelta(t, 0.8, result.OverallScore, 1e-9)
	})

	t.Run("CacheHitSkipsEvaluators", func(t *testing.T) {
		counted := make([]Evaluator, 0, 8)
		counters := make([]*countingEvaluator, 0, 8)
		for _, evaluator := range stubEvaluators(0.15, localTrendSignals("summer")) {
			counter := &countingEvaluator{inner: evaluator}
			counters = append(counters, counter)
			counted = append(counted, counter)
		}
		engine := newTestEngine(t, counted)

		sctx := Context{"venue": "garden"}
		first, err := engine.ScoreBundle(ctx, sampleBundle(), nil, sctx)
		require.NoError(t, err)
		for _, counter := range counters {
			assert.EqualValues(t, 1, counter.calls.Load())
		}

		second, err := engine.ScoreBundle(ctx, sampleBundle(), nil, sctx)
		require.NoError(t, err)
		for _, counter := range counters {
			assert.EqualValues(t, 1, counter.calls.Load(), "cache hit must not invoke %s", counter.Name())
		}
		assert.InDelta(t, first.OverallScore, second.OverallScore, 1e-9)
	})

	t.Run("DifferentContextRescores", func(t *testing.T) {
		counter := &countingEvaluator{inner: stubEvaluators(0.15, nil)[0]}
		evaluators := stubEvaluators(0.15, nil)
		evaluators[0] = counter
		engine := newTestEngine(t, evaluators)

		_, err := engine.ScoreBundle(ctx, sampleBundle(), nil, Context{"venue": "garden"})
		require.NoError(t, err)
		_, err = engine.ScoreBundle(ctx, sampleBundle(), nil, Context{"venue": "beach"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, counter.calls.Load())
	})

	t.Run("PanickingEvaluatorFallsBack", func(t *testing.T) {
		evaluators := stubEvaluators(0.15, localTrendSignals("summer"))
		evaluators[1] = &panickingEvaluator{name: CriterionStyleCoherence}
		engine := newTestEngine(t, evaluators)

		result, err := engine.ScoreBundle(ctx, sampleBundle(), nil, Context{})
		require.NoError(t, err)

		assert.True(t, result.Success)
		style := result.ScoreBreakdown[CriterionStyleCoherence]
		assert.True(t, style.Fallback)
		assert.InDelta(t, FallbackScore(CriterionStyleCoherence).Score, style.Score, 1e-9)
	})

	t.Run("InvalidBundle", func(t *testing.T) {
		engine := newTestEngine(t, stubEvaluators(0.15, nil))
		_, err := engine.ScoreBundle(ctx, &OutfitBundle{}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("ZeroStrengthSignalsFallBack", func(t *testing.T) {
		// Degenerate advisory data must degrade to the trend fallback, not
		// leak NaN into the weighted aggregate.
		signals := []TrendSignal{{Name: "sage", Kind: "color", Strength: 0}}
		engine := newTestEngine(t, stubEvaluators(0.15, signals))

		result, err := engine.ScoreBundle(ctx, sampleBundle(), nil, Context{})
		require.NoError(t, err)

		trend := result.ScoreBreakdown[CriterionTrendAlignment]
		assert.True(t, trend.Fallback)
		assert.False(t, math.IsNaN(result.OverallScore))
		assert.False(t, math.IsNaN(result.ConfidenceLevel))
		assert.GreaterOrEqual(t, result.OverallScore, 0.0)
		assert.LessOrEqual(t, result.OverallScore, 1.0)
	})
}

// End to end: a 480 bundle under default weights with a mocked conversion
// prediction and empty trend data.
func TestScoreBundleEndToEnd(t *testing.T) {
	engine := newTestEngine(t, stubEvaluators(0.15, nil))

	bundle := sampleBundle()
	require.InDelta(t, 480, bundle.FinalPrice, 1e-9)

	result, err := engine.ScoreBundle(context.Background(), bundle, nil, Context{})
	require.NoError(t, err)

	trend := result.ScoreBreakdown[CriterionTrendAlignment]
	assert.True(t, trend.Fallback, "empty trend data must fall back")
	assert.InDelta(t, 0.6, trend.Score, 1e-9)
	assert.InDelta(t, 0.5, trend.Confidence, 1e-9)

	assert.Greater(t, result.OverallScore, 0.0)
	assert.Equal(t, "mid_range", result.CompetitiveAnalysis.MarketPosition)
	assert.InDelta(t, 480, result.CompetitiveAnalysis.PricePoint, 1e-9)

	conversion := result.ScoreBreakdown[CriterionConversion]
	assert.InDelta(t, 0.6, conversion.Score, 1e-9) // 0.15 / 0.25
	assert.InDelta(t, 0.15, result.PerformancePredictions.EstimatedConversionRate, 1e-9)
}

func TestDerivations(t *testing.T) {
	t.Run("CompetitiveTiers", func(t *testing.T) {
		assert.Equal(t, "budget", deriveCompetitiveAnalysis(&OutfitBundle{FinalPrice: 299}).MarketPosition)
		assert.Equal(t, "mid_range", deriveCompetitiveAnalysis(&OutfitBundle{FinalPrice: 480}).MarketPosition)
		assert.Equal(t, "premium", deriveCompetitiveAnalysis(&OutfitBundle{FinalPrice: 600}).MarketPosition)
	})

	t.Run("RiskLevels", func(t *testing.T) {
		breakdown := map[string]CriterionScore{}
		for _, name := range CriterionNames {
			breakdown[name] = CriterionScore{Score: 0.9}
		}
		assert.Equal(t, "low", deriveRiskAssessment(breakdown).RiskLevel)

		breakdown[CriterionConversion] = CriterionScore{Score: 0.5}
		assert.Equal(t, "medium", deriveRiskAssessment(breakdown).RiskLevel)

		breakdown[CriterionStyleCoherence] = CriterionScore{Score: 0.5}
		assert.Equal(t, "medium", deriveRiskAssessment(breakdown).RiskLevel)

		breakdown[CriterionTrendAlignment] = CriterionScore{Score: 0.5}
		assert.Equal(t, "high", deriveRiskAssessment(breakdown).RiskLevel)
	})

	t.Run("Suggestions", func(t *testing.T) {
		breakdown := map[string]CriterionScore{}
		for _, name := range CriterionNames {
			breakdown[name] = CriterionScore{Score: 0.9}
		}
		breakdown[CriterionPriceOptimization] = CriterionScore{Score: 0.65}
		breakdown[CriterionCrossSellPotential] = CriterionScore{Score: 0.45}

		suggestions := deriveSuggestions(breakdown)
		require.Len(t, suggestions, 2)

		byName := map[string]OptimizationSuggestion{}
		for _, suggestion := range suggestions {
			byName[suggestion.Criterion] = suggestion
		}
		assert.Equal(t, "medium", byName[CriterionPriceOptimization].Priority)
		assert.Equal(t, "high", byName[CriterionCrossSellPotential].Priority)
	})
}

func TestInvalidateBundle(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, stubEvaluators(0.15, localTrendSignals("summer")))

	_, err := engine.ScoreBundle(ctx, sampleBundle(), nil, Context{})
	require.NoError(t, err)

	removed := engine.InvalidateBundle(ctx, "b-100")
	assert.EqualValues(t, 1, removed)
}
