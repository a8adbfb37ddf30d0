package scoring

import (
	"context"
	"fmt"
	"log/slog"
)

// Evaluator scores one quality dimension of a bundle. Implementations are
// side-effect-free and may call external collaborators.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, bundle *OutfitBundle, sctx Context) (CriterionScore, error)
}

// fallbackScores are the fixed values substituted when a criterion's real
// computation fails. One degraded sub-signal must never fail an entire
// scoring request, so every evaluator is wrapped in a boundary that
// substitutes these on error or panic.
var fallbackScores = map[string]CriterionScore{
	CriterionConversion:          {Score: 0.60, Confidence: 0.50},
	CriterionStyleCoherence:      {Score: 0.65, Confidence: 0.60},
	CriterionPriceOptimization:   {Score: 0.65, Confidence: 0.60},
	CriterionSeasonalRelevance:   {Score: 0.60, Confidence: 0.55},
	CriterionTrendAlignment:      {Score: 0.60, Confidence: 0.50},
	CriterionCustomerMatch:       {Score: 0.60, Confidence: 0.50},
	CriterionInventoryEfficiency: {Score: 0.70, Confidence: 0.60},
	CriterionCrossSellPotential:  {Score: 0.55, Confidence: 0.50},
}

// FallbackScore returns the documented fallback for a criterion.
func FallbackScore(criterion string) CriterionScore {
	score, ok := fallbackScores[criterion]
	if !ok {
		score = CriterionScore{Score: 0.6, Confidence: 0.5}
	}
	score.Detail = "fallback applied after evaluation failure"
	score.Fallback = true
	return score
}

// safeEvaluate runs one evaluator inside its failure boundary. Errors and
// panics are logged as warnings and replaced by the criterion's fallback.
func safeEvaluate(ctx context.Context, evaluator Evaluator, bundle *OutfitBundle, sctx Context, logger *slog.Logger) (result CriterionScore) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("criterion evaluation panicked",
				"criterion", evaluator.Name(),
				"bundle_id", bundle.BundleID,
				"panic", fmt.Sprint(r))
			result = FallbackScore(evaluator.Name())
		}
	}()

	score, err := evaluator.Evaluate(ctx, bundle, sctx)
	if err != nil {
		logger.Warn("criterion evaluation failed",
			"criterion", evaluator.Name(),
			"bundle_id", bundle.BundleID,
			"error", err)
		return FallbackScore(evaluator.Name())
	}
	return clampScore(score)
}

// clampScore bounds score and confidence to [0,1].
func clampScore(score CriterionScore) CriterionScore {
	score.Score = clamp01(score.Score)
	score.Confidence = clamp01(score.Confidence)
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DefaultEvaluators builds the standard eight-criterion evaluator set wired
// to the given advisory client.
func DefaultEvaluators(advisory *AdvisoryClient) []Evaluator {
	return []Evaluator{
		&ConversionEvaluator{Advisor: advisory},
		&StyleCoherenceEvaluator{Advisor: advisory},
		&PriceOptimizationEvaluator{},
		&SeasonalRelevanceEvaluator{},
		&TrendAlignmentEvaluator{Advisor: advisory},
		&CustomerMatchEvaluator{},
		&InventoryEfficiencyEvaluator{},
		&CrossSellPotentialEvaluator{},
	}
}
