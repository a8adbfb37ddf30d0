package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	scoringerrors "github.com/kctmenswear/bundle-engine/server/internal/errors"
)

// Simulation trigger thresholds per category.
const (
	priceSimThreshold = 0.8
	styleSimThreshold = 0.8
	trendSimThreshold = 0.7
)

// simulationDiscount is the price cut applied by the price simulation.
const simulationDiscount = 0.10

// GetOptimizationRecommendations scores the bundle once as a baseline, then
// simulates category-specific modifications for each sub-dimension below its
// threshold and re-scores the simulated variant. Only simulations whose
// potential overall score beats the baseline are returned.
//
// This is a local, greedy, single-step search. Simulated variants are scored
// outside the result cache and the stored bundle is never mutated.
func (e *Engine) GetOptimizationRecommendations(ctx context.Context, bundle *OutfitBundle, targetScore float64, sctx Context) ([]Optimization, error) {
	if bundle == nil || bundle.BundleID == "" {
		return nil, scoringerrors.InvalidArgument("bundle with bundle_id is required")
	}

	baseline, err := e.ScoreBundle(ctx, bundle, nil, sctx)
	if err != nil {
		return nil, err
	}
	if baseline.OverallScore >= targetScore {
		return []Optimization{}, nil
	}

	criteria := ResolveCriteria(nil)
	optimizations := []Optimization{}

	if price := baseline.ScoreBreakdown[CriterionPriceOptimization]; price.Score < priceSimThreshold {
		variant := clone(bundle)
		variant.FinalPrice = bundle.FinalPrice * (1 - simulationDiscount)
		potential := e.scoreUncached(ctx, variant, criteria, sctx).OverallScore
		if potential > baseline.OverallScore {
			optimizations = append(optimizations, Optimization{
				ID:              shortuuid.New(),
				Category:        "price",
				Description:     fmt.Sprintf("reduce final price by %.0f%% to %.2f", simulationDiscount*100, variant.FinalPrice),
				CurrentScore:    price.Score,
				BaselineOverall: baseline.OverallScore,
				PotentialScore:  potential,
				EstimatedEffort: "low",
				ExpectedROI:     (potential - baseline.OverallScore) * bundle.FinalPrice,
			})
		}
	}

	if style := baseline.ScoreBreakdown[CriterionStyleCoherence]; style.Score < styleSimThreshold {
		variant := coordinatePalette(bundle)
		potential := e.scoreUncached(ctx, variant, criteria, sctx).OverallScore
		if potential > baseline.OverallScore {
			optimizations = append(optimizations, Optimization{
				ID:              shortuuid.New(),
				Category:        "style",
				Description:     "swap clashing pieces to a coordinated neutral palette",
				CurrentScore:    style.Score,
				BaselineOverall: baseline.OverallScore,
				PotentialScore:  potential,
				EstimatedEffort: "medium",
				ExpectedROI:     (potential - baseline.OverallScore) * bundle.FinalPrice,
			})
		}
	}

	if trend := baseline.ScoreBreakdown[CriterionTrendAlignment]; trend.Score < trendSimThreshold {
		variant, described := e.applyTrendingSignal(ctx, bundle)
		if variant != nil {
			potential := e.scoreUncached(ctx, variant, criteria, sctx).OverallScore
			if potential > baseline.OverallScore {
				optimizations = append(optimizations, Optimization{
					ID:              shortuuid.New(),
					Category:        "trend",
					Description:     described,
					CurrentScore:    trend.Score,
					BaselineOverall: baseline.OverallScore,
					PotentialScore:  potential,
					EstimatedEffort: "medium",
					ExpectedROI:     (potential - baseline.OverallScore) * bundle.FinalPrice,
				})
			}
		}
	}

	return optimizations, nil
}

// clone deep-copies a bundle so simulations never touch the input.
func clone(bundle *OutfitBundle) *OutfitBundle {
	copied := *bundle
	copied.Pieces = make([]BundlePiece, len(bundle.Pieces))
	copy(copied.Pieces, bundle.Pieces)
	return &copied
}

// coordinatePalette re-colors non-neutral, non-anchor pieces to the anchor
// piece's color family.
func coordinatePalette(bundle *OutfitBundle) *OutfitBundle {
	variant := clone(bundle)
	if len(variant.Pieces) < 2 {
		return variant
	}
	anchor := strings.ToLower(variant.Pieces[0].Color)
	for i := 1; i < len(variant.Pieces); i++ {
		color := strings.ToLower(variant.Pieces[i].Color)
		if color == "" || neutralColors[color] || color == anchor {
			continue
		}
		if colorPairHarmony(anchor, color) < 0.9 {
			variant.Pieces[i].Color = "charcoal"
		}
	}
	return variant
}

// applyTrendingSignal swaps the first swappable attribute toward the
// strongest current trend signal. Returns nil when no signal applies.
func (e *Engine) applyTrendingSignal(ctx context.Context, bundle *OutfitBundle) (*OutfitBundle, string) {
	var advisor TrendAdvisor
	for _, evaluator := range e.evaluators {
		if trendEval, ok := evaluator.(*TrendAlignmentEvaluator); ok {
			advisor = trendEval.Advisor
			break
		}
	}
	if advisor == nil {
		return nil, ""
	}

	signals, err := advisor.TrendingSignals(ctx, strings.ToLower(bundle.Season))
	if err != nil || len(signals) == 0 {
		return nil, ""
	}

	strongest := signals[0]
	for _, signal := range signals[1:] {
		if signal.Strength > strongest.Strength {
			strongest = signal
		}
	}

	variant := clone(bundle)
	for i := range variant.Pieces {
		switch strongest.Kind {
		case "color":
			if !neutralColors[strings.ToLower(variant.Pieces[i].Color)] {
				variant.Pieces[i].Color = strongest.Name
				return variant, fmt.Sprintf("restyle %s in trending color %q", variant.Pieces[i].Type, strongest.Name)
			}
		case "pattern":
			if !strings.EqualFold(variant.Pieces[i].Pattern, strongest.Name) {
				variant.Pieces[i].Pattern = strongest.Name
				return variant, fmt.Sprintf("restyle %s in trending pattern %q", variant.Pieces[i].Type, strongest.Name)
			}
		case "fabric":
			if !strings.EqualFold(variant.Pieces[i].Fabric, strongest.Name) {
				variant.Pieces[i].Fabric = strongest.Name
				return variant, fmt.Sprintf("recut %s in trending fabric %q", variant.Pieces[i].Type, strongest.Name)
			}
		}
	}
	return nil, ""
}
