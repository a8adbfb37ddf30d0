package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// conversionRateCeiling normalizes predicted conversion rates into [0,1]. A
// predicted rate at or above 25% scores a full 1.0.
const conversionRateCeiling = 0.25

// ConversionEvaluator scores the predicted conversion probability of a
// bundle, normalized against the rate ceiling.
type ConversionEvaluator struct {
	Advisor ConversionAdvisor
}

func (e *ConversionEvaluator) Name() string { return CriterionConversion }

func (e *ConversionEvaluator) Evaluate(ctx context.Context, bundle *OutfitBundle, sctx Context) (CriterionScore, error) {
	if e.Advisor == nil {
		return CriterionScore{}, errors.New("conversion advisor not configured")
	}
	prediction, err := e.Advisor.PredictConversion(ctx, bundle, sctx)
	if err != nil {
		return CriterionScore{}, errors.Wrap(err, "conversion prediction")
	}

	score := prediction.PredictedRate / conversionRateCeiling
	return CriterionScore{
		Score:      clamp01(score),
		Confidence: prediction.Confidence,
		Detail:     fmt.Sprintf("predicted conversion rate %.3f against %.2f ceiling", prediction.PredictedRate, conversionRateCeiling),
		Factors:    map[string]float64{"predicted_rate": prediction.PredictedRate},
	}, nil
}

// StyleCoherenceEvaluator scores how well the pieces work together: color
// harmony, pattern mixing discipline and fabric consistency.
type StyleCoherenceEvaluator struct {
	Advisor ColorAdvisor
}

func (e *StyleCoherenceEvaluator) Name() string { return CriterionStyleCoherence }

func (e *StyleCoherenceEvaluator) Evaluate(ctx context.Context, bundle *OutfitBundle, _ Context) (CriterionScore, error) {
	if len(bundle.Pieces) == 0 {
		return CriterionScore{}, errors.New("bundle has no pieces")
	}

	colors := make([]string, 0, len(bundle.Pieces))
	for _, piece := range bundle.Pieces {
		if piece.Color != "" {
			colors = append(colors, strings.ToLower(piece.Color))
		}
	}

	var colorScore float64
	var err error
	if e.Advisor != nil {
		colorScore, err = e.Advisor.ColorHarmony(ctx, colors)
		if err != nil {
			return CriterionScore{}, errors.Wrap(err, "color harmony")
		}
	} else {
		colorScore = localColorHarmony(colors)
	}

	patternScore := patternDiscipline(bundle.Pieces)
	fabricScore := fabricConsistency(bundle.Pieces)

	score := 0.5*colorScore + 0.3*patternScore + 0.2*fabricScore
	return CriterionScore{
		Score:      clamp01(score),
		Confidence: 0.8,
		Detail:     "color harmony, pattern mixing and fabric consistency",
		Factors: map[string]float64{
			"color_harmony":      colorScore,
			"pattern_discipline": patternScore,
			"fabric_consistency": fabricScore,
		},
	}, nil
}

// PriceOptimizationEvaluator scores how well the final price fits the ideal
// band for the bundle's formality level, plus discount coherence.
type PriceOptimizationEvaluator struct{}

func (e *PriceOptimizationEvaluator) Name() string { return CriterionPriceOptimization }

func (e *PriceOptimizationEvaluator) Evaluate(_ context.Context, bundle *OutfitBundle, _ Context) (CriterionScore, error) {
	if bundle.FinalPrice <= 0 {
		return CriterionScore{}, errors.New("bundle has no final price")
	}

	formality := bundle.FormalityLevel
	if formality < 1 {
		formality = 2
	}
	if formality > 5 {
		formality = 5
	}

	// The ideal price scales with formality; a two-piece casual look and a
	// white-tie ensemble do not share a band.
	ideal := 150.0 * float64(formality)
	bandScore := 1.0 - clamp01(absFloat(bundle.FinalPrice-ideal)/(ideal*1.5))

	discountScore := 0.5
	if bundle.TotalPrice > 0 {
		switch ratio := bundle.FinalPrice / bundle.TotalPrice; {
		case ratio > 1.0:
			// Final price above the sum of the parts undermines the bundle.
			discountScore = 0.1
		case ratio >= 0.8:
			discountScore = 1.0
		case ratio >= 0.6:
			discountScore = 0.7
		default:
			// Too deep a discount erodes margin and signals dead stock.
			discountScore = 0.4
		}
	}

	score := 0.6*bandScore + 0.4*discountScore
	return CriterionScore{
		Score:      clamp01(score),
		Confidence: 0.85,
		Detail:     fmt.Sprintf("final price %.2f against ideal band around %.0f", bundle.FinalPrice, ideal),
		Factors: map[string]float64{
			"band_fit":           bandScore,
			"discount_coherence": discountScore,
		},
	}, nil
}

// seasonFabrics maps seasons to their natural fabrics.
var seasonFabrics = map[string][]string{
	"spring": {"cotton", "linen", "chambray", "seersucker"},
	"summer": {"linen", "cotton", "seersucker", "fresco"},
	"fall":   {"wool", "tweed", "flannel", "corduroy"},
	"autumn": {"wool", "tweed", "flannel", "corduroy"},
	"winter": {"wool", "flannel", "tweed", "cashmere", "velvet"},
}

// SeasonalRelevanceEvaluator scores fabric and color fit for the bundle's
// season.
type SeasonalRelevanceEvaluator struct{}

func (e *SeasonalRelevanceEvaluator) Name() string { return CriterionSeasonalRelevance }

func (e *SeasonalRelevanceEvaluator) Evaluate(_ context.Context, bundle *OutfitBundle, _ Context) (CriterionScore, error) {
	if len(bundle.Pieces) == 0 {
		return CriterionScore{}, errors.New("bundle has no pieces")
	}

	season := strings.ToLower(bundle.Season)
	fabrics, known := seasonFabrics[season]
	if !known {
		// All-season bundles get a neutral-positive score.
		return CriterionScore{
			Score:      0.7,
			Confidence: 0.6,
			Detail:     "no season specified, treated as all-season",
		}, nil
	}

	matched := 0
	considered := 0
	for _, piece := range bundle.Pieces {
		if piece.Fabric == "" {
			continue
		}
		considered++
		if containsString(fabrics, strings.ToLower(piece.Fabric)) {
			matched++
		}
	}

	score := 0.7
	if considered > 0 {
		score = 0.4 + 0.6*float64(matched)/float64(considered)
	}
	return CriterionScore{
		Score:      clamp01(score),
		Confidence: 0.75,
		Detail:     fmt.Sprintf("%d of %d fabrics suit %s", matched, considered, season),
		Factors:    map[string]float64{"fabric_match_ratio": safeRatio(matched, considered)},
	}, nil
}

// TrendAlignmentEvaluator scores overlap between bundle attributes and
// current trending signals. Empty trend data is an evaluation failure; the
// boundary substitutes the documented fallback.
type TrendAlignmentEvaluator struct {
	Advisor TrendAdvisor
}

func (e *TrendAlignmentEvaluator) Name() string { return CriterionTrendAlignment }

func (e *TrendAlignmentEvaluator) Evaluate(ctx context.Context, bundle *OutfitBundle, _ Context) (CriterionScore, error) {
	if e.Advisor == nil {
		return CriterionScore{}, errors.New("trend advisor not configured")
	}
	signals, err := e.Advisor.TrendingSignals(ctx, strings.ToLower(bundle.Season))
	if err != nil {
		return CriterionScore{}, errors.Wrap(err, "trending signals")
	}
	if len(signals) == 0 {
		return CriterionScore{}, errors.New("no trending signals available")
	}

	var alignment, totalStrength float64
	for _, signal := range signals {
		totalStrength += signal.Strength
		if bundleMatchesSignal(bundle, signal) {
			alignment += signal.Strength
		}
	}
	if totalStrength <= 0 {
		// Signals with no strength carry no information; treat them like an
		// empty response rather than dividing by zero.
		return CriterionScore{}, errors.New("trending signals carry no strength")
	}

	// A baseline keeps a non-trending but wearable bundle from zeroing out.
	score := 0.3 + 0.7*(alignment/totalStrength)
	return CriterionScore{
		Score:      clamp01(score),
		Confidence: 0.7,
		Detail:     fmt.Sprintf("aligned with %d trend signals", len(signals)),
		Factors:    map[string]float64{"alignment_strength": alignment, "total_strength": totalStrength},
	}, nil
}

func bundleMatchesSignal(bundle *OutfitBundle, signal TrendSignal) bool {
	name := strings.ToLower(signal.Name)
	for _, piece := range bundle.Pieces {
		switch signal.Kind {
		case "color":
			if strings.ToLower(piece.Color) == name {
				return true
			}
		case "pattern":
			if strings.ToLower(piece.Pattern) == name {
				return true
			}
		case "fabric":
			if strings.ToLower(piece.Fabric) == name {
				return true
			}
		}
	}
	return false
}

// CustomerMatchEvaluator scores fit between the bundle and the customer
// profile carried in the scoring context.
type CustomerMatchEvaluator struct{}

func (e *CustomerMatchEvaluator) Name() string { return CriterionCustomerMatch }

func (e *CustomerMatchEvaluator) Evaluate(_ context.Context, bundle *OutfitBundle, sctx Context) (CriterionScore, error) {
	profile, ok := sctx["customer"].(map[string]any)
	if !ok {
		// No profile supplied: score on target-demographic completeness only.
		score := 0.55
		if bundle.TargetDemographic != "" {
			score = 0.65
		}
		return CriterionScore{
			Score:      score,
			Confidence: 0.5,
			Detail:     "no customer profile in context",
		}, nil
	}

	score := 0.5
	factors := map[string]float64{}

	if budget, ok := toFloat(profile["budget"]); ok && budget > 0 {
		if bundle.FinalPrice <= budget {
			score += 0.2
			factors["within_budget"] = 1
		} else {
			over := clamp01((bundle.FinalPrice - budget) / budget)
			score -= 0.2 * over
			factors["within_budget"] = 0
		}
	}

	if preference, ok := profile["style_preference"].(string); ok && preference != "" {
		if styleMatchesPreference(bundle, preference) {
			score += 0.15
			factors["style_preference"] = 1
		}
	}

	if demographic, ok := profile["demographic"].(string); ok && demographic != "" {
		if strings.EqualFold(demographic, bundle.TargetDemographic) {
			score += 0.15
			factors["demographic_match"] = 1
		}
	}

	return CriterionScore{
		Score:      clamp01(score),
		Confidence: 0.8,
		Detail:     "matched against customer profile",
		Factors:    factors,
	}, nil
}

func styleMatchesPreference(bundle *OutfitBundle, preference string) bool {
	switch strings.ToLower(preference) {
	case "classic", "conservative":
		return bundle.FormalityLevel >= 3
	case "casual", "relaxed":
		return bundle.FormalityLevel <= 2
	case "bold", "fashion_forward":
		for _, piece := range bundle.Pieces {
			pattern := strings.ToLower(piece.Pattern)
			if pattern != "" && pattern != "solid" {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// InventoryEfficiencyEvaluator scores piece availability: a bundle is only
// sellable when all of it ships.
type InventoryEfficiencyEvaluator struct{}

func (e *InventoryEfficiencyEvaluator) Name() string { return CriterionInventoryEfficiency }

func (e *InventoryEfficiencyEvaluator) Evaluate(_ context.Context, bundle *OutfitBundle, _ Context) (CriterionScore, error) {
	if len(bundle.Pieces) == 0 {
		return CriterionScore{}, errors.New("bundle has no pieces")
	}

	ratio := availabilityRatio(bundle)

	// Full availability is disproportionately valuable: one missing piece
	// blocks the whole bundle.
	score := ratio * ratio
	if ratio >= 1.0 {
		score = 1.0
	}
	return CriterionScore{
		Score:      clamp01(score),
		Confidence: 0.9,
		Detail:     fmt.Sprintf("%.0f%% of pieces available", ratio*100),
		Factors:    map[string]float64{"availability_ratio": ratio},
	}, nil
}

// CrossSellPotentialEvaluator scores how much room the bundle leaves for
// attaching further pieces: type diversity plus accessory coverage.
type CrossSellPotentialEvaluator struct{}

func (e *CrossSellPotentialEvaluator) Name() string { return CriterionCrossSellPotential }

var accessoryTypes = []string{"tie", "belt", "pocket_square", "cufflinks", "watch", "shoes"}

func (e *CrossSellPotentialEvaluator) Evaluate(_ context.Context, bundle *OutfitBundle, _ Context) (CriterionScore, error) {
	if len(bundle.Pieces) == 0 {
		return CriterionScore{}, errors.New("bundle has no pieces")
	}

	types := map[string]bool{}
	accessories := 0
	for _, piece := range bundle.Pieces {
		pieceType := strings.ToLower(piece.Type)
		types[pieceType] = true
		if containsString(accessoryTypes, pieceType) {
			accessories++
		}
	}

	// Diverse bundles anchor more attach opportunities; a bundle already
	// saturated with accessories leaves less to sell.
	diversity := clamp01(float64(len(types)) / 5.0)
	headroom := clamp01(1.0 - float64(accessories)/float64(len(accessoryTypes)))

	score := 0.3 + 0.4*diversity + 0.3*headroom
	return CriterionScore{
		Score:      clamp01(score),
		Confidence: 0.7,
		Detail:     fmt.Sprintf("%d piece types, %d accessories attached", len(types), accessories),
		Factors: map[string]float64{
			"type_diversity":     diversity,
			"accessory_headroom": headroom,
		},
	}, nil
}

// Shared helpers.

func availabilityRatio(bundle *OutfitBundle) float64 {
	if len(bundle.Pieces) == 0 {
		return 0
	}
	available := 0
	for _, piece := range bundle.Pieces {
		if piece.Available {
			available++
		}
	}
	return float64(available) / float64(len(bundle.Pieces))
}

// neutralColors pair with anything.
var neutralColors = map[string]bool{
	"black": true, "white": true, "grey": true, "gray": true,
	"navy": true, "charcoal": true, "beige": true, "tan": true,
}

// complementaryPairs lists non-neutral combinations that read as deliberate.
var complementaryPairs = map[string]bool{
	"burgundy|navy": true, "navy|burgundy": true,
	"brown|light_blue": true, "light_blue|brown": true,
	"olive|rust": true, "rust|olive": true,
	"sage|cream": true, "cream|sage": true,
}

// localColorHarmony averages pairwise harmony over all color pairs.
func localColorHarmony(colors []string) float64 {
	if len(colors) < 2 {
		return 0.8
	}
	var total float64
	var pairs int
	for i := 0; i < len(colors); i++ {
		for j := i + 1; j < len(colors); j++ {
			total += colorPairHarmony(colors[i], colors[j])
			pairs++
		}
	}
	return total / float64(pairs)
}

func colorPairHarmony(a, b string) float64 {
	if neutralColors[a] || neutralColors[b] {
		return 1.0
	}
	if a == b {
		return 0.9
	}
	if complementaryPairs[a+"|"+b] {
		return 0.95
	}
	return 0.6
}

// patternDiscipline penalizes stacking more than two distinct non-solid
// patterns.
func patternDiscipline(pieces []BundlePiece) float64 {
	patterns := map[string]bool{}
	for _, piece := range pieces {
		pattern := strings.ToLower(piece.Pattern)
		if pattern != "" && pattern != "solid" {
			patterns[pattern] = true
		}
	}
	switch len(patterns) {
	case 0, 1:
		return 1.0
	case 2:
		return 0.8
	default:
		return 0.4
	}
}

// fabricConsistency rewards bundles whose pieces share a fabric family.
func fabricConsistency(pieces []BundlePiece) float64 {
	fabrics := map[string]bool{}
	considered := 0
	for _, piece := range pieces {
		if piece.Fabric == "" {
			continue
		}
		considered++
		fabrics[strings.ToLower(piece.Fabric)] = true
	}
	if considered == 0 {
		return 0.7
	}
	switch len(fabrics) {
	case 1:
		return 1.0
	case 2:
		return 0.85
	default:
		return 0.65
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func safeRatio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
