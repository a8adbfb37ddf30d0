package scoring

import (
	"log/slog"
	"math"
)

// Criterion names. These are the keys of score breakdowns and weight
// overrides.
const (
	CriterionConversion          = "conversion"
	CriterionStyleCoherence      = "style_coherence"
	CriterionPriceOptimization   = "price_optimization"
	CriterionSeasonalRelevance   = "seasonal_relevance"
	CriterionTrendAlignment      = "trend_alignment"
	CriterionCustomerMatch       = "customer_match"
	CriterionInventoryEfficiency = "inventory_efficiency"
	CriterionCrossSellPotential  = "cross_sell_potential"
)

// CriterionNames lists all criteria in evaluation order.
var CriterionNames = []string{
	CriterionConversion,
	CriterionStyleCoherence,
	CriterionPriceOptimization,
	CriterionSeasonalRelevance,
	CriterionTrendAlignment,
	CriterionCustomerMatch,
	CriterionInventoryEfficiency,
	CriterionCrossSellPotential,
}

// Criteria holds the effective weight of every criterion. Weights sum to 1.0
// by convention; the sum is warned about, not enforced, so callers supplying
// deliberate weightings (a single criterion at 1.0, say) are honored as-is.
type Criteria map[string]float64

// defaultWeights sum to 1.0.
var defaultWeights = Criteria{
	CriterionConversion:          0.25,
	CriterionStyleCoherence:      0.15,
	CriterionPriceOptimization:   0.15,
	CriterionSeasonalRelevance:   0.10,
	CriterionTrendAlignment:      0.10,
	CriterionCustomerMatch:       0.10,
	CriterionInventoryEfficiency: 0.08,
	CriterionCrossSellPotential:  0.07,
}

// DefaultCriteria returns a copy of the default weights.
func DefaultCriteria() Criteria {
	criteria := make(Criteria, len(defaultWeights))
	for name, weight := range defaultWeights {
		criteria[name] = weight
	}
	return criteria
}

// ResolveCriteria overlays caller-supplied weights on the defaults. Criteria
// missing from overrides keep their default weight; unknown criterion names
// are dropped with a warning. When the effective weights deviate from 1.0 by
// more than 0.01 a warning is logged, but the weights are never normalized
// or rejected.
func ResolveCriteria(overrides map[string]float64) Criteria {
	criteria := DefaultCriteria()
	for name, weight := range overrides {
		if _, known := criteria[name]; !known {
			slog.Warn("unknown scoring criterion ignored", "criterion", name)
			continue
		}
		criteria[name] = weight
	}

	if sum := criteria.Sum(); math.Abs(sum-1.0) > 0.01 {
		slog.Warn("scoring weights do not sum to 1.0", "sum", sum)
	}
	return criteria
}

// Weight returns the weight for a criterion, zero if unknown.
func (c Criteria) Weight(name string) float64 {
	return c[name]
}

// Sum returns the total of all weights.
func (c Criteria) Sum() float64 {
	var sum float64
	for _, weight := range c {
		sum += weight
	}
	return sum
}
