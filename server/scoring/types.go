// Package scoring implements the multi-criteria bundle scoring engine: eight
// independent criterion evaluators, weighted aggregation, bulk fan-out and a
// greedy optimization search, with results cached through the cache layer.
package scoring

import (
	"time"
)

// BundlePiece is one priced garment or accessory inside a bundle.
type BundlePiece struct {
	PieceID   string  `json:"piece_id"`
	Type      string  `json:"type"` // suit, shirt, tie, shoes, belt, pocket_square...
	Color     string  `json:"color"`
	Pattern   string  `json:"pattern"`
	Fabric    string  `json:"fabric"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

// OutfitBundle is an assembled collection of pieces. Bundles are immutable
// inputs to scoring; the engine never mutates a bundle it scores.
type OutfitBundle struct {
	BundleID          string        `json:"bundle_id"`
	Name              string        `json:"name,omitempty"`
	Pieces            []BundlePiece `json:"pieces"`
	Occasion          string        `json:"occasion"`
	Season            string        `json:"season"`
	FormalityLevel    int           `json:"formality_level"` // 1 (casual) .. 5 (white tie)
	TargetDemographic string        `json:"target_demographic,omitempty"`
	TotalPrice        float64       `json:"total_price"`
	FinalPrice        float64       `json:"final_price"`
}

// Context carries request-scoped scoring inputs (customer profile, venue,
// campaign). It is hashed order-independently into the result cache key.
type Context map[string]any

// CriterionScore is the outcome of one criterion evaluation.
type CriterionScore struct {
	Score      float64            `json:"score"`      // in [0,1]
	Confidence float64            `json:"confidence"` // in [0,1]
	Detail     string             `json:"detail,omitempty"`
	Factors    map[string]float64 `json:"factors,omitempty"`
	Fallback   bool               `json:"fallback,omitempty"`
}

// PerformancePredictions is derived from the overall score and the
// conversion, price and customer-match criteria.
type PerformancePredictions struct {
	EstimatedConversionRate float64 `json:"estimated_conversion_rate"`
	RevenuePotential        float64 `json:"revenue_potential"`
	EstimatedSatisfaction   float64 `json:"estimated_satisfaction"`
	PriceCompetitiveness    float64 `json:"price_competitiveness"`
}

// OptimizationSuggestion flags a criterion scoring below the suggestion
// threshold.
type OptimizationSuggestion struct {
	Criterion    string  `json:"criterion"`
	Priority     string  `json:"priority"` // high | medium
	CurrentScore float64 `json:"current_score"`
	Message      string  `json:"message"`
}

// CompetitiveAnalysis positions the bundle by final price tier.
type CompetitiveAnalysis struct {
	MarketPosition string  `json:"market_position"` // budget | mid_range | premium
	PricePoint     float64 `json:"price_point"`
}

// RiskAssessment summarizes how many criteria scored weak.
type RiskAssessment struct {
	RiskLevel    string   `json:"risk_level"` // low | medium | high
	WeakCriteria []string `json:"weak_criteria,omitempty"`
}

// BundleScoreResult is the composite outcome of scoring one bundle. It is
// created fresh per scoring call and superseded, never mutated, by a later
// call.
type BundleScoreResult struct {
	BundleID                string                    `json:"bundle_id"`
	Success                 bool                      `json:"success"`
	OverallScore            float64                   `json:"overall_score"`
	ConfidenceLevel         float64                   `json:"confidence_level"`
	ScoreBreakdown          map[string]CriterionScore `json:"score_breakdown"`
	PerformancePredictions  PerformancePredictions    `json:"performance_predictions"`
	OptimizationSuggestions []OptimizationSuggestion  `json:"optimization_suggestions"`
	CompetitiveAnalysis     CompetitiveAnalysis       `json:"competitive_analysis"`
	RiskAssessment          RiskAssessment            `json:"risk_assessment"`
	ScoredAt                time.Time                 `json:"scored_at"`
}

// BulkScoringRequest scores a list of bundles under one criteria/context.
type BulkScoringRequest struct {
	Bundles  []OutfitBundle     `json:"bundles"`
	Criteria map[string]float64 `json:"criteria,omitempty"`
	Context  Context            `json:"context,omitempty"`
}

// BundleRanking is a (bundle, score) pair used in bulk summaries.
type BundleRanking struct {
	BundleID     string  `json:"bundle_id"`
	OverallScore float64 `json:"overall_score"`
}

// BulkScoringResult aggregates the per-bundle results with summary
// statistics. It is request-scoped and never persisted beyond its own cache
// entry.
type BulkScoringResult struct {
	Results           []BundleScoreResult `json:"results"`
	TotalBundles      int                 `json:"total_bundles"`
	AverageScore      float64             `json:"average_score"`
	TopPerformers     []BundleRanking     `json:"top_performers"`
	NeedsOptimization []BundleRanking     `json:"needs_optimization"`
	ProcessingTimeMs  int64               `json:"processing_time_ms"`
}

// Optimization is one simulated, beneficial modification found by the
// optimization search.
type Optimization struct {
	ID              string  `json:"id"`
	Category        string  `json:"category"` // price | style | trend
	Description     string  `json:"description"`
	CurrentScore    float64 `json:"current_score"`
	BaselineOverall float64 `json:"baseline_overall"`
	PotentialScore  float64 `json:"potential_score"`
	EstimatedEffort string  `json:"estimated_effort"` // low | medium | high
	ExpectedROI     float64 `json:"expected_roi"`
}
