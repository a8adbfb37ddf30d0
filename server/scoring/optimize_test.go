package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOptimizationRecommendations(t *testing.T) {
	ctx := context.Background()

	t.Run("AlreadyAtTarget", func(t *testing.T) {
		engine := newTestEngine(t, stubEvaluators(0.25, localTrendSignals("summer")))
		optimizations, err := engine.GetOptimizationRecommendations(ctx, sampleBundle(), 0.1, Context{})
		require.NoError(t, err)
		assert.Empty(t, optimizations)
	})

	t.Run("PriceSimulation", func(t *testing.T) {
		engine := newTestEngine(t, stubEvaluators(0.15, localTrendSignals("summer")))

		// Final price above the sum of the parts drags price optimization
		// down; the simulated discount should recover it.
		bundle := sampleBundle()
		bundle.TotalPrice = 500
		bundle.FinalPrice = 520

		optimizations, err := engine.GetOptimizationRecommendations(ctx, bundle, 0.95, Context{})
		require.NoError(t, err)

		var priceOpt *Optimization
		for i := range optimizations {
			if optimizations[i].Category == "price" {
				priceOpt = &optimizations[i]
			}
		}
		require.NotNil(t, priceOpt, "expected a price optimization")
		assert.Greater(t, priceOpt.PotentialScore, priceOpt.BaselineOverall)
		assert.Equal(t, "low", priceOpt.EstimatedEffort)
		assert.NotEmpty(t, priceOpt.ID)
		assert.Greater(t, priceOpt.ExpectedROI, 0.0)
	})

	t.Run("TrendSimulation", func(t *testing.T) {
		// Signals the bundle does not match keep trend alignment at its
		// 0.3 baseline; restyling toward the signal should beat baseline.
		signals := []TrendSignal{{Name: "sage", Kind: "color", Strength: 0.9}}
		engine := newTestEngine(t, stubEvaluators(0.15, signals))

		optimizations, err := engine.GetOptimizationRecommendations(ctx, sampleBundle(), 0.95, Context{})
		require.NoError(t, err)

		var trendOpt *Optimization
		for i := range optimizations {
			if optimizations[i].Category == "trend" {
				trendOpt = &optimizations[i]
			}
		}
		require.NotNil(t, trendOpt, "expected a trend optimization")
		assert.Greater(t, trendOpt.PotentialScore, trendOpt.BaselineOverall)
		assert.Contains(t, trendOpt.Description, "sage")
	})

	t.Run("InputMutationForbidden", func(t *testing.T) {
		engine := newTestEngine(t, stubEvaluators(0.15, localTrendSignals("summer")))

		bundle := sampleBundle()
		before := *bundle
		beforePieces := append([]BundlePiece(nil), bundle.Pieces...)

		_, err := engine.GetOptimizationRecommendations(ctx, bundle, 0.99, Context{})
		require.NoError(t, err)

		assert.Equal(t, before.FinalPrice, bundle.FinalPrice)
		assert.Equal(t, beforePieces, bundle.Pieces)
	})

	t.Run("InvalidBundle", func(t *testing.T) {
		engine := newTestEngine(t, stubEvaluators(0.15, nil))
		_, err := engine.GetOptimizationRecommendations(ctx, &OutfitBundle{}, 0.9, nil)
		assert.Error(t, err)
	})
}
