package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCriteria(t *testing.T) {
	criteria := DefaultCriteria()

	assert.Len(t, criteria, len(CriterionNames))
	assert.InDelta(t, 1.0, criteria.Sum(), 1e-9)
	for _, name := range CriterionNames {
		assert.Greater(t, criteria.Weight(name), 0.0, name)
	}
}

func TestResolveCriteria(t *testing.T) {
	t.Run("NilOverridesKeepDefaults", func(t *testing.T) {
		criteria := ResolveCriteria(nil)
		assert.Equal(t, DefaultCriteria(), criteria)
	})

	t.Run("PartialOverride", func(t *testing.T) {
		criteria := ResolveCriteria(map[string]float64{
			CriterionConversion: 0.5,
		})
		assert.InDelta(t, 0.5, criteria.Weight(CriterionConversion), 1e-9)
		// Untouched weights keep their defaults.
		assert.InDelta(t, DefaultCriteria().Weight(CriterionStyleCoherence), criteria.Weight(CriterionStyleCoherence), 1e-9)
	})

	t.Run("UnknownCriterionDropped", func(t *testing.T) {
		criteria := ResolveCriteria(map[string]float64{"sparkle": 0.9})
		assert.Zero(t, criteria.Weight("sparkle"))
		assert.InDelta(t, 1.0, criteria.Sum(), 1e-9)
	})

	t.Run("SingleCriterionWeightingHonored", func(t *testing.T) {
		overrides := map[string]float64{CriterionConversion: 1.0}
		for _, name := range CriterionNames[1:] {
			overrides[name] = 0
		}
		criteria := ResolveCriteria(overrides)
		assert.InDelta(t, 1.0, criteria.Weight(CriterionConversion), 1e-9)
		assert.InDelta(t, 1.0, criteria.Sum(), 1e-9)
	})
}
