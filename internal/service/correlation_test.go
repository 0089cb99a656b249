package service

import (
	"testing"
	"time"

	"github.com/migralog/backend/internal/normalize"
	"github.com/migralog/backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func episodeWith(pain *float64, durationMinutes float64, triggers, symptoms []string, treatmentIDs []string) normalize.NormalizedEpisode {
	return normalize.NormalizedEpisode{
		StartTime:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		PainIntensity:   pain,
		DurationMinutes: durationMinutes,
		Triggers:        normalize.ParseAnnotatedAll(triggers),
		Symptoms:        normalize.ParseAnnotatedAll(symptoms),
		TreatmentIDs:    treatmentIDs,
	}
}

func TestBaselinePain_IgnoresMissingPain(t *testing.T) {
	episodes := []normalize.NormalizedEpisode{
		episodeWith(floatPtr(8), 60, nil, nil, nil),
		episodeWith(nil, 60, nil, nil, nil),
		episodeWith(floatPtr(4), 60, nil, nil, nil),
	}

	assert.Equal(t, 6.0, BaselinePain(episodes))
}

func TestBaselinePain_Empty(t *testing.T) {
	assert.Equal(t, 0.0, BaselinePain(nil))
	assert.Equal(t, 0.0, BaselinePain([]normalize.NormalizedEpisode{
		episodeWith(nil, 60, nil, nil, nil),
	}))
}

func TestAnalyzeTriggerCorrelations_RiskLevels(t *testing.T) {
	// Baseline is (8+8+4)/3 = 6.67. Stress averages 8 for a score of 1.2
	// (medium); bright light averages 4 for a score of 0.6 (low).
	episodes := []normalize.NormalizedEpisode{
		episodeWith(floatPtr(8), 120, []string{"stress"}, nil, nil),
		episodeWith(floatPtr(8), 180, []string{"stress"}, nil, nil),
		episodeWith(floatPtr(4), 60, []string{"bright light"}, nil, nil),
	}

	correlations := AnalyzeTriggerCorrelations(episodes)

	require.Len(t, correlations, 2)
	stress := correlations[0]
	assert.Equal(t, "stress", stress.Trigger)
	assert.Equal(t, 2, stress.Occurrences)
	assert.Equal(t, 8.0, stress.AvgPainIntensity)
	assert.Equal(t, 150.0, stress.AvgDuration)
	assert.InDelta(t, 1.2, stress.CorrelationScore, 0.0001)
	assert.Equal(t, RiskMedium, stress.RiskLevel)

	light := correlations[1]
	assert.Equal(t, "bright light", light.Trigger)
	assert.InDelta(t, 0.6, light.CorrelationScore, 0.0001)
	assert.Equal(t, RiskLow, light.RiskLevel)
}

func TestAnalyzeTriggerCorrelations_InclusiveBoundaries(t *testing.T) {
	assert.Equal(t, RiskHigh, classifyRisk(1.3))
	assert.Equal(t, RiskMedium, classifyRisk(1.1))
	assert.Equal(t, RiskMedium, classifyRisk(1.29))
	assert.Equal(t, RiskLow, classifyRisk(1.09))
}

func TestAnalyzeTriggerCorrelations_DedupesWithinEpisode(t *testing.T) {
	episodes := []normalize.NormalizedEpisode{
		episodeWith(floatPtr(6), 60, []string{"stress", "stress (2h before)"}, nil, nil),
	}

	correlations := AnalyzeTriggerCorrelations(episodes)

	require.Len(t, correlations, 1)
	assert.Equal(t, 1, correlations[0].Occurrences)
}

func TestAnalyzeTriggerCorrelations_ZeroBaselineIsNeutral(t *testing.T) {
	// No episode has pain data, so the ratio has no baseline. Triggers rank
	// neutral rather than alarming.
	episodes := []normalize.NormalizedEpisode{
		episodeWith(nil, 60, []string{"stress"}, nil, nil),
	}

	correlations := AnalyzeTriggerCorrelations(episodes)

	require.Len(t, correlations, 1)
	assert.Equal(t, 1.0, correlations[0].CorrelationScore)
	assert.Equal(t, RiskLow, correlations[0].RiskLevel)
}

func TestAnalyzeTriggerCorrelations_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeTriggerCorrelations(nil))
}

func TestAnalyzeTreatmentEffectiveness_DurationHeuristic(t *testing.T) {
	// Relief under two hours counts as success when no explicit outcome was
	// recorded.
	episodes := []normalize.NormalizedEpisode{
		episodeWith(floatPtr(7), 90, nil, nil, []string{"ibuprofen"}),
		episodeWith(floatPtr(7), 240, nil, nil, []string{"ibuprofen"}),
	}

	results := AnalyzeTreatmentEffectiveness(episodes)

	require.Len(t, results, 1)
	assert.Equal(t, "ibuprofen", results[0].Treatment)
	assert.Equal(t, 2, results[0].UsageCount)
	assert.Equal(t, 50, results[0].EffectivenessRate)
	assert.Equal(t, 165.0, results[0].AvgReliefTime)
	assert.Equal(t, 0.0, results[0].AvgPainReduction)
}

func TestAnalyzeTreatmentEffectiveness_ExplicitOutcomeWins(t *testing.T) {
	effective := model.OutcomeEffective
	ineffective := model.OutcomeIneffective

	long := episodeWith(floatPtr(7), 300, nil, nil, []string{"sumatriptan"})
	long.TreatmentOutcome = &effective
	short := episodeWith(floatPtr(7), 30, nil, nil, []string{"sumatriptan"})
	short.TreatmentOutcome = &ineffective

	results := AnalyzeTreatmentEffectiveness([]normalize.NormalizedEpisode{long, short})

	require.Len(t, results, 1)
	assert.Equal(t, 50, results[0].EffectivenessRate)
}

func TestAnalyzeTreatmentEffectiveness_ExactBoundary(t *testing.T) {
	// Exactly 120 minutes is not a success.
	episodes := []normalize.NormalizedEpisode{
		episodeWith(floatPtr(7), 120, nil, nil, []string{"ibuprofen"}),
	}

	results := AnalyzeTreatmentEffectiveness(episodes)

	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].EffectivenessRate)
}

func TestAnalyzeSymptomPatterns(t *testing.T) {
	episodes := []normalize.NormalizedEpisode{
		episodeWith(floatPtr(8), 60, nil, []string{"nausea", "photophobia"}, nil),
		episodeWith(floatPtr(6), 60, nil, []string{"nausea"}, nil),
		episodeWith(floatPtr(4), 60, nil, nil, nil),
	}

	patterns := AnalyzeSymptomPatterns(episodes)

	require.Len(t, patterns, 2)
	nausea := patterns[0]
	assert.Equal(t, "nausea", nausea.Symptom)
	assert.Equal(t, 2, nausea.Frequency)
	assert.Equal(t, 67, nausea.PercentageOfEpisodes)
	assert.Equal(t, 7.0, nausea.AvgAssociatedPain)

	assert.Equal(t, "photophobia", patterns[1].Symptom)
	assert.Equal(t, 33, patterns[1].PercentageOfEpisodes)
}

func TestAnalyzeSymptomPatterns_TiesKeepDiscoveryOrder(t *testing.T) {
	episodes := []normalize.NormalizedEpisode{
		episodeWith(floatPtr(5), 60, nil, []string{"nausea", "aura"}, nil),
	}

	patterns := AnalyzeSymptomPatterns(episodes)

	require.Len(t, patterns, 2)
	assert.Equal(t, "nausea", patterns[0].Symptom)
	assert.Equal(t, "aura", patterns[1].Symptom)
}
