package service

import (
	"math"
	"sort"

	"github.com/migralog/backend/internal/normalize"
	"github.com/migralog/backend/pkg/model"
)

// RiskLevel classifies a trigger's correlation with above-baseline pain
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Correlation score boundaries are inclusive: a score of exactly 1.3 is high.
const (
	highRiskScore   = 1.3
	mediumRiskScore = 1.1
)

// Relief within this many minutes counts a treatment use as successful when
// the user did not record an explicit outcome.
const reliefSuccessMinutes = 120

// TriggerCorrelation summarizes how one trigger relates to pain burden.
// CorrelationScore is the ratio of the trigger subgroup's average pain to the
// overall baseline, not a statistical correlation coefficient.
type TriggerCorrelation struct {
	Trigger          string    `json:"trigger"`
	Occurrences      int       `json:"occurrences"`
	AvgPainIntensity float64   `json:"avg_pain_intensity"`
	AvgDuration      float64   `json:"avg_duration"`
	CorrelationScore float64   `json:"correlation_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
}

// TreatmentEffectiveness summarizes outcomes for one canonical treatment id
type TreatmentEffectiveness struct {
	Treatment         string  `json:"treatment"`
	UsageCount        int     `json:"usage_count"`
	AvgReliefTime     float64 `json:"avg_relief_time"`
	EffectivenessRate int     `json:"effectiveness_rate"` // percent
	// AvgPainReduction is always 0: the journal does not capture pre- and
	// post-treatment pain, so there is nothing to subtract yet.
	AvgPainReduction float64 `json:"avg_pain_reduction"`
}

// SymptomPattern summarizes how often a symptom accompanies episodes
type SymptomPattern struct {
	Symptom              string  `json:"symptom"`
	Frequency            int     `json:"frequency"`
	PercentageOfEpisodes int     `json:"percentage_of_episodes"`
	AvgAssociatedPain    float64 `json:"avg_associated_pain"`
}

// CorrelationReport bundles the three ranked analyses over one snapshot
type CorrelationReport struct {
	BaselineAvgPain float64                  `json:"baseline_avg_pain"`
	Triggers        []TriggerCorrelation     `json:"triggers"`
	Treatments      []TreatmentEffectiveness `json:"treatments"`
	Symptoms        []SymptomPattern         `json:"symptoms"`
}

// BaselinePain returns the mean pain intensity over all episodes that have
// pain data, and 0 when none do.
func BaselinePain(episodes []normalize.NormalizedEpisode) float64 {
	var sum float64
	var n int
	for _, e := range episodes {
		if e.PainIntensity != nil {
			sum += *e.PainIntensity
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AnalyzeTriggerCorrelations ranks every observed trigger by how strongly it
// correlates with above-baseline pain. Ties keep discovery order. An empty
// snapshot yields an empty slice.
func AnalyzeTriggerCorrelations(episodes []normalize.NormalizedEpisode) []TriggerCorrelation {
	baseline := BaselinePain(episodes)

	type triggerAgg struct {
		occurrences int
		painSum     float64
		painCount   int
		durationSum float64
	}
	aggs := make(map[string]*triggerAgg)
	var order []string

	for _, e := range episodes {
		seen := make(map[string]bool)
		for _, t := range e.Triggers {
			// Count an episode once per trigger even if logged twice.
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true

			agg, ok := aggs[t.Name]
			if !ok {
				agg = &triggerAgg{}
				aggs[t.Name] = agg
				order = append(order, t.Name)
			}
			agg.occurrences++
			agg.durationSum += e.DurationMinutes
			if e.PainIntensity != nil {
				agg.painSum += *e.PainIntensity
				agg.painCount++
			}
		}
	}

	correlations := make([]TriggerCorrelation, 0, len(order))
	for _, name := range order {
		agg := aggs[name]
		var avgPain float64
		if agg.painCount > 0 {
			avgPain = agg.painSum / float64(agg.painCount)
		}
		// A zero baseline makes the ratio meaningless; 1 is the neutral
		// value so such triggers rank as unremarkable, not alarming.
		score := 1.0
		if baseline > 0 {
			score = avgPain / baseline
		}
		correlations = append(correlations, TriggerCorrelation{
			Trigger:          name,
			Occurrences:      agg.occurrences,
			AvgPainIntensity: avgPain,
			AvgDuration:      agg.durationSum / float64(agg.occurrences),
			CorrelationScore: score,
			RiskLevel:        classifyRisk(score),
		})
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return correlations[i].CorrelationScore > correlations[j].CorrelationScore
	})
	return correlations
}

func classifyRisk(score float64) RiskLevel {
	switch {
	case score >= highRiskScore:
		return RiskHigh
	case score >= mediumRiskScore:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AnalyzeTreatmentEffectiveness ranks canonical treatment ids by how often
// they worked. An explicit outcome on the episode wins; otherwise relief
// under two hours counts as success.
func AnalyzeTreatmentEffectiveness(episodes []normalize.NormalizedEpisode) []TreatmentEffectiveness {
	type treatmentAgg struct {
		usageCount  int
		successes   int
		durationSum float64
	}
	aggs := make(map[string]*treatmentAgg)
	var order []string

	for _, e := range episodes {
		success := e.DurationMinutes < reliefSuccessMinutes
		if e.TreatmentOutcome != nil {
			success = *e.TreatmentOutcome == model.OutcomeEffective
		}
		seen := make(map[string]bool)
		for _, id := range e.TreatmentIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			agg, ok := aggs[id]
			if !ok {
				agg = &treatmentAgg{}
				aggs[id] = agg
				order = append(order, id)
			}
			agg.usageCount++
			agg.durationSum += e.DurationMinutes
			if success {
				agg.successes++
			}
		}
	}

	results := make([]TreatmentEffectiveness, 0, len(order))
	for _, id := range order {
		agg := aggs[id]
		results = append(results, TreatmentEffectiveness{
			Treatment:         id,
			UsageCount:        agg.usageCount,
			AvgReliefTime:     agg.durationSum / float64(agg.usageCount),
			EffectivenessRate: roundPercent(agg.successes, agg.usageCount),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].EffectivenessRate > results[j].EffectivenessRate
	})
	return results
}

// AnalyzeSymptomPatterns ranks symptoms by how often they accompany episodes
func AnalyzeSymptomPatterns(episodes []normalize.NormalizedEpisode) []SymptomPattern {
	type symptomAgg struct {
		frequency int
		painSum   float64
		painCount int
	}
	aggs := make(map[string]*symptomAgg)
	var order []string

	for _, e := range episodes {
		seen := make(map[string]bool)
		for _, s := range e.Symptoms {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true

			agg, ok := aggs[s.Name]
			if !ok {
				agg = &symptomAgg{}
				aggs[s.Name] = agg
				order = append(order, s.Name)
			}
			agg.frequency++
			if e.PainIntensity != nil {
				agg.painSum += *e.PainIntensity
				agg.painCount++
			}
		}
	}

	patterns := make([]SymptomPattern, 0, len(order))
	for _, name := range order {
		agg := aggs[name]
		var avgPain float64
		if agg.painCount > 0 {
			avgPain = agg.painSum / float64(agg.painCount)
		}
		patterns = append(patterns, SymptomPattern{
			Symptom:              name,
			Frequency:            agg.frequency,
			PercentageOfEpisodes: roundPercent(agg.frequency, len(episodes)),
			AvgAssociatedPain:    avgPain,
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Frequency > patterns[j].Frequency
	})
	return patterns
}

// roundPercent computes round(numerator/denominator*100) with a zero
// denominator resolving to 0 rather than NaN.
func roundPercent(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(float64(numerator) / float64(denominator) * 100))
}
