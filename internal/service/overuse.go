package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/migralog/backend/internal/normalize"
)

// Clinical days-per-30 limits for medication-overuse headache risk. The
// matcher compares canonical medication ids by exact or substring match, so
// "sumatriptan 50mg" picks up the triptan limit.
const defaultOveruseThreshold = 15

var overuseThresholds = map[string]int{
	"triptan":     10,
	"opioid":      10,
	"sumatriptan": 10,
	"rizatriptan": 10,
	"ergotamine":  10,
}

// A month with treatment on this many distinct days is risky regardless of
// which medications were involved.
const anyMedicationDayLimit = 15

// SideEffectSummary aggregates one reported side effect for a medication
type SideEffectSummary struct {
	Effect           string             `json:"effect"`
	Occurrences      int                `json:"occurrences"`
	PercentageOfUses int                `json:"percentage_of_uses"`
	Severity         normalize.Severity `json:"severity"`
}

// MedicationUsage summarizes usage of one canonical medication id.
// HasEffectivenessData distinguishes "rated 0" from "never rated" so callers
// can omit the statistic entirely.
type MedicationUsage struct {
	Medication           string              `json:"medication"`
	TotalUses            int                 `json:"total_uses"`
	UsesLast30Days       int                 `json:"uses_last_30_days"`
	UsesLast7Days        int                 `json:"uses_last_7_days"`
	AvgEffectiveness     float64             `json:"avg_effectiveness"`
	HasEffectivenessData bool                `json:"has_effectiveness_data"`
	AvgReliefTimeMinutes float64             `json:"avg_relief_time_minutes"`
	OveruseAlert         bool                `json:"overuse_alert"`
	OveruseMessage       *string             `json:"overuse_message,omitempty"`
	SideEffects          []SideEffectSummary `json:"side_effects"`
}

// OveruseReport is the full medication-overuse assessment for one window
type OveruseReport struct {
	Medications                []MedicationUsage `json:"medications"`
	MedicationOveruseRisk      bool              `json:"medication_overuse_risk"`
	MostEffectiveMedication    *string           `json:"most_effective_medication,omitempty"`
	LeastSideEffectsMedication *string           `json:"least_side_effects_medication,omitempty"`
}

// OveruseThreshold returns the days-per-30 limit for a canonical medication
// id, matching exactly or by substring against the clinical table.
func OveruseThreshold(medicationID string) int {
	if limit, ok := overuseThresholds[medicationID]; ok {
		return limit
	}
	for class, limit := range overuseThresholds {
		if strings.Contains(medicationID, class) {
			return limit
		}
	}
	return defaultOveruseThreshold
}

// DetectMedicationOveruse assesses per-medication usage against clinical
// thresholds. The caller restricts the snapshot to the analysis window,
// conventionally the trailing 90 days; the detector itself is window-agnostic
// and computes its 30- and 7-day counts against the supplied "now".
func DetectMedicationOveruse(episodes []normalize.NormalizedEpisode, now time.Time) *OveruseReport {
	type medAgg struct {
		totalUses      int
		uses30         int
		uses7          int
		ratingSum      float64
		ratingCount    int
		durationSum    float64
		sideEffects    map[string]*SideEffectSummary
		sideEffectSeen []string
	}
	aggs := make(map[string]*medAgg)
	var order []string
	anyMedDays := make(map[string]bool)

	cutoff30 := now.AddDate(0, 0, -30)
	cutoff7 := now.AddDate(0, 0, -7)

	for _, e := range episodes {
		if len(e.TreatmentIDs) == 0 {
			continue
		}
		anyMedDays[e.StartTime.Format("2006-01-02")] = true

		seen := make(map[string]bool)
		for _, id := range e.TreatmentIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			agg, ok := aggs[id]
			if !ok {
				agg = &medAgg{sideEffects: make(map[string]*SideEffectSummary)}
				aggs[id] = agg
				order = append(order, id)
			}
			agg.totalUses++
			agg.durationSum += e.DurationMinutes
			if !e.StartTime.Before(cutoff30) {
				agg.uses30++
			}
			if !e.StartTime.Before(cutoff7) {
				agg.uses7++
			}
			if e.TreatmentRating != nil {
				agg.ratingSum += *e.TreatmentRating
				agg.ratingCount++
			}
			for _, raw := range e.SideEffects {
				name, severity := parseSideEffect(raw)
				if name == "" {
					continue
				}
				summary, ok := agg.sideEffects[name]
				if !ok {
					summary = &SideEffectSummary{Effect: name, Severity: severity}
					agg.sideEffects[name] = summary
					agg.sideEffectSeen = append(agg.sideEffectSeen, name)
				}
				summary.Occurrences++
				if severityRank(severity) > severityRank(summary.Severity) {
					summary.Severity = severity
				}
			}
		}
	}

	report := &OveruseReport{Medications: make([]MedicationUsage, 0, len(order))}
	var bestEffectiveness float64
	var fewestSideEffects = -1

	for _, id := range order {
		agg := aggs[id]
		usage := MedicationUsage{
			Medication:           id,
			TotalUses:            agg.totalUses,
			UsesLast30Days:       agg.uses30,
			UsesLast7Days:        agg.uses7,
			HasEffectivenessData: agg.ratingCount > 0,
			AvgReliefTimeMinutes: agg.durationSum / float64(agg.totalUses),
		}
		if agg.ratingCount > 0 {
			usage.AvgEffectiveness = agg.ratingSum / float64(agg.ratingCount)
		}

		limit := OveruseThreshold(id)
		if agg.uses30 >= limit {
			usage.OveruseAlert = true
			msg := fmt.Sprintf(
				"%s was used %d times in the last 30 days (limit %d). Frequent use can itself cause headaches; consider discussing a preventive strategy with your healthcare provider.",
				id, agg.uses30, limit,
			)
			usage.OveruseMessage = &msg
			report.MedicationOveruseRisk = true
		}

		usage.SideEffects = make([]SideEffectSummary, 0, len(agg.sideEffectSeen))
		for _, name := range agg.sideEffectSeen {
			summary := *agg.sideEffects[name]
			summary.PercentageOfUses = roundPercent(summary.Occurrences, agg.totalUses)
			usage.SideEffects = append(usage.SideEffects, summary)
		}
		sort.SliceStable(usage.SideEffects, func(i, j int) bool {
			return usage.SideEffects[i].Occurrences > usage.SideEffects[j].Occurrences
		})

		if usage.HasEffectivenessData && usage.AvgEffectiveness > 0 && usage.AvgEffectiveness > bestEffectiveness {
			bestEffectiveness = usage.AvgEffectiveness
			med := id
			report.MostEffectiveMedication = &med
		}
		if fewestSideEffects == -1 || len(usage.SideEffects) < fewestSideEffects {
			fewestSideEffects = len(usage.SideEffects)
			med := id
			report.LeastSideEffectsMedication = &med
		}

		report.Medications = append(report.Medications, usage)
	}

	if len(anyMedDays) >= anyMedicationDayLimit {
		report.MedicationOveruseRisk = true
	}

	return report
}

var sideEffectTokenRe = regexp.MustCompile(`(?i)\s*\(?(severe|moderate|mild)\)?\s*`)

// parseSideEffect infers severity by substring match on the raw side-effect
// string and strips the severity token from the display name.
func parseSideEffect(raw string) (string, normalize.Severity) {
	lower := strings.ToLower(raw)
	severity := normalize.SeverityMild
	if strings.Contains(lower, "severe") {
		severity = normalize.SeveritySevere
	} else if strings.Contains(lower, "moderate") {
		severity = normalize.SeverityModerate
	}
	name := strings.TrimSpace(sideEffectTokenRe.ReplaceAllString(raw, " "))
	name = strings.Trim(name, "-, ")
	return name, severity
}

func severityRank(s normalize.Severity) int {
	switch s {
	case normalize.SeveritySevere:
		return 3
	case normalize.SeverityModerate:
		return 2
	default:
		return 1
	}
}
