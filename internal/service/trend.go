package service

import (
	"time"

	"github.com/migralog/backend/internal/normalize"
)

// TrendDirection classifies the month-over-month movement of a burden metric.
// The sense is inverted relative to the raw change: fewer episodes or less
// pain is an improvement.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
)

// Changes inside this band are treated as noise
const trendChangePercent = 10

// DefaultTrendMonths is the analysis width when the caller does not choose one
const DefaultTrendMonths = 6

// MonthlyStats aggregates the episodes of one calendar month
type MonthlyStats struct {
	Month            string  `json:"month"` // YYYY-MM
	EpisodeCount     int     `json:"episode_count"`
	HeadacheDays     int     `json:"headache_days"`
	AvgPainIntensity float64 `json:"avg_pain_intensity"`
	AvgDuration      float64 `json:"avg_duration"`
	TopTrigger       *string `json:"top_trigger,omitempty"`
	TopSymptom       *string `json:"top_symptom,omitempty"`
}

// MetricChange is the movement of one burden metric between the two most
// recent months in the window.
type MetricChange struct {
	Metric        string         `json:"metric"`
	Previous      float64        `json:"previous"`
	Current       float64        `json:"current"`
	PercentChange float64        `json:"percent_change"`
	Direction     TrendDirection `json:"direction"`
}

// TrendReport is the month-binned view of the journal plus the direction call
type TrendReport struct {
	Months       []MonthlyStats `json:"months"`
	Changes      []MetricChange `json:"changes"`
	OverallTrend TrendDirection `json:"overall_trend"`
}

// CompareMonthlyTrends bins episodes into the trailing months calendar
// months ending at now, including zero-filled months with no episodes, and
// classifies the direction of change between the two most recent months.
// This is deliberately a two-point comparison, not a regression.
func CompareMonthlyTrends(episodes []normalize.NormalizedEpisode, months int, now time.Time) *TrendReport {
	if months < 1 {
		months = DefaultTrendMonths
	}

	type monthAgg struct {
		episodeCount int
		days         map[string]bool
		painSum      float64
		painCount    int
		durationSum  float64
		triggerFreq  map[string]int
		triggerSeen  []string
		symptomFreq  map[string]int
		symptomSeen  []string
	}

	// Full calendar sequence, oldest first.
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	keys := make([]string, 0, months)
	aggs := make(map[string]*monthAgg, months)
	for i := 0; i < months; i++ {
		key := firstMonth.AddDate(0, i, 0).Format("2006-01")
		keys = append(keys, key)
		aggs[key] = &monthAgg{
			days:        make(map[string]bool),
			triggerFreq: make(map[string]int),
			symptomFreq: make(map[string]int),
		}
	}

	for _, e := range episodes {
		agg, ok := aggs[e.StartTime.Format("2006-01")]
		if !ok {
			continue // outside the window
		}
		agg.episodeCount++
		agg.days[e.StartTime.Format("2006-01-02")] = true
		agg.durationSum += e.DurationMinutes
		if e.PainIntensity != nil {
			agg.painSum += *e.PainIntensity
			agg.painCount++
		}
		for _, t := range e.Triggers {
			if _, ok := agg.triggerFreq[t.Name]; !ok {
				agg.triggerSeen = append(agg.triggerSeen, t.Name)
			}
			agg.triggerFreq[t.Name]++
		}
		for _, s := range e.Symptoms {
			if _, ok := agg.symptomFreq[s.Name]; !ok {
				agg.symptomSeen = append(agg.symptomSeen, s.Name)
			}
			agg.symptomFreq[s.Name]++
		}
	}

	report := &TrendReport{
		Months:       make([]MonthlyStats, 0, months),
		OverallTrend: TrendStable,
	}
	for _, key := range keys {
		agg := aggs[key]
		stats := MonthlyStats{
			Month:        key,
			EpisodeCount: agg.episodeCount,
			HeadacheDays: len(agg.days),
			TopTrigger:   mode(agg.triggerFreq, agg.triggerSeen),
			TopSymptom:   mode(agg.symptomFreq, agg.symptomSeen),
		}
		if agg.painCount > 0 {
			stats.AvgPainIntensity = agg.painSum / float64(agg.painCount)
		}
		if agg.episodeCount > 0 {
			stats.AvgDuration = agg.durationSum / float64(agg.episodeCount)
		}
		report.Months = append(report.Months, stats)
	}

	if len(report.Months) < 2 {
		return report
	}
	previous := report.Months[len(report.Months)-2]
	current := report.Months[len(report.Months)-1]

	report.Changes = []MetricChange{
		metricChange("episode_count", float64(previous.EpisodeCount), float64(current.EpisodeCount)),
		metricChange("avg_pain_intensity", previous.AvgPainIntensity, current.AvgPainIntensity),
		metricChange("avg_duration", previous.AvgDuration, current.AvgDuration),
		metricChange("headache_days", float64(previous.HeadacheDays), float64(current.HeadacheDays)),
	}

	improving, worsening := 0, 0
	for _, c := range report.Changes {
		switch c.Direction {
		case TrendImproving:
			improving++
		case TrendWorsening:
			worsening++
		}
	}
	switch {
	case improving > worsening:
		report.OverallTrend = TrendImproving
	case worsening > improving:
		report.OverallTrend = TrendWorsening
	}

	return report
}

func metricChange(metric string, previous, current float64) MetricChange {
	change := MetricChange{Metric: metric, Previous: previous, Current: current}
	// A zero previous month gives no baseline to compare against; report no
	// change rather than an infinite one.
	if previous != 0 {
		change.PercentChange = (current - previous) / previous * 100
	}
	switch {
	case change.PercentChange <= -trendChangePercent:
		change.Direction = TrendImproving
	case change.PercentChange >= trendChangePercent:
		change.Direction = TrendWorsening
	default:
		change.Direction = TrendStable
	}
	return change
}

// mode returns the most frequent name, ties keeping discovery order, nil when
// the month recorded none.
func mode(freq map[string]int, seen []string) *string {
	var best *string
	bestCount := 0
	for _, name := range seen {
		if freq[name] > bestCount {
			bestCount = freq[name]
			n := name
			best = &n
		}
	}
	return best
}
