// Package normalize converts raw episode fields into the canonical shapes the
// analytics services consume. All free-text annotation parsing lives here;
// analyzers only ever see structured values.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/migralog/backend/pkg/model"
)

// Severity represents the annotated severity of a trigger or symptom
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// AnnotatedItem is a trigger or symptom with its annotations parsed out.
// Name is the grouping key used by every analyzer.
type AnnotatedItem struct {
	Name             string   `json:"name"`
	OnsetHoursBefore *float64 `json:"onset_hours_before,omitempty"`
	Severity         Severity `json:"severity"`
}

// NormalizedEpisode is the analysis-ready view of an episode. It is built
// once at the boundary and shared read-only by the analyzers.
type NormalizedEpisode struct {
	ID               string
	UserID           string
	Status           model.EpisodeStatus
	StartTime        time.Time
	PainIntensity    *float64
	DurationMinutes  float64
	Locations        []string
	Triggers         []AnnotatedItem
	Symptoms         []AnnotatedItem
	TreatmentIDs     []string
	TreatmentRating  *float64
	SideEffects      []string
	TreatmentOutcome *model.TreatmentOutcome
}

var (
	timingHoursRe   = regexp.MustCompile(`(?i)\s*\((\d+(?:\.\d+)?)\s*h(?:ours?)?\s+before\)\s*$`)
	timingMinutesRe = regexp.MustCompile(`(?i)\s*\[(\d+(?:\.\d+)?)\s*min(?:utes?)?\]\s*$`)
	severityRe      = regexp.MustCompile(`(?i)\s*\((mild|moderate|severe)\)\s*$`)
	trailingParenRe = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
)

// ParseAnnotated parses a raw trigger or symptom string. Trailing timing
// annotations like "(2h before)" or "[30 min]" and severity annotations like
// "(severe)" are stripped; any other trailing parenthetical is discarded.
// Severity defaults to mild when no token is present.
func ParseAnnotated(raw string) AnnotatedItem {
	item := AnnotatedItem{Severity: SeverityMild}
	s := strings.TrimSpace(raw)

	if m := timingHoursRe.FindStringSubmatch(s); m != nil {
		if hours, err := strconv.ParseFloat(m[1], 64); err == nil {
			item.OnsetHoursBefore = &hours
		}
		s = timingHoursRe.ReplaceAllString(s, "")
	} else if m := timingMinutesRe.FindStringSubmatch(s); m != nil {
		if minutes, err := strconv.ParseFloat(m[1], 64); err == nil {
			hours := minutes / 60
			item.OnsetHoursBefore = &hours
		}
		s = timingMinutesRe.ReplaceAllString(s, "")
	}

	if m := severityRe.FindStringSubmatch(s); m != nil {
		item.Severity = Severity(strings.ToLower(m[1]))
		s = severityRe.ReplaceAllString(s, "")
	}

	// Any remaining trailing parenthetical is an annotation we do not
	// understand; it must not leak into the grouping key.
	s = trailingParenRe.ReplaceAllString(s, "")

	item.Name = strings.TrimSpace(s)
	return item
}

// ParseAnnotatedAll parses a list of raw trigger or symptom strings,
// discarding entries whose grouping key comes out empty.
func ParseAnnotatedAll(raw []string) []AnnotatedItem {
	items := make([]AnnotatedItem, 0, len(raw))
	for _, r := range raw {
		item := ParseAnnotated(r)
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// TreatmentIDs flattens a treatment into canonical lower-cased, trimmed
// identifiers: every medication name plus the treatment type. A nil or empty
// treatment yields an empty list, which analyzers read as "no treatment".
func TreatmentIDs(t *model.Treatment) []string {
	if t == nil {
		return []string{}
	}
	ids := make([]string, 0, len(t.Medications)+1)
	for _, med := range t.Medications {
		if id := canonicalID(med.Name); id != "" {
			ids = append(ids, id)
		}
	}
	if t.Type != nil {
		if id := canonicalID(*t.Type); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func canonicalID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SplitLocations splits a pain location string into distinct anatomical
// region keys. One trailing parenthetical annotation (spread notes and the
// like) is stripped before splitting on commas.
func SplitLocations(raw string) []string {
	s := trailingParenRe.ReplaceAllString(strings.TrimSpace(raw), "")
	parts := strings.Split(s, ",")
	locations := make([]string, 0, len(parts))
	for _, p := range parts {
		if loc := strings.TrimSpace(p); loc != "" {
			locations = append(locations, loc)
		}
	}
	return locations
}

// Episode builds the analysis-ready view of a single episode.
func Episode(e model.Episode) NormalizedEpisode {
	n := NormalizedEpisode{
		ID:               e.ID,
		UserID:           e.UserID,
		Status:           e.Status,
		StartTime:        e.StartTime,
		PainIntensity:    e.PainIntensity,
		DurationMinutes:  e.Duration(),
		Triggers:         ParseAnnotatedAll(e.Triggers),
		Symptoms:         ParseAnnotatedAll(e.Symptoms),
		TreatmentIDs:     TreatmentIDs(e.Treatment),
		TreatmentOutcome: e.TreatmentOutcome,
	}
	if e.PainLocation != nil {
		n.Locations = SplitLocations(*e.PainLocation)
	}
	if e.Treatment != nil {
		n.TreatmentRating = e.Treatment.Effectiveness
		n.SideEffects = e.Treatment.SideEffects
	}
	return n
}

// Episodes normalizes a snapshot of episodes, preserving input order.
func Episodes(episodes []model.Episode) []NormalizedEpisode {
	normalized := make([]NormalizedEpisode, 0, len(episodes))
	for _, e := range episodes {
		normalized = append(normalized, Episode(e))
	}
	return normalized
}
