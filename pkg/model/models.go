package model

import (
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Age returns the user's age in whole years at the given reference time,
// or -1 when no date of birth is recorded.
func (u *User) Age(at time.Time) int {
	if u.DateOfBirth == nil {
		return -1
	}
	years := at.Year() - u.DateOfBirth.Year()
	anniversary := u.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}

// EpisodeStatus represents the lifecycle state of a headache episode
type EpisodeStatus string

const (
	EpisodeStatusActive    EpisodeStatus = "active"
	EpisodeStatusCompleted EpisodeStatus = "completed"
)

// TreatmentOutcome represents the user's assessment of a treatment
type TreatmentOutcome string

const (
	OutcomeEffective          TreatmentOutcome = "effective"
	OutcomePartiallyEffective TreatmentOutcome = "partially_effective"
	OutcomeIneffective        TreatmentOutcome = "ineffective"
)

// Episode represents one logged headache occurrence.
//
// Episodes are mutable field-by-field while active and become immutable once
// completed. PainLocation, Symptoms and Triggers may carry free-text
// annotations; they are parsed by the normalize package, never here.
type Episode struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Status           EpisodeStatus     `json:"status"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          *time.Time        `json:"end_time,omitempty"`
	PainIntensity    *float64          `json:"pain_intensity,omitempty"` // 0-10
	DurationMinutes  *float64          `json:"duration_minutes,omitempty"`
	PainLocation     *string           `json:"pain_location,omitempty"`
	Symptoms         []string          `json:"symptoms,omitempty"`
	Triggers         []string          `json:"triggers,omitempty"`
	Treatment        *Treatment        `json:"treatment,omitempty"`
	TreatmentOutcome *TreatmentOutcome `json:"treatment_outcome,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Duration returns the effective episode duration in minutes: derived from
// start/end when both exist, otherwise the user-entered value, otherwise 0.
func (e *Episode) Duration() float64 {
	if e.EndTime != nil && !e.EndTime.Before(e.StartTime) {
		return e.EndTime.Sub(e.StartTime).Minutes()
	}
	if e.DurationMinutes != nil {
		return *e.DurationMinutes
	}
	return 0
}

// MedicationEntry is a single medication inside a treatment. Historical logs
// stored either a bare name string or an object with a name field, so both
// shapes unmarshal into this type.
type MedicationEntry struct {
	Name   string  `json:"name"`
	Dosage *string `json:"dosage,omitempty"`
}

// UnmarshalJSON accepts either "ibuprofen" or {"name":"ibuprofen",...}.
func (m *MedicationEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		m.Name = name
		return nil
	}
	type alias MedicationEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = MedicationEntry(a)
	return nil
}

// Treatment captures the polymorphic treatment field. Older episodes stored a
// plain array of medication names; newer ones store a structured object with
// medications, other treatments, an effectiveness rating and side effects.
// Any shape matching neither decodes to the zero value, which downstream code
// treats as "no treatment data".
type Treatment struct {
	Medications     []MedicationEntry `json:"medications,omitempty"`
	OtherTreatments []string          `json:"other_treatments,omitempty"`
	Effectiveness   *float64          `json:"effectiveness,omitempty"` // 0-10
	SideEffects     []string          `json:"side_effects,omitempty"`
	Type            *string           `json:"type,omitempty"`
}

// UnmarshalJSON accepts the legacy array shape ["ibuprofen","caffeine"] as
// well as the structured object shape.
func (t *Treatment) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		t.Medications = make([]MedicationEntry, 0, len(names))
		for _, n := range names {
			t.Medications = append(t.Medications, MedicationEntry{Name: n})
		}
		return nil
	}
	type alias Treatment
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		// Unrecognized shape means no treatment data, not a failure.
		*t = Treatment{}
		return nil
	}
	*t = Treatment(a)
	return nil
}

// ScreeningResponses holds the answers to the secondary-headache screening
// questionnaire. Every question is optional in the UI; an unanswered question
// is indistinguishable from "no".
type ScreeningResponses struct {
	OnsetSudden             bool `json:"onset_sudden,omitempty"`
	WorstHeadacheEver       bool `json:"worst_headache_ever,omitempty"`
	HasNeurologicalSymptoms bool `json:"has_neurological_symptoms,omitempty"`
	NeuroOnsetSudden        bool `json:"neuro_onset_sudden,omitempty"`
	HasSystemicSymptoms     bool `json:"has_systemic_symptoms,omitempty"`
	HasStiffNeckOrRash      bool `json:"has_stiff_neck_or_rash,omitempty"`
	IsFirstAfter50          bool `json:"is_first_after_50,omitempty"`
	HasPatternChange        bool `json:"has_pattern_change,omitempty"`
	IsWorsening             bool `json:"is_worsening,omitempty"`
	HasPositionalFactors    bool `json:"has_positional_factors,omitempty"`
	HasPapilledema          bool `json:"has_papilledema,omitempty"`
}

// FlagPriority represents the urgency of a red flag
type FlagPriority string

const (
	PriorityHigh   FlagPriority = "high"
	PriorityMedium FlagPriority = "medium"
	PriorityLow    FlagPriority = "low"
)

// Rank returns an ordinal for priority comparison, higher is more urgent.
func (p FlagPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// RedFlagResult is a single fired screening criterion
type RedFlagResult struct {
	Criterion string       `json:"criterion"`
	Label     string       `json:"label"`
	Priority  FlagPriority `json:"priority"`
	Detail    string       `json:"detail"`
}

// RedFlagRecord is a persisted screening outcome
type RedFlagRecord struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	EpisodeID          *string            `json:"episode_id,omitempty"`
	FlagType           string             `json:"flag_type"`
	PriorityLevel      FlagPriority       `json:"priority_level"`
	Flags              []RedFlagResult    `json:"flags"`
	ScreeningResponses ScreeningResponses `json:"screening_responses"`
	CreatedAt          time.Time          `json:"created_at"`
	Acknowledged       bool               `json:"acknowledged"`
}
