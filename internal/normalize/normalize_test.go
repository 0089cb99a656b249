package normalize

import (
	"testing"
	"time"

	"github.com/migralog/backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotated_TimingHours(t *testing.T) {
	item := ParseAnnotated("red wine (2h before)")

	assert.Equal(t, "red wine", item.Name)
	require.NotNil(t, item.OnsetHoursBefore)
	assert.Equal(t, 2.0, *item.OnsetHoursBefore)
	assert.Equal(t, SeverityMild, item.Severity)
}

func TestParseAnnotated_TimingHoursVariants(t *testing.T) {
	tests := []struct {
		raw   string
		name  string
		hours float64
	}{
		{"stress (1 hour before)", "stress", 1},
		{"caffeine (3 hours before)", "caffeine", 3},
		{"bright light (0.5h before)", "bright light", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			item := ParseAnnotated(tt.raw)
			assert.Equal(t, tt.name, item.Name)
			require.NotNil(t, item.OnsetHoursBefore)
			assert.Equal(t, tt.hours, *item.OnsetHoursBefore)
		})
	}
}

func TestParseAnnotated_TimingMinutes(t *testing.T) {
	item := ParseAnnotated("aura [30 min]")

	assert.Equal(t, "aura", item.Name)
	require.NotNil(t, item.OnsetHoursBefore)
	assert.Equal(t, 0.5, *item.OnsetHoursBefore)
}

func TestParseAnnotated_Severity(t *testing.T) {
	item := ParseAnnotated("nausea (severe)")

	assert.Equal(t, "nausea", item.Name)
	assert.Nil(t, item.OnsetHoursBefore)
	assert.Equal(t, SeveritySevere, item.Severity)
}

func TestParseAnnotated_TimingAndSeverity(t *testing.T) {
	item := ParseAnnotated("photophobia (moderate) (2h before)")

	assert.Equal(t, "photophobia", item.Name)
	require.NotNil(t, item.OnsetHoursBefore)
	assert.Equal(t, 2.0, *item.OnsetHoursBefore)
	assert.Equal(t, SeverityModerate, item.Severity)
}

func TestParseAnnotated_UnknownParenthetical(t *testing.T) {
	// Unrecognized trailing annotations are discarded so they never split
	// grouping keys apart.
	item := ParseAnnotated("stress (work related)")

	assert.Equal(t, "stress", item.Name)
	assert.Nil(t, item.OnsetHoursBefore)
	assert.Equal(t, SeverityMild, item.Severity)
}

func TestParseAnnotated_PlainName(t *testing.T) {
	item := ParseAnnotated("  dehydration  ")

	assert.Equal(t, "dehydration", item.Name)
	assert.Nil(t, item.OnsetHoursBefore)
	assert.Equal(t, SeverityMild, item.Severity)
}

func TestParseAnnotatedAll_DropsEmptyNames(t *testing.T) {
	items := ParseAnnotatedAll([]string{"stress", "", "  ", "(severe)", "nausea (mild)"})

	require.Len(t, items, 2)
	assert.Equal(t, "stress", items[0].Name)
	assert.Equal(t, "nausea", items[1].Name)
}

func TestTreatmentIDs(t *testing.T) {
	treatmentType := "Rest"
	treatment := &model.Treatment{
		Medications: []model.MedicationEntry{
			{Name: "Ibuprofen 400mg"},
			{Name: "  Caffeine "},
		},
		Type: &treatmentType,
	}

	ids := TreatmentIDs(treatment)

	assert.Equal(t, []string{"ibuprofen 400mg", "caffeine", "rest"}, ids)
}

func TestTreatmentIDs_Nil(t *testing.T) {
	assert.Equal(t, []string{}, TreatmentIDs(nil))
	assert.Equal(t, []string{}, TreatmentIDs(&model.Treatment{}))
}

func TestSplitLocations(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{"left temple", []string{"left temple"}},
		{"left temple, behind eyes", []string{"left temple", "behind eyes"}},
		{"forehead, back of head (spreading)", []string{"forehead", "back of head"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitLocations(tt.raw))
		})
	}
}

func TestEpisode_NormalizesAllFields(t *testing.T) {
	start := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	pain := 7.0
	location := "left temple, behind eyes"
	rating := 8.0
	outcome := model.OutcomeEffective

	episode := model.Episode{
		ID:            "ep-1",
		UserID:        "user-1",
		Status:        model.EpisodeStatusCompleted,
		StartTime:     start,
		EndTime:       &end,
		PainIntensity: &pain,
		PainLocation:  &location,
		Triggers:      []string{"red wine (2h before)", "stress"},
		Symptoms:      []string{"nausea (severe)"},
		Treatment: &model.Treatment{
			Medications:   []model.MedicationEntry{{Name: "Sumatriptan"}},
			Effectiveness: &rating,
			SideEffects:   []string{"drowsiness (mild)"},
		},
		TreatmentOutcome: &outcome,
	}

	n := Episode(episode)

	assert.Equal(t, "ep-1", n.ID)
	assert.Equal(t, 90.0, n.DurationMinutes)
	assert.Equal(t, []string{"left temple", "behind eyes"}, n.Locations)
	require.Len(t, n.Triggers, 2)
	assert.Equal(t, "red wine", n.Triggers[0].Name)
	require.Len(t, n.Symptoms, 1)
	assert.Equal(t, SeveritySevere, n.Symptoms[0].Severity)
	assert.Equal(t, []string{"sumatriptan"}, n.TreatmentIDs)
	require.NotNil(t, n.TreatmentRating)
	assert.Equal(t, 8.0, *n.TreatmentRating)
	assert.Equal(t, []string{"drowsiness (mild)"}, n.SideEffects)
	require.NotNil(t, n.TreatmentOutcome)
	assert.Equal(t, model.OutcomeEffective, *n.TreatmentOutcome)
}

func TestEpisode_DurationFallbacks(t *testing.T) {
	start := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	entered := 45.0

	withEntered := Episode(model.Episode{StartTime: start, DurationMinutes: &entered})
	assert.Equal(t, 45.0, withEntered.DurationMinutes)

	bare := Episode(model.Episode{StartTime: start})
	assert.Equal(t, 0.0, bare.DurationMinutes)
}

func TestEpisodes_PreservesOrder(t *testing.T) {
	episodes := Episodes([]model.Episode{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	})

	require.Len(t, episodes, 3)
	assert.Equal(t, "a", episodes[0].ID)
	assert.Equal(t, "b", episodes[1].ID)
	assert.Equal(t, "c", episodes[2].ID)
}
