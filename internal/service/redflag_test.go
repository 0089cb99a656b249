package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/migralog/backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRedFlagRepository struct {
	mock.Mock
}

func (m *MockRedFlagRepository) Insert(ctx context.Context, record *model.RedFlagRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRedFlagRepository) ListByUserID(ctx context.Context, userID string) ([]model.RedFlagRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RedFlagRecord), args.Error(1)
}

func (m *MockRedFlagRepository) ExistsByType(ctx context.Context, userID, flagType string) (bool, error) {
	args := m.Called(ctx, userID, flagType)
	return args.Bool(0), args.Error(1)
}

func (m *MockRedFlagRepository) Acknowledge(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}

type MockUserReader struct {
	mock.Mock
}

func (m *MockUserReader) GetUser(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserReader) CountCompletedEpisodes(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func newScreeningService(flags RedFlagRepositoryInterface, users ScreeningUserReader) *ScreeningService {
	return NewScreeningService(flags, users, zap.NewNop())
}

func TestEvaluateScreening_NoAnswers(t *testing.T) {
	eval := EvaluateScreening(model.ScreeningResponses{})

	assert.Empty(t, eval.Flags)
	assert.False(t, eval.HasAnyFlags)
	assert.Equal(t, NoFlagsMessage, eval.Summary)
}

func TestEvaluateScreening_Thunderclap(t *testing.T) {
	eval := EvaluateScreening(model.ScreeningResponses{
		OnsetSudden:       true,
		WorstHeadacheEver: true,
	})

	require.Len(t, eval.Flags, 1)
	flag := eval.Flags[0]
	assert.Equal(t, CriterionOnset, flag.Criterion)
	assert.Equal(t, model.PriorityHigh, flag.Priority)
	assert.Contains(t, flag.Detail, "thunderclap")
	assert.Equal(t, model.PriorityHigh, eval.HighestPriority)
	assert.True(t, eval.HasAnyFlags)
	assert.Contains(t, eval.Summary, "urgent")
}

func TestEvaluateScreening_WorstEverAloneDoesNotFlag(t *testing.T) {
	// The worst-ever answer only modifies the sudden-onset criterion; alone it
	// fires nothing.
	eval := EvaluateScreening(model.ScreeningResponses{WorstHeadacheEver: true})

	assert.Empty(t, eval.Flags)
}

func TestEvaluateScreening_SystemicEscalation(t *testing.T) {
	plain := EvaluateScreening(model.ScreeningResponses{HasSystemicSymptoms: true})
	require.Len(t, plain.Flags, 1)
	assert.Equal(t, model.PriorityMedium, plain.Flags[0].Priority)

	meningitis := EvaluateScreening(model.ScreeningResponses{
		HasSystemicSymptoms: true,
		HasStiffNeckOrRash:  true,
	})
	require.Len(t, meningitis.Flags, 1)
	assert.Equal(t, model.PriorityHigh, meningitis.Flags[0].Priority)
	assert.Contains(t, meningitis.Flags[0].Detail, "meningitis")
}

func TestEvaluateScreening_StiffNeckAloneDoesNotFlag(t *testing.T) {
	eval := EvaluateScreening(model.ScreeningResponses{HasStiffNeckOrRash: true})

	assert.Empty(t, eval.Flags)
}

func TestEvaluateScreening_PatternChangeEscalation(t *testing.T) {
	stable := EvaluateScreening(model.ScreeningResponses{HasPatternChange: true})
	require.Len(t, stable.Flags, 1)
	assert.Equal(t, model.PriorityLow, stable.Flags[0].Priority)
	// A single low-priority note is not treated as an actionable flag.
	assert.False(t, stable.HasAnyFlags)

	worsening := EvaluateScreening(model.ScreeningResponses{
		HasPatternChange: true,
		IsWorsening:      true,
	})
	require.Len(t, worsening.Flags, 1)
	assert.Equal(t, model.PriorityMedium, worsening.Flags[0].Priority)
	assert.True(t, worsening.HasAnyFlags)
}

func TestEvaluateScreening_PositionalWithPapilledema(t *testing.T) {
	eval := EvaluateScreening(model.ScreeningResponses{
		HasPositionalFactors: true,
		HasPapilledema:       true,
	})

	require.Len(t, eval.Flags, 1)
	assert.Equal(t, CriterionPositional, eval.Flags[0].Criterion)
	assert.Equal(t, model.PriorityHigh, eval.Flags[0].Priority)
}

func TestEvaluateScreening_CriteriaAreIndependent(t *testing.T) {
	eval := EvaluateScreening(model.ScreeningResponses{
		OnsetSudden:             true,
		HasNeurologicalSymptoms: true,
		HasSystemicSymptoms:     true,
		IsFirstAfter50:          true,
		HasPatternChange:        true,
		HasPositionalFactors:    true,
	})

	require.Len(t, eval.Flags, 6)
	criteria := make([]string, 0, len(eval.Flags))
	for _, f := range eval.Flags {
		criteria = append(criteria, f.Criterion)
	}
	assert.Equal(t, []string{
		CriterionOnset,
		CriterionNeurological,
		CriterionSystemic,
		CriterionOlderAge,
		CriterionPatternChange,
		CriterionPositional,
	}, criteria)
}

func TestProperty_ScreeningIsTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	boolGen := gen.Bool()

	properties.Property("Every answer combination evaluates to a consistent result", prop.ForAll(
		func(answers []bool) bool {
			r := model.ScreeningResponses{
				OnsetSudden:             answers[0],
				WorstHeadacheEver:       answers[1],
				HasNeurologicalSymptoms: answers[2],
				NeuroOnsetSudden:        answers[3],
				HasSystemicSymptoms:     answers[4],
				HasStiffNeckOrRash:      answers[5],
				IsFirstAfter50:          answers[6],
				HasPatternChange:        answers[7],
				IsWorsening:             answers[8],
				HasPositionalFactors:    answers[9],
				HasPapilledema:          answers[10],
			}

			eval := EvaluateScreening(r)

			// Summary is always present.
			if eval.Summary == "" {
				return false
			}
			// Highest priority must match the flags.
			highest := model.PriorityLow
			for _, f := range eval.Flags {
				if f.Priority.Rank() > highest.Rank() {
					highest = f.Priority
				}
			}
			if eval.HighestPriority != highest {
				return false
			}
			// HasAnyFlags means at least one medium or high flag.
			any := false
			for _, f := range eval.Flags {
				if f.Priority != model.PriorityLow {
					any = true
				}
			}
			if eval.HasAnyFlags != any {
				return false
			}
			// Evaluation is deterministic.
			again := EvaluateScreening(r)
			if len(again.Flags) != len(eval.Flags) || again.Summary != eval.Summary {
				return false
			}
			return true
		},
		gen.SliceOfN(11, boolGen),
	))

	properties.TestingRun(t)
}

func TestScreen_PersistsOnlyWhenFlagsFired(t *testing.T) {
	flags := new(MockRedFlagRepository)
	service := newScreeningService(flags, new(MockUserReader))
	ctx := context.Background()

	eval, err := service.Screen(ctx, "user-1", nil, model.ScreeningResponses{})

	require.NoError(t, err)
	assert.Empty(t, eval.Flags)
	flags.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestScreen_PersistsRecordWithFlags(t *testing.T) {
	flags := new(MockRedFlagRepository)
	flags.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := newScreeningService(flags, new(MockUserReader))
	ctx := context.Background()

	episodeID := "ep-1"
	eval, err := service.Screen(ctx, "user-1", &episodeID, model.ScreeningResponses{
		OnsetSudden: true,
	})

	require.NoError(t, err)
	assert.True(t, eval.HasAnyFlags)
	flags.AssertCalled(t, "Insert", mock.Anything, mock.MatchedBy(func(record *model.RedFlagRecord) bool {
		return record.UserID == "user-1" &&
			record.FlagType == FlagTypeScreening &&
			record.EpisodeID != nil && *record.EpisodeID == "ep-1" &&
			record.PriorityLevel == model.PriorityHigh &&
			len(record.Flags) == 1 &&
			record.ID != ""
	}))
}

func TestScreen_RequiresUserID(t *testing.T) {
	service := newScreeningService(new(MockRedFlagRepository), new(MockUserReader))

	_, err := service.Screen(context.Background(), "", nil, model.ScreeningResponses{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "user ID is required")
}

func TestScreen_InsertFailure(t *testing.T) {
	flags := new(MockRedFlagRepository)
	flags.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))
	service := newScreeningService(flags, new(MockUserReader))

	_, err := service.Screen(context.Background(), "user-1", nil, model.ScreeningResponses{OnsetSudden: true})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist red-flag record")
}

func dateOfBirth(year, month, day int) *time.Time {
	dob := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &dob
}

func TestShouldAskFirstOnset(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		dob        *time.Time
		completed  int
		askedPrior bool
		expect     bool
	}{
		{"aged 55 with empty journal", dateOfBirth(1971, 1, 1), 0, false, true},
		{"under 50", dateOfBirth(1990, 1, 1), 0, false, false},
		{"49 turning 50 next month", dateOfBirth(1976, 9, 15), 0, false, false},
		{"has completed episodes", dateOfBirth(1971, 1, 1), 3, false, false},
		{"already asked", dateOfBirth(1971, 1, 1), 0, true, false},
		{"no date of birth", nil, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserReader)
			users.On("GetUser", mock.Anything, "user-1").Return(&model.User{
				ID:          "user-1",
				DateOfBirth: tt.dob,
			}, nil)
			users.On("CountCompletedEpisodes", mock.Anything, "user-1").Return(tt.completed, nil)

			flags := new(MockRedFlagRepository)
			flags.On("ExistsByType", mock.Anything, "user-1", FlagTypeFirstOnsetAge50).Return(tt.askedPrior, nil)

			service := newScreeningService(flags, users)

			ask, err := service.ShouldAskFirstOnset(context.Background(), "user-1", now)

			require.NoError(t, err)
			assert.Equal(t, tt.expect, ask)
		})
	}
}

func TestRecordFirstOnsetAnswer_PersistsEitherWay(t *testing.T) {
	// Both answers persist a record so the question is never shown twice.
	for _, firstEver := range []bool{true, false} {
		flags := new(MockRedFlagRepository)
		flags.On("Insert", mock.Anything, mock.Anything).Return(nil)
		service := newScreeningService(flags, new(MockUserReader))

		eval, err := service.RecordFirstOnsetAnswer(context.Background(), "user-1", firstEver)

		require.NoError(t, err)
		if firstEver {
			require.Len(t, eval.Flags, 1)
			assert.Equal(t, CriterionOlderAge, eval.Flags[0].Criterion)
		} else {
			assert.Empty(t, eval.Flags)
		}
		flags.AssertCalled(t, "Insert", mock.Anything, mock.MatchedBy(func(record *model.RedFlagRecord) bool {
			return record.FlagType == FlagTypeFirstOnsetAge50 && record.UserID == "user-1"
		}))
	}
}

func TestListRedFlags(t *testing.T) {
	flags := new(MockRedFlagRepository)
	flags.On("ListByUserID", mock.Anything, "user-1").Return([]model.RedFlagRecord{
		{ID: "rf-1", UserID: "user-1"},
	}, nil)
	service := newScreeningService(flags, new(MockUserReader))

	records, err := service.ListRedFlags(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rf-1", records[0].ID)
}

func TestAcknowledgeRedFlag(t *testing.T) {
	flags := new(MockRedFlagRepository)
	flags.On("Acknowledge", mock.Anything, "rf-1").Return(nil)
	service := newScreeningService(flags, new(MockUserReader))

	err := service.AcknowledgeRedFlag(context.Background(), "rf-1")

	require.NoError(t, err)
	flags.AssertCalled(t, "Acknowledge", mock.Anything, "rf-1")
}
