package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/migralog/backend/pkg/model"
	"go.uber.org/zap"
)

// Screening criterion identifiers, one per letter of the SNOOP mnemonic
const (
	CriterionOnset         = "O_onset"
	CriterionNeurological  = "N_neurological"
	CriterionSystemic      = "S_systemic"
	CriterionOlderAge      = "O_older_age"
	CriterionPatternChange = "P_pattern_change"
	CriterionPositional    = "P_positional"
)

// Flag types for persisted screening outcomes
const (
	FlagTypeScreening       = "snoop_screening"
	FlagTypeFirstOnsetAge50 = "first_onset_after_50"
)

// The pre-screening gate only applies from this age up
const firstOnsetGateAge = 50

// NoFlagsMessage is returned when the screening raises no concerns
const NoFlagsMessage = "None of your answers matched a warning sign for a secondary headache. Keep logging your episodes and repeat the screening if anything changes."

// ScreeningEvaluation is the outcome of one screening run. It is a pure
// function of the responses; nothing is cached between runs.
type ScreeningEvaluation struct {
	Flags           []model.RedFlagResult `json:"flags"`
	HighestPriority model.FlagPriority    `json:"highest_priority"`
	HasAnyFlags     bool                  `json:"has_any_flags"`
	Summary         string                `json:"summary"`
}

// EvaluateScreening applies the secondary-headache rule set to a set of
// screening responses. Criteria are evaluated independently and are not
// mutually exclusive; an unanswered question is treated as "no". The function
// is total: it cannot fail.
func EvaluateScreening(r model.ScreeningResponses) ScreeningEvaluation {
	var flags []model.RedFlagResult

	if r.OnsetSudden {
		detail := "The headache reached full intensity within seconds to minutes. Sudden-onset headaches warrant urgent medical evaluation."
		if r.WorstHeadacheEver {
			detail = "A sudden-onset headache described as the worst ever is a thunderclap presentation. Seek emergency care immediately."
		}
		flags = append(flags, model.RedFlagResult{
			Criterion: CriterionOnset,
			Label:     "Sudden onset",
			Priority:  model.PriorityHigh,
			Detail:    detail,
		})
	}

	if r.HasNeurologicalSymptoms {
		detail := "Neurological symptoms such as weakness, numbness, vision or speech changes accompany the headache. Discuss these with a healthcare provider promptly."
		if r.NeuroOnsetSudden {
			detail = "Neurological symptoms that appeared suddenly alongside the headache need urgent assessment to rule out a vascular cause."
		}
		flags = append(flags, model.RedFlagResult{
			Criterion: CriterionNeurological,
			Label:     "Neurological symptoms",
			Priority:  model.PriorityHigh,
			Detail:    detail,
		})
	}

	if r.HasSystemicSymptoms {
		priority := model.PriorityMedium
		detail := "Systemic symptoms such as fever or weight loss alongside headaches should be reviewed by a healthcare provider."
		if r.HasStiffNeckOrRash {
			priority = model.PriorityHigh
			detail = "Fever with a stiff neck or rash can indicate meningitis. Seek medical care urgently."
		}
		flags = append(flags, model.RedFlagResult{
			Criterion: CriterionSystemic,
			Label:     "Systemic symptoms",
			Priority:  priority,
			Detail:    detail,
		})
	}

	if r.IsFirstAfter50 {
		flags = append(flags, model.RedFlagResult{
			Criterion: CriterionOlderAge,
			Label:     "First onset after 50",
			Priority:  model.PriorityMedium,
			Detail:    "A first-ever headache after age 50 has a higher chance of a secondary cause and should be medically evaluated.",
		})
	}

	if r.HasPatternChange {
		priority := model.PriorityLow
		detail := "Your headache pattern has changed. Mention this at your next appointment."
		if r.IsWorsening {
			priority = model.PriorityMedium
			detail = "A progressively worsening headache pattern should be reviewed by a healthcare provider."
		}
		flags = append(flags, model.RedFlagResult{
			Criterion: CriterionPatternChange,
			Label:     "Pattern change",
			Priority:  priority,
			Detail:    detail,
		})
	}

	if r.HasPositionalFactors {
		priority := model.PriorityMedium
		detail := "Headaches that change with posture can reflect pressure changes and are worth a medical review."
		if r.HasPapilledema {
			priority = model.PriorityHigh
			detail = "Positional headache with papilledema suggests raised intracranial pressure. Seek urgent evaluation."
		}
		flags = append(flags, model.RedFlagResult{
			Criterion: CriterionPositional,
			Label:     "Positional factors",
			Priority:  priority,
			Detail:    detail,
		})
	}

	eval := ScreeningEvaluation{
		Flags:           flags,
		HighestPriority: model.PriorityLow,
		Summary:         NoFlagsMessage,
	}
	for _, f := range flags {
		if f.Priority.Rank() > eval.HighestPriority.Rank() {
			eval.HighestPriority = f.Priority
		}
		if f.Priority != model.PriorityLow {
			eval.HasAnyFlags = true
		}
	}
	switch {
	case eval.HighestPriority == model.PriorityHigh:
		eval.Summary = "Your answers include warning signs that need urgent medical attention. Please contact a healthcare provider or emergency services now."
	case eval.HighestPriority == model.PriorityMedium:
		eval.Summary = "Some of your answers are worth discussing with a healthcare provider soon."
	case len(flags) > 0:
		eval.Summary = "Your answers raised only minor notes. Mention them at your next routine appointment."
	}
	return eval
}

// RedFlagRepositoryInterface defines the interface for red-flag persistence
type RedFlagRepositoryInterface interface {
	Insert(ctx context.Context, record *model.RedFlagRecord) error
	ListByUserID(ctx context.Context, userID string) ([]model.RedFlagRecord, error)
	ExistsByType(ctx context.Context, userID, flagType string) (bool, error)
	Acknowledge(ctx context.Context, recordID string) error
}

// ScreeningUserReader supplies the user and episode facts the pre-screening
// gate depends on.
type ScreeningUserReader interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	CountCompletedEpisodes(ctx context.Context, userID string) (int, error)
}

// ScreeningService runs the red-flag rule engine and persists the outcome.
// The rule engine itself never touches storage; only this caller does, and
// only when at least one flag fired.
type ScreeningService struct {
	flags  RedFlagRepositoryInterface
	users  ScreeningUserReader
	logger *zap.Logger
}

// NewScreeningService creates a new ScreeningService
func NewScreeningService(flags RedFlagRepositoryInterface, users ScreeningUserReader, logger *zap.Logger) *ScreeningService {
	return &ScreeningService{
		flags:  flags,
		users:  users,
		logger: logger,
	}
}

// Screen evaluates the responses and persists a RedFlagRecord when any
// criterion fired. episodeID optionally links the screening to an episode.
func (s *ScreeningService) Screen(ctx context.Context, userID string, episodeID *string, responses model.ScreeningResponses) (*ScreeningEvaluation, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	eval := EvaluateScreening(responses)

	if len(eval.Flags) == 0 {
		s.logger.Info("screening raised no flags", zap.String("user_id", userID))
		return &eval, nil
	}

	record := &model.RedFlagRecord{
		ID:                 uuid.New().String(),
		UserID:             userID,
		EpisodeID:          episodeID,
		FlagType:           FlagTypeScreening,
		PriorityLevel:      eval.HighestPriority,
		Flags:              eval.Flags,
		ScreeningResponses: responses,
		CreatedAt:          time.Now(),
	}
	if err := s.flags.Insert(ctx, record); err != nil {
		s.logger.Error("failed to persist red-flag record",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to persist red-flag record: %w", err)
	}

	s.logger.Info("screening flags persisted",
		zap.String("user_id", userID),
		zap.String("record_id", record.ID),
		zap.Int("flag_count", len(eval.Flags)),
		zap.String("highest_priority", string(eval.HighestPriority)),
	)
	return &eval, nil
}

// ShouldAskFirstOnset decides whether to show the one-shot "is this your
// first-ever headache" question: only for users aged 50 or older, with no
// completed episodes, who have never been asked before.
func (s *ScreeningService) ShouldAskFirstOnset(ctx context.Context, userID string, now time.Time) (bool, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Age(now) < firstOnsetGateAge {
		return false, nil
	}

	completed, err := s.users.CountCompletedEpisodes(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to count episodes: %w", err)
	}
	if completed > 0 {
		return false, nil
	}

	asked, err := s.flags.ExistsByType(ctx, userID, FlagTypeFirstOnsetAge50)
	if err != nil {
		return false, fmt.Errorf("failed to check prior flags: %w", err)
	}
	return !asked, nil
}

// RecordFirstOnsetAnswer persists the answer to the one-shot gate question so
// it is never asked again, flagging the user when they answered yes.
func (s *ScreeningService) RecordFirstOnsetAnswer(ctx context.Context, userID string, firstEver bool) (*ScreeningEvaluation, error) {
	responses := model.ScreeningResponses{IsFirstAfter50: firstEver}
	eval := EvaluateScreening(responses)

	record := &model.RedFlagRecord{
		ID:                 uuid.New().String(),
		UserID:             userID,
		FlagType:           FlagTypeFirstOnsetAge50,
		PriorityLevel:      eval.HighestPriority,
		Flags:              eval.Flags,
		ScreeningResponses: responses,
		CreatedAt:          time.Now(),
	}
	if err := s.flags.Insert(ctx, record); err != nil {
		s.logger.Error("failed to persist first-onset answer",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to persist first-onset answer: %w", err)
	}
	return &eval, nil
}

// ListRedFlags returns the persisted screening history for a user
func (s *ScreeningService) ListRedFlags(ctx context.Context, userID string) ([]model.RedFlagRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	records, err := s.flags.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list red flags",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to list red flags: %w", err)
	}
	return records, nil
}

// AcknowledgeRedFlag marks a persisted red-flag record as seen by the user
func (s *ScreeningService) AcknowledgeRedFlag(ctx context.Context, recordID string) error {
	if recordID == "" {
		return fmt.Errorf("record ID is required")
	}
	if err := s.flags.Acknowledge(ctx, recordID); err != nil {
		s.logger.Error("failed to acknowledge red flag",
			zap.Error(err),
			zap.String("record_id", recordID),
		)
		return fmt.Errorf("failed to acknowledge red flag: %w", err)
	}
	return nil
}
