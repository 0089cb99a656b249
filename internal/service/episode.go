package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/migralog/backend/pkg/model"
	"go.uber.org/zap"
)

// EpisodeRepositoryInterface defines the interface for episode persistence
type EpisodeRepositoryInterface interface {
	Create(ctx context.Context, episode *model.Episode) error
	FindByID(ctx context.Context, episodeID string) (*model.Episode, error)
	FindByUserID(ctx context.Context, userID string, from, to *time.Time) ([]model.Episode, error)
	Update(ctx context.Context, episode *model.Episode) error
	Delete(ctx context.Context, episodeID string) error
}

// EpisodeService handles the headache logging flow
type EpisodeService struct {
	repo   EpisodeRepositoryInterface
	logger *zap.Logger
}

// NewEpisodeService creates a new EpisodeService
func NewEpisodeService(repo EpisodeRepositoryInterface, logger *zap.Logger) *EpisodeService {
	return &EpisodeService{
		repo:   repo,
		logger: logger,
	}
}

// LogEpisode starts a new active episode for a user
func (s *EpisodeService) LogEpisode(ctx context.Context, userID string, episode *model.Episode) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if err := validateEpisodeFields(episode); err != nil {
		return err
	}

	if episode.ID == "" {
		episode.ID = uuid.New().String()
	}
	episode.UserID = userID
	episode.Status = model.EpisodeStatusActive
	if episode.StartTime.IsZero() {
		episode.StartTime = time.Now()
	}

	now := time.Now()
	episode.CreatedAt = now
	episode.UpdatedAt = now

	if err := s.repo.Create(ctx, episode); err != nil {
		s.logger.Error("failed to log episode",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to log episode: %w", err)
	}

	s.logger.Info("episode logged",
		zap.String("episode_id", episode.ID),
		zap.String("user_id", userID),
	)
	return nil
}

// UpdateEpisode applies field updates to an active episode. Completed
// episodes are immutable.
func (s *EpisodeService) UpdateEpisode(ctx context.Context, episodeID string, updates *model.Episode) error {
	if episodeID == "" {
		return fmt.Errorf("episode ID is required")
	}

	existing, err := s.repo.FindByID(ctx, episodeID)
	if err != nil {
		s.logger.Error("failed to find episode for update",
			zap.Error(err),
			zap.String("episode_id", episodeID),
		)
		return fmt.Errorf("episode not found: %w", err)
	}
	if existing.Status == model.EpisodeStatusCompleted {
		return fmt.Errorf("episode is completed and can no longer be modified")
	}

	// Preserve identity and lifecycle fields
	updates.ID = existing.ID
	updates.UserID = existing.UserID
	updates.Status = existing.Status
	updates.CreatedAt = existing.CreatedAt
	if updates.StartTime.IsZero() {
		updates.StartTime = existing.StartTime
	}
	if err := validateEpisodeFields(updates); err != nil {
		return err
	}
	updates.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, updates); err != nil {
		s.logger.Error("failed to update episode",
			zap.Error(err),
			zap.String("episode_id", episodeID),
		)
		return fmt.Errorf("failed to update episode: %w", err)
	}

	s.logger.Info("episode updated", zap.String("episode_id", episodeID))
	return nil
}

// CompleteEpisode ends an active episode, deriving its duration from the
// recorded times, and freezes it against further edits.
func (s *EpisodeService) CompleteEpisode(ctx context.Context, episodeID string, endTime *time.Time) error {
	if episodeID == "" {
		return fmt.Errorf("episode ID is required")
	}

	episode, err := s.repo.FindByID(ctx, episodeID)
	if err != nil {
		return fmt.Errorf("episode not found: %w", err)
	}
	if episode.Status == model.EpisodeStatusCompleted {
		return fmt.Errorf("episode is already completed")
	}

	end := time.Now()
	if endTime != nil {
		end = *endTime
	}
	if end.Before(episode.StartTime) {
		return fmt.Errorf("end time must not be before start time")
	}

	episode.EndTime = &end
	duration := end.Sub(episode.StartTime).Minutes()
	episode.DurationMinutes = &duration
	episode.Status = model.EpisodeStatusCompleted
	episode.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, episode); err != nil {
		s.logger.Error("failed to complete episode",
			zap.Error(err),
			zap.String("episode_id", episodeID),
		)
		return fmt.Errorf("failed to complete episode: %w", err)
	}

	s.logger.Info("episode completed",
		zap.String("episode_id", episodeID),
		zap.Float64("duration_minutes", duration),
	)
	return nil
}

// GetEpisode retrieves a single episode
func (s *EpisodeService) GetEpisode(ctx context.Context, episodeID string) (*model.Episode, error) {
	if episodeID == "" {
		return nil, fmt.Errorf("episode ID is required")
	}
	episode, err := s.repo.FindByID(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("episode not found: %w", err)
	}
	return episode, nil
}

// ListEpisodes retrieves a user's episodes, optionally within a date range
func (s *EpisodeService) ListEpisodes(ctx context.Context, userID string, from, to *time.Time) ([]model.Episode, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	episodes, err := s.repo.FindByUserID(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("failed to list episodes",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	return episodes, nil
}

// DeleteEpisode removes an episode
func (s *EpisodeService) DeleteEpisode(ctx context.Context, episodeID string) error {
	if episodeID == "" {
		return fmt.Errorf("episode ID is required")
	}
	if err := s.repo.Delete(ctx, episodeID); err != nil {
		s.logger.Error("failed to delete episode",
			zap.Error(err),
			zap.String("episode_id", episodeID),
		)
		return fmt.Errorf("failed to delete episode: %w", err)
	}
	s.logger.Info("episode deleted", zap.String("episode_id", episodeID))
	return nil
}

func validateEpisodeFields(episode *model.Episode) error {
	if episode.PainIntensity != nil && (*episode.PainIntensity < 0 || *episode.PainIntensity > 10) {
		return fmt.Errorf("pain intensity must be between 0 and 10")
	}
	if episode.EndTime != nil && !episode.StartTime.IsZero() && episode.EndTime.Before(episode.StartTime) {
		return fmt.Errorf("end time must not be before start time")
	}
	if episode.DurationMinutes != nil && *episode.DurationMinutes < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}
