package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/migralog/backend/pkg/model"
	"go.uber.org/zap"
)

// EpisodeRepository manages headache episode data
type EpisodeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewEpisodeRepository creates a new EpisodeRepository
func NewEpisodeRepository(db *pgxpool.Pool, logger *zap.Logger) *EpisodeRepository {
	return &EpisodeRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new episode record
func (r *EpisodeRepository) Create(ctx context.Context, episode *model.Episode) error {
	query := `
		INSERT INTO episodes (
			id, user_id, status, start_time, end_time,
			pain_intensity, duration_minutes, pain_location,
			symptoms, triggers, treatment, treatment_outcome, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query,
		episode.ID,
		episode.UserID,
		episode.Status,
		episode.StartTime,
		episode.EndTime,
		episode.PainIntensity,
		episode.DurationMinutes,
		episode.PainLocation,
		episode.Symptoms,
		episode.Triggers,
		episode.Treatment,
		episode.TreatmentOutcome,
		episode.Notes,
	)

	if err != nil {
		r.logger.Error("failed to create episode",
			zap.Error(err),
			zap.String("episode_id", episode.ID),
			zap.String("user_id", episode.UserID),
		)
		return fmt.Errorf("failed to create episode: %w", err)
	}

	return nil
}

// FindByID retrieves an episode by ID
func (r *EpisodeRepository) FindByID(ctx context.Context, episodeID string) (*model.Episode, error) {
	query := `
		SELECT
			id, user_id, status, start_time, end_time,
			pain_intensity, duration_minutes, pain_location,
			symptoms, triggers, treatment, treatment_outcome, notes,
			created_at, updated_at
		FROM episodes
		WHERE id = $1
	`

	var episode model.Episode
	err := r.db.QueryRow(ctx, query, episodeID).Scan(
		&episode.ID,
		&episode.UserID,
		&episode.Status,
		&episode.StartTime,
		&episode.EndTime,
		&episode.PainIntensity,
		&episode.DurationMinutes,
		&episode.PainLocation,
		&episode.Symptoms,
		&episode.Triggers,
		&episode.Treatment,
		&episode.TreatmentOutcome,
		&episode.Notes,
		&episode.CreatedAt,
		&episode.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("episode not found: %s", episodeID)
		}
		r.logger.Error("failed to get episode", zap.Error(err), zap.String("episode_id", episodeID))
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}

	return &episode, nil
}

// FindByUserID retrieves a user's episodes, newest first, optionally
// restricted to a start-time range. This is the episode snapshot the
// analytics services run over.
func (r *EpisodeRepository) FindByUserID(ctx context.Context, userID string, from, to *time.Time) ([]model.Episode, error) {
	query := `
		SELECT
			id, user_id, status, start_time, end_time,
			pain_intensity, duration_minutes, pain_location,
			symptoms, triggers, treatment, treatment_outcome, notes,
			created_at, updated_at
		FROM episodes
		WHERE user_id = $1
	`
	args := []any{userID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND start_time <= $%d", len(args))
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to find episodes", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to find episodes: %w", err)
	}
	defer rows.Close()

	var episodes []model.Episode
	for rows.Next() {
		var episode model.Episode
		err := rows.Scan(
			&episode.ID,
			&episode.UserID,
			&episode.Status,
			&episode.StartTime,
			&episode.EndTime,
			&episode.PainIntensity,
			&episode.DurationMinutes,
			&episode.PainLocation,
			&episode.Symptoms,
			&episode.Triggers,
			&episode.Treatment,
			&episode.TreatmentOutcome,
			&episode.Notes,
			&episode.CreatedAt,
			&episode.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan episode", zap.Error(err))
			continue
		}
		episodes = append(episodes, episode)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating episodes", zap.Error(err))
		return nil, fmt.Errorf("error iterating episodes: %w", err)
	}

	return episodes, nil
}

// FetchEpisodes adapts FindByUserID to the analytics episode source contract
func (r *EpisodeRepository) FetchEpisodes(ctx context.Context, userID string, from, to *time.Time) ([]model.Episode, error) {
	return r.FindByUserID(ctx, userID, from, to)
}

// Update updates an existing episode
func (r *EpisodeRepository) Update(ctx context.Context, episode *model.Episode) error {
	query := `
		UPDATE episodes
		SET status = $1, start_time = $2, end_time = $3,
			pain_intensity = $4, duration_minutes = $5, pain_location = $6,
			symptoms = $7, triggers = $8, treatment = $9,
			treatment_outcome = $10, notes = $11, updated_at = NOW()
		WHERE id = $12
	`

	result, err := r.db.Exec(ctx, query,
		episode.Status,
		episode.StartTime,
		episode.EndTime,
		episode.PainIntensity,
		episode.DurationMinutes,
		episode.PainLocation,
		episode.Symptoms,
		episode.Triggers,
		episode.Treatment,
		episode.TreatmentOutcome,
		episode.Notes,
		episode.ID,
	)

	if err != nil {
		r.logger.Error("failed to update episode", zap.Error(err), zap.String("episode_id", episode.ID))
		return fmt.Errorf("failed to update episode: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("episode not found: %s", episode.ID)
	}

	return nil
}

// Delete deletes an episode
func (r *EpisodeRepository) Delete(ctx context.Context, episodeID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM episodes WHERE id = $1`, episodeID)
	if err != nil {
		r.logger.Error("failed to delete episode", zap.Error(err), zap.String("episode_id", episodeID))
		return fmt.Errorf("failed to delete episode: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("episode not found: %s", episodeID)
	}

	return nil
}
