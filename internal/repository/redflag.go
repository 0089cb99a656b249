package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/migralog/backend/pkg/model"
	"go.uber.org/zap"
)

// RedFlagRepository persists screening outcomes
type RedFlagRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewRedFlagRepository creates a new RedFlagRepository
func NewRedFlagRepository(db *pgxpool.Pool, logger *zap.Logger) *RedFlagRepository {
	return &RedFlagRepository{
		db:     db,
		logger: logger,
	}
}

// Insert creates a new red-flag record
func (r *RedFlagRepository) Insert(ctx context.Context, record *model.RedFlagRecord) error {
	query := `
		INSERT INTO red_flag_records (
			id, user_id, episode_id, flag_type, priority_level,
			flags, screening_responses, created_at, acknowledged
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.EpisodeID,
		record.FlagType,
		record.PriorityLevel,
		record.Flags,
		record.ScreeningResponses,
		record.CreatedAt,
		record.Acknowledged,
	)

	if err != nil {
		r.logger.Error("failed to insert red-flag record",
			zap.Error(err),
			zap.String("record_id", record.ID),
			zap.String("user_id", record.UserID),
		)
		return fmt.Errorf("failed to insert red-flag record: %w", err)
	}

	return nil
}

// ListByUserID retrieves a user's red-flag records, newest first
func (r *RedFlagRepository) ListByUserID(ctx context.Context, userID string) ([]model.RedFlagRecord, error) {
	query := `
		SELECT
			id, user_id, episode_id, flag_type, priority_level,
			flags, screening_responses, created_at, acknowledged
		FROM red_flag_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list red-flag records", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to list red-flag records: %w", err)
	}
	defer rows.Close()

	var records []model.RedFlagRecord
	for rows.Next() {
		var record model.RedFlagRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.EpisodeID,
			&record.FlagType,
			&record.PriorityLevel,
			&record.Flags,
			&record.ScreeningResponses,
			&record.CreatedAt,
			&record.Acknowledged,
		)
		if err != nil {
			r.logger.Error("failed to scan red-flag record", zap.Error(err))
			continue
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating red-flag records", zap.Error(err))
		return nil, fmt.Errorf("error iterating red-flag records: %w", err)
	}

	return records, nil
}

// ExistsByType reports whether a user already has a record of the given
// flag type. Used by the one-shot screening gate.
func (r *RedFlagRepository) ExistsByType(ctx context.Context, userID, flagType string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM red_flag_records WHERE user_id = $1 AND flag_type = $2)`,
		userID, flagType,
	).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check red-flag existence",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("flag_type", flagType),
		)
		return false, fmt.Errorf("failed to check red-flag existence: %w", err)
	}
	return exists, nil
}

// Acknowledge marks a record as seen by the user
func (r *RedFlagRepository) Acknowledge(ctx context.Context, recordID string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE red_flag_records SET acknowledged = TRUE WHERE id = $1`,
		recordID,
	)
	if err != nil {
		r.logger.Error("failed to acknowledge red-flag record", zap.Error(err), zap.String("record_id", recordID))
		return fmt.Errorf("failed to acknowledge red-flag record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("red-flag record not found: %s", recordID)
	}

	return nil
}
