package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/migralog/backend/pkg/model"
	"go.uber.org/zap"
)

// UserRepository reads user profile data
type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	query := `
		SELECT id, name, email, date_of_birth, created_at, updated_at, deleted_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.DateOfBirth,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found: %s", userID)
		}
		r.logger.Error("failed to get user", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// CountCompletedEpisodes counts a user's completed episodes
func (r *UserRepository) CountCompletedEpisodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM episodes WHERE user_id = $1 AND status = $2`,
		userID, model.EpisodeStatusCompleted,
	).Scan(&count)
	if err != nil {
		r.logger.Error("failed to count completed episodes", zap.Error(err), zap.String("user_id", userID))
		return 0, fmt.Errorf("failed to count completed episodes: %w", err)
	}
	return count, nil
}
