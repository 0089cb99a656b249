// Package audit records who changed which journal resource, when and from
// where. Entries go to the audit_logs table; writes are best effort and the
// caller is expected to ignore the returned error on hot paths.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

type ResourceType string

const (
	ResourceEpisode       ResourceType = "episode"
	ResourceScreening     ResourceType = "screening"
	ResourceRedFlagRecord ResourceType = "red_flag_record"
)

// Entry is a single audit record. ResourceID may be empty when the operation
// has no stable identifier yet (a screening that persisted nothing).
type Entry struct {
	UserID       string
	Operation    OperationType
	ResourceType ResourceType
	ResourceID   string
	OccurredAt   time.Time
	IPAddress    string
	UserAgent    string
}

// Logger writes audit entries through a shared connection pool.
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{db: db, logger: logger}
}

// Log persists one entry. A failed insert is logged and returned but must not
// fail the request that triggered it.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	_, err := l.db.Exec(ctx, `
		INSERT INTO audit_logs (user_id, operation_type, resource_type, resource_id, timestamp, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.UserID,
		entry.Operation,
		entry.ResourceType,
		entry.ResourceID,
		entry.OccurredAt,
		entry.IPAddress,
		entry.UserAgent,
	)
	if err != nil {
		l.logger.Error("Failed to write audit entry",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
			zap.String("operation", string(entry.Operation)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	l.logger.Info("Audit entry recorded",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.Operation)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
	)
	return nil
}

// Recent returns the newest entries for a user, most recent first.
func (l *Logger) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `
		SELECT user_id, operation_type, resource_type, resource_id, timestamp, ip_address, user_agent
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Operation, &e.ResourceType, &e.ResourceID, &e.OccurredAt, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
