package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for journal operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveRequest inserts a request record.
	SaveRequest(ctx context.Context, req *Request) error

	// GetStats aggregates requests created at or after since.
	GetStats(ctx context.Context, since time.Time) (*Stats, error)

	// DeleteRequestsBefore removes requests older than before and returns how many were deleted.
	DeleteRequestsBefore(ctx context.Context, before time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRequest inserts a request record. CreatedAt defaults to now.
func (s *sqlxStore) SaveRequest(ctx context.Context, req *Request) error {
	if req == nil {
		return fmt.Errorf("cannot save nil request")
	}
	if req.UserID == 0 {
		return fmt.Errorf("request must have a non-zero user_id")
	}
	if req.Kind != KindSolve && req.Kind != KindFollowUp {
		return fmt.Errorf("unknown request kind %q", req.Kind)
	}
	if req.Outcome == "" {
		return fmt.Errorf("request must have an outcome")
	}

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.CreatedAt = req.CreatedAt.UTC()

	query := `
        INSERT INTO requests (user_id, chat_id, kind, outcome, attempts, duration_ms, created_at)
        VALUES (:user_id, :chat_id, :kind, :outcome, :attempts, :duration_ms, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving request", "user_id", req.UserID, "kind", req.Kind, "error", err)
		return fmt.Errorf("failed to save request (user %d): %w", req.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // ids are positive and far below the uint range
		req.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Request saved", "row_id", req.ID, "kind", req.Kind, "outcome", req.Outcome)
	return nil
}

type statsRow struct {
	Total         int     `db:"total"`
	Succeeded     int     `db:"succeeded"`
	NoExercise    int     `db:"no_exercise"`
	NoContext     int     `db:"no_context"`
	Failed        int     `db:"failed"`
	FollowUps     int     `db:"followups"`
	UniqueUsers   int     `db:"unique_users"`
	AvgDurationMS float64 `db:"avg_duration_ms"`
}

// GetStats aggregates requests created at or after since.
func (s *sqlxStore) GetStats(ctx context.Context, since time.Time) (*Stats, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `
        SELECT
            COUNT(*) AS total,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS succeeded,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS no_exercise,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS no_context,
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS failed,
            COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0) AS followups,
            COUNT(DISTINCT user_id) AS unique_users,
            COALESCE(AVG(CASE WHEN attempts > 0 THEN duration_ms END), 0) AS avg_duration_ms
        FROM requests
        WHERE created_at >= ?;
    `

	var row statsRow
	err := s.db.GetContext(ctx, &row, query,
		OutcomeSuccess, OutcomeNoExercise, OutcomeNoContext, OutcomeFailed, KindFollowUp, since.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error aggregating request stats", "since", since, "error", err)
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &Stats{
		Since:       since,
		Total:       row.Total,
		Succeeded:   row.Succeeded,
		NoExercise:  row.NoExercise,
		NoContext:   row.NoContext,
		Failed:      row.Failed,
		FollowUps:   row.FollowUps,
		UniqueUsers: row.UniqueUsers,
		AvgDuration: time.Duration(row.AvgDurationMS * float64(time.Millisecond)),
	}, nil
}

// DeleteRequestsBefore removes requests created before the given time.
func (s *sqlxStore) DeleteRequestsBefore(ctx context.Context, before time.Time) (int64, error) {
	if before.IsZero() {
		return 0, fmt.Errorf("cutoff time cannot be zero")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?;`, before.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting old requests", "before", before, "error", err)
		return 0, fmt.Errorf("failed to delete requests before %s: %w", before.Format(time.RFC3339), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows after deleting requests", "error", err)
		return 0, nil
	}

	s.logger.DebugContext(ctx, "Old requests deleted", "before", before, "deleted", affected)
	return affected, nil
}

// RunSQLMaintenance executes VACUUM and PRAGMA optimize on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
