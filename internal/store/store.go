package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"runtrack/internal/models"
)

// timeFormat is RFC 3339 with a fixed nine-digit fraction. Fixed width keeps
// lexical order identical to chronological order for the start_time index.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// Store is the sole source of truth for job run records. All writes are
// synchronous single statements, so a successful return means the record is
// durable.
type Store struct {
	db *sqlx.DB
}

// New wraps an open connection and applies migrations.
func New(db *sqlx.DB) (*Store, error) {
	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new run record in state running and returns its id. Ids
// are assigned by the database and are never reused. Job names are not
// unique keys; many runs may share a name.
func (s *Store) Create(ctx context.Context, jobName string, startTime time.Time) (int64, error) {
	query := s.db.Rebind(`
		INSERT INTO job_runs (job_name, start_time, status, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		jobName,
		formatTime(startTime),
		models.RsRunning,
		formatTime(time.Now()),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert job run: %w", ErrStoreUnavailable, err)
	}
	return id, nil
}

// Complete sets the terminal fields of the identified run. The update only
// applies while the record is still running, so a second completion attempt
// observes ErrAlreadyTerminal and leaves the record untouched.
func (s *Store) Complete(ctx context.Context, id int64, endTime time.Time, durationSeconds float64, status models.RunStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("%q is not a terminal status", status)
	}

	query := s.db.Rebind(`
		UPDATE job_runs
		SET end_time = ?,
		    duration_seconds = ?,
		    status = ?
		WHERE id = ? AND status = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		formatTime(endTime),
		durationSeconds,
		status,
		id,
		models.RsRunning,
	)
	if err != nil {
		return fmt.Errorf("%w: complete job run: %w", ErrStoreUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", ErrStoreUnavailable, err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing matched: either the id does not exist or the run is already
	// terminal. A follow-up read distinguishes the two.
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyTerminal
}

// Override rewrites the terminal fields of a run regardless of its current
// status. It exists for explicit operator corrections outside the normal
// lifecycle and always leaves an audit trail in the logs.
func (s *Store) Override(ctx context.Context, id int64, endTime time.Time, durationSeconds float64, status models.RunStatus, reason string) error {
	if !status.Terminal() {
		return fmt.Errorf("%q is not a terminal status", status)
	}

	query := s.db.Rebind(`
		UPDATE job_runs
		SET end_time = ?,
		    duration_seconds = ?,
		    status = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		formatTime(endTime),
		durationSeconds,
		status,
		id,
	)
	if err != nil {
		return fmt.Errorf("%w: override job run: %w", ErrStoreUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	log.Warn().
		Int64("run_id", id).
		Str("status", string(status)).
		Str("reason", reason).
		Msg("Job run overridden outside normal lifecycle")
	return nil
}

const selectRunCols = `id, job_name, start_time, end_time, duration_seconds, status, created_at`

// Get retrieves a single run by id.
func (s *Store) Get(ctx context.Context, id int64) (*models.JobRun, error) {
	query := s.db.Rebind("SELECT " + selectRunCols + " FROM job_runs WHERE id = ?")
	row := s.db.QueryRowContext(ctx, query, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get job run: %w", ErrStoreUnavailable, err)
	}
	return run, nil
}

// ListRecent returns up to limit runs ordered by start time, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*models.JobRun, error) {
	query := s.db.Rebind("SELECT " + selectRunCols + " FROM job_runs ORDER BY start_time DESC LIMIT ?")

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list job runs: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var runs []*models.JobRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan job run: %w", ErrStoreUnavailable, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row interface{ Scan(...any) error }) (*models.JobRun, error) {
	var r models.JobRun
	var startTime, createdAt string
	var endTime sql.NullString
	var duration sql.NullFloat64

	err := row.Scan(
		&r.ID,
		&r.JobName,
		&startTime,
		&endTime,
		&duration,
		&r.Status,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if r.StartTime, err = parseTime(startTime); err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if endTime.Valid {
		t, err := parseTime(endTime.String)
		if err != nil {
			return nil, fmt.Errorf("parse end_time: %w", err)
		}
		r.EndTime.SetValid(t)
	}
	if duration.Valid {
		r.DurationSeconds.SetValid(duration.Float64)
	}

	return &r, nil
}
