package store

import "github.com/jmoiron/sqlx"

// Timestamps are stored as fixed-width UTC text so that lexical order on the
// start_time index matches chronological order on every backend.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS job_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_name TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT,
    duration_seconds REAL,
    status TEXT NOT NULL DEFAULT 'running',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_runs_start_time ON job_runs(start_time DESC);
CREATE INDEX IF NOT EXISTS idx_job_runs_job_name ON job_runs(job_name);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS job_runs (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    job_name TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT,
    duration_seconds DOUBLE PRECISION,
    status TEXT NOT NULL DEFAULT 'running',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_runs_start_time ON job_runs(start_time DESC);
CREATE INDEX IF NOT EXISTS idx_job_runs_job_name ON job_runs(job_name);
`

// RunMigrations applies the schema for the driver the connection was opened
// with. Both dialects produce the same logical table: one row per job run,
// keyed by a monotonically assigned integer id that is never reused.
func RunMigrations(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "pgx" {
		schema = postgresSchema
	}
	_, err := db.Exec(schema)
	return err
}
