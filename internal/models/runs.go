package models

import (
	"time"

	"github.com/guregu/null/v6"
)

type RunStatus string

const (
	RsRunning   RunStatus = "running"
	RsCompleted RunStatus = "completed"
	RsFailed    RunStatus = "failed"
)

// Terminal reports whether the status closes a run. Any label other than
// "running" is terminal; callers may supply their own labels and they are
// stored verbatim.
func (s RunStatus) Terminal() bool {
	return s != RsRunning && s != ""
}

// JobRun is a model representing a single row of the `job_runs` table. Each
// row is one execution instance of a named batch job. EndTime and
// DurationSeconds are set together exactly once, when the run reaches a
// terminal status.
type JobRun struct {
	ID              int64      `db:"id" json:"id"`
	JobName         string     `db:"job_name" json:"job_name"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	EndTime         null.Time  `db:"end_time" json:"end_time"`
	DurationSeconds null.Float `db:"duration_seconds" json:"duration_seconds"`
	Status          RunStatus  `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Running reports whether the run has not yet reached a terminal status.
func (r *JobRun) Running() bool {
	return !r.EndTime.Valid
}
