// Package export renders completed job runs into a point-in-time snapshot
// suitable for external consumption.
package export

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"runtrack/internal/store"
)

// Record is one completed run in the snapshot. Timestamps are ISO-8601.
type Record struct {
	JobName         string    `json:"job_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	Status          string    `json:"status"`
}

// Exporter reads completed runs from the store. It never writes.
type Exporter struct {
	store *store.Store
}

func New(st *store.Store) *Exporter {
	return &Exporter{store: st}
}

// Export returns the most recent completed runs, newest start time first.
// Runs still in flight are skipped. An empty store yields an empty slice,
// not an error.
func (e *Exporter) Export(ctx context.Context, limit int) ([]Record, error) {
	runs, err := e.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(runs))
	for _, run := range runs {
		if run.Running() || !run.DurationSeconds.Valid {
			continue
		}
		records = append(records, Record{
			JobName:         run.JobName,
			StartTime:       run.StartTime,
			EndTime:         run.EndTime.Time,
			DurationSeconds: run.DurationSeconds.Float64,
			Status:          string(run.Status),
		})
	}
	return records, nil
}

// WriteJSON writes the snapshot to w as a single indented JSON array.
func (e *Exporter) WriteJSON(ctx context.Context, w io.Writer, limit int) error {
	records, err := e.Export(ctx, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
