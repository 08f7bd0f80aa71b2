// Package tracker is the entry point for starting and ending job runs. It
// enforces the run lifecycle invariants before delegating to the store and
// notifies the metrics emitter on every transition.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"runtrack/internal/metrics"
	"runtrack/internal/models"
	"runtrack/internal/store"
)

// Tracker records the lifecycle of job runs. Begin failures propagate, since
// a run that cannot be recorded must not silently appear to have started.
// Everything on the End path is best effort: monitoring failures are logged
// and swallowed so they can never abort the caller's actual work.
type Tracker struct {
	store   *store.Store
	emitter metrics.Emitter

	// now is swappable for tests.
	now func() time.Time
}

var errEmptyJobName = errors.New("job name must not be empty")

func New(st *store.Store, emitter metrics.Emitter) *Tracker {
	if emitter == nil {
		emitter = metrics.Noop{}
	}
	return &Tracker{
		store:   st,
		emitter: emitter,
		now:     time.Now,
	}
}

// Begin records the start of a run of the named job and returns the run id
// assigned by the store. Concurrent Begin calls for the same job name do not
// collide; each produces its own run.
func (t *Tracker) Begin(ctx context.Context, jobName string) (int64, error) {
	if jobName == "" {
		return 0, errEmptyJobName
	}

	startTime := t.now()
	id, err := t.store.Create(ctx, jobName, startTime)
	if err != nil {
		return 0, err
	}

	t.emitter.OnBegin(jobName, startTime)

	log.Info().
		Int64("run_id", id).
		Str("job_name", jobName).
		Msg("Registered start of job run")
	return id, nil
}

// End records the terminal status of a run. The status label is stored
// verbatim; empty defaults to completed. End never returns an error: an
// unknown run id, a double completion, or a store failure is logged and
// swallowed.
func (t *Tracker) End(ctx context.Context, runID int64, status models.RunStatus) {
	if status == "" {
		status = models.RsCompleted
	}

	run, err := t.store.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Error().Int64("run_id", runID).Msg("Job run not found")
		} else {
			log.Error().Err(err).Int64("run_id", runID).Msg("Could not load job run")
		}
		return
	}

	endTime := t.now()
	duration := endTime.Sub(run.StartTime).Seconds()
	if duration < 0 {
		// End-of-run clock behind start-of-run clock. Clamp so the record is
		// not lost; the gap shows up as a zero-duration entry.
		log.Warn().
			Int64("run_id", runID).
			Str("job_name", run.JobName).
			Float64("duration_seconds", duration).
			Msg("Clock skew detected, clamping duration to zero")
		duration = 0
	}

	if err := t.store.Complete(ctx, runID, endTime, duration, status); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyTerminal):
			log.Warn().Int64("run_id", runID).Msg("Job run already terminal, leaving record unchanged")
		case errors.Is(err, store.ErrNotFound):
			log.Error().Int64("run_id", runID).Msg("Job run not found")
		default:
			log.Error().Err(err).Int64("run_id", runID).Msg("Could not record end of job run")
		}
		return
	}

	t.emitter.OnEnd(run.JobName, string(status), duration)

	log.Info().
		Int64("run_id", runID).
		Str("job_name", run.JobName).
		Str("status", string(status)).
		Float64("duration_seconds", duration).
		Msg("Registered end of job run")
}

// Run wraps fn between Begin and End, deriving the terminal status from
// whether fn returned an error. fn's error is returned unchanged; failures
// of the tracking itself do not mask it.
func (t *Tracker) Run(ctx context.Context, jobName string, fn func(ctx context.Context) error) error {
	runID, err := t.Begin(ctx, jobName)
	if err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		t.End(ctx, runID, models.RsFailed)
		return err
	}

	t.End(ctx, runID, models.RsCompleted)
	return nil
}
