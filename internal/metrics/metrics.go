// Package metrics maintains label-keyed aggregates of job run transitions.
// Emitters are advisory: no call in this package may fail the caller, since
// a monitoring defect must never block job-completion signaling.
package metrics

import "time"

// Emitter observes job run lifecycle transitions.
type Emitter interface {
	// OnBegin is called once per run, when the run is recorded as started.
	OnBegin(jobName string, startTime time.Time)

	// OnEnd is called once per run, with the final status and duration.
	OnEnd(jobName, status string, durationSeconds float64)
}

// Noop discards all transitions.
type Noop struct{}

func (Noop) OnBegin(string, time.Time)     {}
func (Noop) OnEnd(string, string, float64) {}

// Multi fans transitions out to every wrapped emitter in order.
type Multi []Emitter

func (m Multi) OnBegin(jobName string, startTime time.Time) {
	for _, e := range m {
		e.OnBegin(jobName, startTime)
	}
}

func (m Multi) OnEnd(jobName, status string, durationSeconds float64) {
	for _, e := range m {
		e.OnEnd(jobName, status, durationSeconds)
	}
}
