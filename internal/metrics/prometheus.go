package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromEmitter exposes run transitions as Prometheus collectors: the start
// time of the latest run per job, the duration of the latest finished run
// per (job, status), and a monotonic count of finished runs per (job,
// status).
type PromEmitter struct {
	startTime *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	count     *prometheus.CounterVec
}

// NewPromEmitter builds the collectors and registers them with reg. It is
// meant to be constructed once at process start; registering the same
// emitter twice on one registry panics, by prometheus convention.
func NewPromEmitter(reg prometheus.Registerer) *PromEmitter {
	e := &PromEmitter{
		startTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "batch_job_start_time",
				Help: "Start time of batch job as unix timestamp",
			},
			[]string{"job_name"},
		),
		duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "batch_job_duration_seconds",
				Help: "Duration of batch job",
			},
			[]string{"job_name", "status"},
		),
		count: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_job_count_total",
				Help: "Total count of batch jobs",
			},
			[]string{"job_name", "status"},
		),
	}

	reg.MustRegister(e.startTime, e.duration, e.count)
	return e
}

func (e *PromEmitter) OnBegin(jobName string, startTime time.Time) {
	e.startTime.WithLabelValues(jobName).Set(float64(startTime.Unix()))
}

func (e *PromEmitter) OnEnd(jobName, status string, durationSeconds float64) {
	e.duration.WithLabelValues(jobName, status).Set(durationSeconds)
	e.count.WithLabelValues(jobName, status).Inc()
}
