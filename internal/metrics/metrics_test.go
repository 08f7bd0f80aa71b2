package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPromEmitterOnBegin(t *testing.T) {
	e := NewPromEmitter(prometheus.NewRegistry())

	startTime := time.Date(2025, 5, 1, 1, 0, 0, 0, time.UTC)
	e.OnBegin("data_ingestion", startTime)

	got := testutil.ToFloat64(e.startTime.WithLabelValues("data_ingestion"))
	assert.Equal(t, float64(startTime.Unix()), got)
}

func TestPromEmitterOnEnd(t *testing.T) {
	e := NewPromEmitter(prometheus.NewRegistry())

	e.OnEnd("x", "failed", 3.2)

	assert.Equal(t, 3.2, testutil.ToFloat64(e.duration.WithLabelValues("x", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.count.WithLabelValues("x", "failed")))

	// The count is monotonic per (job, status); the duration gauge tracks
	// the latest run only.
	e.OnEnd("x", "failed", 1.5)
	assert.Equal(t, 1.5, testutil.ToFloat64(e.duration.WithLabelValues("x", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.count.WithLabelValues("x", "failed")))

	// Other label pairs are untouched.
	assert.Equal(t, 0.0, testutil.ToFloat64(e.count.WithLabelValues("x", "completed")))
}

func TestMultiFansOut(t *testing.T) {
	a := NewPromEmitter(prometheus.NewRegistry())
	b := NewPromEmitter(prometheus.NewRegistry())

	m := Multi{a, b, Noop{}}
	m.OnEnd("x", "completed", 2.0)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.count.WithLabelValues("x", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.count.WithLabelValues("x", "completed")))
}
