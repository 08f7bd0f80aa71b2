package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runtrack/internal/events"
)

func TestTransitionMessageBeginWireFormat(t *testing.T) {
	startTime := time.Date(2025, 5, 1, 1, 0, 0, 0, time.UTC)
	publishedAt := startTime.Add(time.Millisecond)

	data, err := json.Marshal(events.TransitionMessage{
		Event:       "begin",
		JobName:     "data_ingestion",
		StartTime:   &startTime,
		PublisherID: "f2a3b611-9c41-4a08-a4b3-0d2f7c5e8a11",
		PublishedAt: publishedAt,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"event": "begin",
		"job_name": "data_ingestion",
		"start_time": "2025-05-01T01:00:00Z",
		"publisher_id": "f2a3b611-9c41-4a08-a4b3-0d2f7c5e8a11",
		"published_at": "2025-05-01T01:00:00.001Z"
	}`, string(data))
}

func TestTransitionMessageEndWireFormat(t *testing.T) {
	publishedAt := time.Date(2025, 5, 1, 1, 0, 5, 0, time.UTC)

	data, err := json.Marshal(events.TransitionMessage{
		Event:           "end",
		JobName:         "data_ingestion",
		Status:          "failed",
		DurationSeconds: 3.2,
		PublisherID:     "f2a3b611-9c41-4a08-a4b3-0d2f7c5e8a11",
		PublishedAt:     publishedAt,
	})
	require.NoError(t, err)

	// End events carry no start time; subscribers key on the duration.
	assert.NotContains(t, string(data), "start_time")
	assert.JSONEq(t, `{
		"event": "end",
		"job_name": "data_ingestion",
		"status": "failed",
		"duration_seconds": 3.2,
		"publisher_id": "f2a3b611-9c41-4a08-a4b3-0d2f7c5e8a11",
		"published_at": "2025-05-01T01:00:05Z"
	}`, string(data))
}
