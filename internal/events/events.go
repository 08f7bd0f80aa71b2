// Package events mirrors lifecycle transitions onto a Redis channel so that
// alternate metrics backends can subscribe without touching the run store.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"runtrack/internal/metrics"
)

var _ metrics.Emitter = (*Publisher)(nil)

// TransitionMessage is the wire format published on each begin and end.
// StartTime is set on "begin" events only; Status and DurationSeconds on
// "end" events only.
type TransitionMessage struct {
	Event           string     `json:"event"` // "begin" or "end"
	JobName         string     `json:"job_name"`
	Status          string     `json:"status,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	PublisherID     string     `json:"publisher_id"`
	PublishedAt     time.Time  `json:"published_at"`
}

// Publisher implements metrics.Emitter over a Redis pub/sub channel. Like
// every emitter, it is advisory: publish failures are logged, never raised.
type Publisher struct {
	client  *redis.Client
	channel string

	// ID identifies this process instance in published messages.
	ID string
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(addr, password string, db int, channel string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &Publisher{
		client:  client,
		channel: channel,
		ID:      uuid.New().String(),
	}, nil
}

func (p *Publisher) OnBegin(jobName string, startTime time.Time) {
	p.publish(TransitionMessage{
		Event:     "begin",
		JobName:   jobName,
		StartTime: &startTime,
	})
}

func (p *Publisher) OnEnd(jobName, status string, durationSeconds float64) {
	p.publish(TransitionMessage{
		Event:           "end",
		JobName:         jobName,
		Status:          status,
		DurationSeconds: durationSeconds,
	})
}

func (p *Publisher) publish(message TransitionMessage) {
	message.PublisherID = p.ID
	message.PublishedAt = time.Now().UTC()

	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("job_name", message.JobName).Msg("Could not marshal transition message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		log.Error().
			Err(err).
			Str("job_name", message.JobName).
			Str("event", message.Event).
			Msg("Could not publish transition message")
	}
}

// Close terminates the Redis connection
func (p *Publisher) Close() error {
	return p.client.Close()
}
