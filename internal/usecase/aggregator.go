package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/queue"
	"channel-insight/internal/domain/ports/repository"
	"channel-insight/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Aggregator is the single consumer of the results queue. It folds the
// stream of out-of-order, at-least-once per-video events into the job view.
// Exactly one instance runs per deployment; a second one would race on the
// same store.
type Aggregator struct {
	store        repository.JobStore
	consumer     queue.Consumer
	resultsQueue string
	log          *zerolog.Logger
}

func NewAggregator(
	store repository.JobStore,
	consumer queue.Consumer,
	resultsQueue string,
	log *zerolog.Logger,
) *Aggregator {
	return &Aggregator{
		store:        store,
		consumer:     consumer,
		resultsQueue: resultsQueue,
		log:          log,
	}
}

// Run blocks consuming the results queue until ctx is cancelled or the
// broker connection drops.
func (a *Aggregator) Run(ctx context.Context) error {
	a.log.Info().Str("queue", a.resultsQueue).Msg("aggregator started")
	return a.consumer.Consume(ctx, a.resultsQueue, a.Handle)
}

// Handle applies one results-queue event. Events for unknown jobs are
// dropped silently; only undecodable payloads are handed back for the
// bounded-retry path.
func (a *Aggregator) Handle(ctx context.Context, d queue.Delivery) queue.Outcome {
	var env model.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		a.log.Error().Err(err).Int("retries", d.Retries).Msg("undecodable results message")
		return queue.Retry
	}

	switch env.Type {
	case model.MessageTypeStatusUpdate:
		var msg model.StatusUpdate
		if err := json.Unmarshal(d.Body, &msg); err != nil || msg.JobID == "" || msg.VideoID == "" {
			a.log.Error().Err(err).Msg("malformed status update")
			return queue.Retry
		}
		return a.apply(ctx, msg.JobID, func(j *model.Job) {
			j.ApplyStatus(msg.VideoID, "", msg.Status, msg.Timestamp, msg.Error)
		})

	case model.MessageTypeVideoResults:
		var msg model.VideoResult
		if err := json.Unmarshal(d.Body, &msg); err != nil || msg.JobID == "" || msg.VideoID == "" {
			a.log.Error().Err(err).Msg("malformed video result")
			return queue.Retry
		}
		return a.apply(ctx, msg.JobID, func(j *model.Job) {
			j.ApplyResult(msg.VideoID, msg.Timestamp, msg.Results)
		})

	default:
		a.log.Error().Str("type", env.Type).Int("retries", d.Retries).Msg("unknown message type")
		return queue.Retry
	}
}

func (a *Aggregator) apply(ctx context.Context, jobID string, fn func(*model.Job)) queue.Outcome {
	var before, after model.JobStatus
	err := a.store.Update(ctx, jobID, func(j *model.Job) {
		before = j.Status
		fn(j)
		after = j.Status
	})
	if errors.Is(err, domain.ErrJobNotFound) {
		// Late or foreign event; nothing to do, and the loop must not die.
		a.log.Warn().Str("job_id", jobID).Msg("event for unknown job dropped")
		return queue.Ack
	}
	if err != nil {
		a.log.Error().Err(err).Str("job_id", jobID).Msg("store update failed")
		return queue.Retry
	}
	if before != after && after.Finished() {
		metrics.IncJobFinished(string(after))
		a.log.Info().Str("job_id", jobID).Str("status", string(after)).Msg("job finished")
	}
	return queue.Ack
}
