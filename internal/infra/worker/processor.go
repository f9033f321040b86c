package worker

import (
	"context"
	"encoding/json"
	"time"

	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/adapter"
	"channel-insight/internal/domain/ports/queue"
	"channel-insight/internal/infra/logging"
	"channel-insight/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Processor pulls work items one at a time, runs the analyzer and reports
// per-video outcomes on the results queue. A processing failure is swallowed
// into a failed status event and the work message is still acknowledged, so
// poisoned content never causes redelivery; only undeliverable events or
// undecodable payloads go back to the broker.
type Processor struct {
	workQueue    string
	resultsQueue string
	consumer     queue.Consumer
	publisher    queue.Publisher
	analyzer     adapter.Analyzer
	log          *zerolog.Logger
}

func NewProcessor(
	workQueue, resultsQueue string,
	consumer queue.Consumer,
	publisher queue.Publisher,
	analyzer adapter.Analyzer,
	log *zerolog.Logger,
) *Processor {
	return &Processor{
		workQueue:    workQueue,
		resultsQueue: resultsQueue,
		consumer:     consumer,
		publisher:    publisher,
		analyzer:     analyzer,
		log:          log,
	}
}

// Run blocks consuming the work queue until ctx is cancelled or the broker
// connection drops.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info().Str("queue", p.workQueue).Msg("worker started")
	return p.consumer.Consume(ctx, p.workQueue, p.Handle)
}

// Handle processes one work message and reports its fate.
func (p *Processor) Handle(ctx context.Context, d queue.Delivery) (outcome queue.Outcome) {
	var item model.WorkItem
	if err := json.Unmarshal(d.Body, &item); err != nil || item.JobID == "" || item.Video.ID == "" {
		p.log.Error().Err(err).Int("retries", d.Retries).Msg("undecodable work message")
		return queue.Retry
	}

	// A panic anywhere below is an item-level failure: report it and ack,
	// never kill the consume loop.
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Str("video_id", item.Video.ID).Msg("processing panicked")
			_ = p.publishStatus(ctx, item, model.VideoStatusFailed, "internal processing error")
			metrics.IncVideoProcessed(string(model.VideoStatusFailed))
			outcome = queue.Ack
		}
	}()

	ctx = logging.WithJobID(ctx, item.JobID)
	ctx = logging.WithVideoID(ctx, item.Video.ID)
	log := logging.With(ctx, p.log)
	log.Info().Msg("processing video")
	start := time.Now()

	if err := p.publishStatus(ctx, item, model.VideoStatusProcessing, ""); err != nil {
		// Without a reachable results queue nothing we do is observable;
		// leave the work item for a healthier consumer.
		log.Error().Err(err).Msg("cannot publish processing status")
		return queue.Retry
	}

	results, err := p.analyzer.Analyze(ctx, item.Video)
	if err != nil {
		// Only cancellation reaches here; the item was not finished.
		log.Warn().Err(err).Msg("analysis interrupted")
		return queue.Retry
	}

	msg := model.NewVideoResult(item.JobID, item.ChannelID, item.Video.ID, results)
	body, _ := json.Marshal(msg)
	if err := p.publisher.Publish(ctx, p.resultsQueue, body); err != nil {
		log.Error().Err(err).Msg("publishing results failed")
		if perr := p.publishStatus(ctx, item, model.VideoStatusFailed, "could not deliver analysis results"); perr != nil {
			return queue.Retry
		}
		metrics.IncVideoProcessed(string(model.VideoStatusFailed))
		return queue.Ack
	}

	metrics.IncVideoProcessed(string(model.VideoStatusCompleted))
	log.Info().Dur("duration", time.Since(start)).Msg("video processed")
	return queue.Ack
}

func (p *Processor) publishStatus(ctx context.Context, item model.WorkItem, status model.VideoStatus, errMsg string) error {
	msg := model.NewStatusUpdate(item.JobID, item.ChannelID, item.Video.ID, status, errMsg)
	body, _ := json.Marshal(msg)
	return p.publisher.Publish(ctx, p.resultsQueue, body)
}
