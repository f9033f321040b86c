package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/adapter"
	"channel-insight/internal/domain/ports/queue"
	"channel-insight/internal/domain/ports/repository"
	"channel-insight/internal/infra/logging"
	"channel-insight/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// AnalysisUseCase is the producer side: it admits submissions, runs the
// enqueue pipeline and serves job reads.
type AnalysisUseCase interface {
	// Submit lists the channel, creates the job and returns its handle
	// immediately; enqueueing continues in the background.
	Submit(ctx context.Context, channelID string) (*model.Job, error)
	// Job returns the current job view or domain.ErrJobNotFound.
	Job(ctx context.Context, jobID string) (*model.Job, error)
}

type analysisUC struct {
	store     repository.JobStore
	source    adapter.VideoSource
	publisher queue.Publisher
	workQueue string
	log       *zerolog.Logger
	entropy   *ulid.MonotonicEntropy
}

func NewAnalysisUseCase(
	store repository.JobStore,
	source adapter.VideoSource,
	publisher queue.Publisher,
	workQueue string,
	log *zerolog.Logger,
) AnalysisUseCase {
	return &analysisUC{
		store:     store,
		source:    source,
		publisher: publisher,
		workQueue: workQueue,
		log:       log,
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (u *analysisUC) newJobID() string {
	// ULIDs sort by creation time, which keeps job ids creation-ordered.
	return ulid.MustNew(ulid.Timestamp(time.Now()), u.entropy).String()
}

func (u *analysisUC) Submit(ctx context.Context, channelID string) (*model.Job, error) {
	if channelID == "" {
		return nil, domain.ErrInvalidArgument
	}

	videos, err := u.source.List(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, domain.ErrChannelNotFound
	}

	job := model.NewJob(u.newJobID(), channelID, len(videos), time.Now().UTC())
	if err := u.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.IncJobSubmitted()
	u.log.Info().Str("job_id", job.ID).Str("channel_id", channelID).
		Int("videos", len(videos)).Msg("job admitted")

	// The HTTP response does not wait for enqueueing; once the handle is
	// returned, failures are only observable through job state.
	go u.enqueue(context.Background(), job.ID, channelID, videos)

	return job.Clone(), nil
}

// enqueue is the sequential per-video pipeline: fetch detail, publish one
// work message, mark the video queued. Sequential on purpose, so the detail
// API is never hammered; a single video's failure never aborts the rest.
func (u *analysisUC) enqueue(ctx context.Context, jobID, channelID string, videos []model.Video) {
	ctx = logging.WithJobID(ctx, jobID)
	ctx = logging.WithChannelID(ctx, channelID)
	log := logging.With(ctx, u.log)

	for _, v := range videos {
		now := time.Now().UTC()

		detail, err := u.source.FetchDetail(ctx, v)
		if err != nil {
			log.Warn().Err(err).Str("video_id", v.ID).Msg("detail fetch failed, video marked failed")
			u.markVideo(ctx, jobID, v, model.VideoStatusFailed, "could not fetch video detail")
			continue
		}

		item := model.WorkItem{
			JobID:     jobID,
			ChannelID: channelID,
			Video:     detail,
			Timestamp: now,
		}
		body, _ := json.Marshal(item)
		if err := u.publisher.Publish(ctx, u.workQueue, body); err != nil {
			log.Warn().Err(err).Str("video_id", v.ID).Msg("work publish failed, video marked failed")
			u.markVideo(ctx, jobID, v, model.VideoStatusFailed, "could not enqueue video")
			continue
		}

		u.markVideo(ctx, jobID, v, model.VideoStatusQueued, "")
	}

	if err := u.store.Update(ctx, jobID, func(j *model.Job) {
		j.EnqueueDone = true
		j.Recompute(time.Now().UTC())
	}); err != nil {
		log.Error().Err(err).Msg("could not finalize enqueue state")
		return
	}
	log.Info().Int("videos", len(videos)).Msg("enqueue loop finished")
}

func (u *analysisUC) markVideo(ctx context.Context, jobID string, v model.Video, status model.VideoStatus, errMsg string) {
	err := u.store.Update(ctx, jobID, func(j *model.Job) {
		j.ApplyStatus(v.ID, v.Title, status, time.Now().UTC(), errMsg)
	})
	if err != nil {
		u.log.Error().Err(err).Str("job_id", jobID).Str("video_id", v.ID).Msg("store update failed")
	}
}

func (u *analysisUC) Job(ctx context.Context, jobID string) (*model.Job, error) {
	if jobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.store.Find(ctx, jobID)
}
