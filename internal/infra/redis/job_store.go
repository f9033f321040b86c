package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"channel-insight/internal/config"
	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.JobStore = (*JobStore)(nil)

// JobStore keeps each job as one JSON blob under jobs:{id}. An optional TTL
// gives durable-ish retention without the unbounded growth of the in-memory
// backend.
type JobStore struct {
	cli *redis.Client
	ttl time.Duration
	mu  sync.Mutex
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

func NewJobStore(cli *redis.Client, ttl time.Duration) *JobStore {
	return &JobStore{cli: cli, ttl: ttl}
}

func key(id string) string { return "jobs:" + id }

// storedJob flattens model.Job for JSON storage; the in-memory pointer
// semantics do not matter here because every read decodes a fresh value.
type storedJob struct {
	ID          string                      `json:"id"`
	ChannelID   string                      `json:"channelId"`
	SubmittedAt time.Time                   `json:"submittedAt"`
	TotalVideos int                         `json:"totalVideos"`
	Status      model.JobStatus             `json:"status"`
	LastUpdated time.Time                   `json:"lastUpdated"`
	EnqueueDone bool                        `json:"enqueueDone"`
	Videos      map[string]model.VideoState `json:"videos"`
}

func toStored(j *model.Job) storedJob {
	return storedJob{
		ID:          j.ID,
		ChannelID:   j.ChannelID,
		SubmittedAt: j.SubmittedAt,
		TotalVideos: j.TotalVideos,
		Status:      j.Status,
		LastUpdated: j.LastUpdated,
		EnqueueDone: j.EnqueueDone,
		Videos:      j.Videos,
	}
}

func fromStored(s storedJob) *model.Job {
	videos := s.Videos
	if videos == nil {
		videos = make(map[string]model.VideoState)
	}
	return &model.Job{
		ID:          s.ID,
		ChannelID:   s.ChannelID,
		SubmittedAt: s.SubmittedAt,
		TotalVideos: s.TotalVideos,
		Status:      s.Status,
		LastUpdated: s.LastUpdated,
		EnqueueDone: s.EnqueueDone,
		Videos:      videos,
	}
}

func (s *JobStore) Create(ctx context.Context, job *model.Job) error {
	b, err := json.Marshal(toStored(job))
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	ok, err := s.cli.SetNX(ctx, key(job.ID), b, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (s *JobStore) Find(ctx context.Context, id string) (*model.Job, error) {
	b, err := s.cli.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var stored storedJob
	if err := json.Unmarshal(b, &stored); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return fromStored(stored), nil
}

// Update is read-modify-write. Both writers (enqueue loop and aggregator)
// live in the one producer process, so a local mutex is enough to keep their
// updates from interleaving.
func (s *JobStore) Update(ctx context.Context, id string, fn func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	fn(job)
	b, err := json.Marshal(toStored(job))
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := s.cli.Set(ctx, key(id), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
