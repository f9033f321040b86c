package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"channel-insight/internal/domain"
	"channel-insight/internal/domain/model"
	"channel-insight/internal/domain/ports/repository"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.JobStore = (*jobStore)(nil)

// jobStore persists jobs in a single table with the per-video map as JSONB.
// Mutations go through Update, which locks the row so the enqueue loop and
// the aggregator cannot lose each other's writes.
type jobStore struct {
	pool *pgxpool.Pool
}

func NewPgxPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func NewJobStore(pool *pgxpool.Pool) *jobStore {
	return &jobStore{pool: pool}
}

// Schema applies the jobs table; callers run it once at startup.
func (s *jobStore) Schema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
  id           TEXT PRIMARY KEY,
  channel_id   TEXT NOT NULL,
  submitted_at TIMESTAMPTZ NOT NULL,
  total_videos INT NOT NULL,
  status       TEXT NOT NULL,
  last_updated TIMESTAMPTZ NOT NULL,
  enqueue_done BOOLEAN NOT NULL DEFAULT FALSE,
  videos       JSONB NOT NULL DEFAULT '{}'::jsonb
);`
	_, err := s.pool.Exec(ctx, q)
	return err
}

func (s *jobStore) Create(ctx context.Context, job *model.Job) error {
	videos, err := json.Marshal(job.Videos)
	if err != nil {
		return fmt.Errorf("encode videos: %w", err)
	}

	const q = `
INSERT INTO analysis_jobs (id, channel_id, submitted_at, total_videos, status, last_updated, enqueue_done, videos)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err = s.pool.Exec(ctx, q,
		job.ID, job.ChannelID, job.SubmittedAt, job.TotalVideos,
		string(job.Status), job.LastUpdated, job.EnqueueDone, videos)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

const selectJob = `
SELECT id, channel_id, submitted_at, total_videos, status, last_updated, enqueue_done, videos
FROM analysis_jobs WHERE id = $1`

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job       model.Job
		statusStr string
		videosRaw []byte
	)
	err := row.Scan(
		&job.ID, &job.ChannelID, &job.SubmittedAt, &job.TotalVideos,
		&statusStr, &job.LastUpdated, &job.EnqueueDone, &videosRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(statusStr)
	job.Videos = make(map[string]model.VideoState)
	if len(videosRaw) > 0 {
		if err := json.Unmarshal(videosRaw, &job.Videos); err != nil {
			return nil, fmt.Errorf("decode videos: %w", err)
		}
	}
	return &job, nil
}

func (s *jobStore) Find(ctx context.Context, id string) (*model.Job, error) {
	return scanJob(s.pool.QueryRow(ctx, selectJob+";", id))
}

// Update locks the row for the duration of the mutation so the enqueue loop
// and the aggregator cannot lose each other's writes.
func (s *jobStore) Update(ctx context.Context, id string, fn func(*model.Job)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	job, err := scanJob(tx.QueryRow(ctx, selectJob+" FOR UPDATE;", id))
	if err != nil {
		return err
	}
	fn(job)

	videos, err := json.Marshal(job.Videos)
	if err != nil {
		return fmt.Errorf("encode videos: %w", err)
	}
	const q = `
UPDATE analysis_jobs
SET status = $2, last_updated = $3, enqueue_done = $4, videos = $5
WHERE id = $1;`
	if _, err := tx.Exec(ctx, q, id, string(job.Status), job.LastUpdated, job.EnqueueDone, videos); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
