package repository

import (
	"context"

	"channel-insight/internal/domain/model"
)

// JobStore keys job state by job id. All mutation after creation goes
// through Update so the enqueue loop and the aggregator never lose each
// other's writes; HTTP readers call Find concurrently and must never observe
// a half-applied mutation.
type JobStore interface {
	// Create stores a new job. Returns domain.ErrAlreadyExists if the id
	// is already present.
	Create(ctx context.Context, job *model.Job) error
	// Find returns a copy of the job or domain.ErrJobNotFound.
	Find(ctx context.Context, id string) (*model.Job, error)
	// Update applies fn to the stored job atomically with respect to other
	// Update calls. Returns domain.ErrJobNotFound for unknown ids.
	Update(ctx context.Context, id string, fn func(*model.Job)) error
}
