package repo

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
)

// DefaultRetention bounds how long a job stays visible after creation.
const DefaultRetention = time.Hour

// JobRepositoryMemory implements domain.JobRepository with an in-process map.
// Records become invisible once they are older than the retention window,
// measured from CreatedAt, and are physically removed by Run.
type JobRepositoryMemory struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	retention time.Duration
	now       func() time.Time
	logger    *infra.Logger
}

// MemoryOptions configures JobRepositoryMemory.
type MemoryOptions struct {
	Retention time.Duration
	Now       func() time.Time
	Logger    *infra.Logger
}

// NewJobRepository creates an empty in-memory job repository.
func NewJobRepository(opts MemoryOptions) *JobRepositoryMemory {
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &JobRepositoryMemory{
		jobs:      make(map[string]*domain.Job),
		retention: retention,
		now:       now,
		logger:    logger,
	}
}

// Create inserts a new job record with status processing. An id that is
// already present is rejected with domain.ErrDuplicateJob; it is never overwritten.
func (r *JobRepositoryMemory) Create(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := job.Clone()
	rec.Status = domain.JobStatusProcessing
	rec.VideoURL = ""
	rec.Error = ""
	rec.Details = ""
	rec.CompletedAt = time.Time{}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.jobs[rec.ID]; ok && !r.expired(existing) {
		return domain.ErrDuplicateJob
	}
	r.jobs[rec.ID] = rec
	job.Status = rec.Status
	job.CreatedAt = rec.CreatedAt
	return nil
}

// UpdateStatus merges upd into the stored job. Missing or expired ids are a
// silent no-op. Once a job is terminal any further status change is refused
// with domain.ErrJobTerminal.
func (r *JobRepositoryMemory) UpdateStatus(ctx context.Context, jobID string, upd domain.JobUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || r.expired(job) {
		r.logger.Debug().Str("job_id", jobID).Msg("jobstore: update for unknown or expired job dropped")
		return nil
	}
	if job.Status.IsTerminal() {
		return domain.ErrJobTerminal
	}
	if upd.Status != "" {
		job.Status = upd.Status
	}
	if upd.VideoURL != "" {
		job.VideoURL = upd.VideoURL
	}
	if upd.Error != "" {
		job.Error = upd.Error
	}
	if upd.Details != "" {
		job.Details = upd.Details
	}
	if upd.Model != "" {
		job.Model = upd.Model
	}
	if job.Status.IsTerminal() && job.CompletedAt.IsZero() {
		job.CompletedAt = upd.CompletedAt
		if job.CompletedAt.IsZero() {
			job.CompletedAt = r.now()
		}
	}
	return nil
}

// GetByID returns a copy of the job or domain.ErrNotFound.
func (r *JobRepositoryMemory) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok || r.expired(job) {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

// Len returns the number of live jobs.
func (r *JobRepositoryMemory) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, job := range r.jobs {
		if !r.expired(job) {
			n++
		}
	}
	return n
}

// Sweep deletes every record past the retention window and returns how many were removed.
func (r *JobRepositoryMemory) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, job := range r.jobs {
		if r.expired(job) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired records every interval until ctx is done.
func (r *JobRepositoryMemory) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info().Int("removed", n).Msg("jobstore: expired jobs swept")
			}
		}
	}
}

// expired must be called with r.mu held.
func (r *JobRepositoryMemory) expired(job *domain.Job) bool {
	return !r.now().Before(job.CreatedAt.Add(r.retention))
}

var _ domain.JobRepository = (*JobRepositoryMemory)(nil)
