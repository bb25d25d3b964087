package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
	videoprovider "reelgen/internal/providers/video"
)

// Task is everything a worker needs to finish one job without touching the
// request that created it.
type Task struct {
	JobID  string
	Prompt string
	Photos []domain.Photo
	APIKey string
}

// Notifier receives a snapshot of every job that reached a terminal state.
type Notifier interface {
	JobUpdated(job *domain.Job)
}

// Processor turns a Task into exactly one terminal write on the job store.
type Processor struct {
	repo     domain.JobRepository
	gen      videoprovider.Generator
	notifier Notifier
	logger   *infra.Logger
	now      func() time.Time
}

// ProcessorOptions configures a Processor. Notifier, Logger and Now are optional.
type ProcessorOptions struct {
	Repo      domain.JobRepository
	Generator videoprovider.Generator
	Notifier  Notifier
	Logger    *infra.Logger
	Now       func() time.Time
}

func NewProcessor(opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		repo:     opts.Repo,
		gen:      opts.Generator,
		notifier: opts.Notifier,
		logger:   logger,
		now:      now,
	}
}

// Process calls the provider and records the outcome. It never returns an
// error: every failure, including a panic, ends as a failed job.
func (p *Processor) Process(ctx context.Context, t Task) {
	log := p.logger.With().Str("job_id", t.JobID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("worker: generation panicked")
			p.finish(ctx, t.JobID, domain.Failed(fmt.Sprintf("internal error: %v", r), "", "", p.now()))
		}
	}()

	images := make([]string, 0, len(t.Photos))
	for _, ph := range t.Photos {
		images = append(images, ph.Data)
	}

	start := p.now()
	log.Info().Int("photos", len(images)).Msg("worker: generation started")
	res, err := p.gen.Generate(ctx, videoprovider.Request{
		APIKey: t.APIKey,
		Prompt: t.Prompt,
		Images: images,
	})
	if err != nil {
		upd := FailureUpdate(err, p.now())
		// Provider rejections are routine; anything else points at us or the network.
		ev := log.Error()
		if errors.Is(err, domain.ErrProviderFailure) {
			ev = log.Warn()
		}
		ev.Err(err).Str("model", upd.Model).Dur("elapsed", p.now().Sub(start)).Msg("worker: generation failed")
		p.finish(ctx, t.JobID, upd)
		return
	}
	log.Info().Str("model", res.Model).Dur("elapsed", p.now().Sub(start)).Msg("worker: generation completed")
	p.finish(ctx, t.JobID, domain.Completed(res.VideoURL, res.Model, p.now()))
}

// finish writes the terminal update even when ctx has been cancelled.
func (p *Processor) finish(ctx context.Context, jobID string, upd domain.JobUpdate) {
	ctx = context.WithoutCancel(ctx)
	if err := p.repo.UpdateStatus(ctx, jobID, upd); err != nil {
		if errors.Is(err, domain.ErrJobTerminal) {
			p.logger.Warn().Str("job_id", jobID).Msg("worker: job already terminal, update dropped")
			return
		}
		p.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: update status failed")
		return
	}
	if p.notifier == nil {
		return
	}
	job, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		return
	}
	p.notifier.JobUpdated(job)
}

// FailureUpdate maps a generation error to the failed-job fields clients see.
func FailureUpdate(err error, at time.Time) domain.JobUpdate {
	var (
		statusErr *videoprovider.StatusError
		noResult  *videoprovider.NoResultError
		allFailed *videoprovider.AllModelsFailedError
		model     string
	)
	if errors.As(err, &allFailed) && len(allFailed.Tried) > 0 {
		model = allFailed.Tried[len(allFailed.Tried)-1]
	}
	switch {
	case errors.As(err, &statusErr):
		return domain.Failed(statusErr.Error(), statusErr.Body, model, at)
	case errors.As(err, &noResult):
		return domain.Failed(noResult.Error(), noResult.Raw, model, at)
	case allFailed != nil && allFailed.Last != nil:
		return domain.Failed(allFailed.Last.Error(), "", model, at)
	default:
		return domain.Failed(err.Error(), "", model, at)
	}
}
