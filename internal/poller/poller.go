package poller

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 120
)

// Options configures a Poller.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	// OnProgress is called after every observation, including the last one.
	OnProgress func(State)
	Logger     *infra.Logger
}

// Poller submits a job and polls it until the state machine is done.
type Poller struct {
	client      *Client
	interval    time.Duration
	maxAttempts int
	onProgress  func(State)
	logger      *infra.Logger
}

func New(client *Client, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Poller{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		onProgress:  opts.OnProgress,
		logger:      logger,
	}
}

// Run returns the final state. The error is non-nil only when ctx ends the
// loop early; the server-side job keeps running either way.
func (p *Poller) Run(ctx context.Context, photos []domain.Photo, prompt string) (State, error) {
	start := time.Now()
	state := NewState(p.maxAttempts)

	jobID, err := p.client.Submit(ctx, photos, prompt)
	obs := Observation{Kind: ObsSubmitted, JobID: jobID, Elapsed: time.Since(start)}
	if err != nil {
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		obs = Observation{Kind: ObsRejected, Error: submitError(err), Elapsed: time.Since(start)}
	}
	state = p.step(state, obs)
	if state.Done() {
		return state, nil
	}
	p.logger.Info().Str("job_id", state.JobID).Msg("poller: job submitted")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
		state = p.step(state, p.observe(ctx, state.JobID, start))
		if state.Done() {
			return state, nil
		}
	}
}

func (p *Poller) observe(ctx context.Context, jobID string, start time.Time) Observation {
	resp, err := p.client.Status(ctx, jobID)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, ErrJobNotFound):
		return Observation{Kind: ObsNotFound, Elapsed: elapsed}
	case err != nil:
		p.logger.Debug().Err(err).Str("job_id", jobID).Msg("poller: status check failed, retrying")
		return Observation{Kind: ObsTransient, Elapsed: elapsed}
	}
	obs := Observation{Kind: ObsStatus, Status: resp.Status, Elapsed: elapsed}
	if resp.VideoURL != nil {
		obs.VideoURL = *resp.VideoURL
	}
	if resp.Error != nil {
		obs.Error = *resp.Error
	}
	return obs
}

func (p *Poller) step(s State, o Observation) State {
	s = Advance(s, o)
	if p.onProgress != nil {
		p.onProgress(s)
	}
	return s
}

func submitError(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return err.Error()
}
