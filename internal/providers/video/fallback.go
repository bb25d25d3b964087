package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"reelgen/internal/infra"
)

// AllModelsFailedError reports that every model in the fallback list failed.
// It unwraps to the last attempt's error.
type AllModelsFailedError struct {
	Tried []string
	Last  error
}

func (e *AllModelsFailedError) Error() string {
	return fmt.Sprintf("all video generation models failed (%s): %v", strings.Join(e.Tried, ", "), e.Last)
}

func (e *AllModelsFailedError) Unwrap() error {
	return e.Last
}

// Fallback tries each model in order until one yields a video.
type Fallback struct {
	next   Generator
	models []string
	logger *infra.Logger
}

// NewFallback wraps next. An empty model list falls back to DefaultModel.
func NewFallback(next Generator, models []string, logger *infra.Logger) *Fallback {
	cleaned := make([]string, 0, len(models))
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			cleaned = append(cleaned, m)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{DefaultModel}
	}
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Fallback{next: next, models: cleaned, logger: logger}
}

// Models returns the configured order.
func (f *Fallback) Models() []string {
	return append([]string(nil), f.models...)
}

// Generate ignores req.Model and walks the fallback list. A missing API key or
// a cancelled context stops the walk immediately.
func (f *Fallback) Generate(ctx context.Context, req Request) (*Result, error) {
	tried := make([]string, 0, len(f.models))
	var last error
	for _, model := range f.models {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = err
			}
			break
		}
		attempt := req
		attempt.Model = model
		tried = append(tried, model)

		res, err := f.next.Generate(ctx, attempt)
		if err == nil {
			return res, nil
		}
		last = err
		if errors.Is(err, ErrMissingAPIKey) {
			break
		}
		f.logger.Warn().Err(err).Str("model", model).Msg("video model attempt failed")
	}
	return nil, &AllModelsFailedError{Tried: tried, Last: last}
}

var _ Generator = (*Fallback)(nil)
