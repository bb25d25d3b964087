package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reelgen/internal/adapter/repo"
	"reelgen/internal/domain"
	videoprovider "reelgen/internal/providers/video"
)

type generatorFunc func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error)

func (f generatorFunc) Generate(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
	return f(ctx, req)
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (n *recordingNotifier) JobUpdated(job *domain.Job) {
	n.mu.Lock()
	n.jobs = append(n.jobs, job)
	n.mu.Unlock()
}

func (n *recordingNotifier) snapshot() []*domain.Job {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*domain.Job(nil), n.jobs...)
}

func newProcessorFixture(t *testing.T, gen videoprovider.Generator) (*Processor, *repo.JobRepositoryMemory, *recordingNotifier) {
	t.Helper()
	store := repo.NewJobRepository(repo.MemoryOptions{})
	notifier := &recordingNotifier{}
	proc := NewProcessor(ProcessorOptions{Repo: store, Generator: gen, Notifier: notifier})
	if err := store.Create(context.Background(), &domain.Job{ID: "job_1", Prompt: "p", PhotoCount: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return proc, store, notifier
}

func TestProcessCompleted(t *testing.T) {
	var got videoprovider.Request
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		got = req
		return &videoprovider.Result{VideoURL: "https://cdn.example/v.mp4", Model: "m1"}, nil
	})
	proc, store, notifier := newProcessorFixture(t, gen)

	proc.Process(context.Background(), Task{
		JobID:  "job_1",
		Prompt: "p",
		Photos: []domain.Photo{{Name: "a.png", Data: "data:image/png;base64,AAAA"}},
		APIKey: "k",
	})

	if got.APIKey != "k" || len(got.Images) != 1 || got.Images[0] != "data:image/png;base64,AAAA" {
		t.Fatalf("unexpected provider request: %+v", got)
	}
	job, err := store.GetByID(context.Background(), "job_1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Status != domain.JobStatusCompleted || job.VideoURL != "https://cdn.example/v.mp4" || job.Error != "" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.CompletedAt.IsZero() || job.Model != "m1" {
		t.Fatalf("terminal fields missing: %+v", job)
	}
	if n := notifier.snapshot(); len(n) != 1 || n[0].Status != domain.JobStatusCompleted {
		t.Fatalf("notifier saw %+v", n)
	}
}

func TestProcessProviderStatusError(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		return nil, &videoprovider.StatusError{Code: 502, StatusText: "Bad Gateway", Body: "upstream down"}
	})
	proc, store, _ := newProcessorFixture(t, gen)

	proc.Process(context.Background(), Task{JobID: "job_1", Prompt: "p", APIKey: "k"})

	job, _ := store.GetByID(context.Background(), "job_1")
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
	if job.Error != "API request failed: Bad Gateway" || job.Details != "upstream down" {
		t.Fatalf("unexpected failure fields: %+v", job)
	}
	if job.VideoURL != "" {
		t.Fatalf("failed job carries videoUrl %q", job.VideoURL)
	}
}

func TestProcessNoVideoInPayload(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		return nil, &videoprovider.AllModelsFailedError{
			Tried: []string{"m1", "m2"},
			Last:  &videoprovider.NoResultError{Raw: `{"choices":[]}`},
		}
	})
	proc, store, _ := newProcessorFixture(t, gen)

	proc.Process(context.Background(), Task{JobID: "job_1", Prompt: "p", APIKey: "k"})

	job, _ := store.GetByID(context.Background(), "job_1")
	if job.Error != "No video URL found in response" {
		t.Fatalf("Error = %q", job.Error)
	}
	if job.Details != `{"choices":[]}` || job.Model != "m2" {
		t.Fatalf("unexpected failure fields: %+v", job)
	}
}

func TestProcessRecoversPanic(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		panic("nil map")
	})
	proc, store, _ := newProcessorFixture(t, gen)

	proc.Process(context.Background(), Task{JobID: "job_1", Prompt: "p", APIKey: "k"})

	job, _ := store.GetByID(context.Background(), "job_1")
	if job.Status != domain.JobStatusFailed || job.Error != "internal error: nil map" {
		t.Fatalf("unexpected job after panic: %+v", job)
	}
}

func TestProcessTransportError(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		return nil, errors.New("dial tcp: connection refused")
	})
	proc, store, _ := newProcessorFixture(t, gen)

	proc.Process(context.Background(), Task{JobID: "job_1", Prompt: "p", APIKey: "k"})

	job, _ := store.GetByID(context.Background(), "job_1")
	if job.Status != domain.JobStatusFailed || job.Error != "dial tcp: connection refused" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestProcessWritesAfterCancel(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	proc, store, _ := newProcessorFixture(t, gen)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	proc.Process(ctx, Task{JobID: "job_1", Prompt: "p", APIKey: "k"})

	job, _ := store.GetByID(context.Background(), "job_1")
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
}

func TestProcessLogLevelByFailureKind(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		level string
	}{
		{"provider rejection", &videoprovider.StatusError{Code: 429, StatusText: "Too Many Requests"}, `"level":"warn"`},
		{"wrapped no result", &videoprovider.AllModelsFailedError{Tried: []string{"m1"}, Last: &videoprovider.NoResultError{}}, `"level":"warn"`},
		{"transport", errors.New("dial tcp: connection refused"), `"level":"error"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)
			store := repo.NewJobRepository(repo.MemoryOptions{})
			if err := store.Create(context.Background(), &domain.Job{ID: "job_1", Prompt: "p", PhotoCount: 1}); err != nil {
				t.Fatalf("Create: %v", err)
			}
			gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
				return nil, tc.err
			})
			proc := NewProcessor(ProcessorOptions{Repo: store, Generator: gen, Logger: &logger})

			proc.Process(context.Background(), Task{JobID: "job_1", Prompt: "p", APIKey: "k"})

			for _, line := range strings.Split(buf.String(), "\n") {
				if strings.Contains(line, "worker: generation failed") {
					if !strings.Contains(line, tc.level) {
						t.Fatalf("log line %s, want %s", line, tc.level)
					}
					return
				}
			}
			t.Fatalf("no failure log in %q", buf.String())
		})
	}
}
