package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"reelgen/internal/adapter/repo"
	"reelgen/internal/domain"
	videoprovider "reelgen/internal/providers/video"
)

func waitForStatus(t *testing.T, store *repo.JobRepositoryMemory, id string, want domain.JobStatus) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return nil
}

func TestDispatcherProcessesQueuedTasks(t *testing.T) {
	store := repo.NewJobRepository(repo.MemoryOptions{})
	var calls atomic.Int32
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		calls.Add(1)
		return &videoprovider.Result{VideoURL: "https://cdn.example/" + req.Prompt + ".mp4"}, nil
	})
	d := NewDispatcher(NewProcessor(ProcessorOptions{Repo: store, Generator: gen}), Options{Concurrency: 2, QueueSize: 8})
	d.Start()
	defer d.Stop(context.Background())

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		if err := store.Create(context.Background(), &domain.Job{ID: id, Prompt: id}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := d.Enqueue(Task{JobID: id, Prompt: id, APIKey: "k"}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	for _, id := range ids {
		job := waitForStatus(t, store, id, domain.JobStatusCompleted)
		if job.VideoURL != "https://cdn.example/"+id+".mp4" {
			t.Fatalf("job %s VideoURL = %q", id, job.VideoURL)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("provider calls = %d, want 3", calls.Load())
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	store := repo.NewJobRepository(repo.MemoryOptions{})
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		return &videoprovider.Result{VideoURL: "https://x/y.mp4"}, nil
	})
	d := NewDispatcher(NewProcessor(ProcessorOptions{Repo: store, Generator: gen}), Options{Concurrency: 1, QueueSize: 1})

	if err := d.Enqueue(Task{JobID: "a"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := d.Enqueue(Task{JobID: "b"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Enqueue err = %v, want ErrQueueFull", err)
	}
	if d.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1", d.Depth())
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Enqueue(Task{JobID: "c"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue after Stop err = %v, want ErrStopped", err)
	}
}

func TestDispatcherStopCancelsAfterGrace(t *testing.T) {
	store := repo.NewJobRepository(repo.MemoryOptions{})
	started := make(chan struct{})
	gen := generatorFunc(func(ctx context.Context, req videoprovider.Request) (*videoprovider.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d := NewDispatcher(NewProcessor(ProcessorOptions{Repo: store, Generator: gen}), Options{Concurrency: 1, QueueSize: 1})
	_ = store.Create(context.Background(), &domain.Job{ID: "slow"})
	d.Start()
	if err := d.Enqueue(Task{JobID: "slow", APIKey: "k"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop err = %v, want DeadlineExceeded", err)
	}
	job, err := store.GetByID(context.Background(), "slow")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %q, want failed after cancellation", job.Status)
	}
}
