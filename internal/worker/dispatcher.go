package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reelgen/internal/infra"
)

var (
	// ErrQueueFull is returned by Enqueue when no slot is free.
	ErrQueueFull = errors.New("worker: queue full")
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("worker: dispatcher stopped")
)

// Options configures a Dispatcher.
type Options struct {
	Concurrency int
	QueueSize   int
	// ShutdownGrace bounds how long Run waits for in-flight tasks once its
	// context is done. In-flight provider calls are cancelled after that.
	ShutdownGrace time.Duration
	Logger        *infra.Logger
}

// Dispatcher hands tasks to a fixed set of goroutines over a bounded queue.
type Dispatcher struct {
	proc        *Processor
	tasks       chan Task
	concurrency int
	grace       time.Duration
	logger      *infra.Logger

	mu      sync.RWMutex
	started bool
	closed  bool

	wg         sync.WaitGroup
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func NewDispatcher(proc *Processor, opts Options) *Dispatcher {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	size := opts.QueueSize
	if size <= 0 {
		size = 1
	}
	grace := opts.ShutdownGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		proc:        proc,
		tasks:       make(chan Task, size),
		concurrency: concurrency,
		grace:       grace,
		logger:      logger,
		baseCtx:     baseCtx,
		cancelBase:  cancel,
	}
}

// Enqueue never blocks.
func (d *Dispatcher) Enqueue(t Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrStopped
	}
	select {
	case d.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth reports how many tasks are waiting for a goroutine.
func (d *Dispatcher) Depth() int {
	return len(d.tasks)
}

// Start launches the worker goroutines. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go d.loop(i)
	}
	d.logger.Info().Int("concurrency", d.concurrency).Int("queue_size", cap(d.tasks)).Msg("worker: dispatcher started")
}

func (d *Dispatcher) loop(id int) {
	defer d.wg.Done()
	for t := range d.tasks {
		d.logger.Debug().Int("worker", id).Str("job_id", t.JobID).Msg("worker: picked job")
		d.proc.Process(d.baseCtx, t)
	}
}

// Stop refuses new tasks, lets queued and in-flight tasks finish and waits
// for them until ctx is done. After that in-flight provider calls are
// cancelled so their jobs are still marked failed before Stop returns.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.tasks)
	if !d.started {
		d.started = true
		for i := 0; i < d.concurrency; i++ {
			d.wg.Add(1)
			go d.loop(i)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelBase()
		return nil
	case <-ctx.Done():
		d.logger.Warn().Msg("worker: shutdown grace elapsed, cancelling in-flight jobs")
		d.cancelBase()
		<-done
		return ctx.Err()
	}
}

// Run starts the dispatcher and blocks until ctx is done, then stops it
// within the configured grace period.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start()
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), d.grace)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		d.logger.Warn().Err(err).Msg("worker: dispatcher stopped before queue drained")
	}
	d.logger.Info().Msg("worker: dispatcher stopped")
	return nil
}
