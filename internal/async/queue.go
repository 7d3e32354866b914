package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docforge/internal/common"
)

// Job is one inbox request file waiting to be transformed.
type Job struct {
	ID          uuid.UUID
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler processes one job. Errors are logged by the queue; the job is not retried.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

var ErrQueueClosed = errors.New("queue closed")

type options struct {
	workers        int
	queueSize      int
	processTimeout time.Duration
}

type Option func(*options)

func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithProcessTimeout caps each Handle call; zero means no cap.
func WithProcessTimeout(d time.Duration) Option {
	return func(o *options) { o.processTimeout = d }
}

// ProcessorQueue is a bounded channel drained by a fixed set of workers.
type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	opts    options

	jobs   chan Job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
}

func NewProcessorQueue(handler Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	o := options{workers: 2, queueSize: 64}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &ProcessorQueue{
		handler: handler,
		logger:  common.LoggerOrDefault(logger),
		opts:    o,
		jobs:    make(chan Job, o.queueSize),
		cancel:  cancel,
	}
	for i := range o.workers {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	return q
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		q.logger.Debug("queue.enqueued", "job_id", job.ID, "path", job.Path)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain. If ctx
// ends first, in-flight handlers are cancelled.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		q.cancel()
		<-done
	}
	q.cancel()
	q.logger.Info("queue.shutdown")
}

func (q *ProcessorQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(ctx, id, job)
	}
}

func (q *ProcessorQueue) process(ctx context.Context, worker int, job Job) {
	if q.opts.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opts.processTimeout)
		defer cancel()
	}
	start := time.Now()
	if err := q.handler.Handle(ctx, job); err != nil {
		q.logger.Error("queue.job.failed", "worker", worker, "job_id", job.ID, "path", job.Path, "err", err)
		return
	}
	q.logger.Info("queue.job.ok", "worker", worker, "job_id", job.ID, "path", job.Path, "elapsed_ms", time.Since(start).Milliseconds())
}
