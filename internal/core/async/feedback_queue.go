package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/internal/feedback"
)

// ErrQueueFull is returned by Enqueue when every buffer slot is taken.
var ErrQueueFull = errors.New("feedback queue full")

// Sender delivers one feedback job.
type Sender interface {
	Submit(ctx context.Context, job feedback.Job) error
}

// FeedbackQueue delivers feedback on a bounded worker pool. Failures are
// logged and dropped; nothing is retried.
type FeedbackQueue struct {
	sender  Sender
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan feedback.Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*FeedbackQueue)

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) Option {
	return func(q *FeedbackQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets how many jobs may wait for a worker.
func WithQueueSize(n int) Option {
	return func(q *FeedbackQueue) {
		if n > 0 {
			q.ch = make(chan feedback.Job, n)
		}
	}
}

// WithProcessTimeout bounds a single delivery.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *FeedbackQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewFeedbackQueue(sender Sender, logger *slog.Logger, opts ...Option) *FeedbackQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &FeedbackQueue{
		sender:  sender,
		logger:  logger,
		workers: 2,
		timeout: 30 * time.Second,
		ch:      make(chan feedback.Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *FeedbackQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				logger := q.logger.With("worker_id", workerID)
				for job := range q.ch {
					q.deliver(logger, job)
				}
				logger.Debug("feedback.queue.worker_stopped")
			}(i + 1)
		}
	})
}

func (q *FeedbackQueue) deliver(logger *slog.Logger, job feedback.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	start := time.Now()
	logger = logger.With("document_id", job.Document.ID, "trace_id", job.TraceID)
	if err := q.sender.Submit(ctx, job); err != nil {
		logger.Error("feedback.queue.delivery_failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Info("feedback.queue.delivered",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"queued_ms", time.Since(job.SubmittedAt).Milliseconds())
}

// Enqueue hands job to the workers without waiting. A full queue drops the
// job with ErrQueueFull; after Shutdown jobs are dropped silently.
func (q *FeedbackQueue) Enqueue(_ context.Context, job feedback.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("feedback.queue.closed", "document_id", job.Document.ID)
		return nil
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("feedback.queue.enqueued", "document_id", job.Document.ID, "depth", len(q.ch))
		return nil
	default:
		q.logger.Warn("feedback.queue.full", "document_id", job.Document.ID, "capacity", cap(q.ch))
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones or ctx.
func (q *FeedbackQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("feedback.queue.shutdown_interrupted", "error", ctx.Err())
	case <-done:
		q.logger.Info("feedback.queue.drained")
	}
}

var _ feedback.Queue = (*FeedbackQueue)(nil)
