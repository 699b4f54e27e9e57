package async

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/pipeline"
)

type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, path string, opts pipeline.Options) (*pipeline.Result, error)
}

// TaskStore receives the task state transitions.
type TaskStore interface {
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result *pipeline.Result) error
	Fail(ctx context.Context, id string, message string) error
}

const storeTimeout = 10 * time.Second

type ProcessorQueue struct {
	proc    DocumentProcessor
	tasks   TaskStore
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// senders hold the read lock; Shutdown takes the write lock to close ch
	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc DocumentProcessor, tasks TaskStore, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		tasks:   tasks,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	defer q.cleanup(job)

	q.store(job, func(ctx context.Context) error { return q.tasks.MarkProcessing(ctx, job.TaskID) })

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	ctx = common.WithTaskID(ctx, job.TaskID)
	res, err := q.proc.ProcessDocument(ctx, job.FilePath, job.Options)
	cancel()

	if err != nil {
		msg := err.Error()
		if res != nil && len(res.Errors) > 0 {
			msg = res.Errors[0]
		}
		q.logger.Error("processing failed", "worker_id", workerID, "task_id", job.TaskID, "error", err)
		q.store(job, func(ctx context.Context) error { return q.tasks.Fail(ctx, job.TaskID, msg) })
		return
	}
	q.logger.Info("processed file successfully",
		"worker_id", workerID,
		"task_id", job.TaskID,
		"status", res.Status(),
		"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
	q.store(job, func(ctx context.Context) error { return q.tasks.Complete(ctx, job.TaskID, res) })
}

// store runs a task-state write on its own deadline so it survives a
// timed-out pipeline run.
func (q *ProcessorQueue) store(job Job, write func(context.Context) error) {
	if q.tasks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		q.logger.Error("task update failed", "task_id", job.TaskID, "error", err)
	}
}

func (q *ProcessorQueue) cleanup(job Job) {
	if job.CleanupDir == "" {
		return
	}
	if err := os.RemoveAll(job.CleanupDir); err != nil {
		q.logger.Warn("cleanup failed", "task_id", job.TaskID, "dir", job.CleanupDir, "error", err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "task_id", job.TaskID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for processing", "task_id", job.TaskID, "file_path", job.FilePath)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "task_id", job.TaskID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx
// to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
