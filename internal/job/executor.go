package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sentiment/internal/apperrors"
	"sentiment/internal/classifier"
	"sentiment/internal/config"
	"sentiment/internal/observability"
)

// ErrQueueFull is returned when the executor's queue is full and the job
// cannot be scheduled.
var ErrQueueFull = errors.New("executor queue full")

// ExecutorConfig holds configuration for the background executor.
type ExecutorConfig struct {
	Workers         int // concurrent jobs (default: 4)
	QueueSize       int // pending job buffer (default: 256)
	ItemConcurrency int // parallel classifications within one job (default: 4)
}

// LoadExecutorConfigFromEnv loads executor configuration from environment variables.
func LoadExecutorConfigFromEnv() ExecutorConfig {
	cfg := ExecutorConfig{
		Workers:         config.GetIntEnv("EXECUTOR_WORKERS", 4),
		QueueSize:       config.GetIntEnv("EXECUTOR_QUEUE_SIZE", 256),
		ItemConcurrency: config.GetIntEnv("EXECUTOR_ITEM_CONCURRENCY", 4),
	}
	return cfg.withDefaults()
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.ItemConcurrency <= 0 {
		c.ItemConcurrency = 4
	}
	return c
}

// Executor drives pending jobs to a terminal state. Jobs are queued in a
// bounded channel and claimed by a fixed worker pool; the pending ->
// processing transition is the claim, so at most one worker ever advances
// a given job even if it is enqueued twice.
type Executor struct {
	store      Store
	classifier classifier.Classifier
	metrics    *observability.Metrics
	logger     *slog.Logger
	config     ExecutorConfig

	queue    chan string
	wg       sync.WaitGroup
	shutdown chan struct{}
	closed   atomic.Bool
}

// NewExecutor creates an executor and starts its workers.
func NewExecutor(store Store, cls classifier.Classifier, metrics *observability.Metrics, cfg ExecutorConfig) *Executor {
	cfg = cfg.withDefaults()

	e := &Executor{
		store:      store,
		classifier: cls,
		metrics:    metrics,
		logger:     slog.With("component", "executor"),
		config:     cfg,
		queue:      make(chan string, cfg.QueueSize),
		shutdown:   make(chan struct{}),
	}

	e.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go e.worker()
	}

	e.logger.Info("Executor started", "workers", cfg.Workers, "queue", cfg.QueueSize)
	return e
}

// Enqueue schedules a job for execution. Non-blocking; returns ErrQueueFull
// if the queue is full.
func (e *Executor) Enqueue(jobID string) error {
	if e.closed.Load() {
		return fmt.Errorf("executor is closed")
	}

	select {
	case e.queue <- jobID:
		return nil
	default:
		e.logger.Warn("Job rejected, queue full", "jobId", jobID)
		return ErrQueueFull
	}
}

// Close stops intake, drains the queue, and waits for in-flight jobs.
// The context deadline controls how long to wait.
func (e *Executor) Close(ctx context.Context) error {
	if e.closed.Swap(true) {
		return nil // already closed
	}

	e.logger.Info("Executor shutting down", "queued", len(e.queue))
	close(e.shutdown)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Executor shutdown complete")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Executor shutdown timed out", "remaining", len(e.queue))
		return ctx.Err()
	}
}

// worker claims jobs from the queue.
func (e *Executor) worker() {
	defer e.wg.Done()

	for {
		select {
		case <-e.shutdown:
			e.drainQueue()
			return
		case jobID := <-e.queue:
			e.execute(jobID)
		}
	}
}

// drainQueue executes remaining jobs after the shutdown signal.
func (e *Executor) drainQueue() {
	for {
		select {
		case jobID := <-e.queue:
			e.execute(jobID)
		default:
			return // queue empty
		}
	}
}

// execute runs one job to a terminal state.
func (e *Executor) execute(jobID string) {
	ctx := context.Background()
	logger := e.logger.With("jobId", jobID)

	// Claim the job. Losing a duplicate-dispatch race is not an error:
	// another worker already owns it.
	j, err := e.store.Transition(ctx, jobID, []State{StatePending}, StateProcessing, nil, "")
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			logger.Debug("Job already claimed, abandoning")
			return
		}
		logger.Error("Failed to claim job", "error", err)
		return
	}

	if e.metrics != nil {
		e.metrics.RecordJobStarted(ctx)
	}
	start := time.Now()

	results, err := e.runItems(ctx, j.Input)
	if err == nil {
		_, err = e.store.Transition(ctx, jobID, []State{StateProcessing}, StateCompleted, results, "")
	}

	if err != nil {
		e.fail(ctx, jobID, err)
		if e.metrics != nil {
			e.metrics.RecordJobFinished(ctx, false, time.Since(start).Seconds(), len(j.Input))
		}
		return
	}

	if e.metrics != nil {
		e.metrics.RecordJobFinished(ctx, true, time.Since(start).Seconds(), len(j.Input))
	}
	logger.Info("Job completed", "items", len(j.Input), "duration", time.Since(start))
}

// runItems classifies every input item, preserving input order in the
// result slice. Item-level classifier failures degrade to the default
// outcome and never fail the job; a panic in the classifier is the only
// thing treated as unrecoverable.
func (e *Executor) runItems(ctx context.Context, input []string) ([]ItemResult, error) {
	results := make([]ItemResult, len(input))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.ItemConcurrency)
	for i, text := range input {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("classifier panic: %v", r)
				}
			}()

			out, cerr := e.classifier.Classify(gctx, text)
			if e.metrics != nil {
				e.metrics.RecordClassification(gctx, cerr == nil)
			}
			if cerr != nil {
				out = classifier.DefaultOutcome()
				if e.metrics != nil {
					e.metrics.RecordDefaultOutcome(gctx)
				}
				e.logger.Warn("Item degraded to default outcome", "error", cerr)
			}
			results[i] = ItemResult{Text: text, Label: out.Label, Confidence: out.Confidence}
			return nil
		})
	}
	if gerr := g.Wait(); gerr != nil {
		return nil, gerr
	}
	return results, nil
}

// fail records a terminal failure. If even that transition fails the job is
// surfaced in the log rather than silently lost.
func (e *Executor) fail(ctx context.Context, jobID string, cause error) {
	e.logger.Error("Job failed", "jobId", jobID, "error", cause)

	_, err := e.store.Transition(ctx, jobID, []State{StateProcessing}, StateFailed, nil, cause.Error())
	if err != nil {
		e.logger.Error("Failed to record job failure, job state may be lost",
			"jobId", jobID,
			"cause", cause,
			"error", err,
		)
	}
}
