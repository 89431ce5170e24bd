package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentiment/internal/apperrors"
	"sentiment/internal/classifier"
	"sentiment/internal/history"
	"sentiment/internal/observability"
)

// Validation limits
const (
	maxBatchItems = 256
	maxTextLength = 10000
)

// SyncResult is the outcome of a synchronous classification.
type SyncResult struct {
	Text           string  `json:"text"`
	Label          string  `json:"sentiment"`
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processingTime"` // seconds
}

// Service is the boundary contract for classification. Batch submissions
// go through the store and executor; the synchronous path calls the
// classifier directly and never touches the job machinery.
type Service struct {
	store      Store
	executor   *Executor
	classifier classifier.Classifier
	recorder   history.Recorder
	metrics    *observability.Metrics
}

// NewService creates a new classification service.
func NewService(store Store, executor *Executor, cls classifier.Classifier, recorder history.Recorder, metrics *observability.Metrics) *Service {
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	return &Service{
		store:      store,
		executor:   executor,
		classifier: cls,
		recorder:   recorder,
		metrics:    metrics,
	}
}

// Submit validates a batch, persists a pending job, and schedules it for
// background execution. It returns as soon as the job is queued; callers
// poll Status for completion.
func (s *Service) Submit(ctx context.Context, owner string, texts []string) (*Job, error) {
	if err := validateSubmit(owner, texts); err != nil {
		return nil, err
	}

	j, err := s.store.Create(ctx, owner, KindBatchSentiment, texts)
	if err != nil {
		return nil, err
	}

	logger := slog.With("jobId", j.ID, "owner", owner, "items", len(texts))

	if err := s.executor.Enqueue(j.ID); err != nil {
		// The record exists but will never be executed; mark it failed so
		// pollers see a terminal state instead of a job stuck pending.
		if _, terr := s.store.Transition(ctx, j.ID, []State{StatePending}, StateFailed, nil, "executor queue full"); terr != nil {
			logger.Error("Failed to mark unschedulable job", "error", terr)
		}
		logger.Error("Job rejected by executor", "error", err)
		return nil, apperrors.Unavailable("executor.enqueue", err)
	}

	if s.metrics != nil {
		s.metrics.RecordJobCreated(ctx)
	}
	logger.Info("Job submitted")

	return j, nil
}

// Status returns the job as seen by its owner. Safe to call repeatedly at
// any point in the job's lifetime.
func (s *Service) Status(ctx context.Context, owner, jobID string) (*Job, error) {
	return s.store.Get(ctx, jobID, owner)
}

// ClassifySync classifies a single text immediately, bypassing the job
// machinery. Classifier failure degrades to the default outcome; the
// result is appended to history best-effort.
func (s *Service) ClassifySync(ctx context.Context, owner, text string) (*SyncResult, error) {
	if text == "" {
		return nil, apperrors.Validation("text", "text is required")
	}
	if len(text) > maxTextLength {
		return nil, apperrors.Validation("text", fmt.Sprintf("text exceeds maximum length of %d", maxTextLength))
	}

	start := time.Now()
	out, err := s.classifier.Classify(ctx, text)
	if s.metrics != nil {
		s.metrics.RecordClassification(ctx, err == nil)
	}
	if err != nil {
		out = classifier.DefaultOutcome()
		if s.metrics != nil {
			s.metrics.RecordDefaultOutcome(ctx)
		}
		slog.Warn("Sync classification degraded to default outcome", "owner", owner, "error", err)
	}
	elapsed := time.Since(start)

	s.recorder.Append(&history.Record{
		Owner:          owner,
		Text:           text,
		Label:          out.Label,
		Confidence:     out.Confidence,
		ProcessingTime: elapsed.Seconds(),
		Timestamp:      time.Now().UTC(),
	})

	return &SyncResult{
		Text:           text,
		Label:          out.Label,
		Confidence:     out.Confidence,
		ProcessingTime: elapsed.Seconds(),
	}, nil
}

// History returns the owner's recent synchronous classifications, newest
// first. Only available when an in-memory recorder is configured.
func (s *Service) History(owner string, limit, offset int) []*history.Record {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	if mem, ok := findMemoryRecorder(s.recorder); ok {
		return mem.ListByOwner(owner, limit, offset)
	}
	return []*history.Record{}
}

// findMemoryRecorder unwraps MultiRecorder to locate a queryable recorder.
func findMemoryRecorder(r history.Recorder) (*history.MemoryRecorder, bool) {
	switch rec := r.(type) {
	case *history.MemoryRecorder:
		return rec, true
	case history.MultiRecorder:
		for _, sub := range rec {
			if mem, ok := findMemoryRecorder(sub); ok {
				return mem, true
			}
		}
	}
	return nil, false
}

// validateSubmit validates a batch submission before any storage write.
func validateSubmit(owner string, texts []string) error {
	if owner == "" {
		return apperrors.Validation("owner", "caller identity is required")
	}
	if len(texts) == 0 {
		return apperrors.Validation("texts", "texts must not be empty")
	}
	if len(texts) > maxBatchItems {
		return apperrors.Validation("texts", fmt.Sprintf("batch exceeds maximum of %d items", maxBatchItems))
	}
	for i, text := range texts {
		if len(text) > maxTextLength {
			return apperrors.Validation("texts", fmt.Sprintf("item %d exceeds maximum length of %d", i, maxTextLength))
		}
	}
	return nil
}
