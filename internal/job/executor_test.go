package job

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sentiment/internal/classifier"
	"sentiment/internal/testutil"
)

// stubClassifier labels everything positive unless the text is listed as
// failing or panicking.
type stubClassifier struct {
	failing   map[string]bool
	panicking map[string]bool
	calls     atomic.Int32
	delay     time.Duration
}

func (s *stubClassifier) Classify(_ context.Context, text string) (classifier.Outcome, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panicking[text] {
		panic("classifier blew up on " + text)
	}
	if s.failing[text] {
		return classifier.Outcome{}, errors.New("model unavailable")
	}
	return classifier.Outcome{Label: classifier.LabelPositive, Confidence: 0.9}, nil
}

func newTestExecutor(t *testing.T, store Store, cls classifier.Classifier, cfg ExecutorConfig) *Executor {
	t.Helper()
	e := NewExecutor(store, cls, nil, cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.Close(ctx)
	})
	return e
}

func waitForTerminal(t *testing.T, store Store, id, owner string) *Job {
	t.Helper()
	var j *Job
	testutil.MustWaitFor(t, func() bool {
		var err error
		j, err = store.Get(context.Background(), id, owner)
		return err == nil && j.State.Terminal()
	}, testutil.WithTimeout(5*time.Second))
	return j
}

func TestExecutor_CompletesJob(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	e := newTestExecutor(t, store, &stubClassifier{}, ExecutorConfig{Workers: 2, QueueSize: 10})

	input := []string{"first", "second", "third"}
	created, _ := store.Create(context.Background(), "user-1", KindBatchSentiment, input)

	if err := e.Enqueue(created.ID); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	j := waitForTerminal(t, store, created.ID, "user-1")
	if j.State != StateCompleted {
		t.Fatalf("expected completed, got %s (error: %s)", j.State, j.Error)
	}
	if len(j.Result) != len(input) {
		t.Fatalf("expected %d results, got %d", len(input), len(j.Result))
	}
	for i, res := range j.Result {
		if res.Text != input[i] {
			t.Errorf("result %d out of order: got %q, want %q", i, res.Text, input[i])
		}
		if res.Label != classifier.LabelPositive {
			t.Errorf("result %d: unexpected label %q", i, res.Label)
		}
	}
}

func TestExecutor_OrderPreservedUnderConcurrency(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	cls := &stubClassifier{delay: time.Millisecond}
	e := newTestExecutor(t, store, cls, ExecutorConfig{Workers: 1, QueueSize: 10, ItemConcurrency: 8})

	input := make([]string, 50)
	for i := range input {
		input[i] = fmt.Sprintf("text-%02d", i)
	}
	created, _ := store.Create(context.Background(), "user-1", KindBatchSentiment, input)
	e.Enqueue(created.ID)

	j := waitForTerminal(t, store, created.ID, "user-1")
	if j.State != StateCompleted {
		t.Fatalf("expected completed, got %s", j.State)
	}
	for i, res := range j.Result {
		if res.Text != input[i] {
			t.Fatalf("result %d out of order: got %q, want %q", i, res.Text, input[i])
		}
	}
}

func TestExecutor_ItemFailureDegradesToDefault(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	cls := &stubClassifier{failing: map[string]bool{"broken": true}}
	e := newTestExecutor(t, store, cls, ExecutorConfig{Workers: 1, QueueSize: 10})

	input := []string{"fine", "broken", "also fine"}
	created, _ := store.Create(context.Background(), "user-1", KindBatchSentiment, input)
	e.Enqueue(created.ID)

	j := waitForTerminal(t, store, created.ID, "user-1")
	if j.State != StateCompleted {
		t.Fatalf("one bad item must not fail the batch: got %s (error: %s)", j.State, j.Error)
	}

	def := classifier.DefaultOutcome()
	if j.Result[1].Label != def.Label || j.Result[1].Confidence != def.Confidence {
		t.Errorf("failed item should carry the default outcome, got %+v", j.Result[1])
	}
	if j.Result[0].Label != classifier.LabelPositive || j.Result[2].Label != classifier.LabelPositive {
		t.Errorf("healthy items degraded: %+v", j.Result)
	}
}

func TestExecutor_ClassifierPanicFailsJob(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	cls := &stubClassifier{panicking: map[string]bool{"boom": true}}
	e := newTestExecutor(t, store, cls, ExecutorConfig{Workers: 1, QueueSize: 10})

	created, _ := store.Create(context.Background(), "user-1", KindBatchSentiment, []string{"ok", "boom"})
	e.Enqueue(created.ID)

	j := waitForTerminal(t, store, created.ID, "user-1")
	if j.State != StateFailed {
		t.Fatalf("expected failed, got %s", j.State)
	}
	if j.Error == "" {
		t.Error("expected a failure reason")
	}
	if j.Result != nil {
		t.Errorf("failed job must carry no result, got %v", j.Result)
	}
}

func TestExecutor_DuplicateDispatchSingleExecution(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	cls := &stubClassifier{}
	e := newTestExecutor(t, store, cls, ExecutorConfig{Workers: 8, QueueSize: 64})

	created, _ := store.Create(context.Background(), "user-1", KindBatchSentiment, []string{"only once"})

	// Enqueue the same job many times; every worker that loses the claim
	// must abandon it without touching the record.
	for i := 0; i < 16; i++ {
		if err := e.Enqueue(created.ID); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}

	j := waitForTerminal(t, store, created.ID, "user-1")
	if j.State != StateCompleted {
		t.Fatalf("expected completed, got %s", j.State)
	}

	// Give abandoning workers time to drain, then assert the classifier ran
	// exactly once per input item.
	testutil.MustWaitFor(t, func() bool {
		return cls.calls.Load() >= 1
	})
	time.Sleep(50 * time.Millisecond)
	if got := cls.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 classification, got %d", got)
	}
}

func TestExecutor_EnqueueQueueFull(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	// A slow classifier keeps the single worker busy while the queue fills.
	cls := &stubClassifier{delay: 200 * time.Millisecond}
	e := newTestExecutor(t, store, cls, ExecutorConfig{Workers: 1, QueueSize: 1})

	ctx := context.Background()
	var sawFull bool
	for i := 0; i < 10; i++ {
		j, _ := store.Create(ctx, "user-1", KindBatchSentiment, []string{"x"})
		if err := e.Enqueue(j.ID); err != nil {
			if !errors.Is(err, ErrQueueFull) {
				t.Fatalf("expected ErrQueueFull, got %v", err)
			}
			sawFull = true
			break
		}
	}
	if !sawFull {
		t.Fatal("expected the queue to fill up")
	}
}

func TestExecutor_CloseDrainsQueue(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	cls := &stubClassifier{}
	e := NewExecutor(store, cls, nil, ExecutorConfig{Workers: 2, QueueSize: 32})

	ctx := context.Background()
	ids := make([]string, 10)
	for i := range ids {
		j, _ := store.Create(ctx, "user-1", KindBatchSentiment, []string{"x"})
		ids[i] = j.ID
		if err := e.Enqueue(j.ID); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.Close(closeCtx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, id := range ids {
		j, err := store.Get(ctx, id, "user-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !j.State.Terminal() {
			t.Errorf("job %s left non-terminal after Close: %s", id, j.State)
		}
	}

	if err := e.Enqueue("late"); err == nil {
		t.Error("expected Enqueue after Close to fail")
	}
}

func TestLoadExecutorConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadExecutorConfigFromEnv()
	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
	if cfg.QueueSize != 256 {
		t.Errorf("expected queue size 256, got %d", cfg.QueueSize)
	}
	if cfg.ItemConcurrency != 4 {
		t.Errorf("expected item concurrency 4, got %d", cfg.ItemConcurrency)
	}
}
