package job

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentiment/internal/apperrors"
)

// Store is the single source of truth for job state. All mutation goes
// through Create and Transition; Transition calls on the same id are
// linearizable so duplicate executor dispatches resolve to exactly one
// winner.
type Store interface {
	// Create persists a new pending job with a fresh unique id.
	Create(ctx context.Context, owner, kind string, input []string) (*Job, error)

	// Get returns the job only if it exists and belongs to owner.
	// Unknown id and foreign owner produce the same not-found error.
	Get(ctx context.Context, id, owner string) (*Job, error)

	// Transition atomically moves a job to state to, provided its current
	// state is in from. Terminal states are absorbing: no caller lists them
	// in from, so a terminal job always yields ErrInvalidTransition.
	Transition(ctx context.Context, id string, from []State, to State, result []ItemResult, errMsg string) (*Job, error)
}

// MemoryStore is an in-memory Store with mutex-guarded access. A lost
// process loses its jobs; callers that need durability put a database
// behind the Store interface instead.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create persists a new pending job.
func (s *MemoryStore) Create(_ context.Context, owner, kind string, input []string) (*Job, error) {
	now := s.now().UTC()
	j := &Job{
		ID:        uuid.NewString(),
		Owner:     owner,
		Kind:      kind,
		State:     StatePending,
		Input:     append([]string(nil), input...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	return j.clone(), nil
}

// Get returns a copy of the job if it exists and belongs to owner.
func (s *MemoryStore) Get(_ context.Context, id, owner string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok || j.Owner != owner {
		return nil, apperrors.NotFound("job", id)
	}
	return j.clone(), nil
}

// Transition performs a compare-and-swap on the job's state. The write
// lock is held across check and update, which serializes concurrent
// attempts for the same id.
func (s *MemoryStore) Transition(_ context.Context, id string, from []State, to State, result []ItemResult, errMsg string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NotFound("job", id)
	}
	if !slices.Contains(from, j.State) {
		return nil, apperrors.InvalidTransition("job", id, "job is "+string(j.State))
	}

	j.State = to
	j.UpdatedAt = s.now().UTC()
	j.Result = nil
	j.Error = ""
	switch to {
	case StateCompleted:
		j.Result = append([]ItemResult(nil), result...)
	case StateFailed:
		j.Error = errMsg
	}
	return j.clone(), nil
}

var _ Store = (*MemoryStore)(nil)
