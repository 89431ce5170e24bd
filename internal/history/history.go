// Package history provides best-effort recording of classification results.
// Appends never sit on a request's critical path and never fail the caller.
package history

import (
	"sync"
	"time"
)

// Record is one classification appended to the history log.
type Record struct {
	Owner          string    `json:"owner"`
	Text           string    `json:"text"`
	Label          string    `json:"label"`
	Confidence     float64   `json:"confidence"`
	ProcessingTime float64   `json:"processingTime"` // seconds
	Timestamp      time.Time `json:"timestamp"`
}

// Recorder accepts history records. Append is fire-and-forget: it must not
// block and must not surface delivery failures to the caller.
type Recorder interface {
	Append(rec *Record)
}

// MemoryRecorder keeps the most recent records in a bounded ring buffer.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records []*Record // ring storage
	next    int       // next write position
	full    bool
}

// NewMemoryRecorder creates a recorder that retains up to capacity records.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryRecorder{
		records: make([]*Record, capacity),
	}
}

// Append stores a record, evicting the oldest once full.
func (m *MemoryRecorder) Append(rec *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[m.next] = rec
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
}

// ListByOwner returns the owner's records, newest first, skipping offset
// and returning at most limit.
func (m *MemoryRecorder) ListByOwner(owner string, limit, offset int) []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.records)
	}

	out := make([]*Record, 0, limit)
	skipped := 0
	for i := 1; i <= size; i++ {
		// Walk backwards from the most recent write.
		idx := (m.next - i + len(m.records)) % len(m.records)
		rec := m.records[idx]
		if rec == nil || rec.Owner != owner {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// MultiRecorder fans an append out to every recorder.
type MultiRecorder []Recorder

// Append forwards the record to all recorders.
func (m MultiRecorder) Append(rec *Record) {
	for _, r := range m {
		r.Append(rec)
	}
}

// NopRecorder discards all records.
type NopRecorder struct{}

// Append does nothing.
func (NopRecorder) Append(*Record) {}

var (
	_ Recorder = (*MemoryRecorder)(nil)
	_ Recorder = (MultiRecorder)(nil)
	_ Recorder = NopRecorder{}
)
