// Package dispatcher provides async history-record delivery with buffering and retry.
package dispatcher

import (
	"context"
	"errors"

	"sentiment/internal/history"
)

// ErrBufferFull is returned when the dispatcher's buffer is full and the record is dropped.
var ErrBufferFull = errors.New("dispatcher buffer full, record dropped")

// Dispatcher handles async delivery of history records.
// Implementations may use in-memory buffering, message queues, etc.
type Dispatcher interface {
	// Dispatch queues a record for async delivery. Non-blocking.
	// Returns ErrBufferFull if the record cannot be queued.
	Dispatch(event *Event) error

	// Stats returns current dispatcher statistics.
	Stats() Stats

	// Close gracefully shuts down, attempting to deliver queued records.
	// The context deadline controls how long to wait for drain.
	Close(ctx context.Context) error
}

// Event is a history record to be delivered to a destination.
type Event struct {
	Record      *history.Record
	Destination string // sink URL
	SigningKey  string // HMAC key for signing, empty = no signing
	Requeues    int    // number of times requeued due to circuit open (internal use)
}

// Stats holds dispatcher statistics.
type Stats struct {
	QueueDepth    int   // current queue size
	Queued        int64 // total records queued
	Delivered     int64 // successful deliveries
	Failed        int64 // failed after retries
	Dropped       int64 // dropped due to full buffer or max requeues
	Requeued      int64 // requeued due to open circuit
	RetriesTotal  int64 // total retry attempts
	BreakersTotal int   // total circuit breakers
	BreakersOpen  int   // currently open breakers
}

// MetricsRecorder is an optional interface for recording dispatcher metrics.
type MetricsRecorder interface {
	RecordDispatcherDelivered(ctx context.Context, durationSeconds float64)
	RecordDispatcherFailed(ctx context.Context)
	RecordDispatcherDropped(ctx context.Context)
	RecordDispatcherRequeued(ctx context.Context)
	RecordDispatcherQueueSize(ctx context.Context, size int64)
}
