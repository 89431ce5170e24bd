// Package job implements the asynchronous batch-classification job lifecycle:
// the store that tracks job state, the executor that drives jobs to a
// terminal state, and the service that fronts both.
package job

import (
	"time"
)

// State is the lifecycle state of a job.
type State string

// Legal states. Pending jobs have been accepted but not claimed; processing
// jobs are being executed; completed and failed are terminal and absorbing.
// Cancelled is reserved so the state set can grow without breaking the
// absorption rule.
const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether a state is absorbing.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// KindBatchSentiment tags batch sentiment-analysis jobs.
const KindBatchSentiment = "batch_sentiment_analysis"

// ItemResult is the outcome for a single input item. Results are
// order-preserving: ItemResult i corresponds to input item i.
type ItemResult struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Job is the persisted job record. State is mutated only through
// Store.Transition; everything else is immutable after creation.
type Job struct {
	ID        string       `json:"id"`
	Owner     string       `json:"owner"`
	Kind      string       `json:"kind"`
	State     State        `json:"state"`
	Input     []string     `json:"input"`
	Result    []ItemResult `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// SubmitResponse is returned when a batch job is accepted.
type SubmitResponse struct {
	JobID  string `json:"jobId"`
	Status State  `json:"status"`
}

// StatusView is the caller-facing projection of a job record.
type StatusView struct {
	JobID     string       `json:"jobId"`
	Status    State        `json:"status"`
	Result    []ItemResult `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// View projects a job record into its caller-facing form.
func (j *Job) View() *StatusView {
	return &StatusView{
		JobID:     j.ID,
		Status:    j.State,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// clone returns a deep copy so callers never alias stored records.
func (j *Job) clone() *Job {
	c := *j
	c.Input = append([]string(nil), j.Input...)
	if j.Result != nil {
		c.Result = append([]ItemResult(nil), j.Result...)
	}
	return &c
}
