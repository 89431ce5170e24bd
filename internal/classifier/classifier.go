// Package classifier defines the classification boundary and its implementations.
package classifier

import "context"

// Labels produced by classifiers.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Outcome is the result of classifying a single text.
type Outcome struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier classifies a single text. Implementations must be stateless
// and safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (Outcome, error)
}

// DefaultOutcome is substituted when a classifier fails for an item.
// Item-level failures never fail a batch; callers count the substitution
// so the default-outcome rate stays observable.
func DefaultOutcome() Outcome {
	return Outcome{Label: LabelNeutral, Confidence: 0.5}
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, text string) (Outcome, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, text string) (Outcome, error) {
	return f(ctx, text)
}
