package classifier

import (
	"context"
	"strings"
)

// Lexicon is an in-process word-list sentiment classifier. It exists so the
// service runs without an external model server; MODEL_URL swaps in the
// remote classifier.
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

var defaultPositive = []string{
	"good", "great", "excellent", "amazing", "awesome", "fantastic",
	"wonderful", "love", "loved", "best", "happy", "perfect", "nice",
	"brilliant", "enjoyable", "delightful", "superb", "impressive",
}

var defaultNegative = []string{
	"bad", "terrible", "awful", "horrible", "worst", "hate", "hated",
	"poor", "disappointing", "disappointed", "sad", "angry", "broken",
	"useless", "boring", "dreadful", "mediocre", "unacceptable",
}

// NewLexicon creates a lexicon classifier with the built-in word lists.
func NewLexicon() *Lexicon {
	return &Lexicon{
		positive: toSet(defaultPositive),
		negative: toSet(defaultNegative),
	}
}

// Classify scores text by counting positive and negative words.
// Texts with no signal are neutral at the default confidence.
func (l *Lexicon) Classify(_ context.Context, text string) (Outcome, error) {
	var pos, neg int
	for _, word := range tokenize(text) {
		if _, ok := l.positive[word]; ok {
			pos++
		}
		if _, ok := l.negative[word]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 || pos == neg {
		return Outcome{Label: LabelNeutral, Confidence: 0.5}, nil
	}

	if pos > neg {
		return Outcome{Label: LabelPositive, Confidence: confidence(pos, total)}, nil
	}
	return Outcome{Label: LabelNegative, Confidence: confidence(neg, total)}, nil
}

// confidence maps the majority share of signal words to [0.5, 1.0].
func confidence(majority, total int) float64 {
	return 0.5 + 0.5*float64(majority)/float64(total)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var _ Classifier = (*Lexicon)(nil)
