// Package analyzer derives sentiment, topics and action items from raw
// conversation text. Every function here is pure and total: malformed or
// empty input produces empty results and a neutral sentiment, never an error.
package analyzer

import (
	"strings"

	"github.com/edgard/mentorbot/internal/domain"
)

// DefaultMaxTopics is the number of topics returned when not configured.
const DefaultMaxTopics = 3

// Result is the outcome of analyzing one piece of text.
type Result struct {
	Sentiment   domain.Sentiment `json:"sentiment"`
	Topics      []string         `json:"topics"`
	ActionItems []string         `json:"action_items"`
}

// Analyzer holds the tunables for text analysis. The zero value is not
// usable; construct it with New.
type Analyzer struct {
	maxTopics int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxTopics limits the number of topics returned. Values below 1 are ignored.
func WithMaxTopics(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxTopics = n
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{maxTopics: DefaultMaxTopics}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs sentiment, topic and action item extraction on text.
func (a *Analyzer) Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{
			Sentiment:   domain.NeutralSentiment,
			Topics:      []string{},
			ActionItems: []string{},
		}
	}
	return Result{
		Sentiment:   ScoreSentiment(text),
		Topics:      ExtractTopics(text, a.maxTopics),
		ActionItems: ExtractActionItems(text),
	}
}

var defaultAnalyzer = New()

// Analyze runs the default Analyzer.
func Analyze(text string) Result {
	return defaultAnalyzer.Analyze(text)
}
