package analyzer

import (
	"slices"
	"strings"
)

// ExtractTopics returns up to maxTopics category names ordered by descending
// keyword hit count. Ties keep category declaration order.
func ExtractTopics(text string, maxTopics int) []string {
	if maxTopics <= 0 {
		maxTopics = DefaultMaxTopics
	}
	lower := strings.ToLower(text)

	type hit struct {
		name  string
		count int
	}
	hits := make([]hit, 0, len(topicCategories))
	for _, c := range topicCategories {
		if n := len(c.re.FindAllStringIndex(lower, -1)); n > 0 {
			hits = append(hits, hit{name: c.name, count: n})
		}
	}

	slices.SortStableFunc(hits, func(a, b hit) int { return b.count - a.count })

	topics := make([]string, 0, min(len(hits), maxTopics))
	for _, h := range hits[:min(len(hits), maxTopics)] {
		topics = append(topics, h.name)
	}
	return topics
}

// TopicNames lists every topic category in declaration order.
func TopicNames() []string {
	names := make([]string, len(topicCategories))
	for i, c := range topicCategories {
		names[i] = c.name
	}
	return names
}
