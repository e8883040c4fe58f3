package analyzer

import (
	"strings"
	"unicode/utf8"
)

const minActionItemLength = 10

// ExtractActionItems returns the distinct action items in text, in order of
// first occurrence. Each sentence yields at most one item.
func ExtractActionItems(text string) []string {
	items := []string{}
	seen := make(map[string]struct{})

	for _, sentence := range splitSentences(text) {
		if !hasActionPhrase(sentence) {
			continue
		}
		item := cleanActionItem(sentence)
		if utf8.RuneCountInString(item) <= minActionItemLength {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}
	return items
}

func splitSentences(text string) []string {
	return sentenceRe.Split(text, -1)
}

func hasActionPhrase(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, phrase := range actionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func cleanActionItem(sentence string) string {
	stripped := fillerPrefix.ReplaceAllString(sentence, "")
	return strings.Trim(stripped, " \t\r\n,;:-")
}

// isUrgent reports whether an action item carries a time-pressure marker.
func isUrgent(item string) bool {
	return urgentRe.MatchString(strings.ToLower(item))
}
