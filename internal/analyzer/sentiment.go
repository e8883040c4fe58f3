package analyzer

import (
	"strings"

	"github.com/edgard/mentorbot/internal/domain"
)

// ScoreSentiment classifies every token against the positive and negative
// word sets and maps the balance onto [0,1]:
//
//	score = clamp(0.5 + 2.5*(pos/total - neg/total), 0, 1)
func ScoreSentiment(text string) domain.Sentiment {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return domain.NeutralSentiment
	}

	var pos, neg int
	for _, tok := range tokens {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	total := float64(len(tokens))
	score := 0.5 + 2.5*(float64(pos)/total-float64(neg)/total)
	score = min(max(score, 0), 1)

	return domain.Sentiment{Score: score, Label: LabelFor(score)}
}

// LabelFor maps a score onto one of the five sentiment labels.
func LabelFor(score float64) domain.SentimentLabel {
	switch {
	case score >= 0.75:
		return domain.SentimentVeryPositive
	case score >= 0.6:
		return domain.SentimentPositive
	case score >= 0.4:
		return domain.SentimentNeutral
	case score >= 0.25:
		return domain.SentimentNegative
	default:
		return domain.SentimentVeryNegative
	}
}
