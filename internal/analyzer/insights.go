package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/edgard/mentorbot/internal/domain"
)

type cue struct {
	typ   domain.InsightType
	match func(lower string) bool
}

// cues are evaluated per sentence; each type fires at most once per record.
var cues = []cue{
	{domain.InsightMeetingPrep, func(s string) bool { return meetingRe.MatchString(s) && futureRe.MatchString(s) }},
	{domain.InsightFocusTime, focusRe.MatchString},
	{domain.InsightWellbeing, wellbeingRe.MatchString},
	{domain.InsightLearning, learningRe.MatchString},
	{domain.InsightSocial, socialRe.MatchString},
}

// Insights turns a record and its analysis into typed insights: one
// sentiment insight, one topic insight when topics were found, one insight
// per action item, and at most one insight per contextual cue.
// Insight IDs are "<recordID>/<index>".
func Insights(record domain.ConversationRecord, res Result) []domain.Insight {
	var out []domain.Insight
	add := func(in domain.Insight) {
		in.ID = fmt.Sprintf("%s/%d", record.ID, len(out))
		in.RecordID = record.ID
		in.CreatedAt = record.Timestamp
		out = append(out, in)
	}

	sentiment := res.Sentiment
	add(domain.Insight{Type: domain.InsightSentiment, Sentiment: &sentiment})

	if len(res.Topics) > 0 {
		add(domain.Insight{Type: domain.InsightTopic, Topics: slices.Clone(res.Topics)})
	}

	for _, item := range res.ActionItems {
		add(domain.Insight{Type: domain.InsightActionItem, Text: item, Urgent: isUrgent(item)})
	}

	fired := make(map[domain.InsightType]bool, len(cues))
	for _, sentence := range splitSentences(record.Text) {
		text := strings.TrimSpace(sentence)
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		for _, c := range cues {
			if fired[c.typ] || !c.match(lower) {
				continue
			}
			fired[c.typ] = true
			add(domain.Insight{Type: c.typ, Text: text})
		}
	}

	return out
}
