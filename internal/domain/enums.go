package domain

// InsightType identifies the kind of fact derived from a conversation record.
type InsightType string

const (
	InsightActionItem  InsightType = "action_item"
	InsightSentiment   InsightType = "sentiment"
	InsightTopic       InsightType = "topic"
	InsightMeetingPrep InsightType = "meeting_prep"
	InsightFocusTime   InsightType = "focus_time"
	InsightWellbeing   InsightType = "wellbeing"
	InsightLearning    InsightType = "learning"
	InsightSocial      InsightType = "social"
)

func (t InsightType) String() string { return string(t) }

func (t InsightType) IsValid() bool {
	switch t {
	case InsightActionItem, InsightSentiment, InsightTopic, InsightMeetingPrep,
		InsightFocusTime, InsightWellbeing, InsightLearning, InsightSocial:
		return true
	}
	return false
}

// SentimentLabel is one of five ordered buckets for a sentiment score.
type SentimentLabel string

const (
	SentimentVeryNegative SentimentLabel = "very_negative"
	SentimentNegative     SentimentLabel = "negative"
	SentimentNeutral      SentimentLabel = "neutral"
	SentimentPositive     SentimentLabel = "positive"
	SentimentVeryPositive SentimentLabel = "very_positive"
)

func (l SentimentLabel) String() string { return string(l) }

func (l SentimentLabel) IsValid() bool {
	switch l {
	case SentimentVeryNegative, SentimentNegative, SentimentNeutral, SentimentPositive, SentimentVeryPositive:
		return true
	}
	return false
}

// MentorStyle is the tone used to decorate notification text.
type MentorStyle string

const (
	StyleSupportiveCoach    MentorStyle = "supportive_coach"
	StyleDirectAdvisor      MentorStyle = "direct_advisor"
	StyleAnalyticalGuide    MentorStyle = "analytical_guide"
	StyleFriendlyCompanion  MentorStyle = "friendly_companion"
	StyleProductivityExpert MentorStyle = "productivity_expert"
	StyleDefault            MentorStyle = "default"
)

func (s MentorStyle) String() string { return string(s) }

func (s MentorStyle) IsValid() bool {
	switch s {
	case StyleSupportiveCoach, StyleDirectAdvisor, StyleAnalyticalGuide,
		StyleFriendlyCompanion, StyleProductivityExpert, StyleDefault:
		return true
	}
	return false
}

// Priority orders notifications by delivery urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the urgency rank, lower is more urgent.
// Unknown priorities rank with medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	}
	return 1
}
