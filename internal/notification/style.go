package notification

import (
	"strings"

	"github.com/edgard/mentorbot/internal/domain"
)

const encouragement = "You've got this!"

// Decorate applies the tone of style to an already generated message.
// It only ever adds text; unknown styles leave the message unchanged.
func Decorate(style domain.MentorStyle, message string) string {
	switch style {
	case domain.StyleSupportiveCoach:
		return withSentenceEnd(message) + " " + encouragement
	case domain.StyleAnalyticalGuide:
		return "Analysis: " + message
	case domain.StyleFriendlyCompanion:
		return "Hey there! " + message
	case domain.StyleProductivityExpert:
		return "For optimal productivity: " + message
	case domain.StyleDirectAdvisor, domain.StyleDefault:
		return message
	}
	return message
}

func withSentenceEnd(message string) string {
	trimmed := strings.TrimRight(message, " ")
	if trimmed == "" || strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
		return trimmed
	}
	return trimmed + "."
}
