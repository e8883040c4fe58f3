package analyzer

import (
	"regexp"
	"strings"
)

var positiveWords = wordSet(
	"good", "great", "excellent", "amazing", "awesome", "happy", "glad", "love",
	"like", "enjoy", "enjoyed", "wonderful", "fantastic", "nice", "perfect",
	"excited", "thanks", "thank", "success", "successful", "progress", "proud",
	"fun", "better", "best", "productive", "helpful", "positive", "appreciate",
	"pleased", "brilliant", "calm", "relaxed",
)

var negativeWords = wordSet(
	"bad", "terrible", "awful", "horrible", "sad", "angry", "upset", "hate",
	"frustrated", "frustrating", "annoyed", "annoying", "stressed", "stressful",
	"worried", "worry", "tired", "exhausted", "difficult", "problem", "problems",
	"fail", "failed", "failure", "wrong", "worse", "worst", "disappointed",
	"anxious", "overwhelmed", "sick", "hurt", "negative", "boring", "lonely",
	"unfortunately", "miserable", "struggling",
)

type topicCategory struct {
	name string
	re   *regexp.Regexp
}

// topicCategories is in declaration order, which breaks count ties.
var topicCategories = []topicCategory{
	category("work", "work", "working", "job", "meeting", "meetings", "project", "projects",
		"deadline", "deadlines", "report", "reports", "boss", "manager", "client", "clients",
		"office", "colleague", "colleagues", "presentation", "team"),
	category("health", "health", "doctor", "exercise", "workout", "gym", "sleep", "diet",
		"sick", "medicine", "running", "yoga", "hospital", "therapy"),
	category("family", "family", "mom", "dad", "mother", "father", "kids", "children", "son",
		"daughter", "wife", "husband", "parents", "brother", "sister"),
	category("finance", "money", "budget", "bank", "salary", "invest", "investment", "savings",
		"bill", "bills", "expense", "expenses", "rent", "tax", "taxes"),
	category("technology", "computer", "software", "code", "coding", "app", "phone",
		"internet", "ai", "tech", "programming", "laptop", "bug", "server"),
	category("education", "learn", "learning", "study", "course", "class", "school",
		"university", "book", "books", "reading", "lesson", "exam", "training"),
	category("social", "friend", "friends", "party", "social", "hangout", "birthday",
		"wedding", "community", "neighbors"),
	category("travel", "travel", "trip", "flight", "vacation", "hotel", "airport",
		"holiday", "journey", "passport"),
	category("food", "food", "lunch", "breakfast", "dinner", "cook", "cooking",
		"restaurant", "eat", "eating", "meal", "recipe"),
	category("entertainment", "movie", "movies", "music", "game", "games", "show",
		"concert", "netflix", "series", "sport", "sports"),
}

// actionPhrases are tested in order by lower-case containment.
var actionPhrases = []string{
	"need to", "needs to", "have to", "has to", "should", "must", "going to",
	"got to", "gotta", "remember to", "don't forget", "make sure", "follow up",
	"todo", "to-do", "i will", "we will", "i'll", "we'll", "plan to", "let's",
}

// fillerPrefix strips leading filler, the speaker and the action lead-in.
var fillerPrefix = regexp.MustCompile(`(?i)^\s*` +
	`(?:(?:so|and|but|also|then|well|okay|ok|um|uh|oh|yeah|just|actually|basically|please|hey)[\s,]+)*` +
	`(?:(?:i|we|you|they|he|she)(?:'ll)?\s+)?` +
	`(?:(?:really|definitely|also|still|just|probably)\s+)?` +
	`(?:(?:need|needs|have|has|got|want|wants|plan|plans|going|remember)\s+to\s+|should\s+|must\s+|gotta\s+|will\s+|don't\s+forget\s+to\s+|make\s+sure\s+to\s+|let's\s+)?`)

var urgentRe = regexp.MustCompile(`\b(?:urgent|urgently|asap|immediately|today|tonight|tomorrow|deadline|eod|now)\b|right away`)

var (
	meetingRe   = regexp.MustCompile(`\b(?:meeting|meetings|call|presentation|interview|demo|standup|appointment|sync)\b`)
	futureRe    = regexp.MustCompile(`\b(?:tomorrow|tonight|later|next|upcoming|soon|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b|this (?:morning|afternoon|evening|week)`)
	focusRe     = regexp.MustCompile(`\b(?:busy|swamped|distracted|distractions|interrupted|interruptions|focus|concentrate|procrastinating|multitasking)\b`)
	wellbeingRe = regexp.MustCompile(`\b(?:tired|exhausted|stressed|burnout|anxious|overwhelmed|headache|sleepless|insomnia)\b|burned out`)
	learningRe  = regexp.MustCompile(`\b(?:learn|learning|course|study|studying|tutorial|workshop|certification)\b`)
	socialRe    = regexp.MustCompile(`\b(?:friend|friends|party|birthday|reunion|wedding)\b|hang out|catch up`)
)

var (
	tokenRe    = regexp.MustCompile(`[a-z0-9']+`)
	sentenceRe = regexp.MustCompile(`[.!?]+`)
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func category(name string, keywords ...string) topicCategory {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return topicCategory{
		name: name,
		re:   regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}
