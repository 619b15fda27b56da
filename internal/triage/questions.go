package triage

import (
	"regexp"
	"strings"

	"github.com/nhle/desk/internal/model"
)

// DefaultAskPhrases are the request phrasings that, together with the
// operator's name, mark a message as an ask.
var DefaultAskPhrases = []string{
	"can you",
	"could you",
	"do you",
	"what do you think",
	"confirm",
	"sign-off",
	"waiting on you",
	"let me know",
}

var secondPersonPattern = regexp.MustCompile(`(?i)\byou(?:rs?|rself)?\b`)

// QuestionExtractor flags inbound messages that ask the operator for
// something. It favors recall: a rhetorical question flagged by mistake is
// acceptable, a missed ask is not.
type QuestionExtractor struct {
	operator    model.Operator
	namePattern *regexp.Regexp
	phrases     []*regexp.Regexp
}

// NewQuestionExtractor builds an extractor for op. A nil phrases slice uses
// DefaultAskPhrases.
func NewQuestionExtractor(op model.Operator, phrases []string) *QuestionExtractor {
	if phrases == nil {
		phrases = DefaultAskPhrases
	}

	e := &QuestionExtractor{operator: op}
	if token := op.NameToken(); token != "" {
		e.namePattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(token))
	}
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		e.phrases = append(e.phrases, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
	}
	return e
}

// Extract returns, in order, the messages that are open asks directed at
// the operator. Whether the operator has since answered them is tracked on
// the thread, not here.
func (e *QuestionExtractor) Extract(messages []model.Message) []model.Message {
	var out []model.Message
	for _, m := range messages {
		if e.IsQuestion(m) {
			out = append(out, m)
		}
	}
	return out
}

// IsQuestion reports whether a single message qualifies as an ask.
func (e *QuestionExtractor) IsQuestion(m model.Message) bool {
	if e.operator.Authored(m.Sender, m.SenderEmail) {
		return false
	}

	text := m.Body
	hasQuestionMark := strings.Contains(text, "?")
	mentionsOperator := e.namePattern != nil && e.namePattern.MatchString(text)

	if mentionsOperator && (hasQuestionMark || e.matchesPhrase(text)) {
		return true
	}
	return hasQuestionMark && secondPersonPattern.MatchString(text)
}

func (e *QuestionExtractor) matchesPhrase(text string) bool {
	for _, p := range e.phrases {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// QuestionStatus is an extracted ask paired with its answered flag.
type QuestionStatus struct {
	Message  model.Message `json:"message"`
	Answered bool          `json:"answered"`
}

// Questions extracts the asks in t and marks the ones the operator has
// resolved.
func (e *QuestionExtractor) Questions(t model.Thread) []QuestionStatus {
	asks := e.Extract(t.Messages)
	out := make([]QuestionStatus, 0, len(asks))
	for _, m := range asks {
		out = append(out, QuestionStatus{Message: m, Answered: t.IsAnswered(m.ID)})
	}
	return out
}

// OpenCount returns how many asks in t are still unanswered.
func (e *QuestionExtractor) OpenCount(t model.Thread) int {
	n := 0
	for _, q := range e.Questions(t) {
		if !q.Answered {
			n++
		}
	}
	return n
}
