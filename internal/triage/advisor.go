package triage

import (
	"regexp"
	"strings"

	"github.com/nhle/desk/internal/model"
)

// KeywordSet maps a list of keywords to the bucket they suggest.
type KeywordSet struct {
	Bucket   model.Bucket
	Reason   string
	Keywords []string
}

// DefaultKeywordSets are checked in order; the first set with a hit wins.
// Delivery signals come before sales language on purpose.
var DefaultKeywordSets = []KeywordSet{
	{
		Bucket: model.BucketActiveProjects,
		Reason: "Delivery keyword found (PO/Invoice/Install)",
		Keywords: []string{
			"po", "invoice", "deposit", "approval", "shop drawing", "revision",
			"shipping", "tracking", "install", "schedule", "change order", "rfi",
		},
	},
	{
		Bucket: model.BucketSales,
		Reason: "Lead keyword found (Quote/Proposal/Bid)",
		Keywords: []string{
			"quote", "pricing", "estimate", "proposal", "sample", "rendering",
			"bid", "spec", "rfp", "intro",
		},
	},
	{
		Bucket: model.BucketInternal,
		Reason: "Ops keyword found",
		Keywords: []string{
			"ops", "accounting", "production", "team update", "payroll", "meeting",
		},
	},
}

// Suggestion is an advisory bucket for an unassigned thread.
type Suggestion struct {
	Bucket  model.Bucket `json:"bucket"`
	Reason  string       `json:"reason"`
	Keyword string       `json:"keyword"`
}

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

type compiledSet struct {
	set      KeywordSet
	patterns []keywordPattern
}

// Advisor suggests a bucket from the subject and snippet of a thread. It
// never changes the thread.
type Advisor struct {
	sets []compiledSet
}

// NewAdvisor compiles sets. A nil slice uses DefaultKeywordSets.
//
// Keywords of three letters or fewer match whole words, with an optional
// trailing "s" ("po" matches "PO #1182" but not "proposal"). Longer
// keywords match at the start of a word, and a final "e" is dropped, so
// "estimate" also hits "estimating" and "install" hits "installation".
func NewAdvisor(sets []KeywordSet) *Advisor {
	if sets == nil {
		sets = DefaultKeywordSets
	}
	a := &Advisor{}
	for _, s := range sets {
		cs := compiledSet{set: s}
		for _, kw := range s.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			cs.patterns = append(cs.patterns, keywordPattern{
				keyword: kw,
				re:      keywordRegexp(kw),
			})
		}
		a.sets = append(a.sets, cs)
	}
	return a
}

func keywordRegexp(kw string) *regexp.Regexp {
	if len(kw) <= 3 {
		return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `s?\b`)
	}
	if len(kw) >= 5 {
		kw = strings.TrimSuffix(kw, "e")
	}
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw))
}

// Suggest returns a suggestion for an Unassigned thread. Threads in any
// other bucket, and threads with no keyword hit, get none.
func (a *Advisor) Suggest(t model.Thread) (Suggestion, bool) {
	if t.Bucket != model.BucketUnassigned {
		return Suggestion{}, false
	}
	return a.Classify(t.Subject + " " + t.Snippet)
}

// Classify runs the keyword sets against arbitrary text.
func (a *Advisor) Classify(text string) (Suggestion, bool) {
	content := strings.ToLower(text)
	for _, cs := range a.sets {
		for _, p := range cs.patterns {
			if p.re.MatchString(content) {
				return Suggestion{
					Bucket:  cs.set.Bucket,
					Reason:  cs.set.Reason,
					Keyword: p.keyword,
				}, true
			}
		}
	}
	return Suggestion{}, false
}
