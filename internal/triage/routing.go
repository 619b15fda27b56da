package triage

import (
	"strings"
	"time"

	"github.com/nhle/desk/internal/model"
)

// RuleSet is an immutable, insertion-ordered set of routing rules keyed by
// sender email. Sender addresses are compared case-insensitively after
// trimming whitespace.
type RuleSet struct {
	rules []model.RoutingRule
}

// NewRuleSet builds a rule set from rules. Later entries for the same
// sender replace earlier ones.
func NewRuleSet(rules ...model.RoutingRule) RuleSet {
	var rs RuleSet
	for _, r := range rules {
		rs = rs.Upsert(r.SenderEmail, r.TargetBucket, r.CreatedAt)
	}
	return rs
}

// NormalizeSender is the key routing rules are matched on.
func NormalizeSender(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Apply looks up the target bucket for senderEmail.
func (rs RuleSet) Apply(senderEmail string) (model.Bucket, bool) {
	key := NormalizeSender(senderEmail)
	if key == "" {
		return "", false
	}
	for _, r := range rs.rules {
		if NormalizeSender(r.SenderEmail) == key {
			return r.TargetBucket, true
		}
	}
	return "", false
}

// Upsert returns a new rule set where senderEmail routes to bucket. Any
// existing rule for the same sender is replaced (last write wins) and the
// new rule moves to the end.
func (rs RuleSet) Upsert(senderEmail string, bucket model.Bucket, at time.Time) RuleSet {
	key := NormalizeSender(senderEmail)
	if key == "" {
		return rs
	}

	next := make([]model.RoutingRule, 0, len(rs.rules)+1)
	for _, r := range rs.rules {
		if NormalizeSender(r.SenderEmail) != key {
			next = append(next, r)
		}
	}
	next = append(next, model.RoutingRule{
		SenderEmail:  key,
		TargetBucket: bucket,
		CreatedAt:    at,
	})
	return RuleSet{rules: next}
}

// Rules returns a copy of the rules in insertion order.
func (rs RuleSet) Rules() []model.RoutingRule {
	out := make([]model.RoutingRule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs RuleSet) Len() int {
	return len(rs.rules)
}
