// Package triage holds the pure triage engine: reply-state reconciliation,
// sender routing rules, open-question extraction, bucket suggestions and
// the focus queues. Nothing in here performs I/O or mutates its inputs.
package triage

import (
	"time"

	"github.com/nhle/desk/internal/model"
)

// Day is the unit daysUnresponded is measured in.
const Day = 24 * time.Hour

// DefaultReconcileInterval is how often the reconcile tick runs when
// nothing else is configured.
const DefaultReconcileInterval = 5 * time.Minute

// Reconcile recomputes the reply-wait state and effective bucket of t.
//
// An outbound message strictly newer than the last inbound one means the
// operator replied outside the dashboard: the thread stops awaiting a reply
// and any follow-up is dropped. An Unassigned thread is moved to the target
// of a matching routing rule; this is the only automatic bucket change.
// Finally daysUnresponded is derived from lastInboundAt, clamped at zero.
//
// Reconcile is idempotent for a fixed now and rule set.
func Reconcile(t model.Thread, rules RuleSet, now time.Time) model.Thread {
	out := t.Clone()

	if RepliedExternally(t) {
		out.AwaitingReply = false
	}
	if !out.AwaitingReply {
		out.FollowUpAt = nil
	}

	if out.Bucket == model.BucketUnassigned {
		if target, ok := rules.Apply(out.FromEmail); ok {
			out.Bucket = target
		}
	}

	out.DaysUnresponded = 0
	if out.AwaitingReply {
		out.DaysUnresponded = DaysSince(out.LastInboundAt, now)
	}

	return out
}

// ReconcileAll reconciles every thread against the same rule set and
// clock reading.
func ReconcileAll(threads []model.Thread, rules RuleSet, now time.Time) []model.Thread {
	out := make([]model.Thread, len(threads))
	for i, t := range threads {
		out[i] = Reconcile(t, rules, now)
	}
	return out
}

// RepliedExternally reports whether the last outbound message is strictly
// newer than the last inbound one. A thread with no outbound message never
// counts as replied.
func RepliedExternally(t model.Thread) bool {
	return t.LastOutboundAt != nil && t.LastOutboundAt.After(t.LastInboundAt)
}

// DaysSince returns the whole days elapsed between since and now. Clock
// skew that puts since in the future yields zero.
func DaysSince(since, now time.Time) int {
	elapsed := now.Sub(since)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / Day)
}
