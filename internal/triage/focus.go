package triage

import (
	"sort"
	"time"

	"github.com/nhle/desk/internal/model"
)

// OverdueDays is the wait after which an awaited reply counts as overdue.
const OverdueDays = 4

// AgingDays is the wait after which an awaited reply is highlighted.
const AgingDays = 2

// Queue is one bounded focus list. Total counts every qualifying thread,
// including the ones cut by the limit.
type Queue struct {
	Threads []model.Thread `json:"threads"`
	Total   int            `json:"total"`
}

// FocusQueues are the three prioritized action lists.
type FocusQueues struct {
	// Urgent ("Do Now"): high priority and either overdue or past its
	// follow-up date.
	Urgent Queue `json:"urgent"`

	// NeedsReply: awaiting a reply and not already in Urgent.
	NeedsReply Queue `json:"needs_reply"`

	// FollowUps: a follow-up is scheduled and no reply is awaited.
	FollowUps Queue `json:"follow_ups"`
}

// IsUrgent reports whether t belongs in the Do Now queue.
func IsUrgent(t model.Thread, now time.Time) bool {
	if t.Bucket.IsTerminal() || t.Priority != model.PriorityHigh {
		return false
	}
	overdue := t.AwaitingReply && t.DaysUnresponded >= OverdueDays
	return overdue || t.FollowUpPassed(now)
}

// BuildFocus derives the focus queues from a reconciled snapshot. Urgent is
// computed first and its members are subtracted, by ID, from NeedsReply,
// so the two never overlap. Each queue is sorted pinned-first, then by
// priority rank, keeping snapshot order for ties, and cut to limit
// entries (limit <= 0 means unbounded).
func BuildFocus(threads []model.Thread, now time.Time, limit int) FocusQueues {
	var urgent, needsReply, followUps []model.Thread
	urgentIDs := make(map[string]bool)

	for _, t := range threads {
		if IsUrgent(t, now) {
			urgent = append(urgent, t)
			urgentIDs[t.ID] = true
		}
	}

	for _, t := range threads {
		if t.Bucket.IsTerminal() {
			continue
		}
		if t.AwaitingReply && !urgentIDs[t.ID] {
			needsReply = append(needsReply, t)
		}
		if t.FollowUpAt != nil && !t.AwaitingReply {
			followUps = append(followUps, t)
		}
	}

	return FocusQueues{
		Urgent:     bound(SortForFocus(urgent), limit),
		NeedsReply: bound(SortForFocus(needsReply), limit),
		FollowUps:  bound(SortForFocus(followUps), limit),
	}
}

// SortForFocus returns a copy of threads ordered pinned-first, then by
// ascending priority rank. The sort is stable.
func SortForFocus(threads []model.Thread) []model.Thread {
	out := make([]model.Thread, len(threads))
	copy(out, threads)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		return a.Priority.Rank() < b.Priority.Rank()
	})
	return out
}

func bound(threads []model.Thread, limit int) Queue {
	q := Queue{Threads: threads, Total: len(threads)}
	if limit > 0 && len(threads) > limit {
		q.Threads = threads[:limit]
	}
	return q
}
