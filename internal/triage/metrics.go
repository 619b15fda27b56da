package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/desk/internal/model"
)

// Summary is the "Today at your desk" headline.
type Summary struct {
	// Actionable counts threads awaiting a reply outside the Unassigned
	// and Cleared buckets.
	Actionable    int `json:"actionable"`
	Overdue       int `json:"overdue"`
	OldestWaiting int `json:"oldest_waiting"`
	Unassigned    int `json:"unassigned"`
}

// BucketMetrics summarizes one bucket.
type BucketMetrics struct {
	Bucket   model.Bucket `json:"bucket"`
	Count    int          `json:"count"`
	Awaiting int          `json:"awaiting"`
	Overdue  int          `json:"overdue"`
	Oldest   int          `json:"oldest"`
}

// Dashboard is the summary plus one entry per bucket in model.AllBuckets
// order.
type Dashboard struct {
	Summary Summary         `json:"summary"`
	Buckets []BucketMetrics `json:"buckets"`
}

// BuildDashboard computes the dashboard metrics for a snapshot.
func BuildDashboard(threads []model.Thread) Dashboard {
	var d Dashboard
	perBucket := make(map[model.Bucket]*BucketMetrics, len(model.AllBuckets))
	for _, b := range model.AllBuckets {
		perBucket[b] = &BucketMetrics{Bucket: b}
	}

	for _, t := range threads {
		if t.Bucket == model.BucketUnassigned {
			d.Summary.Unassigned++
		}

		if m, ok := perBucket[t.Bucket]; ok {
			m.Count++
			if t.AwaitingReply {
				m.Awaiting++
				if t.DaysUnresponded >= OverdueDays {
					m.Overdue++
				}
				m.Oldest = max(m.Oldest, t.DaysUnresponded)
			}
		}

		if !t.AwaitingReply || t.Bucket.IsTerminal() || t.Bucket == model.BucketUnassigned {
			continue
		}
		d.Summary.Actionable++
		if t.DaysUnresponded >= OverdueDays {
			d.Summary.Overdue++
		}
		d.Summary.OldestWaiting = max(d.Summary.OldestWaiting, t.DaysUnresponded)
	}

	for _, b := range model.AllBuckets {
		d.Buckets = append(d.Buckets, *perBucket[b])
	}
	return d
}

// Tab narrows a bucket view.
type Tab string

const (
	TabAll     Tab = "all"
	TabReply   Tab = "reply"
	TabOverdue Tab = "overdue"
	TabWaiting Tab = "waiting"
)

// ParseTab resolves a tab name; the empty string means TabAll.
func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case "", TabAll:
		return TabAll, nil
	case TabReply:
		return TabReply, nil
	case TabOverdue:
		return TabOverdue, nil
	case TabWaiting:
		return TabWaiting, nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

// Matches reports whether t belongs on tab.
func (tab Tab) Matches(t model.Thread, now time.Time) bool {
	switch tab {
	case TabReply:
		return t.AwaitingReply
	case TabOverdue:
		return (t.AwaitingReply && t.DaysUnresponded >= OverdueDays) || t.FollowUpPassed(now)
	case TabWaiting:
		return !t.AwaitingReply || t.FollowUpAt != nil
	default:
		return true
	}
}

// ThreadFilter selects threads for a bucket view.
type ThreadFilter struct {
	Bucket *model.Bucket
	Tab    Tab
	Query  string
}

// Filter returns the threads matching f, in snapshot order.
func Filter(threads []model.Thread, f ThreadFilter, now time.Time) []model.Thread {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	var out []model.Thread
	for _, t := range threads {
		if f.Bucket != nil && t.Bucket != *f.Bucket {
			continue
		}
		if !f.Tab.Matches(t, now) {
			continue
		}
		if query != "" && !matchesQuery(t, query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesQuery(t model.Thread, query string) bool {
	for _, field := range []string{t.Subject, t.FromName, t.Project} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Urgency grades how long a reply has been outstanding.
type Urgency int

const (
	UrgencyNone Urgency = iota
	UrgencyFresh
	UrgencyAging
	UrgencyOverdue
)

// UrgencyOf grades t by its wait.
func UrgencyOf(t model.Thread) Urgency {
	switch {
	case !t.AwaitingReply:
		return UrgencyNone
	case t.DaysUnresponded >= OverdueDays:
		return UrgencyOverdue
	case t.DaysUnresponded >= AgingDays:
		return UrgencyAging
	default:
		return UrgencyFresh
	}
}

// WaitingText renders the wait as shown next to a thread.
func WaitingText(t model.Thread) string {
	if !t.AwaitingReply {
		return ""
	}
	if t.DaysUnresponded == 0 {
		return "Waiting today"
	}
	return fmt.Sprintf("Waiting %dd", t.DaysUnresponded)
}
