package triage

import (
	"testing"

	"github.com/nhle/desk/internal/model"
)

func ids(threads []model.Thread) []string {
	out := make([]string, len(threads))
	for i, t := range threads {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildFocusUrgentExcludedFromNeedsReply(t *testing.T) {
	threads := []model.Thread{
		{ID: "hot", Bucket: model.BucketActiveProjects, Priority: model.PriorityHigh, AwaitingReply: true, DaysUnresponded: 6},
		{ID: "warm", Bucket: model.BucketSales, Priority: model.PriorityNormal, AwaitingReply: true, DaysUnresponded: 6},
	}

	q := BuildFocus(threads, testNow, 0)

	if !equalIDs(ids(q.Urgent.Threads), []string{"hot"}) {
		t.Fatalf("urgent = %v, want [hot]", ids(q.Urgent.Threads))
	}
	if !equalIDs(ids(q.NeedsReply.Threads), []string{"warm"}) {
		t.Fatalf("needsReply = %v, want [warm]", ids(q.NeedsReply.Threads))
	}
}

func TestBuildFocusPassedFollowUpIsUrgent(t *testing.T) {
	threads := []model.Thread{
		{ID: "nudge", Bucket: model.BucketWaiting, Priority: model.PriorityHigh, FollowUpAt: ptr(daysAgo(1))},
		{ID: "later", Bucket: model.BucketWaiting, Priority: model.PriorityHigh, FollowUpAt: ptr(testNow.Add(Day))},
	}

	q := BuildFocus(threads, testNow, 0)

	if !equalIDs(ids(q.Urgent.Threads), []string{"nudge"}) {
		t.Fatalf("urgent = %v, want [nudge]", ids(q.Urgent.Threads))
	}
	if !equalIDs(ids(q.FollowUps.Threads), []string{"nudge", "later"}) {
		t.Fatalf("followUps = %v, want [nudge later]", ids(q.FollowUps.Threads))
	}
}

func TestBuildFocusSkipsCleared(t *testing.T) {
	threads := []model.Thread{
		{ID: "done", Bucket: model.BucketCleared, Priority: model.PriorityHigh, AwaitingReply: true, DaysUnresponded: 10},
		{ID: "done2", Bucket: model.BucketCleared, FollowUpAt: ptr(daysAgo(1))},
	}

	q := BuildFocus(threads, testNow, 0)

	if q.Urgent.Total+q.NeedsReply.Total+q.FollowUps.Total != 0 {
		t.Fatalf("cleared threads leaked into focus: %+v", q)
	}
}

func TestBuildFocusSortsPinnedThenPriority(t *testing.T) {
	threads := []model.Thread{
		{ID: "low", Bucket: model.BucketSales, Priority: model.PriorityLow, AwaitingReply: true},
		{ID: "normal", Bucket: model.BucketSales, Priority: model.PriorityNormal, AwaitingReply: true},
		{ID: "pinned-low", Bucket: model.BucketSales, Priority: model.PriorityLow, AwaitingReply: true, Pinned: true},
		{ID: "high", Bucket: model.BucketSales, Priority: model.PriorityHigh, AwaitingReply: true},
		{ID: "normal2", Bucket: model.BucketSales, Priority: model.PriorityNormal, AwaitingReply: true},
	}

	q := BuildFocus(threads, testNow, 0)

	want := []string{"pinned-low", "high", "normal", "normal2", "low"}
	if got := ids(q.NeedsReply.Threads); !equalIDs(got, want) {
		t.Fatalf("needsReply order = %v, want %v", got, want)
	}
}

func TestBuildFocusLimitKeepsTotal(t *testing.T) {
	var threads []model.Thread
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		threads = append(threads, model.Thread{ID: id, Bucket: model.BucketSales, Priority: model.PriorityNormal, AwaitingReply: true})
	}

	q := BuildFocus(threads, testNow, 5)

	if len(q.NeedsReply.Threads) != 5 {
		t.Fatalf("len = %d, want 5", len(q.NeedsReply.Threads))
	}
	if q.NeedsReply.Total != 7 {
		t.Fatalf("total = %d, want 7", q.NeedsReply.Total)
	}
}

func TestBuildFocusQueuesNeverOverlap(t *testing.T) {
	threads := []model.Thread{
		{ID: "1", Bucket: model.BucketSales, Priority: model.PriorityHigh, AwaitingReply: true, DaysUnresponded: 4},
		{ID: "2", Bucket: model.BucketSales, Priority: model.PriorityHigh, AwaitingReply: true, DaysUnresponded: 3},
		{ID: "3", Bucket: model.BucketInternal, Priority: model.PriorityLow, AwaitingReply: true, DaysUnresponded: 9},
		{ID: "4", Bucket: model.BucketWaiting, Priority: model.PriorityHigh, FollowUpAt: ptr(daysAgo(2))},
	}

	q := BuildFocus(threads, testNow, 0)

	seen := map[string]bool{}
	for _, id := range ids(q.Urgent.Threads) {
		seen[id] = true
	}
	for _, id := range ids(q.NeedsReply.Threads) {
		if seen[id] {
			t.Fatalf("thread %s in both Urgent and NeedsReply", id)
		}
	}
	if !equalIDs(ids(q.Urgent.Threads), []string{"1", "4"}) {
		t.Fatalf("urgent = %v, want [1 4]", ids(q.Urgent.Threads))
	}
}

func TestSortForFocusDoesNotMutate(t *testing.T) {
	threads := []model.Thread{
		{ID: "a", Priority: model.PriorityLow},
		{ID: "b", Priority: model.PriorityHigh},
	}

	_ = SortForFocus(threads)

	if threads[0].ID != "a" {
		t.Fatal("SortForFocus reordered its input")
	}
}
