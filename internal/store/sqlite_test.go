package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/store"
	"github.com/nhle/desk/internal/triage"
	"github.com/nhle/desk/tests/testutil"
)

func TestJournalRoundTrip(t *testing.T) {
	j := testutil.NewTestJournal(t)
	ctx := context.Background()

	s := baseState()
	s.Rules = triage.RuleSet{}.
		Upsert("b@b.com", model.BucketSales, now).
		Upsert("a@a.com", model.BucketInternal, now)
	follow := now.Add(24 * time.Hour)
	s = store.Reduce(s, store.SetFollowUp{ID: "t3", At: &follow}, now)
	s = store.Reduce(s, store.ToggleQuestionAnswered{ThreadID: "t1", MessageID: "t1-m1"}, now)

	if err := j.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got.Threads) != 3 {
		t.Fatalf("threads = %d, want 3", len(got.Threads))
	}
	for i, th := range got.Threads {
		if th.ID != s.Threads[i].ID {
			t.Fatalf("thread %d = %s, want %s", i, th.ID, s.Threads[i].ID)
		}
	}
	if got.Threads[2].FollowUpAt == nil || !got.Threads[2].FollowUpAt.Equal(follow) {
		t.Fatalf("follow-up lost: %v", got.Threads[2].FollowUpAt)
	}
	if !got.Threads[0].IsAnswered("t1-m1") {
		t.Fatal("answered question lost")
	}

	rules := got.Rules.Rules()
	if len(rules) != 2 || rules[0].SenderEmail != "b@b.com" || rules[1].SenderEmail != "a@a.com" {
		t.Fatalf("rules = %+v, want b@b.com then a@a.com", rules)
	}
	if b, ok := got.Rules.Apply("a@a.com"); !ok || b != model.BucketInternal {
		t.Fatalf("Apply(a@a.com) = %q, %v", b, ok)
	}
}

func TestJournalSaveReplaces(t *testing.T) {
	j := testutil.NewTestJournal(t)
	ctx := context.Background()

	if err := j.Save(ctx, baseState()); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	next := store.State{Threads: []model.Thread{testutil.Thread("only", "z@z.com", model.BucketInternal, now, 0)}}
	if err := j.Save(ctx, next); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Threads) != 1 || got.Threads[0].ID != "only" {
		t.Fatalf("threads = %+v, want only the second snapshot", got.Threads)
	}
}

func TestJournalEmpty(t *testing.T) {
	j := testutil.NewTestJournal(t)

	got, err := j.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Threads) != 0 || got.Rules.Len() != 0 || got.LastSyncAt != nil {
		t.Fatalf("empty journal loaded %+v", got)
	}
}

func TestJournalSyncRuns(t *testing.T) {
	j := testutil.NewTestJournal(t)
	ctx := context.Background()

	runs := []store.SyncRun{
		{Provider: "imap", StartedAt: now, FinishedAt: now.Add(time.Second), Threads: 4},
		{Provider: "imap", StartedAt: now.Add(time.Minute), FinishedAt: now.Add(time.Minute + time.Second), Error: "timeout"},
	}
	for _, r := range runs {
		if err := j.RecordSyncRun(ctx, r); err != nil {
			t.Fatalf("RecordSyncRun: %v", err)
		}
	}

	got, err := j.RecentSyncRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSyncRuns: %v", err)
	}
	if len(got) != 2 || got[0].Error != "timeout" || got[1].Threads != 4 {
		t.Fatalf("runs = %+v", got)
	}
	if got[0].ID == "" {
		t.Fatal("run recorded without an id")
	}

	s, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.LastSyncAt == nil || !s.LastSyncAt.Equal(now.Add(time.Second)) {
		t.Fatalf("LastSyncAt = %v, want the last successful run", s.LastSyncAt)
	}
}
