package store_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/store"
	"github.com/nhle/desk/internal/triage"
	"github.com/nhle/desk/tests/testutil"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func baseState() store.State {
	return store.State{
		Threads: []model.Thread{
			testutil.Thread("t1", "x@y.com", model.BucketUnassigned, now, 5),
			testutil.Thread("t2", "x@y.com", model.BucketUnassigned, now, 1),
			testutil.Thread("t3", "lead@buyer.com", model.BucketSales, now, 2),
		},
	}
}

type unknownAction struct{}

func (unknownAction) ActionName() string { return "unknown" }

func TestReduceUnknownActionIsNoOp(t *testing.T) {
	s := baseState()
	got := store.Reduce(s, unknownAction{}, now)
	if !reflect.DeepEqual(got, s) {
		t.Fatalf("unknown action changed state")
	}
}

func TestReduceUnknownThreadIsNoOp(t *testing.T) {
	s := baseState()
	actions := []store.Action{
		store.MoveThread{ID: "missing", Bucket: model.BucketSales, ApplyRule: true},
		store.SetPriority{ID: "missing", Priority: model.PriorityHigh},
		store.TogglePin{ID: "missing"},
		store.Archive{ID: "missing"},
		store.ToggleQuestionAnswered{ThreadID: "missing", MessageID: "m"},
		store.SetFollowUp{ID: "missing", At: &now},
	}
	for _, a := range actions {
		if got := store.Reduce(s, a, now); !reflect.DeepEqual(got, s) {
			t.Errorf("%s on unknown thread changed state", a.ActionName())
		}
	}
}

func TestReduceRejectsInvalidValues(t *testing.T) {
	s := baseState()
	if got := store.Reduce(s, store.MoveThread{ID: "t1", Bucket: "Spam"}, now); !reflect.DeepEqual(got, s) {
		t.Fatal("invalid bucket was accepted")
	}
	if got := store.Reduce(s, store.SetPriority{ID: "t1", Priority: "Urgent"}, now); !reflect.DeepEqual(got, s) {
		t.Fatal("invalid priority was accepted")
	}
}

func TestReduceMoveWithRuleRoutesSameSender(t *testing.T) {
	s := baseState()

	got := store.Reduce(s, store.MoveThread{ID: "t1", Bucket: model.BucketActiveProjects, ApplyRule: true}, now)

	if got.Threads[0].Bucket != model.BucketActiveProjects {
		t.Fatalf("moved thread bucket = %q", got.Threads[0].Bucket)
	}
	if got.Threads[1].Bucket != model.BucketActiveProjects {
		t.Fatalf("same-sender thread bucket = %q, want routed", got.Threads[1].Bucket)
	}
	if b, ok := got.Rules.Apply("X@Y.com"); !ok || b != model.BucketActiveProjects {
		t.Fatalf("rule = %q, %v", b, ok)
	}
	if s.Threads[0].Bucket != model.BucketUnassigned || s.Rules.Len() != 0 {
		t.Fatal("Reduce mutated its input state")
	}
}

func TestReduceMoveWithoutRule(t *testing.T) {
	s := baseState()

	got := store.Reduce(s, store.MoveThread{ID: "t1", Bucket: model.BucketSales}, now)

	if got.Rules.Len() != 0 {
		t.Fatal("move without opt-in created a rule")
	}
	if got.Threads[1].Bucket != model.BucketUnassigned {
		t.Fatal("move without opt-in touched another thread")
	}
}

func TestReduceRuleNeverMovesAssignedThreads(t *testing.T) {
	s := baseState()

	got := store.Reduce(s, store.AddRoutingRule{SenderEmail: "lead@buyer.com", Bucket: model.BucketInternal}, now)

	if got.Threads[2].Bucket != model.BucketSales {
		t.Fatalf("assigned thread moved to %q", got.Threads[2].Bucket)
	}
	if got.Rules.Len() != 1 {
		t.Fatalf("rules = %d, want 1", got.Rules.Len())
	}
}

func TestReduceManualActions(t *testing.T) {
	s := baseState()
	follow := now.Add(24 * time.Hour)

	s = store.Reduce(s, store.SetPriority{ID: "t3", Priority: model.PriorityHigh}, now)
	s = store.Reduce(s, store.TogglePin{ID: "t3"}, now)
	s = store.Reduce(s, store.SetFollowUp{ID: "t3", At: &follow}, now)

	th := s.Threads[2]
	if th.Priority != model.PriorityHigh || !th.Pinned || th.FollowUpAt == nil || !th.FollowUpAt.Equal(follow) {
		t.Fatalf("thread after actions = %+v", th)
	}

	s = store.Reduce(s, store.TogglePin{ID: "t3"}, now)
	s = store.Reduce(s, store.SetFollowUp{ID: "t3"}, now)
	s = store.Reduce(s, store.Archive{ID: "t3"}, now)

	th = s.Threads[2]
	if th.Pinned || th.FollowUpAt != nil || th.Bucket != model.BucketCleared {
		t.Fatalf("thread after second round = %+v", th)
	}
}

func TestReduceToggleQuestionAnswered(t *testing.T) {
	s := baseState()

	s = store.Reduce(s, store.ToggleQuestionAnswered{ThreadID: "t1", MessageID: "t1-m1"}, now)
	if !s.Threads[0].IsAnswered("t1-m1") {
		t.Fatal("question not marked answered")
	}

	s = store.Reduce(s, store.ToggleQuestionAnswered{ThreadID: "t1", MessageID: "t1-m1"}, now)
	if s.Threads[0].IsAnswered("t1-m1") {
		t.Fatal("question still answered after second toggle")
	}

	before := s
	s = store.Reduce(s, store.ToggleQuestionAnswered{ThreadID: "t1", MessageID: "not-a-message"}, now)
	if !reflect.DeepEqual(s, before) {
		t.Fatal("toggling an unknown message changed state")
	}
}

func TestReduceSyncLifecycle(t *testing.T) {
	s := baseState()
	s.Rules = triage.NewRuleSet(model.RoutingRule{SenderEmail: "new@lead.com", TargetBucket: model.BucketSales})

	s = store.Reduce(s, store.SyncStarted{}, now)
	if !s.Syncing {
		t.Fatal("syncing flag not raised")
	}

	failed := store.Reduce(s, store.SyncFailed{Err: errors.New("provider unreachable")}, now)
	if failed.Syncing || failed.LastError != "provider unreachable" {
		t.Fatalf("after failure: syncing=%v err=%q", failed.Syncing, failed.LastError)
	}
	if !reflect.DeepEqual(failed.Threads, s.Threads) {
		t.Fatal("failed sync touched the snapshot")
	}

	fresh := []model.Thread{testutil.Thread("n1", "new@lead.com", model.BucketUnassigned, now, 3)}
	ok := store.Reduce(s, store.SyncSucceeded{Threads: fresh}, now)
	if ok.Syncing || ok.LastSyncAt == nil || ok.LastError != "" {
		t.Fatalf("after success: %+v", ok)
	}
	if len(ok.Threads) != 1 || ok.Threads[0].Bucket != model.BucketSales || ok.Threads[0].DaysUnresponded != 3 {
		t.Fatalf("synced threads not reconciled: %+v", ok.Threads)
	}
}

func TestReduceReconcileTick(t *testing.T) {
	s := baseState()
	later := now.Add(48 * time.Hour)

	s = store.Reduce(s, store.Reconcile{}, now)
	s = store.Reduce(s, store.Reconcile{}, later)

	if s.Threads[0].DaysUnresponded != 7 {
		t.Fatalf("daysUnresponded = %d, want 7", s.Threads[0].DaysUnresponded)
	}
}
