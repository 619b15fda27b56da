package store

import (
	"slices"
	"time"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/triage"
)

// Reduce applies a to s and returns the next state. It never mutates s:
// changed threads are cloned and the thread slice is copied on write.
// Actions naming an unknown thread, carrying an invalid bucket or
// priority, or of an unknown type leave the state unchanged.
func Reduce(s State, a Action, now time.Time) State {
	switch a := a.(type) {
	case SetThreads:
		s.Threads = cloneThreads(a.Threads)

	case Reconcile:
		s.Threads = triage.ReconcileAll(s.Threads, s.Rules, now)

	case SyncStarted:
		s.Syncing = true

	case SyncSucceeded:
		s.Threads = triage.ReconcileAll(a.Threads, s.Rules, now)
		s.Syncing = false
		s.LastSyncAt = &now
		s.LastError = ""

	case SyncFailed:
		s.Syncing = false
		s.LastError = "sync failed"
		if a.Err != nil {
			s.LastError = a.Err.Error()
		}

	case MoveThread:
		i := s.Find(a.ID)
		if i < 0 || !a.Bucket.Valid() {
			return s
		}
		if a.ApplyRule {
			s.Rules = s.Rules.Upsert(s.Threads[i].FromEmail, a.Bucket, now)
		}
		s = update(s, i, func(t *model.Thread) { t.Bucket = a.Bucket })
		if a.ApplyRule {
			s.Threads = route(s.Threads, s.Rules)
		}

	case SetPriority:
		i := s.Find(a.ID)
		if i < 0 || !a.Priority.Valid() {
			return s
		}
		s = update(s, i, func(t *model.Thread) { t.Priority = a.Priority })

	case TogglePin:
		if i := s.Find(a.ID); i >= 0 {
			s = update(s, i, func(t *model.Thread) { t.Pinned = !t.Pinned })
		}

	case Archive:
		if i := s.Find(a.ID); i >= 0 {
			s = update(s, i, func(t *model.Thread) { t.Bucket = model.BucketCleared })
		}

	case ToggleQuestionAnswered:
		i := s.Find(a.ThreadID)
		if i < 0 || !hasMessage(s.Threads[i], a.MessageID) {
			return s
		}
		s = update(s, i, func(t *model.Thread) {
			if j := slices.Index(t.AnsweredQuestionIDs, a.MessageID); j >= 0 {
				t.AnsweredQuestionIDs = slices.Delete(t.AnsweredQuestionIDs, j, j+1)
			} else {
				t.AnsweredQuestionIDs = append(t.AnsweredQuestionIDs, a.MessageID)
			}
		})

	case SetFollowUp:
		i := s.Find(a.ID)
		if i < 0 {
			return s
		}
		s = update(s, i, func(t *model.Thread) {
			t.FollowUpAt = nil
			if a.At != nil {
				at := *a.At
				t.FollowUpAt = &at
			}
		})

	case AddRoutingRule:
		if !a.Bucket.Valid() || triage.NormalizeSender(a.SenderEmail) == "" {
			return s
		}
		s.Rules = s.Rules.Upsert(a.SenderEmail, a.Bucket, now)
		s.Threads = route(s.Threads, s.Rules)
	}

	return s
}

// update returns s with thread i replaced by a modified clone.
func update(s State, i int, fn func(*model.Thread)) State {
	threads := make([]model.Thread, len(s.Threads))
	copy(threads, s.Threads)
	t := threads[i].Clone()
	fn(&t)
	threads[i] = t
	s.Threads = threads
	return s
}

// route files Unassigned threads that now have a rule, copying the slice
// only when something moves.
func route(threads []model.Thread, rules triage.RuleSet) []model.Thread {
	var out []model.Thread
	for i, t := range threads {
		if t.Bucket != model.BucketUnassigned {
			continue
		}
		target, ok := rules.Apply(t.FromEmail)
		if !ok {
			continue
		}
		if out == nil {
			out = make([]model.Thread, len(threads))
			copy(out, threads)
		}
		moved := t.Clone()
		moved.Bucket = target
		out[i] = moved
	}
	if out == nil {
		return threads
	}
	return out
}

func hasMessage(t model.Thread, id string) bool {
	for _, m := range t.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}
