package store

import (
	"time"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/triage"
)

// State is the whole triage snapshot: the thread collection, the learned
// routing rules and the sync status.
type State struct {
	Threads []model.Thread
	Rules   triage.RuleSet

	// Syncing is true between SyncStarted and its outcome.
	Syncing bool

	// LastSyncAt is when the last successful sync was applied.
	LastSyncAt *time.Time

	// LastError is the message of the last failed sync, cleared on success.
	LastError string
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Threads = cloneThreads(s.Threads)
	if s.LastSyncAt != nil {
		t := *s.LastSyncAt
		out.LastSyncAt = &t
	}
	return out
}

// Find returns the index of the thread with id, or -1.
func (s State) Find(id string) int {
	for i := range s.Threads {
		if s.Threads[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneThreads(threads []model.Thread) []model.Thread {
	if threads == nil {
		return nil
	}
	out := make([]model.Thread, len(threads))
	for i, t := range threads {
		out[i] = t.Clone()
	}
	return out
}
