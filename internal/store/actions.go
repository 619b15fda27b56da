package store

import (
	"time"

	"github.com/nhle/desk/internal/model"
)

// Action is a state transition request. The set is closed: Reduce ignores
// any Action it does not recognize.
type Action interface {
	ActionName() string
}

// SetThreads replaces the thread collection as-is, without reconciling.
type SetThreads struct {
	Threads []model.Thread
}

// Reconcile re-runs the reconciler over every thread. It is what the
// periodic tick dispatches.
type Reconcile struct{}

// SyncStarted raises the syncing flag.
type SyncStarted struct{}

// SyncSucceeded replaces the thread collection with a freshly ingested one,
// reconciles it and clears the syncing flag in a single transition.
type SyncSucceeded struct {
	Threads []model.Thread
}

// SyncFailed clears the syncing flag and records the error. Threads are
// left untouched.
type SyncFailed struct {
	Err error
}

// MoveThread files a thread under Bucket. With ApplyRule set, a routing rule
// for the thread's sender is stored as well and applied to every other
// Unassigned thread from that sender.
type MoveThread struct {
	ID        string
	Bucket    model.Bucket
	ApplyRule bool
}

// SetPriority changes a thread's priority.
type SetPriority struct {
	ID       string
	Priority model.Priority
}

// TogglePin flips a thread's pinned flag.
type TogglePin struct {
	ID string
}

// Archive moves a thread to the Cleared bucket.
type Archive struct {
	ID string
}

// ToggleQuestionAnswered flips whether MessageID is marked answered.
type ToggleQuestionAnswered struct {
	ThreadID  string
	MessageID string
}

// SetFollowUp schedules a nudge, or clears it when At is nil.
type SetFollowUp struct {
	ID string
	At *time.Time
}

// AddRoutingRule stores a sender rule without moving any particular thread.
type AddRoutingRule struct {
	SenderEmail string
	Bucket      model.Bucket
}

func (SetThreads) ActionName() string             { return "set_threads" }
func (Reconcile) ActionName() string              { return "reconcile" }
func (SyncStarted) ActionName() string            { return "sync_started" }
func (SyncSucceeded) ActionName() string          { return "sync_succeeded" }
func (SyncFailed) ActionName() string             { return "sync_failed" }
func (MoveThread) ActionName() string             { return "move_thread" }
func (SetPriority) ActionName() string            { return "set_priority" }
func (TogglePin) ActionName() string              { return "toggle_pin" }
func (Archive) ActionName() string                { return "archive" }
func (ToggleQuestionAnswered) ActionName() string { return "toggle_question_answered" }
func (SetFollowUp) ActionName() string            { return "set_follow_up" }
func (AddRoutingRule) ActionName() string         { return "add_routing_rule" }
