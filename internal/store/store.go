package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/desk/internal/model"
)

// ErrThreadNotFound is returned when a thread id is not in the snapshot.
var ErrThreadNotFound = errors.New("thread not found")

// Persister receives every committed state. The SQLite journal is the
// only implementation outside tests.
type Persister interface {
	Save(ctx context.Context, s State) error
}

// Store owns the triage state. Every write goes through Dispatch, which
// holds a single mutex for the whole reduce-persist-notify step, so
// reconciliation always observes a consistent rule set.
type Store struct {
	mu      sync.Mutex
	state   State
	now     func() time.Time
	persist Persister
	logger  *slog.Logger

	subMu       sync.Mutex
	subscribers map[int]chan State
	nextSub     int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPersister journals every committed state.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// WithLogger sets the logger used for journal failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store holding initial.
func New(initial State, opts ...Option) *Store {
	s := &Store{
		state:       initial.Clone(),
		now:         time.Now,
		logger:      slog.Default(),
		subscribers: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// Dispatch applies a and returns a copy of the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(a)
}

// DispatchWith builds an action from a copy of the current state and
// applies it under the same lock, so an action derived from the state
// (such as merging a sync into the snapshot) cannot race other writers.
// A nil action from build is a no-op.
func (s *Store) DispatchWith(build func(State) Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := build(s.state.Clone())
	if a == nil {
		return s.state.Clone()
	}
	return s.dispatchLocked(a)
}

func (s *Store) dispatchLocked(a Action) State {
	s.state = Reduce(s.state, a, s.now())

	if s.persist != nil {
		if err := s.persist.Save(context.Background(), s.state); err != nil {
			s.logger.Warn("journal write failed", "action", a.ActionName(), "error", err)
		}
	}

	snap := s.state.Clone()
	s.notify(snap)
	return snap
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Thread returns a copy of the thread with id.
func (s *Store) Thread(id string) (model.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.state.Find(id)
	if i < 0 {
		return model.Thread{}, ErrThreadNotFound
	}
	return s.state.Threads[i].Clone(), nil
}

// Subscribe returns a channel that receives the state after every
// dispatch, and a function that unsubscribes. Slow subscribers miss
// intermediate states rather than blocking writers.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	s.subscribers[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

func (s *Store) notify(snap State) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		// Drop the stale pending state, if any, so the latest one wins.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap.Clone():
		default:
		}
	}
}
