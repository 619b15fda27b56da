// Package sync drives the provider fetch and the periodic reconcile tick
// against the triage store. All state changes go through the store, so
// the engine never touches threads directly.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/desk/internal/ingest"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/internal/store"
	"github.com/nhle/desk/internal/triage"
)

// ErrNoProvider is returned by SyncOnce when no provider is configured.
var ErrNoProvider = errors.New("no message provider configured")

// ErrSyncInProgress is returned by SyncOnce when another sync is running.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncResultMsg is a tea.Msg sent when a sync attempt completes.
type SyncResultMsg struct {
	Provider   string
	Threads    int
	NewThreads int
	Error      error
	AuthError  *AuthErrorMsg
	At         time.Time
}

// AuthErrorMsg is a tea.Msg sent when the provider rejects credentials.
type AuthErrorMsg struct {
	Provider string
	Message  string
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// RunRecorder records sync attempts. *store.Journal satisfies it.
type RunRecorder interface {
	RecordSyncRun(ctx context.Context, run store.SyncRun) error
}

// Config tunes the engine loop.
type Config struct {
	// MaxThreads bounds a single fetch.
	MaxThreads int

	// PollInterval is the automatic sync period; 0 disables polling.
	PollInterval time.Duration

	// ReconcileInterval is the reconcile tick period.
	ReconcileInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder records every sync attempt in r.
func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine fetches from the provider and dispatches the results.
type Engine struct {
	store      *store.Store
	provider   source.Provider
	normalizer *ingest.Normalizer
	cfg        Config
	recorder   RunRecorder
	logger     *slog.Logger

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	cancel    context.CancelFunc
	wg        gosync.WaitGroup

	mu      gosync.Mutex
	running bool
	syncing bool
}

// New creates an Engine. provider may be nil, in which case only the
// reconcile tick runs and SyncOnce returns ErrNoProvider.
func New(st *store.Store, provider source.Provider, n *ingest.Normalizer, cfg Config, opts ...Option) *Engine {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = triage.DefaultReconcileInterval
	}
	e := &Engine{
		store:      st,
		provider:   provider,
		normalizer: n,
		cfg:        cfg,
		logger:     slog.Default(),
		resultCh:   make(chan SyncResultMsg, 16),
		triggerCh:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProviderName returns the configured provider's name, or "none".
func (e *Engine) ProviderName() string {
	if e.provider == nil {
		return "none"
	}
	return e.provider.Name()
}

// Start launches the engine loop. It syncs once immediately when a
// provider is configured. Calling Start on a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	ctx, e.cancel = context.WithCancel(ctx)
	stopCh := e.stopCh
	e.mu.Unlock()

	e.wg.Add(1)
	go e.loop(ctx, stopCh)
}

// Stop halts the loop and waits for it to exit. No dispatch happens
// after Stop returns, except from callers of SyncOnce.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
}

// Trigger asks the running loop for an immediate sync. Extra triggers
// while one is pending are dropped.
func (e *Engine) Trigger() {
	select {
	case e.triggerCh <- struct{}{}:
	default:
	}
}

func (e *Engine) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer e.wg.Done()

	reconcile := time.NewTicker(e.cfg.ReconcileInterval)
	defer reconcile.Stop()

	var pollC <-chan time.Time
	if e.cfg.PollInterval > 0 && e.provider != nil {
		poll := time.NewTicker(e.cfg.PollInterval)
		defer poll.Stop()
		pollC = poll.C
	}

	if e.provider != nil {
		e.runSync(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-reconcile.C:
			e.store.Dispatch(store.Reconcile{})
		case <-pollC:
			e.runSync(ctx)
		case <-e.triggerCh:
			e.runSync(ctx)
		}
	}
}

func (e *Engine) runSync(ctx context.Context) {
	res, err := e.SyncOnce(ctx)
	if errors.Is(err, ErrSyncInProgress) || errors.Is(err, ErrNoProvider) {
		return
	}
	e.sendResult(res)
}

// SyncOnce performs one fetch-and-merge. The store is marked syncing
// for the duration; a failure leaves the existing threads untouched.
func (e *Engine) SyncOnce(ctx context.Context) (SyncResultMsg, error) {
	if e.provider == nil {
		return SyncResultMsg{}, ErrNoProvider
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return SyncResultMsg{}, ErrSyncInProgress
	}
	e.syncing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	name := e.provider.Name()
	started := e.store.Now()
	e.store.Dispatch(store.SyncStarted{})

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	summaries, err := e.provider.FetchThreads(fetchCtx, e.cfg.MaxThreads)
	if err != nil {
		e.logger.Warn("sync failed", "provider", name, "error", err)
		e.store.Dispatch(store.SyncFailed{Err: err})
		e.record(name, started, 0, err)

		res := SyncResultMsg{Provider: name, Error: err, At: e.store.Now()}
		if source.IsAuthError(err) {
			res.AuthError = &AuthErrorMsg{
				Provider: name,
				Message:  fmt.Sprintf("%s: authentication failed. Run `desk auth %s` to reconnect.", name, name),
			}
		}
		return res, err
	}

	var total, fresh int
	e.store.DispatchWith(func(s store.State) store.Action {
		threads := e.normalizer.Normalize(summaries, s.Threads)
		total = len(threads)
		for _, t := range threads {
			if s.Find(t.ID) < 0 {
				fresh++
			}
		}
		return store.SyncSucceeded{Threads: threads}
	})

	e.logger.Info("sync complete", "provider", name, "threads", total, "new", fresh)
	e.record(name, started, total, nil)

	return SyncResultMsg{
		Provider:   name,
		Threads:    total,
		NewThreads: fresh,
		At:         e.store.Now(),
	}, nil
}

func (e *Engine) record(provider string, started time.Time, threads int, err error) {
	if e.recorder == nil {
		return
	}
	run := store.SyncRun{
		Provider:   provider,
		StartedAt:  started,
		FinishedAt: e.store.Now(),
		Threads:    threads,
	}
	if err != nil {
		run.Error = err.Error()
	}
	if rerr := e.recorder.RecordSyncRun(context.Background(), run); rerr != nil {
		e.logger.Warn("recording sync run failed", "error", rerr)
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (e *Engine) sendResult(msg SyncResultMsg) {
	select {
	case e.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the loop.
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync
// result from the loop. Call it again after handling each result.
func (e *Engine) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-e.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
