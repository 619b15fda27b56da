package app

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/desk/internal/keys"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/store"
	appsync "github.com/nhle/desk/internal/sync"
	"github.com/nhle/desk/internal/triage"
	"github.com/nhle/desk/internal/ui"
	"github.com/nhle/desk/internal/ui/command"
	"github.com/nhle/desk/internal/ui/detail"
	helpview "github.com/nhle/desk/internal/ui/help"
	"github.com/nhle/desk/internal/ui/moveform"
	"github.com/nhle/desk/internal/ui/settings"
	"github.com/nhle/desk/internal/ui/threadlist"
)

// stateMsg carries a store snapshot to the UI.
type stateMsg struct {
	state store.State
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewMove
	ViewHelp
	ViewCommand
	ViewSettings
)

// Options wires the dashboard to the rest of the application.
type Options struct {
	Store      *store.Store
	Engine     *appsync.Engine
	Extractor  *triage.QuestionExtractor
	Advisor    *triage.Advisor
	FocusLimit int

	// Config and ConfigPath back the settings view; Check verifies a
	// provider before its settings are saved.
	Config     *model.AppConfig
	ConfigPath string
	Check      settings.Checker
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the connection to the store and sync engine.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	store        *store.Store
	engine       *appsync.Engine
	keys         *keys.KeyMap
	threadList   threadlist.Model
	detail       detail.Model
	moveForm     moveform.Model
	helpView     helpview.Model
	commandView  command.Model
	settings     settings.Model
	updates      <-chan store.State
	unsubscribe  func()
	state        store.State
	openThreadID string
	statusMsg    string
	errMsg       string
	ready        bool
}

// New creates the root model and subscribes to store updates.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	updates, unsubscribe := opts.Store.Subscribe()

	return Model{
		currentView: ViewList,
		store:       opts.Store,
		engine:      opts.Engine,
		keys:        k,
		threadList:  threadlist.New(k, opts.Extractor, opts.FocusLimit, 80, 24),
		detail:      detail.New(k, opts.Extractor, opts.Advisor, 80, 24),
		moveForm:    moveform.New(80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		settings: settings.New(settings.Options{
			Config: opts.Config,
			Path:   opts.ConfigPath,
			Check:  opts.Check,
		}, 80, 24),
		updates:     updates,
		unsubscribe: unsubscribe,
	}
}

// Init loads the current snapshot and starts listening for store
// updates and sync results.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSnapshot(), m.waitForState()}
	if m.engine != nil {
		cmds = append(cmds, m.engine.WaitForNextResult())
	}
	return tea.Batch(cmds...)
}

// Close releases the store subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.threadList.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.moveForm.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.settings.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case stateMsg:
		cmd := m.applyState(msg.state)
		return m, tea.Batch(cmd, m.waitForState())

	case appsync.SyncResultMsg:
		switch {
		case msg.AuthError != nil:
			m.errMsg = msg.AuthError.Message
		case msg.Error != nil:
			m.errMsg = "sync failed: " + msg.Error.Error()
		default:
			m.errMsg = ""
			m.statusMsg = fmt.Sprintf("synced %d threads (%d new)", msg.Threads, msg.NewThreads)
		}
		return m, m.engine.WaitForNextResult()

	case threadlist.SelectedThreadMsg:
		t, err := m.store.Thread(msg.ThreadID)
		if err != nil {
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.openThreadID = t.ID
		m.detail.SetThread(t)
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		m.openThreadID = ""
		return m, nil

	case detail.ToggleQuestionMsg:
		return m, m.dispatch(store.ToggleQuestionAnswered{
			ThreadID:  msg.ThreadID,
			MessageID: msg.MessageID,
		})

	case moveform.MoveMsg:
		m.currentView = m.previousView
		if msg.ApplyRule {
			m.statusMsg = "routing rule saved"
		}
		return m, m.dispatch(store.MoveThread{
			ID:        msg.ThreadID,
			Bucket:    msg.Bucket,
			ApplyRule: msg.ApplyRule,
		})

	case moveform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case settings.SavedMsg:
		m.statusMsg = "settings saved"
		return m, nil

	case settings.DoneMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(command.Command(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.capturesKeys() {
			break
		}
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesKeys reports whether the active view consumes every key, such
// as a text input or a form.
func (m Model) capturesKeys() bool {
	switch m.currentView {
	case ViewMove, ViewCommand, ViewSettings:
		return true
	case ViewList:
		return m.threadList.Searching()
	default:
		return false
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.threadList, cmd = m.threadList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewMove:
		m.moveForm, cmd = m.moveForm.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.currentView = m.previousView
		}
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

// applyState installs a new snapshot in every view.
func (m *Model) applyState(s store.State) tea.Cmd {
	m.state = s
	cmd := m.threadList.SetThreads(s.Threads, m.store.Now())

	if m.openThreadID != "" {
		if i := s.Find(m.openThreadID); i >= 0 {
			m.detail.SetThread(s.Threads[i])
		} else {
			m.detail.Clear()
		}
	}
	return cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.errMsg)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.threadList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewMove:
		return m.moveForm.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.settings.View()
	default:
		return ""
	}
}

// headerTitle summarizes the desk: actionable and overdue counts.
func (m Model) headerTitle() string {
	d := triage.BuildDashboard(m.state.Threads)
	title := fmt.Sprintf("Desk | %d actionable", d.Summary.Actionable)
	if d.Summary.Overdue > 0 {
		title += fmt.Sprintf(" | %d overdue", d.Summary.Overdue)
	}
	if d.Summary.Unassigned > 0 {
		title += fmt.Sprintf(" | %d to triage", d.Summary.Unassigned)
	}
	return title
}

// syncStatus returns a short string describing the sync state.
func (m Model) syncStatus() string {
	provider := "none"
	if m.engine != nil {
		provider = m.engine.ProviderName()
	}

	switch {
	case m.state.Syncing:
		return provider + ": syncing..."
	case m.state.LastError != "":
		return provider + ": sync failed"
	case m.state.LastSyncAt != nil:
		return provider + ": synced " + relativeTime(*m.state.LastSyncAt, m.store.Now())
	default:
		return provider + ": not synced"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewMove:
		return "enter confirm | esc cancel"
	case ViewSettings:
		return "enter next | shift+tab back | esc close"
	case ViewDetail:
		return "esc back | n next question | space answered | m move | p pin | 1/2/3 priority | f follow up | a archive"
	default:
		hints := "q quit | ? help | tab queue | / search | r sync | m move | p pin | a archive"
		if m.statusMsg != "" {
			hints = m.statusMsg + " | " + hints
		}
		if fs := m.threadList.FilterSummary(); fs != "" && m.threadList.Queue() == threadlist.QueueInbox {
			hints = fs + " | : clear | " + hints
		}
		return hints
	}
}

// loadSnapshot returns a command that delivers the current store state.
func (m Model) loadSnapshot() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return stateMsg{state: s.Snapshot()}
	}
}

// waitForState returns a command that waits for the next store update.
func (m Model) waitForState() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return stateMsg{state: s}
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
