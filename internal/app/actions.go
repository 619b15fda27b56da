package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/store"
	"github.com/nhle/desk/internal/triage"
	"github.com/nhle/desk/internal/ui/command"
	"github.com/nhle/desk/internal/ui/threadlist"
)

// followUpHour is the local hour a "tomorrow" follow-up lands on.
const followUpHour = 9

var queueByName = map[string]threadlist.Queue{
	"urgent":     threadlist.QueueUrgent,
	"now":        threadlist.QueueUrgent,
	"reply":      threadlist.QueueNeedsReply,
	"followups":  threadlist.QueueFollowUps,
	"follow-ups": threadlist.QueueFollowUps,
	"inbox":      threadlist.QueueInbox,
	"all":        threadlist.QueueInbox,
}

// handleGlobalKey handles keys that act on the current thread or switch
// views. It reports false for keys the active view should receive.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			return tea.Quit, true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Sync):
		if m.currentView == ViewList || m.currentView == ViewDetail {
			return m.requestSync(), true
		}
	}

	if m.currentView != ViewList && m.currentView != ViewDetail {
		return nil, false
	}
	t, ok := m.currentThread()
	if !ok {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Pin):
		return m.dispatch(store.TogglePin{ID: t.ID}), true
	case key.Matches(msg, m.keys.PriorityHigh):
		return m.dispatch(store.SetPriority{ID: t.ID, Priority: model.PriorityHigh}), true
	case key.Matches(msg, m.keys.PriorityNormal):
		return m.dispatch(store.SetPriority{ID: t.ID, Priority: model.PriorityNormal}), true
	case key.Matches(msg, m.keys.PriorityLow):
		return m.dispatch(store.SetPriority{ID: t.ID, Priority: model.PriorityLow}), true
	case key.Matches(msg, m.keys.Archive):
		m.statusMsg = "archived: " + t.Subject
		return m.dispatch(store.Archive{ID: t.ID}), true
	case key.Matches(msg, m.keys.FollowUp):
		if t.FollowUpAt != nil {
			return m.dispatch(store.SetFollowUp{ID: t.ID}), true
		}
		at := followUpTomorrow(m.store.Now())
		return m.dispatch(store.SetFollowUp{ID: t.ID, At: &at}), true
	case key.Matches(msg, m.keys.Move):
		m.previousView = m.currentView
		m.currentView = ViewMove
		return m.moveForm.Start(t), true
	}

	return nil, false
}

// currentThread is the thread the operator is looking at: the open
// detail view or the list cursor.
func (m Model) currentThread() (model.Thread, bool) {
	if m.currentView == ViewDetail {
		return m.detail.Thread()
	}
	return m.threadList.SelectedThread()
}

// dispatch returns a command that applies a to the store. The resulting
// state arrives through the subscription.
func (m Model) dispatch(a store.Action) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		s.Dispatch(a)
		return nil
	}
}

// requestSync asks the engine loop for an immediate sync.
func (m *Model) requestSync() tea.Cmd {
	if m.engine == nil || m.engine.ProviderName() == model.ProviderNone {
		m.errMsg = "no mail provider configured; set provider.type in the config"
		return nil
	}
	m.errMsg = ""
	m.statusMsg = "syncing..."
	m.engine.Trigger()
	return nil
}

// executeCommand handles a parsed command palette entry.
func (m *Model) executeCommand(cmd command.Command) tea.Cmd {
	switch cmd.Name {
	case "sync":
		return m.requestSync()

	case "quit":
		return tea.Quit

	case "queue":
		q, ok := queueByName[cmd.Args[0]]
		if !ok {
			m.errMsg = "unknown queue " + cmd.Args[0]
			return nil
		}
		m.currentView = ViewList
		return m.threadList.SetQueue(q)

	case "bucket":
		b, err := model.ParseBucket(cmd.Args[0])
		if err != nil {
			m.errMsg = err.Error()
			return nil
		}
		m.currentView = ViewList
		return m.threadList.SetFilter(triage.ThreadFilter{Bucket: &b})

	case "tab":
		tab, err := triage.ParseTab(cmd.Args[0])
		if err != nil {
			m.errMsg = err.Error()
			return nil
		}
		m.currentView = ViewList
		return m.threadList.SetFilter(triage.ThreadFilter{Tab: tab})

	case "route":
		email := strings.TrimSpace(cmd.Args[0])
		b, err := model.ParseBucket(cmd.Args[1])
		if err != nil {
			m.errMsg = err.Error()
			return nil
		}
		if !strings.Contains(email, "@") {
			m.errMsg = "route needs a sender email"
			return nil
		}
		m.statusMsg = "routing " + email + " to " + string(b)
		return m.dispatch(store.AddRoutingRule{SenderEmail: email, Bucket: b})

	case "clear":
		m.errMsg = ""
		return m.threadList.ClearFilter()

	case "settings":
		m.previousView = ViewList
		m.currentView = ViewSettings
		return m.settings.Start()
	}
	return nil
}

// followUpTomorrow returns followUpHour local time on the day after now.
func followUpTomorrow(now time.Time) time.Time {
	y, mo, d := now.AddDate(0, 0, 1).Date()
	return time.Date(y, mo, d, followUpHour, 0, 0, 0, now.Location())
}
