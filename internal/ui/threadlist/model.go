package threadlist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/keys"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/theme"
	"github.com/nhle/desk/internal/triage"
	"github.com/nhle/desk/internal/ui"
)

// Queue selects which threads the list shows.
type Queue int

const (
	QueueUrgent Queue = iota
	QueueNeedsReply
	QueueFollowUps
	QueueInbox
)

var queueNames = []string{"Do Now", "Needs Reply", "Follow-Ups", "Inbox"}

// String returns the queue label.
func (q Queue) String() string {
	if q < 0 || int(q) >= len(queueNames) {
		return "?"
	}
	return queueNames[q]
}

// SelectedThreadMsg is sent when a user opens a thread.
type SelectedThreadMsg struct {
	ThreadID string
}

// Model is the focus dashboard: three prioritized queues plus a
// filterable inbox view of every thread.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	extractor   *triage.QuestionExtractor
	limit       int
	queue       Queue
	filter      triage.ThreadFilter
	threads     []model.Thread
	now         time.Time
	focus       triage.FocusQueues
	inboxTotal  int
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a thread list. limit bounds each focus queue; 0 is
// unbounded.
func New(k *keys.KeyMap, extractor *triage.QuestionExtractor, limit, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.SetShowTitle(false)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "search subject, sender, project..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		extractor:   extractor,
		limit:       limit,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetThreads replaces the snapshot the list renders from. The cursor
// stays on the same thread when it is still listed.
func (m *Model) SetThreads(threads []model.Thread, now time.Time) tea.Cmd {
	m.threads = threads
	m.now = now
	m.focus = triage.BuildFocus(threads, now, m.limit)
	return m.refresh()
}

// Queue returns the active queue.
func (m Model) Queue() Queue {
	return m.queue
}

// SetQueue switches to q.
func (m *Model) SetQueue(q Queue) tea.Cmd {
	m.queue = q
	return m.refresh()
}

// SetFilter switches to the inbox queue with f applied.
func (m *Model) SetFilter(f triage.ThreadFilter) tea.Cmd {
	m.filter = f
	m.queue = QueueInbox
	return m.refresh()
}

// ClearFilter drops the inbox filter.
func (m *Model) ClearFilter() tea.Cmd {
	m.filter = triage.ThreadFilter{}
	return m.refresh()
}

// SelectedThread returns the thread under the cursor.
func (m Model) SelectedThread() (model.Thread, bool) {
	item, ok := m.list.SelectedItem().(ThreadItem)
	if !ok {
		return model.Thread{}, false
	}
	return item.Thread, true
}

// Init returns the initial command for the list.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the thread list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.filter.Query = strings.TrimSpace(m.searchInput.Value())
		m.queue = QueueInbox
		return m, m.refresh()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = ""
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		t, ok := m.SelectedThread()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedThreadMsg{ThreadID: t.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.NextQueue):
		m.queue = (m.queue + 1) % Queue(len(queueNames))
		return m, m.refresh()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// refresh rebuilds the list items for the active queue.
func (m *Model) refresh() tea.Cmd {
	selected := ""
	if t, ok := m.SelectedThread(); ok {
		selected = t.ID
	}

	var threads []model.Thread
	switch m.queue {
	case QueueUrgent:
		threads = m.focus.Urgent.Threads
	case QueueNeedsReply:
		threads = m.focus.NeedsReply.Threads
	case QueueFollowUps:
		threads = m.focus.FollowUps.Threads
	case QueueInbox:
		threads = triage.SortForFocus(triage.Filter(m.threads, m.filter, m.now))
	}
	if m.queue == QueueInbox {
		m.inboxTotal = len(threads)
	} else {
		m.inboxTotal = len(triage.Filter(m.threads, m.filter, m.now))
	}

	items := make([]list.Item, len(threads))
	cursor := 0
	for i, t := range threads {
		item := ThreadItem{Thread: t}
		if m.extractor != nil {
			item.OpenQuestions = m.extractor.OpenCount(t)
		}
		items[i] = item
		if t.ID == selected {
			cursor = i
		}
	}

	cmd := m.list.SetItems(items)
	m.list.Select(cursor)
	return cmd
}

// FilterSummary describes the active inbox filter, or "" when none.
func (m Model) FilterSummary() string {
	var parts []string
	if m.filter.Bucket != nil {
		parts = append(parts, "bucket: "+string(*m.filter.Bucket))
	}
	if m.filter.Tab != "" && m.filter.Tab != triage.TabAll {
		parts = append(parts, "tab: "+string(m.filter.Tab))
	}
	if m.filter.Query != "" {
		parts = append(parts, fmt.Sprintf("search: %q", m.filter.Query))
	}
	return strings.Join(parts, " | ")
}

// tabLabels renders each queue name with its untruncated total.
func (m Model) tabLabels() []string {
	totals := []int{
		m.focus.Urgent.Total,
		m.focus.NeedsReply.Total,
		m.focus.FollowUps.Total,
		m.inboxTotal,
	}
	labels := make([]string, len(queueNames))
	for i, name := range queueNames {
		labels[i] = fmt.Sprintf("%s (%d)", name, totals[i])
	}
	return labels
}

// View renders the queue tabs and the thread list.
func (m Model) View() string {
	tabs := ui.RenderTabs(m.tabLabels(), int(m.queue))

	var body string
	switch {
	case m.searchMode:
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		body = lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	case len(m.list.Items()) == 0:
		body = m.renderEmptyState()
	default:
		body = m.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabs, "", body)
}

// renderEmptyState shows guidance text when the queue is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-2, 1)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if len(m.threads) == 0 {
		return style.Render("No threads yet.\n\nPress r to sync, or run `desk auth` to connect a mailbox.")
	}
	if m.queue == QueueInbox && m.FilterSummary() != "" {
		return style.Render("No matching threads.\nTry adjusting your filters.")
	}
	return style.Render(fmt.Sprintf("Nothing in %s.", m.queue))
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(height-2, 1))
	m.searchInput.Width = width - 4
}
