package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/keys"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/theme"
	"github.com/nhle/desk/internal/triage"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// ToggleQuestionMsg asks the parent to flip the answered flag of the
// selected question.
type ToggleQuestionMsg struct {
	ThreadID  string
	MessageID string
}

// Model is the thread detail view: header, advisor suggestion, open
// questions and the message history.
type Model struct {
	thread     *model.Thread
	questions  []triage.QuestionStatus
	cursor     int
	suggestion *triage.Suggestion

	extractor *triage.QuestionExtractor
	advisor   *triage.Advisor
	viewport  viewport.Model
	keys      *keys.KeyMap
	width     int
	height    int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, extractor *triage.QuestionExtractor, advisor *triage.Advisor, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		extractor: extractor,
		advisor:   advisor,
		viewport:  vp,
		keys:      k,
		width:     width,
		height:    height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetThread shows t. Refreshing the same thread keeps the question
// cursor and scroll position.
func (m *Model) SetThread(t model.Thread) {
	same := m.thread != nil && m.thread.ID == t.ID
	m.thread = &t

	m.questions = nil
	if m.extractor != nil {
		m.questions = m.extractor.Questions(t)
	}

	m.suggestion = nil
	if m.advisor != nil && t.Bucket == model.BucketUnassigned {
		if sg, ok := m.advisor.Suggest(t); ok {
			m.suggestion = &sg
		}
	}

	if !same {
		m.cursor = 0
	}
	if m.cursor >= len(m.questions) {
		m.cursor = max(len(m.questions)-1, 0)
	}

	offset := m.viewport.YOffset
	m.viewport.SetContent(m.renderContent())
	if same {
		m.viewport.SetYOffset(offset)
	} else {
		m.viewport.GotoTop()
	}
}

// Clear drops the displayed thread.
func (m *Model) Clear() {
	m.thread = nil
	m.questions = nil
	m.suggestion = nil
	m.viewport.SetContent("")
}

// Thread returns the displayed thread.
func (m Model) Thread() (model.Thread, bool) {
	if m.thread == nil {
		return model.Thread{}, false
	}
	return *m.thread, true
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.NextQuestion):
			if len(m.questions) > 0 {
				m.cursor = (m.cursor + 1) % len(m.questions)
				m.viewport.SetContent(m.renderContent())
			}
			return m, nil

		case key.Matches(msg, m.keys.ToggleQuestion):
			if m.thread == nil || len(m.questions) == 0 {
				return m, nil
			}
			toggle := ToggleQuestionMsg{
				ThreadID:  m.thread.ID,
				MessageID: m.questions[m.cursor].Message.ID,
			}
			return m, func() tea.Msg { return toggle }
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.thread == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Thread no longer available")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.thread == nil {
		return ""
	}
	t := m.thread

	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(t.Subject))

	badges := []string{
		theme.BucketStyle(t.Bucket).Render(string(t.Bucket)),
		theme.PriorityStyle(t.Priority).Render(string(t.Priority)),
	}
	if t.Pinned {
		badges = append(badges, theme.PinnedStyle.Render("pinned"))
	}
	if w := triage.WaitingText(*t); w != "" {
		badges = append(badges, theme.UrgencyStyle(triage.UrgencyOf(*t)).Render(w))
	}
	sections = append(sections, strings.Join(badges, "  "), "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-10s", label+":")),
			valStyle.Render(value)))
	}
	meta("From", fmt.Sprintf("%s <%s>", t.FromName, t.FromEmail))
	meta("Received", t.LastInboundAt.Format("2006-01-02 15:04"))
	if t.LastOutboundAt != nil {
		meta("Replied", t.LastOutboundAt.Format("2006-01-02 15:04"))
	}
	if t.FollowUpAt != nil {
		meta("Follow up", t.FollowUpAt.Format("Mon Jan 02"))
	}
	meta("Project", t.Project)
	if len(t.Labels) > 0 {
		meta("Labels", strings.Join(t.Labels, ", "))
	}

	if m.suggestion != nil {
		sg := lipgloss.NewStyle().Foreground(theme.ColorYellow).Render(
			fmt.Sprintf("Suggested: %s (%s)", m.suggestion.Bucket, m.suggestion.Reason))
		sections = append(sections, "", sg)
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	if len(m.questions) > 0 {
		open := 0
		for _, q := range m.questions {
			if !q.Answered {
				open++
			}
		}
		sections = append(sections, "", separator, "",
			headerStyle.Render(fmt.Sprintf("Questions (%d open)", open)))

		for i, q := range m.questions {
			mark := "[ ]"
			if q.Answered {
				mark = "[x]"
			}
			line := fmt.Sprintf("%s %s: %s", mark, q.Message.Sender, firstLine(q.Message.Body))
			if q.Answered {
				line = theme.DimmedStyle.Render(line)
			}
			if i == m.cursor {
				line = theme.SelectedItemStyle.Render(line)
			} else {
				line = theme.ListItemStyle.Render(line)
			}
			sections = append(sections, line)
		}
	}

	sections = append(sections, "", separator, "",
		headerStyle.Render(fmt.Sprintf("Messages (%d)", len(t.Messages))), "")

	authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	timeStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	for _, msg := range t.Messages {
		sections = append(sections,
			fmt.Sprintf("%s  %s",
				authorStyle.Render(msg.Sender),
				timeStyle.Render(msg.Timestamp.Format("Jan 02 15:04"))),
			msg.Body,
			"")
	}
	if len(t.Messages) == 0 && t.Snippet != "" {
		sections = append(sections, t.Snippet)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.thread != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
