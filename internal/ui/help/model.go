package help

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/keys"
	"github.com/nhle/desk/internal/theme"
	"github.com/nhle/desk/internal/triage"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, "", legend())

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// legend explains the queue rules and row markers.
func legend() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorGray)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Queues"),
		dim.Render(fmt.Sprintf("Do Now       high priority, waiting %d+ days or follow-up passed", triage.OverdueDays)),
		dim.Render("Needs Reply  awaiting your reply, not already in Do Now"),
		dim.Render("Follow-Ups   follow-up scheduled, no reply owed"),
		dim.Render("Inbox        every thread; / to search, : bucket <name> to filter"),
		"",
		dim.Render("Row markers: * pinned, H/N/L priority, ?N open questions"),
		dim.Render(fmt.Sprintf("Waiting labels turn orange at %d days and red at %d.", triage.AgingDays, triage.OverdueDays)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
