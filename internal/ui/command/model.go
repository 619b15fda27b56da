package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/theme"
)

// Command is a parsed palette entry.
type Command struct {
	Name string
	Args []string
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg Command

// Usage lists the palette commands shown under the input.
var Usage = []string{
	"sync                      fetch from the mailbox now",
	"queue urgent|reply|followups|inbox",
	"bucket <name>             show the inbox filtered to a bucket",
	"tab all|reply|overdue|waiting",
	"route <email> <bucket>    always file a sender into a bucket",
	"clear                     drop inbox filters",
	"settings                  edit operator and provider settings",
	"quit",
}

var aliases = map[string]string{
	"refresh": "sync",
	"q":       "quit",
	"filter":  "bucket",
	"rule":    "route",
	"config":  "settings",
}

// Parse splits a palette line into a command and its arguments. Bucket
// names may contain spaces, so "route" keeps everything after the email
// as one argument.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	name := strings.ToLower(fields[0])
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	args := fields[1:]

	switch name {
	case "sync", "quit", "clear", "settings":
		return Command{Name: name}, nil
	case "queue", "tab":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: %s <name>", name)
		}
		return Command{Name: name, Args: []string{strings.ToLower(args[0])}}, nil
	case "bucket":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("usage: bucket <name>")
		}
		return Command{Name: name, Args: []string{strings.Join(args, " ")}}, nil
	case "route":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("usage: route <email> <bucket>")
		}
		return Command{Name: name, Args: []string{args[0], strings.Join(args[1:], " ")}}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}
		cmd, err := Parse(line)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.input.Reset()
		return m, func() tea.Msg {
			return CommandMsg(cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	lines := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err.Error()))
	}
	lines = append(lines, "")
	for _, u := range Usage {
		lines = append(lines, theme.HelpStyle.Render(u))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input and clears any error.
func (m *Model) Focus() tea.Cmd {
	m.err = nil
	m.input.Reset()
	return m.input.Focus()
}
