package moveform

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/theme"
)

// MoveMsg is dispatched when the operator confirms a move.
type MoveMsg struct {
	ThreadID  string
	Bucket    model.Bucket
	ApplyRule bool
}

// CancelMsg is dispatched when the operator aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	bucket model.Bucket
	always bool
}

// Model is the "move to bucket" form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	thread model.Thread
	width  int
	height int
}

// New creates a new move form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form for t, preselecting its current bucket.
func (m *Model) Start(t model.Thread) tea.Cmd {
	m.thread = t
	m.fb.bucket = t.Bucket
	m.fb.always = false
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the move form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		move := MoveMsg{
			ThreadID:  m.thread.ID,
			Bucket:    m.fb.bucket,
			ApplyRule: m.fb.always,
		}
		m.form = nil
		return m, func() tea.Msg { return move }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the move form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Move: "+m.thread.Subject) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[model.Bucket], 0, len(model.AllBuckets))
	for _, b := range model.AllBuckets {
		opts = append(opts, huh.NewOption(string(b), b))
	}

	sender := m.thread.FromEmail
	if sender == "" {
		sender = m.thread.FromName
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[model.Bucket]().
				Title("Bucket").
				Options(opts...).
				Value(&m.fb.bucket),
			huh.NewConfirm().
				Title(fmt.Sprintf("Always route %s here?", sender)).
				Description("Future unassigned threads from this sender skip triage.").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.always),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}
