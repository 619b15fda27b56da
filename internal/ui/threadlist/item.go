package threadlist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/theme"
	"github.com/nhle/desk/internal/triage"
)

// ThreadItem wraps a model.Thread so it can be used in a bubbles/list.
type ThreadItem struct {
	Thread        model.Thread
	OpenQuestions int
}

// FilterValue returns the string used for fuzzy filtering.
func (i ThreadItem) FilterValue() string { return i.Thread.Subject }

// Title returns the thread subject.
func (i ThreadItem) Title() string { return i.Thread.Subject }

// Description returns a short summary line for the list.
func (i ThreadItem) Description() string {
	parts := []string{i.Thread.FromName, string(i.Thread.Bucket)}
	if w := triage.WaitingText(i.Thread); w != "" {
		parts = append(parts, w)
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering thread rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single thread row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(ThreadItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(ti, index == m.Index()))
}

func renderRow(ti ThreadItem, selected bool) string {
	t := ti.Thread

	pin := " "
	if t.Pinned {
		pin = theme.PinnedStyle.Render("*")
	}

	pri := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))
	bucket := theme.BucketStyle(t.Bucket).Render(t.Bucket.ShortName())

	sender := lipgloss.NewStyle().
		Foreground(theme.ColorWhite).
		Width(18).
		MaxWidth(18).
		Render(t.FromName)

	waiting := ""
	if w := triage.WaitingText(t); w != "" {
		waiting = "  " + theme.UrgencyStyle(triage.UrgencyOf(t)).Render(w)
	}

	questions := ""
	if ti.OpenQuestions > 0 {
		questions = lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render(fmt.Sprintf("  ?%d", ti.OpenQuestions))
	}

	followUp := ""
	if t.FollowUpAt != nil {
		followUp = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render("  follow up " + t.FollowUpAt.Format("Jan 02"))
	}

	line := fmt.Sprintf("%s %s %s %s %s%s%s%s",
		pin, pri, bucket, sender, t.Subject, waiting, questions, followUp)

	if t.Bucket.IsTerminal() {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "H"
	case model.PriorityNormal:
		return "N"
	case model.PriorityLow:
		return "L"
	default:
		return "?"
	}
}
