package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/theme"
)

// Layout manages the header, content and status bar dimensions of the
// dashboard.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the top header bar with a title on the left and
// the sync status on the right.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	return l.fill(theme.HeaderStyle, title, syncStatus)
}

// RenderStatusBar renders the bottom status bar. An error replaces the
// key hints and switches to the error style.
func (l Layout) RenderStatusBar(hints string, errMsg string) string {
	if errMsg != "" {
		return l.fill(theme.ErrorBarStyle, errMsg, "")
	}
	return l.fill(theme.StatusBarStyle, hints, "")
}

// RenderTabs renders a row of tab labels with the active one highlighted.
func RenderTabs(labels []string, active int) string {
	tabs := make([]string, len(labels))
	for i, label := range labels {
		if i == active {
			tabs[i] = theme.ActiveTabStyle.Render(label)
		} else {
			tabs[i] = theme.TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}

// fill renders left and right inside style, padding the gap so the bar
// spans the full width.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)
	rightRendered := ""
	if right != "" {
		rightRendered = style.Align(lipgloss.Right).Render(right)
	}

	gap := max(l.Width-lipgloss.Width(leftRendered)-lipgloss.Width(rightRendered), 0)
	filler := lipgloss.NewStyle().
		Background(style.GetBackground()).
		Render(strings.Repeat(" ", gap))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, filler, rightRendered)
}
