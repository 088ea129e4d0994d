package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/actlog/internal/logview"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// confirmModal asks before a mutating call such as cancelling a run.
type confirmModal struct {
	prompt string
	action tea.Cmd
}

func (c confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(kmsg, keys.Confirm), kmsg.String() == "y":
		return c, c.action, true
	case key.Matches(kmsg, keys.Escape), kmsg.String() == "n":
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	body := styles.Text.Render(c.prompt) + "\n\n" +
		styles.WarningText.Render("y/enter") + styles.FaintText.Render(" confirm   ") +
		styles.WarningText.Render("n/esc") + styles.FaintText.Render(" cancel")
	return placeModal(theme, width, height, body, 50)
}

// jumpMsg asks the log view to reveal a line.
type jumpMsg struct {
	line int
}

// outlineModal lists the steps of the open log and jumps to the chosen one.
type outlineModal struct {
	symbols  []logview.Symbol
	selected int
}

func newOutlineModal(symbols []logview.Symbol, current int) outlineModal {
	sel := 0
	for i, s := range symbols {
		if s.Range.Start <= current && current <= s.Range.End {
			sel = i
		}
	}
	return outlineModal{symbols: symbols, selected: sel}
}

func (o outlineModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return o, nil, false
	}
	switch {
	case key.Matches(kmsg, keys.Escape), key.Matches(kmsg, keys.Outline):
		return o, nil, true
	case key.Matches(kmsg, keys.Down):
		if o.selected < len(o.symbols)-1 {
			o.selected++
		}
	case key.Matches(kmsg, keys.Up):
		if o.selected > 0 {
			o.selected--
		}
	case key.Matches(kmsg, keys.Top):
		o.selected = 0
	case key.Matches(kmsg, keys.Bottom):
		o.selected = max(len(o.symbols)-1, 0)
	case key.Matches(kmsg, keys.Confirm):
		if len(o.symbols) == 0 {
			return o, nil, true
		}
		line := o.symbols[o.selected].Line
		return o, func() tea.Msg { return jumpMsg{line: line} }, true
	}
	return o, nil, false
}

func (o outlineModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Steps"))
	b.WriteString("\n\n")
	if len(o.symbols) == 0 {
		b.WriteString(styles.MutedText.Render("No steps in this log"))
	}

	// Keep the selection on screen in long outlines.
	rows := max(height-10, 5)
	first := max(o.selected-rows/2, 0)
	last := min(first+rows, len(o.symbols))
	for i := first; i < last; i++ {
		s := o.symbols[i]
		line := fmt.Sprintf("%3d  %s", s.Number, truncate(s.Label, 40))
		hint := styles.FaintText.Render(fmt.Sprintf("  %d lines", s.Range.End-s.Range.Start+1))
		if i == o.selected {
			b.WriteString(styles.Selected.Render(padRight(line, 46)))
		} else {
			b.WriteString(styles.Text.Render(padRight(line, 46)))
		}
		b.WriteString(hint)
		if i < last-1 {
			b.WriteString("\n")
		}
	}
	return placeModal(theme, width, height, b.String(), 64)
}

// placeModal centers a bordered box over the screen.
func placeModal(theme Theme, width, height int, content string, boxWidth int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(min(boxWidth, max(width-4, 10))).
		Render(content)
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
