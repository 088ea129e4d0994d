package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// renderMain renders the full UI: header, the current view and the status bar.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.currentView {
	case ViewRuns:
		b.WriteString(m.renderRuns())
	case ViewJobs:
		b.WriteString(m.renderJobs())
	case ViewLog:
		b.WriteString(m.renderLogs())
	}
	b.WriteString("\n")

	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderHeader renders the top line: name, repository and poll health.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("actlog", styles.Logo)}
	snap := m.snapshot
	if snap.Owner != "" {
		parts = append(parts, bg.Render(snap.Owner+"/"+snap.Repo, styles.Text))
	}
	if m.localFile != "" {
		parts = append(parts, bg.Render("local file", styles.MutedText))
	}

	active := 0
	for _, r := range snap.Runs {
		if r.Active() {
			active++
		}
	}
	if active > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("● %d running", active), styles.InfoText))
	}

	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render(fmt.Sprintf("offline (%d failures, last %s)",
			snap.ConsecutiveFailures, snap.LastUpdated.Format("15:04:05")), styles.DangerText))
	case !snap.LastUpdated.IsZero():
		parts = append(parts, bg.Render("updated "+snap.LastUpdated.Format("15:04:05"), styles.FaintText))
	}

	line := bg.Space() + strings.Join(parts, bg.Render("  │  ", styles.FaintText))
	return bg.FitLine(line, m.width)
}

// renderStatusBar renders the bottom line: the latest message, else key hints.
func (m Model) renderStatusBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var content string
	switch {
	case m.currentView == ViewLog && (m.logState.searchActive || m.logState.searchRegex != nil):
		content = m.renderLogStatus(styles, bg)
	case m.status.text != "" && m.now.Sub(m.status.at) < StatusMessageTTL:
		style := styles.InfoText
		if m.status.err {
			style = styles.DangerText
		}
		content = bg.Render(m.status.text, style)
	case m.currentView == ViewLog:
		content = m.renderLogStatus(styles, bg) + bg.Render("   "+m.hints(), styles.FaintText)
	default:
		content = bg.Render(m.hints(), styles.FaintText)
	}
	return bg.FitLine(bg.Space()+content, m.width)
}

// hints lists the main keys of the current view.
func (m Model) hints() string {
	var keys []string
	switch m.currentView {
	case ViewRuns:
		keys = []string{"enter jobs", "c cancel", "r re-run", "R refresh"}
	case ViewJobs:
		keys = []string{"enter log", "esc runs", "R refresh"}
	case ViewLog:
		keys = []string{"z fold", "o steps", "/ search", "space follow", "y link"}
	}
	keys = append(keys, "? help", "q quit")
	return strings.Join(keys, "  ")
}

// renderBox draws a rounded border around content with title in the top edge.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	if width < 4 || height < 2 {
		return content
	}
	styles := m.theme.Styles()
	borderColor := m.theme.Border
	if focused {
		borderColor = m.theme.BorderFocus
	}
	border := lipgloss.NewStyle().
		Foreground(lipgloss.Color(borderColor)).
		Background(lipgloss.Color(m.theme.FocusBg))
	bg := NewBgStyle(m.theme.FocusBg)
	inner := width - 2

	title = ansi.Truncate(" "+title+" ", max(inner-2, 0), "…")
	fill := max(inner-1-ansi.StringWidth(title), 0)
	top := border.Render("╭─") + bg.Render(title, styles.Text.Bold(true)) + border.Render(strings.Repeat("─", fill)+"╮")

	lines := strings.Split(content, "\n")
	body := make([]string, 0, height-2)
	for i := 0; i < height-2; i++ {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		body = append(body, border.Render("│")+bg.FitLine(line, inner)+border.Render("│"))
	}
	bottom := border.Render("╰" + strings.Repeat("─", inner) + "╯")

	return top + "\n" + strings.Join(body, "\n") + "\n" + bottom
}

// listHeight is the number of list rows that fit in the content box.
func (m Model) listHeight() int {
	return max(m.height-4, 1)
}

// listWindow returns the slice [first, last) of a list of total rows to show
// in height rows so that selected stays visible.
func listWindow(selected, total, height int) (first, last int) {
	if total <= height {
		return 0, total
	}
	first = clampInt(selected-height/2, 0, total-height)
	return first, first + height
}
