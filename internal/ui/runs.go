package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/actlog/internal/github"
)

// selectedRunValue returns the highlighted run, if any.
func (m Model) selectedRunValue() (github.WorkflowRun, bool) {
	runs := m.snapshot.Runs
	if len(runs) == 0 || m.selectedRun < 0 || m.selectedRun >= len(runs) {
		return github.WorkflowRun{}, false
	}
	return runs[m.selectedRun], true
}

// handleRunsKey processes keyboard input for the runs list.
func (m Model) handleRunsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Runs)

	switch {
	case key.Matches(msg, m.keys.Refresh):
		if m.store == nil {
			return m, nil
		}
		m.setStatus("Refreshing runs...")
		return m, refreshRunsCmd(m.ctx, m.refreshRuns, m.store)
	}
	if count == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRun < count-1 {
			m.selectedRun++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRun > 0 {
			m.selectedRun--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRun = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRun = count - 1
	case key.Matches(msg, m.keys.HalfPageDown), key.Matches(msg, m.keys.PageDown):
		m.selectedRun = min(m.selectedRun+m.listHeight()/2, count-1)
	case key.Matches(msg, m.keys.HalfPageUp), key.Matches(msg, m.keys.PageUp):
		m.selectedRun = max(m.selectedRun-m.listHeight()/2, 0)

	case key.Matches(msg, m.keys.Confirm):
		run, _ := m.selectedRunValue()
		if run.ID != m.jobsRunID {
			m.jobs = nil
			m.selectedJob = 0
		}
		m.jobsRunID = run.ID
		m.jobsLoading = true
		m.currentView = ViewJobs
		return m, loadJobsCmd(m.ctx, m.backend, run.ID)

	case key.Matches(msg, m.keys.CancelRun):
		return m.confirmRunAction(true)

	case key.Matches(msg, m.keys.RerunRun):
		return m.confirmRunAction(false)
	}

	return m, nil
}

// confirmRunAction asks before cancelling (or re-running) the selected run.
// Cancelling a finished run or re-running an active one is refused locally.
func (m Model) confirmRunAction(cancel bool) (tea.Model, tea.Cmd) {
	run, ok := m.selectedRunValue()
	if !ok || m.backend == nil {
		return m, nil
	}
	b := m.backend
	switch {
	case cancel && !run.Active():
		m.setStatus(fmt.Sprintf("Run #%d already finished", run.RunNumber))
		return m, nil
	case !cancel && run.Active():
		m.setStatus(fmt.Sprintf("Run #%d is still running", run.RunNumber))
		return m, nil
	}

	if cancel {
		m.modal = confirmModal{
			prompt: fmt.Sprintf("Cancel run #%d (%s)?", run.RunNumber, truncate(run.Title(), 30)),
			action: runActionCmd(m.ctx, fmt.Sprintf("Cancel requested for run #%d", run.RunNumber), func(ctx context.Context) error {
				return b.CancelRun(ctx, run.ID)
			}),
		}
		return m, nil
	}
	m.modal = confirmModal{
		prompt: fmt.Sprintf("Re-run run #%d (%s)?", run.RunNumber, truncate(run.Title(), 30)),
		action: runActionCmd(m.ctx, fmt.Sprintf("Re-run requested for run #%d", run.RunNumber), func(ctx context.Context) error {
			return b.RerunRun(ctx, run.ID)
		}),
	}
	return m, nil
}

// renderRuns renders the runs list.
func (m Model) renderRuns() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	contentHeight := m.height - 2
	inner := max(m.width-2, 1)
	rows := max(contentHeight-2, 1)

	var lines []string
	switch {
	case len(m.snapshot.Runs) == 0 && !m.snapshot.HasRuns:
		msg := "Loading runs..."
		if m.snapshot.LastError != nil {
			msg = "GitHub unavailable: " + github.Describe(m.snapshot.LastError)
		}
		lines = append(lines, bg.FillLine(bg.Render(msg, styles.MutedText), inner))
	case len(m.snapshot.Runs) == 0:
		lines = append(lines, bg.FillLine(bg.Render("No workflow runs yet", styles.MutedText), inner))
	default:
		first, last := listWindow(m.selectedRun, len(m.snapshot.Runs), rows)
		for i := first; i < last; i++ {
			lines = append(lines, m.renderRunRow(m.snapshot.Runs[i], i == m.selectedRun, inner, styles))
		}
	}

	title := "Runs"
	if m.snapshot.Owner != "" {
		title = fmt.Sprintf("Runs · %s/%s", m.snapshot.Owner, m.snapshot.Repo)
	}
	return m.renderBox(title, strings.Join(lines, "\n"), m.width, contentHeight, true)
}

func (m Model) renderRunRow(run github.WorkflowRun, selected bool, width int, styles Styles) string {
	bgColor := m.theme.FocusBg
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)

	label := run.Label()
	cols := []string{
		bg.Render(padRight(fmt.Sprintf("#%d", run.RunNumber), 7), styles.FaintText),
		bg.Render(padRight(label, 16), styles.StatusText(label)),
		bg.Render(padRight(truncate(run.Name, 22), 22), styles.AccentText),
	}
	if m.width >= LayoutCompactWidth {
		cols = append(cols,
			bg.Render(padRight(truncate(run.HeadBranch, 18), 18), styles.MutedText),
			bg.Render(padRight(truncate(run.Event, 12), 12), styles.FaintText),
		)
	}
	if m.width >= LayoutWideWidth {
		cols = append(cols, bg.Render(padRight(relativeTime(run.CreatedAt, m.now), 10), styles.FaintText))
	}
	titleStyle := styles.Text
	if selected {
		titleStyle = styles.Selected
	}
	cols = append(cols, bg.Render(run.Title(), titleStyle))
	return bg.FitLine(bg.Space()+strings.Join(cols, bg.Space()), width)
}
