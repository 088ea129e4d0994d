package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logview"
)

// jobRow is one line of the jobs view: a job, or one of its steps.
type jobRow struct {
	job  int                  // index into Model.jobs
	step *github.WorkflowStep // nil for the job line
}

// jobRows flattens the jobs of the open run and their steps.
func (m Model) jobRows() []jobRow {
	var rows []jobRow
	for i := range m.jobs {
		rows = append(rows, jobRow{job: i})
		for s := range m.jobs[i].Steps {
			rows = append(rows, jobRow{job: i, step: &m.jobs[i].Steps[s]})
		}
	}
	return rows
}

// jobsActive reports whether any job of the open run is unfinished.
func (m Model) jobsActive() bool {
	if m.jobsRunID == 0 {
		return false
	}
	if len(m.jobs) == 0 {
		return true
	}
	for _, j := range m.jobs {
		if j.Active() {
			return true
		}
	}
	return false
}

// handleJobsKey processes keyboard input for the jobs view.
func (m Model) handleJobsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.jobRows()

	switch {
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewRuns
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		if m.jobsLoading {
			return m, nil
		}
		m.jobsLoading = true
		return m, loadJobsCmd(m.ctx, m.backend, m.jobsRunID)
	}
	if len(rows) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedJob < len(rows)-1 {
			m.selectedJob++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedJob > 0 {
			m.selectedJob--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedJob = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedJob = len(rows) - 1
	case key.Matches(msg, m.keys.HalfPageDown), key.Matches(msg, m.keys.PageDown):
		m.selectedJob = min(m.selectedJob+m.listHeight()/2, len(rows)-1)
	case key.Matches(msg, m.keys.HalfPageUp), key.Matches(msg, m.keys.PageUp):
		m.selectedJob = max(m.selectedJob-m.listHeight()/2, 0)

	case key.Matches(msg, m.keys.Confirm):
		row := rows[clampInt(m.selectedJob, 0, len(rows)-1)]
		job := m.jobs[row.job]
		if row.step == nil {
			return m, m.openLog(job, nil)
		}
		return m, m.openLog(job, &logview.StepRef{Name: row.step.Name, Number: row.step.Number})

	case key.Matches(msg, m.keys.CancelRun), key.Matches(msg, m.keys.RerunRun):
		m.setStatus("Cancel and re-run act on runs; press esc to go back")
	}

	return m, nil
}

// renderJobs renders the jobs of the open run with their steps.
func (m Model) renderJobs() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	contentHeight := m.height - 2
	inner := max(m.width-2, 1)
	rows := m.jobRows()

	var lines []string
	switch {
	case len(rows) == 0 && m.jobsLoading:
		lines = append(lines, bg.FillLine(bg.Render("Loading jobs...", styles.MutedText), inner))
	case len(rows) == 0:
		lines = append(lines, bg.FillLine(bg.Render("No jobs in this run", styles.MutedText), inner))
	default:
		first, last := listWindow(m.selectedJob, len(rows), max(contentHeight-2, 1))
		for i := first; i < last; i++ {
			lines = append(lines, m.renderJobRow(rows[i], i == m.selectedJob, inner, styles))
		}
	}

	title := fmt.Sprintf("Jobs · run %d", m.jobsRunID)
	for _, r := range m.snapshot.Runs {
		if r.ID == m.jobsRunID {
			title = fmt.Sprintf("Jobs · #%d %s", r.RunNumber, truncate(r.Title(), 40))
			break
		}
	}
	return m.renderBox(title, strings.Join(lines, "\n"), m.width, contentHeight, true)
}

func (m Model) renderJobRow(row jobRow, selected bool, width int, styles Styles) string {
	bgColor := m.theme.FocusBg
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)
	nameStyle := styles.Text
	if selected {
		nameStyle = styles.Selected
	}

	job := m.jobs[row.job]
	if row.step == nil {
		label := job.Label()
		return bg.FitLine(bg.Space()+
			bg.Render(padRight(label, 16), styles.StatusText(label))+bg.Space()+
			bg.Render(padRight(truncate(job.Name, 40), 40), nameStyle.Bold(true))+bg.Space()+
			bg.Render(formatDuration(job.Duration(m.now)), styles.FaintText), width)
	}

	step := row.step
	label := step.Label()
	return bg.FitLine(bg.Spaces(4)+
		bg.Render(padRight(fmt.Sprintf("%2d.", step.Number), 4), styles.FaintText)+
		bg.Render(padRight(truncate(step.Name, 44), 46), nameStyle)+
		bg.Render(label, styles.StatusText(label)), width)
}
