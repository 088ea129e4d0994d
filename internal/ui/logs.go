package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logview"
	"github.com/five82/actlog/internal/prefs"
	"github.com/five82/actlog/internal/state"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// logState holds all state of the open log view.
type logState struct {
	ref  state.LogRef
	job  *github.WorkflowJob
	info *logview.LogInfo
	view *logview.View

	// Folded sections keyed by their header line.
	folded map[int]bool
	// Visible line indices, in display order. Folded sections contribute
	// only their header.
	rows []int

	follow         bool
	showTimestamps bool
	loading        bool
	fetching       bool
	fetchedAt      time.Time
	pendingStep    *logview.StepRef

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int // Line indices that match
	searchMatchIdx int   // Current match index

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
}

func newLogState(ref state.LogRef, job *github.WorkflowJob, step *logview.StepRef, p prefs.Prefs) logState {
	return logState{
		ref:            ref,
		job:            job,
		view:           logview.NewView(ref.ID),
		folded:         make(map[int]bool),
		follow:         p.Follow,
		showTimestamps: p.ShowTimestamps,
		pendingStep:    step,
		contentVersion: 1,
	}
}

func (ls *logState) initSearch() {
	ti := textinput.New()
	ti.Placeholder = "Search log..."
	ti.CharLimit = 100
	ti.Prompt = "/"
	ls.searchInput = ti
}

// initLogViewport initializes the log viewport.
func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(max(m.width-2, 1), max(m.height-4, 1))
	m.logViewport.Style = lipgloss.NewStyle()
}

// updateLogViewport updates the log viewport with current content.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}

	// Header line and status bar outside the box, borders inside it.
	m.logViewport.Width = max(m.width-2, 1)
	m.logViewport.Height = max(m.height-4, 1)
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	// Only re-render content if it changed
	if m.logState.contentVersion != m.logState.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.lastRendered = m.logState.contentVersion
	}

	// Auto-scroll if following
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// openLog shows the log of job, closing whatever log was open. step, when
// set, is revealed once the log has loaded.
func (m *Model) openLog(job github.WorkflowJob, step *logview.StepRef) tea.Cmd {
	if m.backend == nil {
		return nil
	}
	name := ""
	if step != nil {
		name = step.Name
	}
	id, err := m.backend.JobID(job.ID, name)
	if err != nil {
		m.setError(err)
		return nil
	}
	m.closeLog()

	ref := m.active.Open(id)
	m.logState = newLogState(ref, &job, step, m.prefs)
	m.logState.initSearch()
	m.logState.loading = true
	m.logState.fetching = true
	m.currentView = ViewLog
	m.updateLogViewport()
	return loadLogCmd(m.ctx, m.backend, ref, m.localFile == "", false)
}

// closeLog drops the open log view and everything held for it.
func (m *Model) closeLog() {
	ref, ok := m.active.Current()
	if !ok {
		return
	}
	m.active.Close()
	if m.backend != nil {
		m.backend.CloseLog(ref.ID)
	}
}

// handleLog applies a fetched log. Results for a view that has since been
// closed or reopened are dropped.
func (m Model) handleLog(msg logMsg) (tea.Model, tea.Cmd) {
	if !m.active.IsActive(msg.ref) {
		return m, nil
	}
	ls := &m.logState
	ls.fetching = false
	ls.loading = false
	ls.fetchedAt = m.now
	if msg.job != nil {
		ls.job = msg.job
	}
	if msg.err != nil {
		m.setError(msg.err)
		ls.contentVersion++
		m.updateLogViewport()
		return m, nil
	}

	m.applyLogInfo(msg.info)

	if ls.pendingStep != nil {
		step := *ls.pendingStep
		ls.pendingStep = nil
		return m, revealCmd(m.ctx, m.backend, ls.ref, step)
	}
	return m, nil
}

// applyLogInfo formats the lines that changed and rebuilds the rows.
func (m *Model) applyLogInfo(info *logview.LogInfo) {
	ls := &m.logState
	prev := ls.info
	n := info.LineCount()

	// Lines before the previous last one are unchanged when the log only
	// grew. Anything else is formatted again.
	from := 0
	if k := prev.LineCount(); k > 0 && k <= n && prev.Lines[k-1].Raw == info.Lines[k-1].Raw {
		from = k - 1
	}
	ls.info = info
	logview.Formatter{}.Apply(ls.view, info, from, n)

	// Folds of sections that no longer start where they did are forgotten.
	starts := make(map[int]bool, len(info.Sections))
	for _, s := range info.Sections {
		starts[s.Start] = true
	}
	for start := range ls.folded {
		if !starts[start] {
			delete(ls.folded, start)
		}
	}

	if ls.searchRegex != nil {
		m.findSearchMatches()
	}
	m.rebuildRows()
}

// handleReveal scrolls to a resolved step. A step missing from the log is
// reported but is not an error.
func (m *Model) handleReveal(msg revealMsg) {
	if !m.active.IsActive(msg.ref) {
		return
	}
	if msg.err != nil {
		m.setError(msg.err)
		return
	}
	if !msg.ok {
		m.setStatus("Step not found in this log")
		return
	}
	m.revealLine(msg.loc.Line, false)
}

// followLog re-fetches the log while it can still grow.
func (m *Model) followLog(now time.Time) tea.Cmd {
	ls := &m.logState
	if !ls.follow || ls.fetching || ls.info == nil || !m.logGrowing() {
		return nil
	}
	if now.Sub(ls.fetchedAt) < m.pollEvery {
		return nil
	}
	ls.fetching = true
	return loadLogCmd(m.ctx, m.backend, ls.ref, m.localFile == "", true)
}

// logGrowing reports whether the open log may still change.
func (m *Model) logGrowing() bool {
	if m.localFile != "" {
		return true
	}
	return m.logState.job != nil && m.logState.job.Active()
}

// rebuildRows recomputes the visible lines from the folds.
func (m *Model) rebuildRows() {
	ls := &m.logState
	ls.rows = visibleRows(ls.info, ls.folded)
	ls.contentVersion++
	m.updateLogViewport()
}

// visibleRows lists the lines shown when the sections in folded are collapsed.
func visibleRows(info *logview.LogInfo, folded map[int]bool) []int {
	n := info.LineCount()
	if n == 0 {
		return nil
	}
	ends := make(map[int]int, len(info.Sections))
	for _, s := range info.Sections {
		ends[s.Start] = s.End
	}
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, i)
		if end, ok := ends[i]; ok && folded[i] {
			i = end
		}
	}
	return rows
}

// rowOf returns the display row of line, or of the header hiding it.
func (ls *logState) rowOf(line int) int {
	best := 0
	for i, l := range ls.rows {
		if l > line {
			break
		}
		best = i
	}
	return best
}

// topLine returns the log line at the top of the viewport.
func (m *Model) topLine() int {
	rows := m.logState.rows
	if len(rows) == 0 {
		return 0
	}
	return rows[clampInt(m.logViewport.YOffset, 0, len(rows)-1)]
}

// revealLine unfolds the section holding line and scrolls it into view.
// center puts the line mid-screen instead of at the top.
func (m *Model) revealLine(line int, center bool) {
	ls := &m.logState
	if ls.info == nil {
		return
	}
	if s, ok := ls.info.SectionAt(line); ok && ls.folded[s.Start] && line != s.Start {
		delete(ls.folded, s.Start)
	}
	ls.follow = false
	m.rebuildRows()

	row := ls.rowOf(line)
	if center {
		row = max(row-m.logViewport.Height/2, 0)
	}
	m.logViewport.SetYOffset(row)
}

// toggleFold folds or unfolds the section at the top of the view.
func (m *Model) toggleFold() {
	ls := &m.logState
	s, ok := ls.info.SectionAt(m.topLine())
	if !ok {
		return
	}
	if ls.folded[s.Start] {
		delete(ls.folded, s.Start)
	} else {
		ls.folded[s.Start] = true
	}
	ls.follow = false
	m.rebuildRows()
	m.logViewport.SetYOffset(ls.rowOf(s.Start))
}

// toggleFoldAll folds every section, or unfolds them all when all are folded.
func (m *Model) toggleFoldAll() {
	ls := &m.logState
	if ls.info == nil || len(ls.info.Sections) == 0 {
		return
	}
	top := m.topLine()
	allFolded := len(ls.folded) == len(ls.info.Sections)
	ls.folded = make(map[int]bool)
	if !allFolded {
		for _, s := range ls.info.Sections {
			ls.folded[s.Start] = true
		}
	}
	ls.follow = false
	m.rebuildRows()
	m.logViewport.SetYOffset(ls.rowOf(top))
}

// jumpSection moves to the header of the next (dir > 0) or previous section.
func (m *Model) jumpSection(dir int) {
	ls := &m.logState
	if ls.info == nil {
		return
	}
	top := m.topLine()
	target := -1
	for _, s := range ls.info.Sections {
		if dir > 0 && s.Start > top {
			target = s.Start
			break
		}
		if dir < 0 && s.Start < top {
			target = s.Start
		}
	}
	if target >= 0 {
		m.revealLine(target, false)
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	contentHeight := m.height - 2 // header and status bar
	return m.renderBox(m.getLogTitle(), m.logViewport.View(), m.width, contentHeight, true)
}

// getLogTitle returns the plain text title for the log view.
func (m Model) getLogTitle() string {
	ls := m.logState
	if m.localFile != "" {
		return m.localFile
	}
	title := fmt.Sprintf("%s/%s job %d", ls.ref.ID.Owner, ls.ref.ID.Repo, ls.ref.ID.JobID)
	if ls.job != nil {
		title = fmt.Sprintf("%s · %s", ls.job.Name, ls.job.Label())
	}
	if ls.ref.ID.Step != "" {
		title += " · " + ls.ref.ID.Step
	}
	return title
}

// renderLogStatus renders the status bar of the log view.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	ls := m.logState

	if ls.searchActive {
		return ls.searchInput.View()
	}

	// If we have an active search with matches, show search status instead
	if ls.searchRegex != nil && len(ls.searchMatches) > 0 {
		return bg.Render(fmt.Sprintf("/%s", ls.searchQuery), styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", ls.searchMatchIdx+1, len(ls.searchMatches)), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}

	// If search regex exists but no matches
	if ls.searchRegex != nil {
		return bg.Render("Pattern not found: "+ls.searchQuery, styles.DangerText)
	}

	follow := "off"
	if ls.follow {
		follow = "on"
		if !m.logGrowing() {
			follow = "on (finished)"
		}
	}
	status := fmt.Sprintf("%d lines %d steps %d folded follow %s",
		ls.info.LineCount(), len(sectionsOf(ls.info)), len(ls.folded), follow)
	if ls.job == nil {
		return bg.Render(status, styles.FaintText)
	}
	label := ls.job.Label()
	return styles.StatusStyle(label).Render(label) + bg.Space() + bg.Render(status, styles.FaintText)
}

func sectionsOf(info *logview.LogInfo) []logview.Section {
	if info == nil {
		return nil
	}
	return info.Sections
}

// renderLogContent renders every visible row of the log.
func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width
	ls := &m.logState

	if ls.info == nil {
		msg := "Loading log..."
		if !ls.loading {
			msg = "No log loaded"
		}
		return bg.FillLine(bg.Render(msg, styles.MutedText), width)
	}
	if len(ls.rows) == 0 {
		return bg.FillLine(bg.Render("Log is empty", styles.MutedText), width)
	}

	headers := make(map[int]logview.Section, len(ls.info.Sections))
	for _, s := range ls.info.Sections {
		headers[s.Start] = s
	}
	matchSet := make(map[int]bool, len(ls.searchMatches))
	for _, idx := range ls.searchMatches {
		matchSet[idx] = true
	}
	activeMatchLine := -1
	if len(ls.searchMatches) > 0 && ls.searchMatchIdx < len(ls.searchMatches) {
		activeMatchLine = ls.searchMatches[ls.searchMatchIdx]
	}

	var b strings.Builder
	for i, idx := range ls.rows {
		fl, ok := ls.view.Line(idx)
		if !ok {
			fl = logview.FormatLine(idx, ls.info.Lines[idx])
		}
		text, decs := displayLine(fl, ls.info.Lines[idx], ls.showTimestamps)

		marker := " "
		s, isHeader := headers[idx]
		if isHeader {
			marker = "▾"
			if ls.folded[idx] {
				marker = "▸"
			}
		}
		gutter := fmt.Sprintf("%5d %s ", idx+1, marker)

		var line string
		switch {
		case idx == activeMatchLine:
			hl := lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.Warning)).
				Foreground(lipgloss.Color(m.theme.Background))
			line = hl.Render(gutter + text)
		case matchSet[idx]:
			line = bg.Render(gutter, styles.AccentText) + bg.Render(text, styles.AccentText)
		default:
			line = bg.Render(gutter, styles.FaintText) + bg.RenderDecorated(text, decs, styles)
		}
		if isHeader && ls.folded[idx] {
			line += bg.Render(fmt.Sprintf("  … %d lines", s.Lines()-1), styles.FaintText)
		}

		b.WriteString(bg.FitLine(line, width))
		if i < len(ls.rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// displayLine returns the text shown for fl, dropping the timestamp prefix
// when timestamps are hidden. Decorations are shifted to match.
func displayLine(fl logview.FormattedLine, line logview.LineInfo, showTimestamps bool) (string, []logview.Decoration) {
	cut := line.TimestampLen
	if showTimestamps || cut == 0 || cut > len(fl.Text) {
		return fl.Text, fl.Decorations
	}
	decs := make([]logview.Decoration, 0, len(fl.Decorations))
	for _, d := range fl.Decorations {
		if d.End <= cut {
			continue
		}
		d.Start = max(d.Start-cut, 0)
		d.End -= cut
		decs = append(decs, d)
	}
	return fl.Text[cut:], decs
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ls := &m.logState

	switch {
	case key.Matches(msg, m.keys.Escape):
		// Clear search first if active
		if ls.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
			return m, nil
		}
		if m.localFile != "" {
			return m, nil
		}
		var cmd tea.Cmd
		if m.jobsRunID == 0 && ls.job != nil {
			m.jobsRunID = ls.job.RunID
			m.jobs = nil
			m.jobsLoading = true
			cmd = loadJobsCmd(m.ctx, m.backend, m.jobsRunID)
		}
		m.closeLog()
		m.currentView = ViewJobs
		return m, cmd

	case key.Matches(msg, m.keys.ToggleFollow):
		ls.follow = !ls.follow
		m.prefs.Follow = ls.follow
		m.savePrefs()
		m.updateLogViewport()
		if ls.follow {
			ls.fetchedAt = time.Time{}
			return m, m.followLog(m.now)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if ls.fetching || ls.info == nil {
			return m, nil
		}
		ls.fetching = true
		return m, loadLogCmd(m.ctx, m.backend, ls.ref, m.localFile == "", true)

	case key.Matches(msg, m.keys.ToggleFold):
		m.toggleFold()
		return m, nil

	case key.Matches(msg, m.keys.ToggleFoldAll):
		m.toggleFoldAll()
		return m, nil

	case key.Matches(msg, m.keys.NextSection):
		m.jumpSection(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevSection):
		m.jumpSection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Outline):
		m.modal = newOutlineModal(logview.Symbols(ls.info), m.topLine())
		return m, nil

	case key.Matches(msg, m.keys.ToggleTimestamps):
		ls.showTimestamps = !ls.showTimestamps
		m.prefs.ShowTimestamps = ls.showTimestamps
		m.savePrefs()
		ls.contentVersion++
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.CopyURI):
		uri := ls.ref.ID.URI()
		if err := writeClipboard(uri); err != nil {
			m.setError(fmt.Errorf("copy link: %w", err))
			return m, nil
		}
		m.setStatus("Copied " + uri)
		return m, nil

	case key.Matches(msg, m.keys.Search):
		ls.searchActive = true
		ls.searchInput.SetValue("")
		return m, ls.searchInput.Focus()

	case key.Matches(msg, m.keys.NextMatch):
		m.nextSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.PrevMatch):
		m.previousSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		ls.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		ls.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		ls.follow = false
		return m, nil

	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		ls.follow = false
		return m, nil

	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		ls.follow = false
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
		ls.follow = false
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
		ls.follow = false
		return m, nil
	}

	return m, nil
}

// handleLogSearchInput handles keyboard input during log search.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ls := &m.logState
	switch {
	case msg.String() == "ctrl+c":
		m.closeLog()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Confirm):
		query := ls.searchInput.Value()
		if query == "" {
			ls.searchActive = false
			ls.searchInput.Blur()
			return m, nil
		}

		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			// Invalid regex - stay in search mode
			return m, nil
		}

		ls.searchRegex = re
		ls.searchQuery = query
		ls.searchActive = false
		ls.searchInput.Blur()

		m.findSearchMatches()
		if len(ls.searchMatches) > 0 {
			ls.searchMatchIdx = 0
			m.scrollToSearchMatch()
		}
		m.updateLogViewport()
		return m, nil

	case msg.String() == "esc":
		ls.searchActive = false
		ls.searchInput.Blur()
		ls.searchInput.SetValue("")
		return m, nil
	}

	// Let the text input handle the key
	var cmd tea.Cmd
	ls.searchInput, cmd = ls.searchInput.Update(msg)
	return m, cmd
}

// clearLogSearch clears the search state.
func (m *Model) clearLogSearch() {
	ls := &m.logState
	ls.searchRegex = nil
	ls.searchQuery = ""
	ls.searchMatches = nil
	ls.searchMatchIdx = 0
	ls.contentVersion++ // Search highlighting changed
}

// findSearchMatches finds all lines whose display text matches the search.
// Escape sequences are not searched.
func (m *Model) findSearchMatches() {
	ls := &m.logState
	ls.searchMatches = nil
	if ls.searchRegex == nil || ls.info == nil {
		return
	}
	for i, line := range ls.info.Lines {
		fl, ok := ls.view.Line(i)
		if !ok {
			fl = logview.FormatLine(i, line)
		}
		if ls.searchRegex.MatchString(fl.Text) {
			ls.searchMatches = append(ls.searchMatches, i)
		}
	}
	if ls.searchMatchIdx >= len(ls.searchMatches) {
		ls.searchMatchIdx = 0
	}
	ls.contentVersion++ // Search highlighting changed
}

// nextSearchMatch moves to the next search match.
func (m *Model) nextSearchMatch() {
	ls := &m.logState
	if len(ls.searchMatches) == 0 {
		return
	}
	ls.searchMatchIdx = (ls.searchMatchIdx + 1) % len(ls.searchMatches)
	m.scrollToSearchMatch()
}

// previousSearchMatch moves to the previous search match.
func (m *Model) previousSearchMatch() {
	ls := &m.logState
	if len(ls.searchMatches) == 0 {
		return
	}
	ls.searchMatchIdx = (ls.searchMatchIdx - 1 + len(ls.searchMatches)) % len(ls.searchMatches)
	m.scrollToSearchMatch()
}

// scrollToSearchMatch unfolds and centers the current match.
func (m *Model) scrollToSearchMatch() {
	ls := &m.logState
	if len(ls.searchMatches) == 0 || ls.searchMatchIdx >= len(ls.searchMatches) {
		return
	}
	m.revealLine(ls.searchMatches[ls.searchMatchIdx], true)
}
