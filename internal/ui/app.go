package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logview"
	"github.com/five82/actlog/internal/notify"
	"github.com/five82/actlog/internal/prefs"
	"github.com/five82/actlog/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewRuns View = iota
	ViewJobs
	ViewLog
)

// Backend is the command layer the UI drives. app.Actions implements it.
type Backend interface {
	JobID(jobID int64, step string) (logview.Identifier, error)
	ListJobs(ctx context.Context, runID int64) ([]github.WorkflowJob, error)
	Job(ctx context.Context, jobID int64) (*github.WorkflowJob, error)
	CancelRun(ctx context.Context, runID int64) error
	RerunRun(ctx context.Context, runID int64) error
	OpenLog(ctx context.Context, id logview.Identifier) (*logview.LogInfo, error)
	RefreshLog(ctx context.Context, id logview.Identifier) (*logview.LogInfo, error)
	CloseLog(id logview.Identifier)
	Reveal(ctx context.Context, id logview.Identifier, step logview.StepRef) (logview.Location, bool, error)
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Backend Backend
	Store   *state.Store
	Signals <-chan notify.Signal

	// RefreshRuns polls the run list into Store right away. Optional.
	RefreshRuns func(context.Context)

	// PollEvery is the cadence of API refreshes made by the UI itself
	// (jobs of the open run, the followed log).
	PollEvery time.Duration
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    *slog.Logger

	// JobID opens that job's log on start. Step, when set, is revealed once
	// the log has loaded.
	JobID int64
	Step  *logview.StepRef

	// LocalFile marks a log read from disk. There is no job or run behind it.
	LocalFile string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	backend     Backend
	store       *state.Store
	signals     <-chan notify.Signal
	refreshRuns func(context.Context)
	prefsPath   string
	pollEvery   time.Duration
	logger      *slog.Logger
	localFile   string

	// UI state
	keys        keyMap
	theme       Theme
	prefs       prefs.Prefs
	currentView View
	width       int
	height      int
	ready       bool
	now         time.Time

	// Data state
	snapshot state.Snapshot

	// Runs state
	selectedRun int

	// Jobs state
	jobsRunID     int64
	jobs          []github.WorkflowJob
	jobsLoading   bool
	jobsFetchedAt time.Time
	selectedJob   int

	// Log state
	active      *state.ActiveLog
	logViewport viewport.Model
	logState    logState

	// Overlays
	showHelp bool
	modal    Modal

	status statusLine
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollEvery := opts.PollEvery
	if pollEvery <= 0 {
		pollEvery = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := Model{
		ctx:         ctx,
		backend:     opts.Backend,
		store:       opts.Store,
		signals:     opts.Signals,
		refreshRuns: opts.RefreshRuns,
		prefsPath:   opts.PrefsPath,
		pollEvery:   pollEvery,
		logger:      logger,
		localFile:   opts.LocalFile,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.Prefs.Theme),
		prefs:       opts.Prefs,
		currentView: ViewRuns,
		now:         time.Now(),
		active:      &state.ActiveLog{},
	}
	m.logState = newLogState(state.LogRef{}, nil, nil, m.prefs)
	m.logState.initSearch()

	if opts.JobID > 0 && m.backend != nil {
		step := ""
		if opts.Step != nil {
			step = opts.Step.Name
		}
		if id, err := m.backend.JobID(opts.JobID, step); err == nil {
			m.logState = newLogState(m.active.Open(id), nil, opts.Step, m.prefs)
			m.logState.initSearch()
			m.logState.loading = true
			m.currentView = ViewLog
		} else {
			m.setError(err)
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(DefaultUIInterval),
		waitForSignal(m.signals),
	}
	// Fetch snapshot immediately on start
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLog {
		cmds = append(cmds, loadLogCmd(m.ctx, m.backend, m.logState.ref, m.localFile == "", false))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.selectedRun = clampInt(m.selectedRun, 0, max(len(m.snapshot.Runs)-1, 0))
		return m, nil

	case jobsMsg:
		return m.handleJobs(msg)

	case logMsg:
		return m.handleLog(msg)

	case revealMsg:
		m.handleReveal(msg)
		return m, nil

	case jumpMsg:
		m.revealLine(msg.line, false)
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(msg.done)
		}
		return m, nil

	case signalMsg:
		cmd := m.handleSignal(notify.Signal(msg))
		return m, tea.Batch(cmd, waitForSignal(m.signals))
	}

	if m.currentView == ViewLog && m.logState.searchActive {
		var cmd tea.Cmd
		m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	// Show help overlay if active
	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle help overlay
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	// The search prompt takes every key while it is open.
	if m.currentView == ViewLog && m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeLog()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil
	}

	// View-specific keys
	switch m.currentView {
	case ViewRuns:
		return m.handleRunsKey(msg)
	case ViewJobs:
		return m.handleJobsKey(msg)
	case ViewLog:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

// handleTick processes the UI tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	var cmds []tea.Cmd

	// Fetch latest snapshot
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	// Jobs of an unfinished run change as it progresses.
	if m.currentView == ViewJobs && !m.jobsLoading && m.jobsActive() && now.Sub(m.jobsFetchedAt) >= m.pollEvery {
		m.jobsLoading = true
		cmds = append(cmds, loadJobsCmd(m.ctx, m.backend, m.jobsRunID))
	}

	if m.currentView == ViewLog {
		if cmd := m.followLog(now); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	// Schedule next tick
	cmds = append(cmds, tickCmd(DefaultUIInterval))

	return m, tea.Batch(cmds...)
}

// handleSignal applies a notification from the command layer.
func (m *Model) handleSignal(s notify.Signal) tea.Cmd {
	switch s.Kind {
	case notify.KindError:
		m.setError(s.Err)
	case notify.KindReveal:
		if m.currentView == ViewLog && s.Location.ID.Canonical() == m.logState.ref.ID.Canonical() {
			m.revealLine(s.Location.Line, false)
		}
	case notify.KindRefreshTree:
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, refreshRunsCmd(m.ctx, m.refreshRuns, m.store))
		}
		if m.jobsRunID != 0 && !m.jobsLoading {
			m.jobsLoading = true
			cmds = append(cmds, loadJobsCmd(m.ctx, m.backend, m.jobsRunID))
		}
		return tea.Batch(cmds...)
	}
	return nil
}

// handleJobs applies a finished job listing.
func (m Model) handleJobs(msg jobsMsg) (tea.Model, tea.Cmd) {
	if msg.runID != m.jobsRunID {
		return m, nil
	}
	m.jobsLoading = false
	m.jobsFetchedAt = m.now
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}
	m.jobs = msg.jobs
	m.selectedJob = clampInt(m.selectedJob, 0, max(len(m.jobRows())-1, 0))
	return m, nil
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs", "path", m.prefsPath, "error", err)
	}
}

// statusLine is the transient message shown in the status bar.
type statusLine struct {
	text string
	err  bool
	at   time.Time
}

func (m *Model) setStatus(text string) {
	m.status = statusLine{text: text, at: time.Now()}
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	m.status = statusLine{text: github.Describe(err), err: true, at: time.Now()}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type signalMsg notify.Signal

type jobsMsg struct {
	runID int64
	jobs  []github.WorkflowJob
	err   error
}

type logMsg struct {
	ref     state.LogRef
	info    *logview.LogInfo
	job     *github.WorkflowJob
	err     error
	refresh bool
}

type revealMsg struct {
	ref state.LogRef
	loc logview.Location
	ok  bool
	err error
}

type actionMsg struct {
	done string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func refreshRunsCmd(ctx context.Context, refresh func(context.Context), store *state.Store) tea.Cmd {
	return func() tea.Msg {
		if refresh != nil {
			ctx, cancel := context.WithTimeout(ctx, APITimeout)
			defer cancel()
			refresh(ctx)
		}
		return snapshotMsg(store.Snapshot())
	}
}

func waitForSignal(ch <-chan notify.Signal) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return signalMsg(s)
	}
}

func loadJobsCmd(ctx context.Context, b Backend, runID int64) tea.Cmd {
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, APITimeout)
		defer cancel()
		jobs, err := b.ListJobs(ctx, runID)
		return jobsMsg{runID: runID, jobs: jobs, err: err}
	}
}

// loadLogCmd fetches the log behind ref. withJob also looks the job up, so
// the view knows whether the log can still grow.
func loadLogCmd(ctx context.Context, b Backend, ref state.LogRef, withJob, refresh bool) tea.Cmd {
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, LogFetchTimeout)
		defer cancel()
		msg := logMsg{ref: ref, refresh: refresh}
		if withJob {
			// Looked up first: a job seen completed here has a final log below.
			if job, err := b.Job(ctx, ref.ID.JobID); err == nil {
				msg.job = job
			}
		}
		if refresh {
			msg.info, msg.err = b.RefreshLog(ctx, ref.ID)
		} else {
			msg.info, msg.err = b.OpenLog(ctx, ref.ID)
		}
		return msg
	}
}

func revealCmd(ctx context.Context, b Backend, ref state.LogRef, step logview.StepRef) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, LogFetchTimeout)
		defer cancel()
		loc, ok, err := b.Reveal(ctx, ref.ID, step)
		return revealMsg{ref: ref, loc: loc, ok: ok, err: err}
	}
}

func runActionCmd(ctx context.Context, done string, call func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, APITimeout)
		defer cancel()
		if err := call(ctx); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{done: done}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.closeLog()
	}
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
