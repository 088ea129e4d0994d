package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/five82/actlog/internal/config"
	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logtail"
	"github.com/five82/actlog/internal/logview"
	"github.com/five82/actlog/internal/notify"
	"github.com/five82/actlog/internal/prefs"
	"github.com/five82/actlog/internal/state"
	"github.com/five82/actlog/internal/ui"
)

// Local file logs are addressed under this placeholder repository.
const (
	localOwner = "local"
	localRepo  = "file"
	localJobID = 1
)

var _ ui.Backend = (*Actions)(nil)

// signalBuffer is how many notifications may queue up for the UI before new
// ones are dropped.
const signalBuffer = 32

// Options configure the actlog application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/actlog/prefs.toml
	Repo       string        // owner/name, overrides the config
	PollEvery  time.Duration // zero uses the config value
	Logger     *slog.Logger

	// AllowNoRepo lets Open succeed without a repository, for commands that
	// take the repository from their arguments.
	AllowNoRepo bool

	// JobID opens that job's log in the UI. Step or StepNumber select the
	// section revealed once it has loaded.
	JobID      int64
	Step       string
	StepNumber int

	// File reads the log from disk instead of the API. MaxLines keeps only
	// the tail of it.
	File     string
	MaxLines int
}

// Env is the wired application: configuration, API client and the command
// layer shared by the UI and the CLI.
type Env struct {
	Config  config.Config
	Prefs   prefs.Prefs
	Client  *github.Client
	Actions *Actions
	Store   *state.Store
	Signals chan notify.Signal
	Logger  *slog.Logger

	opts     Options
	interval time.Duration
}

// Open loads configuration and wires the command layer. It does not touch
// the network.
func Open(opts Options) (*Env, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("prefs unreadable, using defaults", "error", err)
		userPrefs = prefs.Default()
	}

	owner, repo, err := cfg.Repo(opts.Repo)
	switch {
	case err == nil:
	case opts.File != "":
		owner, repo = localOwner, localRepo
	case opts.AllowNoRepo && errors.Is(err, config.ErrNoRepository):
	default:
		return nil, err
	}

	client, err := github.NewClient(cfg.APIURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("init github client: %w", err)
	}
	if cfg.Token == "" {
		logger.Info("no token configured, using anonymous API access")
	} else {
		logger.Debug("token loaded", "source", cfg.TokenSource)
	}

	var fetcher logview.Fetcher
	if opts.File != "" {
		fetcher = logtail.FileFetcher{Path: opts.File, MaxLines: opts.MaxLines}
	}

	signals := make(chan notify.Signal, signalBuffer)
	n := notify.Multi(notify.Log(logger), notify.Chan(signals))

	actions := NewActions(client, fetcher, owner, repo, n, logger)
	actions.WorkflowsDir = cfg.WorkflowsDir

	store := &state.Store{}
	store.SetRepository(owner, repo)

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}

	return &Env{
		Config:   cfg,
		Prefs:    userPrefs,
		Client:   client,
		Actions:  actions,
		Store:    store,
		Signals:  signals,
		Logger:   logger,
		opts:     opts,
		interval: interval,
	}, nil
}

// Run boots the actlog TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	env, err := Open(opts)
	if err != nil {
		return err
	}
	return env.RunUI(ctx)
}

// RunUI starts the poller and the TUI.
func (e *Env) RunUI(ctx context.Context) error {
	opts := e.opts
	jobID := opts.JobID
	if opts.File != "" {
		jobID = localJobID
	} else {
		if e.Actions.Owner == "" {
			return config.ErrNoRepository
		}
		// Background poller, with one refresh first so the UI starts populated.
		refresh(ctx, e.Store, e.Client, e.Logger)
		StartPoller(ctx, e.Store, e.Client, e.interval, e.Logger)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	var step *logview.StepRef
	if opts.Step != "" || opts.StepNumber > 0 {
		ref := e.StepRef(ctx, jobID, opts.Step, opts.StepNumber)
		step = &ref
	}

	return ui.Run(ui.Options{
		Context: ctx,
		Backend: e.Actions,
		Store:   e.Store,
		Signals: e.Signals,
		RefreshRuns: func(ctx context.Context) {
			if opts.File == "" {
				refresh(ctx, e.Store, e.Client, e.Logger)
			}
		},
		PollEvery: e.interval,
		Prefs:     e.Prefs,
		PrefsPath: prefsPath,
		Logger:    e.Logger,
		JobID:     jobID,
		Step:      step,
		LocalFile: opts.File,
	})
}

// StepRef completes the requested step from the job's step list, so a name
// given alone also carries its number and the reverse. Without a job (local
// files) the request is returned as is.
func (e *Env) StepRef(ctx context.Context, jobID int64, name string, number int) logview.StepRef {
	ref := logview.StepRef{Name: name, Number: number}
	if e.opts.File != "" || jobID <= 0 {
		return ref
	}
	job, err := e.Actions.Job(ctx, jobID)
	if err != nil {
		return ref
	}
	return StepRef(job, name, number)
}

// LocalJobID is the job id a local file log is opened under.
func (e *Env) LocalJobID(jobID int64) int64 {
	if e.opts.File != "" {
		return localJobID
	}
	return jobID
}
