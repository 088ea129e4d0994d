// Package app provides the orchestration layer for actlog.
//
// # Overview
//
// This package wires configuration, the GitHub client, the log engine,
// polling and notifications together. It is the composition root shared by
// the TUI and the command line: both go through Open and then drive the
// resulting Actions.
//
// # Architecture
//
// Open follows a simple initialization pattern:
//
//  1. Load actlog configuration from ~/.config/actlog/config.toml
//  2. Load UI preferences (theme, follow, timestamps)
//  3. Resolve the repository from --repo or the config
//  4. Build the GitHub client (token from config, $GITHUB_TOKEN or $GH_TOKEN)
//  5. Build Actions over the client, or over a local log file with --file
//  6. Create the state.Store shared by the poller and the UI
//
// RunUI then refreshes the runs once, starts the background poller and
// blocks in the TUI until the user quits or the context is cancelled.
//
// # Components
//
//   - app.go: Options, Open, Run and the Env they produce
//   - actions.go: the command layer (runs, jobs, logs, secrets, dispatch)
//   - poller.go: background goroutine refreshing the recent runs
//
// # Data Flow
//
//	┌──────────────┐       ┌──────────────┐
//	│   Poller     │──────→│ state.Store  │←─── UI reads snapshots
//	└──────────────┘       └──────────────┘
//	┌──────────────┐       ┌──────────────┐
//	│  UI / CLI    │──────→│   Actions    │──→ github.Client
//	└──────────────┘       └──────┬───────┘──→ logview.Service
//	        ↑                     │
//	        └── notify.Signal ────┘
//
// # Actions
//
// Every user-facing operation is a method on Actions. A failed remote call
// is reported through the Notifier (ShowError) and returned; nothing local is
// changed. Mutations that succeed (cancel, re-run, secrets, dispatch) signal
// RefreshTree so views reload. Reveal signals the location it resolved.
//
// Stale log loads (logview.ErrStale) and cancelled contexts are returned
// without being reported: they mean the caller already moved on.
//
// # Polling Strategy
//
// The poller lists the repository's recent runs:
//
//   - Default interval: 5 seconds (poll_seconds in the config)
//   - Backoff: doubles per consecutive failure, capped at 30 seconds
//   - Errors are recorded in the store; the last good runs stay visible
//
// # Local Files
//
// With --file the log comes from disk through logtail.FileFetcher under a
// placeholder identifier (local/file, job 1). No poller runs and the job is
// treated as still running, so follow mode keeps re-reading the file.
//
// # Error Handling
//
// Configuration errors abort startup. API errors never do: the poller keeps
// retrying and the UI shows github.Describe of the last failure.
package app
