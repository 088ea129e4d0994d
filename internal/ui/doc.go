// Package ui implements the actlog terminal interface on Bubble Tea.
//
// # Views
//
// The interface has three levels, left with esc:
//
//   - Runs: the repository's recent workflow runs, read from state.Store
//     snapshots the background poller keeps fresh. A run can be cancelled
//     (c) or re-run (r) after a confirmation.
//   - Jobs: the jobs of one run with their steps underneath.
//   - Log: one job log. Opening a step opens the job's log and reveals the
//     step's section once it has loaded.
//
// # Log View
//
// The log is shown through the logview decorations: timestamps dimmed,
// section headers and ##[error]/##[warning] lines colored, ANSI color runs
// drawn with their own attributes. Each section can be folded (z, Z for all),
// the outline (o) lists every step and [ / ] move between them. While the job
// is queued or running the view re-fetches the log every poll interval.
//
// Fetches run as tea.Cmds tagged with the state.LogRef of the view they were
// started for. A result is applied only while state.ActiveLog still reports
// that tag as active, so closing or switching logs never shows stale data.
//
// # Signals
//
// The command layer reports through notify.Signal values on a channel: errors
// land in the status bar, reveal requests scroll the open log, refresh
// requests reload runs and jobs.
//
// # Preferences
//
// Theme (T), follow (Space) and timestamp visibility (t) are saved to the
// prefs file as they change.
package ui
