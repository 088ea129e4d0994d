package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the runs table drops
	// the branch and event columns.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show run age.
	LayoutWideWidth = 140
)

// Log view layout.
const (
	// LogGutterWidth is the width of the line number and fold marker column.
	LogGutterWidth = 8
)

// Timing constants.
const (
	// LogFetchTimeout bounds one job log download. Large logs are several MB.
	LogFetchTimeout = 60 * time.Second

	// APITimeout bounds run and job listing calls made from the UI.
	APITimeout = 15 * time.Second

	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// StatusMessageTTL is how long a status bar message stays up.
	StatusMessageTTL = 6 * time.Second
)
