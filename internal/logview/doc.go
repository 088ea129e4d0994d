// Package logview turns a GitHub Actions job log into a navigable document.
//
// # Overview
//
// A job log is a single text stream written line by line by the runner. Every
// line may start with an RFC 3339 timestamp and may carry ANSI escape
// sequences. Each step of the job opens with a ##[group] marker:
//
//	2024-05-01T10:00:00.0000000Z ##[group]Run actions/checkout@v4
//	2024-05-01T10:00:00.1000000Z with:
//	2024-05-01T10:00:00.2000000Z ##[endgroup]
//	2024-05-01T10:00:01.0000000Z Syncing repository: octo/hello
//
// The package reconstructs the step structure (sections), and derives the
// folding ranges, outline symbols, display decorations and deep-link targets
// an editor needs.
//
// # Pipeline
//
//	Identifier → Fetcher → raw text → Parser → LogInfo → {FoldingRanges, Symbols, Formatter, Resolve}
//
// Service wires the pipeline together. It fetches through a ContentProvider,
// feeds the text to a per-job incremental Parser, and memoizes the resulting
// LogInfo in a Cache keyed by the canonical Identifier (the job, without any
// step focus).
//
// # Sections
//
//   - A section starts at a ##[group] line and runs until the line before the
//     next one; the last section ends at the last line.
//   - Lines before the first marker form an unnamed leading section.
//   - Section numbers are positional and start at 1, named or not.
//   - End is inclusive.
//
// # Streaming
//
// Logs of running jobs grow between fetches. Parser accepts the text in
// chunks and Service only feeds the suffix that was not seen before, so a
// refresh costs O(new lines). Sections closed by a later marker never move.
//
// # Coalescing
//
// Cache collapses concurrent Gets for one identifier into one load using a
// pending-computation map. Invalidate bumps a per-identifier generation; a
// load that completes under an older generation is dropped and its waiters get
// ErrStale.
//
// # Formatting
//
// FormatLine strips escape sequences and reports SGR styling, the timestamp
// prefix and error/warning/notice/debug/command lines as decorations over the
// stripped text. Formatter.Apply writes decorations for a line range into a
// View, replacing earlier ones, so applying it twice has the same result as
// applying it once.
package logview
