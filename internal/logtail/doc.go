// Package logtail reads job logs from local files.
//
// # Reading Log Files
//
// The Read function uses a ring buffer to extract the last maxLines from a
// file, regardless of file size. This approach:
//
//   - Scans the file sequentially (one pass)
//   - Uses O(maxLines) memory, not O(file size)
//   - Returns lines in correct chronological order
//
// Example usage:
//
//	lines, err := logtail.Read("job.log", 5000)
//	if err != nil {
//		return err
//	}
//
// # File Fetcher
//
// FileFetcher adapts Read to logview.Fetcher so a log saved from the Actions
// web UI (or any `gh run view --log` output) can be opened with the same
// viewer as a live job: `actlog logs --file job.log`. Lines are scanned with
// bufio.ScanLines, so CRLF endings arrive normalized.
//
// A missing file is not an error for Read (callers polling a file that does
// not exist yet simply see nothing) but is for FileFetcher, where the user
// named the file explicitly.
package logtail
