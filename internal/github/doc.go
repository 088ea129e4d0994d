// Package github provides an HTTP client for the GitHub Actions REST API.
//
// # Overview
//
// This package is the only place actlog talks to GitHub. It covers the
// endpoints needed to browse runs and jobs, download job logs, act on runs,
// manage repository secrets and send dispatch events.
//
// # Architecture
//
//   - client.go: HTTP plumbing, runs, jobs, logs and workflow dispatch
//   - secrets.go: secret management and repository dispatch
//   - types.go: data structures mirroring the REST schema
//   - errors.go: APIError and the sentinel errors it matches
//
// # Client Usage
//
//	client, err := github.NewClient(cfg.APIURL, cfg.Token)
//	if err != nil {
//		return err
//	}
//	runs, err := client.ListRuns(ctx, "octo", "hello", github.RunQuery{PerPage: 20})
//
// *Client satisfies logview.Fetcher through FetchJobLogs.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/vnd.github+json and X-GitHub-Api-Version
//   - Include User-Agent: actlog/0.1
//   - Carry the bearer token from an oauth2.TokenSource when one is configured
//
// The API base URL keeps its path, so GitHub Enterprise Server URLs such as
// https://ghe.example.com/api/v3 work unchanged.
//
// # Error Handling
//
// Non-2xx responses become *APIError, which matches ErrNotFound,
// ErrUnauthorized, ErrForbidden and ErrRateLimited with errors.Is. A 403 with
// X-RateLimit-Remaining: 0 counts as rate limiting, not as missing permission.
// Expired logs (410) match ErrNotFound. Describe turns any of them into a line
// suitable for the status bar.
//
// # Thread Safety
//
// The Client struct is safe for concurrent use.
//
// # Design Rationale
//
//   - No caching (logview.Cache owns parsed logs, the poller owns run lists)
//   - No retries (app layer decides retry policy)
//   - No pagination beyond the first page
package github
