package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// API is the subset of the GitHub REST API actlog uses. It is implemented by
// *Client and can be faked in tests.
type API interface {
	FetchJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error)
	ListRuns(ctx context.Context, owner, repo string, query RunQuery) ([]WorkflowRun, error)
	ListJobs(ctx context.Context, owner, repo string, runID int64) ([]WorkflowJob, error)
	GetJob(ctx context.Context, owner, repo string, jobID int64) (*WorkflowJob, error)
	CancelRun(ctx context.Context, owner, repo string, runID int64) error
	RerunRun(ctx context.Context, owner, repo string, runID int64) error
	ListWorkflows(ctx context.Context, owner, repo string) ([]Workflow, error)
	PublicKey(ctx context.Context, owner, repo string) (*PublicKey, error)
	ListSecrets(ctx context.Context, owner, repo string) ([]Secret, error)
	PutSecret(ctx context.Context, owner, repo, name, sealed, keyID string) error
	DeleteSecret(ctx context.Context, owner, repo, name string) error
	DispatchRepository(ctx context.Context, owner, repo, eventType string, payload map[string]any) (string, error)
	DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the GitHub REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    oauth2.TokenSource
	userAgent string
}

const (
	DefaultAPIURL    = "https://api.github.com"
	apiVersion       = "2022-11-28"
	defaultUserAgent = "actlog/0.1"
	requestTimeout   = 30 * time.Second
	maxErrorBody     = 64 << 10
)

// NewClient builds a Client for apiURL authenticating with token. An empty
// token sends anonymous requests, which only work for public repositories.
func NewClient(apiURL, token string) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}
	if token = strings.TrimSpace(token); token != "" {
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}
	return c, nil
}

// FetchJobLogs downloads the plain-text log of a job. The API answers with a
// redirect to blob storage, which the HTTP client follows.
func (c *Client) FetchJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if jobID <= 0 {
		return "", fmt.Errorf("job id required")
	}
	rel := &url.URL{Path: repoPath(owner, repo, "actions/jobs", strconv.FormatInt(jobID, 10), "logs")}
	resp, err := c.send(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read job log: %w", err)
	}
	return string(body), nil
}

// RunQuery filters /actions/runs.
type RunQuery struct {
	Branch  string
	Event   string
	Status  string
	PerPage int
}

// ListRuns returns the most recent runs of a repository, newest first.
func (c *Client) ListRuns(ctx context.Context, owner, repo string, query RunQuery) ([]WorkflowRun, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if branch := strings.TrimSpace(query.Branch); branch != "" {
		values.Set("branch", branch)
	}
	if event := strings.TrimSpace(query.Event); event != "" {
		values.Set("event", event)
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		values.Set("status", status)
	}
	if query.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(query.PerPage))
	}
	rel := &url.URL{Path: repoPath(owner, repo, "actions/runs"), RawQuery: values.Encode()}
	var payload runsResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.WorkflowRuns, nil
}

// ListJobs returns the jobs of the latest attempt of a run, steps included.
func (c *Client) ListJobs(ctx context.Context, owner, repo string, runID int64) ([]WorkflowJob, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := &url.URL{
		Path:     repoPath(owner, repo, "actions/runs", strconv.FormatInt(runID, 10), "jobs"),
		RawQuery: url.Values{"per_page": []string{"100"}}.Encode(),
	}
	var payload jobsResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

// GetJob returns a single job with its steps.
func (c *Client) GetJob(ctx context.Context, owner, repo string, jobID int64) (*WorkflowJob, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var job WorkflowJob
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "actions/jobs", strconv.FormatInt(jobID, 10)), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CancelRun requests cancellation of a run.
func (c *Client) CancelRun(ctx context.Context, owner, repo string, runID int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodPost, repoPath(owner, repo, "actions/runs", strconv.FormatInt(runID, 10), "cancel"), nil, nil)
}

// RerunRun re-runs every job of a run.
func (c *Client) RerunRun(ctx context.Context, owner, repo string, runID int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodPost, repoPath(owner, repo, "actions/runs", strconv.FormatInt(runID, 10), "rerun"), nil, nil)
}

// ListWorkflows returns the workflows registered for a repository.
func (c *Client) ListWorkflows(ctx context.Context, owner, repo string) ([]Workflow, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload workflowsResponse
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "actions/workflows"), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Workflows, nil
}

// DispatchWorkflow triggers a workflow_dispatch event for workflowFile on ref.
func (c *Client) DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("ref required")
	}
	body := struct {
		Ref    string            `json:"ref"`
		Inputs map[string]string `json:"inputs,omitempty"`
	}{Ref: ref, Inputs: inputs}
	return c.do(ctx, http.MethodPost, repoPath(owner, repo, "actions/workflows", workflowFile, "dispatches"), body, nil)
}

func repoPath(owner, repo string, parts ...string) string {
	segs := append([]string{"repos", owner, repo}, parts...)
	return "/" + strings.Join(segs, "/")
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	resp, err := c.send(ctx, method, rel, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and converts non-2xx responses to *APIError. The
// caller owns the returned body.
func (c *Client) send(ctx context.Context, method string, rel *url.URL, body any) (*http.Response, error) {
	reqURL := *c.baseURL
	reqURL.Path = strings.TrimRight(c.baseURL.Path, "/") + rel.Path
	reqURL.RawPath = ""
	reqURL.RawQuery = rel.RawQuery

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("load token: %w", err)
		}
		// Set per request rather than via oauth2.Transport so net/http drops
		// the header when the log download redirects to another host.
		tok.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		return nil, newAPIError(method, rel.Path, resp)
	}
	return resp, nil
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Message = payload.Message
	}
	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil && reset > 0 {
		apiErr.RateLimitReset = time.Unix(reset, 0)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.rateLimited = true
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		apiErr.rateLimited = true
	}
	return apiErr
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = DefaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
