package github

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WorkflowRun mirrors a run from /actions/runs.
type WorkflowRun struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayTitle string    `json:"display_title"`
	RunNumber    int       `json:"run_number"`
	RunAttempt   int       `json:"run_attempt"`
	Event        string    `json:"event"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	HeadBranch   string    `json:"head_branch"`
	HeadSHA      string    `json:"head_sha"`
	WorkflowID   int64     `json:"workflow_id"`
	HTMLURL      string    `json:"html_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Title returns the commit or dispatch title, falling back to the workflow name.
func (r WorkflowRun) Title() string {
	if t := strings.TrimSpace(r.DisplayTitle); t != "" {
		return t
	}
	return r.Name
}

// Label returns the human status of the run.
func (r WorkflowRun) Label() string {
	return StatusLabel(r.Status, r.Conclusion)
}

// Active reports whether the run can still produce output.
func (r WorkflowRun) Active() bool {
	return IsActive(r.Status)
}

// WorkflowJob mirrors a job from /actions/runs/{id}/jobs.
type WorkflowJob struct {
	ID          int64          `json:"id"`
	RunID       int64          `json:"run_id"`
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	Conclusion  string         `json:"conclusion"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	HTMLURL     string         `json:"html_url"`
	RunnerName  string         `json:"runner_name"`
	Steps       []WorkflowStep `json:"steps"`
}

// Label returns the human status of the job.
func (j WorkflowJob) Label() string {
	return StatusLabel(j.Status, j.Conclusion)
}

// Active reports whether the job log may still grow.
func (j WorkflowJob) Active() bool {
	return IsActive(j.Status)
}

// Duration returns how long the job ran, or has been running as of now.
func (j WorkflowJob) Duration(now time.Time) time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	end := now
	if j.CompletedAt != nil && !j.CompletedAt.IsZero() {
		end = *j.CompletedAt
	}
	if end.Before(j.StartedAt) {
		return 0
	}
	return end.Sub(j.StartedAt)
}

// WorkflowStep is one step of a job as reported by the API.
type WorkflowStep struct {
	Name       string `json:"name"`
	Number     int    `json:"number"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

// Label returns the human status of the step.
func (s WorkflowStep) Label() string {
	return StatusLabel(s.Status, s.Conclusion)
}

// Workflow mirrors an entry from /actions/workflows.
type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

// PublicKey is the repository key secrets are sealed with.
type PublicKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

// Secret is the metadata of a repository secret. Values are never returned.
type Secret struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type runsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

type jobsResponse struct {
	TotalCount int           `json:"total_count"`
	Jobs       []WorkflowJob `json:"jobs"`
}

type workflowsResponse struct {
	TotalCount int        `json:"total_count"`
	Workflows  []Workflow `json:"workflows"`
}

type secretsResponse struct {
	TotalCount int      `json:"total_count"`
	Secrets    []Secret `json:"secrets"`
}

// IsActive reports whether status describes work that has not finished.
func IsActive(status string) bool {
	switch status {
	case "queued", "in_progress", "waiting", "requested", "pending":
		return true
	}
	return false
}

// StatusLabel picks the conclusion once the work completed, the status before.
func StatusLabel(status, conclusion string) string {
	value := status
	if status == "completed" && conclusion != "" {
		value = conclusion
	}
	if value == "" {
		return "Unknown"
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(value, "_", " "))
}
