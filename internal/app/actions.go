package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logview"
	"github.com/five82/actlog/internal/notify"
	"github.com/five82/actlog/internal/secrets"
	"github.com/five82/actlog/internal/workflow"
)

// Actions is the command boundary between the user surfaces (TUI and CLI) and
// the remote API. Failures are reported through Notify and returned; nothing
// is changed locally when a remote call fails.
type Actions struct {
	API          github.API
	Logs         *logview.Service
	Notify       notify.Notifier
	Logger       *slog.Logger
	Owner        string
	Repo         string
	WorkflowsDir string
}

// NewActions wires an Actions for owner/repo. Job logs come from fetcher, which
// is normally api itself.
func NewActions(api github.API, fetcher logview.Fetcher, owner, repo string, n notify.Notifier, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = notify.Log(logger)
	}
	if fetcher == nil {
		fetcher = api
	}
	return &Actions{
		API:          api,
		Logs:         logview.NewService(fetcher, logger),
		Notify:       n,
		Logger:       logger,
		Owner:        owner,
		Repo:         repo,
		WorkflowsDir: workflow.DefaultDir,
	}
}

// JobID builds the log identifier of a job in the current repository.
func (a *Actions) JobID(jobID int64, step string) (logview.Identifier, error) {
	return logview.NewIdentifier(a.Owner, a.Repo, jobID, step)
}

// ListRuns returns recent runs of the repository.
func (a *Actions) ListRuns(ctx context.Context, query github.RunQuery) ([]github.WorkflowRun, error) {
	runs, err := a.API.ListRuns(ctx, a.Owner, a.Repo, query)
	if err != nil {
		return nil, a.fail("list runs", err)
	}
	return runs, nil
}

// ListJobs returns the jobs of a run.
func (a *Actions) ListJobs(ctx context.Context, runID int64) ([]github.WorkflowJob, error) {
	jobs, err := a.API.ListJobs(ctx, a.Owner, a.Repo, runID)
	if err != nil {
		return nil, a.fail(fmt.Sprintf("list jobs of run %d", runID), err)
	}
	return jobs, nil
}

// Job returns one job with its steps.
func (a *Actions) Job(ctx context.Context, jobID int64) (*github.WorkflowJob, error) {
	job, err := a.API.GetJob(ctx, a.Owner, a.Repo, jobID)
	if err != nil {
		return nil, a.fail(fmt.Sprintf("get job %d", jobID), err)
	}
	return job, nil
}

// CancelRun cancels a run and asks for the run tree to be refreshed.
func (a *Actions) CancelRun(ctx context.Context, runID int64) error {
	if err := a.API.CancelRun(ctx, a.Owner, a.Repo, runID); err != nil {
		return a.fail(fmt.Sprintf("cancel run %d", runID), err)
	}
	a.Notify.RefreshTree(fmt.Sprintf("cancelled run %d", runID))
	return nil
}

// RerunRun re-runs a run and asks for the run tree to be refreshed.
func (a *Actions) RerunRun(ctx context.Context, runID int64) error {
	if err := a.API.RerunRun(ctx, a.Owner, a.Repo, runID); err != nil {
		return a.fail(fmt.Sprintf("rerun run %d", runID), err)
	}
	a.Notify.RefreshTree(fmt.Sprintf("re-ran run %d", runID))
	return nil
}

// ListSecrets returns the repository secrets.
func (a *Actions) ListSecrets(ctx context.Context) ([]github.Secret, error) {
	list, err := a.API.ListSecrets(ctx, a.Owner, a.Repo)
	if err != nil {
		return nil, a.fail("list secrets", err)
	}
	return list, nil
}

// SetSecret seals value with the repository key and stores it under name.
// The plaintext never leaves the process.
func (a *Actions) SetSecret(ctx context.Context, name string, value []byte) error {
	if err := secrets.ValidateName(name); err != nil {
		return a.fail("set secret", err)
	}
	key, err := a.API.PublicKey(ctx, a.Owner, a.Repo)
	if err != nil {
		return a.fail("fetch repository public key", err)
	}
	sealer, err := secrets.NewSealer(key.KeyID, key.Key)
	if err != nil {
		return a.fail("set secret", err)
	}
	sealed, err := sealer.Seal(value)
	if err != nil {
		return a.fail("set secret", err)
	}
	if err := a.API.PutSecret(ctx, a.Owner, a.Repo, name, sealed, sealer.KeyID); err != nil {
		return a.fail(fmt.Sprintf("set secret %s", name), err)
	}
	a.Notify.RefreshTree("secret " + name + " updated")
	return nil
}

// DeleteSecret removes a secret.
func (a *Actions) DeleteSecret(ctx context.Context, name string) error {
	if err := a.API.DeleteSecret(ctx, a.Owner, a.Repo, name); err != nil {
		return a.fail(fmt.Sprintf("delete secret %s", name), err)
	}
	a.Notify.RefreshTree("secret " + name + " deleted")
	return nil
}

// Dispatch sends a repository_dispatch event and returns its correlation id.
func (a *Actions) Dispatch(ctx context.Context, eventType string, payload map[string]any) (string, error) {
	id, err := a.API.DispatchRepository(ctx, a.Owner, a.Repo, eventType, payload)
	if err != nil {
		return "", a.fail(fmt.Sprintf("dispatch %s", eventType), err)
	}
	a.Notify.RefreshTree("dispatched " + eventType)
	return id, nil
}

// TriggerWorkflow checks the local workflow file and its inputs, then sends a
// workflow_dispatch event for it on ref.
func (a *Actions) TriggerWorkflow(ctx context.Context, file, ref string, inputs map[string]string) error {
	path, err := workflow.Find(a.WorkflowsDir, file)
	if err != nil {
		return a.fail("trigger workflow", err)
	}
	wf, err := workflow.Load(path)
	if err != nil {
		return a.fail("trigger workflow", err)
	}
	if err := workflow.ValidateInputs(wf, inputs); err != nil {
		return a.fail("trigger workflow", err)
	}
	name := filepath.Base(path)
	if err := a.API.DispatchWorkflow(ctx, a.Owner, a.Repo, name, ref, inputs); err != nil {
		return a.fail(fmt.Sprintf("trigger workflow %s", name), err)
	}
	a.Notify.RefreshTree("triggered " + name + " on " + ref)
	return nil
}

// OpenLog returns the parsed log for id. Concurrent opens share one fetch.
func (a *Actions) OpenLog(ctx context.Context, id logview.Identifier) (*logview.LogInfo, error) {
	info, err := a.Logs.Info(ctx, id)
	if err != nil {
		return nil, a.fail("open log "+id.String(), err)
	}
	return info, nil
}

// RefreshLog re-fetches the log for id.
func (a *Actions) RefreshLog(ctx context.Context, id logview.Identifier) (*logview.LogInfo, error) {
	info, err := a.Logs.Refresh(ctx, id)
	if err != nil {
		return nil, a.fail("refresh log "+id.String(), err)
	}
	return info, nil
}

// CloseLog drops everything held for id.
func (a *Actions) CloseLog(id logview.Identifier) {
	a.Logs.Close(id)
}

// LogText returns the raw text behind a virtual document URI.
func (a *Actions) LogText(ctx context.Context, uri string) (string, error) {
	text, err := a.Logs.Content().Content(ctx, uri)
	if err != nil {
		return "", a.fail("read "+uri, err)
	}
	return text, nil
}

// Reveal resolves step in the log of id and signals the location when found.
// A step that cannot be resolved is not an error.
func (a *Actions) Reveal(ctx context.Context, id logview.Identifier, step logview.StepRef) (logview.Location, bool, error) {
	loc, ok, err := a.Logs.Reveal(ctx, id, step)
	if err != nil {
		return logview.Location{}, false, a.fail("reveal step in "+id.String(), err)
	}
	if !ok {
		a.Logger.Debug("step not found in log", "job", id.JobID, "step", step.Name, "number", step.Number)
		return logview.Location{}, false, nil
	}
	a.Notify.RevealLocation(loc)
	return loc, true, nil
}

// StepRef picks the step of job matching name (or number when name is empty)
// so the deep link carries both.
func StepRef(job *github.WorkflowJob, name string, number int) logview.StepRef {
	ref := logview.StepRef{Name: name, Number: number}
	if job == nil {
		return ref
	}
	for _, s := range job.Steps {
		if (name != "" && s.Name == name) || (name == "" && s.Number == number) {
			return logview.StepRef{Name: s.Name, Number: s.Number}
		}
	}
	return ref
}

// fail wraps err, reports it and returns it. Stale log loads are dropped
// silently.
func (a *Actions) fail(what string, err error) error {
	wrapped := fmt.Errorf("%s: %w", what, err)
	if errors.Is(err, logview.ErrStale) || errors.Is(err, context.Canceled) {
		return wrapped
	}
	a.Logger.Warn("action failed", "action", what, "error", err)
	a.Notify.ShowError(wrapped)
	return wrapped
}
