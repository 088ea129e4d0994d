package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/nacl/box"

	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logview"
	"github.com/five82/actlog/internal/notify"
	"github.com/five82/actlog/internal/secrets"
	"github.com/five82/actlog/internal/workflow"
)

// fakeAPI records calls and answers from canned data. Embedding the interface
// keeps it compiling when methods are added; unexpected calls panic.
type fakeAPI struct {
	github.API

	mu        sync.Mutex
	logs      map[int64]string
	logCalls  int
	err       error
	key       *github.PublicKey
	putSealed string
	dispatch  []string
}

func (f *fakeAPI) FetchJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCalls++
	if f.err != nil {
		return "", f.err
	}
	text, ok := f.logs[jobID]
	if !ok {
		return "", &github.APIError{Method: "GET", Path: "/logs", StatusCode: 404}
	}
	return text, nil
}

func (f *fakeAPI) CancelRun(ctx context.Context, owner, repo string, runID int64) error {
	return f.err
}

func (f *fakeAPI) PublicKey(ctx context.Context, owner, repo string) (*github.PublicKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.key, nil
}

func (f *fakeAPI) PutSecret(ctx context.Context, owner, repo, name, sealed, keyID string) error {
	f.putSealed = sealed
	return f.err
}

func (f *fakeAPI) DispatchWorkflow(ctx context.Context, owner, repo, file, ref string, inputs map[string]string) error {
	f.dispatch = append(f.dispatch, file+"@"+ref)
	return f.err
}

func newTestActions(api *fakeAPI) (*Actions, *notify.Recorder) {
	rec := &notify.Recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewActions(api, nil, "octo", "hello", rec, logger), rec
}

func TestActions_CancelSignalsRefreshOrError(t *testing.T) {
	api := &fakeAPI{}
	a, rec := newTestActions(api)

	if err := a.CancelRun(context.Background(), 7); err != nil {
		t.Fatalf("CancelRun returned error: %v", err)
	}
	api.err = &github.APIError{Method: "POST", Path: "/cancel", StatusCode: 403}
	err := a.CancelRun(context.Background(), 7)
	if !errors.Is(err, github.ErrForbidden) {
		t.Fatalf("CancelRun error = %v, want ErrForbidden", err)
	}

	want := []notify.Kind{notify.KindRefreshTree, notify.KindError}
	if got := rec.Kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("signals = %v, want %v", got, want)
	}
}

func TestActions_SetSecretSealsWithRepositoryKey(t *testing.T) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	api := &fakeAPI{key: &github.PublicKey{KeyID: "k1", Key: base64.StdEncoding.EncodeToString(pub[:])}}
	a, rec := newTestActions(api)

	if err := a.SetSecret(context.Background(), "DEPLOY_KEY", []byte("s3cret")); err != nil {
		t.Fatalf("SetSecret returned error: %v", err)
	}
	if strings.Contains(api.putSealed, "s3cret") {
		t.Fatalf("plaintext sent to the API")
	}
	plain, err := secrets.Open(api.putSealed, pub, priv)
	if err != nil || string(plain) != "s3cret" {
		t.Fatalf("Open = %q, %v", plain, err)
	}
	if got := rec.Kinds(); !reflect.DeepEqual(got, []notify.Kind{notify.KindRefreshTree}) {
		t.Fatalf("signals = %v", got)
	}

	if err := a.SetSecret(context.Background(), "GITHUB_X", []byte("v")); !errors.Is(err, secrets.ErrInvalidName) {
		t.Fatalf("SetSecret error = %v, want ErrInvalidName", err)
	}
}

func TestActions_TriggerWorkflowChecksLocalFile(t *testing.T) {
	dir := t.TempDir()
	body := "on:\n  workflow_dispatch:\n    inputs:\n      env:\n        required: true\n"
	if err := os.WriteFile(filepath.Join(dir, "deploy.yml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	api := &fakeAPI{}
	a, rec := newTestActions(api)
	a.WorkflowsDir = dir
	ctx := context.Background()

	err := a.TriggerWorkflow(ctx, "release.yml", "main", nil)
	if !errors.Is(err, workflow.ErrWorkflowNotFound) {
		t.Fatalf("TriggerWorkflow error = %v, want ErrWorkflowNotFound", err)
	}
	if !strings.Contains(err.Error(), "workflow file release.yml not found in "+dir) {
		t.Fatalf("TriggerWorkflow error = %q, want the searched path", err)
	}

	if err := a.TriggerWorkflow(ctx, "deploy", "main", nil); !errors.Is(err, workflow.ErrInvalidInputs) {
		t.Fatalf("TriggerWorkflow error = %v, want ErrInvalidInputs", err)
	}
	if len(api.dispatch) != 0 {
		t.Fatalf("dispatch sent despite failed checks: %v", api.dispatch)
	}

	if err := a.TriggerWorkflow(ctx, "deploy", "main", map[string]string{"env": "prod"}); err != nil {
		t.Fatalf("TriggerWorkflow returned error: %v", err)
	}
	if !reflect.DeepEqual(api.dispatch, []string{"deploy.yml@main"}) {
		t.Fatalf("dispatch = %v", api.dispatch)
	}
	want := []notify.Kind{notify.KindError, notify.KindError, notify.KindRefreshTree}
	if got := rec.Kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("signals = %v, want %v", got, want)
	}
}

func TestActions_RevealSignalsLocation(t *testing.T) {
	api := &fakeAPI{logs: map[int64]string{42: "setup\n##[group]Build\nmake\n##[group]Test\ngo test\n"}}
	a, rec := newTestActions(api)
	id, err := a.JobID(42, "Test")
	if err != nil {
		t.Fatalf("JobID returned error: %v", err)
	}
	ctx := context.Background()

	loc, ok, err := a.Reveal(ctx, id, logview.StepRef{Name: "Test"})
	if err != nil || !ok || loc.Line != 3 {
		t.Fatalf("Reveal = %+v, %v, %v; want line 3", loc, ok, err)
	}
	if _, ok, err := a.Reveal(ctx, id, logview.StepRef{Name: "Lint", Number: 9}); ok || err != nil {
		t.Fatalf("Reveal unknown step = %v, %v; want not found without error", ok, err)
	}
	if api.logCalls != 1 {
		t.Fatalf("log fetches = %d, want 1", api.logCalls)
	}
	signals := rec.Signals()
	if len(signals) != 1 || signals[0].Kind != notify.KindReveal || signals[0].Location != loc {
		t.Fatalf("signals = %+v, want one reveal", signals)
	}
}

func TestActions_OpenLogReportsTypedErrors(t *testing.T) {
	api := &fakeAPI{logs: map[int64]string{}}
	a, rec := newTestActions(api)
	id, _ := a.JobID(9, "")

	_, err := a.OpenLog(context.Background(), id)
	if !errors.Is(err, github.ErrNotFound) {
		t.Fatalf("OpenLog error = %v, want ErrNotFound", err)
	}
	if got := rec.Kinds(); !reflect.DeepEqual(got, []notify.Kind{notify.KindError}) {
		t.Fatalf("signals = %v", got)
	}
}

func TestStepRef(t *testing.T) {
	job := &github.WorkflowJob{Steps: []github.WorkflowStep{
		{Name: "Set up job", Number: 1},
		{Name: "Build", Number: 2},
	}}
	if got := StepRef(job, "Build", 0); got != (logview.StepRef{Name: "Build", Number: 2}) {
		t.Fatalf("StepRef by name = %+v", got)
	}
	if got := StepRef(job, "", 1); got != (logview.StepRef{Name: "Set up job", Number: 1}) {
		t.Fatalf("StepRef by number = %+v", got)
	}
	if got := StepRef(nil, "X", 3); got != (logview.StepRef{Name: "X", Number: 3}) {
		t.Fatalf("StepRef without job = %+v", got)
	}
}
