package cli

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"

	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logview"
	"github.com/five82/actlog/internal/secrets"
)

const runsJSON = `{"total_count":2,"workflow_runs":[
 {"id":101,"name":"CI","display_title":"Fix parser","status":"completed","conclusion":"success",
  "head_branch":"main","event":"push","created_at":"2026-10-01T12:00:00Z"},
 {"id":102,"name":"Release","display_title":"","status":"in_progress","conclusion":null,
  "head_branch":"v1.2","event":"workflow_dispatch","created_at":"2026-10-02T08:30:00Z"}]}`

const jobsJSON = `{"total_count":2,"jobs":[
 {"id":201,"run_id":101,"name":"build","status":"completed","conclusion":"success",
  "started_at":"2026-10-01T12:00:00Z","completed_at":"2026-10-01T12:01:05Z",
  "steps":[
   {"name":"Set up job","number":1,"status":"completed","conclusion":"success"},
   {"name":"Run make test","number":2,"status":"completed","conclusion":"failure"}]},
 {"id":202,"run_id":101,"name":"deploy","status":"queued","conclusion":null,"steps":[]}]}`

const remoteLog = "2026-10-01T12:00:00.0000000Z ##[group]Build\n" +
	"2026-10-01T12:00:00.1000000Z \x1b[1mcompiling\x1b[0m\n"

const deployWorkflow = `name: Deploy
on:
  push:
    branches: [main]
  workflow_dispatch:
    inputs:
      environment:
        description: Target environment
        required: true
        type: choice
        options: [staging, production]
`

type request struct {
	Method string
	Path   string
	Body   []byte
}

type fakeGitHub struct {
	srv  *httptest.Server
	pub  *[32]byte
	priv *[32]byte

	mu       sync.Mutex
	requests []request
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	pub, priv, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)
	f := &fakeGitHub{pub: pub, priv: priv}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, runsJSON)
	})
	mux.HandleFunc("GET /repos/octo/hello/actions/runs/101/jobs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, jobsJSON)
	})
	mux.HandleFunc("POST /repos/octo/hello/actions/runs/42/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("POST /repos/octo/hello/actions/runs/42/rerun", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /repos/octo/hello/actions/secrets/public-key", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(github.PublicKey{KeyID: "key-1", Key: base64.StdEncoding.EncodeToString(pub[:])})
	})
	mux.HandleFunc("PUT /repos/octo/hello/actions/secrets/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /repos/octo/hello/dispatches", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /repos/octo/hello/actions/workflows/{file}/dispatches", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /repos/other/repo/actions/jobs/7/logs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, remoteLog)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
	})

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, request{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// last returns the most recent request with method, or fails the test.
func (f *fakeGitHub) last(t *testing.T, method string) request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method {
			return f.requests[i]
		}
	}
	t.Fatalf("no %s request recorded", method)
	return request{}
}

func (f *fakeGitHub) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

// isolate keeps tests away from the real home directory and token variables.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
}

func writeConfig(t *testing.T, apiURL, repository, workflowsDir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("api_url = \"" + apiURL + "\"\n")
	b.WriteString("token = \"test-token\"\n")
	if repository != "" {
		b.WriteString("repository = \"" + repository + "\"\n")
	}
	if workflowsDir != "" {
		b.WriteString("workflows_dir = \"" + filepath.ToSlash(workflowsDir) + "\"\n")
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(args ...string) (stdout, stderr string, code int) {
	var out, errOut bytes.Buffer
	code = Execute(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func decodeEnvelope(t *testing.T, raw string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	return resp
}

func TestRunsText(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	stdout, stderr, code := execute("runs", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	golden(t).Assert(t, "runs", []byte(stdout))
}

func TestRunsJSON(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	stdout, stderr, code := execute("runs", "--config", cfg, "--format", "json", "--branch", "main", "-n", "5")
	require.Equal(t, ExitSuccess, code, stderr)

	resp := decodeEnvelope(t, stdout)
	assert.Equal(t, "ok", resp.Status)
	runs, ok := resp.Data.([]any)
	require.True(t, ok, "data = %T", resp.Data)
	require.Len(t, runs, 2)
	first := runs[0].(map[string]any)
	assert.Equal(t, float64(101), first["id"])
	assert.Equal(t, "success", first["conclusion"])

	got := gh.last(t, http.MethodGet)
	assert.Equal(t, "/repos/octo/hello/actions/runs", got.Path)
}

func TestRepoFlagOverridesConfig(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "someone/else", "")

	_, stderr, code := execute("runs", "--config", cfg, "--repo", "octo/hello")
	require.Equal(t, ExitSuccess, code, stderr)
}

func TestJobsText(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	stdout, stderr, code := execute("jobs", "101", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	golden(t).Assert(t, "jobs", []byte(stdout))
}

func TestJobsRejectsBadRunID(t *testing.T) {
	isolate(t)
	_, stderr, code := execute("jobs", "abc")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid run id "abc"`)
}

func TestNoRepository(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "", "")

	_, stderr, code := execute("runs", "--config", cfg)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "no repository configured")

	stdout, _, code := execute("runs", "--config", cfg, "--format", "json")
	assert.Equal(t, ExitCommandError, code)
	resp := decodeEnvelope(t, stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "no_repository", resp.Error.Code)

	_, stderr, code = execute("outline", "7", "--config", cfg)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "no repository configured")
}

func TestInvalidFormat(t *testing.T) {
	isolate(t)
	_, stderr, code := execute("version", "--format", "yaml")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid format "yaml"`)
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	isolate(t)
	_, _, code := execute("runs", "--bogus")
	assert.Equal(t, ExitCommandError, code)
}

func TestOutlineFromFile(t *testing.T) {
	isolate(t)
	stdout, stderr, code := execute("outline", "--file", filepath.Join("testdata", "sample.log"))
	require.Equal(t, ExitSuccess, code, stderr)
	golden(t).Assert(t, "outline", []byte(stdout))
}

func TestOutlineJSONIsZeroBased(t *testing.T) {
	isolate(t)
	stdout, stderr, code := execute("outline", "--file", filepath.Join("testdata", "sample.log"), "--format", "json")
	require.Equal(t, ExitSuccess, code, stderr)

	var resp struct {
		Status string           `json:"status"`
		Data   []logview.Symbol `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, logview.Symbol{
		Label:  "Run make test",
		Number: 3,
		Line:   5,
		Range:  logview.FoldingRange{Start: 5, End: 7},
	}, resp.Data[2])
}

func TestFoldsFromFile(t *testing.T) {
	isolate(t)
	stdout, stderr, code := execute("folds", "--file", filepath.Join("testdata", "sample.log"))
	require.Equal(t, ExitSuccess, code, stderr)
	golden(t).Assert(t, "folds", []byte(stdout))
}

func TestCatStepFromFile(t *testing.T) {
	isolate(t)
	stdout, stderr, code := execute("cat", "--file", filepath.Join("testdata", "sample.log"), "--step", "Run make test", "--strip")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t,
		"2026-10-01T12:00:02.0000000Z ##[group]Run make test\n"+
			"2026-10-01T12:00:02.1000000Z ok example.com/pkg 0.01s\n"+
			"2026-10-01T12:00:03.0000000Z ##[error]Process completed with exit code 1.\n",
		stdout)
}

func TestCatUnknownStep(t *testing.T) {
	isolate(t)
	_, stderr, code := execute("cat", "--file", filepath.Join("testdata", "sample.log"), "--step", "Nope")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, `step "Nope" not found`)
}

func TestCatURINamesItsRepository(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "", "")

	stdout, stderr, code := execute("cat", "actlog://other/repo/jobs/7", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, remoteLog, stdout)

	stdout, stderr, code = execute("cat", "actlog://other/repo/jobs/7", "--config", cfg, "--strip", "--format", "json")
	require.Equal(t, ExitSuccess, code, stderr)
	var resp struct {
		Data catResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "actlog://other/repo/jobs/7", resp.Data.URI)
	assert.Contains(t, resp.Data.Text, "Z compiling\n")
}

func TestCatBadURI(t *testing.T) {
	isolate(t)
	_, _, code := execute("cat", "http://example.com/x")
	assert.Equal(t, ExitCommandError, code)
}

func TestCatMissingRemoteLog(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	stdout, _, code := execute("cat", "99", "--config", cfg, "--format", "json")
	assert.Equal(t, ExitFailure, code)
	resp := decodeEnvelope(t, stdout)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestRevealByNumber(t *testing.T) {
	isolate(t)
	stdout, stderr, code := execute("reveal", "--file", filepath.Join("testdata", "sample.log"), "--step-number", "2", "--format", "json")
	require.Equal(t, ExitSuccess, code, stderr)

	var resp struct {
		Data revealResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.True(t, resp.Data.Found)
	assert.Equal(t, 3, resp.Data.Line)
	assert.Equal(t, 2, resp.Data.Number)
	assert.Equal(t, "Run actions/checkout@v4", resp.Data.Step)

	id, err := logview.ParseURI(resp.Data.URI)
	require.NoError(t, err)
	assert.Equal(t, "Run actions/checkout@v4", id.Step)
}

func TestRevealByNameText(t *testing.T) {
	isolate(t)
	stdout, stderr, code := execute("reveal", "--file", filepath.Join("testdata", "sample.log"), "--step", "Run make test")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t,
		"actlog://local/file/jobs/1?step=Run+make+test\n"+
			"step 3 \"Run make test\" starts at line 6\n",
		stdout)
}

func TestRevealMissingStep(t *testing.T) {
	isolate(t)
	sample := filepath.Join("testdata", "sample.log")

	_, _, code := execute("reveal", "--file", sample)
	assert.Equal(t, ExitCommandError, code)

	stdout, stderr, code := execute("reveal", "--file", sample, "--step-number", "9")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "step #9 not found")

	stdout, stderr, code = execute("reveal", "--file", sample, "--step", "Deploy", "--format", "json")
	require.Equal(t, ExitSuccess, code, stderr)
	var resp struct {
		Status string       `json:"status"`
		Data   revealResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Data.Found)
	assert.Equal(t, "actlog://local/file/jobs/1", resp.Data.URI)
}

func TestCancelAndRerun(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	stdout, stderr, code := execute("cancel", "42", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "cancelled run 42\n", stdout)
	assert.Equal(t, "/repos/octo/hello/actions/runs/42/cancel", gh.last(t, http.MethodPost).Path)

	stdout, stderr, code = execute("rerun", "42", "--config", cfg, "--format", "json")
	require.Equal(t, ExitSuccess, code, stderr)
	resp := decodeEnvelope(t, stdout)
	assert.Equal(t, map[string]any{"run_id": float64(42), "action": "rerun"}, resp.Data)
}

func TestCancelUnknownRun(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	stdout, stderr, code := execute("cancel", "404", "--config", cfg)
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "not found or no access")
}

func TestSecretSetSealsStdin(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetArgs([]string{"secret", "set", "DEPLOY_TOKEN", "--config", cfg})
	cmd.SetIn(strings.NewReader("hunter2\n"))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "set secret DEPLOY_TOKEN\n", out.String())

	put := gh.last(t, http.MethodPut)
	assert.Equal(t, "/repos/octo/hello/actions/secrets/DEPLOY_TOKEN", put.Path)
	var body struct {
		EncryptedValue string `json:"encrypted_value"`
		KeyID          string `json:"key_id"`
	}
	require.NoError(t, json.Unmarshal(put.Body, &body))
	assert.Equal(t, "key-1", body.KeyID)
	assert.NotContains(t, string(put.Body), "hunter2")

	plain, err := secrets.Open(body.EncryptedValue, gh.pub, gh.priv)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(plain))
}

func TestSecretSetRejectsReservedName(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	_, stderr, code := execute("secret", "set", "GITHUB_THING", "--value", "x", "--config", cfg)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "GITHUB_ prefix is reserved")
	assert.Zero(t, gh.count(http.MethodPut))
}

func TestDispatchCorrelation(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", "")

	stdout, stderr, code := execute("dispatch", "deploy", "--payload", `{"env":"prod"}`, "--config", cfg, "--format", "json")
	require.Equal(t, ExitSuccess, code, stderr)

	var resp struct {
		Data dispatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	_, err := uuid.Parse(resp.Data.CorrelationID)
	require.NoError(t, err)

	var sent struct {
		EventType     string         `json:"event_type"`
		ClientPayload map[string]any `json:"client_payload"`
	}
	require.NoError(t, json.Unmarshal(gh.last(t, http.MethodPost).Body, &sent))
	assert.Equal(t, "deploy", sent.EventType)
	assert.Equal(t, "prod", sent.ClientPayload["env"])
	assert.Equal(t, resp.Data.CorrelationID, sent.ClientPayload[github.CorrelationKey])
}

func TestDispatchInvalidPayload(t *testing.T) {
	isolate(t)
	_, stderr, code := execute("dispatch", "deploy", "--payload", "{nope")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid --payload")
}

func TestTrigger(t *testing.T) {
	isolate(t)
	gh := newFakeGitHub(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deploy.yml"), []byte(deployWorkflow), 0o644))
	cfg := writeConfig(t, gh.srv.URL, "octo/hello", dir)

	t.Run("missing required input", func(t *testing.T) {
		_, stderr, code := execute("trigger", "deploy", "--ref", "main", "--config", cfg)
		assert.Equal(t, ExitCommandError, code)
		assert.Contains(t, stderr, `missing required input "environment"`)
		assert.Zero(t, gh.count(http.MethodPost))
	})

	t.Run("choice outside options", func(t *testing.T) {
		_, stderr, code := execute("trigger", "deploy", "--ref", "main", "--input", "environment=qa", "--config", cfg)
		assert.Equal(t, ExitCommandError, code)
		assert.Contains(t, stderr, "must be one of staging, production")
	})

	t.Run("unknown workflow", func(t *testing.T) {
		stdout, _, code := execute("trigger", "nope.yml", "--ref", "main", "--config", cfg, "--format", "json")
		assert.Equal(t, ExitCommandError, code)
		resp := decodeEnvelope(t, stdout)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "workflow_not_found", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "workflow file nope.yml not found in")
	})

	t.Run("dispatches with inputs", func(t *testing.T) {
		stdout, stderr, code := execute("trigger", "deploy", "--ref", "main", "--input", "environment=staging", "--config", cfg)
		require.Equal(t, ExitSuccess, code, stderr)
		assert.Equal(t, "triggered deploy on main\n", stdout)

		post := gh.last(t, http.MethodPost)
		assert.Equal(t, "/repos/octo/hello/actions/workflows/deploy.yml/dispatches", post.Path)
		assert.JSONEq(t, `{"ref":"main","inputs":{"environment":"staging"}}`, string(post.Body))
	})

	t.Run("workflows dir flag wins", func(t *testing.T) {
		_, _, code := execute("trigger", "deploy", "--ref", "main", "--input", "environment=staging",
			"--config", cfg, "--workflows-dir", t.TempDir())
		assert.Equal(t, ExitCommandError, code)
	})
}

func TestVersion(t *testing.T) {
	isolate(t)
	stdout, _, code := execute("version")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "actlog "+Version+"\n", stdout)

	stdout, _, code = execute("version", "--format", "json")
	require.Equal(t, ExitSuccess, code)
	assert.JSONEq(t, `{"status":"ok","data":{"version":"`+Version+`"}}`, stdout)
}
