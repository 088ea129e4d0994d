package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/five82/actlog/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestOpen_WiresRepositoryFromConfig(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")
	path := writeConfig(t, `
repository = "octo/hello"
poll_seconds = 9
workflows_dir = "ci/workflows"
`)

	env, err := Open(Options{ConfigPath: path, PrefsPath: filepath.Join(t.TempDir(), "prefs.toml")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if env.Actions.Owner != "octo" || env.Actions.Repo != "hello" {
		t.Fatalf("repo = %s/%s, want octo/hello", env.Actions.Owner, env.Actions.Repo)
	}
	if env.Actions.WorkflowsDir != "ci/workflows" {
		t.Fatalf("WorkflowsDir = %q", env.Actions.WorkflowsDir)
	}
	if env.interval != 9*time.Second {
		t.Fatalf("interval = %v, want 9s", env.interval)
	}
	snap := env.Store.Snapshot()
	if snap.Owner != "octo" || snap.Repo != "hello" {
		t.Fatalf("store repo = %s/%s", snap.Owner, snap.Repo)
	}
}

func TestOpen_RepoFlagWins(t *testing.T) {
	path := writeConfig(t, `repository = "octo/hello"`)
	env, err := Open(Options{ConfigPath: path, Repo: "other/world", PollEvery: time.Second})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if env.Actions.Owner != "other" || env.Actions.Repo != "world" {
		t.Fatalf("repo = %s/%s, want other/world", env.Actions.Owner, env.Actions.Repo)
	}
	if env.interval != time.Second {
		t.Fatalf("interval = %v, want 1s", env.interval)
	}
}

func TestOpen_NoRepository(t *testing.T) {
	path := writeConfig(t, "")

	if _, err := Open(Options{ConfigPath: path}); !errors.Is(err, config.ErrNoRepository) {
		t.Fatalf("Open error = %v, want ErrNoRepository", err)
	}

	env, err := Open(Options{ConfigPath: path, AllowNoRepo: true})
	if err != nil {
		t.Fatalf("Open with AllowNoRepo: %v", err)
	}
	if env.Actions.Owner != "" {
		t.Fatalf("Owner = %q, want empty", env.Actions.Owner)
	}
	if err := env.RunUI(context.Background()); !errors.Is(err, config.ErrNoRepository) {
		t.Fatalf("RunUI error = %v, want ErrNoRepository", err)
	}
}

func TestOpen_LocalFileServesLogs(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "job.log")
	body := "2024-05-01T10:00:00.0000000Z ##[group]Build\n2024-05-01T10:00:01.0000000Z ok\n"
	if err := os.WriteFile(logPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	env, err := Open(Options{ConfigPath: writeConfig(t, ""), File: logPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := env.Actions.JobID(env.LocalJobID(0), "")
	if err != nil {
		t.Fatalf("JobID: %v", err)
	}
	info, err := env.Actions.OpenLog(context.Background(), id)
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	if info.LineCount() != 2 || len(info.Sections) != 1 || info.Sections[0].Name != "Build" {
		t.Fatalf("info = %+v", info)
	}

	ref := env.StepRef(context.Background(), id.JobID, "Build", 0)
	if ref.Name != "Build" || ref.Number != 0 {
		t.Fatalf("StepRef = %+v, want the request unchanged", ref)
	}
}
