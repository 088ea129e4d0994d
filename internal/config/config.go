package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNoRepository is returned when neither a flag nor the config names a repository.
var ErrNoRepository = errors.New("no repository configured (set repository in config or pass --repo owner/name)")

// Config captures actlog's settings.
type Config struct {
	APIURL       string
	Token        string
	TokenSource  string // "config", an environment variable name, or "" when anonymous
	Repository   string
	PollInterval time.Duration
	WorkflowsDir string
}

const (
	defaultConfigPath   = "~/.config/actlog/config.toml"
	defaultAPIURL       = "https://api.github.com"
	defaultPollSeconds  = 5
	defaultWorkflowsDir = ".github/workflows"
)

// tokenEnv lists the environment variables consulted, in order, when the
// config carries no token.
var tokenEnv = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the actlog config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:       defaultAPIURL,
		PollInterval: defaultPollSeconds * time.Second,
		WorkflowsDir: defaultWorkflowsDir,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyTokenEnv()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL       string `toml:"api_url"`
		Token        string `toml:"token"`
		Repository   string `toml:"repository"`
		PollSeconds  int    `toml:"poll_seconds"`
		WorkflowsDir string `toml:"workflows_dir"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.Token); v != "" {
		cfg.Token = v
		cfg.TokenSource = "config"
	} else {
		cfg.applyTokenEnv()
	}
	cfg.Repository = strings.TrimSpace(raw.Repository)
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.WorkflowsDir); v != "" {
		cfg.WorkflowsDir = v
		if strings.HasPrefix(v, "~") {
			cfg.WorkflowsDir = mustExpand(v)
		}
	}

	return cfg, nil
}

func (c *Config) applyTokenEnv() {
	for _, name := range tokenEnv {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			c.Token = v
			c.TokenSource = name
			return
		}
	}
}

// Repo resolves the repository to act on. override, typically the --repo
// flag, wins over the configured default.
func (c Config) Repo(override string) (owner, name string, err error) {
	value := strings.TrimSpace(override)
	if value == "" {
		value = c.Repository
	}
	if value == "" {
		return "", "", ErrNoRepository
	}
	return SplitRepository(value)
}

// SplitRepository splits "owner/name".
func SplitRepository(value string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(value), "/")
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository %q: want owner/name", value)
	}
	return owner, name, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
