// Package config handles loading and parsing actlog configuration files.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/actlog/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # TOML Format
//
//	api_url = "https://api.github.com"
//	token = ""                 # falls back to $GITHUB_TOKEN, then $GH_TOKEN
//	repository = "owner/name"  # default repository
//	poll_seconds = 5
//	workflows_dir = ".github/workflows"
//
// All fields are optional. Tilde expansion is performed for the config path
// and workflows_dir; a relative workflows_dir is resolved against the working
// directory when it is used.
//
// # Repository Selection
//
// Repo picks the --repo flag when given and the configured repository
// otherwise. ErrNoRepository is returned when neither is set.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// Missing config files are NOT an error. With GITHUB_TOKEN set and --repo
// given, actlog works without any configuration file.
package config
