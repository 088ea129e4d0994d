// Package cli implements the actlog command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/actlog/internal/app"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Repo       string
	Format     string // "json" | "text"
	Verbose    bool
	LogFile    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Without a subcommand it starts the
// terminal UI on the repository's recent runs.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "actlog",
		Short: "Browse GitHub Actions runs and job logs",
		Long: `actlog browses the workflow runs of a repository and renders their job logs
with collapsible step sections, an outline, ANSI colours and deep links to
individual steps.

Without a subcommand the terminal UI opens on the repository's recent runs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, done, err := opts.open(cmd, app.Options{PollEvery: poll}, true)
			if err != nil {
				return err
			}
			defer done()
			return env.RunUI(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/actlog/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.Repo, "repo", "", "repository as owner/name, overrides the config")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "append diagnostic logs to this file")
	cmd.Flags().DurationVar(&poll, "poll", 0, "refresh interval for the run list (default from config)")

	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewJobsCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))
	cmd.AddCommand(NewCatCommand(opts))
	cmd.AddCommand(NewOutlineCommand(opts))
	cmd.AddCommand(NewFoldsCommand(opts))
	cmd.AddCommand(NewRevealCommand(opts))
	cmd.AddCommand(NewCancelCommand(opts))
	cmd.AddCommand(NewRerunCommand(opts))
	cmd.AddCommand(NewSecretCommand(opts))
	cmd.AddCommand(NewDispatchCommand(opts))
	cmd.AddCommand(NewTriggerCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "", err)
	})

	return cmd
}

// Execute runs the command line with args and returns the process exit code.
// Errors are reported on stderr, or as a JSON envelope on stdout with
// --format json.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	(&OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr}).Error(err)
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// open wires the application for one command. The returned func releases the
// log file, if any.
func (o *RootOptions) open(cmd *cobra.Command, extra app.Options, tui bool) (*app.Env, func(), error) {
	logger, done, err := o.logger(cmd.ErrOrStderr(), tui)
	if err != nil {
		return nil, nil, err
	}
	extra.ConfigPath = o.ConfigPath
	extra.Repo = o.Repo
	extra.Logger = logger
	env, err := app.Open(extra)
	if err != nil {
		done()
		return nil, nil, WrapExitError(ExitCommandError, "", err)
	}
	logger.Debug("configured", "repository", env.Actions.Owner+"/"+env.Actions.Repo, "api", env.Config.APIURL)
	return env, done, nil
}

// logger builds the diagnostic logger. Logs go to --log-file when given.
// Otherwise only a verbose command-line run writes them, to stderr; the TUI
// owns the terminal and never does.
func (o *RootOptions) logger(stderr io.Writer, tui bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if o.LogFile != "" {
		f, err := os.OpenFile(o.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "open log file", err)
		}
		return slog.New(slog.NewTextHandler(f, handlerOpts)), func() { _ = f.Close() }, nil
	}
	if o.Verbose && !tui {
		return slog.New(slog.NewTextHandler(stderr, handlerOpts)), func() {}, nil
	}
	return slog.New(slog.DiscardHandler), func() {}, nil
}

// printer returns the output formatter for cmd.
func (o *RootOptions) printer(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
