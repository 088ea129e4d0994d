package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/actlog/internal/app"
	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/workflow"
)

type runActionResult struct {
	RunID  int64  `json:"run_id"`
	Action string `json:"action"`
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunActionCommand(rootOpts, "cancel", "Cancel a workflow run", "cancelled",
		func(env *app.Env, cmd *cobra.Command, runID int64) error {
			return env.Actions.CancelRun(cmd.Context(), runID)
		})
}

// NewRerunCommand creates the rerun command.
func NewRerunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunActionCommand(rootOpts, "rerun", "Re-run every job of a workflow run", "re-ran",
		func(env *app.Env, cmd *cobra.Command, runID int64) error {
			return env.Actions.RerunRun(cmd.Context(), runID)
		})
}

func newRunActionCommand(opts *RootOptions, name, short, past string, do func(*app.Env, *cobra.Command, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:           name + " RUN_ID",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := parseID("run", args[0])
			if err != nil {
				return err
			}
			env, done, err := opts.open(cmd, app.Options{}, false)
			if err != nil {
				return err
			}
			defer done()
			if err := do(env, cmd, runID); err != nil {
				return err
			}
			return opts.printer(cmd).Success(runActionResult{RunID: runID, Action: name}, func(w io.Writer) {
				fmt.Fprintf(w, "%s run %d\n", past, runID)
			})
		},
	}
}

// NewSecretCommand creates the secret command group.
func NewSecretCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage repository secrets",
		Long: `List, set and delete the Actions secrets of the repository. Values are
sealed with the repository public key before they are sent.`,
	}
	cmd.AddCommand(newSecretListCommand(rootOpts))
	cmd.AddCommand(newSecretSetCommand(rootOpts))
	cmd.AddCommand(newSecretDeleteCommand(rootOpts))
	return cmd
}

func newSecretListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List secret names",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, done, err := opts.open(cmd, app.Options{}, false)
			if err != nil {
				return err
			}
			defer done()
			list, err := env.Actions.ListSecrets(cmd.Context())
			if err != nil {
				return err
			}
			if list == nil {
				list = []github.Secret{}
			}
			return opts.printer(cmd).Success(list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "no secrets")
					return
				}
				t := table{w: w, widths: []int{24}}
				t.row("NAME", "UPDATED")
				for _, s := range list {
					t.row(s.Name, formatTime(s.UpdatedAt))
				}
			})
		},
	}
}

// SecretSetOptions holds flags for secret set.
type SecretSetOptions struct {
	*RootOptions
	Value string
}

func newSecretSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SecretSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set NAME",
		Short: "Create or update a secret",
		Long: `Create or update a secret. The value comes from --value or, when that is
not given, from standard input with one trailing newline removed.

Examples:
  actlog secret set DEPLOY_KEY < key.pem
  echo -n hunter2 | actlog secret set PASSWORD`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			value := []byte(opts.Value)
			if !cmd.Flags().Changed("value") {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return WrapExitError(ExitCommandError, "read secret value", err)
				}
				value = []byte(strings.TrimSuffix(strings.TrimSuffix(string(raw), "\n"), "\r"))
			}
			if len(value) == 0 {
				return NewExitError(ExitCommandError, "secret value is empty")
			}
			env, done, err := opts.open(cmd, app.Options{}, false)
			if err != nil {
				return err
			}
			defer done()
			name := args[0]
			if err := env.Actions.SetSecret(cmd.Context(), name, value); err != nil {
				return err
			}
			return opts.printer(cmd).Success(map[string]string{"name": name}, func(w io.Writer) {
				fmt.Fprintf(w, "set secret %s\n", name)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Value, "value", "", "secret value (default: read standard input)")

	return cmd
}

func newSecretDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete NAME",
		Short:         "Delete a secret",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, done, err := opts.open(cmd, app.Options{}, false)
			if err != nil {
				return err
			}
			defer done()
			name := args[0]
			if err := env.Actions.DeleteSecret(cmd.Context(), name); err != nil {
				return err
			}
			return opts.printer(cmd).Success(map[string]string{"name": name}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted secret %s\n", name)
			})
		},
	}
}

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	Payload string
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch EVENT_TYPE",
		Short: "Send a repository_dispatch event",
		Long: `Send a repository_dispatch event. The client payload gets a fresh
correlation id, which is printed so the triggered run can be found.

Examples:
  actlog dispatch deploy
  actlog dispatch deploy --payload '{"env":"staging"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Payload, "payload", "", "client payload as a JSON object")

	return cmd
}

type dispatchResult struct {
	EventType     string `json:"event_type"`
	CorrelationID string `json:"correlation_id"`
}

func runDispatch(opts *DispatchOptions, cmd *cobra.Command, eventType string) error {
	var payload map[string]any
	if p := strings.TrimSpace(opts.Payload); p != "" {
		if err := json.Unmarshal([]byte(p), &payload); err != nil {
			return WrapExitError(ExitCommandError, "invalid --payload", err)
		}
	}
	env, done, err := opts.open(cmd, app.Options{}, false)
	if err != nil {
		return err
	}
	defer done()

	id, err := env.Actions.Dispatch(cmd.Context(), eventType, payload)
	if err != nil {
		return err
	}
	res := dispatchResult{EventType: eventType, CorrelationID: id}
	return opts.printer(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "dispatched %s (%s %s)\n", eventType, github.CorrelationKey, id)
	})
}

// TriggerOptions holds flags for the trigger command.
type TriggerOptions struct {
	*RootOptions
	Ref    string
	Inputs []string
	Dir    string
}

// NewTriggerCommand creates the trigger command.
func NewTriggerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TriggerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trigger WORKFLOW_FILE",
		Short: "Run a workflow through workflow_dispatch",
		Long: `Run a workflow on a branch or tag. The workflow file must exist in the local
workflows directory and declare a workflow_dispatch trigger; inputs are checked
against its declaration before anything is sent.

Examples:
  actlog trigger deploy.yml --ref main
  actlog trigger deploy --ref v1.2.0 --input environment=production`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Ref, "ref", "", "branch or tag to run on (required)")
	_ = cmd.MarkFlagRequired("ref")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "workflow input as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.Dir, "workflows-dir", "", "local workflows directory (default from config)")

	return cmd
}

func runTrigger(opts *TriggerOptions, cmd *cobra.Command, file string) error {
	inputs, err := workflow.ParseAssignments(opts.Inputs)
	if err != nil {
		return WrapExitError(ExitCommandError, "", err)
	}
	env, done, err := opts.open(cmd, app.Options{}, false)
	if err != nil {
		return err
	}
	defer done()
	if opts.Dir != "" {
		env.Actions.WorkflowsDir = opts.Dir
	}

	if err := env.Actions.TriggerWorkflow(cmd.Context(), file, opts.Ref, inputs); err != nil {
		return err
	}
	res := map[string]string{"workflow": file, "ref": opts.Ref}
	return opts.printer(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "triggered %s on %s\n", file, opts.Ref)
	})
}

// NewVersionCommand creates the version command.
func NewVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the actlog version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.printer(cmd).Success(map[string]string{"version": Version}, func(w io.Writer) {
				fmt.Fprintf(w, "actlog %s\n", Version)
			})
		},
	}
}
