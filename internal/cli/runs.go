package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/actlog/internal/app"
	"github.com/five82/actlog/internal/github"
)

const timeLayout = "2006-01-02 15:04"

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Branch string
	Event  string
	Status string
	Limit  int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent workflow runs",
		Long: `List the most recent workflow runs of the repository, newest first.

Examples:
  actlog runs
  actlog runs --branch main --status failure
  actlog runs --repo octo/hello --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Branch, "branch", "", "only runs of this branch")
	cmd.Flags().StringVar(&opts.Event, "event", "", "only runs triggered by this event")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only runs with this status or conclusion")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	env, done, err := opts.open(cmd, app.Options{}, false)
	if err != nil {
		return err
	}
	defer done()

	runs, err := env.Actions.ListRuns(cmd.Context(), github.RunQuery{
		Branch:  opts.Branch,
		Event:   opts.Event,
		Status:  opts.Status,
		PerPage: opts.Limit,
	})
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []github.WorkflowRun{}
	}

	return opts.printer(cmd).Success(runs, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "no runs")
			return
		}
		t := table{w: w, widths: []int{12, 12, 16, 12, 18, 16}}
		t.row("ID", "STATUS", "WORKFLOW", "BRANCH", "EVENT", "CREATED", "TITLE")
		for _, r := range runs {
			t.row(
				strconv.FormatInt(r.ID, 10),
				r.Label(),
				r.Name,
				r.HeadBranch,
				r.Event,
				formatTime(r.CreatedAt),
				r.Title(),
			)
		}
	})
}

// JobsOptions holds flags for the jobs command.
type JobsOptions struct {
	*RootOptions
	Steps bool
}

// NewJobsCommand creates the jobs command.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JobsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "jobs RUN_ID",
		Short: "List the jobs of a run and their steps",
		Long: `List the jobs of the latest attempt of a run. Each job is followed by its
steps; a step number can be passed to "logs --step-number" or "reveal".

Examples:
  actlog jobs 123456789
  actlog jobs 123456789 --steps=false`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Steps, "steps", true, "list the steps of each job")

	return cmd
}

func runJobs(opts *JobsOptions, cmd *cobra.Command, arg string) error {
	runID, err := parseID("run", arg)
	if err != nil {
		return err
	}
	env, done, err := opts.open(cmd, app.Options{}, false)
	if err != nil {
		return err
	}
	defer done()

	jobs, err := env.Actions.ListJobs(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []github.WorkflowJob{}
	}

	now := time.Now()
	return opts.printer(cmd).Success(jobs, func(w io.Writer) {
		if len(jobs) == 0 {
			fmt.Fprintln(w, "no jobs")
			return
		}
		t := table{w: w, widths: []int{12, 12, 9}}
		t.row("ID", "STATUS", "DURATION", "NAME")
		for _, j := range jobs {
			t.row(strconv.FormatInt(j.ID, 10), j.Label(), formatDuration(j.Duration(now)), j.Name)
			if !opts.Steps {
				continue
			}
			for _, s := range j.Steps {
				fmt.Fprintf(w, "    %2d  %-12s %s\n", s.Number, s.Label(), s.Name)
			}
		}
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
