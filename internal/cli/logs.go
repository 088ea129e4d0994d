package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/five82/actlog/internal/app"
	"github.com/five82/actlog/internal/config"
	"github.com/five82/actlog/internal/logview"
)

// LogSource selects where a log command reads from.
type LogSource struct {
	File     string
	MaxLines int
}

func (s *LogSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.File, "file", "", "read the log from a local file instead of the API")
	cmd.Flags().IntVar(&s.MaxLines, "max-lines", 0, "with --file, keep only the last N lines")
}

// LogsOptions holds flags for the logs command.
type LogsOptions struct {
	*RootOptions
	LogSource
	Step       string
	StepNumber int
	Follow     bool
}

// NewLogsCommand creates the logs command, which opens the log viewer.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs [JOB_ID]",
		Short: "Open a job log in the log viewer",
		Long: `Open the log of a job in the terminal log viewer. With --step or
--step-number the view starts on that step's section.

While the job is still running the view follows new output; --follow=false
starts with following turned off.

Examples:
  actlog logs 987654321
  actlog logs 987654321 --step "Run tests"
  actlog logs --file ./job.log`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(opts, cmd, args)
		},
	}

	opts.LogSource.bind(cmd)
	cmd.Flags().StringVar(&opts.Step, "step", "", "step name to reveal")
	cmd.Flags().IntVar(&opts.StepNumber, "step-number", 0, "1-based step number to reveal")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", true, "follow output of running jobs")

	return cmd
}

func runLogs(opts *LogsOptions, cmd *cobra.Command, args []string) error {
	appOpts := app.Options{
		Step:       opts.Step,
		StepNumber: opts.StepNumber,
		File:       opts.File,
		MaxLines:   opts.MaxLines,
	}
	if opts.File == "" {
		if len(args) == 0 {
			return NewExitError(ExitCommandError, "job id required (or --file)")
		}
		jobID, err := parseID("job", args[0])
		if err != nil {
			return err
		}
		appOpts.JobID = jobID
	}

	env, done, err := opts.open(cmd, appOpts, true)
	if err != nil {
		return err
	}
	defer done()
	if cmd.Flags().Changed("follow") {
		env.Prefs.Follow = opts.Follow
	}
	return env.RunUI(cmd.Context())
}

// CatOptions holds flags for the cat command.
type CatOptions struct {
	*RootOptions
	LogSource
	Step  string
	Strip bool
}

// NewCatCommand creates the cat command.
func NewCatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cat [URI|JOB_ID]",
		Short: "Print the raw text of a job log",
		Long: `Print the raw text behind a log document. The argument is either a job id
of the configured repository or a log URI such as
actlog://octo/hello/jobs/987654321, which names its own repository.

Examples:
  actlog cat 987654321
  actlog cat 'actlog://octo/hello/jobs/987654321?step=Build' --strip
  actlog cat --file ./job.log --step Build`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(opts, cmd, args)
		},
	}

	opts.LogSource.bind(cmd)
	cmd.Flags().StringVar(&opts.Step, "step", "", "print only this step's section")
	cmd.Flags().BoolVar(&opts.Strip, "strip", false, "remove ANSI escape sequences")

	return cmd
}

type catResult struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

func runCat(opts *CatOptions, cmd *cobra.Command, args []string) error {
	env, id, done, err := opts.openLog(cmd, opts.LogSource, args)
	if err != nil {
		return err
	}
	defer done()
	ctx := cmd.Context()

	step := opts.Step
	if step == "" {
		step = id.Step
	}

	var text string
	if step == "" {
		text, err = env.Actions.LogText(ctx, id.URI())
		if err != nil {
			return err
		}
	} else {
		info, err := env.Actions.OpenLog(ctx, id.Canonical())
		if err != nil {
			return err
		}
		sec, ok := logview.Resolve(info, logview.StepRef{Name: step})
		if !ok {
			return NewExitError(ExitFailure, fmt.Sprintf("step %q not found in %s", step, id.Canonical()))
		}
		var b strings.Builder
		for _, line := range info.Lines[sec.Start : sec.End+1] {
			b.WriteString(line.Raw)
			b.WriteByte('\n')
		}
		text = b.String()
		id = id.WithStep(step)
	}
	if opts.Strip {
		text = ansi.Strip(text)
	}

	return opts.printer(cmd).Success(catResult{URI: id.URI(), Text: text}, func(w io.Writer) {
		_, _ = io.WriteString(w, text)
	})
}

// OutlineOptions holds flags for the outline command.
type OutlineOptions struct {
	*RootOptions
	LogSource
}

// NewOutlineCommand creates the outline command.
func NewOutlineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OutlineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "outline [URI|JOB_ID]",
		Short: "List the step sections of a job log",
		Long: `List one entry per step section in execution order. Text output shows
1-based line numbers; JSON output keeps the 0-based lines of the document.

Examples:
  actlog outline 987654321
  actlog outline --file ./job.log --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutline(opts, cmd, args)
		},
	}

	opts.LogSource.bind(cmd)

	return cmd
}

func runOutline(opts *OutlineOptions, cmd *cobra.Command, args []string) error {
	env, id, done, err := opts.openLog(cmd, opts.LogSource, args)
	if err != nil {
		return err
	}
	defer done()

	info, err := env.Actions.OpenLog(cmd.Context(), id.Canonical())
	if err != nil {
		return err
	}
	symbols := logview.Symbols(info)
	if symbols == nil {
		symbols = []logview.Symbol{}
	}

	return opts.printer(cmd).Success(symbols, func(w io.Writer) {
		if len(symbols) == 0 {
			fmt.Fprintln(w, "no sections")
			return
		}
		t := table{w: w, widths: []int{3, 6, 6}}
		t.row("#", "LINE", "LINES", "STEP")
		for _, s := range symbols {
			t.row(
				strconv.Itoa(s.Number),
				strconv.Itoa(s.Line+1),
				strconv.Itoa(s.Range.End-s.Range.Start+1),
				s.Label,
			)
		}
	})
}

// FoldsOptions holds flags for the folds command.
type FoldsOptions struct {
	*RootOptions
	LogSource
}

// NewFoldsCommand creates the folds command.
func NewFoldsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FoldsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "folds [URI|JOB_ID]",
		Short: "List the folding ranges of a job log",
		Long: `List one inclusive line range per step section. Text output is 1-based;
JSON output is 0-based.

Examples:
  actlog folds 987654321
  actlog folds --file ./job.log`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFolds(opts, cmd, args)
		},
	}

	opts.LogSource.bind(cmd)

	return cmd
}

func runFolds(opts *FoldsOptions, cmd *cobra.Command, args []string) error {
	env, id, done, err := opts.openLog(cmd, opts.LogSource, args)
	if err != nil {
		return err
	}
	defer done()

	info, err := env.Actions.OpenLog(cmd.Context(), id.Canonical())
	if err != nil {
		return err
	}
	ranges := logview.FoldingRanges(info)
	if ranges == nil {
		ranges = []logview.FoldingRange{}
	}

	return opts.printer(cmd).Success(ranges, func(w io.Writer) {
		for _, r := range ranges {
			fmt.Fprintf(w, "%d-%d\n", r.Start+1, r.End+1)
		}
	})
}

// RevealOptions holds flags for the reveal command.
type RevealOptions struct {
	*RootOptions
	LogSource
	Step       string
	StepNumber int
}

// NewRevealCommand creates the reveal command.
func NewRevealCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RevealOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reveal [URI|JOB_ID]",
		Short: "Resolve a step to its line in the job log",
		Long: `Resolve a step to the first line of its section and print the deep link
for it. A step name that matches a section wins; otherwise the step number
picks the section at that position.

Examples:
  actlog reveal 987654321 --step "Run tests"
  actlog reveal 987654321 --step-number 4
  actlog reveal --file ./job.log --step-number 2 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReveal(opts, cmd, args)
		},
	}

	opts.LogSource.bind(cmd)
	cmd.Flags().StringVar(&opts.Step, "step", "", "step name")
	cmd.Flags().IntVar(&opts.StepNumber, "step-number", 0, "1-based step number")

	return cmd
}

type revealResult struct {
	Found  bool   `json:"found"`
	URI    string `json:"uri"`
	Step   string `json:"step,omitempty"`
	Number int    `json:"number,omitempty"`
	Line   int    `json:"line"`
}

func runReveal(opts *RevealOptions, cmd *cobra.Command, args []string) error {
	env, id, done, err := opts.openLog(cmd, opts.LogSource, args)
	if err != nil {
		return err
	}
	defer done()
	ctx := cmd.Context()

	name := opts.Step
	if name == "" && opts.StepNumber == 0 {
		name = id.Step
	}
	if name == "" && opts.StepNumber <= 0 {
		return NewExitError(ExitCommandError, "--step or --step-number required")
	}

	ref := env.StepRef(ctx, id.JobID, name, opts.StepNumber)
	loc, ok, err := env.Actions.Reveal(ctx, id.WithStep(ref.Name), ref)
	if err != nil {
		return err
	}
	if !ok {
		res := revealResult{URI: id.Canonical().URI()}
		return opts.printer(cmd).Success(res, func(w io.Writer) {
			fmt.Fprintf(w, "step %s not found in %s\n", describeStep(ref), id.Canonical())
		})
	}

	info, err := env.Actions.OpenLog(ctx, id.Canonical())
	if err != nil {
		return err
	}
	sec, _ := info.SectionAt(loc.Line)
	step := ref.Name
	if step == "" {
		step = sec.Name
	}
	res := revealResult{
		Found:  true,
		URI:    id.WithStep(step).URI(),
		Step:   sec.Label(),
		Number: sec.Number,
		Line:   loc.Line,
	}

	return opts.printer(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s\nstep %d %q starts at line %d\n", res.URI, res.Number, res.Step, res.Line+1)
	})
}

func describeStep(ref logview.StepRef) string {
	if ref.Name != "" {
		return strconv.Quote(ref.Name)
	}
	return "#" + strconv.Itoa(ref.Number)
}

// openLog wires the application for a log command and resolves its target.
// With --file the argument is ignored and the file is served as the log.
func (o *RootOptions) openLog(cmd *cobra.Command, src LogSource, args []string) (*app.Env, logview.Identifier, func(), error) {
	env, done, err := o.open(cmd, app.Options{
		AllowNoRepo: true,
		File:        src.File,
		MaxLines:    src.MaxLines,
	}, false)
	if err != nil {
		return nil, logview.Identifier{}, nil, err
	}
	id, err := logTarget(env, src.File != "", args)
	if err != nil {
		done()
		return nil, logview.Identifier{}, nil, err
	}
	return env, id, done, nil
}

func logTarget(env *app.Env, local bool, args []string) (logview.Identifier, error) {
	if local {
		id, err := env.Actions.JobID(env.LocalJobID(0), "")
		if err != nil {
			return logview.Identifier{}, WrapExitError(ExitCommandError, "", err)
		}
		return id, nil
	}
	if len(args) == 0 {
		return logview.Identifier{}, NewExitError(ExitCommandError, "job id or log uri required (or --file)")
	}
	arg := strings.TrimSpace(args[0])
	if strings.Contains(arg, "://") {
		id, err := logview.ParseURI(arg)
		if err != nil {
			return logview.Identifier{}, WrapExitError(ExitCommandError, "", err)
		}
		return id, nil
	}
	jobID, err := parseID("job", arg)
	if err != nil {
		return logview.Identifier{}, err
	}
	if err := requireRepo(env); err != nil {
		return logview.Identifier{}, err
	}
	id, err := env.Actions.JobID(jobID, "")
	if err != nil {
		return logview.Identifier{}, WrapExitError(ExitCommandError, "", err)
	}
	return id, nil
}

// parseID parses a positive run or job id.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}

// requireRepo fails commands that need a repository when none is configured.
func requireRepo(env *app.Env) error {
	if env.Actions.Owner == "" {
		return WrapExitError(ExitCommandError, "", config.ErrNoRepository)
	}
	return nil
}
