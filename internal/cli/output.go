package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/five82/actlog/internal/config"
	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/logview"
	"github.com/five82/actlog/internal/secrets"
	"github.com/five82/actlog/internal/workflow"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The remote call failed or nothing matched
	ExitCommandError = 2 // Bad flags, arguments or configuration
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code. message may be
// empty when err already says everything.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors without one are
// usage errors when they describe bad input, failures otherwise.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch ErrorCode(err) {
	case "no_repository", "workflow_not_found", "invalid_inputs", "invalid_name", "invalid_uri":
		return ExitCommandError
	}
	return ExitFailure
}

// ErrorCode classifies err for JSON output.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, config.ErrNoRepository):
		return "no_repository"
	case errors.Is(err, github.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, github.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, github.ErrForbidden):
		return "forbidden"
	case errors.Is(err, github.ErrNotFound):
		return "not_found"
	case errors.Is(err, workflow.ErrWorkflowNotFound):
		return "workflow_not_found"
	case errors.Is(err, workflow.ErrNotDispatchable), errors.Is(err, workflow.ErrInvalidInputs):
		return "invalid_inputs"
	case errors.Is(err, secrets.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, logview.ErrInvalidURI):
		return "invalid_uri"
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError {
		return "usage"
	}
	return "error"
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; keeps JSON on Writer clean
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes data as a JSON envelope, or calls text to render it for
// humans.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Error reports err in the configured format. Text goes to ErrWriter.
func (f *OutputFormatter) Error(err error) {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: ErrorCode(err), Message: err.Error()},
		})
		return
	}
	fmt.Fprintf(f.GetErrWriter(), "actlog: %s\n", github.Describe(err))
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// table writes left-aligned columns. Every cell but the last is padded to its
// display width; cells wider than the column push the rest of the row right.
type table struct {
	w      io.Writer
	widths []int
}

func (t table) row(cells ...string) {
	var b strings.Builder
	for i, cell := range cells {
		if i == len(cells)-1 {
			b.WriteString(cell)
			break
		}
		b.WriteString(cell)
		if i < len(t.widths) {
			if pad := t.widths[i] - ansi.StringWidth(cell); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteByte(' ')
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(t.w, b.String())
}
