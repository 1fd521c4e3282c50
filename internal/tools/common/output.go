package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nanotrace/certification-backend/internal/observability"
	"github.com/nanotrace/certification-backend/internal/tools/ui"
)

// ExitCodeFailure is returned by tool commands whose action failed.
const ExitCodeFailure = 3

type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func PrintCIResult(w io.Writer, ok bool, title string, details []string, err error) {
	result := CIResult{OK: ok, Title: title, Details: details}
	if err != nil {
		result.Error = err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

// ExitError carries the process exit code out of a cobra RunE.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit %d: %v", e.Code, e.Err) }
func (e *ExitError) Unwrap() error { return e.Err }

type Action func(ctx context.Context) ([]string, error)

type Runner struct {
	Tool    string
	CI      bool
	Timeout time.Duration
	Out     io.Writer
}

// Run executes action either behind the interactive UI or, in CI mode,
// directly with JSON output.
func (r Runner) Run(command string, action Action) error {
	title := r.Tool + " " + command
	var (
		details []string
		err     error
	)
	if r.CI {
		ctx := context.Background()
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}
		details, err = action(ctx)
		out := r.Out
		if out == nil {
			out = os.Stdout
		}
		PrintCIResult(out, err == nil, title, details, err)
	} else {
		details, err = ui.Run(title, r.Timeout, action)
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordToolCommandRun(context.Background(), r.Tool, command, outcome)
	if err != nil {
		return &ExitError{Code: ExitCodeFailure, Err: err}
	}
	return nil
}
