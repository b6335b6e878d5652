package cli

import (
	"errors"
	"fmt"

	"github.com/me/schedkit/pkg/model"
)

// Exit codes in quiet mode.
const (
	ExitSchedulable    = 0
	ExitNotSchedulable = 1
	ExitError          = 2
)

// ExitStatus carries a process exit code out of a command. Err is nil when
// the code alone is the answer.
type ExitStatus struct {
	Code int
	Err  error
}

func (e *ExitStatus) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitStatus) Unwrap() error { return e.Err }

// ExitCode maps the error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSchedulable
	}
	var status *ExitStatus
	if errors.As(err, &status) {
		return status.Code
	}
	return ExitError
}

// verdictStatus returns the quiet-mode outcome for a verdict.
func verdictStatus(v model.Verdict) error {
	switch v {
	case model.VerdictSchedulable:
		return nil
	case model.VerdictNotSchedulable:
		return &ExitStatus{Code: ExitNotSchedulable}
	default:
		return &ExitStatus{Code: ExitError}
	}
}
