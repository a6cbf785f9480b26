// AngelaMos | 2026
// exitcode.go

package cli

import (
	"errors"
	"fmt"
)

const (
	ExitSuccess       = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitLoginRequired = 3
	ExitAuthFailed    = 5
	ExitNetwork       = 6
)

// ExitError carries the process exit code up to main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}
