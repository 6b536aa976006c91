package campaign

import (
	"context"
	"errors"

	"github.com/flarebyte/deopt-sweep/internal/sweep"
)

const (
	exitCodeSuccess     = 0
	exitCodeFailure     = 1
	exitCodeInterrupted = 130
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

// evaluateRunExit maps the controller's terminal error to a process exit
// code. Job failures never reach here; a completed campaign exits 0.
func evaluateRunExit(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return runExitError{code: exitCodeInterrupted, msg: "interrupted"}
	}
	var pre *sweep.PreconditionError
	if errors.As(err, &pre) {
		return runExitError{code: exitCodeFailure, msg: "precondition failed: " + pre.Error()}
	}
	var hookErr *sweep.HookError
	if errors.As(err, &hookErr) {
		return runExitError{code: exitCodeFailure, msg: hookErr.Error()}
	}
	return runExitError{code: exitCodeFailure, msg: err.Error()}
}
