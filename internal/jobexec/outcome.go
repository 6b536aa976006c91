package jobexec

import "time"

// Status classifies how a single process invocation ended.
type Status string

const (
	StatusSuccess           Status = "success"
	StatusProcessFailure    Status = "process-failure"
	StatusUnexpectedFailure Status = "unexpected-failure"
	StatusTimedOut          Status = "timed-out"
	StatusCancelled         Status = "cancelled"
)

const (
	exitCodeUnknown     = -1
	exitCodeInterrupted = -2
)

// Outcome is the value produced for every executed command. It is never an
// error: callers record it and move on.
type Outcome struct {
	Status          Status        `json:"status" yaml:"status"`
	ExitCode        int           `json:"exitCode" yaml:"exitCode"`
	Stdout          string        `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr          string        `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	StdoutTruncated bool          `json:"stdoutTruncated,omitempty" yaml:"stdoutTruncated,omitempty"`
	StderrTruncated bool          `json:"stderrTruncated,omitempty" yaml:"stderrTruncated,omitempty"`
	Error           string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration        time.Duration `json:"-" yaml:"-"`
	DurationMs      int64         `json:"durationMs" yaml:"durationMs"`
}

// OK reports whether the process exited with status 0.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Interrupted reports whether the process was stopped by deoptsweep itself.
func (o Outcome) Interrupted() bool {
	return o.Status == StatusTimedOut || o.Status == StatusCancelled
}
