package jobexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"syscall"
	"time"
)

const (
	DefaultCaptureMaxBytes = 1 << 20
	DefaultTermGrace       = 2 * time.Second
)

// Command is one external process invocation. Args[0] is the program.
// A nil Env inherits the environment of deoptsweep unchanged.
type Command struct {
	Args []string
	Env  map[string]string
	Dir  string
}

// Executor runs a command to completion and classifies the result.
type Executor interface {
	Execute(ctx context.Context, c Command) Outcome
}

// ProcessExecutor spawns real processes. A zero Timeout means no timeout.
type ProcessExecutor struct {
	Timeout          time.Duration
	TermGrace        time.Duration
	CaptureMaxBytes  int
	KillProcessGroup bool
}

// NewProcessExecutor returns an executor that terminates whole process groups.
func NewProcessExecutor(timeout time.Duration, captureMaxBytes int) *ProcessExecutor {
	return &ProcessExecutor{
		Timeout:          timeout,
		TermGrace:        DefaultTermGrace,
		CaptureMaxBytes:  captureMaxBytes,
		KillProcessGroup: true,
	}
}

type limitedBuffer struct {
	max       int
	buf       bytes.Buffer
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	remain := b.max - b.buf.Len()
	if remain > 0 {
		if remain > len(p) {
			remain = len(p)
		}
		_, _ = b.buf.Write(p[:remain])
	}
	if len(p) > remain {
		b.truncated = true
	}
	return n, nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }

// Execute runs c exactly once. It never returns an error: every failure mode
// is folded into the Outcome.
func (e *ProcessExecutor) Execute(ctx context.Context, c Command) Outcome {
	start := time.Now()
	out := e.run(ctx, c)
	out.Duration = time.Since(start)
	out.DurationMs = out.Duration.Milliseconds()
	return out
}

func (e *ProcessExecutor) run(ctx context.Context, c Command) Outcome {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return Outcome{Status: StatusUnexpectedFailure, ExitCode: exitCodeUnknown, Error: "empty command"}
	}
	program := c.Args[0]
	if ctx.Err() != nil {
		return Outcome{Status: StatusCancelled, ExitCode: exitCodeInterrupted, Error: fmt.Sprintf("program %s not started: cancelled", program)}
	}

	cmd := exec.Command(program, c.Args[1:]...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = EnvList(c.Env)
	}
	if e.KillProcessGroup {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	outBuf := &limitedBuffer{max: e.captureMax()}
	errBuf := &limitedBuffer{max: e.captureMax()}
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf

	if err := cmd.Start(); err != nil {
		return Outcome{Status: StatusUnexpectedFailure, ExitCode: exitCodeUnknown, Error: startErrorMessage(program, err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timeoutC <-chan time.Time
	if e.Timeout > 0 {
		timer := time.NewTimer(e.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	var waitErr error
	var stopped Status
	select {
	case waitErr = <-done:
	case <-timeoutC:
		stopped = StatusTimedOut
		waitErr = e.terminate(cmd, done)
	case <-ctx.Done():
		stopped = StatusCancelled
		waitErr = e.terminate(cmd, done)
	}

	res := Outcome{
		Stdout:          outBuf.String(),
		Stderr:          errBuf.String(),
		StdoutTruncated: outBuf.truncated,
		StderrTruncated: errBuf.truncated,
	}
	switch {
	case stopped == StatusTimedOut:
		res.Status = StatusTimedOut
		res.ExitCode = exitCodeInterrupted
		res.Error = fmt.Sprintf("program %s timed out after %s", program, e.Timeout)
	case stopped == StatusCancelled:
		res.Status = StatusCancelled
		res.ExitCode = exitCodeInterrupted
		res.Error = fmt.Sprintf("program %s cancelled", program)
	case waitErr == nil:
		res.Status = StatusSuccess
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Status = StatusProcessFailure
			res.ExitCode = exitErr.ExitCode()
			if res.ExitCode < 0 {
				// killed by a signal we did not send
				res.Error = exitErr.Error()
			}
			return res
		}
		res.Status = StatusUnexpectedFailure
		res.ExitCode = exitCodeUnknown
		res.Error = fmt.Sprintf("program %s execution failed: %v", program, waitErr)
	}
	return res
}

func (e *ProcessExecutor) captureMax() int {
	if e.CaptureMaxBytes <= 0 {
		return DefaultCaptureMaxBytes
	}
	return e.CaptureMaxBytes
}

// terminate sends SIGTERM, waits for the grace period, then SIGKILL.
func (e *ProcessExecutor) terminate(cmd *exec.Cmd, done <-chan error) error {
	signalProcess(cmd, e.KillProcessGroup, syscall.SIGTERM)
	grace := e.TermGrace
	if grace <= 0 {
		grace = DefaultTermGrace
	}
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case err := <-done:
		return err
	case <-t.C:
		signalProcess(cmd, e.KillProcessGroup, syscall.SIGKILL)
		return <-done
	}
}

func signalProcess(cmd *exec.Cmd, killGroup bool, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if killGroup && pid > 0 {
		if err := syscall.Kill(-pid, sig); err == nil {
			return
		}
	}
	_ = cmd.Process.Signal(sig)
}

func startErrorMessage(program string, err error) string {
	var ee *exec.Error
	if errors.As(err, &ee) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("program %s not found", program)
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Sprintf("program %s not executable", program)
	}
	return fmt.Sprintf("program %s start failed: %v", program, err)
}
