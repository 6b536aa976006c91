package jobexec

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flarebyte/deopt-sweep/internal/testutil"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func baseExecutor() *ProcessExecutor {
	return &ProcessExecutor{
		TermGrace:        50 * time.Millisecond,
		CaptureMaxBytes:  1024,
		KillProcessGroup: true,
	}
}

func shCommand(script string) Command {
	return Command{Args: []string{"sh", "-c", script}}
}

func TestExecute_SuccessCapturesStdout(t *testing.T) {
	testutil.RequirePOSIXShell(t)
	out := baseExecutor().Execute(context.Background(), shCommand("printf 'ok'"))
	if out.Status != StatusSuccess || out.ExitCode != 0 || out.Error != "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Stdout != "ok" || out.Stderr != "" {
		t.Fatalf("unexpected streams: %q %q", out.Stdout, out.Stderr)
	}
	if !out.OK() || out.Interrupted() {
		t.Fatalf("unexpected helpers: ok=%v interrupted=%v", out.OK(), out.Interrupted())
	}
}

func TestExecute_NonZeroExitIsProcessFailure(t *testing.T) {
	testutil.RequirePOSIXShell(t)
	out := baseExecutor().Execute(context.Background(), shCommand("printf 'out'; printf 'bad' >&2; exit 7"))
	if out.Status != StatusProcessFailure || out.ExitCode != 7 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Stdout != "out" || out.Stderr != "bad" {
		t.Fatalf("unexpected streams: %q %q", out.Stdout, out.Stderr)
	}
	if out.Error != "" {
		t.Fatalf("process failures carry no error text: %q", out.Error)
	}
}

func TestExecute_MissingProgramIsUnexpectedFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "deoptgen-does-not-exist")
	out := baseExecutor().Execute(context.Background(), Command{Args: []string{missing, "-m", "6"}})
	if out.Status != StatusUnexpectedFailure || out.ExitCode != -1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !strings.Contains(out.Error, "not found") {
		t.Fatalf("unexpected error text: %q", out.Error)
	}
}

func TestExecute_NonExecutableIsUnexpectedFailure(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(p, []byte("not a program"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := baseExecutor().Execute(context.Background(), Command{Args: []string{p}})
	if out.Status != StatusUnexpectedFailure {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestExecute_EmptyCommand(t *testing.T) {
	out := baseExecutor().Execute(context.Background(), Command{})
	if out.Status != StatusUnexpectedFailure || out.Error != "empty command" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestExecute_TimeoutTerminatesProcess(t *testing.T) {
	testutil.RequirePOSIXShell(t)
	e := baseExecutor()
	e.Timeout = 50 * time.Millisecond
	start := time.Now()
	out := e.Execute(context.Background(), shCommand("sleep 5"))
	if out.Status != StatusTimedOut || out.ExitCode != -2 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("timeout did not stop the process promptly")
	}
}

func TestExecute_CancelTerminatesProcess(t *testing.T) {
	testutil.RequirePOSIXShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	out := baseExecutor().Execute(ctx, shCommand("sleep 5"))
	if out.Status != StatusCancelled || !out.Interrupted() {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestExecute_AlreadyCancelledDoesNotStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	marker := filepath.Join(t.TempDir(), "ran")
	out := baseExecutor().Execute(ctx, shCommand("touch "+marker))
	if out.Status != StatusCancelled {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Fatalf("process should not have started")
	}
}

func TestExecute_TruncatesCapturedOutput(t *testing.T) {
	testutil.RequirePOSIXShell(t)
	e := baseExecutor()
	e.CaptureMaxBytes = 5
	out := e.Execute(context.Background(), shCommand("printf '0123456789'"))
	if out.Stdout != "01234" || !out.StdoutTruncated {
		t.Fatalf("unexpected stdout: %q truncated=%v", out.Stdout, out.StdoutTruncated)
	}
	if out.StderrTruncated {
		t.Fatalf("stderr should not be truncated")
	}
}

func TestExecute_UsesProvidedEnvironment(t *testing.T) {
	testutil.RequirePOSIXShell(t)
	env := MergeEnv(os.Environ(), map[string]string{"DEOPT_PROBE": "injected"})
	c := shCommand(`printf '%s' "$DEOPT_PROBE"`)
	c.Env = env
	out := baseExecutor().Execute(context.Background(), c)
	if out.Stdout != "injected" {
		t.Fatalf("unexpected stdout: %q", out.Stdout)
	}
	if _, ok := os.LookupEnv("DEOPT_PROBE"); ok {
		t.Fatalf("process environment must not change")
	}
}

func TestExecute_RecordsDuration(t *testing.T) {
	testutil.RequirePOSIXShell(t)
	out := baseExecutor().Execute(context.Background(), shCommand("sleep 0.05"))
	if out.Duration <= 0 || out.DurationMs != out.Duration.Milliseconds() {
		t.Fatalf("unexpected duration: %v / %d", out.Duration, out.DurationMs)
	}
}

func TestNewProcessExecutorDefaults(t *testing.T) {
	e := NewProcessExecutor(0, 0)
	if !e.KillProcessGroup || e.TermGrace != DefaultTermGrace {
		t.Fatalf("unexpected executor: %+v", e)
	}
	if e.captureMax() != DefaultCaptureMaxBytes {
		t.Fatalf("unexpected capture max: %d", e.captureMax())
	}
}
