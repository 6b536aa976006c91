// Package hook runs the post-processing script that closes a flat-repeat
// campaign: once on the seed directory, then once on the output root.
package hook

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flarebyte/deopt-sweep/internal/jobexec"
)

// Invocation is one call of the script.
type Invocation struct {
	Args    []string        `json:"args" yaml:"args"`
	Outcome jobexec.Outcome `json:"outcome" yaml:"outcome"`
}

// Outcome is the result of the whole hook step. Invocations has one entry
// when the first call failed, since the second is then skipped.
type Outcome struct {
	Script      string       `json:"script" yaml:"script"`
	Invocations []Invocation `json:"invocations" yaml:"invocations"`
	OK          bool         `json:"ok" yaml:"ok"`
}

// Failure returns the first failed invocation, if any.
func (o Outcome) Failure() (Invocation, bool) {
	for _, inv := range o.Invocations {
		if !inv.Outcome.OK() {
			return inv, true
		}
	}
	return Invocation{}, false
}

// Describe renders a one-line summary of a failed hook.
func (o Outcome) Describe() string {
	inv, ok := o.Failure()
	if !ok {
		return "ok"
	}
	out := inv.Outcome
	if out.Status == jobexec.StatusProcessFailure {
		return fmt.Sprintf("%v exited with status %d", inv.Args, out.ExitCode)
	}
	return fmt.Sprintf("%v: %s", inv.Args, out.Error)
}

// Runner executes the script through an Executor. The script inherits the
// environment of deoptsweep without overrides.
type Runner struct {
	Executor jobexec.Executor
	Logger   *zap.Logger
}

// NewRunner returns a Runner backed by a process executor without timeout.
func NewRunner(captureMaxBytes int, logger *zap.Logger) *Runner {
	return &Runner{Executor: jobexec.NewProcessExecutor(0, captureMaxBytes), Logger: logger}
}

// Run invokes script with seedDir, then with outputRoot. The second call is
// skipped when the first fails.
func (r *Runner) Run(ctx context.Context, script, seedDir, outputRoot string) Outcome {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("script", script))

	res := Outcome{Script: script, OK: true}
	for _, dir := range []string{seedDir, outputRoot} {
		args := []string{script, dir}
		log.Info("running post-campaign script", zap.String("dir", dir))
		out := r.Executor.Execute(ctx, jobexec.Command{Args: args})
		res.Invocations = append(res.Invocations, Invocation{Args: args, Outcome: out})
		if !out.OK() {
			res.OK = false
			log.Error("post-campaign script failed",
				zap.String("dir", dir),
				zap.String("status", string(out.Status)),
				zap.Int("exitCode", out.ExitCode),
				zap.String("error", out.Error),
				zap.String("stdout", out.Stdout),
				zap.String("stderr", out.Stderr))
			return res
		}
		log.Debug("post-campaign script output", zap.String("dir", dir), zap.String("stdout", out.Stdout), zap.String("stderr", out.Stderr))
	}
	log.Info("post-campaign script finished", zap.String("seedDir", seedDir), zap.String("outputDir", outputRoot))
	return res
}
