package sweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/flarebyte/deopt-sweep/internal/hook"
	"github.com/flarebyte/deopt-sweep/internal/jobexec"
	"github.com/flarebyte/deopt-sweep/internal/seedfilter"
)

// HookRunner runs the post-campaign script.
type HookRunner interface {
	Run(ctx context.Context, script, seedDir, outputRoot string) hook.Outcome
}

// Controller drives one campaign at a time, strictly sequentially.
type Controller struct {
	Executor jobexec.Executor
	Hook     HookRunner
	Logger   *zap.Logger
	Observer Observer
	// Environ returns the ambient environment copied into every job.
	Environ func() []string
	Now     func() time.Time
}

// CheckPreconditions verifies the seed directory and the executable.
func CheckPreconditions(p Parameters) error {
	if err := checkSeedDir(p.SeedDir); err != nil {
		return err
	}
	st, err := os.Stat(p.Executable)
	if err != nil {
		return &PreconditionError{Reason: "executable not found", Path: p.Executable, Err: err}
	}
	if !st.Mode().IsRegular() {
		return &PreconditionError{Reason: "executable is not a regular file", Path: p.Executable}
	}
	return nil
}

func checkSeedDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return &PreconditionError{Reason: "seed directory does not exist", Path: dir, Err: err}
	}
	if !st.IsDir() {
		return &PreconditionError{Reason: "seed directory is not a directory", Path: dir}
	}
	return nil
}

// Run executes the campaign described by p. Job failures are recorded in the
// report and never returned. A non-nil error comes with a nil report for
// invalid parameters and precondition failures, and with the complete report
// for hook failures and cancellation.
func (c *Controller) Run(ctx context.Context, p Parameters) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	strategy, err := StrategyFor(p.Mode)
	if err != nil {
		return nil, err
	}
	log := c.logger().With(zap.String("mode", string(p.Mode)))

	if err := CheckPreconditions(p); err != nil {
		log.Error("campaign aborted", zap.Error(err))
		return nil, err
	}
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return nil, &PreconditionError{Reason: "cannot create output directory", Path: p.OutputDir, Err: err}
	}
	seeds, skipped, err := loadSeeds(p)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		log.Warn("skipping seed entry", zap.String("entry", s.Name), zap.String("reason", s.Reason))
	}

	points := strategy.Points(p, seeds)
	report := newReport(p, c.now())
	report.Skipped = skipped
	log.Info("campaign started",
		zap.String("campaignId", report.CampaignID),
		zap.Int("seeds", len(seeds)),
		zap.Int("jobs", len(points)),
		zap.Int("repeatTimes", p.RepeatTimes))

	environ := c.environ()
	obs := c.observer()
	exe := c.executor(p)
	lastExec, lastDepth := 0, 0
	for i, pt := range points {
		if ctx.Err() != nil {
			break
		}
		if pt.Execution != lastExec {
			log.Info("starting execution", zap.Int("execution", pt.Execution), zap.Int("of", p.RepeatTimes))
			lastExec, lastDepth = pt.Execution, 0
		}
		if pt.Depth != lastDepth && strategy.Mode() == ModeDepthSweep {
			log.Info("running depth", zap.Int("depth", pt.Depth), zap.Int("execution", pt.Execution))
			lastDepth = pt.Depth
		}
		job := Build(strategy, pt.Seed, pt.Execution, pt.Depth, p, environ())
		obs.JobStarted(i+1, len(points), job)
		out := runJob(ctx, exe, job, log)
		report.add(job, out)
		obs.JobFinished(i+1, len(points), job, out)
	}

	if err := ctx.Err(); err != nil {
		return c.cancelled(report, err, log, len(points))
	}

	if strategy.RunsHook() {
		out := c.hookRunner(p).Run(ctx, p.ScriptPath, p.SeedDir, p.OutputDir)
		report.Hook = &out
		if err := ctx.Err(); err != nil {
			return c.cancelled(report, err, log, len(points))
		}
		if !out.OK {
			report.finish(c.now())
			return report, &HookError{Outcome: out}
		}
	}
	report.finish(c.now())
	log.Info("campaign finished",
		zap.String("campaignId", report.CampaignID),
		zap.Int("jobs", report.Summary.Total),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed()))
	return report, nil
}

// Plan returns the descriptors Run would execute, without running anything
// or creating directories. Only the seed directory must exist.
func (c *Controller) Plan(p Parameters) ([]JobDescriptor, []SkippedEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	strategy, err := StrategyFor(p.Mode)
	if err != nil {
		return nil, nil, err
	}
	if err := checkSeedDir(p.SeedDir); err != nil {
		return nil, nil, err
	}
	seeds, skipped, err := loadSeeds(p)
	if err != nil {
		return nil, nil, err
	}
	environ := c.environ()
	points := strategy.Points(p, seeds)
	jobs := make([]JobDescriptor, 0, len(points))
	for _, pt := range points {
		jobs = append(jobs, Build(strategy, pt.Seed, pt.Execution, pt.Depth, p, environ()))
	}
	return jobs, skipped, nil
}

// cancelled closes a report interrupted by ctx. The hook outcome, if any,
// stays in the report but is not treated as a hook failure.
func (c *Controller) cancelled(report *Report, err error, log *zap.Logger, jobs int) (*Report, error) {
	report.Cancelled = true
	report.finish(c.now())
	log.Warn("campaign cancelled", zap.Int("completed", report.Summary.Total), zap.Int("jobs", jobs))
	return report, err
}

func loadSeeds(p Parameters) ([]SeedFile, []SkippedEntry, error) {
	filter, err := seedfilter.Compile(p.SeedFilter)
	if err != nil {
		return nil, nil, err
	}
	seeds, skipped, err := EnumerateSeeds(p.SeedDir, SeedOptions{Exclude: p.Exclude, Filter: filter})
	if err != nil {
		return nil, nil, &PreconditionError{Reason: "cannot list seed directory", Path: p.SeedDir, Err: err}
	}
	return seeds, skipped, nil
}

// runJob prepares the job's output directory and executes it. Neither step
// can fail the campaign.
func runJob(ctx context.Context, exe jobexec.Executor, job JobDescriptor, log *zap.Logger) jobexec.Outcome {
	jl := log.With(
		zap.String("seed", job.Seed.Name),
		zap.Int("execution", job.Execution),
		zap.Int("depth", job.Depth),
		zap.String("output", job.OutputPath))
	jl.Info("processing seed")

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		out := jobexec.Outcome{
			Status:   jobexec.StatusUnexpectedFailure,
			ExitCode: -1,
			Error:    fmt.Sprintf("create output directory: %v", err),
		}
		jl.Error("unexpected error processing seed", zap.String("error", out.Error))
		return out
	}

	out := exe.Execute(ctx, job.Command())
	switch out.Status {
	case jobexec.StatusSuccess:
		jl.Info("output written", zap.Int64("durationMs", out.DurationMs))
		jl.Debug("mutator output", zap.String("stdout", out.Stdout), zap.String("stderr", out.Stderr))
	case jobexec.StatusProcessFailure:
		jl.Error("error processing seed",
			zap.Int("exitCode", out.ExitCode),
			zap.String("stdout", out.Stdout),
			zap.String("stderr", out.Stderr))
	default:
		jl.Error("unexpected error processing seed",
			zap.String("status", string(out.Status)),
			zap.String("error", out.Error))
	}
	return out
}

func (c *Controller) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Controller) executor(p Parameters) jobexec.Executor {
	if c.Executor == nil {
		return jobexec.NewProcessExecutor(p.Timeout, p.CaptureMaxBytes)
	}
	return c.Executor
}

func (c *Controller) observer() Observer {
	if c.Observer == nil {
		return nopObserver{}
	}
	return c.Observer
}

func (c *Controller) environ() func() []string {
	if c.Environ == nil {
		return os.Environ
	}
	return c.Environ
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Controller) hookRunner(p Parameters) HookRunner {
	if c.Hook != nil {
		return c.Hook
	}
	return hook.NewRunner(p.CaptureMaxBytes, c.Logger)
}
