// Package campaign implements the depth-sweep, flat-repeat and plan commands.
package campaign

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/deopt-sweep/internal/jobexec"
	"github.com/flarebyte/deopt-sweep/internal/provenance"
	"github.com/flarebyte/deopt-sweep/internal/report"
	"github.com/flarebyte/deopt-sweep/internal/sweep"
)

var shortByMode = map[sweep.Mode]string{
	sweep.ModeDepthSweep: "Mutate every seed at every depth from 6 to --max-mutations",
	sweep.ModeFlatRepeat: "Mutate every seed at --max-mutations, then run the post-campaign script",
}

// NewCmd returns the command running a campaign in mode.
func NewCmd(mode sweep.Mode, logger func() *zap.Logger) *cobra.Command {
	fv := &flagValues{}
	cmd := &cobra.Command{
		Use:           string(mode) + " [seed_dir] [output_dir]",
		Short:         shortByMode[mode],
		Args:          dirArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveParameters(cmd, mode, fv, args)
			if err != nil {
				return evaluateRunExit(err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCampaign(ctx, p, runOptions{
				logger:     logger(),
				reportPath: fv.reportPath,
				progress:   newProgressReporter(fv.progress, cmd.ErrOrStderr()),
				stdout:     cmd.OutOrStdout(),
			})
		},
	}
	bindFlags(cmd, mode, fv)
	cmd.Flags().StringVar(&fv.reportPath, "report", "", "Write the campaign report to this path (.json, .yaml, .yml; - for stdout)")
	cmd.Flags().BoolVar(&fv.progress, "progress", false, "Print a progress line on stderr after every job")
	return cmd
}

type runOptions struct {
	logger     *zap.Logger
	reportPath string
	progress   sweep.Observer
	stdout     io.Writer
	executor   jobexec.Executor
	hook       sweep.HookRunner
}

func runCampaign(ctx context.Context, p sweep.Parameters, o runOptions) error {
	c := &sweep.Controller{
		Executor: o.executor,
		Hook:     o.hook,
		Logger:   o.logger,
		Observer: o.progress,
	}
	rep, runErr := c.Run(ctx, p)
	if rep == nil {
		return evaluateRunExit(runErr)
	}

	info, err := provenance.Lookup(p.Executable)
	if err != nil {
		o.logger.Warn("mutator provenance unavailable", zap.Error(err))
	} else {
		rep.Provenance = info
	}

	if o.reportPath != "" {
		if err := report.Write(o.reportPath, rep); err != nil {
			if runErr == nil {
				return evaluateRunExit(err)
			}
			o.logger.Error("cannot write campaign report", zap.Error(err))
		}
	}
	if o.reportPath != "-" {
		if err := report.WriteLines(o.stdout, []sweep.Summary{rep.Summary}); err != nil {
			return evaluateRunExit(fmt.Errorf("write summary: %w", err))
		}
	}
	return evaluateRunExit(runErr)
}
