package campaign

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/deopt-sweep/internal/report"
	"github.com/flarebyte/deopt-sweep/internal/sweep"
)

// NewPlanCmd returns the plan command: it prints the jobs a campaign would
// run, one JSON document per line, without running anything.
func NewPlanCmd(logger func() *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan",
		Short:         "Print the jobs of a campaign without running them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newPlanModeCmd(sweep.ModeDepthSweep, logger))
	cmd.AddCommand(newPlanModeCmd(sweep.ModeFlatRepeat, logger))
	return cmd
}

func newPlanModeCmd(mode sweep.Mode, logger func() *zap.Logger) *cobra.Command {
	fv := &flagValues{}
	cmd := &cobra.Command{
		Use:           string(mode) + " [seed_dir] [output_dir]",
		Short:         "Plan a " + string(mode) + " campaign",
		Args:          dirArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveParameters(cmd, mode, fv, args)
			if err != nil {
				return evaluateRunExit(err)
			}
			log := logger()
			c := &sweep.Controller{Logger: log}
			jobs, skipped, err := c.Plan(p)
			if err != nil {
				return evaluateRunExit(err)
			}
			for _, s := range skipped {
				log.Warn("skipping seed entry", zap.String("entry", s.Name), zap.String("reason", s.Reason))
			}
			return report.WriteLines(cmd.OutOrStdout(), jobs)
		},
	}
	bindFlags(cmd, mode, fv)
	return cmd
}
