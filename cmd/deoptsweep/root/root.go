package root

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flarebyte/deopt-sweep/cmd/deoptsweep/campaign"
	"github.com/flarebyte/deopt-sweep/cmd/deoptsweep/version"
	"github.com/flarebyte/deopt-sweep/internal/logging"
	"github.com/flarebyte/deopt-sweep/internal/sweep"
)

var newLogger = logging.New

// NewRootCmd creates the root command for deoptsweep.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

// newRootCmd also returns a func flushing the logger the command built.
func newRootCmd() (*cobra.Command, func()) {
	var (
		logLevel  string
		logFormat string
		logger    *zap.Logger
	)
	getLogger := func() *zap.Logger {
		if logger == nil {
			return zap.NewNop()
		}
		return logger
	}

	cmd := &cobra.Command{
		Use:   "deoptsweep",
		Short: "Run deoptgen mutation campaigns over a directory of seed programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel, logFormat)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "Log format: console or json")

	cmd.AddCommand(version.VersionCmd)
	cmd.AddCommand(campaign.NewCmd(sweep.ModeDepthSweep, getLogger))
	cmd.AddCommand(campaign.NewCmd(sweep.ModeFlatRepeat, getLogger))
	cmd.AddCommand(campaign.NewPlanCmd(getLogger))

	sync := func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}
	return cmd, sync
}

// Execute runs the root command with provided args.
// The logger is flushed on every path, including failed commands.
func Execute(args []string) error {
	cmd, sync := newRootCmd()
	defer sync()
	cmd.SetArgs(args)
	return cmd.Execute()
}
