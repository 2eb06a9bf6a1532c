package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"coopsched/internal/logger"
	"coopsched/internal/sched"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg sched.Config
	log zerolog.Logger
)

// NewRootCmd creates the root cobra command for the coopsched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coopsched",
		Short: "coopsched: cooperative deadline scheduler",
		Long:  "coopsched runs task scenarios on a single-threaded, deadline ordered, time-sliced scheduler.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = sched.Load(flagConfig)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = flagLogFormat
			}
			if flagDebug {
				cfg.LogLevel = "debug"
			}
			log = logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Scheduler config YAML (defaults when empty)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console, json)")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
	)

	return root
}
