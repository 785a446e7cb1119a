package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/touchline/internal/config"
	"github.com/okian/touchline/pkg/logger"
)

// cli carries state shared by every subcommand once the root has loaded it.
type cli struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "touchline",
		Short: "Shortest affiliation paths between footballers and managers",
		Long: `Touchline links two people through overlapping stints at clubs and
national teams, and explains each hop of the chain.

Configuration is layered: defaults, then the YAML file named by
TOUCHLINE_CONFIG, then TOUCHLINE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	root.AddCommand(
		newServeCmd(c),
		newSeedCmd(c),
		newPathCmd(c),
		newProbeCmd(c),
	)
	return root
}

// init loads configuration and the global logger.
func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	c.log = log
	return nil
}
