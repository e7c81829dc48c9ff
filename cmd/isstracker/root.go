package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/balhun/ISSTracker/internal/config"
	"github.com/balhun/ISSTracker/internal/logging"
)

// cli carries state shared by the subcommands.
type cli struct {
	envFile string
	cfg     config.Config
	logger  *slog.Logger
	logOut  io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "isstracker",
		Short: "Live map of the International Space Station",
		Long: `isstracker polls the station's position, predicts its ground track with SGP4
and serves a live map with the current position, visibility horizon and orbit.

Settings come from ISSTRACKER_* environment variables, optionally seeded from
an --env-file. Without a subcommand the HTTP server is started.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logOut != nil {
				c.logOut.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "load environment variables from this .env file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.serve(cmd.Context())
			},
		},
		c.orbitCmd(),
		c.snapshotCmd(),
	)
	return root
}

// setup loads configuration and builds the logger. The server logs to stdout
// or the rotated file; one-shot commands log to stderr so their output stays
// parseable.
func (c *cli) setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}

	bootstrap := logging.NewWithWriter(os.Stderr, slog.LevelWarn)
	c.cfg = config.Load(bootstrap)

	if isServe(cmd) {
		logger, out := logging.New(c.cfg.Log)
		c.logger, c.logOut = logger, out
	} else {
		c.logger = logging.NewWithWriter(cmd.ErrOrStderr(), c.cfg.Log.Level)
	}
	return nil
}

func isServe(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "serve"
}
