// Package cmd provides the CLI commands for idsearch.
package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"idsearch/internal/app"
	"idsearch/internal/platform/config"
	"idsearch/internal/platform/logger"
)

type globalOptions struct {
	configFile string
	logLevel   string
}

// NewRootCmd creates the root command for the idsearch CLI.
func NewRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:   "idsearch",
		Short: "Find a person across the directory, profile store and contact center",
		Long: `idsearch queries every configured identity source in parallel, correlates
the answers by email, and returns one merged record, a candidate list, or
not found.

Configuration comes from IDSEARCH_* environment variables, an optional .env
file and an optional YAML file (--config or IDSEARCH_CONFIG_FILE).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the log level: debug, info, warn, error")

	cmd.AddCommand(newSearchCmd(&opts))
	cmd.AddCommand(newServeCmd(&opts))
	return cmd
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func loadConfig(opts *globalOptions) (config.Config, error) {
	if opts.configFile != "" {
		if err := os.Setenv("IDSEARCH_CONFIG_FILE", opts.configFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

func buildApp(ctx context.Context, opts *globalOptions, logOut io.Writer) (*app.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(logOut, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	return app.Build(ctx, cfg, log)
}
