package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/handsomefox/media-tracker/internal/config"
	"github.com/handsomefox/media-tracker/internal/logger"
)

// commandContext loads configuration once and shares it between subcommands.
type commandContext struct {
	configDir string
	cfg       *config.Config
	log       *slog.Logger
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configDir)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.log = logger.New(logger.ParseLevel(cfg.Log.Level), cfg.Env)
	slog.SetDefault(c.log)
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	serve := newServeCommand(ctx)
	rootCmd := &cobra.Command{
		Use:           "media-tracker",
		Short:         "Anime, movie and TV watch-list server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: serve.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configDir, "config-dir", "c", ".", "Directory holding an optional config.yaml")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	return rootCmd
}
