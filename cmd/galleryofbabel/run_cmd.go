package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/davelindo/galleryofbabel/internal/config"
	"github.com/davelindo/galleryofbabel/internal/runner"
)

var runConfigPath string

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to config YAML (env overrides still apply)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start exploring the seed space",
	Long:  "Start exploring the seed space: CPU and GPU workers score candidates, the best are verified exactly and submitted to the leaderboard.",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "galleryofbabel").Logger()

	if !config.NoUpdateCheck() {
		logger.Info().Msg("update check: skipped (out of scope for this build, GALLERY_NO_UPDATE_CHECK honored for a future external checker)")
	}

	r, err := runner.New(cfg, logger)
	if err != nil {
		return err
	}
	if runConfigPath != "" {
		r.SetConfigPath(runConfigPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return r.Run(ctx)
}
