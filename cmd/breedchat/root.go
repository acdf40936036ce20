package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/breedchat/internal/config"
	"github.com/vbonduro/breedchat/internal/logging"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "breedchat",
		Short:         "Dog breed classification and grounded Q&A backend",
		Long:          `Identifies dog breeds from photos and answers questions about breeds and diets from local reference data.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		NewServeCmd(),
		NewPredictCmd(),
		NewAskCmd(),
	)
	return rootCmd
}

// setup loads configuration, applying persistent flag overrides, and builds
// the logger. Callers must defer the returned cleanup.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, func(), error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv("CONFIG_FILE", path); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to set config file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, cleanup, nil
}
