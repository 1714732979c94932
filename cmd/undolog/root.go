package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hopsan/hopsan-sub008/internal/config"
	"github.com/Hopsan/hopsan-sub008/internal/logging"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "undolog",
	Short: "Inspect and serve model-graph undo histories",
	Long: `undolog manages the undo/redo histories saved next to model documents.
Settings come from a YAML file and HOPSAN_UNDO_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.LogLevel = level
		}
		if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
			loaded.Store.Backend = backend
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		lvl, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(lvl)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "undolog.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().String("backend", "", "Override the configured store backend (memory, file, redis, sqlite)")
}
