package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewindlauncher/backend/config"
	"github.com/rewindlauncher/backend/pkg/logger"
)

var (
	envFile string
	cfg     *config.Config
)

// rootCmd runs the server when called without a subcommand
var rootCmd = &cobra.Command{
	Use:           "rewind-shop",
	Short:         "Item shop cache and refresh scheduler for Rewind Launcher",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded

		if err := logger.Init(cfg.Log.Level, cfg.Server.Environment); err != nil {
			return fmt.Errorf("failed to initialise logger: %w", err)
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to a .env file loaded before configuration")

	rootCmd.AddCommand(serveCmd, fetchCmd, clearCacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
