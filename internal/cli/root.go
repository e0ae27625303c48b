// Package cli implements draftctl, the operator tool for the draft pipeline.
package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

var version = "dev"

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:          "draftctl",
	Short:        "Inspect and operate the draft pipeline",
	Long:         `draftctl runs pipeline stages against local files and manages the database schema.`,
	SilenceUsage: true,
}

var logMode string

func init() {
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", os.Getenv("LOG_MODE"), "Logger mode (development, production, test)")
}

func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (*logger.Logger, error) {
	mode := logMode
	if mode == "" {
		mode = "production"
	}
	return logger.New(mode)
}
