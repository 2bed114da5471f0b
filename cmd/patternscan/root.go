package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/patternscan/internal/log"
)

// NewRootCmd creates the root command for patternscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patternscan",
		Short: "Dark pattern auditor for websites",
		Long: `patternscan audits websites for dark patterns: user interface designs that
push people into decisions they did not intend to make.

Each page is loaded in a headless Chromium, its interactive elements are
extracted and a set of heuristics classifies what it finds as dark
(manipulative), grey (questionable) or white (user friendly) patterns.
The result is a score from 0 to 100 with a verdict and recommendations.

A local Chromium is used when found; otherwise one is downloaded on first
use. Set PATTERNSCAN_BROWSER or --browser to choose a specific binary.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a bool flag from the command or the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the redacting logger selected by the global flags and
// installs it as the default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := log.NewLogger(os.Stderr, log.Options{
		Verbose: getBoolFlag(cmd, "verbose"),
		JSON:    getBoolFlag(cmd, "log-json"),
	})
	slog.SetDefault(logger)
	return logger
}
