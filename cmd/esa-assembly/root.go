package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/config"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "esa-assembly",
	Short: "Split, recompile and check Phase I ESA report PDFs",
	Long: `esa-assembly separates a Phase I Environmental Site Assessment report into
its written report and appendices, recompiles the full report from those
parts and checks the result against the original.

It runs as an MCP server so that an assistant can locate the executive
summary and first appendix pages, or directly from the command line when
those pages are already known.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./esa-assembly.yaml or ~/.esa-assembly/esa-assembly.yaml)",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger from configuration
func newLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.NewLogger(logger.LogConfig{
		Output:   cfg.Log.Output,
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}
