package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "decisiond",
	Short: "decisiond - policy decision point for MLOps control planes",
	Long: `Decisiond evaluates MLOps control-plane requests against a declarative
rule set and returns an allow, deny or review verdict.

It combines three layers:
  - Rule evaluation: first-match-wins over a priority-ordered YAML rule set
  - AI arbitration: optional LLM analysis of grey-zone verdicts
  - Audit trail: every decision recorded to SQLite with retention pruning

Rule sets hot-reload atomically; in-flight requests always see a complete
snapshot.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
