package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/i-OmSharma/MLOps-decision/pkg/rules/store"
	"github.com/i-OmSharma/MLOps-decision/pkg/telemetry/logging"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rules files",
	Long: `Validate rules files for syntax and structural errors.

The lint command loads each rules file the way the server does:
  - YAML syntax validation
  - Rule structure validation (id, outcome, condition shape)
  - Operator and condition depth checks

Rules that fail validation are skipped at load time; lint reports how many
would be skipped.

Examples:
  # Lint single file
  decisiond lint --file rules.yaml

  # Lint directory
  decisiond lint --dir rules/

  # Strict mode (skipped rules fail the lint)
  decisiond lint --file rules.yaml --strict

  # JSON output for CI/CD
  decisiond lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rules file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rules files")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat skipped rules as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the validation outcome for a single rules file.
type LintResult struct {
	File         string `json:"file"`
	Valid        bool   `json:"valid"`
	TotalRules   int    `json:"total_rules"`
	ActiveRules  int    `json:"active_rules"`
	SkippedRules int    `json:"skipped_rules"`
	Error        string `json:"error,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string

	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}

	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list rules files: %w", err)
			}
			files = append(files, matches...)
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no rules files found")
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintRulesFile(file))
	}

	if lintFlags.format == "json" {
		return outputLintJSON(results)
	}
	return outputLintText(results)
}

func lintRulesFile(path string) LintResult {
	result := LintResult{File: path}

	logger, _ := logging.New(logging.Config{Level: "error", Format: "text", Writer: os.Stderr})
	s := store.New(store.NewFileSource(path), logger)
	if err := s.Load(context.Background()); err != nil {
		result.Error = err.Error()
		return result
	}

	meta, err := s.Metadata()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.TotalRules = meta.TotalRules
	result.ActiveRules = meta.ActiveRules
	result.SkippedRules = meta.SkippedRules
	result.Valid = result.SkippedRules == 0 || !lintFlags.strict
	return result
}

func outputLintJSON(results []LintResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}
	for _, r := range results {
		if !r.Valid || r.Error != "" {
			os.Exit(1)
		}
	}
	return nil
}

func outputLintText(results []LintResult) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Printf("✗ %s: %s\n", r.File, r.Error)
			failed++
		case !r.Valid:
			fmt.Printf("✗ %s: %d of %d rules skipped\n", r.File, r.SkippedRules, r.TotalRules)
			failed++
		case r.SkippedRules > 0:
			fmt.Printf("⚠ %s: %d active, %d skipped\n", r.File, r.ActiveRules, r.SkippedRules)
		default:
			fmt.Printf("✓ %s: %d rules\n", r.File, r.ActiveRules)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(results))
	}
	return nil
}
