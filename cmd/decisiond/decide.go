package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/i-OmSharma/MLOps-decision/pkg/arbiter"
	"github.com/i-OmSharma/MLOps-decision/pkg/decision"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules/store"
	"github.com/i-OmSharma/MLOps-decision/pkg/telemetry/logging"
)

var decideFlags struct {
	rulesPath string
	inputPath string
	withAI    bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate a single request without a server",
	Long: `Evaluate a single request against a rules file and print the decision.

The input is a JSON document with "request" and "signals" objects, read from
a file or stdin. The output is the same JSON the /v1/decide endpoint returns.

Examples:
  # Evaluate a request from a file
  decisiond decide --rules rules.yaml --input request.json

  # Evaluate from stdin
  cat request.json | decisiond decide --rules rules.yaml

  # Include AI arbitration for grey-zone verdicts
  decisiond decide --rules rules.yaml --input request.json --with-ai`,
	RunE: decideOnce,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideFlags.rulesPath, "rules", "r", "rules.yaml", "rules file path")
	decideCmd.Flags().StringVarP(&decideFlags.inputPath, "input", "i", "", "input JSON file (default stdin)")
	decideCmd.Flags().BoolVar(&decideFlags.withAI, "with-ai", false, "arbitrate grey-zone verdicts with the configured AI backend")
}

func decideOnce(cmd *cobra.Command, args []string) error {
	level := "error"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: "text", Writer: os.Stderr})
	if err != nil {
		return err
	}

	var data []byte
	if decideFlags.inputPath != "" {
		data, err = os.ReadFile(decideFlags.inputPath)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("input is not valid JSON: %w", err)
	}

	ctx := context.Background()

	s := store.New(store.NewFileSource(decideFlags.rulesPath), logger)
	if err := s.Load(ctx); err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	arbCfg, err := arbiter.ParseConfig(s.ArbiterConfig())
	if err != nil {
		return fmt.Errorf("invalid arbiter configuration: %w", err)
	}
	var arb arbiter.Arbiter = arbiter.Disabled{}
	if decideFlags.withAI {
		arb = arbiter.Build(arbCfg, logger)
	}

	orch := decision.New(s, arb, decision.Config{
		ArbitrationEnabled: decideFlags.withAI,
		ArbiterTimeout:     arbCfg.Timeout,
		Version:            Version,
	}, nil, nil, logger)

	resp := orch.Decide(ctx, input)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(resp); err != nil {
		return err
	}

	if resp.Decision.Final == decision.FinalDeny || resp.Decision.Final == decision.FinalError {
		os.Exit(1)
	}
	return nil
}
