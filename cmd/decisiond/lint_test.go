package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}
	return path
}

func TestLintRulesFile(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeRulesFile(t, `
rules:
  - id: allow-dev
    priority: 5
    condition:
      field: request.environment
      op: eq
      value: dev
    outcome: SAFE_ALLOW
defaults:
  no_match_outcome: GREY_ZONE
`)

		result := lintRulesFile(path)
		if !result.Valid {
			t.Errorf("Expected valid result, got error %q", result.Error)
		}
		if result.ActiveRules != 1 || result.SkippedRules != 0 {
			t.Errorf("Expected 1 active, 0 skipped, got %d/%d",
				result.ActiveRules, result.SkippedRules)
		}
	})

	t.Run("malformed YAML", func(t *testing.T) {
		path := writeRulesFile(t, "rules: [unclosed")

		result := lintRulesFile(path)
		if result.Valid {
			t.Error("Expected invalid result for malformed YAML")
		}
		if result.Error == "" {
			t.Error("Expected error detail")
		}
	})

	t.Run("skipped rules reported", func(t *testing.T) {
		path := writeRulesFile(t, `
rules:
  - id: good
    priority: 1
    condition:
      field: request.environment
      op: eq
      value: dev
    outcome: SAFE_ALLOW
  - id: bad-outcome
    priority: 2
    condition:
      field: request.environment
      op: eq
      value: prod
    outcome: NOT_AN_OUTCOME
`)

		result := lintRulesFile(path)
		if result.ActiveRules != 1 {
			t.Errorf("Expected 1 active rule, got %d", result.ActiveRules)
		}
		if result.SkippedRules != 1 {
			t.Errorf("Expected 1 skipped rule, got %d", result.SkippedRules)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		result := lintRulesFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if result.Valid {
			t.Error("Expected invalid result for missing file")
		}
	})
}

func TestLintStrictMode(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - id: good
    priority: 1
    condition:
      field: request.environment
      op: eq
      value: dev
    outcome: SAFE_ALLOW
  - id: bad
    priority: 2
    condition:
      field: request.environment
      op: eq
      value: prod
    outcome: BOGUS
`)

	lintFlags.strict = false
	defer func() { lintFlags.strict = false }()

	if result := lintRulesFile(path); !result.Valid {
		t.Error("Expected skipped rules to pass without strict mode")
	}

	lintFlags.strict = true
	if result := lintRulesFile(path); result.Valid {
		t.Error("Expected skipped rules to fail in strict mode")
	}
}
