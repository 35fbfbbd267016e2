package decision

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/i-OmSharma/MLOps-decision/pkg/arbiter"
	"github.com/i-OmSharma/MLOps-decision/pkg/audit"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules/store"
)

const testRulesDoc = `
rules:
  - id: block-high-risk
    name: block high risk scores
    priority: 10
    condition:
      field: signals.score
      op: gte
      value: 80
    outcome: SAFE_DENY
  - id: allow-dev
    name: allow dev environment
    priority: 5
    condition:
      field: request.environment
      op: eq
      value: dev
    outcome: SAFE_ALLOW
  - id: flag-unknown-region
    priority: 1
    condition:
      operator: AND
      operands:
        - field: request.region
          op: exists
          value: false
    outcome: GREY_ZONE
defaults:
  no_match_outcome: GREY_ZONE
`

func newTestStore(t *testing.T, doc string) *store.Store {
	t.Helper()
	st := store.New(store.NewMemorySource([]byte(doc)), nil)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return st
}

// stubArbiter returns a fixed insight and records calls.
type stubArbiter struct {
	insight arbiter.Insight
	enabled bool

	mu    sync.Mutex
	calls int
}

func (s *stubArbiter) Analyze(ctx context.Context, input map[string]any, result rules.EvaluationResult) arbiter.Insight {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.insight
}

func (s *stubArbiter) IsEnabled() bool { return s.enabled }

func (s *stubArbiter) Describe() arbiter.Description {
	return arbiter.Description{Provider: "stub", Model: "stub-1"}
}

func (s *stubArbiter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// captureAudit collects records passed to the audit sink.
type captureAudit struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (c *captureAudit) Record(record *audit.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
}

func (c *captureAudit) last(t *testing.T) *audit.Record {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		t.Fatal("Expected at least one audit record")
	}
	return c.records[len(c.records)-1]
}

func input(request, signals map[string]any) map[string]any {
	return map[string]any{"request": request, "signals": signals}
}

// TestOrchestrator_RuleVerdicts tests the baseline outcome mapping
func TestOrchestrator_RuleVerdicts(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	orch := New(st, nil, Config{}, nil, nil, nil)

	tests := []struct {
		name        string
		input       map[string]any
		wantFinal   string
		wantRule    string
		wantOutcome rules.Outcome
	}{
		{
			name:        "high score denied",
			input:       input(map[string]any{}, map[string]any{"score": 90}),
			wantFinal:   FinalDeny,
			wantRule:    "block-high-risk",
			wantOutcome: rules.OutcomeSafeDeny,
		},
		{
			name:        "dev environment allowed",
			input:       input(map[string]any{"environment": "dev", "region": "us"}, map[string]any{"score": 10}),
			wantFinal:   FinalAllow,
			wantRule:    "allow-dev",
			wantOutcome: rules.OutcomeSafeAllow,
		},
		{
			name:        "missing region flagged for review",
			input:       input(map[string]any{"environment": "prod"}, map[string]any{"score": 10}),
			wantFinal:   FinalReview,
			wantRule:    "flag-unknown-region",
			wantOutcome: rules.OutcomeGreyZone,
		},
		{
			name:        "no match falls to default",
			input:       input(map[string]any{"environment": "prod", "region": "us"}, map[string]any{"score": 10}),
			wantFinal:   FinalReview,
			wantRule:    "",
			wantOutcome: rules.OutcomeGreyZone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := orch.Decide(context.Background(), tt.input)

			if resp.Decision.Final != tt.wantFinal {
				t.Errorf("Expected final %q, got %q", tt.wantFinal, resp.Decision.Final)
			}
			if resp.Decision.Source != SourceRuleEngine {
				t.Errorf("Expected source RULE_ENGINE, got %q", resp.Decision.Source)
			}
			if resp.RuleEvaluation.Outcome != tt.wantOutcome {
				t.Errorf("Expected outcome %q, got %q", tt.wantOutcome, resp.RuleEvaluation.Outcome)
			}
			if tt.wantRule == "" {
				if resp.RuleEvaluation.MatchedRule != nil {
					t.Errorf("Expected no matched rule, got %+v", resp.RuleEvaluation.MatchedRule)
				}
			} else if resp.RuleEvaluation.MatchedRule == nil || resp.RuleEvaluation.MatchedRule.ID != tt.wantRule {
				t.Errorf("Expected matched rule %q, got %+v", tt.wantRule, resp.RuleEvaluation.MatchedRule)
			}
			if resp.Decision.Confidence != nil {
				t.Error("Expected no confidence for rule verdicts")
			}
			if resp.Meta.RequestID == "" {
				t.Error("Expected non-empty request id")
			}
		})
	}
}

// TestOrchestrator_FirstMatchWins tests that evaluation stops at the first match
func TestOrchestrator_FirstMatchWins(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	orch := New(st, nil, Config{}, nil, nil, nil)

	// Matches both block-high-risk and allow-dev; high priority wins.
	resp := orch.Decide(context.Background(),
		input(map[string]any{"environment": "dev", "region": "us"}, map[string]any{"score": 95}))

	if resp.Decision.Final != FinalDeny {
		t.Errorf("Expected first match to win with DENY, got %q", resp.Decision.Final)
	}
	if len(resp.RuleEvaluation.EvaluationPath) != 1 {
		t.Errorf("Expected evaluation to stop after first match, path %v",
			resp.RuleEvaluation.EvaluationPath)
	}
}

// TestOrchestrator_InvalidInput tests the validation short-circuit
func TestOrchestrator_InvalidInput(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	capture := &captureAudit{}
	orch := New(st, nil, Config{}, nil, capture, nil)

	tests := []struct {
		name  string
		input map[string]any
	}{
		{name: "nil input", input: nil},
		{name: "missing request", input: map[string]any{"signals": map[string]any{}}},
		{name: "missing signals", input: map[string]any{"request": map[string]any{}}},
		{name: "request not an object", input: map[string]any{"request": "x", "signals": map[string]any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := orch.Decide(context.Background(), tt.input)

			if resp.Decision.Final != FinalReview {
				t.Errorf("Expected default REVIEW for invalid input, got %q", resp.Decision.Final)
			}
			if resp.Decision.Source != SourceRuleEngine {
				t.Errorf("Expected source RULE_ENGINE, got %q", resp.Decision.Source)
			}
			if resp.Error != nil {
				t.Errorf("Validation failure must not be a system error, got %+v", resp.Error)
			}
			path := resp.RuleEvaluation.EvaluationPath
			if len(path) != 1 || path[0].RuleID != MarkerInvalidInput {
				t.Errorf("Expected INVALID_INPUT marker in path, got %v", path)
			}
		})
	}

	if capture.last(t).RuleOutcome != string(rules.OutcomeGreyZone) {
		t.Errorf("Expected grey-zone outcome recorded, got %q", capture.last(t).RuleOutcome)
	}
}

// TestOrchestrator_Arbitration tests that an analyzed insight supersedes the
// rule verdict
func TestOrchestrator_Arbitration(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	arb := &stubArbiter{
		enabled: true,
		insight: arbiter.Insight{
			Analyzed:       true,
			Recommendation: arbiter.RecommendAllow,
			Confidence:     0.87,
			Reasoning:      "routine dev traffic",
		},
	}
	orch := New(st, arb, Config{ArbitrationEnabled: true}, nil, nil, nil)

	// Grey-zone input: missing region.
	resp := orch.Decide(context.Background(),
		input(map[string]any{"environment": "prod"}, map[string]any{"score": 10}))

	if resp.Decision.Final != FinalAllow {
		t.Errorf("Expected arbiter ALLOW to supersede, got %q", resp.Decision.Final)
	}
	if resp.Decision.Source != SourceAIAnalysis {
		t.Errorf("Expected source AI_ANALYSIS, got %q", resp.Decision.Source)
	}
	if resp.Decision.Confidence == nil || *resp.Decision.Confidence != 0.87 {
		t.Errorf("Expected confidence 0.87, got %v", resp.Decision.Confidence)
	}
	if resp.AIAnalysis == nil || !resp.AIAnalysis.Analyzed {
		t.Error("Expected analyzed insight in response")
	}
	if arb.callCount() != 1 {
		t.Errorf("Expected 1 arbiter call, got %d", arb.callCount())
	}
}

// TestOrchestrator_ArbitrationGating tests the three arbitration gate
// conditions
func TestOrchestrator_ArbitrationGating(t *testing.T) {
	greyInput := input(map[string]any{"environment": "prod"}, map[string]any{"score": 10})
	safeInput := input(map[string]any{}, map[string]any{"score": 99})

	tests := []struct {
		name        string
		cfg         Config
		enabled     bool
		input       map[string]any
		wantCalls   int
		wantInsight bool
	}{
		{
			name:        "mode disabled",
			cfg:         Config{ArbitrationEnabled: false},
			enabled:     true,
			input:       greyInput,
			wantCalls:   0,
			wantInsight: false,
		},
		{
			name:        "arbiter disabled",
			cfg:         Config{ArbitrationEnabled: true},
			enabled:     false,
			input:       greyInput,
			wantCalls:   0,
			wantInsight: false,
		},
		{
			name:        "non-grey outcome",
			cfg:         Config{ArbitrationEnabled: true},
			enabled:     true,
			input:       safeInput,
			wantCalls:   0,
			wantInsight: false,
		},
		{
			name:        "all gates open",
			cfg:         Config{ArbitrationEnabled: true},
			enabled:     true,
			input:       greyInput,
			wantCalls:   1,
			wantInsight: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t, testRulesDoc)
			arb := &stubArbiter{enabled: tt.enabled, insight: arbiter.NotAnalyzed("")}
			orch := New(st, arb, tt.cfg, nil, nil, nil)

			resp := orch.Decide(context.Background(), tt.input)

			if arb.callCount() != tt.wantCalls {
				t.Errorf("Expected %d arbiter calls, got %d", tt.wantCalls, arb.callCount())
			}
			if tt.wantInsight != (resp.AIAnalysis != nil) {
				t.Errorf("Expected insight presence %v, got %v", tt.wantInsight, resp.AIAnalysis)
			}
		})
	}
}

// TestOrchestrator_GracefulDegradation tests that a failing arbiter leaves
// the rule verdict intact
func TestOrchestrator_GracefulDegradation(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	arb := &stubArbiter{enabled: true, insight: arbiter.NotAnalyzed("backend unavailable")}
	orch := New(st, arb, Config{ArbitrationEnabled: true}, nil, nil, nil)

	for i := 0; i < 5; i++ {
		resp := orch.Decide(context.Background(),
			input(map[string]any{"environment": "prod"}, map[string]any{"score": 10}))

		if resp.Decision.Final != FinalReview {
			t.Fatalf("Expected REVIEW when arbiter fails, got %q", resp.Decision.Final)
		}
		if resp.Decision.Source != SourceRuleEngine {
			t.Fatalf("Expected source RULE_ENGINE when arbiter fails, got %q", resp.Decision.Source)
		}
		if resp.AIAnalysis == nil || resp.AIAnalysis.Analyzed {
			t.Fatal("Expected not-analyzed insight in response")
		}
		if resp.AIAnalysis.Err != "backend unavailable" {
			t.Fatalf("Expected failure reason surfaced, got %q", resp.AIAnalysis.Err)
		}
	}
}

// TestOrchestrator_ArbiterTimeout tests that a slow arbiter is cut off by
// the configured budget
func TestOrchestrator_ArbiterTimeout(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	arb := &slowArbiter{delay: 2 * time.Second}
	orch := New(st, arb, Config{ArbitrationEnabled: true, ArbiterTimeout: 50 * time.Millisecond}, nil, nil, nil)

	start := time.Now()
	resp := orch.Decide(context.Background(),
		input(map[string]any{"environment": "prod"}, map[string]any{"score": 10}))

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected timeout to bound arbitration, took %v", elapsed)
	}
	if resp.Decision.Final != FinalReview || resp.Decision.Source != SourceRuleEngine {
		t.Errorf("Expected rule verdict after timeout, got %+v", resp.Decision)
	}
}

// slowArbiter honors context cancellation after a delay.
type slowArbiter struct {
	delay time.Duration
}

func (s *slowArbiter) Analyze(ctx context.Context, input map[string]any, result rules.EvaluationResult) arbiter.Insight {
	select {
	case <-time.After(s.delay):
		return arbiter.Insight{Analyzed: true, Recommendation: arbiter.RecommendAllow}
	case <-ctx.Done():
		return arbiter.NotAnalyzed(ctx.Err().Error())
	}
}

func (s *slowArbiter) IsEnabled() bool { return true }

func (s *slowArbiter) Describe() arbiter.Description {
	return arbiter.Description{Provider: "slow", Model: "slow-1"}
}

// TestOrchestrator_AuditTrail tests the audit record contents
func TestOrchestrator_AuditTrail(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	capture := &captureAudit{}
	arb := &stubArbiter{
		enabled: true,
		insight: arbiter.Insight{
			Analyzed:       true,
			Recommendation: arbiter.RecommendDeny,
			Confidence:     0.91,
			Reasoning:      "anomalous signal pattern",
		},
	}
	orch := New(st, arb, Config{ArbitrationEnabled: true, Version: "2.1"}, nil, capture, nil)

	resp := orch.Decide(context.Background(),
		input(map[string]any{"environment": "prod"}, map[string]any{"score": 10}))

	record := capture.last(t)
	if record.RequestID != resp.Meta.RequestID {
		t.Errorf("Expected matching request id, got %q vs %q", record.RequestID, resp.Meta.RequestID)
	}
	if record.Final != FinalDeny || record.Source != SourceAIAnalysis {
		t.Errorf("Unexpected recorded verdict: %+v", record)
	}
	if record.MatchedRuleID != "flag-unknown-region" {
		t.Errorf("Expected matched rule recorded, got %q", record.MatchedRuleID)
	}
	if !record.AIAnalyzed || record.AIRecommendation != "DENY" || record.AIConfidence != 0.91 {
		t.Errorf("Unexpected recorded insight: %+v", record)
	}
	if !strings.Contains(record.Input, `"environment":"prod"`) {
		t.Errorf("Expected input serialized in record, got %q", record.Input)
	}
	if !strings.Contains(record.EvaluationPath, "flag-unknown-region") {
		t.Errorf("Expected evaluation path serialized, got %q", record.EvaluationPath)
	}
	if resp.Meta.Version != "2.1" {
		t.Errorf("Expected version 2.1 in meta, got %q", resp.Meta.Version)
	}
}

// TestOrchestrator_EmptyStore tests behavior before any rules are loaded
func TestOrchestrator_EmptyStore(t *testing.T) {
	st := store.New(store.NewMemorySource([]byte("rules: []")), nil)
	orch := New(st, nil, Config{}, nil, nil, nil)

	resp := orch.Decide(context.Background(), input(map[string]any{}, map[string]any{}))

	if resp.Decision.Final != FinalReview {
		t.Errorf("Expected grey-zone default pre-load, got %q", resp.Decision.Final)
	}
	if resp.Error != nil {
		t.Errorf("Expected no error pre-load, got %+v", resp.Error)
	}
}

// TestOrchestrator_ReloadAtomicity tests that concurrent decisions never see
// a half-updated rule set
func TestOrchestrator_ReloadAtomicity(t *testing.T) {
	docAllow := `
rules:
  - id: only
    condition: {field: signals.score, op: exists, value: true}
    outcome: SAFE_ALLOW
defaults:
  no_match_outcome: SAFE_DENY
`
	docDeny := `
rules:
  - id: only
    condition: {field: signals.score, op: exists, value: true}
    outcome: SAFE_DENY
defaults:
  no_match_outcome: SAFE_DENY
`
	source := store.NewMemorySource([]byte(docAllow))
	st := store.New(source, nil)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	orch := New(st, nil, Config{}, nil, nil, nil)

	in := input(map[string]any{}, map[string]any{"score": 1})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				resp := orch.Decide(context.Background(), in)
				if resp.Decision.Final != FinalAllow && resp.Decision.Final != FinalDeny {
					t.Errorf("Unexpected final during reload churn: %q", resp.Decision.Final)
					return
				}
			}
		}()
	}

	for i := 0; i < 25; i++ {
		if i%2 == 0 {
			source.Set([]byte(docDeny))
		} else {
			source.Set([]byte(docAllow))
		}
		if err := orch.ReloadRules(context.Background()); err != nil {
			t.Fatalf("ReloadRules failed: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

// TestOrchestrator_Idempotence tests that identical inputs produce identical
// verdicts against a fixed snapshot
func TestOrchestrator_Idempotence(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	orch := New(st, nil, Config{}, nil, nil, nil)

	in := input(map[string]any{"environment": "dev", "region": "us"}, map[string]any{"score": 10})

	first := orch.Decide(context.Background(), in)
	for i := 0; i < 10; i++ {
		resp := orch.Decide(context.Background(), in)
		if resp.Decision.Final != first.Decision.Final ||
			resp.RuleEvaluation.MatchedRule.ID != first.RuleEvaluation.MatchedRule.ID {
			t.Fatalf("Expected identical verdicts, got %+v vs %+v", resp.Decision, first.Decision)
		}
	}
}

// TestOrchestrator_MetricsRecording tests the sink calls per decision
func TestOrchestrator_MetricsRecording(t *testing.T) {
	st := newTestStore(t, testRulesDoc)
	sink := &captureMetrics{}
	orch := New(st, nil, Config{}, sink, nil, nil)

	orch.Decide(context.Background(), input(map[string]any{}, map[string]any{"score": 90}))
	orch.Decide(context.Background(),
		input(map[string]any{"environment": "prod", "region": "us"}, map[string]any{"score": 10}))

	if sink.decisions != 2 {
		t.Errorf("Expected 2 decisions recorded, got %d", sink.decisions)
	}
	if sink.matches != 1 {
		t.Errorf("Expected 1 rule match recorded, got %d", sink.matches)
	}
	if sink.noMatches != 1 {
		t.Errorf("Expected 1 no-match recorded, got %d", sink.noMatches)
	}
}

// captureMetrics counts sink calls.
type captureMetrics struct {
	mu           sync.Mutex
	decisions    int
	matches      int
	noMatches    int
	arbitrations int
	errors       int
}

func (c *captureMetrics) RecordDecision(string, string, time.Duration) {
	c.mu.Lock()
	c.decisions++
	c.mu.Unlock()
}

func (c *captureMetrics) RecordRuleMatch(string, string) {
	c.mu.Lock()
	c.matches++
	c.mu.Unlock()
}

func (c *captureMetrics) RecordNoMatch() {
	c.mu.Lock()
	c.noMatches++
	c.mu.Unlock()
}

func (c *captureMetrics) RecordArbitration(bool, time.Duration) {
	c.mu.Lock()
	c.arbitrations++
	c.mu.Unlock()
}

func (c *captureMetrics) RecordError(string) {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}
