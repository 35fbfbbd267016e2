package rules

import (
	"io"
	"log/slog"
	"testing"
)

func testMatcher() *Matcher {
	return NewMatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testInput() map[string]any {
	return map[string]any{
		"request": map[string]any{
			"action":      "deploy",
			"model":       "fraud-scorer",
			"environment": "prod",
		},
		"signals": map[string]any{
			"score":    float64(90),
			"approved": false,
		},
	}
}

func leaf(field, op string, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

func TestMatcher_Leaf(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{name: "eq match", cond: leaf("request.action", "eq", "deploy"), want: true},
		{name: "gte on signal", cond: leaf("signals.score", "gte", 80), want: true},
		{name: "missing field eq", cond: leaf("signals.absent", "eq", "x"), want: false},
		{name: "missing field exists false", cond: leaf("signals.absent", "exists", false), want: true},
		{name: "present field exists true", cond: leaf("signals.score", "exists", true), want: true},
		{name: "unknown operator", cond: leaf("signals.score", "between", 5), want: false},
		{name: "invalid regex never matches", cond: leaf("request.model", "regex", "[bad"), want: false},
	}

	m := testMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(&tt.cond, testInput()); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatcher_Compound(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{
			name: "and all match",
			cond: Condition{Operator: "AND", Operands: []Condition{
				leaf("request.action", "eq", "deploy"),
				leaf("signals.score", "gte", 80),
			}},
			want: true,
		},
		{
			name: "and one fails",
			cond: Condition{Operator: "AND", Operands: []Condition{
				leaf("request.action", "eq", "deploy"),
				leaf("signals.score", "lt", 10),
			}},
			want: false,
		},
		{
			name: "or one matches",
			cond: Condition{Operator: "OR", Operands: []Condition{
				leaf("request.action", "eq", "delete"),
				leaf("signals.score", "gte", 80),
			}},
			want: true,
		},
		{
			name: "or none match",
			cond: Condition{Operator: "OR", Operands: []Condition{
				leaf("request.action", "eq", "delete"),
				leaf("signals.score", "lt", 10),
			}},
			want: false,
		},
		{
			name: "lowercase operator accepted",
			cond: Condition{Operator: "and", Operands: []Condition{
				leaf("request.action", "eq", "deploy"),
			}},
			want: true,
		},
		{
			name: "unknown compound operator",
			cond: Condition{Operator: "XOR", Operands: []Condition{
				leaf("request.action", "eq", "deploy"),
			}},
			want: false,
		},
		{
			name: "nested compound",
			cond: Condition{Operator: "AND", Operands: []Condition{
				leaf("request.environment", "eq", "prod"),
				{Operator: "OR", Operands: []Condition{
					leaf("signals.approved", "eq", true),
					leaf("signals.score", "gte", 80),
				}},
			}},
			want: true,
		},
	}

	m := testMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Match(&tt.cond, testInput()); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Empty compounds evaluate to the boolean identity: AND with no operands is
// true, OR with no operands is false.
func TestMatcher_EmptyCompoundIdentity(t *testing.T) {
	m := testMatcher()

	and := Condition{Operator: "AND"}
	if !m.Match(&and, testInput()) {
		t.Error("empty AND = false, want true (AND identity)")
	}

	or := Condition{Operator: "OR"}
	if m.Match(&or, testInput()) {
		t.Error("empty OR = true, want false (OR identity)")
	}
}

func TestMatcher_NilCondition(t *testing.T) {
	if testMatcher().Match(nil, testInput()) {
		t.Error("nil condition matched, want no-match")
	}
}

func TestMatcher_DepthLimit(t *testing.T) {
	// Build a chain of nested ANDs deeper than the recursion limit ending in
	// a condition that would match.
	cond := leaf("request.action", "eq", "deploy")
	for i := 0; i < maxConditionDepth+5; i++ {
		cond = Condition{Operator: "AND", Operands: []Condition{cond}}
	}

	if testMatcher().Match(&cond, testInput()) {
		t.Error("over-deep condition matched, want no-match")
	}

	// A tree at a modest depth still evaluates normally.
	shallow := leaf("request.action", "eq", "deploy")
	for i := 0; i < 5; i++ {
		shallow = Condition{Operator: "AND", Operands: []Condition{shallow}}
	}
	if !testMatcher().Match(&shallow, testInput()) {
		t.Error("shallow nested condition did not match")
	}
}

func TestMatcher_Evaluate_FirstMatchWins(t *testing.T) {
	high := leaf("signals.score", "gte", 80)
	low := leaf("signals.score", "gte", 10)
	ruleList := []Rule{
		{ID: "r-high", Name: "High risk", Priority: 10, Condition: &high, Outcome: OutcomeSafeDeny},
		{ID: "r-low", Name: "Low bar", Priority: 5, Condition: &low, Outcome: OutcomeSafeAllow},
	}

	result := testMatcher().Evaluate(ruleList, OutcomeGreyZone, testInput())

	if result.Outcome != OutcomeSafeDeny {
		t.Errorf("Outcome = %q, want %q", result.Outcome, OutcomeSafeDeny)
	}
	if result.MatchedRule == nil || result.MatchedRule.ID != "r-high" {
		t.Fatalf("MatchedRule = %+v, want r-high", result.MatchedRule)
	}
	if len(result.EvaluationPath) != 1 {
		t.Errorf("EvaluationPath has %d attempts, want 1 (no rules after first match)", len(result.EvaluationPath))
	}
}

func TestMatcher_Evaluate_NoMatchUsesDefault(t *testing.T) {
	c1 := leaf("signals.score", "gte", 1000)
	c2 := leaf("request.action", "eq", "delete")
	ruleList := []Rule{
		{ID: "r1", Condition: &c1, Outcome: OutcomeSafeDeny},
		{ID: "r2", Condition: &c2, Outcome: OutcomeSafeDeny},
	}

	result := testMatcher().Evaluate(ruleList, OutcomeGreyZone, testInput())

	if result.Outcome != OutcomeGreyZone {
		t.Errorf("Outcome = %q, want default %q", result.Outcome, OutcomeGreyZone)
	}
	if result.MatchedRule != nil {
		t.Errorf("MatchedRule = %+v, want nil", result.MatchedRule)
	}
	if len(result.EvaluationPath) != 2 {
		t.Errorf("EvaluationPath has %d attempts, want 2", len(result.EvaluationPath))
	}
	for _, attempt := range result.EvaluationPath {
		if attempt.Matched {
			t.Errorf("attempt %q marked matched, want unmatched", attempt.RuleID)
		}
	}
}

func TestMatcher_Evaluate_EmptyRuleList(t *testing.T) {
	result := testMatcher().Evaluate(nil, OutcomeSafeAllow, testInput())
	if result.Outcome != OutcomeSafeAllow {
		t.Errorf("Outcome = %q, want %q", result.Outcome, OutcomeSafeAllow)
	}
	if len(result.EvaluationPath) != 0 {
		t.Errorf("EvaluationPath has %d attempts, want 0", len(result.EvaluationPath))
	}
}

func TestCondition_Validate(t *testing.T) {
	enabled := leaf("a.b", "eq", 1)
	tests := []struct {
		name    string
		cond    Condition
		wantErr bool
	}{
		{name: "valid leaf", cond: leaf("a.b", "eq", 1)},
		{name: "valid compound", cond: Condition{Operator: "AND", Operands: []Condition{enabled}}},
		{name: "valid empty compound", cond: Condition{Operator: "OR"}},
		{name: "neither shape", cond: Condition{}, wantErr: true},
		{name: "mixed shapes", cond: Condition{Field: "a", Op: "eq", Operator: "AND"}, wantErr: true},
		{name: "leaf missing op", cond: Condition{Field: "a.b"}, wantErr: true},
		{name: "leaf unknown op", cond: Condition{Field: "a.b", Op: "between"}, wantErr: true},
		{name: "compound unknown operator", cond: Condition{Operator: "XOR", Operands: []Condition{enabled}}, wantErr: true},
		{
			name: "invalid nested operand",
			cond: Condition{Operator: "AND", Operands: []Condition{
				{Field: "a.b", Op: "nope"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCondition_Depth(t *testing.T) {
	l := leaf("a", "eq", 1)
	if got := l.Depth(); got != 1 {
		t.Errorf("leaf depth = %d, want 1", got)
	}
	nested := Condition{Operator: "AND", Operands: []Condition{
		{Operator: "OR", Operands: []Condition{l}},
		l,
	}}
	if got := nested.Depth(); got != 3 {
		t.Errorf("nested depth = %d, want 3", got)
	}
}
