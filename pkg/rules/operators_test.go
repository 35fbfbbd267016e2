package rules

import "testing"

// TestOperators_Comparison exercises the closed operator registry across
// value kinds, including the missing-field sentinel.
func TestOperators_Comparison(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		actual   any
		expected any
		want     bool
	}{
		// eq / neq
		{name: "eq strings equal", op: "eq", actual: "gpu-a100", expected: "gpu-a100", want: true},
		{name: "eq strings differ", op: "eq", actual: "gpu-a100", expected: "gpu-h100", want: false},
		{name: "eq int vs float64", op: "eq", actual: 80, expected: float64(80), want: true},
		{name: "eq number vs string", op: "eq", actual: 80, expected: "80", want: false},
		{name: "eq nil vs nil", op: "eq", actual: nil, expected: nil, want: true},
		{name: "eq nil vs value", op: "eq", actual: nil, expected: "x", want: false},
		{name: "eq missing vs value", op: "eq", actual: Missing, expected: "x", want: false},
		{name: "eq missing vs nil", op: "eq", actual: Missing, expected: nil, want: false},
		{name: "neq strings differ", op: "neq", actual: "a", expected: "b", want: true},
		{name: "neq missing vs value", op: "neq", actual: Missing, expected: "x", want: true},

		// ordering
		{name: "gt numbers", op: "gt", actual: 90, expected: 80, want: true},
		{name: "gt equal numbers", op: "gt", actual: 80, expected: 80, want: false},
		{name: "gte equal numbers", op: "gte", actual: float64(80), expected: 80, want: true},
		{name: "lt numbers", op: "lt", actual: 10, expected: 80, want: true},
		{name: "lte above bound", op: "lte", actual: 81, expected: 80, want: false},
		{name: "gt strings lexicographic", op: "gt", actual: "staging", expected: "prod", want: true},
		{name: "lt strings lexicographic", op: "lt", actual: "alpha", expected: "beta", want: true},
		{name: "gt number vs string", op: "gt", actual: 90, expected: "80", want: false},
		{name: "gt string vs number", op: "gt", actual: "90", expected: 80, want: false},
		{name: "gt missing", op: "gt", actual: Missing, expected: 80, want: false},
		{name: "gt nil", op: "gt", actual: nil, expected: 80, want: false},

		// in / nin
		{name: "in member", op: "in", actual: "prod", expected: []any{"prod", "staging"}, want: true},
		{name: "in non-member", op: "in", actual: "dev", expected: []any{"prod", "staging"}, want: false},
		{name: "in numeric coercion", op: "in", actual: 3, expected: []any{float64(1), float64(3)}, want: true},
		{name: "in non-sequence operand", op: "in", actual: "prod", expected: "prod", want: false},
		{name: "in missing", op: "in", actual: Missing, expected: []any{"prod"}, want: false},
		{name: "nin non-member", op: "nin", actual: "dev", expected: []any{"prod", "staging"}, want: true},
		{name: "nin member", op: "nin", actual: "prod", expected: []any{"prod"}, want: false},
		{name: "nin non-sequence operand", op: "nin", actual: "dev", expected: 5, want: false},
		{name: "nin missing", op: "nin", actual: Missing, expected: []any{"prod"}, want: true},

		// exists
		{name: "exists true with value", op: "exists", actual: "x", expected: true, want: true},
		{name: "exists true with nil", op: "exists", actual: nil, expected: true, want: false},
		{name: "exists true with missing", op: "exists", actual: Missing, expected: true, want: false},
		{name: "exists false with missing", op: "exists", actual: Missing, expected: false, want: true},
		{name: "exists false with nil", op: "exists", actual: nil, expected: false, want: true},
		{name: "exists false with value", op: "exists", actual: 0, expected: false, want: false},
		{name: "exists non-boolean operand", op: "exists", actual: "x", expected: "yes", want: false},

		// regex
		{name: "regex match", op: "regex", actual: "model-v12", expected: `^model-v\d+$`, want: true},
		{name: "regex no match", op: "regex", actual: "model-vX", expected: `^model-v\d+$`, want: false},
		{name: "regex coerces number", op: "regex", actual: 1234, expected: `^\d+$`, want: true},
		{name: "regex invalid pattern", op: "regex", actual: "anything", expected: `[unclosed`, want: false},
		{name: "regex non-string pattern", op: "regex", actual: "anything", expected: 7, want: false},
		{name: "regex missing", op: "regex", actual: Missing, expected: `.*`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := lookupOperator(tt.op)
			if fn == nil {
				t.Fatalf("operator %q not registered", tt.op)
			}
			if got := fn(tt.actual, tt.expected); got != tt.want {
				t.Errorf("%s(%v, %v) = %v, want %v", tt.op, tt.actual, tt.expected, got, tt.want)
			}
		})
	}
}

func TestOperatorExists(t *testing.T) {
	for _, op := range []string{"eq", "neq", "gt", "gte", "lt", "lte", "in", "nin", "exists", "regex"} {
		if !OperatorExists(op) {
			t.Errorf("OperatorExists(%q) = false, want true", op)
		}
	}
	if OperatorExists("between") {
		t.Error("OperatorExists(\"between\") = true, want false")
	}
}
