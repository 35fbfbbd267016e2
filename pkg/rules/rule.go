package rules

// Outcome is the rule-engine-level verdict a matching rule produces, before
// any arbitration. It is a closed enum; anything else fails validation.
type Outcome string

const (
	// OutcomeSafeAllow means the rule set confidently allows the request.
	OutcomeSafeAllow Outcome = "SAFE_ALLOW"

	// OutcomeSafeDeny means the rule set confidently denies the request.
	OutcomeSafeDeny Outcome = "SAFE_DENY"

	// OutcomeGreyZone means the rule set could not confidently decide.
	// Grey-zone outcomes are the only ones eligible for arbitration.
	OutcomeGreyZone Outcome = "GREY_ZONE"
)

// ValidOutcome reports whether o is one of the three known outcomes.
func ValidOutcome(o Outcome) bool {
	switch o {
	case OutcomeSafeAllow, OutcomeSafeDeny, OutcomeGreyZone:
		return true
	}
	return false
}

// Rule is a single prioritized decision rule.
type Rule struct {
	// ID uniquely identifies the rule. Required.
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable display name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Priority orders rules within the active set, highest first.
	// Equal priorities preserve source order. Default 0.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// Condition is the root of the rule's condition tree. Required.
	Condition *Condition `yaml:"condition" json:"condition"`

	// Outcome is the verdict produced when the condition matches. Required.
	Outcome Outcome `yaml:"outcome" json:"outcome"`

	// Enabled defaults to true; disabled rules are excluded at load time.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports whether the rule is enabled. A nil Enabled field means
// enabled.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// MatchedRule identifies the rule whose match ended evaluation.
type MatchedRule struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Priority int    `json:"priority"`
}

// EvaluationAttempt records one rule considered during evaluation, in order.
// The full sequence forms the evaluation path used for audit and debugging.
type EvaluationAttempt struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name,omitempty"`
	Matched  bool   `json:"matched"`
}

// EvaluationResult is the outcome of walking a rule set against one input.
type EvaluationResult struct {
	// Outcome is the matched rule's outcome, or the default outcome when no
	// rule matched.
	Outcome Outcome `json:"outcome"`

	// MatchedRule is nil when no rule matched.
	MatchedRule *MatchedRule `json:"matched_rule,omitempty"`

	// EvaluationPath lists every rule considered, in evaluation order.
	EvaluationPath []EvaluationAttempt `json:"evaluation_path"`

	// EvaluationTimeMs is the wall-clock evaluation time in milliseconds.
	EvaluationTimeMs float64 `json:"evaluation_time_ms"`
}
