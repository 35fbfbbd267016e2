package rules

import (
	"log/slog"
	"strings"
	"time"
)

// maxConditionDepth bounds recursion over condition trees. Configuration is
// caller-supplied, so a pathologically nested tree must not be able to grow
// the stack without limit; nodes past the limit evaluate to no-match.
const maxConditionDepth = 32

// Matcher evaluates condition trees against decision input. The zero value
// is not usable; construct with NewMatcher.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a condition matcher. A nil logger falls back to
// slog.Default.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger}
}

// Match evaluates a condition tree against the input and reports whether it
// matched. It never panics and never returns an error: a nil condition,
// an unknown operator, a missing field, an over-deep tree, or any other
// internal failure resolves to false.
func (m *Matcher) Match(condition *Condition, input map[string]any) bool {
	if condition == nil {
		return false
	}
	return m.match(condition, input, 0)
}

func (m *Matcher) match(c *Condition, input map[string]any, depth int) bool {
	if depth >= maxConditionDepth {
		m.logger.Warn("condition tree exceeds maximum depth, treating as no-match",
			"max_depth", maxConditionDepth,
		)
		return false
	}

	if c.IsCompound() {
		return m.matchCompound(c, input, depth)
	}
	return m.matchLeaf(c, input)
}

// matchCompound evaluates an AND/OR node over its ordered operands. An empty
// operand list evaluates to the boolean identity: AND is true, OR is false.
// Any other operator token never matches.
func (m *Matcher) matchCompound(c *Condition, input map[string]any, depth int) bool {
	switch strings.ToUpper(c.Operator) {
	case CompoundAnd:
		for i := range c.Operands {
			if !m.match(&c.Operands[i], input, depth+1) {
				return false
			}
		}
		return true

	case CompoundOr:
		for i := range c.Operands {
			if m.match(&c.Operands[i], input, depth+1) {
				return true
			}
		}
		return false

	default:
		m.logger.Warn("unknown compound operator, treating as no-match",
			"operator", c.Operator,
		)
		return false
	}
}

// matchLeaf resolves the leaf's field path and applies its operator.
func (m *Matcher) matchLeaf(c *Condition, input map[string]any) bool {
	fn := lookupOperator(c.Op)
	if fn == nil {
		m.logger.Warn("unknown operator, treating as no-match",
			"op", c.Op,
			"field", c.Field,
		)
		return false
	}

	actual := ResolveField(c.Field, input)
	matched := fn(actual, c.Value)

	m.logger.Debug("leaf condition evaluated",
		"field", c.Field,
		"op", c.Op,
		"missing", IsMissing(actual),
		"matched", matched,
	)

	return matched
}

// Evaluate walks an ordered rule list against the input. Rules are assumed
// to be sorted already (priority descending, source order on ties); the
// first rule whose condition matches wins and no further rules are
// evaluated. Every rule considered is appended to the evaluation path. When
// no rule matches, the result carries defaultOutcome and a nil MatchedRule.
func (m *Matcher) Evaluate(ruleList []Rule, defaultOutcome Outcome, input map[string]any) EvaluationResult {
	start := time.Now()
	result := EvaluationResult{
		Outcome:        defaultOutcome,
		EvaluationPath: make([]EvaluationAttempt, 0, len(ruleList)),
	}

	for i := range ruleList {
		r := &ruleList[i]
		matched := m.Match(r.Condition, input)
		result.EvaluationPath = append(result.EvaluationPath, EvaluationAttempt{
			RuleID:   r.ID,
			RuleName: r.Name,
			Matched:  matched,
		})
		if matched {
			result.Outcome = r.Outcome
			result.MatchedRule = &MatchedRule{
				ID:       r.ID,
				Name:     r.Name,
				Priority: r.Priority,
			}
			break
		}
	}

	result.EvaluationTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	return result
}
