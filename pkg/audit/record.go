package audit

import (
	"context"
	"time"
)

// Record is one persisted decision.
type Record struct {
	// ID is the record identifier.
	ID string

	// RequestID ties the record to the decision response.
	RequestID string

	// Timestamp is when the decision was made.
	Timestamp time.Time

	// Final is the final verdict (ALLOW, DENY, REVIEW, ERROR).
	Final string

	// Source is what produced the verdict (RULE_ENGINE, AI_ANALYSIS,
	// SYSTEM_ERROR).
	Source string

	// RuleOutcome is the raw rule evaluation outcome.
	RuleOutcome string

	// MatchedRuleID is empty when no rule matched.
	MatchedRuleID string

	// MatchedRuleName is empty when no rule matched.
	MatchedRuleName string

	// AIAnalyzed reports whether an arbiter produced an insight.
	AIAnalyzed bool

	// AIRecommendation is the arbiter's verdict when analyzed.
	AIRecommendation string

	// AIConfidence is the arbiter's confidence when analyzed.
	AIConfidence float64

	// Reasoning is the arbiter's explanation when analyzed.
	Reasoning string

	// Input is the decision input serialized as JSON.
	Input string

	// EvaluationPath is the attempted rule ids serialized as JSON.
	EvaluationPath string

	// ProcessingTimeMs is the end-to-end decision latency.
	ProcessingTimeMs float64
}

// Query filters records. Nil time bounds and empty strings match everything.
type Query struct {
	StartTime *time.Time
	EndTime   *time.Time

	Final     string
	Source    string
	RequestID string

	Limit  int
	Offset int
}

// Storage persists and retrieves decision records.
type Storage interface {
	Store(ctx context.Context, record *Record) error
	Query(ctx context.Context, query *Query) ([]*Record, error)
	Count(ctx context.Context, query *Query) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
