package decision

import (
	"time"

	"github.com/i-OmSharma/MLOps-decision/pkg/arbiter"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules"
)

// Final verdict values. Every decision resolves to exactly one of these.
const (
	FinalAllow  = "ALLOW"
	FinalDeny   = "DENY"
	FinalReview = "REVIEW"
	FinalError  = "ERROR"
)

// Source values identify what produced the final verdict.
const (
	SourceRuleEngine  = "RULE_ENGINE"
	SourceAIAnalysis  = "AI_ANALYSIS"
	SourceSystemError = "SYSTEM_ERROR"
)

// MarkerInvalidInput appears in the evaluation path when input validation
// failed and the decision short-circuited to the default outcome.
const MarkerInvalidInput = "INVALID_INPUT"

// Verdict is the final decision for one request.
type Verdict struct {
	Final string `json:"final"`

	Source string `json:"source"`

	// Confidence is present only when the verdict came from an arbiter.
	Confidence *float64 `json:"confidence,omitempty"`
}

// ErrorDetail surfaces a system fault message in the response.
type ErrorDetail struct {
	Message string `json:"message"`
}

// Meta carries per-request bookkeeping.
type Meta struct {
	Version          string    `json:"version"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
}

// Response is the complete output of one Decide call.
type Response struct {
	Decision Verdict `json:"decision"`

	RuleEvaluation rules.EvaluationResult `json:"rule_evaluation"`

	// AIAnalysis is nil when arbitration did not run.
	AIAnalysis *arbiter.Insight `json:"ai_analysis"`

	Error *ErrorDetail `json:"error,omitempty"`

	Meta Meta `json:"meta"`
}
