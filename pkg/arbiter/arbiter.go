package arbiter

import (
	"context"
	"strings"

	"github.com/i-OmSharma/MLOps-decision/pkg/rules"
)

// Recommendation is the arbiter's verdict for an analyzed input.
type Recommendation string

const (
	RecommendAllow  Recommendation = "ALLOW"
	RecommendDeny   Recommendation = "DENY"
	RecommendReview Recommendation = "REVIEW"
)

// NormalizeRecommendation maps a model-produced token onto a known
// recommendation. The empty result means the token was not recognized.
func NormalizeRecommendation(s string) Recommendation {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALLOW", "APPROVE", "PERMIT":
		return RecommendAllow
	case "DENY", "BLOCK", "REJECT":
		return RecommendDeny
	case "REVIEW", "ESCALATE":
		return RecommendReview
	}
	return ""
}

// Insight is the arbiter's report for one request. When Analyzed is false
// the recommendation fields are empty and Err, if non-empty, explains why
// analysis did not happen. A not-analyzed insight with an empty Err is the
// normal "no opinion" state, not a failure.
type Insight struct {
	Analyzed          bool           `json:"analyzed"`
	Recommendation    Recommendation `json:"recommendation,omitempty"`
	Confidence        float64        `json:"confidence,omitempty"`
	Reasoning         string         `json:"reasoning,omitempty"`
	RiskFactors       []string       `json:"risk_factors,omitempty"`
	MitigatingFactors []string       `json:"mitigating_factors,omitempty"`
	AnalysisTimeMs    float64        `json:"analysis_time_ms"`
	Err               string         `json:"error,omitempty"`
}

// NotAnalyzed builds the no-opinion insight, optionally with a reason.
func NotAnalyzed(reason string) Insight {
	return Insight{Analyzed: false, Err: reason}
}

// Description identifies an arbiter backend for status surfaces.
type Description struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Arbiter is the secondary-opinion capability consumed by the decision
// orchestrator.
type Arbiter interface {
	// Analyze produces an insight for the input and rule result. It must
	// respect ctx's deadline and must never return an error: failures are
	// reported inside the insight.
	Analyze(ctx context.Context, input map[string]any, ruleResult rules.EvaluationResult) Insight

	// IsEnabled reports whether the arbiter is configured and enabled.
	IsEnabled() bool

	// Describe identifies the backing provider and model.
	Describe() Description
}

// Disabled is the arbiter used when no backend is configured. It never
// analyzes.
type Disabled struct{}

// Analyze reports the no-opinion state.
func (Disabled) Analyze(context.Context, map[string]any, rules.EvaluationResult) Insight {
	return NotAnalyzed("")
}

// IsEnabled is always false.
func (Disabled) IsEnabled() bool { return false }

// Describe identifies the disabled arbiter.
func (Disabled) Describe() Description {
	return Description{Provider: "none", Model: ""}
}
