package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/i-OmSharma/MLOps-decision/pkg/arbiter"
	"github.com/i-OmSharma/MLOps-decision/pkg/audit"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules/store"
)

// MetricsSink receives decision telemetry. Recording must be cheap and must
// never fail; implementations are called inline on the decision path.
type MetricsSink interface {
	RecordDecision(final, source string, duration time.Duration)
	RecordRuleMatch(ruleID, outcome string)
	RecordNoMatch()
	RecordArbitration(analyzed bool, duration time.Duration)
	RecordError(stage string)
}

// NopMetrics discards all telemetry.
type NopMetrics struct{}

func (NopMetrics) RecordDecision(string, string, time.Duration) {}
func (NopMetrics) RecordRuleMatch(string, string)               {}
func (NopMetrics) RecordNoMatch()                               {}
func (NopMetrics) RecordArbitration(bool, time.Duration)        {}
func (NopMetrics) RecordError(string)                           {}

// AuditSink receives completed decision records. Record must not block.
type AuditSink interface {
	Record(record *audit.Record)
}

// nopAudit discards records.
type nopAudit struct{}

func (nopAudit) Record(*audit.Record) {}

// Config controls the orchestration pipeline.
type Config struct {
	// ArbitrationEnabled gates the arbitration stage. When false, grey-zone
	// outcomes resolve to REVIEW without consulting the arbiter.
	ArbitrationEnabled bool

	// ArbiterTimeout bounds one arbitration call. Zero means the caller's
	// context deadline applies unmodified.
	ArbiterTimeout time.Duration

	// Version is reported in response metadata.
	Version string
}

// Orchestrator runs the decision pipeline. It is safe for concurrent use;
// each Decide call captures one immutable rule snapshot and shares nothing
// else with concurrent calls.
type Orchestrator struct {
	store   *store.Store
	matcher *rules.Matcher
	arb     arbiter.Arbiter
	metrics MetricsSink
	auditor AuditSink
	config  Config
	logger  *slog.Logger
}

// New creates an orchestrator. Nil metrics, auditor and logger fall back to
// no-op implementations.
func New(st *store.Store, arb arbiter.Arbiter, cfg Config, metrics MetricsSink, auditor AuditSink, logger *slog.Logger) *Orchestrator {
	if arb == nil {
		arb = arbiter.Disabled{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if auditor == nil {
		auditor = nopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}

	return &Orchestrator{
		store:   st,
		matcher: rules.NewMatcher(logger),
		arb:     arb,
		metrics: metrics,
		auditor: auditor,
		config:  cfg,
		logger:  logger.With("component", "decision.orchestrator"),
	}
}

// Decide runs the four-stage pipeline for one input and always returns a
// response. An unexpected fault inside the pipeline is converted into a
// final ERROR response rather than a panic.
func (o *Orchestrator) Decide(ctx context.Context, input map[string]any) (resp *Response) {
	start := time.Now()
	requestID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			o.metrics.RecordError("pipeline")
			o.logger.Error("decision pipeline fault",
				"request_id", requestID,
				"panic", r,
			)
			resp = o.systemError(fmt.Sprintf("internal fault: %v", r), requestID, start)
			o.record(resp, input)
		}
	}()

	// Stage 1: validate. A failed validation is a decision, not an error;
	// it short-circuits to the default outcome.
	snap := o.store.Snapshot()
	defaultOutcome := rules.OutcomeGreyZone
	var ruleList []rules.Rule
	if snap != nil {
		defaultOutcome = snap.DefaultOutcome()
		ruleList = snap.Rules()
	}

	var result rules.EvaluationResult
	var insight *arbiter.Insight

	if !validInput(input) {
		result = rules.EvaluationResult{
			Outcome: defaultOutcome,
			EvaluationPath: []rules.EvaluationAttempt{
				{RuleID: MarkerInvalidInput},
			},
		}
		o.logger.Warn("invalid decision input, using default outcome",
			"request_id", requestID,
			"default_outcome", defaultOutcome,
		)
	} else {
		// Stage 2: rule evaluation against the captured snapshot.
		result = o.matcher.Evaluate(ruleList, defaultOutcome, input)
		if result.MatchedRule != nil {
			o.metrics.RecordRuleMatch(result.MatchedRule.ID, string(result.Outcome))
		} else {
			o.metrics.RecordNoMatch()
		}

		// Stage 3: conditional arbitration, grey-zone only.
		if result.Outcome == rules.OutcomeGreyZone && o.config.ArbitrationEnabled && o.arb.IsEnabled() {
			insight = o.arbitrate(ctx, input, result)
		}
	}

	// Stage 4: combine.
	verdict := combine(result, insight)

	resp = &Response{
		Decision:       verdict,
		RuleEvaluation: result,
		AIAnalysis:     insight,
		Meta: Meta{
			Version:          o.config.Version,
			ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Timestamp:        time.Now().UTC(),
			RequestID:        requestID,
		},
	}

	o.metrics.RecordDecision(verdict.Final, verdict.Source, time.Since(start))
	o.record(resp, input)

	o.logger.Info("decision made",
		"request_id", requestID,
		"final", verdict.Final,
		"source", verdict.Source,
		"rule_outcome", result.Outcome,
		"processing_time_ms", resp.Meta.ProcessingTimeMs,
	)

	return resp
}

// ReloadRules re-reads the rule source and atomically swaps the active
// snapshot. In-flight decisions complete against the snapshot they captured.
func (o *Orchestrator) ReloadRules(ctx context.Context) error {
	return o.store.Reload(ctx)
}

// arbitrate calls the arbiter with the configured time budget. The boundary
// contract means it never fails; a timeout or backend failure comes back as
// a not-analyzed insight.
func (o *Orchestrator) arbitrate(ctx context.Context, input map[string]any, result rules.EvaluationResult) *arbiter.Insight {
	if o.config.ArbiterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.ArbiterTimeout)
		defer cancel()
	}

	start := time.Now()
	insight := o.arb.Analyze(ctx, input, result)
	o.metrics.RecordArbitration(insight.Analyzed, time.Since(start))

	return &insight
}

// combine maps the rule outcome to the baseline verdict and lets an analyzed
// insight supersede it.
func combine(result rules.EvaluationResult, insight *arbiter.Insight) Verdict {
	verdict := Verdict{Source: SourceRuleEngine}

	switch result.Outcome {
	case rules.OutcomeSafeAllow:
		verdict.Final = FinalAllow
	case rules.OutcomeSafeDeny:
		verdict.Final = FinalDeny
	default:
		verdict.Final = FinalReview
	}

	if insight != nil && insight.Analyzed {
		switch insight.Recommendation {
		case arbiter.RecommendAllow:
			verdict.Final = FinalAllow
		case arbiter.RecommendDeny:
			verdict.Final = FinalDeny
		default:
			verdict.Final = FinalReview
		}
		verdict.Source = SourceAIAnalysis
		confidence := insight.Confidence
		verdict.Confidence = &confidence
	}

	return verdict
}

// validInput requires a map with request and signals sub-objects.
func validInput(input map[string]any) bool {
	if input == nil {
		return false
	}
	if _, ok := input["request"].(map[string]any); !ok {
		return false
	}
	if _, ok := input["signals"].(map[string]any); !ok {
		return false
	}
	return true
}

// systemError builds the final ERROR response.
func (o *Orchestrator) systemError(message, requestID string, start time.Time) *Response {
	return &Response{
		Decision: Verdict{
			Final:  FinalError,
			Source: SourceSystemError,
		},
		Error: &ErrorDetail{Message: message},
		Meta: Meta{
			Version:          o.config.Version,
			ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Timestamp:        time.Now().UTC(),
			RequestID:        requestID,
		},
	}
}

// record forwards the completed decision to the audit sink.
func (o *Orchestrator) record(resp *Response, input map[string]any) {
	record := &audit.Record{
		ID:               uuid.NewString(),
		RequestID:        resp.Meta.RequestID,
		Timestamp:        resp.Meta.Timestamp,
		Final:            resp.Decision.Final,
		Source:           resp.Decision.Source,
		RuleOutcome:      string(resp.RuleEvaluation.Outcome),
		ProcessingTimeMs: resp.Meta.ProcessingTimeMs,
	}

	if resp.RuleEvaluation.MatchedRule != nil {
		record.MatchedRuleID = resp.RuleEvaluation.MatchedRule.ID
		record.MatchedRuleName = resp.RuleEvaluation.MatchedRule.Name
	}

	if resp.AIAnalysis != nil {
		record.AIAnalyzed = resp.AIAnalysis.Analyzed
		record.AIRecommendation = string(resp.AIAnalysis.Recommendation)
		record.AIConfidence = resp.AIAnalysis.Confidence
		record.Reasoning = resp.AIAnalysis.Reasoning
	}

	if data, err := json.Marshal(input); err == nil {
		record.Input = string(data)
	}
	if data, err := json.Marshal(resp.RuleEvaluation.EvaluationPath); err == nil {
		record.EvaluationPath = string(data)
	}

	o.auditor.Record(record)
}
