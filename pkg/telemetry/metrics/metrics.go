// Package metrics implements the service's Prometheus instrumentation.
// It is the concrete metrics sink consumed by the decision orchestrator and
// the rule store; recording is fire-and-forget and never affects a decision.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks decision-service metrics.
//
// Metrics:
//   - decision_decisions_total: decisions by final verdict and source
//   - decision_duration_seconds: end-to-end decision latency
//   - decision_rule_matches_total: matches by rule and outcome
//   - decision_rule_no_match_total: evaluations where no rule matched
//   - decision_arbitrations_total: arbitration calls by result
//   - decision_arbitration_duration_seconds: arbitration latency
//   - decision_rule_reloads_total: rule reloads by status
//   - decision_errors_total: system errors by pipeline stage
type Collector struct {
	decisionsTotal      *prometheus.CounterVec
	decisionDuration    *prometheus.HistogramVec
	ruleMatchesTotal    *prometheus.CounterVec
	noMatchTotal        prometheus.Counter
	arbitrationsTotal   *prometheus.CounterVec
	arbitrationDuration prometheus.Histogram
	reloadsTotal        *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates and registers the decision metrics on a fresh
// registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "decision"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total decisions by final verdict and source",
			},
			[]string{"final", "source"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "End-to-end decision latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3.2s
			},
			[]string{"source"},
		),

		ruleMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_matches_total",
				Help:      "Rule matches by rule id and outcome",
			},
			[]string{"rule_id", "outcome"},
		),

		noMatchTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_no_match_total",
				Help:      "Evaluations where no rule matched",
			},
		),

		arbitrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "arbitrations_total",
				Help:      "Arbitration calls by result (analyzed, declined)",
			},
			[]string{"result"},
		),

		arbitrationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "arbitration_duration_seconds",
				Help:      "Arbitration call latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_reloads_total",
				Help:      "Rule set reloads by status (success, failure)",
			},
			[]string{"status"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "System errors by pipeline stage",
			},
			[]string{"stage"},
		),
	}

	c.registry.MustRegister(
		c.decisionsTotal,
		c.decisionDuration,
		c.ruleMatchesTotal,
		c.noMatchTotal,
		c.arbitrationsTotal,
		c.arbitrationDuration,
		c.reloadsTotal,
		c.errorsTotal,
	)

	return c
}

// RecordDecision records one completed decision.
func (c *Collector) RecordDecision(final, source string, duration time.Duration) {
	c.decisionsTotal.WithLabelValues(final, source).Inc()
	c.decisionDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordRuleMatch records a rule match.
func (c *Collector) RecordRuleMatch(ruleID, outcome string) {
	c.ruleMatchesTotal.WithLabelValues(ruleID, outcome).Inc()
}

// RecordNoMatch records an evaluation that fell through to the default
// outcome.
func (c *Collector) RecordNoMatch() {
	c.noMatchTotal.Inc()
}

// RecordArbitration records one arbitration call and whether it produced an
// analyzed insight.
func (c *Collector) RecordArbitration(analyzed bool, duration time.Duration) {
	result := "declined"
	if analyzed {
		result = "analyzed"
	}
	c.arbitrationsTotal.WithLabelValues(result).Inc()
	c.arbitrationDuration.Observe(duration.Seconds())
}

// RecordReload records a rule set reload attempt.
func (c *Collector) RecordReload(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	c.reloadsTotal.WithLabelValues(status).Inc()
}

// RecordError records a system error in the named pipeline stage.
func (c *Collector) RecordError(stage string) {
	c.errorsTotal.WithLabelValues(stage).Inc()
}

// Handler returns the Prometheus exposition handler for this collector's
// registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
