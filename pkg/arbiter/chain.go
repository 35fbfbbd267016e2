package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i-OmSharma/MLOps-decision/pkg/rules"
)

// Chain tries a prioritized list of backends in order and returns the first
// analyzed insight. When every backend fails, the returned insight carries
// the accumulated failure reasons.
type Chain struct {
	backends []Arbiter
	logger   *slog.Logger
}

// NewChain creates a prioritized arbiter chain.
func NewChain(backends []Arbiter, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		backends: backends,
		logger:   logger.With("component", "arbiter.chain"),
	}
}

// Analyze consults backends in priority order, stopping at the first
// analyzed insight.
func (c *Chain) Analyze(ctx context.Context, input map[string]any, ruleResult rules.EvaluationResult) Insight {
	var reasons []string

	for _, backend := range c.backends {
		if !backend.IsEnabled() {
			continue
		}
		if ctx.Err() != nil {
			reasons = append(reasons, fmt.Sprintf("chain aborted: %v", ctx.Err()))
			break
		}

		insight := backend.Analyze(ctx, input, ruleResult)
		if insight.Analyzed {
			return insight
		}
		desc := backend.Describe()
		if insight.Err != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", desc.Provider, insight.Err))
		}
		c.logger.Debug("arbiter backend declined, trying next",
			"provider", desc.Provider,
			"error", insight.Err,
		)
	}

	return NotAnalyzed(strings.Join(reasons, "; "))
}

// IsEnabled reports whether any backend is enabled.
func (c *Chain) IsEnabled() bool {
	for _, backend := range c.backends {
		if backend.IsEnabled() {
			return true
		}
	}
	return false
}

// Describe identifies the first enabled backend, the one consulted first.
func (c *Chain) Describe() Description {
	for _, backend := range c.backends {
		if backend.IsEnabled() {
			return backend.Describe()
		}
	}
	return Description{Provider: "none", Model: ""}
}
