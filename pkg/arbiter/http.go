package arbiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/i-OmSharma/MLOps-decision/pkg/rules"
)

// HTTPArbiter consults a chat-completions style LLM endpoint. It embeds the
// decision input and rule result in the prompt and expects the model to
// answer with a single JSON object.
type HTTPArbiter struct {
	config  BackendConfig
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPArbiter creates a backend with a pooled HTTP transport.
func NewHTTPArbiter(cfg BackendConfig, timeout time.Duration, logger *slog.Logger) *HTTPArbiter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &HTTPArbiter{
		config:  cfg,
		timeout: timeout,
		client:  &http.Client{Transport: transport, Timeout: timeout},
		logger:  logger.With("component", "arbiter", "provider", cfg.Provider),
	}
}

// IsEnabled reports whether the backend has an endpoint to call.
func (a *HTTPArbiter) IsEnabled() bool {
	return a.config.Endpoint != ""
}

// Describe identifies the backend.
func (a *HTTPArbiter) Describe() Description {
	return Description{Provider: a.config.Provider, Model: a.config.Model}
}

// chatRequest is the provider-facing request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the provider response we consume.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// analysisPayload is the JSON object the model is instructed to produce.
type analysisPayload struct {
	Recommendation    string   `json:"recommendation"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	RiskFactors       []string `json:"risk_factors"`
	MitigatingFactors []string `json:"mitigating_factors"`
}

const systemPrompt = `You are a risk reviewer for an MLOps control plane. ` +
	`You receive a request that the rule engine could not confidently decide. ` +
	`Respond with exactly one JSON object and nothing else, with keys: ` +
	`"recommendation" (one of ALLOW, DENY, REVIEW), "confidence" (0.0-1.0), ` +
	`"reasoning" (one short paragraph), "risk_factors" (list of strings), ` +
	`"mitigating_factors" (list of strings).`

// Analyze consults the backend. Every failure path resolves to a
// not-analyzed insight carrying the reason; Analyze never returns an error.
func (a *HTTPArbiter) Analyze(ctx context.Context, input map[string]any, ruleResult rules.EvaluationResult) Insight {
	start := time.Now()
	insight := a.analyze(ctx, input, ruleResult)
	insight.AnalysisTimeMs = float64(time.Since(start).Microseconds()) / 1000.0

	if !insight.Analyzed && insight.Err != "" {
		a.logger.Warn("arbiter analysis failed", "error", insight.Err)
	}
	return insight
}

func (a *HTTPArbiter) analyze(ctx context.Context, input map[string]any, ruleResult rules.EvaluationResult) Insight {
	if a.config.Endpoint == "" {
		return NotAnalyzed("arbiter backend has no endpoint configured")
	}

	apiKey := ""
	if a.config.APIKeyEnv != "" {
		apiKey = os.Getenv(a.config.APIKeyEnv)
		if apiKey == "" {
			return NotAnalyzed(fmt.Sprintf("api key environment variable %s is not set", a.config.APIKeyEnv))
		}
	}

	prompt, err := buildPrompt(input, ruleResult)
	if err != nil {
		return NotAnalyzed(fmt.Sprintf("failed to build prompt: %v", err))
	}

	body, err := json.Marshal(chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: a.config.Temperature,
	})
	if err != nil {
		return NotAnalyzed(fmt.Sprintf("failed to encode request: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	respBody, err := a.doRequest(ctx, body, apiKey)
	if err != nil {
		return NotAnalyzed(err.Error())
	}

	return parseAnalysis(respBody)
}

// doRequest posts the request with bounded retries. Transient failures
// (network errors, 5xx, 429) are retried with exponential backoff; other
// statuses fail immediately.
func (a *HTTPArbiter) doRequest(ctx context.Context, body []byte, apiKey string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 250 * time.Millisecond
			a.logger.Debug("retrying arbiter request",
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("arbiter request cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build arbiter request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("arbiter request failed: %w", err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("failed to read arbiter response: %w", readErr)
			}
			return data, nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("arbiter returned status %d", resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("arbiter returned status %d", resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("arbiter request failed after %d attempts: %w", a.config.MaxRetries+1, lastErr)
}

// buildPrompt renders the decision input and rule result for the model.
func buildPrompt(input map[string]any, ruleResult rules.EvaluationResult) (string, error) {
	inputJSON, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}
	resultJSON, err := json.MarshalIndent(ruleResult, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Request under review:\n")
	b.Write(inputJSON)
	b.WriteString("\n\nRule engine result:\n")
	b.Write(resultJSON)
	b.WriteString("\n\nAnalyze the request and respond with the JSON object described in your instructions.")
	return b.String(), nil
}

// parseAnalysis extracts the model's JSON verdict from the chat response.
func parseAnalysis(data []byte) Insight {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return NotAnalyzed(fmt.Sprintf("failed to decode arbiter response: %v", err))
	}
	if len(resp.Choices) == 0 {
		return NotAnalyzed("arbiter response has no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	// Models occasionally wrap JSON in a fenced code block.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload analysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return NotAnalyzed(fmt.Sprintf("arbiter produced non-JSON analysis: %v", err))
	}

	rec := NormalizeRecommendation(payload.Recommendation)
	if rec == "" {
		return NotAnalyzed(fmt.Sprintf("arbiter produced unrecognized recommendation %q", payload.Recommendation))
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Insight{
		Analyzed:          true,
		Recommendation:    rec,
		Confidence:        confidence,
		Reasoning:         payload.Reasoning,
		RiskFactors:       payload.RiskFactors,
		MitigatingFactors: payload.MitigatingFactors,
	}
}
