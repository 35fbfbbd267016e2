package arbiter

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the arbiter section of the rules document (ai_config). The
// store treats it as opaque; this package owns its schema.
type Config struct {
	// Enabled turns arbitration on. Default false: an absent ai_config
	// section means rule-only decisions.
	Enabled bool `yaml:"enabled"`

	// Timeout bounds a single Analyze call end to end, across all
	// backends. Default 10s.
	Timeout time.Duration `yaml:"timeout"`

	// Backends is the prioritized backend list; the first one that
	// produces an analyzed insight wins.
	Backends []BackendConfig `yaml:"backends"`
}

// BackendConfig configures one LLM backend.
type BackendConfig struct {
	// Provider is a display name ("openai", "anthropic", "local").
	Provider string `yaml:"provider"`

	// Model is the model identifier sent in the request body.
	Model string `yaml:"model"`

	// Endpoint is the chat-completions URL.
	Endpoint string `yaml:"endpoint"`

	// APIKeyEnv names the environment variable holding the API key. The
	// key itself never appears in configuration files.
	APIKeyEnv string `yaml:"api_key_env"`

	// MaxRetries bounds transient-error retries per request. Default 2.
	MaxRetries int `yaml:"max_retries"`

	// Temperature is passed through to the model. Default 0 for
	// reproducible analyses.
	Temperature float64 `yaml:"temperature"`
}

// ParseConfig decodes the opaque ai_config node from the rules document.
// A nil or empty node yields a disabled config.
func ParseConfig(node *yaml.Node) (Config, error) {
	cfg := Config{Timeout: 10 * time.Second}
	if node == nil || node.Kind == 0 || node.IsZero() {
		return cfg, nil
	}
	if err := node.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse ai_config: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	for i := range cfg.Backends {
		if cfg.Backends[i].MaxRetries <= 0 {
			cfg.Backends[i].MaxRetries = 2
		}
	}
	return cfg, nil
}

// Build constructs the arbiter described by cfg: Disabled when arbitration
// is off or no backends are configured, a single HTTP backend, or a
// prioritized chain.
func Build(cfg Config, logger *slog.Logger) Arbiter {
	if !cfg.Enabled || len(cfg.Backends) == 0 {
		return Disabled{}
	}
	if len(cfg.Backends) == 1 {
		return NewHTTPArbiter(cfg.Backends[0], cfg.Timeout, logger)
	}
	backends := make([]Arbiter, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backends = append(backends, NewHTTPArbiter(b, cfg.Timeout, logger))
	}
	return NewChain(backends, logger)
}
