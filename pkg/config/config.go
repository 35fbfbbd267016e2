package config

import "time"

// Config is the root configuration for the decision service.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Rules configures the rule document source and hot reload.
	Rules RulesConfig `yaml:"rules"`

	// Decision configures the orchestration pipeline.
	Decision DecisionConfig `yaml:"decision"`

	// Audit configures decision record persistence.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddress is the host:port the server binds to.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RulesConfig configures the rule document source.
type RulesConfig struct {
	// Path is the YAML rule document on disk.
	Path string `yaml:"path"`

	// Watch enables automatic reload when the document changes.
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces rapid file events into one reload.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// ReviewMode selects how grey-zone verdicts are resolved.
const (
	// ReviewModeRulesOnly maps grey-zone verdicts straight to REVIEW.
	ReviewModeRulesOnly = "rules_only"

	// ReviewModeRulesPlusAI consults the configured arbiter first.
	ReviewModeRulesPlusAI = "rules_plus_ai"
)

// DecisionConfig configures the orchestration pipeline.
type DecisionConfig struct {
	// ReviewMode is "rules_only" or "rules_plus_ai".
	ReviewMode string `yaml:"review_mode"`

	// Version is reported in response metadata.
	Version string `yaml:"version"`
}

// AuditConfig configures decision record persistence.
type AuditConfig struct {
	// Enabled turns audit recording on.
	Enabled bool `yaml:"enabled"`

	// SQLitePath is the audit database file.
	SQLitePath string `yaml:"sqlite_path"`

	// QueueSize bounds the asynchronous recorder queue.
	QueueSize int `yaml:"queue_size"`

	// RetentionDays is how long decision records are kept.
	RetentionDays int `yaml:"retention_days"`

	// RetentionSchedule is the cron expression for the purge job.
	RetentionSchedule string `yaml:"retention_schedule"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`

	// AddSource includes source locations in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	// Enabled turns the /metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// Path is the exposition endpoint path.
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}
