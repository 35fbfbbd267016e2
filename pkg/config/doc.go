// Package config defines the service configuration schema and its YAML
// loader. Configuration is loaded from a file, completed with defaults,
// optionally overridden by DECISION_* environment variables, and validated
// before use.
package config
