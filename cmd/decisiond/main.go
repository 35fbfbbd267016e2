// Decisiond is a policy decision point for MLOps control-plane requests.
//
// It evaluates incoming requests against a hot-reloadable YAML rule set,
// escalates grey-zone verdicts to an optional AI arbiter, and records every
// decision to an audit trail:
//   - First-match-wins rule evaluation with priority ordering
//   - Atomic rule reloads via file watching or the reload endpoint
//   - Optional LLM-backed arbitration for ambiguous requests
//   - SQLite-backed audit trail with scheduled retention pruning
//   - Prometheus metrics and health probes
//
// Usage:
//
//	# Start server with default configuration
//	decisiond run
//
//	# Start with custom configuration file
//	decisiond run --config /path/to/config.yaml
//
//	# Show version information
//	decisiond version
//
//	# Validate a rules file
//	decisiond lint --file rules.yaml
//
//	# Evaluate a single request without a server
//	decisiond decide --rules rules.yaml --input request.json
package main

func main() {
	Execute()
}
