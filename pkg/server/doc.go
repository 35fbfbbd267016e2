// Package server exposes the decision service over HTTP.
//
// Routes:
//
//	POST /v1/decide        run the decision pipeline on a request
//	GET  /v1/rules         inspect the active rule set
//	POST /v1/rules/reload  reload the rule document
//	GET  /v1/status        service status and arbiter description
//	GET  /healthz          liveness probe
//	GET  /readyz           readiness probe
//	GET  /metrics          Prometheus exposition (when enabled)
package server
