// Package arbiter provides the secondary-opinion capability consulted for
// grey-zone rule outcomes. An Arbiter analyzes the decision input together
// with the rule evaluation result and returns an Insight: either an analyzed
// recommendation with confidence and reasoning, or a not-analyzed marker
// carrying the failure reason.
//
// The boundary contract is strict: Analyze never returns an error and never
// panics. Timeouts, transport failures, malformed model output, and
// misconfiguration all collapse into Insight{Analyzed: false, Err: ...} so
// an unavailable arbiter can never block or corrupt a decision.
package arbiter
