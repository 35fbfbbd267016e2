// Package decision implements the decision orchestrator: the four-stage
// pipeline that validates an input, evaluates it against the active rule set,
// optionally consults an arbiter for grey-zone outcomes, and combines the
// results into a final verdict with a full audit trail.
//
// Decide is total. Input validation failures, unknown operators and arbiter
// failures are all absorbed into the decision itself; the only path that
// produces final ERROR is an unexpected fault inside the pipeline.
package decision
