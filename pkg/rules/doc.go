// Package rules implements the rule evaluation engine for the decision
// service. It defines the condition and rule data model, a closed operator
// registry, dot-path field resolution over structured input, and a
// first-match-wins evaluator over a prioritized rule list.
//
// The evaluation contract is deliberately total: condition matching never
// panics and never returns an error to the caller. Malformed conditions,
// missing fields, invalid regex patterns, and type-mismatched comparisons all
// resolve to "no match". The only surfaces that reject bad data are the
// load-time validators in the store package.
package rules
