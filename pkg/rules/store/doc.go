// Package store loads, validates, and holds the active rule set.
//
// A Store owns an immutable Snapshot of the parsed rules document and swaps
// it atomically on reload. Readers capture one snapshot per request and
// evaluate against it; a reload never mutates a snapshot in place, so
// in-flight evaluations always see either the fully-old or fully-new rule
// set. If a reload fails at any stage, the previous snapshot stays active
// and the failure is reported to the reload caller as a *ConfigError.
package store
