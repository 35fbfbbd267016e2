package store

import (
	"errors"
	"fmt"
)

// ErrNotLoaded indicates no snapshot has been loaded yet.
var ErrNotLoaded = errors.New("rule store: no rule set loaded")

// ConfigError indicates the rules document could not be loaded or parsed.
// When returned from a reload, the previously active snapshot remains in
// effect.
type ConfigError struct {
	// Source describes where the document came from (file path, "memory").
	Source string

	// Cause is the underlying read or parse failure.
	Cause error
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("rule configuration %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
