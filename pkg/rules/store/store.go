package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/i-OmSharma/MLOps-decision/pkg/rules"
)

// Document is the logical schema of the rules configuration.
type Document struct {
	// Rules is the authored rule list, in source order.
	Rules []rules.Rule `yaml:"rules"`

	// Defaults configures fallback behavior.
	Defaults Defaults `yaml:"defaults"`

	// AIConfig is opaque arbiter configuration, passed through to the
	// arbiter collaborator without interpretation by the store.
	AIConfig yaml.Node `yaml:"ai_config"`

	// Metadata is descriptive information about the document.
	Metadata DocumentMetadata `yaml:"metadata"`
}

// Defaults holds the document's fallback configuration.
type Defaults struct {
	// NoMatchOutcome is returned when no rule matches. Defaults to
	// GREY_ZONE when unspecified or invalid.
	NoMatchOutcome rules.Outcome `yaml:"no_match_outcome"`
}

// DocumentMetadata is descriptive information carried by the rules document.
type DocumentMetadata struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// Metadata summarizes the active snapshot for observability surfaces.
type Metadata struct {
	// Name, Version, Description come from the document.
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	// TotalRules counts rules present in the document.
	TotalRules int `json:"total_rules"`

	// ActiveRules counts rules that passed validation and are enabled.
	ActiveRules int `json:"active_rules"`

	// SkippedRules counts rules excluded at load time.
	SkippedRules int `json:"skipped_rules"`

	// Source describes where the document was loaded from.
	Source string `json:"source"`

	// LoadedAt is when the snapshot was installed.
	LoadedAt time.Time `json:"loaded_at"`
}

// Snapshot is an immutable point-in-time view of the active rule set. It is
// shared by unlimited concurrent readers and never mutated after install.
type Snapshot struct {
	rules          []rules.Rule
	defaultOutcome rules.Outcome
	aiConfig       yaml.Node
	meta           Metadata
}

// Rules returns the active rules, sorted by priority descending with source
// order preserved on ties. Callers must not modify the returned slice.
func (s *Snapshot) Rules() []rules.Rule {
	return s.rules
}

// DefaultOutcome returns the outcome used when no rule matches.
func (s *Snapshot) DefaultOutcome() rules.Outcome {
	return s.defaultOutcome
}

// AIConfig returns the raw arbiter configuration node from the document.
func (s *Snapshot) AIConfig() *yaml.Node {
	return &s.aiConfig
}

// Metadata returns counts and descriptive info about the snapshot.
func (s *Snapshot) Metadata() Metadata {
	return s.meta
}

// Store loads and atomically holds the active rule snapshot.
type Store struct {
	source Source
	logger *slog.Logger
	active atomic.Pointer[Snapshot]
}

// New creates a store reading from source. No snapshot is active until the
// first successful Load.
func New(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source: source,
		logger: logger.With("component", "rules.store"),
	}
}

// Load reads, parses, validates, and sorts the rules document, then
// atomically replaces the active snapshot. The swap happens only after the
// whole pipeline succeeds; on any failure the previous snapshot (if one
// exists) remains active and a *ConfigError is returned.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.source.Read(ctx)
	if err != nil {
		return &ConfigError{Source: s.source.Describe(), Cause: err}
	}

	snapshot, err := s.parse(data)
	if err != nil {
		return &ConfigError{Source: s.source.Describe(), Cause: err}
	}

	s.active.Store(snapshot)
	s.logger.Info("rule set loaded",
		"source", snapshot.meta.Source,
		"total_rules", snapshot.meta.TotalRules,
		"active_rules", snapshot.meta.ActiveRules,
		"skipped_rules", snapshot.meta.SkippedRules,
		"default_outcome", snapshot.defaultOutcome,
	)
	return nil
}

// Reload is Load under its operational name: it is invoked by the watcher
// and the reload endpoint while requests are in flight.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Snapshot returns the active snapshot, or nil before the first successful
// load. Callers capture the snapshot once per request.
func (s *Store) Snapshot() *Snapshot {
	return s.active.Load()
}

// ActiveRules returns the active rules, or nil before the first load.
func (s *Store) ActiveRules() []rules.Rule {
	if snap := s.active.Load(); snap != nil {
		return snap.Rules()
	}
	return nil
}

// DefaultOutcome returns the configured no-match outcome, falling back to
// GREY_ZONE before the first load.
func (s *Store) DefaultOutcome() rules.Outcome {
	if snap := s.active.Load(); snap != nil {
		return snap.DefaultOutcome()
	}
	return rules.OutcomeGreyZone
}

// ArbiterConfig returns the opaque arbiter configuration, or nil before the
// first load.
func (s *Store) ArbiterConfig() *yaml.Node {
	if snap := s.active.Load(); snap != nil {
		return snap.AIConfig()
	}
	return nil
}

// Metadata returns observability metadata for the active snapshot.
func (s *Store) Metadata() (Metadata, error) {
	snap := s.active.Load()
	if snap == nil {
		return Metadata{}, ErrNotLoaded
	}
	return snap.Metadata(), nil
}

// parse turns raw document bytes into a validated, sorted snapshot.
func (s *Store) parse(data []byte) (*Snapshot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules document: %w", err)
	}

	active := make([]rules.Rule, 0, len(doc.Rules))
	seen := make(map[string]bool, len(doc.Rules))
	skipped := 0

	for i := range doc.Rules {
		r := doc.Rules[i]
		if reason := validateRule(&r); reason != "" {
			s.logger.Warn("rule excluded from active set",
				"rule_id", r.ID,
				"index", i,
				"reason", reason,
			)
			skipped++
			continue
		}
		if seen[r.ID] {
			s.logger.Warn("rule excluded from active set",
				"rule_id", r.ID,
				"index", i,
				"reason", "duplicate id",
			)
			skipped++
			continue
		}
		if !r.IsEnabled() {
			skipped++
			continue
		}
		seen[r.ID] = true
		active = append(active, r)
	}

	// Priority descending; SliceStable keeps source order on ties.
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	defaultOutcome := doc.Defaults.NoMatchOutcome
	if !rules.ValidOutcome(defaultOutcome) {
		if defaultOutcome != "" {
			s.logger.Warn("invalid default outcome, falling back to GREY_ZONE",
				"no_match_outcome", defaultOutcome,
			)
		}
		defaultOutcome = rules.OutcomeGreyZone
	}

	return &Snapshot{
		rules:          active,
		defaultOutcome: defaultOutcome,
		aiConfig:       doc.AIConfig,
		meta: Metadata{
			Name:         doc.Metadata.Name,
			Version:      doc.Metadata.Version,
			Description:  doc.Metadata.Description,
			TotalRules:   len(doc.Rules),
			ActiveRules:  len(active),
			SkippedRules: skipped,
			Source:       s.source.Describe(),
			LoadedAt:     time.Now().UTC(),
		},
	}, nil
}

// validateRule returns a non-empty reason when the rule must be excluded
// from the active set.
func validateRule(r *rules.Rule) string {
	if r.ID == "" {
		return "missing id"
	}
	if r.Condition == nil {
		return "missing condition"
	}
	if !rules.ValidOutcome(r.Outcome) {
		return fmt.Sprintf("invalid outcome %q", r.Outcome)
	}
	if err := r.Condition.Validate(); err != nil {
		return fmt.Sprintf("invalid condition: %v", err)
	}
	return ""
}
