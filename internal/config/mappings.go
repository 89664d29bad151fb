package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mappings holds the static lookup tables used while transforming bugs.
// It is decoded with yaml.v3 rather than viper because Bugzilla logins are
// case-sensitive map keys.
type Mappings struct {
	// Users maps Bugzilla logins to canonical user names.
	Users map[string]string `yaml:"users"`

	// TargetUsers maps canonical user names to target tracker identities.
	TargetUsers map[string]string `yaml:"target_users"`

	// Components maps Bugzilla components to labels.
	Components map[string]string `yaml:"components"`

	// Milestones maps Bugzilla target milestones to target milestone identifiers.
	Milestones map[string]string `yaml:"milestones"`

	// ClosedStatuses are the bug_status values that close the migrated issue.
	ClosedStatuses []string `yaml:"closed_statuses"`

	// AnonymousReporter is the Bugzilla login that files bugs on behalf of
	// anonymous submitters, if the installation has one.
	AnonymousReporter string `yaml:"anonymous_reporter"`

	// SubmitterMarker precedes the real submitter in bugs filed by AnonymousReporter.
	SubmitterMarker string `yaml:"submitter_marker"`

	// GhostUser is the canonical name of the "unknown or deleted user" identity.
	GhostUser string `yaml:"ghost_user"`

	// ProvenanceLabel is attached to every migrated issue.
	ProvenanceLabel string `yaml:"provenance_label"`

	// DedupeLabels drops repeated labels, keeping the first occurrence.
	DedupeLabels bool `yaml:"dedupe_labels"`
}

// DefaultMappings returns the mapping defaults applied before a file is decoded.
func DefaultMappings() *Mappings {
	return &Mappings{
		Users:           map[string]string{},
		TargetUsers:     map[string]string{},
		Components:      map[string]string{},
		Milestones:      map[string]string{},
		ClosedStatuses:  []string{"RESOLVED", "VERIFIED", "CLOSED"},
		SubmitterMarker: "Submitter was ",
		GhostUser:       "ghost",
		ProvenanceLabel: "bugzilla",
	}
}

// LoadMappings reads the mapping file at path.
func LoadMappings(path string) (*Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file %s: %w", path, err)
	}

	m, err := ParseMappings(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mappings file %s: %w", path, err)
	}
	return m, nil
}

// ParseMappings decodes mapping YAML on top of DefaultMappings.
func ParseMappings(data []byte) (*Mappings, error) {
	m := DefaultMappings()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}

	// An explicitly empty map in the file decodes to nil
	if m.Users == nil {
		m.Users = map[string]string{}
	}
	if m.TargetUsers == nil {
		m.TargetUsers = map[string]string{}
	}
	if m.Components == nil {
		m.Components = map[string]string{}
	}
	if m.Milestones == nil {
		m.Milestones = map[string]string{}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the tables can drive a migration.
func (m *Mappings) Validate() error {
	if len(m.ClosedStatuses) == 0 {
		return fmt.Errorf("closed_statuses must list at least one status")
	}
	if m.ProvenanceLabel == "" {
		return fmt.Errorf("provenance_label must not be empty")
	}
	if m.AnonymousReporter != "" && m.SubmitterMarker == "" {
		return fmt.Errorf("submitter_marker is required when anonymous_reporter is set")
	}
	for login, canonical := range m.Users {
		if canonical == "" {
			return fmt.Errorf("user %q maps to an empty canonical name", login)
		}
	}
	return nil
}

// CanonicalUser returns the canonical name for a Bugzilla login.
func (m *Mappings) CanonicalUser(login string) (string, bool) {
	canonical, ok := m.Users[login]
	return canonical, ok
}

// TargetUser returns the target identity for a canonical name.
func (m *Mappings) TargetUser(canonical string) (string, bool) {
	identity, ok := m.TargetUsers[canonical]
	if !ok || identity == "" {
		return "", false
	}
	return identity, true
}

// ComponentLabel returns the label for a component, if one is mapped.
func (m *Mappings) ComponentLabel(component string) string {
	return m.Components[component]
}

// Milestone returns the target milestone for a Bugzilla target milestone, if mapped.
func (m *Mappings) Milestone(bugzillaMilestone string) string {
	return m.Milestones[bugzillaMilestone]
}

// IsClosed reports whether a bug_status closes the migrated issue.
func (m *Mappings) IsClosed(status string) bool {
	for _, s := range m.ClosedStatuses {
		if s == status {
			return true
		}
	}
	return false
}
