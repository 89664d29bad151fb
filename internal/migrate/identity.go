package migrate

import (
	"github.com/danielolaszy/bzmigrate/internal/config"
)

const (
	stageCanonical = "users"
	stageTarget    = "target_users"
)

// user is a Bugzilla login resolved through both mapping stages.
type user struct {
	Login     string
	Canonical string
	Identity  string
}

func resolveUser(m *config.Mappings, login string) (user, error) {
	canonical, ok := m.CanonicalUser(login)
	if !ok {
		return user{}, &ConfigurationError{Login: login, Stage: stageCanonical}
	}
	identity, ok := m.TargetUser(canonical)
	if !ok {
		return user{}, &ConfigurationError{Login: login, Stage: stageTarget, Canonical: canonical}
	}
	return user{Login: login, Canonical: canonical, Identity: identity}, nil
}

// isGhost reports whether the user maps to the "unknown or deleted user" identity.
func (u user) isGhost(m *config.Mappings) bool {
	return m.GhostUser != "" && u.Canonical == m.GhostUser
}
