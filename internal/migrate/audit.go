package migrate

import (
	"errors"
	"sort"

	"github.com/danielolaszy/bzmigrate/internal/config"
	"github.com/danielolaszy/bzmigrate/pkg/models"
)

// Findings lists what a set of bugs needs from the mapping tables.
type Findings struct {
	Bugs int

	// Users holds one error per unmapped login, sorted by login.
	Users []*ConfigurationError

	// Components and Milestones are values without a mapping. They do not
	// fail a migration; the label or milestone is simply left out.
	Components []string
	Milestones []string
}

// OK reports whether every user the bugs reference can be resolved.
func (f *Findings) OK() bool { return len(f.Users) == 0 }

// Audit collects unmapped users, components and milestones across records
// without writing anything.
func Audit(m *config.Mappings, records []*models.RawBugRecord) *Findings {
	users := make(map[string]*ConfigurationError)
	components := make(map[string]bool)
	milestones := make(map[string]bool)

	check := func(login string) {
		if login == "" {
			return
		}
		if _, done := users[login]; done {
			return
		}
		_, err := resolveUser(m, login)
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			users[login] = cfgErr
		} else {
			users[login] = nil
		}
	}

	for _, record := range records {
		check(record.Reporter())
		check(record.AssignedTo())
		for _, c := range record.Comments {
			if c.Text != "" {
				check(c.Who)
			}
		}

		if component := record.Field("component"); component != "" && m.ComponentLabel(component) == "" {
			components[component] = true
		}
		if milestone := record.Field("target_milestone"); milestone != "" && milestone != noMilestone && m.Milestone(milestone) == "" {
			milestones[milestone] = true
		}
	}

	f := &Findings{Bugs: len(records)}
	for _, err := range users {
		if err != nil {
			f.Users = append(f.Users, err)
		}
	}
	sort.Slice(f.Users, func(i, j int) bool { return f.Users[i].Login < f.Users[j].Login })
	f.Components = sortedKeys(components)
	f.Milestones = sortedKeys(milestones)
	return f
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
