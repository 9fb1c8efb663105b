package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TTLRegistry maps (profile, object type) to a time-to-live in seconds.
// Each profile is bound to one stratum; promotion or demotion of an intel
// object re-derives its profile through ProfileForStratum.
type TTLRegistry struct {
	Version  int          `yaml:"version"`
	Profiles []TTLProfile `yaml:"profiles"`

	profileIndex map[string]*TTLProfile
	stratumIndex map[string]*TTLProfile
}

type TTLProfile struct {
	Name    string    `yaml:"name"`
	Stratum string    `yaml:"stratum"`
	Rules   []TTLRule `yaml:"rules"`
}

// TTLRule matches an object type; an empty type matches any. The first
// matching rule in declaration order wins.
type TTLRule struct {
	Type       string `yaml:"type"`
	TTLSeconds int64  `yaml:"ttl_seconds"`
}

var validStrata = []string{"PERSONAL", "SHARED_COMMONS", "OPERATIONAL", "COMMAND_ASSESSED"}

var validIntelTypes = []string{"PIN", "MARKER", "NOTE"}

func LoadTTLRegistry(path string) (*TTLRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading ttl profiles: %w", err)
	}

	var reg TTLRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("loading ttl profiles: %w", err)
	}

	if err := validateTTLRegistry(&reg); err != nil {
		return nil, fmt.Errorf("loading ttl profiles: %w", err)
	}

	reg.buildIndexes()
	return &reg, nil
}

// DefaultTTLRegistry covers every stratum so the kernel runs without a
// ttl_profiles file. Pins decay faster than markers and notes.
func DefaultTTLRegistry() *TTLRegistry {
	reg := &TTLRegistry{
		Version: 1,
		Profiles: []TTLProfile{
			{Name: "personal-short", Stratum: "PERSONAL", Rules: []TTLRule{
				{Type: "PIN", TTLSeconds: 6 * 3600},
				{TTLSeconds: 12 * 3600},
			}},
			{Name: "commons-standard", Stratum: "SHARED_COMMONS", Rules: []TTLRule{
				{Type: "PIN", TTLSeconds: 12 * 3600},
				{TTLSeconds: 24 * 3600},
			}},
			{Name: "operational-standard", Stratum: "OPERATIONAL", Rules: []TTLRule{
				{TTLSeconds: 48 * 3600},
			}},
			{Name: "command-long", Stratum: "COMMAND_ASSESSED", Rules: []TTLRule{
				{TTLSeconds: 7 * 24 * 3600},
			}},
		},
	}
	reg.buildIndexes()
	return reg
}

func validateTTLRegistry(reg *TTLRegistry) error {
	if reg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", reg.Version)
	}
	if len(reg.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}

	names := make(map[string]struct{})
	strata := make(map[string]struct{})
	for i, profile := range reg.Profiles {
		if strings.TrimSpace(profile.Name) == "" {
			return fmt.Errorf("profile %d name is required", i)
		}
		key := strings.ToLower(profile.Name)
		if _, exists := names[key]; exists {
			return fmt.Errorf("duplicate profile name: %s", profile.Name)
		}
		names[key] = struct{}{}

		if !contains(validStrata, profile.Stratum) {
			return fmt.Errorf("profile %s has invalid stratum: %q", profile.Name, profile.Stratum)
		}
		if _, exists := strata[profile.Stratum]; exists {
			return fmt.Errorf("stratum %s is bound to more than one profile", profile.Stratum)
		}
		strata[profile.Stratum] = struct{}{}

		if len(profile.Rules) == 0 {
			return fmt.Errorf("profile %s has no rules", profile.Name)
		}
		for j, rule := range profile.Rules {
			if rule.Type != "" && !contains(validIntelTypes, rule.Type) {
				return fmt.Errorf("profile %s rule %d has invalid type: %q", profile.Name, j, rule.Type)
			}
			if rule.TTLSeconds <= 0 {
				return fmt.Errorf("profile %s rule %d ttl_seconds must be positive", profile.Name, j)
			}
		}
	}

	for _, stratum := range validStrata {
		if _, ok := strata[stratum]; !ok {
			return fmt.Errorf("no profile covers stratum %s", stratum)
		}
	}

	return nil
}

func (r *TTLRegistry) buildIndexes() {
	r.profileIndex = make(map[string]*TTLProfile, len(r.Profiles))
	r.stratumIndex = make(map[string]*TTLProfile, len(r.Profiles))
	for i := range r.Profiles {
		p := &r.Profiles[i]
		r.profileIndex[strings.ToLower(p.Name)] = p
		r.stratumIndex[p.Stratum] = p
	}
}

// ProfileForStratum returns the profile name bound to a stratum.
func (r *TTLRegistry) ProfileForStratum(stratum string) (string, bool) {
	p, ok := r.stratumIndex[stratum]
	if !ok {
		return "", false
	}
	return p.Name, true
}

// TTLSeconds resolves the time-to-live for (profile, object type).
func (r *TTLRegistry) TTLSeconds(profile, objectType string) (int64, bool) {
	p, ok := r.profileIndex[strings.ToLower(profile)]
	if !ok {
		return 0, false
	}
	for _, rule := range p.Rules {
		if rule.Type == "" || rule.Type == objectType {
			return rule.TTLSeconds, true
		}
	}
	return 0, false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
