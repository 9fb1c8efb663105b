package fitting

import (
	"fmt"
	"sort"
	"strings"

	"nomadnexus/internal/kernel"
	"nomadnexus/internal/refdata"
)

// Validator derives capability and role tags for a loadout and flags gaps as
// non-fatal unknowns. It never invents values: anything it cannot resolve is
// reported, not guessed.
type Validator struct {
	resolver *refdata.Resolver
}

func NewValidator(resolver *refdata.Resolver) *Validator {
	return &Validator{resolver: resolver}
}

// DeriveTags unions the tags declared on the profile, its elements, and
// every referenced spec resolved at the profile's version. The result is
// deduplicated and sorted so tag sets compare order-insensitively.
func (v *Validator) DeriveTags(p *Profile) (roles, capabilities []string, warnings []kernel.Warning) {
	roleSet := map[string]struct{}{}
	capSet := map[string]struct{}{}

	addAll(roleSet, p.Roles)
	addAll(capSet, p.Capabilities)
	for _, element := range p.Elements {
		addAll(roleSet, element.Roles)
		addAll(capSet, element.Capabilities)
	}

	resolve := func(refID string) {
		if refID == "" {
			return
		}
		spec, ws := v.resolver.Resolve(refID, p.Version)
		warnings = append(warnings, ws...)
		if spec == nil {
			return
		}
		addAll(roleSet, spec.Roles)
		addAll(capSet, spec.Capabilities)
	}

	if p.Platform != nil {
		resolve(p.Platform.RefID)
	}
	for _, component := range p.Components {
		resolve(component.RefID)
	}

	return sorted(roleSet), sorted(capSet), kernel.DedupeWarnings(warnings)
}

// Validate computes the profile's validation state. Every condition is an
// unknown, not an error; a profile with unknowns is still persisted.
func (v *Validator) Validate(p *Profile) ValidationState {
	var state ValidationState

	if strings.TrimSpace(p.Name) == "" {
		state.Unknowns = append(state.Unknowns, "profile has no name")
	}
	if strings.TrimSpace(p.Version) == "" {
		state.Unknowns = append(state.Unknowns, "profile has no version stamp")
	}

	if p.Scope == ScopeIndividual && p.Platform == nil {
		state.Unknowns = append(state.Unknowns, "individual profile has no platform")
	}
	if p.Platform != nil && p.Platform.RefID == "" && p.Platform.ManualName == "" {
		state.Unknowns = append(state.Unknowns, "platform has no ship reference or manual name")
	}
	for _, component := range p.Components {
		if component.RefID == "" && component.ManualName == "" {
			state.Unknowns = append(state.Unknowns,
				fmt.Sprintf("component slot %q has no reference or manual name", component.Slot))
		}
	}
	if p.Scope.Group() && len(p.Elements) == 0 {
		state.Unknowns = append(state.Unknowns, "group profile has no elements")
	}
	if len(p.DerivedRoles) == 0 && len(p.DerivedCapabilities) == 0 {
		state.Unknowns = append(state.Unknowns, "no derived role or capability tags")
	}

	if p.Version != "" {
		current := v.resolver.DefaultVersion()
		if current != "" && p.Version != current {
			state.PatchMismatchWarnings = append(state.PatchMismatchWarnings,
				fmt.Sprintf("profile version %s differs from current baseline %s", p.Version, current))
		}
	}

	return state
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
}

func sorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
