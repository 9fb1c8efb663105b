package fitting

import "time"

type Scope string

const (
	ScopeIndividual Scope = "INDIVIDUAL"
	ScopeSquad      Scope = "SQUAD"
	ScopeWing       Scope = "WING"
	ScopeFleet      Scope = "FLEET"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeIndividual, ScopeSquad, ScopeWing, ScopeFleet:
		return true
	}
	return false
}

// Group scopes carry elements instead of a single platform.
func (s Scope) Group() bool {
	return s == ScopeSquad || s == ScopeWing || s == ScopeFleet
}

// Platform is the ship selection of an individual profile. ManualName is a
// snapshot used when no reference record backs the selection.
type Platform struct {
	RefID      string
	ManualName string
}

// Component is one fitted slot, again either reference-backed or manual.
type Component struct {
	Slot       string
	RefID      string
	ManualName string
}

// Element is a member of a group-scope profile.
type Element struct {
	Name         string
	Roles        []string
	Capabilities []string
}

type Profile struct {
	ID      string
	Name    string
	Scope   Scope
	Version string

	Platform   *Platform
	Components []Component
	Elements   []Element

	// Declared by the user; derived values merge these with element and
	// resolved reference tags.
	Roles        []string
	Capabilities []string

	DerivedRoles        []string
	DerivedCapabilities []string

	Validation ValidationState
	History    []ChangeEntry

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidationState is carried on the profile for the UI and report layers;
// unknowns never block persistence.
type ValidationState struct {
	PatchMismatchWarnings []string
	Unknowns              []string
}

type ChangeEntry struct {
	At      time.Time
	Actor   string
	Summary string
}
