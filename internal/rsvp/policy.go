package rsvp

import (
	"strings"
	"time"

	"nomadnexus/internal/ops"
)

// defaultPolicy seeds the rule set for a posture. FOCUSED operations are
// strict: comms readiness is a hard requirement. CASUAL operations keep
// comms soft and make the role preference advisory.
func defaultPolicy(opID string, posture ops.Posture, now time.Time) *Policy {
	var rules []Rule
	switch posture {
	case ops.PostureFocused:
		rules = []Rule{
			commsRule("focused-comms", TierHard),
			roleDeclaredRule("focused-role", TierSoft),
			assetCapabilityRule("focused-asset-caps", TierAdvisory),
		}
	default:
		rules = []Rule{
			commsRule("casual-comms", TierSoft),
			roleDeclaredRule("casual-role", TierAdvisory),
		}
	}
	return &Policy{
		OpID:        opID,
		Posture:     string(posture),
		Rules:       rules,
		GeneratedAt: now,
	}
}

func commsRule(id string, tier Tier) Rule {
	return Rule{
		ID:      id,
		Tier:    tier,
		Kind:    RuleComms,
		Message: "comms readiness is required",
		Satisfied: func(e *Entry) bool {
			return e.CommsReady
		},
	}
}

func roleDeclaredRule(id string, tier Tier) Rule {
	return Rule{
		ID:      id,
		Tier:    tier,
		Kind:    RuleRole,
		Message: "a primary role should be declared",
		Satisfied: func(e *Entry) bool {
			return strings.TrimSpace(e.PrimaryRole) != ""
		},
	}
}

// assetCapabilityRule only binds ASSET-mode entries; individual entries
// satisfy it trivially.
func assetCapabilityRule(id string, tier Tier) Rule {
	return Rule{
		ID:      id,
		Tier:    tier,
		Kind:    RuleCapability,
		Message: "asset entries should declare at least one capability tag",
		Satisfied: func(e *Entry) bool {
			if e.Mode != ModeAsset {
				return true
			}
			return e.Slot != nil && len(e.Slot.Capabilities) > 0
		},
	}
}

// legacyCommsMarkers is input-migration only: old free-text RSVPs carried
// readiness as a notes marker before CommsReady existed.
var legacyCommsMarkers = []string{"comms-ok", "comms ok", "on comms"}

// MigrateLegacyNotes reports whether free-text notes carry a legacy comms
// readiness marker.
func MigrateLegacyNotes(notes string) bool {
	lowered := strings.ToLower(notes)
	for _, marker := range legacyCommsMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
