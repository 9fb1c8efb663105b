package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"nomadnexus/internal/fitting"
	"nomadnexus/internal/intel"
	"nomadnexus/internal/ops"
)

// unknownBody marks a narrative section with no corroborating records.
// Sections are emitted as "unknown" rather than omitted so the reader can
// tell absence of data from absence of reporting.
const unknownBody = "unknown"

func (e *Engine) gameVersion(params Params) string {
	if params.GameVersion != "" {
		return params.GameVersion
	}
	if e.src.Resolver != nil {
		return e.src.Resolver.DefaultVersion()
	}
	return ""
}

func (e *Engine) operation(ctx context.Context, kind Kind, params Params) (*ops.Operation, error) {
	if params.OpID == "" {
		return nil, fmt.Errorf("%s requires an operation id", kind)
	}
	op, err := e.src.Ops.GetOperation(ctx, params.OpID)
	if err != nil {
		return nil, fmt.Errorf("loading operation %s: %w", params.OpID, err)
	}
	return op, nil
}

func (e *Engine) opIntel(params Params, now time.Time) []intel.Listed {
	if e.src.Intel == nil {
		return nil
	}
	viewer := intel.Viewer{UserID: params.UserID, ActiveOpID: params.OpID}
	return e.src.Intel.List(intel.Filter{Tags: params.Tags, Node: params.Node}, viewer, now)
}

func intelEvidence(listed []intel.Listed) []Evidence {
	out := make([]Evidence, 0, len(listed))
	for _, item := range listed {
		out = append(out, Evidence{
			Claim:      item.Object.Title,
			Confidence: item.Object.Confidence,
			TTL:        item.TTL,
			Citations: []Citation{{
				Kind:      "intel",
				RefID:     item.Object.ID,
				Timestamp: item.Object.UpdatedAt,
			}},
		})
	}
	return out
}

func intelRefs(listed []intel.Listed) []string {
	refs := make([]string, 0, len(listed))
	for _, item := range listed {
		refs = append(refs, item.Object.ID)
	}
	return refs
}

// generateOpBrief assembles the pre-operation picture: posture and anchor,
// objectives, the compliance roster, open seats, and live intel for the AO.
func (e *Engine) generateOpBrief(ctx context.Context, scope Scope, params Params, now time.Time) (*Artifact, error) {
	op, err := e.operation(ctx, KindOpBrief, params)
	if err != nil {
		return nil, err
	}

	overview := fmt.Sprintf("Operation %s (%s posture), anchored at %s, commanded by %s.",
		op.Name, op.Posture, orUnknown(op.AOAnchor), orUnknown(op.CommanderID))

	objectives, err := e.src.Planning.ListObjectives(ctx, op.ID)
	if err != nil {
		return nil, fmt.Errorf("listing objectives: %w", err)
	}
	var objLines []string
	for _, o := range objectives {
		objLines = append(objLines, fmt.Sprintf("%s [%s]", o.Title, o.Status))
	}

	summary := e.src.RSVP.RosterSummary(op.ID)
	roster := fmt.Sprintf("%d entries (%d individual, %d asset); %d hard violations, %d soft flags.",
		summary.EntryCount, summary.IndividualEntryCount, summary.AssetEntryCount,
		summary.HardViolationCount, summary.SoftFlagCount)

	var seatLines []string
	for _, seat := range summary.OpenSeats {
		if seat.OpenQty == 0 {
			continue
		}
		seatLines = append(seatLines, fmt.Sprintf("%s aboard %s: %d open", seat.Role, seat.AssetName, seat.OpenQty))
	}

	listed := e.opIntel(params, now)

	artifact := &Artifact{
		Title:      "Operation Brief: " + op.Name,
		TemplateID: "op-brief.v1",
		Sections: []Section{
			{ID: "overview", Heading: "Overview", OrderIndex: 0, Body: overview},
			{ID: "objectives", Heading: "Objectives", OrderIndex: 1, Body: joinOrUnknown(objLines)},
			{ID: "roster", Heading: "Roster", OrderIndex: 2, Body: roster},
			{ID: "open-seats", Heading: "Open Seats", OrderIndex: 3, Body: joinOrUnknown(seatLines)},
		},
		Evidence: intelEvidence(listed),
		Inputs: Inputs{
			Refs:         intelRefs(listed),
			SnapshotRefs: intelRefs(listed),
			GameVersion:  e.gameVersion(params),
			DataSources:  []string{"intel", "ops", "planning", "rsvp"},
		},
		Permissions: []string{string(op.Posture)},
	}
	return artifact, nil
}

// generateSitrep is the live situation picture: current intel grouped by
// node, with stale objects excluded.
func (e *Engine) generateSitrep(ctx context.Context, scope Scope, params Params, now time.Time) (*Artifact, error) {
	viewer := intel.Viewer{UserID: params.UserID, ActiveOpID: params.OpID}
	listed := e.src.Intel.List(intel.Filter{
		Tags:         params.Tags,
		Node:         params.Node,
		ExcludeStale: true,
	}, viewer, now)

	byNode := make(map[string][]intel.Listed)
	for _, item := range listed {
		byNode[item.Object.Anchor.Node] = append(byNode[item.Object.Anchor.Node], item)
	}
	nodes := make([]string, 0, len(byNode))
	for node := range byNode {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	sections := []Section{{
		ID: "summary", Heading: "Summary", OrderIndex: 0,
		Body: fmt.Sprintf("%d live intel objects across %d locations.", len(listed), len(nodes)),
	}}
	for i, node := range nodes {
		var lines []string
		for _, item := range byNode[node] {
			lines = append(lines, fmt.Sprintf("%s (%s, %s confidence)",
				item.Object.Title, item.Object.Type, item.Object.Confidence))
		}
		sections = append(sections, Section{
			ID:         "node-" + node,
			Heading:    orUnknown(node),
			OrderIndex: i + 1,
			Body:       joinOrUnknown(lines),
			LinkedRefs: intelRefs(byNode[node]),
		})
	}

	return &Artifact{
		Title:      "Situation Report",
		TemplateID: "sitrep.v1",
		Sections:   sections,
		Evidence:   intelEvidence(listed),
		Inputs: Inputs{
			Refs:         intelRefs(listed),
			SnapshotRefs: intelRefs(listed),
			GameVersion:  e.gameVersion(params),
			DataSources:  []string{"intel"},
		},
	}, nil
}

// generateAAR cross-references the operation event stream, challenged
// assumptions, decisions, op-thread discussion, and intel promotion and
// retirement records. A section with no corroborating records reads
// "unknown", never disappears.
func (e *Engine) generateAAR(ctx context.Context, scope Scope, params Params, now time.Time) (*Artifact, error) {
	op, err := e.operation(ctx, KindAAR, params)
	if err != nil {
		return nil, err
	}

	events, err := e.src.Ops.ListOperationEvents(ctx, op.ID)
	if err != nil {
		return nil, fmt.Errorf("listing operation events: %w", err)
	}
	assumptions, err := e.src.Planning.ListAssumptions(ctx, op.ID)
	if err != nil {
		return nil, fmt.Errorf("listing assumptions: %w", err)
	}
	decisions, err := e.src.Planning.ListDecisions(ctx, op.ID)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}

	var timeline []string
	evidence := make([]Evidence, 0)
	for _, event := range events {
		timeline = append(timeline, fmt.Sprintf("%s %s: %s",
			event.At.UTC().Format(time.RFC3339), event.Kind, event.Summary))
		evidence = append(evidence, Evidence{
			Claim:      event.Summary,
			Confidence: intel.ConfidenceHigh,
			Citations:  []Citation{{Kind: "event", RefID: event.ID, Timestamp: event.At}},
		})
	}

	// Deviations: challenged assumptions plus any event flagged as one.
	var deviations []string
	for _, a := range assumptions {
		if !a.Challenged {
			continue
		}
		deviations = append(deviations, fmt.Sprintf("assumption %q challenged by %s: %s",
			a.Text, a.ChallengedBy, a.ChallengeNote))
		evidence = append(evidence, Evidence{
			Claim:      "challenged assumption: " + a.Text,
			Confidence: intel.ConfidenceMed,
			Citations:  []Citation{{Kind: "assumption", RefID: a.ID, Timestamp: op.StartedAt}},
		})
	}
	for _, event := range events {
		if strings.EqualFold(event.Kind, "deviation") {
			deviations = append(deviations, event.Summary)
		}
	}

	var decisionLines []string
	for _, d := range decisions {
		decisionLines = append(decisionLines, fmt.Sprintf("%s (%s): %s", d.Summary, d.DecidedBy, d.Rationale))
		evidence = append(evidence, Evidence{
			Claim:      d.Summary,
			Confidence: intel.ConfidenceHigh,
			Citations:  []Citation{{Kind: "decision", RefID: d.ID, Timestamp: d.At}},
		})
	}

	// Thread discussion, with comments that were promoted into decisions
	// marked as such.
	comments, err := e.src.Threads.ListComments(ctx, op.ID)
	if err != nil {
		return nil, fmt.Errorf("listing op thread comments: %w", err)
	}
	promoted := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		promoted[strings.TrimSpace(d.Summary)] = true
	}
	var discussion []string
	for _, c := range comments {
		line := fmt.Sprintf("%s %s: %s", c.At.UTC().Format(time.RFC3339), c.Author, c.Body)
		if promoted[strings.TrimSpace(c.Body)] {
			line += " [promoted to decision]"
		}
		discussion = append(discussion, line)
		evidence = append(evidence, Evidence{
			Claim:      c.Body,
			Confidence: intel.ConfidenceLow,
			Citations:  []Citation{{Kind: "comment", RefID: c.ID, Timestamp: c.At}},
		})
	}

	// Rescue / preservation: intel linked to the op that was promoted or
	// retired.
	var preservation []string
	listed := e.src.Intel.List(intel.Filter{IncludeRetired: true},
		intel.Viewer{UserID: params.UserID, ActiveOpID: op.ID}, now)
	var intelIDs []string
	for _, item := range listed {
		obj := item.Object
		intelIDs = append(intelIDs, obj.ID)
		for _, rec := range obj.PromotionHistory {
			if strings.HasPrefix(rec.Reason, "DENIED:") {
				continue
			}
			preservation = append(preservation, fmt.Sprintf("intel %q moved %s to %s: %s",
				obj.Title, rec.From, rec.To, rec.Reason))
			evidence = append(evidence, Evidence{
				Claim:      fmt.Sprintf("%s promoted to %s", obj.Title, rec.To),
				Confidence: obj.Confidence,
				TTL:        item.TTL,
				Citations:  []Citation{{Kind: "intel", RefID: obj.ID, Timestamp: rec.At}},
			})
		}
		if obj.RetiredAt != nil {
			preservation = append(preservation, fmt.Sprintf("intel %q retired", obj.Title))
		}
	}

	artifact := &Artifact{
		Title:      "After Action Report: " + op.Name,
		TemplateID: "aar.v1",
		Sections: []Section{
			{ID: "summary", Heading: "Summary", OrderIndex: 0,
				Body: fmt.Sprintf("Operation %s, %d recorded events, %d decisions.", op.Name, len(events), len(decisions))},
			{ID: "timeline", Heading: "Timeline", OrderIndex: 1, Body: joinOrUnknown(timeline)},
			{ID: "deviations", Heading: "Deviations", OrderIndex: 2, Body: joinOrUnknown(deviations)},
			{ID: "decisions", Heading: "Decisions", OrderIndex: 3, Body: joinOrUnknown(decisionLines)},
			{ID: "discussion", Heading: "Thread Discussion", OrderIndex: 4, Body: joinOrUnknown(discussion)},
			{ID: "preservation", Heading: "Rescue and Preservation", OrderIndex: 5, Body: joinOrUnknown(preservation)},
		},
		Evidence: evidence,
		Inputs: Inputs{
			Refs:         intelIDs,
			SnapshotRefs: intelIDs,
			GameVersion:  e.gameVersion(params),
			DataSources:  []string{"intel", "ops", "planning", "threads"},
		},
	}
	return artifact, nil
}

// generateIntelBrief is the intel-only digest: every visible object with
// its decay state and endorsement/challenge counts.
func (e *Engine) generateIntelBrief(ctx context.Context, scope Scope, params Params, now time.Time) (*Artifact, error) {
	listed := e.opIntel(params, now)

	var lines []string
	for _, item := range listed {
		state := "live"
		if item.TTL.Stale {
			state = "stale"
		}
		lines = append(lines, fmt.Sprintf("%s [%s, %s, %s] +%d/-%d",
			item.Object.Title, item.Object.Stratum, item.Object.Confidence, state,
			len(item.Object.Endorsements), len(item.Object.Challenges)))
	}

	return &Artifact{
		Title:      "Intel Brief",
		TemplateID: "intel-brief.v1",
		Sections: []Section{
			{ID: "summary", Heading: "Summary", OrderIndex: 0,
				Body: fmt.Sprintf("%d intel objects in scope.", len(listed))},
			{ID: "objects", Heading: "Objects", OrderIndex: 1,
				Body: joinOrUnknown(lines), LinkedRefs: intelRefs(listed)},
		},
		Evidence: intelEvidence(listed),
		Inputs: Inputs{
			Refs:         intelRefs(listed),
			SnapshotRefs: intelRefs(listed),
			GameVersion:  e.gameVersion(params),
			DataSources:  []string{"intel"},
		},
	}, nil
}

// generateIndustrialRun covers hauling and industry capacity: cargo-capable
// asset slots on the op roster plus cargo-tagged reference platforms.
func (e *Engine) generateIndustrialRun(ctx context.Context, scope Scope, params Params, now time.Time) (*Artifact, error) {
	var haulers []string
	var refs []string
	if params.OpID != "" {
		for _, entry := range e.src.RSVP.List(params.OpID) {
			if entry.Slot == nil {
				continue
			}
			if entry.Slot.CargoClass == "" && !hasToken(entry.Slot.Capabilities, "cargo") {
				continue
			}
			haulers = append(haulers, fmt.Sprintf("%s (%s, cargo class %s, crew %d/%d)",
				entry.Slot.AssetName, entry.UserID, orUnknown(entry.Slot.CargoClass),
				entry.Slot.CrewProvided, entry.Slot.CrewSeats))
			if entry.Slot.FitProfileID != "" {
				refs = append(refs, entry.Slot.FitProfileID)
			}
		}
	}

	var platforms []string
	evidence := make([]Evidence, 0)
	for _, spec := range e.src.Resolver.ListByCapability("cargo") {
		platforms = append(platforms, fmt.Sprintf("%s (%s, v%s)", spec.Name, spec.Manufacturer, spec.Version))
		evidence = append(evidence, Evidence{
			Claim:      spec.Name + " rated for cargo",
			Confidence: intel.ConfidenceHigh,
			Citations:  []Citation{{Kind: "reference", RefID: spec.ID, Timestamp: spec.ImportedAt}},
		})
	}

	return &Artifact{
		Title:      "Industrial Run",
		TemplateID: "industrial-run.v1",
		Sections: []Section{
			{ID: "haulers", Heading: "Declared Haulers", OrderIndex: 0, Body: joinOrUnknown(haulers)},
			{ID: "platforms", Heading: "Cargo Platforms", OrderIndex: 1, Body: joinOrUnknown(platforms)},
		},
		Evidence: evidence,
		Inputs: Inputs{
			Refs:         refs,
			SnapshotRefs: refs,
			GameVersion:  e.gameVersion(params),
			DataSources:  []string{"refdata", "rsvp"},
		},
	}, nil
}

// generateForcePosture summarizes standing capability: group fit profiles
// and the capability coverage they derive.
func (e *Engine) generateForcePosture(ctx context.Context, scope Scope, params Params, now time.Time) (*Artifact, error) {
	profiles := make([]*fitting.Profile, 0)
	for _, s := range []fitting.Scope{fitting.ScopeSquad, fitting.ScopeWing, fitting.ScopeFleet} {
		profiles = append(profiles, e.src.Fits.List(s)...)
	}

	var groups []string
	coverage := make(map[string]int)
	var refs []string
	evidence := make([]Evidence, 0)
	for _, p := range profiles {
		groups = append(groups, fmt.Sprintf("%s (%s, %d elements)", p.Name, p.Scope, len(p.Elements)))
		refs = append(refs, p.ID)
		for _, tag := range p.DerivedCapabilities {
			coverage[tag]++
		}
		evidence = append(evidence, Evidence{
			Claim:      fmt.Sprintf("%s fields %d elements", p.Name, len(p.Elements)),
			Confidence: intel.ConfidenceMed,
			Citations:  []Citation{{Kind: "fit", RefID: p.ID, Timestamp: p.UpdatedAt}},
			Note:       strings.Join(p.Validation.Unknowns, "; "),
		})
	}

	caps := make([]string, 0, len(coverage))
	for tag := range coverage {
		caps = append(caps, tag)
	}
	sort.Strings(caps)
	var coverageLines []string
	for _, tag := range caps {
		coverageLines = append(coverageLines, fmt.Sprintf("%s: %d groups", tag, coverage[tag]))
	}

	return &Artifact{
		Title:      "Force Posture",
		TemplateID: "force-posture.v1",
		Sections: []Section{
			{ID: "groups", Heading: "Standing Groups", OrderIndex: 0, Body: joinOrUnknown(groups)},
			{ID: "coverage", Heading: "Capability Coverage", OrderIndex: 1, Body: joinOrUnknown(coverageLines)},
		},
		Evidence: evidence,
		Inputs: Inputs{
			Refs:         refs,
			SnapshotRefs: refs,
			GameVersion:  e.gameVersion(params),
			DataSources:  []string{"fitting", "refdata"},
		},
	}, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownBody
	}
	return s
}

func joinOrUnknown(lines []string) string {
	if len(lines) == 0 {
		return unknownBody
	}
	return strings.Join(lines, "\n")
}

func hasToken(values []string, token string) bool {
	for _, v := range values {
		if strings.EqualFold(v, token) {
			return true
		}
	}
	return false
}
