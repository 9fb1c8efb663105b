package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomadnexus/internal/config"
	"nomadnexus/internal/fitting"
	"nomadnexus/internal/intel"
	"nomadnexus/internal/kernel"
	"nomadnexus/internal/narrative"
	"nomadnexus/internal/ops"
	"nomadnexus/internal/refdata"
	"nomadnexus/internal/rsvp"
)

type harness struct {
	engine    *Engine
	clock     *kernel.FixedClock
	resolver  *refdata.Resolver
	fits      *fitting.Store
	intel     *intel.Engine
	rsvp      *rsvp.Engine
	opsMem    *ops.MemoryProvider
	planning  *ops.MemoryPlanning
	threads   *ops.MemoryThreads
	narrative *narrative.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := kernel.NewFixedClock(time.Date(2953, 6, 1, 12, 0, 0, 0, time.UTC))
	resolver := refdata.NewResolver("3.23", nil)
	fits := fitting.NewStore(fitting.NewValidator(resolver), clock, nil)
	intelEngine := intel.NewEngine(config.DefaultTTLRegistry(), clock, nil)
	rsvpEngine := rsvp.NewEngine(clock, nil)
	opsMem := ops.NewMemoryProvider()
	planning := ops.NewMemoryPlanning()
	threads := ops.NewMemoryThreads()
	sink := narrative.NewMemory()

	h := &harness{
		clock:     clock,
		resolver:  resolver,
		fits:      fits,
		intel:     intelEngine,
		rsvp:      rsvpEngine,
		opsMem:    opsMem,
		planning:  planning,
		threads:   threads,
		narrative: sink,
	}
	h.engine = NewEngine(Sources{
		Resolver:  resolver,
		Fits:      fits,
		Intel:     intelEngine,
		RSVP:      rsvpEngine,
		Ops:       opsMem,
		Planning:  planning,
		Threads:   threads,
		Narrative: sink,
	}, clock, nil)

	seq := 0
	h.engine.SetIDFunc(func() string {
		seq++
		return fmt.Sprintf("report-%d", seq)
	})
	return h
}

func (h *harness) seedOperation(posture ops.Posture) *ops.Operation {
	return h.opsMem.PutOperation(ops.Operation{
		ID:          "op-1",
		Name:        "Daymar Sweep",
		Posture:     posture,
		AOAnchor:    "Daymar",
		CommanderID: "cdr-vale",
		Status:      "ACTIVE",
		StartedAt:   h.clock.Now().Add(-2 * time.Hour),
	})
}

func (h *harness) seedIntel(t *testing.T, title, node string, tags []string) *intel.Object {
	t.Helper()
	obj, err := h.intel.Create(intel.CreateInput{
		Type:      intel.TypePin,
		Scope:     intel.Scope{Kind: intel.ScopeOrg},
		Anchor:    intel.Anchor{Node: node},
		Title:     title,
		Tags:      tags,
		CreatedBy: "scout-1",
	})
	require.NoError(t, err)
	return obj
}

func TestGeneratePreviewDeterminism(t *testing.T) {
	h := newHarness(t)
	h.seedIntel(t, "Outpost contact", "Daymar", []string{"hostile"})
	h.seedIntel(t, "Wreck field", "Yela", []string{"salvage", "hostile"})
	h.seedIntel(t, "Patrol route", "Daymar", nil)

	params := Params{UserID: "scout-1", Tags: []string{"Hostile", "salvage"}}
	now := h.clock.Now()

	first, err := h.engine.GeneratePreview(context.Background(), KindSitrep, ScopeOrg, params, now)
	require.NoError(t, err)
	second, err := h.engine.GeneratePreview(context.Background(), KindSitrep, ScopeOrg, params, now)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	t.Run("cached payload is isolated from callers", func(t *testing.T) {
		first.Sections[0].Body = "tampered"
		again, err := h.engine.GeneratePreview(context.Background(), KindSitrep, ScopeOrg, params, now)
		require.NoError(t, err)
		assert.Equal(t, second, again)
	})

	t.Run("tag order does not change the cache key", func(t *testing.T) {
		swapped := Params{UserID: "scout-1", Tags: []string{"salvage", "hostile"}}
		again, err := h.engine.GeneratePreview(context.Background(), KindSitrep, ScopeOrg, swapped, now)
		require.NoError(t, err)
		assert.Equal(t, second, again)
	})

	t.Run("unknown kind is not found", func(t *testing.T) {
		_, err := h.engine.GeneratePreview(context.Background(), Kind("WEATHER"), ScopeOrg, params, now)
		assert.ErrorIs(t, err, kernel.ErrNotFound)
	})
}

func TestSectionAndCitationOrdering(t *testing.T) {
	h := newHarness(t)
	h.seedOperation(ops.PostureCasual)
	h.clock.Advance(time.Minute)
	h.seedIntel(t, "Later object", "Daymar", nil)

	artifact, err := h.engine.GeneratePreview(context.Background(), KindOpBrief, ScopeOp,
		Params{OpID: "op-1", UserID: "scout-1"}, h.clock.Now())
	require.NoError(t, err)

	for i := 1; i < len(artifact.Sections); i++ {
		prev, cur := artifact.Sections[i-1], artifact.Sections[i]
		assert.True(t, prev.OrderIndex < cur.OrderIndex ||
			(prev.OrderIndex == cur.OrderIndex && prev.ID < cur.ID))
	}
	assert.Equal(t, []string{"intel", "ops", "planning", "rsvp"}, artifact.Inputs.DataSources)
}

func TestGenerateStoresValidatesAndMirrors(t *testing.T) {
	h := newHarness(t)
	h.seedOperation(ops.PostureFocused)
	obj := h.seedIntel(t, "Crash site", "Daymar", nil)

	artifact, err := h.engine.Generate(context.Background(), KindOpBrief, ScopeOp,
		Params{OpID: "op-1", UserID: "scout-1"}, "cdr-vale")
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.ID)
	assert.Equal(t, "cdr-vale", artifact.GeneratedBy)
	assert.Equal(t, h.clock.Now(), artifact.GeneratedAt)

	t.Run("resolvable input refs produce no warnings", func(t *testing.T) {
		for _, w := range artifact.Warnings {
			assert.NotEqual(t, kernel.WarnUnresolvedRef, w.Code, "ref %s", obj.ID)
		}
	})

	t.Run("stored artifact is retrievable", func(t *testing.T) {
		got, err := h.engine.GetReport(artifact.ID)
		require.NoError(t, err)
		assert.Equal(t, artifact, got)
	})

	t.Run("op brief mirrors into the narrative log", func(t *testing.T) {
		entries := h.narrative.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, artifact.ID, entries[0].ReportID)
		assert.Equal(t, string(KindOpBrief), entries[0].Kind)
	})

	t.Run("sitrep does not mirror", func(t *testing.T) {
		_, err := h.engine.Generate(context.Background(), KindSitrep, ScopeOrg,
			Params{UserID: "scout-1"}, "cdr-vale")
		require.NoError(t, err)
		assert.Len(t, h.narrative.Entries(), 1)
	})

	t.Run("delete removes the artifact", func(t *testing.T) {
		require.NoError(t, h.engine.DeleteReport(artifact.ID))
		_, err := h.engine.GetReport(artifact.ID)
		assert.ErrorIs(t, err, kernel.ErrNotFound)
		assert.ErrorIs(t, h.engine.DeleteReport(artifact.ID), kernel.ErrNotFound)
	})
}

type failingLog struct{}

func (failingLog) Append(ctx context.Context, entry narrative.Entry) error {
	return fmt.Errorf("sink unavailable")
}

func TestMirrorFailureIsAWarningOnly(t *testing.T) {
	h := newHarness(t)
	h.seedOperation(ops.PostureCasual)
	h.engine.src.Narrative = failingLog{}

	artifact, err := h.engine.Generate(context.Background(), KindOpBrief, ScopeOp,
		Params{OpID: "op-1"}, "cdr-vale")
	require.NoError(t, err)

	found := false
	for _, w := range artifact.Warnings {
		if w.Code == kernel.WarnSideEffectFailed {
			found = true
		}
	}
	assert.True(t, found, "side-effect failure should surface as a warning")

	stored, err := h.engine.GetReport(artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, artifact.Warnings, stored.Warnings)
}

func TestAARMarksEmptySectionsUnknown(t *testing.T) {
	h := newHarness(t)
	h.seedOperation(ops.PostureFocused)

	t.Run("no corroborating records", func(t *testing.T) {
		artifact, err := h.engine.GeneratePreview(context.Background(), KindAAR, ScopeOp,
			Params{OpID: "op-1"}, h.clock.Now())
		require.NoError(t, err)

		bodies := map[string]string{}
		for _, s := range artifact.Sections {
			bodies[s.ID] = s.Body
		}
		assert.Equal(t, unknownBody, bodies["timeline"])
		assert.Equal(t, unknownBody, bodies["deviations"])
		assert.Equal(t, unknownBody, bodies["decisions"])
		assert.Equal(t, unknownBody, bodies["discussion"])
		assert.Equal(t, unknownBody, bodies["preservation"])
	})

	t.Run("records fill the sections", func(t *testing.T) {
		require.NoError(t, h.opsMem.AppendOperationEvent(context.Background(), ops.OperationEvent{
			ID: "ev-1", OpID: "op-1", Kind: "contact", Summary: "hostile flight over AO", At: h.clock.Now(),
		}))
		h.planning.PutAssumption(ops.Assumption{
			ID: "as-1", OpID: "op-1", Text: "AO is clear",
			Challenged: true, ChallengedBy: "scout-1", ChallengeNote: "contact at dawn",
		})
		h.planning.PutDecision(ops.Decision{
			ID: "de-1", OpID: "op-1", Summary: "abort second sweep",
			Rationale: "contact density", DecidedBy: "cdr-vale", At: h.clock.Now(),
		})
		h.threads.PutComment(ops.Comment{
			ID: "co-1", OpID: "op-1", Author: "scout-1",
			Body: "abort second sweep", At: h.clock.Now(),
		})
		h.threads.PutComment(ops.Comment{
			ID: "co-2", OpID: "op-1", Author: "user-b",
			Body: "fuel margin tight on the return leg", At: h.clock.Now(),
		})

		obj := h.seedIntel(t, "Downed pilot", "Daymar", nil)
		_, err := h.intel.Promote(obj.ID, intel.Actor{ID: "cdr-vale", Role: intel.RoleCommand},
			intel.StratumSharedCommons, "verified by two flights")
		require.NoError(t, err)

		h.clock.Advance(11 * time.Second) // new cache bucket
		artifact, err := h.engine.GeneratePreview(context.Background(), KindAAR, ScopeOp,
			Params{OpID: "op-1", UserID: "cdr-vale"}, h.clock.Now())
		require.NoError(t, err)

		bodies := map[string]string{}
		for _, s := range artifact.Sections {
			bodies[s.ID] = s.Body
		}
		assert.Contains(t, bodies["timeline"], "hostile flight over AO")
		assert.Contains(t, bodies["deviations"], "AO is clear")
		assert.Contains(t, bodies["decisions"], "abort second sweep")
		assert.Contains(t, bodies["discussion"], "fuel margin tight on the return leg")
		assert.Contains(t, bodies["discussion"], "abort second sweep [promoted to decision]")
		assert.Contains(t, bodies["preservation"], "Downed pilot")
	})
}

func TestEndToEndFocusedOperation(t *testing.T) {
	h := newHarness(t)
	op := h.seedOperation(ops.PostureFocused)

	policy := h.rsvp.GetOrCreatePolicy(op.ID, op.Posture)
	hard := 0
	for _, rule := range policy.Rules {
		if rule.Tier == rsvp.TierHard && rule.Kind == rsvp.RuleComms {
			hard++
		}
	}
	require.Equal(t, 1, hard, "focused posture seeds a hard comms rule")

	// Legacy free-text readiness migrates into the structured field.
	_, err := h.rsvp.Upsert(rsvp.Entry{
		OpID: op.ID, UserID: "user-a", Mode: rsvp.ModeIndividual,
		PrimaryRole: "Lead", Notes: "comms-ok",
		CommsReady: rsvp.MigrateLegacyNotes("comms-ok"),
	}, "")
	require.NoError(t, err)

	_, err = h.rsvp.Upsert(rsvp.Entry{
		OpID: op.ID, UserID: "owner", Mode: rsvp.ModeAsset,
		PrimaryRole: "Pilot", CommsReady: true,
		Slot: &rsvp.AssetSlot{
			AssetName:    "Cutlass Red",
			Capabilities: []string{"medical", "transport"},
			Medical:      true,
		},
	}, "")
	require.NoError(t, err)
	_, err = h.rsvp.AddCrewSeatRequest(op.ID, "owner", "Medic", 1)
	require.NoError(t, err)

	summary := h.rsvp.RosterSummary(op.ID)
	assert.Equal(t, 1, summary.AssetEntryCount)
	require.Len(t, summary.OpenSeats, 1)
	assert.Equal(t, "Medic", summary.OpenSeats[0].Role)
	assert.Equal(t, 1, summary.OpenSeats[0].OpenQty)

	brief, err := h.engine.Generate(context.Background(), KindOpBrief, ScopeOp,
		Params{OpID: op.ID, UserID: "user-a"}, "user-a")
	require.NoError(t, err)
	var openSeats string
	for _, s := range brief.Sections {
		if s.ID == "open-seats" {
			openSeats = s.Body
		}
	}
	assert.Contains(t, openSeats, "Medic aboard Cutlass Red: 1 open")

	_, err = h.rsvp.JoinCrewSeat(op.ID, "owner", "Medic", "user-b")
	require.NoError(t, err)
	summary = h.rsvp.RosterSummary(op.ID)
	assert.Equal(t, 0, summary.OpenSeats[0].OpenQty)
}
