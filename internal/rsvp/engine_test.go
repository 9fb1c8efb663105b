package rsvp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomadnexus/internal/kernel"
	"nomadnexus/internal/ops"
)

func newTestEngine(t *testing.T) (*Engine, *kernel.FixedClock) {
	t.Helper()
	clock := kernel.NewFixedClock(time.Date(2953, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewEngine(clock, nil), clock
}

func TestEnforcementTiers(t *testing.T) {
	engine, _ := newTestEngine(t)
	// FOCUSED seeds a HARD comms rule and a SOFT role rule.
	policy := engine.GetOrCreatePolicy("op-1", ops.PostureFocused)
	require.Len(t, policy.Rules, 3)

	base := Entry{OpID: "op-1", UserID: "user-a", Mode: ModeIndividual}

	t.Run("hard failure writes nothing", func(t *testing.T) {
		_, err := engine.Upsert(base, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, kernel.ErrPolicyViolation))
		var pv *kernel.PolicyViolationError
		require.True(t, errors.As(err, &pv))
		assert.Contains(t, pv.Violations, "comms readiness is required")

		_, err = engine.Get("op-1", "user-a")
		assert.ErrorIs(t, err, kernel.ErrNotFound)
	})

	t.Run("soft failure without exception writes nothing", func(t *testing.T) {
		ready := base
		ready.CommsReady = true
		_, err := engine.Upsert(ready, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, kernel.ErrPolicyViolation))

		_, err = engine.Get("op-1", "user-a")
		assert.ErrorIs(t, err, kernel.ErrNotFound)
	})

	t.Run("exception reason admits the entry and retains the flag", func(t *testing.T) {
		ready := base
		ready.CommsReady = true
		stored, err := engine.Upsert(ready, "solo pilot, no role needed")
		require.NoError(t, err)
		assert.Equal(t, []string{"a primary role should be declared"}, stored.Compliance.SoftFlags)
		assert.Equal(t, "solo pilot, no role needed", stored.Compliance.ExceptionReason)
		assert.Empty(t, stored.Compliance.HardViolations)
	})

	t.Run("fully compliant entry is clean", func(t *testing.T) {
		entry := Entry{OpID: "op-1", UserID: "user-b", Mode: ModeIndividual,
			CommsReady: true, PrimaryRole: "Lead"}
		stored, err := engine.Upsert(entry, "")
		require.NoError(t, err)
		assert.Empty(t, stored.Compliance.SoftFlags)
		assert.Empty(t, stored.Compliance.AdvisoryNotes)
	})
}

func TestPolicyRegeneration(t *testing.T) {
	engine, _ := newTestEngine(t)

	focused := engine.GetOrCreatePolicy("op-1", ops.PostureFocused)
	assert.Equal(t, string(ops.PostureFocused), focused.Posture)
	// Second call returns the existing policy regardless of posture.
	again := engine.GetOrCreatePolicy("op-1", ops.PostureCasual)
	assert.Equal(t, string(ops.PostureFocused), again.Posture)

	casual := engine.RegeneratePolicy("op-1", ops.PostureCasual)
	assert.Equal(t, string(ops.PostureCasual), casual.Posture)
	require.Len(t, casual.Rules, 2)
	assert.Equal(t, TierSoft, casual.Rules[0].Tier, "casual comms is soft")
	assert.Equal(t, TierAdvisory, casual.Rules[1].Tier, "casual role preference is advisory")
}

func TestPolicyReadsAreIsolated(t *testing.T) {
	engine, _ := newTestEngine(t)

	policy := engine.GetOrCreatePolicy("op-1", ops.PostureFocused)
	require.NotEmpty(t, policy.Rules)
	policy.Rules = policy.Rules[:0]
	policy.Posture = "mangled"

	stored := engine.GetOrCreatePolicy("op-1", ops.PostureFocused)
	assert.Equal(t, string(ops.PostureFocused), stored.Posture)
	require.Len(t, stored.Rules, 3)

	regenerated := engine.RegeneratePolicy("op-1", ops.PostureCasual)
	regenerated.Rules[0].Tier = TierHard
	stored = engine.GetOrCreatePolicy("op-1", ops.PostureCasual)
	assert.Equal(t, TierSoft, stored.Rules[0].Tier)
}

func TestUpsertOverwritesByKey(t *testing.T) {
	engine, clock := newTestEngine(t)
	engine.GetOrCreatePolicy("op-1", ops.PostureCasual)

	first, err := engine.Upsert(Entry{OpID: "op-1", UserID: "user-a", Mode: ModeIndividual,
		CommsReady: true, PrimaryRole: "Scout"}, "")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := engine.Upsert(Entry{OpID: "op-1", UserID: "user-a", Mode: ModeIndividual,
		CommsReady: true, PrimaryRole: "Medic"}, "")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt, "upsert keeps the original creation time")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Len(t, engine.List("op-1"), 1)
	assert.Equal(t, "Medic", engine.List("op-1")[0].PrimaryRole)
}

func TestAssetSlotRules(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.GetOrCreatePolicy("op-1", ops.PostureCasual)

	t.Run("slot on individual entry is rejected at upsert", func(t *testing.T) {
		_, err := engine.Upsert(Entry{OpID: "op-1", UserID: "user-a", Mode: ModeIndividual,
			CommsReady: true, Slot: &AssetSlot{AssetName: "Cutlass Red"}}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, kernel.ErrPolicyViolation))
	})

	t.Run("attach requires asset mode", func(t *testing.T) {
		_, err := engine.Upsert(Entry{OpID: "op-1", UserID: "user-a", Mode: ModeIndividual,
			CommsReady: true, PrimaryRole: "Scout"}, "")
		require.NoError(t, err)

		_, err = engine.AttachAssetSlot("op-1", "user-a", AssetSlot{AssetName: "Cutlass Red"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, kernel.ErrPolicyViolation))
	})

	t.Run("attach on asset entry succeeds and assigns an id", func(t *testing.T) {
		_, err := engine.Upsert(Entry{OpID: "op-1", UserID: "user-b", Mode: ModeAsset,
			CommsReady: true, PrimaryRole: "Pilot"}, "")
		require.NoError(t, err)

		entry, err := engine.AttachAssetSlot("op-1", "user-b", AssetSlot{
			AssetName:    "Cutlass Red",
			Capabilities: []string{"medical", "transport"},
			CrewSeats:    3,
		})
		require.NoError(t, err)
		require.NotNil(t, entry.Slot)
		assert.NotEmpty(t, entry.Slot.ID)
	})
}

func TestSeatCapacity(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.GetOrCreatePolicy("op-1", ops.PostureCasual)

	_, err := engine.Upsert(Entry{OpID: "op-1", UserID: "owner", Mode: ModeAsset,
		CommsReady: true, PrimaryRole: "Pilot",
		Slot: &AssetSlot{AssetName: "Carrack", Capabilities: []string{"exploration"}}}, "")
	require.NoError(t, err)

	_, err = engine.AddCrewSeatRequest("op-1", "owner", "Medic", 1)
	require.NoError(t, err)

	t.Run("first join fills the seat", func(t *testing.T) {
		entry, err := engine.JoinCrewSeat("op-1", "owner", "Medic", "user-b")
		require.NoError(t, err)
		assert.Equal(t, 0, entry.Slot.SeatRequests[0].OpenQty())
	})

	t.Run("second join exceeds capacity", func(t *testing.T) {
		_, err := engine.JoinCrewSeat("op-1", "owner", "medic", "user-c")
		require.Error(t, err)
		assert.True(t, errors.Is(err, kernel.ErrCapacityExceeded))
	})

	t.Run("release reopens the seat", func(t *testing.T) {
		_, err := engine.ReleaseCrewSeat("op-1", "owner", "Medic", "user-b")
		require.NoError(t, err)

		entry, err := engine.JoinCrewSeat("op-1", "owner", "Medic", "user-c")
		require.NoError(t, err)
		assert.Equal(t, 0, entry.Slot.SeatRequests[0].OpenQty())
	})

	t.Run("unknown role is not found", func(t *testing.T) {
		_, err := engine.JoinCrewSeat("op-1", "owner", "Gunner", "user-d")
		assert.ErrorIs(t, err, kernel.ErrNotFound)
	})
}

func TestRosterSummary(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.GetOrCreatePolicy("op-1", ops.PostureFocused)

	_, err := engine.Upsert(Entry{OpID: "op-1", UserID: "user-a", Mode: ModeIndividual,
		CommsReady: true, PrimaryRole: "Lead"}, "")
	require.NoError(t, err)

	_, err = engine.Upsert(Entry{OpID: "op-1", UserID: "owner", Mode: ModeAsset,
		CommsReady: true, PrimaryRole: "Pilot",
		Slot: &AssetSlot{AssetName: "Cutlass Red", Capabilities: []string{"medical", "transport"}}}, "")
	require.NoError(t, err)
	_, err = engine.AddCrewSeatRequest("op-1", "owner", "Medic", 2)
	require.NoError(t, err)

	// Withdrawn entries are excluded from aggregation.
	_, err = engine.Upsert(Entry{OpID: "op-1", UserID: "user-w", Mode: ModeIndividual,
		CommsReady: true, PrimaryRole: "Scout", Status: StatusWithdrawn}, "")
	require.NoError(t, err)

	summary := engine.RosterSummary("op-1")
	assert.Equal(t, 2, summary.EntryCount)
	assert.Equal(t, 1, summary.IndividualEntryCount)
	assert.Equal(t, 1, summary.AssetEntryCount)
	assert.Zero(t, summary.HardViolationCount)
	require.Len(t, summary.OpenSeats, 1)
	assert.Equal(t, "Medic", summary.OpenSeats[0].Role)
	assert.Equal(t, 2, summary.OpenSeats[0].OpenQty)

	_, err = engine.JoinCrewSeat("op-1", "owner", "Medic", "user-b")
	require.NoError(t, err)
	summary = engine.RosterSummary("op-1")
	assert.Equal(t, 1, summary.OpenSeats[0].OpenQty)
}

func TestMigrateLegacyNotes(t *testing.T) {
	assert.True(t, MigrateLegacyNotes("Comms-OK, bringing a Hornet"))
	assert.True(t, MigrateLegacyNotes("will be on comms all night"))
	assert.False(t, MigrateLegacyNotes("no mic this week"))
	assert.False(t, MigrateLegacyNotes(""))
}
