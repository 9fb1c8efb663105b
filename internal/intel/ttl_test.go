package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomadnexus/internal/kernel"
)

func TestTTLMonotonicDecay(t *testing.T) {
	base := time.Date(2953, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := kernel.NewFixedClock(base)
	engine := NewEngine(nil, clock, nil)

	obj, err := engine.Create(CreateInput{Type: TypeNote, Title: "patrol sighting", CreatedBy: "user-a"})
	require.NoError(t, err)

	full := engine.TTLState(obj, base)
	require.Greater(t, full.TTLSeconds, int64(0))
	assert.False(t, full.Stale)
	assert.Equal(t, full.TTLSeconds, full.RemainingSeconds)
	assert.Equal(t, 1.0, full.DecayRatio)

	// Remaining seconds never increase as now advances.
	ttl := time.Duration(full.TTLSeconds) * time.Second
	previous := full.RemainingSeconds
	for _, step := range []time.Duration{time.Second, time.Minute, time.Hour, ttl / 2} {
		state := engine.TTLState(obj, base.Add(step))
		assert.LessOrEqual(t, state.RemainingSeconds, previous)
		previous = state.RemainingSeconds
	}

	// Zero exactly at expiry, stale at and after that instant.
	atExpiry := engine.TTLState(obj, base.Add(ttl))
	assert.Zero(t, atExpiry.RemainingSeconds)
	assert.True(t, atExpiry.Stale)
	assert.Zero(t, atExpiry.DecayRatio)

	after := engine.TTLState(obj, base.Add(ttl+time.Second))
	assert.True(t, after.Stale)
	assert.Zero(t, after.RemainingSeconds)
}

func TestRetirementIsImmediatelyStale(t *testing.T) {
	base := time.Date(2953, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := kernel.NewFixedClock(base)
	engine := NewEngine(nil, clock, nil)

	obj, err := engine.Create(CreateInput{Type: TypePin, Title: "wreck site", CreatedBy: "user-a"})
	require.NoError(t, err)

	retired, err := engine.Retire(obj.ID, Actor{ID: "user-a", Role: RoleMember})
	require.NoError(t, err)
	require.NotNil(t, retired.RetiredAt)

	state := engine.TTLState(retired, base)
	assert.True(t, state.Stale, "retired objects are stale regardless of age")
	assert.Zero(t, state.DecayRatio)
}

func TestUnknownProfileIsStale(t *testing.T) {
	engine := NewEngine(nil, kernel.SystemClock(), nil)
	obj := &Object{TTLProfile: "no-such-profile", Type: TypeNote, UpdatedAt: time.Now()}
	assert.True(t, engine.TTLState(obj, time.Now()).Stale)
}
