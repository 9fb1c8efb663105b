package kernel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyViolationError(t *testing.T) {
	err := NewPolicyViolation("hard requirement failed", "comms readiness required")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyViolation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "comms readiness required")

	var pv *PolicyViolationError
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, []string{"comms readiness required"}, pv.Violations)
}

func TestDedupeWarnings(t *testing.T) {
	in := []Warning{
		{Code: WarnMissingData, Message: "no record for xs-55"},
		{Code: WarnVersionFallback, Message: "requested 2.5, substituted 2.0"},
		{Code: WarnMissingData, Message: "no record for xs-55"},
	}
	out := DedupeWarnings(in)
	require.Len(t, out, 2)
	assert.Equal(t, WarnMissingData, out[0].Code)
	assert.Equal(t, WarnVersionFallback, out[1].Code)
	assert.Nil(t, DedupeWarnings(nil))
}

func TestHubSubscribeAndDispose(t *testing.T) {
	var hub Hub[string]
	var got []string
	cancel := hub.Subscribe(func(s string) { got = append(got, s) })
	hub.Subscribe(func(string) { panic("listener failure") })

	hub.Publish("first")
	cancel()
	hub.Publish("second")

	assert.Equal(t, []string{"first"}, got)
}

func TestFixedClock(t *testing.T) {
	base := time.Date(2953, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFixedClock(base)
	assert.Equal(t, base, clock.Now())
	clock.Advance(90 * time.Second)
	assert.Equal(t, base.Add(90*time.Second), clock.Now())
}
