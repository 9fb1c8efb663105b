package intel

import (
	"math"
	"time"
)

// TTLState computes the decay view of an object. A retired object is always
// stale; otherwise staleness begins the instant the TTL is exceeded.
// RemainingSeconds rounds up so a freshly touched object never reads 0.
func (e *Engine) TTLState(obj *Object, now time.Time) TTLState {
	ttlSeconds, ok := e.registry.TTLSeconds(obj.TTLProfile, string(obj.Type))
	if !ok {
		// Unknown profile: treat as immediately stale rather than immortal.
		return TTLState{Stale: true}
	}

	state := TTLState{TTLSeconds: ttlSeconds}
	age := now.Sub(obj.UpdatedAt)
	ttl := time.Duration(ttlSeconds) * time.Second

	if obj.RetiredAt != nil || age >= ttl {
		state.Stale = true
		return state
	}

	remaining := obj.UpdatedAt.Add(ttl).Sub(now)
	state.RemainingSeconds = int64(math.Ceil(remaining.Seconds()))
	if state.RemainingSeconds < 0 {
		state.RemainingSeconds = 0
	}

	ratio := float64(state.RemainingSeconds) / float64(ttlSeconds)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	state.DecayRatio = ratio
	return state
}
