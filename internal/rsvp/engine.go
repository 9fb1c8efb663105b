package rsvp

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"nomadnexus/internal/kernel"
	"nomadnexus/internal/ops"
)

type EventKind string

const (
	EventPolicyChanged EventKind = "policy_changed"
	EventEntryUpserted EventKind = "entry_upserted"
	EventSeatJoined    EventKind = "seat_joined"
	EventSeatReleased  EventKind = "seat_released"
)

type Event struct {
	Kind   EventKind
	OpID   string
	UserID string
}

// Engine owns posture-derived policies and the (operation, user) keyed RSVP
// entries. Every accepted write carries a freshly evaluated compliance
// result; a blocked write leaves no partial state behind.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	entries  map[string]*Entry
	clock    kernel.Clock
	log      *slog.Logger
	hub      kernel.Hub[Event]
}

func NewEngine(clock kernel.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = kernel.SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		policies: make(map[string]*Policy),
		entries:  make(map[string]*Entry),
		clock:    clock,
		log:      logger,
	}
}

func (e *Engine) Subscribe(fn func(Event)) func() {
	return e.hub.Subscribe(fn)
}

// GetOrCreatePolicy returns the operation's policy, seeding the default
// rule set for the posture on first use.
func (e *Engine) GetOrCreatePolicy(opID string, posture ops.Posture) *Policy {
	e.mu.Lock()
	defer e.mu.Unlock()
	if policy, ok := e.policies[opID]; ok {
		return clonePolicy(policy)
	}
	policy := defaultPolicy(opID, posture, e.clock.Now())
	e.policies[opID] = policy
	return clonePolicy(policy)
}

// RegeneratePolicy replaces the rule set when an operation's posture
// changes. Rules are regenerated, never merged.
func (e *Engine) RegeneratePolicy(opID string, posture ops.Posture) *Policy {
	e.mu.Lock()
	policy := defaultPolicy(opID, posture, e.clock.Now())
	e.policies[opID] = policy
	out := clonePolicy(policy)
	e.mu.Unlock()

	e.hub.Publish(Event{Kind: EventPolicyChanged, OpID: opID})
	return out
}

func clonePolicy(p *Policy) *Policy {
	out := *p
	out.Rules = append([]Rule(nil), p.Rules...)
	return &out
}

// Evaluate runs every rule and files each failure into the bucket for its
// enforcement tier.
func (e *Engine) Evaluate(entry *Entry, policy *Policy) Compliance {
	var result Compliance
	for _, rule := range policy.Rules {
		if rule.Satisfied(entry) {
			continue
		}
		switch rule.Tier {
		case TierHard:
			result.HardViolations = append(result.HardViolations, rule.Message)
		case TierSoft:
			result.SoftFlags = append(result.SoftFlags, rule.Message)
		default:
			result.AdvisoryNotes = append(result.AdvisoryNotes, rule.Message)
		}
	}
	return result
}

// Upsert re-evaluates compliance and writes the entry keyed by (operation,
// user). A hard failure or an unexcepted soft failure blocks the write
// entirely.
func (e *Engine) Upsert(entry Entry, exceptionReason string) (*Entry, error) {
	if !entry.Mode.Valid() {
		return nil, fmt.Errorf("upserting rsvp for %s/%s: invalid mode: %q", entry.OpID, entry.UserID, entry.Mode)
	}
	if entry.Status == "" {
		entry.Status = StatusSubmitted
	}
	if !entry.Status.Valid() {
		return nil, fmt.Errorf("upserting rsvp for %s/%s: invalid status: %q", entry.OpID, entry.UserID, entry.Status)
	}
	if entry.Slot != nil && entry.Mode != ModeAsset {
		return nil, fmt.Errorf("upserting rsvp for %s/%s: %w", entry.OpID, entry.UserID,
			kernel.NewPolicyViolation("asset slots may only be attached to ASSET-mode entries"))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	policy, ok := e.policies[entry.OpID]
	if !ok {
		policy = defaultPolicy(entry.OpID, ops.PostureCasual, e.clock.Now())
		e.policies[entry.OpID] = policy
	}

	compliance := e.Evaluate(&entry, policy)
	if len(compliance.HardViolations) > 0 {
		return nil, fmt.Errorf("upserting rsvp for %s/%s: %w", entry.OpID, entry.UserID,
			kernel.NewPolicyViolation("hard requirement failed", compliance.HardViolations...))
	}
	if len(compliance.SoftFlags) > 0 && strings.TrimSpace(exceptionReason) == "" {
		return nil, fmt.Errorf("upserting rsvp for %s/%s: %w", entry.OpID, entry.UserID,
			kernel.NewPolicyViolation("soft requirement failed without an exception reason", compliance.SoftFlags...))
	}
	compliance.ExceptionReason = strings.TrimSpace(exceptionReason)

	now := e.clock.Now()
	key := entryKey(entry.OpID, entry.UserID)
	if existing, ok := e.entries[key]; ok {
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.Compliance = compliance
	if entry.Slot != nil && entry.Slot.ID == "" {
		entry.Slot.ID = uuid.NewString()
	}

	stored := cloneEntry(&entry)
	e.entries[key] = stored
	out := cloneEntry(stored)

	e.log.Info("rsvp upserted", "op", entry.OpID, "user", entry.UserID, "mode", entry.Mode,
		"soft_flags", len(compliance.SoftFlags), "advisory", len(compliance.AdvisoryNotes))
	e.hub.Publish(Event{Kind: EventEntryUpserted, OpID: entry.OpID, UserID: entry.UserID})
	return out, nil
}

func (e *Engine) Get(opID, userID string) (*Entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.entries[entryKey(opID, userID)]
	if !ok {
		return nil, fmt.Errorf("getting rsvp for %s/%s: %w", opID, userID, kernel.ErrNotFound)
	}
	return cloneEntry(entry), nil
}

func (e *Engine) List(opID string) []*Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Entry, 0)
	for _, entry := range e.entries {
		if entry.OpID != opID {
			continue
		}
		out = append(out, cloneEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// AttachAssetSlot sets the asset declaration on an existing ASSET-mode
// entry and re-evaluates compliance against the stored policy.
func (e *Engine) AttachAssetSlot(opID, userID string, slot AssetSlot) (*Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[entryKey(opID, userID)]
	if !ok {
		return nil, fmt.Errorf("attaching asset slot for %s/%s: %w", opID, userID, kernel.ErrNotFound)
	}
	if entry.Mode != ModeAsset {
		return nil, fmt.Errorf("attaching asset slot for %s/%s: %w", opID, userID,
			kernel.NewPolicyViolation("asset slots may only be attached to ASSET-mode entries"))
	}

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	candidate := cloneEntry(entry)
	candidate.Slot = &slot

	if policy, ok := e.policies[opID]; ok {
		compliance := e.Evaluate(candidate, policy)
		compliance.ExceptionReason = entry.Compliance.ExceptionReason
		if len(compliance.HardViolations) > 0 {
			return nil, fmt.Errorf("attaching asset slot for %s/%s: %w", opID, userID,
				kernel.NewPolicyViolation("hard requirement failed", compliance.HardViolations...))
		}
		candidate.Compliance = compliance
	}

	candidate.UpdatedAt = e.clock.Now()
	e.entries[entryKey(opID, userID)] = candidate
	return cloneEntry(candidate), nil
}

// AddCrewSeatRequest appends a seat request to the entry's asset slot.
func (e *Engine) AddCrewSeatRequest(opID, userID, role string, quantity int) (*Entry, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("adding crew seat request for %s/%s: quantity must be positive", opID, userID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[entryKey(opID, userID)]
	if !ok || entry.Slot == nil {
		return nil, fmt.Errorf("adding crew seat request for %s/%s: asset slot: %w", opID, userID, kernel.ErrNotFound)
	}
	for _, req := range entry.Slot.SeatRequests {
		if strings.EqualFold(req.Role, role) {
			return nil, fmt.Errorf("adding crew seat request for %s/%s: role %s already requested", opID, userID, role)
		}
	}

	entry.Slot.SeatRequests = append(entry.Slot.SeatRequests, SeatRequest{Role: role, Quantity: quantity})
	entry.UpdatedAt = e.clock.Now()
	return cloneEntry(entry), nil
}

// JoinCrewSeat binds a user to an open seat. The capacity check counts
// assignments in REQUESTED or ACCEPTED against the requested quantity.
func (e *Engine) JoinCrewSeat(opID, ownerID, role, userID string) (*Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[entryKey(opID, ownerID)]
	if !ok || entry.Slot == nil {
		return nil, fmt.Errorf("joining crew seat for %s/%s: asset slot: %w", opID, ownerID, kernel.ErrNotFound)
	}

	request := findSeatRequest(entry.Slot, role)
	if request == nil {
		return nil, fmt.Errorf("joining crew seat for %s/%s: no open request for role %s: %w",
			opID, ownerID, role, kernel.ErrNotFound)
	}
	if request.OpenQty() == 0 {
		return nil, fmt.Errorf("joining crew seat for %s/%s: role %s: %w",
			opID, ownerID, role, kernel.ErrCapacityExceeded)
	}
	for _, a := range request.Assignments {
		if a.UserID == userID && a.Status.Active() {
			return nil, fmt.Errorf("joining crew seat for %s/%s: %s already holds a %s seat",
				opID, ownerID, userID, role)
		}
	}

	request.Assignments = append(request.Assignments, SeatAssignment{
		UserID: userID,
		Status: AssignmentRequested,
		At:     e.clock.Now(),
	})
	entry.UpdatedAt = e.clock.Now()
	out := cloneEntry(entry)

	e.hub.Publish(Event{Kind: EventSeatJoined, OpID: opID, UserID: userID})
	return out, nil
}

// ReleaseCrewSeat frees a user's active assignment on a seat request.
func (e *Engine) ReleaseCrewSeat(opID, ownerID, role, userID string) (*Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[entryKey(opID, ownerID)]
	if !ok || entry.Slot == nil {
		return nil, fmt.Errorf("releasing crew seat for %s/%s: asset slot: %w", opID, ownerID, kernel.ErrNotFound)
	}
	request := findSeatRequest(entry.Slot, role)
	if request == nil {
		return nil, fmt.Errorf("releasing crew seat for %s/%s: no request for role %s: %w",
			opID, ownerID, role, kernel.ErrNotFound)
	}

	for i := range request.Assignments {
		if request.Assignments[i].UserID == userID && request.Assignments[i].Status.Active() {
			request.Assignments[i].Status = AssignmentReleased
			entry.UpdatedAt = e.clock.Now()
			out := cloneEntry(entry)
			e.hub.Publish(Event{Kind: EventSeatReleased, OpID: opID, UserID: userID})
			return out, nil
		}
	}
	return nil, fmt.Errorf("releasing crew seat for %s/%s: no active assignment for %s: %w",
		opID, ownerID, userID, kernel.ErrNotFound)
}

// RosterSummary aggregates SUBMITTED entries only.
func (e *Engine) RosterSummary(opID string) Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	summary := Summary{OpID: opID}
	for _, entry := range e.entries {
		if entry.OpID != opID || entry.Status != StatusSubmitted {
			continue
		}
		summary.EntryCount++
		switch entry.Mode {
		case ModeAsset:
			summary.AssetEntryCount++
		default:
			summary.IndividualEntryCount++
		}
		summary.HardViolationCount += len(entry.Compliance.HardViolations)
		summary.SoftFlagCount += len(entry.Compliance.SoftFlags)
		summary.AdvisoryNoteCount += len(entry.Compliance.AdvisoryNotes)

		if entry.Slot == nil {
			continue
		}
		for _, req := range entry.Slot.SeatRequests {
			open := req.OpenQty()
			summary.OpenSeats = append(summary.OpenSeats, OpenSeat{
				SlotID:       entry.Slot.ID,
				AssetName:    entry.Slot.AssetName,
				OwnerID:      entry.UserID,
				Role:         req.Role,
				RequestedQty: req.Quantity,
				OpenQty:      open,
			})
		}
	}

	sort.Slice(summary.OpenSeats, func(i, j int) bool {
		if summary.OpenSeats[i].SlotID != summary.OpenSeats[j].SlotID {
			return summary.OpenSeats[i].SlotID < summary.OpenSeats[j].SlotID
		}
		return summary.OpenSeats[i].Role < summary.OpenSeats[j].Role
	})
	return summary
}

func entryKey(opID, userID string) string {
	return opID + "|" + userID
}

func findSeatRequest(slot *AssetSlot, role string) *SeatRequest {
	for i := range slot.SeatRequests {
		if strings.EqualFold(slot.SeatRequests[i].Role, role) {
			return &slot.SeatRequests[i]
		}
	}
	return nil
}

func cloneEntry(entry *Entry) *Entry {
	out := *entry
	out.Compliance.HardViolations = append([]string(nil), entry.Compliance.HardViolations...)
	out.Compliance.SoftFlags = append([]string(nil), entry.Compliance.SoftFlags...)
	out.Compliance.AdvisoryNotes = append([]string(nil), entry.Compliance.AdvisoryNotes...)
	if entry.Slot != nil {
		slot := *entry.Slot
		slot.Capabilities = append([]string(nil), entry.Slot.Capabilities...)
		slot.SeatRequests = make([]SeatRequest, len(entry.Slot.SeatRequests))
		for i, req := range entry.Slot.SeatRequests {
			copied := req
			copied.Assignments = append([]SeatAssignment(nil), req.Assignments...)
			slot.SeatRequests[i] = copied
		}
		out.Slot = &slot
	}
	return &out
}
