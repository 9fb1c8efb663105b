package intel

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nomadnexus/internal/config"
	"nomadnexus/internal/kernel"
)

const historyCap = 64

type EventKind string

const (
	EventCreated         EventKind = "created"
	EventEndorsed        EventKind = "endorsed"
	EventChallenged      EventKind = "challenged"
	EventPromoted        EventKind = "promoted"
	EventPromotionDenied EventKind = "promotion_denied"
	EventDemoted         EventKind = "demoted"
	EventRetired         EventKind = "retired"
	EventLinked          EventKind = "linked"
)

type Event struct {
	Kind     EventKind
	ObjectID string
}

// Engine owns the intel-object store: creation, scoped listing, time decay,
// endorsement and challenge recording, and the permission-gated stratum
// state machine. Every mutating operation bumps UpdatedAt, denied
// promotions included.
type Engine struct {
	mu       sync.RWMutex
	objects  map[string]*Object
	registry *config.TTLRegistry
	clock    kernel.Clock
	log      *slog.Logger
	hub      kernel.Hub[Event]
}

func NewEngine(registry *config.TTLRegistry, clock kernel.Clock, logger *slog.Logger) *Engine {
	if registry == nil {
		registry = config.DefaultTTLRegistry()
	}
	if clock == nil {
		clock = kernel.SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		objects:  make(map[string]*Object),
		registry: registry,
		clock:    clock,
		log:      logger,
	}
}

// Subscribe registers a listener for store events and returns its disposer.
// Listener failures never roll back the mutation that triggered them.
func (e *Engine) Subscribe(fn func(Event)) func() {
	return e.hub.Subscribe(fn)
}

type CreateInput struct {
	Type       Type
	Scope      Scope
	Anchor     Anchor
	Title      string
	Body       string
	Tags       []string
	Confidence Confidence
	CreatedBy  string
}

// Create stores a new object at the PERSONAL stratum with the TTL profile
// derived from it.
func (e *Engine) Create(in CreateInput) (*Object, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("creating intel object: invalid type: %q", in.Type)
	}
	if in.Confidence == "" {
		in.Confidence = ConfidenceMed
	}
	if !in.Confidence.Valid() {
		return nil, fmt.Errorf("creating intel object: invalid confidence: %q", in.Confidence)
	}
	if in.Scope.Kind == "" {
		in.Scope.Kind = ScopePersonal
	}
	if !in.Scope.Kind.Valid() {
		return nil, fmt.Errorf("creating intel object: invalid scope kind: %q", in.Scope.Kind)
	}

	profile, ok := e.registry.ProfileForStratum(string(StratumPersonal))
	if !ok {
		return nil, fmt.Errorf("creating intel object: no ttl profile for stratum %s", StratumPersonal)
	}

	now := e.clock.Now()
	obj := &Object{
		ID:         uuid.NewString(),
		Type:       in.Type,
		Stratum:    StratumPersonal,
		Scope:      in.Scope,
		Anchor:     in.Anchor,
		Title:      in.Title,
		Body:       in.Body,
		Tags:       append([]string(nil), in.Tags...),
		Confidence: in.Confidence,
		TTLProfile: profile,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	e.mu.Lock()
	e.objects[obj.ID] = obj
	out := cloneObject(obj)
	e.mu.Unlock()

	e.log.Info("intel object created", "id", obj.ID, "type", obj.Type, "scope", obj.Scope.Kind)
	e.hub.Publish(Event{Kind: EventCreated, ObjectID: obj.ID})
	return out, nil
}

func (e *Engine) Get(id string) (*Object, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	obj, ok := e.objects[id]
	if !ok {
		return nil, fmt.Errorf("getting intel object %s: %w", id, kernel.ErrNotFound)
	}
	return cloneObject(obj), nil
}

// List applies, in order: scope visibility, retired inclusion, field
// filters, TTL computation, then the optional stale exclusion.
func (e *Engine) List(filter Filter, viewer Viewer, now time.Time) []Listed {
	e.mu.RLock()
	objects := make([]*Object, 0, len(e.objects))
	for _, obj := range e.objects {
		objects = append(objects, cloneObject(obj))
	}
	e.mu.RUnlock()

	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].CreatedAt.Equal(objects[j].CreatedAt) {
			return objects[i].CreatedAt.Before(objects[j].CreatedAt)
		}
		return objects[i].ID < objects[j].ID
	})

	out := make([]Listed, 0, len(objects))
	for _, obj := range objects {
		if !visibleTo(obj, viewer) {
			continue
		}
		if obj.RetiredAt != nil && !filter.IncludeRetired {
			continue
		}
		if !matchesFilter(obj, filter) {
			continue
		}
		state := e.TTLState(obj, now)
		if filter.ExcludeStale && state.Stale {
			continue
		}
		out = append(out, Listed{Object: obj, TTL: state})
	}
	return out
}

func (e *Engine) Endorse(id string, actor Actor, note string) (*Object, error) {
	obj, err := e.mutate(id, EventEndorsed, func(obj *Object, now time.Time) error {
		obj.Endorsements = append(obj.Endorsements, Endorsement{Actor: actor.ID, At: now, Note: note})
		if len(obj.Endorsements) > historyCap {
			obj.Endorsements = obj.Endorsements[len(obj.Endorsements)-historyCap:]
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("endorsing intel object %s: %w", id, err)
	}
	return obj, nil
}

func (e *Engine) Challenge(id string, actor Actor, note string) (*Object, error) {
	obj, err := e.mutate(id, EventChallenged, func(obj *Object, now time.Time) error {
		obj.Challenges = append(obj.Challenges, Challenge{Actor: actor.ID, At: now, Note: note})
		if len(obj.Challenges) > historyCap {
			obj.Challenges = obj.Challenges[len(obj.Challenges)-historyCap:]
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("challenging intel object %s: %w", id, err)
	}
	return obj, nil
}

// Promote moves an object up the stratum ladder. A same-stratum promotion is
// a no-op that is still logged. On a permission denial the stratum and TTL
// profile are left unchanged, the audit entry's reason is prefixed "DENIED:",
// UpdatedAt still advances, and both the record and a policy-violation error
// are returned.
func (e *Engine) Promote(id string, actor Actor, to Stratum, reason string) (*Object, error) {
	return e.transition(id, actor, to, reason, false)
}

// Demote moves an object down the ladder with the same audit rules.
func (e *Engine) Demote(id string, actor Actor, to Stratum, reason string) (*Object, error) {
	return e.transition(id, actor, to, reason, true)
}

func (e *Engine) transition(id string, actor Actor, to Stratum, reason string, demote bool) (*Object, error) {
	verb := "promoting"
	if demote {
		verb = "demoting"
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%s intel object %s: invalid stratum: %q", verb, id, to)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%s intel object %s: %w", verb, id,
			kernel.NewPolicyViolation("a promotion reason is required"))
	}

	e.mu.Lock()
	obj, ok := e.objects[id]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s intel object %s: %w", verb, id, kernel.ErrNotFound)
	}

	from := obj.Stratum
	if demote && to.Rank() > from.Rank() {
		e.mu.Unlock()
		return nil, fmt.Errorf("demoting intel object %s: target stratum %s is above %s", id, to, from)
	}
	if !demote && to.Rank() < from.Rank() {
		e.mu.Unlock()
		return nil, fmt.Errorf("promoting intel object %s: target stratum %s is below %s", id, to, from)
	}

	now := e.clock.Now()
	// A same-stratum transition is a logged no-op, not a permission check.
	denial := ""
	if to != from {
		denial = e.denialFor(actor, to)
	}
	record := PromotionRecord{From: from, To: to, Actor: actor.ID, At: now, Reason: reason}
	if denial != "" {
		record.Reason = "DENIED: " + reason
	}
	obj.PromotionHistory = append(obj.PromotionHistory, record)
	if len(obj.PromotionHistory) > historyCap {
		obj.PromotionHistory = obj.PromotionHistory[len(obj.PromotionHistory)-historyCap:]
	}
	obj.UpdatedAt = now

	if denial != "" {
		out := cloneObject(obj)
		e.mu.Unlock()
		e.log.Info("intel transition denied", "id", id, "actor", actor.ID, "to", to, "denial", denial)
		e.hub.Publish(Event{Kind: EventPromotionDenied, ObjectID: id})
		return out, fmt.Errorf("%s intel object %s: %w", verb, id, kernel.NewPolicyViolation(denial))
	}

	// The effective TTL follows the current stratum, so a transition
	// re-derives the profile.
	if profile, ok := e.registry.ProfileForStratum(string(to)); ok {
		obj.TTLProfile = profile
	}
	obj.Stratum = to
	out := cloneObject(obj)
	e.mu.Unlock()

	kind := EventPromoted
	if demote {
		kind = EventDemoted
	}
	e.log.Info("intel transition", "id", id, "actor", actor.ID, "from", from, "to", to)
	e.hub.Publish(Event{Kind: kind, ObjectID: id})
	return out, nil
}

// denialFor gates transitions by the target stratum: COMMAND_ASSESSED needs
// COMMAND, OPERATIONAL needs at least LEAD.
func (e *Engine) denialFor(actor Actor, to Stratum) string {
	switch {
	case to == StratumCommand && actor.Role != RoleCommand:
		return fmt.Sprintf("role %s cannot assess at %s", actor.Role, StratumCommand)
	case to == StratumOperational && actor.Role.Rank() < RoleLead.Rank():
		return fmt.Sprintf("role %s cannot reach %s", actor.Role, StratumOperational)
	}
	return ""
}

// Retire is terminal for staleness purposes; the object stays queryable when
// a caller opts into retired records.
func (e *Engine) Retire(id string, actor Actor) (*Object, error) {
	obj, err := e.mutate(id, EventRetired, func(obj *Object, now time.Time) error {
		if obj.RetiredAt == nil {
			retired := now
			obj.RetiredAt = &retired
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retiring intel object %s: %w", id, err)
	}
	return obj, nil
}

// LinkOps adds operation ids to an OP-scoped object's visibility set.
func (e *Engine) LinkOps(id string, opIDs ...string) (*Object, error) {
	obj, err := e.mutate(id, EventLinked, func(obj *Object, now time.Time) error {
		existing := make(map[string]struct{}, len(obj.Scope.OpIDs))
		for _, op := range obj.Scope.OpIDs {
			existing[op] = struct{}{}
		}
		for _, op := range opIDs {
			if _, ok := existing[op]; ok {
				continue
			}
			obj.Scope.OpIDs = append(obj.Scope.OpIDs, op)
			existing[op] = struct{}{}
		}
		sort.Strings(obj.Scope.OpIDs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("linking intel object %s: %w", id, err)
	}
	return obj, nil
}

func (e *Engine) mutate(id string, kind EventKind, fn func(*Object, time.Time) error) (*Object, error) {
	e.mu.Lock()
	obj, ok := e.objects[id]
	if !ok {
		e.mu.Unlock()
		return nil, kernel.ErrNotFound
	}
	now := e.clock.Now()
	if err := fn(obj, now); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	obj.UpdatedAt = now
	out := cloneObject(obj)
	e.mu.Unlock()

	e.hub.Publish(Event{Kind: kind, ObjectID: id})
	return out, nil
}

func visibleTo(obj *Object, viewer Viewer) bool {
	switch obj.Scope.Kind {
	case ScopePersonal:
		return obj.CreatedBy == viewer.UserID
	case ScopeOp:
		if viewer.ActiveOpID == "" {
			return false
		}
		for _, op := range obj.Scope.OpIDs {
			if op == viewer.ActiveOpID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func matchesFilter(obj *Object, filter Filter) bool {
	if len(filter.Types) > 0 && !containsType(filter.Types, obj.Type) {
		return false
	}
	if len(filter.Strata) > 0 && !containsStratum(filter.Strata, obj.Stratum) {
		return false
	}
	if filter.Node != "" && obj.Anchor.Node != filter.Node {
		return false
	}
	for _, tag := range filter.Tags {
		if !containsFold(obj.Tags, tag) {
			return false
		}
	}
	return true
}

func containsType(types []Type, t Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsStratum(strata []Stratum, s Stratum) bool {
	for _, candidate := range strata {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsFold(values []string, token string) bool {
	for _, v := range values {
		if strings.EqualFold(v, token) {
			return true
		}
	}
	return false
}

func cloneObject(obj *Object) *Object {
	out := *obj
	out.Scope.OpIDs = append([]string(nil), obj.Scope.OpIDs...)
	out.Tags = append([]string(nil), obj.Tags...)
	out.PromotionHistory = append([]PromotionRecord(nil), obj.PromotionHistory...)
	out.Endorsements = append([]Endorsement(nil), obj.Endorsements...)
	out.Challenges = append([]Challenge(nil), obj.Challenges...)
	if obj.RetiredAt != nil {
		retired := *obj.RetiredAt
		out.RetiredAt = &retired
	}
	return &out
}
