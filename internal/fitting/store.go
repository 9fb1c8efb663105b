package fitting

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"nomadnexus/internal/kernel"
)

const historyCap = 64

// Store owns fit profiles. Create and Update always succeed for well-formed
// input; derived tags and validation state are recomputed on every write and
// carried on the record.
type Store struct {
	mu        sync.RWMutex
	profiles  map[string]*Profile
	validator *Validator
	clock     kernel.Clock
	log       *slog.Logger
}

func NewStore(validator *Validator, clock kernel.Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = kernel.SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		profiles:  make(map[string]*Profile),
		validator: validator,
		clock:     clock,
		log:       logger,
	}
}

func (s *Store) Create(p Profile, actor string) (*Profile, error) {
	if !p.Scope.Valid() {
		return nil, fmt.Errorf("creating fit profile: invalid scope: %q", p.Scope)
	}

	now := s.clock.Now()
	p.ID = uuid.NewString()
	p.CreatedBy = actor
	p.CreatedAt = now
	p.UpdatedAt = now
	s.refresh(&p)
	p.History = appendBounded(nil, ChangeEntry{At: now, Actor: actor, Summary: "created"})

	s.mu.Lock()
	s.profiles[p.ID] = &p
	s.mu.Unlock()

	s.log.Info("fit profile created", "id", p.ID, "scope", p.Scope, "unknowns", len(p.Validation.Unknowns))
	return clone(&p), nil
}

func (s *Store) Update(id string, mutate func(*Profile), actor, summary string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("updating fit profile %s: %w", id, kernel.ErrNotFound)
	}

	updated := clone(existing)
	mutate(updated)
	updated.ID = existing.ID
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	if !updated.Scope.Valid() {
		return nil, fmt.Errorf("updating fit profile %s: invalid scope: %q", id, updated.Scope)
	}

	now := s.clock.Now()
	updated.UpdatedAt = now
	s.refresh(updated)
	if summary == "" {
		summary = "updated"
	}
	updated.History = appendBounded(existing.History, ChangeEntry{At: now, Actor: actor, Summary: summary})

	s.profiles[id] = updated
	return clone(updated), nil
}

func (s *Store) Get(id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("getting fit profile %s: %w", id, kernel.ErrNotFound)
	}
	return clone(p), nil
}

func (s *Store) List(scope Scope) []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if scope != "" && p.Scope != scope {
			continue
		}
		out = append(out, clone(p))
	}
	sortProfiles(out)
	return out
}

// refresh recomputes derived tags and validation state; resolver warnings
// surface as patch-mismatch entries only when they name a fallback.
func (s *Store) refresh(p *Profile) {
	roles, capabilities, warnings := s.validator.DeriveTags(p)
	p.DerivedRoles = roles
	p.DerivedCapabilities = capabilities
	p.Validation = s.validator.Validate(p)
	for _, w := range warnings {
		if w.Code == kernel.WarnVersionFallback {
			p.Validation.PatchMismatchWarnings = append(p.Validation.PatchMismatchWarnings, w.Message)
		} else {
			p.Validation.Unknowns = append(p.Validation.Unknowns, w.Message)
		}
	}
}

// appendBounded keeps the most recent historyCap entries.
func appendBounded(history []ChangeEntry, entry ChangeEntry) []ChangeEntry {
	history = append(history, entry)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	return history
}

func clone(p *Profile) *Profile {
	out := *p
	if p.Platform != nil {
		platform := *p.Platform
		out.Platform = &platform
	}
	out.Components = append([]Component(nil), p.Components...)
	out.Elements = append([]Element(nil), p.Elements...)
	out.Roles = append([]string(nil), p.Roles...)
	out.Capabilities = append([]string(nil), p.Capabilities...)
	out.DerivedRoles = append([]string(nil), p.DerivedRoles...)
	out.DerivedCapabilities = append([]string(nil), p.DerivedCapabilities...)
	out.History = append([]ChangeEntry(nil), p.History...)
	out.Validation.PatchMismatchWarnings = append([]string(nil), p.Validation.PatchMismatchWarnings...)
	out.Validation.Unknowns = append([]string(nil), p.Validation.Unknowns...)
	return &out
}

func sortProfiles(profiles []*Profile) {
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
}
