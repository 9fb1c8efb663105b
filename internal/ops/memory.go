package ops

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"nomadnexus/internal/kernel"
)

// MemoryProvider is the in-memory operation context provider.
type MemoryProvider struct {
	mu         sync.RWMutex
	operations map[string]*Operation
	events     map[string][]OperationEvent
}

var _ OperationProvider = (*MemoryProvider)(nil)

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		operations: make(map[string]*Operation),
		events:     make(map[string][]OperationEvent),
	}
}

func (m *MemoryProvider) PutOperation(op Operation) *Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	m.operations[op.ID] = &op
	return &op
}

func (m *MemoryProvider) GetOperation(ctx context.Context, id string) (*Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.operations[id]
	if !ok {
		return nil, fmt.Errorf("getting operation %s: %w", id, kernel.ErrNotFound)
	}
	out := *op
	return &out, nil
}

func (m *MemoryProvider) ListOperationEvents(ctx context.Context, opID string) ([]OperationEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := append([]OperationEvent(nil), m.events[opID]...)
	sort.Slice(events, func(i, j int) bool {
		if !events[i].At.Equal(events[j].At) {
			return events[i].At.Before(events[j].At)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (m *MemoryProvider) AppendOperationEvent(ctx context.Context, event OperationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.operations[event.OpID]; !ok {
		return fmt.Errorf("appending event for operation %s: %w", event.OpID, kernel.ErrNotFound)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	m.events[event.OpID] = append(m.events[event.OpID], event)
	return nil
}

// MemoryPlanning is the in-memory planning store.
type MemoryPlanning struct {
	mu          sync.RWMutex
	objectives  map[string][]Objective
	assumptions map[string][]Assumption
	decisions   map[string][]Decision
}

var _ PlanningStore = (*MemoryPlanning)(nil)

func NewMemoryPlanning() *MemoryPlanning {
	return &MemoryPlanning{
		objectives:  make(map[string][]Objective),
		assumptions: make(map[string][]Assumption),
		decisions:   make(map[string][]Decision),
	}
}

func (m *MemoryPlanning) PutObjective(o Objective) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	m.objectives[o.OpID] = append(m.objectives[o.OpID], o)
}

func (m *MemoryPlanning) PutAssumption(a Assumption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.assumptions[a.OpID] = append(m.assumptions[a.OpID], a)
}

func (m *MemoryPlanning) PutDecision(d Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.decisions[d.OpID] = append(m.decisions[d.OpID], d)
}

func (m *MemoryPlanning) ListObjectives(ctx context.Context, opID string) ([]Objective, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Objective(nil), m.objectives[opID]...), nil
}

func (m *MemoryPlanning) ListAssumptions(ctx context.Context, opID string) ([]Assumption, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Assumption(nil), m.assumptions[opID]...), nil
}

func (m *MemoryPlanning) ListDecisions(ctx context.Context, opID string) ([]Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Decision(nil), m.decisions[opID]...), nil
}

// MemoryThreads is the in-memory op-thread store.
type MemoryThreads struct {
	mu       sync.RWMutex
	comments map[string][]Comment
}

var _ ThreadStore = (*MemoryThreads)(nil)

func NewMemoryThreads() *MemoryThreads {
	return &MemoryThreads{comments: make(map[string][]Comment)}
}

func (m *MemoryThreads) PutComment(c Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.comments[c.OpID] = append(m.comments[c.OpID], c)
}

func (m *MemoryThreads) ListComments(ctx context.Context, opID string) ([]Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Comment(nil), m.comments[opID]...), nil
}
