// Package ops defines the kernel's external collaborators: the operation
// context provider, the planning store, and the op-thread store. The kernel
// consumes these interfaces; the in-memory implementations here exist so the
// kernel runs standalone and tests have fakes.
package ops

import (
	"context"
	"time"
)

type Posture string

const (
	PostureFocused Posture = "FOCUSED"
	PostureCasual  Posture = "CASUAL"
)

func (p Posture) Valid() bool {
	return p == PostureFocused || p == PostureCasual
}

type Operation struct {
	ID          string
	Name        string
	Posture     Posture
	AOAnchor    string
	CommanderID string
	Status      string
	StartedAt   time.Time
	EndedAt     *time.Time
}

// OperationEvent is one entry of the append-only event stream AAR
// generation reads.
type OperationEvent struct {
	ID      string
	OpID    string
	Kind    string
	Summary string
	Actor   string
	At      time.Time
}

type OperationProvider interface {
	GetOperation(ctx context.Context, id string) (*Operation, error)
	ListOperationEvents(ctx context.Context, opID string) ([]OperationEvent, error)
	AppendOperationEvent(ctx context.Context, event OperationEvent) error
}

type Objective struct {
	ID     string
	OpID   string
	Title  string
	Status string
}

// Assumption tracks whether anyone has challenged it; challenged
// assumptions feed the AAR deviation narrative.
type Assumption struct {
	ID            string
	OpID          string
	Text          string
	Challenged    bool
	ChallengedBy  string
	ChallengeNote string
}

type Decision struct {
	ID        string
	OpID      string
	Summary   string
	Rationale string
	DecidedBy string
	At        time.Time
}

type PlanningStore interface {
	ListObjectives(ctx context.Context, opID string) ([]Objective, error)
	ListAssumptions(ctx context.Context, opID string) ([]Assumption, error)
	ListDecisions(ctx context.Context, opID string) ([]Decision, error)
}

type Comment struct {
	ID     string
	OpID   string
	Author string
	Body   string
	At     time.Time
}

type ThreadStore interface {
	ListComments(ctx context.Context, opID string) ([]Comment, error)
}
