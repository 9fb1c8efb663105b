package rsvp

import "time"

type Mode string

const (
	ModeIndividual Mode = "INDIVIDUAL"
	ModeAsset      Mode = "ASSET"
)

func (m Mode) Valid() bool {
	return m == ModeIndividual || m == ModeAsset
}

type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusTentative Status = "TENTATIVE"
	StatusWithdrawn Status = "WITHDRAWN"
)

func (s Status) Valid() bool {
	return s == StatusSubmitted || s == StatusTentative || s == StatusWithdrawn
}

// Tier classifies a rule's enforcement: HARD blocks, SOFT blocks unless an
// exception reason is supplied, ADVISORY never blocks.
type Tier string

const (
	TierHard     Tier = "HARD"
	TierSoft     Tier = "SOFT"
	TierAdvisory Tier = "ADVISORY"
)

type RuleKind string

const (
	RuleRole       RuleKind = "ROLE"
	RuleComms      RuleKind = "COMMS"
	RuleAsset      RuleKind = "ASSET"
	RuleCapability RuleKind = "CAPABILITY"
)

// Rule is one requirement. The predicate reports whether the entry
// satisfies it; a false return files the rule's message into the bucket for
// its tier.
type Rule struct {
	ID        string
	Tier      Tier
	Kind      RuleKind
	Message   string
	Satisfied func(*Entry) bool
}

// Policy is the ordered rule set for one operation. Posture changes
// regenerate the whole set; rules are never merged.
type Policy struct {
	OpID        string
	Posture     string
	Rules       []Rule
	GeneratedAt time.Time
}

// Compliance is the computed evaluation result carried on a stored entry.
type Compliance struct {
	HardViolations  []string
	SoftFlags       []string
	AdvisoryNotes   []string
	ExceptionReason string
}

func (c Compliance) Clean() bool {
	return len(c.HardViolations) == 0 && len(c.SoftFlags) == 0 && len(c.AdvisoryNotes) == 0
}

type AssignmentStatus string

const (
	AssignmentRequested AssignmentStatus = "REQUESTED"
	AssignmentAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentReleased  AssignmentStatus = "RELEASED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
)

// Active assignments hold a seat against its requested quantity.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentRequested || s == AssignmentAccepted
}

type SeatAssignment struct {
	UserID string
	Status AssignmentStatus
	At     time.Time
}

type SeatRequest struct {
	Role        string
	Quantity    int
	Assignments []SeatAssignment
}

// OpenQty is the requested quantity minus active assignments.
func (r SeatRequest) OpenQty() int {
	open := r.Quantity
	for _, a := range r.Assignments {
		if a.Status.Active() {
			open--
		}
	}
	if open < 0 {
		open = 0
	}
	return open
}

// AssetSlot is the asset declaration of an ASSET-mode entry, including the
// capability snapshot and nested crew-seat requests.
type AssetSlot struct {
	ID           string
	AssetName    string
	FitProfileID string
	Capabilities []string
	ShipClass    string
	CrewSeats    int
	CargoClass   string
	Medical      bool
	Interdiction bool
	CrewProvided int
	SeatRequests []SeatRequest
}

// Entry is one RSVP, upsert-keyed by (operation, user).
type Entry struct {
	OpID          string
	UserID        string
	Mode          Mode
	PrimaryRole   string
	SecondaryRole string
	CommsReady    bool
	Notes         string
	Status        Status
	Slot          *AssetSlot
	Compliance    Compliance
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OpenSeat is one aggregated roster line for an unfilled crew request.
type OpenSeat struct {
	SlotID       string
	AssetName    string
	OwnerID      string
	Role         string
	RequestedQty int
	OpenQty      int
}

// Summary aggregates SUBMITTED entries for one operation.
type Summary struct {
	OpID                 string
	EntryCount           int
	IndividualEntryCount int
	AssetEntryCount      int
	HardViolationCount   int
	SoftFlagCount        int
	AdvisoryNoteCount    int
	OpenSeats            []OpenSeat
}
