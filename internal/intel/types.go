package intel

import "time"

type Type string

const (
	TypePin    Type = "PIN"
	TypeMarker Type = "MARKER"
	TypeNote   Type = "NOTE"
)

func (t Type) Valid() bool {
	return t == TypePin || t == TypeMarker || t == TypeNote
}

type Stratum string

const (
	StratumPersonal      Stratum = "PERSONAL"
	StratumSharedCommons Stratum = "SHARED_COMMONS"
	StratumOperational   Stratum = "OPERATIONAL"
	StratumCommand       Stratum = "COMMAND_ASSESSED"
)

var stratumRank = map[Stratum]int{
	StratumPersonal:      0,
	StratumSharedCommons: 1,
	StratumOperational:   2,
	StratumCommand:       3,
}

func (s Stratum) Valid() bool {
	_, ok := stratumRank[s]
	return ok
}

func (s Stratum) Rank() int { return stratumRank[s] }

type Confidence string

const (
	ConfidenceLow  Confidence = "LOW"
	ConfidenceMed  Confidence = "MED"
	ConfidenceHigh Confidence = "HIGH"
)

func (c Confidence) Valid() bool {
	return c == ConfidenceLow || c == ConfidenceMed || c == ConfidenceHigh
}

type ScopeKind string

const (
	ScopePersonal ScopeKind = "PERSONAL"
	ScopeOrg      ScopeKind = "ORG"
	ScopeOp       ScopeKind = "OP"
)

func (k ScopeKind) Valid() bool {
	return k == ScopePersonal || k == ScopeOrg || k == ScopeOp
}

type Scope struct {
	Kind  ScopeKind
	OpIDs []string
}

// Anchor pins an object to a spatial node plus a local offset.
type Anchor struct {
	Node   string
	Offset Offset
}

type Offset struct {
	X, Y, Z float64
}

// Role is the viewer/actor capability resolved by the external auth
// collaborator and passed in explicitly; the kernel never infers it.
type Role string

const (
	RoleMember  Role = "MEMBER"
	RoleLead    Role = "LEAD"
	RoleCommand Role = "COMMAND"
)

var roleRank = map[Role]int{
	RoleMember:  0,
	RoleLead:    1,
	RoleCommand: 2,
}

func (r Role) Rank() int { return roleRank[r] }

type Actor struct {
	ID   string
	Role Role
}

// PromotionRecord is one audit entry; denied attempts are recorded too, with
// the reason prefixed "DENIED:".
type PromotionRecord struct {
	From   Stratum
	To     Stratum
	Actor  string
	At     time.Time
	Reason string
}

type Endorsement struct {
	Actor string
	At    time.Time
	Note  string
}

type Challenge struct {
	Actor string
	At    time.Time
	Note  string
}

type Object struct {
	ID         string
	Type       Type
	Stratum    Stratum
	Scope      Scope
	Anchor     Anchor
	Title      string
	Body       string
	Tags       []string
	Confidence Confidence
	TTLProfile string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	PromotionHistory []PromotionRecord
	Endorsements     []Endorsement
	Challenges       []Challenge

	RetiredAt *time.Time
}

// TTLState is the time-decay view of an object at a given instant.
type TTLState struct {
	TTLSeconds       int64
	RemainingSeconds int64
	DecayRatio       float64
	Stale            bool
}

// Listed pairs an object with its TTL state as computed during a listing.
type Listed struct {
	Object *Object
	TTL    TTLState
}

// Viewer scopes a listing: personal records are visible only to their
// creator, op records only when the active op is linked.
type Viewer struct {
	UserID     string
	ActiveOpID string
}

type Filter struct {
	Types          []Type
	Strata         []Stratum
	Tags           []string
	Node           string
	IncludeRetired bool
	ExcludeStale   bool
}
