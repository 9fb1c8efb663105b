// Package report composes canonically-sorted, cached, citation-backed
// artifacts from the other engines and the external operation, planning and
// thread stores.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"nomadnexus/internal/intel"
	"nomadnexus/internal/kernel"
)

type Kind string

const (
	KindOpBrief       Kind = "OP_BRIEF"
	KindSitrep        Kind = "SITREP"
	KindAAR           Kind = "AAR"
	KindIntelBrief    Kind = "INTEL_BRIEF"
	KindIndustrialRun Kind = "INDUSTRIAL_RUN"
	KindForcePosture  Kind = "FORCE_POSTURE"
)

func (k Kind) Valid() bool {
	switch k {
	case KindOpBrief, KindSitrep, KindAAR, KindIntelBrief, KindIndustrialRun, KindForcePosture:
		return true
	}
	return false
}

type Scope string

const (
	ScopeOrg      Scope = "ORG"
	ScopeOp       Scope = "OP"
	ScopePersonal Scope = "PERSONAL"
)

func (s Scope) Valid() bool {
	return s == ScopeOrg || s == ScopeOp || s == ScopePersonal
}

// Params carries the generator inputs. Canonicalization sorts the tag list
// so two equivalent requests hit the same cache entry.
type Params struct {
	OpID        string
	UserID      string
	Node        string
	Tags        []string
	GameVersion string
}

func (p Params) canonical() string {
	tags := append([]string(nil), p.Tags...)
	for i := range tags {
		tags[i] = strings.ToLower(tags[i])
	}
	sort.Strings(tags)
	return fmt.Sprintf("op=%s|user=%s|node=%s|tags=%s|ver=%s",
		p.OpID, p.UserID, p.Node, strings.Join(tags, ","), p.GameVersion)
}

// Section is one ordered narrative block.
type Section struct {
	ID         string
	Heading    string
	Body       string
	OrderIndex int
	LinkedRefs []string
}

// Citation points an evidence claim at a record in a live store.
type Citation struct {
	Kind      string
	RefID     string
	Timestamp time.Time
}

// Evidence is one claim with its supporting citations, confidence band and
// TTL state.
type Evidence struct {
	Claim      string
	Citations  []Citation
	Confidence intel.Confidence
	TTL        intel.TTLState
	Note       string
}

// Inputs records what the artifact was generated from. SnapshotRefs is the
// subset frozen at generation time for reproducibility auditing.
type Inputs struct {
	Refs         []string
	SnapshotRefs []string
	GameVersion  string
	DataSources  []string
}

// Artifact is immutable once generated except for deletion.
type Artifact struct {
	ID          string
	Kind        Kind
	Scope       Scope
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
	TemplateID  string
	Sections    []Section
	Evidence    []Evidence
	Inputs      Inputs
	Warnings    []kernel.Warning
	Permissions []string
}

func cloneArtifact(a *Artifact) *Artifact {
	out := *a
	out.Sections = make([]Section, len(a.Sections))
	for i, s := range a.Sections {
		copied := s
		copied.LinkedRefs = append([]string(nil), s.LinkedRefs...)
		out.Sections[i] = copied
	}
	out.Evidence = make([]Evidence, len(a.Evidence))
	for i, e := range a.Evidence {
		copied := e
		copied.Citations = append([]Citation(nil), e.Citations...)
		out.Evidence[i] = copied
	}
	out.Inputs.Refs = append([]string(nil), a.Inputs.Refs...)
	out.Inputs.SnapshotRefs = append([]string(nil), a.Inputs.SnapshotRefs...)
	out.Inputs.DataSources = append([]string(nil), a.Inputs.DataSources...)
	out.Warnings = append([]kernel.Warning(nil), a.Warnings...)
	out.Permissions = append([]string(nil), a.Permissions...)
	return &out
}
