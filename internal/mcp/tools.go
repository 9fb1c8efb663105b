package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"nomadnexus/internal/intel"
	"nomadnexus/internal/kernel"
	"nomadnexus/internal/refdata"
	"nomadnexus/internal/report"
	"nomadnexus/internal/rsvp"
)

type ResolveReferenceInput struct {
	ID      string `json:"id" jsonschema:"reference record id"`
	Version string `json:"version,omitempty" jsonschema:"requested game version"`
}

type ListReferencesInput struct {
	Capability   string `json:"capability,omitempty" jsonschema:"capability tag filter"`
	Role         string `json:"role,omitempty" jsonschema:"role tag filter"`
	Manufacturer string `json:"manufacturer,omitempty" jsonschema:"manufacturer filter"`
}

type CreateIntelInput struct {
	Type       string   `json:"type" jsonschema:"PIN, MARKER, or NOTE"`
	Title      string   `json:"title" jsonschema:"short title"`
	Body       string   `json:"body,omitempty" jsonschema:"free-form detail"`
	ScopeKind  string   `json:"scope_kind,omitempty" jsonschema:"PERSONAL, ORG, or OP"`
	OpIDs      []string `json:"op_ids,omitempty" jsonschema:"linked operation ids for OP scope"`
	Node       string   `json:"node" jsonschema:"anchoring location node"`
	Tags       []string `json:"tags,omitempty" jsonschema:"classification tags"`
	Confidence string   `json:"confidence,omitempty" jsonschema:"LOW, MED, or HIGH"`
	CreatedBy  string   `json:"created_by" jsonschema:"creating user id"`
}

type ListIntelInput struct {
	UserID         string   `json:"user_id" jsonschema:"viewing user id"`
	ActiveOpID     string   `json:"active_op_id,omitempty" jsonschema:"viewer's active operation"`
	Types          []string `json:"types,omitempty" jsonschema:"type filter"`
	Strata         []string `json:"strata,omitempty" jsonschema:"stratum filter"`
	Tags           []string `json:"tags,omitempty" jsonschema:"tag filter"`
	Node           string   `json:"node,omitempty" jsonschema:"location node filter"`
	IncludeRetired bool     `json:"include_retired,omitempty" jsonschema:"include retired objects"`
	ExcludeStale   bool     `json:"exclude_stale,omitempty" jsonschema:"drop objects past their TTL"`
}

type PromoteIntelInput struct {
	ID        string `json:"id" jsonschema:"intel object id"`
	ActorID   string `json:"actor_id" jsonschema:"acting user id"`
	ActorRole string `json:"actor_role" jsonschema:"MEMBER, LEAD, or COMMAND"`
	To        string `json:"to" jsonschema:"target stratum"`
	Reason    string `json:"reason" jsonschema:"promotion reason, recorded in the audit trail"`
	Demote    bool   `json:"demote,omitempty" jsonschema:"move down instead of up"`
}

type AssetSlotInput struct {
	AssetName    string   `json:"asset_name" jsonschema:"declared asset"`
	FitProfileID string   `json:"fit_profile_id,omitempty" jsonschema:"linked fit profile"`
	Capabilities []string `json:"capabilities,omitempty" jsonschema:"capability snapshot tags"`
	ShipClass    string   `json:"ship_class,omitempty" jsonschema:"hull class"`
	CrewSeats    int      `json:"crew_seats,omitempty" jsonschema:"total seats"`
	CargoClass   string   `json:"cargo_class,omitempty" jsonschema:"cargo capacity class"`
	Medical      bool     `json:"medical,omitempty" jsonschema:"has medical facilities"`
	Interdiction bool     `json:"interdiction,omitempty" jsonschema:"has interdiction capability"`
	CrewProvided int      `json:"crew_provided,omitempty" jsonschema:"crew the owner brings"`
}

type UpsertRSVPInput struct {
	OpID            string          `json:"op_id" jsonschema:"operation id"`
	UserID          string          `json:"user_id" jsonschema:"responding user id"`
	Mode            string          `json:"mode" jsonschema:"INDIVIDUAL or ASSET"`
	PrimaryRole     string          `json:"primary_role,omitempty" jsonschema:"declared primary role"`
	SecondaryRole   string          `json:"secondary_role,omitempty" jsonschema:"declared secondary role"`
	CommsReady      bool            `json:"comms_ready,omitempty" jsonschema:"voice comms readiness"`
	Notes           string          `json:"notes,omitempty" jsonschema:"free-text notes"`
	Status          string          `json:"status,omitempty" jsonschema:"SUBMITTED, TENTATIVE, or WITHDRAWN"`
	Slot            *AssetSlotInput `json:"slot,omitempty" jsonschema:"asset declaration, ASSET mode only"`
	ExceptionReason string          `json:"exception_reason,omitempty" jsonschema:"reason excusing soft-rule failures"`
}

type RosterSummaryInput struct {
	OpID string `json:"op_id" jsonschema:"operation id"`
}

type GenerateReportInput struct {
	Kind        string   `json:"kind" jsonschema:"report kind"`
	Scope       string   `json:"scope" jsonschema:"ORG, OP, or PERSONAL"`
	OpID        string   `json:"op_id,omitempty" jsonschema:"operation id for op-scoped kinds"`
	UserID      string   `json:"user_id,omitempty" jsonschema:"viewing user id"`
	Node        string   `json:"node,omitempty" jsonschema:"location node filter"`
	Tags        []string `json:"tags,omitempty" jsonschema:"tag filter"`
	GameVersion string   `json:"game_version,omitempty" jsonschema:"game version context"`
	GeneratedBy string   `json:"generated_by" jsonschema:"requesting user id"`
	Preview     bool     `json:"preview,omitempty" jsonschema:"render without storing"`
}

type GetReportInput struct {
	ID string `json:"id" jsonschema:"report artifact id"`
}

type WarningOutput struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ReferenceOutput struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Version      string   `json:"version"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Capabilities []string `json:"capabilities"`
	Roles        []string `json:"roles"`
}

type ResolveReferenceOutput struct {
	Reference *ReferenceOutput `json:"reference,omitempty"`
	Warnings  []WarningOutput  `json:"warnings"`
}

type ListReferencesOutput struct {
	References []ReferenceOutput `json:"references"`
}

type IntelOutput struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Stratum    string   `json:"stratum"`
	Title      string   `json:"title"`
	Node       string   `json:"node"`
	Tags       []string `json:"tags"`
	Confidence string   `json:"confidence"`
	CreatedBy  string   `json:"created_by"`
	UpdatedAt  string   `json:"updated_at"`
	Retired    bool     `json:"retired"`

	TTLSeconds       int64   `json:"ttl_seconds,omitempty"`
	RemainingSeconds int64   `json:"remaining_seconds,omitempty"`
	DecayRatio       float64 `json:"decay_ratio,omitempty"`
	Stale            bool    `json:"stale,omitempty"`
}

type ListIntelOutput struct {
	Objects []IntelOutput `json:"objects"`
}

type RSVPEntryOutput struct {
	OpID            string   `json:"op_id"`
	UserID          string   `json:"user_id"`
	Mode            string   `json:"mode"`
	PrimaryRole     string   `json:"primary_role,omitempty"`
	Status          string   `json:"status"`
	HardViolations  []string `json:"hard_violations"`
	SoftFlags       []string `json:"soft_flags"`
	AdvisoryNotes   []string `json:"advisory_notes"`
	ExceptionReason string   `json:"exception_reason,omitempty"`
}

type OpenSeatOutput struct {
	SlotID       string `json:"slot_id"`
	AssetName    string `json:"asset_name"`
	OwnerID      string `json:"owner_id"`
	Role         string `json:"role"`
	RequestedQty int    `json:"requested_qty"`
	OpenQty      int    `json:"open_qty"`
}

type RosterSummaryOutput struct {
	OpID                 string           `json:"op_id"`
	EntryCount           int              `json:"entry_count"`
	IndividualEntryCount int              `json:"individual_entry_count"`
	AssetEntryCount      int              `json:"asset_entry_count"`
	HardViolationCount   int              `json:"hard_violation_count"`
	SoftFlagCount        int              `json:"soft_flag_count"`
	AdvisoryNoteCount    int              `json:"advisory_note_count"`
	OpenSeats            []OpenSeatOutput `json:"open_seats"`
}

type SectionOutput struct {
	Heading    string   `json:"heading"`
	Body       string   `json:"body"`
	LinkedRefs []string `json:"linked_refs,omitempty"`
}

type EvidenceOutput struct {
	Claim      string `json:"claim"`
	Confidence string `json:"confidence"`
	Stale      bool   `json:"stale"`
	Citations  int    `json:"citations"`
	Note       string `json:"note,omitempty"`
}

type ReportOutput struct {
	ID          string           `json:"id,omitempty"`
	Kind        string           `json:"kind"`
	Scope       string           `json:"scope"`
	Title       string           `json:"title"`
	GeneratedAt string           `json:"generated_at,omitempty"`
	GeneratedBy string           `json:"generated_by,omitempty"`
	TemplateID  string           `json:"template_id"`
	Sections    []SectionOutput  `json:"sections"`
	Evidence    []EvidenceOutput `json:"evidence"`
	DataSources []string         `json:"data_sources"`
	Warnings    []WarningOutput  `json:"warnings"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_reference",
		Description: "Resolve a reference record by id, with version fallback",
	}, s.handleResolveReference)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_references",
		Description: "List latest-per-id reference records with optional filters",
	}, s.handleListReferences)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "create_intel",
		Description: "Create an intel object at the personal stratum",
	}, s.handleCreateIntel)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_intel",
		Description: "List intel visible to a viewer, with TTL decay state",
	}, s.handleListIntel)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "promote_intel",
		Description: "Promote or demote an intel object between strata",
	}, s.handlePromoteIntel)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "upsert_rsvp",
		Description: "Create or overwrite an operation RSVP with compliance checks",
	}, s.handleUpsertRSVP)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "roster_summary",
		Description: "Aggregate submitted RSVPs and open crew seats for an operation",
	}, s.handleRosterSummary)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "generate_report",
		Description: "Generate a report artifact from live kernel state",
	}, s.handleGenerateReport)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_report",
		Description: "Retrieve a previously generated report",
	}, s.handleGetReport)
}

func (s *Server) handleResolveReference(ctx context.Context, req *sdk.CallToolRequest, input ResolveReferenceInput) (*sdk.CallToolResult, ResolveReferenceOutput, error) {
	if input.ID == "" {
		return nil, ResolveReferenceOutput{}, fmt.Errorf("id is required")
	}
	spec, warnings := s.resolver.Resolve(input.ID, input.Version)
	output := ResolveReferenceOutput{Warnings: warningOutputs(warnings)}
	if spec != nil {
		ref := referenceOutput(*spec)
		output.Reference = &ref
	}
	return nil, output, nil
}

func (s *Server) handleListReferences(ctx context.Context, req *sdk.CallToolRequest, input ListReferencesInput) (*sdk.CallToolResult, ListReferencesOutput, error) {
	var specs []refdata.ReferenceSpec
	switch {
	case input.Capability != "":
		specs = s.resolver.ListByCapability(input.Capability)
	case input.Role != "":
		specs = s.resolver.ListByRole(input.Role)
	case input.Manufacturer != "":
		specs = s.resolver.ListByManufacturer(input.Manufacturer)
	default:
		specs = s.resolver.ListAll()
	}

	output := make([]ReferenceOutput, 0, len(specs))
	for _, spec := range specs {
		output = append(output, referenceOutput(spec))
	}
	return nil, ListReferencesOutput{References: output}, nil
}

func (s *Server) handleCreateIntel(ctx context.Context, req *sdk.CallToolRequest, input CreateIntelInput) (*sdk.CallToolResult, IntelOutput, error) {
	scopeKind := intel.ScopeKind(input.ScopeKind)
	if input.ScopeKind == "" {
		scopeKind = intel.ScopePersonal
	}
	obj, err := s.intel.Create(intel.CreateInput{
		Type:       intel.Type(input.Type),
		Scope:      intel.Scope{Kind: scopeKind, OpIDs: input.OpIDs},
		Anchor:     intel.Anchor{Node: input.Node},
		Title:      input.Title,
		Body:       input.Body,
		Tags:       input.Tags,
		Confidence: intel.Confidence(input.Confidence),
		CreatedBy:  input.CreatedBy,
	})
	if err != nil {
		return nil, IntelOutput{}, err
	}
	return nil, intelOutput(obj, nil), nil
}

func (s *Server) handleListIntel(ctx context.Context, req *sdk.CallToolRequest, input ListIntelInput) (*sdk.CallToolResult, ListIntelOutput, error) {
	if input.UserID == "" {
		return nil, ListIntelOutput{}, fmt.Errorf("user_id is required")
	}
	filter := intel.Filter{
		Node:           input.Node,
		Tags:           input.Tags,
		IncludeRetired: input.IncludeRetired,
		ExcludeStale:   input.ExcludeStale,
	}
	for _, t := range input.Types {
		filter.Types = append(filter.Types, intel.Type(t))
	}
	for _, st := range input.Strata {
		filter.Strata = append(filter.Strata, intel.Stratum(st))
	}

	listed := s.intel.List(filter, intel.Viewer{UserID: input.UserID, ActiveOpID: input.ActiveOpID}, s.clock.Now())
	output := make([]IntelOutput, 0, len(listed))
	for _, item := range listed {
		output = append(output, intelOutput(item.Object, &item.TTL))
	}
	return nil, ListIntelOutput{Objects: output}, nil
}

func (s *Server) handlePromoteIntel(ctx context.Context, req *sdk.CallToolRequest, input PromoteIntelInput) (*sdk.CallToolResult, IntelOutput, error) {
	actor := intel.Actor{ID: input.ActorID, Role: intel.Role(input.ActorRole)}
	var (
		obj *intel.Object
		err error
	)
	if input.Demote {
		obj, err = s.intel.Demote(input.ID, actor, intel.Stratum(input.To), input.Reason)
	} else {
		obj, err = s.intel.Promote(input.ID, actor, intel.Stratum(input.To), input.Reason)
	}
	if err != nil {
		return nil, IntelOutput{}, err
	}
	return nil, intelOutput(obj, nil), nil
}

func (s *Server) handleUpsertRSVP(ctx context.Context, req *sdk.CallToolRequest, input UpsertRSVPInput) (*sdk.CallToolResult, RSVPEntryOutput, error) {
	if input.OpID == "" || input.UserID == "" {
		return nil, RSVPEntryOutput{}, fmt.Errorf("op_id and user_id are required")
	}

	// Seed the policy from the operation's posture, when the operation is
	// known to the context provider.
	if s.ops != nil {
		if op, err := s.ops.GetOperation(ctx, input.OpID); err == nil {
			s.rsvp.GetOrCreatePolicy(op.ID, op.Posture)
		}
	}

	entry := rsvp.Entry{
		OpID:          input.OpID,
		UserID:        input.UserID,
		Mode:          rsvp.Mode(input.Mode),
		PrimaryRole:   input.PrimaryRole,
		SecondaryRole: input.SecondaryRole,
		CommsReady:    input.CommsReady || rsvp.MigrateLegacyNotes(input.Notes),
		Notes:         input.Notes,
		Status:        rsvp.Status(input.Status),
	}
	if input.Slot != nil {
		entry.Slot = &rsvp.AssetSlot{
			AssetName:    input.Slot.AssetName,
			FitProfileID: input.Slot.FitProfileID,
			Capabilities: input.Slot.Capabilities,
			ShipClass:    input.Slot.ShipClass,
			CrewSeats:    input.Slot.CrewSeats,
			CargoClass:   input.Slot.CargoClass,
			Medical:      input.Slot.Medical,
			Interdiction: input.Slot.Interdiction,
			CrewProvided: input.Slot.CrewProvided,
		}
	}

	stored, err := s.rsvp.Upsert(entry, input.ExceptionReason)
	if err != nil {
		return nil, RSVPEntryOutput{}, err
	}
	return nil, rsvpEntryOutput(stored), nil
}

func (s *Server) handleRosterSummary(ctx context.Context, req *sdk.CallToolRequest, input RosterSummaryInput) (*sdk.CallToolResult, RosterSummaryOutput, error) {
	if input.OpID == "" {
		return nil, RosterSummaryOutput{}, fmt.Errorf("op_id is required")
	}
	summary := s.rsvp.RosterSummary(input.OpID)
	output := RosterSummaryOutput{
		OpID:                 summary.OpID,
		EntryCount:           summary.EntryCount,
		IndividualEntryCount: summary.IndividualEntryCount,
		AssetEntryCount:      summary.AssetEntryCount,
		HardViolationCount:   summary.HardViolationCount,
		SoftFlagCount:        summary.SoftFlagCount,
		AdvisoryNoteCount:    summary.AdvisoryNoteCount,
		OpenSeats:            make([]OpenSeatOutput, 0, len(summary.OpenSeats)),
	}
	for _, seat := range summary.OpenSeats {
		output.OpenSeats = append(output.OpenSeats, OpenSeatOutput{
			SlotID:       seat.SlotID,
			AssetName:    seat.AssetName,
			OwnerID:      seat.OwnerID,
			Role:         seat.Role,
			RequestedQty: seat.RequestedQty,
			OpenQty:      seat.OpenQty,
		})
	}
	return nil, output, nil
}

func (s *Server) handleGenerateReport(ctx context.Context, req *sdk.CallToolRequest, input GenerateReportInput) (*sdk.CallToolResult, ReportOutput, error) {
	params := report.Params{
		OpID:        input.OpID,
		UserID:      input.UserID,
		Node:        input.Node,
		Tags:        input.Tags,
		GameVersion: input.GameVersion,
	}
	kind := report.Kind(input.Kind)
	scope := report.Scope(input.Scope)

	var (
		artifact *report.Artifact
		err      error
	)
	if input.Preview {
		artifact, err = s.reports.GeneratePreview(ctx, kind, scope, params, s.clock.Now())
	} else {
		artifact, err = s.reports.Generate(ctx, kind, scope, params, input.GeneratedBy)
	}
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, reportOutput(artifact), nil
}

func (s *Server) handleGetReport(ctx context.Context, req *sdk.CallToolRequest, input GetReportInput) (*sdk.CallToolResult, ReportOutput, error) {
	if input.ID == "" {
		return nil, ReportOutput{}, fmt.Errorf("id is required")
	}
	artifact, err := s.reports.GetReport(input.ID)
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, reportOutput(artifact), nil
}

func warningOutputs(warnings []kernel.Warning) []WarningOutput {
	out := make([]WarningOutput, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, WarningOutput{Code: w.Code, Message: w.Message})
	}
	return out
}

func referenceOutput(spec refdata.ReferenceSpec) ReferenceOutput {
	return ReferenceOutput{
		ID:           spec.ID,
		Name:         spec.Name,
		Kind:         string(spec.Kind),
		Version:      spec.Version,
		Manufacturer: spec.Manufacturer,
		Capabilities: append([]string{}, spec.Capabilities...),
		Roles:        append([]string{}, spec.Roles...),
	}
}

func intelOutput(obj *intel.Object, ttl *intel.TTLState) IntelOutput {
	out := IntelOutput{
		ID:         obj.ID,
		Type:       string(obj.Type),
		Stratum:    string(obj.Stratum),
		Title:      obj.Title,
		Node:       obj.Anchor.Node,
		Tags:       append([]string{}, obj.Tags...),
		Confidence: string(obj.Confidence),
		CreatedBy:  obj.CreatedBy,
		UpdatedAt:  obj.UpdatedAt.UTC().Format(time.RFC3339),
		Retired:    obj.RetiredAt != nil,
	}
	if ttl != nil {
		out.TTLSeconds = ttl.TTLSeconds
		out.RemainingSeconds = ttl.RemainingSeconds
		out.DecayRatio = ttl.DecayRatio
		out.Stale = ttl.Stale
	}
	return out
}

func rsvpEntryOutput(entry *rsvp.Entry) RSVPEntryOutput {
	return RSVPEntryOutput{
		OpID:            entry.OpID,
		UserID:          entry.UserID,
		Mode:            string(entry.Mode),
		PrimaryRole:     entry.PrimaryRole,
		Status:          string(entry.Status),
		HardViolations:  append([]string{}, entry.Compliance.HardViolations...),
		SoftFlags:       append([]string{}, entry.Compliance.SoftFlags...),
		AdvisoryNotes:   append([]string{}, entry.Compliance.AdvisoryNotes...),
		ExceptionReason: entry.Compliance.ExceptionReason,
	}
}

func reportOutput(artifact *report.Artifact) ReportOutput {
	out := ReportOutput{
		ID:          artifact.ID,
		Kind:        string(artifact.Kind),
		Scope:       string(artifact.Scope),
		Title:       artifact.Title,
		GeneratedBy: artifact.GeneratedBy,
		TemplateID:  artifact.TemplateID,
		Sections:    make([]SectionOutput, 0, len(artifact.Sections)),
		Evidence:    make([]EvidenceOutput, 0, len(artifact.Evidence)),
		DataSources: append([]string{}, artifact.Inputs.DataSources...),
		Warnings:    warningOutputs(artifact.Warnings),
	}
	if !artifact.GeneratedAt.IsZero() {
		out.GeneratedAt = artifact.GeneratedAt.UTC().Format(time.RFC3339)
	}
	for _, section := range artifact.Sections {
		out.Sections = append(out.Sections, SectionOutput{
			Heading:    section.Heading,
			Body:       section.Body,
			LinkedRefs: append([]string(nil), section.LinkedRefs...),
		})
	}
	for _, evidence := range artifact.Evidence {
		out.Evidence = append(out.Evidence, EvidenceOutput{
			Claim:      evidence.Claim,
			Confidence: string(evidence.Confidence),
			Stale:      evidence.TTL.Stale,
			Citations:  len(evidence.Citations),
			Note:       evidence.Note,
		})
	}
	return out
}
