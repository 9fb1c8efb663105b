package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nomadnexus/internal/fitting"
	"nomadnexus/internal/intel"
	"nomadnexus/internal/kernel"
	"nomadnexus/internal/narrative"
	"nomadnexus/internal/ops"
	"nomadnexus/internal/refdata"
	"nomadnexus/internal/rsvp"
)

// Sources groups everything the per-kind generators read from. Generators
// only read; report generation never mutates the other engines.
type Sources struct {
	Resolver  *refdata.Resolver
	Fits      *fitting.Store
	Intel     *intel.Engine
	RSVP      *rsvp.Engine
	Ops       ops.OperationProvider
	Planning  ops.PlanningStore
	Threads   ops.ThreadStore
	Narrative narrative.Log
}

type generator func(ctx context.Context, scope Scope, params Params, now time.Time) (*Artifact, error)

type Engine struct {
	mu      sync.RWMutex
	reports map[string]*Artifact

	src   Sources
	gens  map[Kind]generator
	cache *previewCache
	clock kernel.Clock
	log   *slog.Logger
	newID func() string
}

func NewEngine(src Sources, clock kernel.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = kernel.SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		reports: make(map[string]*Artifact),
		src:     src,
		cache:   newPreviewCache(),
		clock:   clock,
		log:     logger,
		newID:   uuid.NewString,
	}
	e.gens = map[Kind]generator{
		KindOpBrief:       e.generateOpBrief,
		KindSitrep:        e.generateSitrep,
		KindAAR:           e.generateAAR,
		KindIntelBrief:    e.generateIntelBrief,
		KindIndustrialRun: e.generateIndustrialRun,
		KindForcePosture:  e.generateForcePosture,
	}
	return e
}

// SetIDFunc swaps the artifact id source, used by tests that need
// reproducible ids.
func (e *Engine) SetIDFunc(fn func() string) { e.newID = fn }

// GeneratePreview runs the generator for the kind, or returns the cached
// payload when one exists for the same (kind, scope, params, 10s bucket) and
// is under the cache TTL. Fresh output is normalized before caching so
// repeated previews are structurally identical.
func (e *Engine) GeneratePreview(ctx context.Context, kind Kind, scope Scope, params Params, now time.Time) (*Artifact, error) {
	gen, ok := e.gens[kind]
	if !ok {
		return nil, fmt.Errorf("generating %s preview: unknown report kind: %w", kind, kernel.ErrNotFound)
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("generating %s preview: invalid scope: %q", kind, scope)
	}

	key := cacheKey(kind, scope, params, now)
	if cached := e.cache.get(key, now); cached != nil {
		return cached, nil
	}

	artifact, err := gen(ctx, scope, params, now)
	if err != nil {
		return nil, fmt.Errorf("generating %s preview: %w", kind, err)
	}
	artifact.Kind = kind
	artifact.Scope = scope
	normalize(artifact)
	e.cache.put(key, artifact, now)
	return artifact, nil
}

// Generate finalizes a preview into a stored artifact: it assigns an id and
// timestamps, validates referential integrity (failures become warnings),
// stores the artifact, and best-effort mirrors OP_BRIEF and AAR kinds into
// the narrative log.
func (e *Engine) Generate(ctx context.Context, kind Kind, scope Scope, params Params, generatedBy string) (*Artifact, error) {
	now := e.clock.Now()
	preview, err := e.GeneratePreview(ctx, kind, scope, params, now)
	if err != nil {
		return nil, err
	}

	artifact := cloneArtifact(preview)
	artifact.ID = e.newID()
	artifact.GeneratedAt = now
	artifact.GeneratedBy = generatedBy
	artifact.Warnings = kernel.DedupeWarnings(append(artifact.Warnings, e.validate(artifact)...))

	if (kind == KindOpBrief || kind == KindAAR) && e.src.Narrative != nil {
		if err := e.mirror(ctx, artifact); err != nil {
			e.log.Warn("narrative mirror failed", "report", artifact.ID, "error", err)
			artifact.Warnings = kernel.DedupeWarnings(append(artifact.Warnings,
				kernel.Warningf(kernel.WarnSideEffectFailed, "narrative mirror failed: %v", err)))
		}
	}

	e.mu.Lock()
	e.reports[artifact.ID] = cloneArtifact(artifact)
	e.mu.Unlock()

	e.log.Info("report generated", "id", artifact.ID, "kind", kind, "scope", scope,
		"sections", len(artifact.Sections), "warnings", len(artifact.Warnings))
	return artifact, nil
}

func (e *Engine) GetReport(id string) (*Artifact, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	artifact, ok := e.reports[id]
	if !ok {
		return nil, fmt.Errorf("getting report %s: %w", id, kernel.ErrNotFound)
	}
	return cloneArtifact(artifact), nil
}

func (e *Engine) ListReports(kind Kind) []*Artifact {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Artifact, 0)
	for _, artifact := range e.reports {
		if kind != "" && artifact.Kind != kind {
			continue
		}
		out = append(out, cloneArtifact(artifact))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.Before(out[j].GeneratedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Engine) DeleteReport(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.reports[id]; !ok {
		return fmt.Errorf("deleting report %s: %w", id, kernel.ErrNotFound)
	}
	delete(e.reports, id)
	return nil
}

// validate checks artifact completeness and referential integrity. Every
// failure is a warning, never a fatal error.
func (e *Engine) validate(artifact *Artifact) []kernel.Warning {
	var warnings []kernel.Warning
	if strings.TrimSpace(artifact.Title) == "" {
		warnings = append(warnings, kernel.Warningf(kernel.WarnMissingData, "report has no title"))
	}
	if len(artifact.Sections) == 0 {
		warnings = append(warnings, kernel.Warningf(kernel.WarnMissingData, "report has no narrative sections"))
	}
	if len(artifact.Evidence) == 0 {
		warnings = append(warnings, kernel.Warningf(kernel.WarnMissingData, "report has no evidence blocks"))
	}
	if artifact.TemplateID == "" {
		warnings = append(warnings, kernel.Warningf(kernel.WarnMissingData, "report has no template id"))
	}
	if len(artifact.Inputs.SnapshotRefs) == 0 {
		warnings = append(warnings, kernel.Warningf(kernel.WarnMissingData, "report has no snapshot refs"))
	}
	for _, ref := range artifact.Inputs.Refs {
		if !e.resolveRef(ref) {
			warnings = append(warnings, kernel.Warningf(kernel.WarnUnresolvedRef, "input ref %s does not resolve", ref))
		}
	}
	return warnings
}

// resolveRef checks an input reference against the live stores: stored
// reports, intel objects, and fit profiles.
func (e *Engine) resolveRef(ref string) bool {
	e.mu.RLock()
	_, stored := e.reports[ref]
	e.mu.RUnlock()
	if stored {
		return true
	}
	if e.src.Intel != nil {
		if _, err := e.src.Intel.Get(ref); err == nil {
			return true
		}
	}
	if e.src.Fits != nil {
		if _, err := e.src.Fits.Get(ref); err == nil {
			return true
		}
	}
	return false
}

func (e *Engine) mirror(ctx context.Context, artifact *Artifact) error {
	var body strings.Builder
	for i, section := range artifact.Sections {
		if i > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(section.Heading)
		body.WriteString("\n")
		body.WriteString(section.Body)
	}
	return e.src.Narrative.Append(ctx, narrative.Entry{
		ID:        e.newID(),
		ReportID:  artifact.ID,
		Kind:      string(artifact.Kind),
		Title:     artifact.Title,
		Body:      body.String(),
		CreatedBy: artifact.GeneratedBy,
		CreatedAt: artifact.GeneratedAt,
	})
}

// normalize puts generator output into canonical order: sections by
// (orderIndex, id), citations newest first then (kind, refId), data sources
// and warnings deduplicated and sorted.
func normalize(artifact *Artifact) {
	sort.Slice(artifact.Sections, func(i, j int) bool {
		if artifact.Sections[i].OrderIndex != artifact.Sections[j].OrderIndex {
			return artifact.Sections[i].OrderIndex < artifact.Sections[j].OrderIndex
		}
		return artifact.Sections[i].ID < artifact.Sections[j].ID
	})
	for i := range artifact.Evidence {
		citations := artifact.Evidence[i].Citations
		sort.Slice(citations, func(a, b int) bool {
			if !citations[a].Timestamp.Equal(citations[b].Timestamp) {
				return citations[a].Timestamp.After(citations[b].Timestamp)
			}
			if citations[a].Kind != citations[b].Kind {
				return citations[a].Kind < citations[b].Kind
			}
			return citations[a].RefID < citations[b].RefID
		})
	}
	artifact.Inputs.DataSources = dedupeSorted(artifact.Inputs.DataSources)
	artifact.Warnings = kernel.DedupeWarnings(artifact.Warnings)
}

func dedupeSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
