package refdata

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"nomadnexus/internal/kernel"
)

// Resolver holds the patch-stamped baseline specs and answers "best
// available record for a requested version". It never returns an error:
// absent data is reported through a MISSING_DATA warning and a nil record.
type Resolver struct {
	mu             sync.RWMutex
	records        map[string][]ReferenceSpec
	defaultVersion string
	log            *slog.Logger
}

func NewResolver(defaultVersion string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		records:        make(map[string][]ReferenceSpec),
		defaultVersion: defaultVersion,
		log:            logger,
	}
}

// Add appends records. Existing (ID, Version) pairs are never mutated in
// place; a re-import of the same pair appends a newer record that wins the
// newest-imported tie-breaks.
func (r *Resolver) Add(specs ...ReferenceSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		id := strings.ToLower(spec.ID)
		r.records[id] = append(r.records[id], spec)
	}
}

// DefaultVersion is the resolver's current baseline patch: the configured
// game version, or the highest imported version when none is configured.
func (r *Resolver) DefaultVersion() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultVersion != "" {
		return r.defaultVersion
	}
	best := ""
	for _, recs := range r.records {
		for _, rec := range recs {
			if best == "" || compareVersions(rec.Version, best) > 0 {
				best = rec.Version
			}
		}
	}
	return best
}

// Resolve returns the best available record for id at requestedVersion.
// No requested version means the most recently imported record. An exact
// version match wins; otherwise the highest version at or below the request
// substitutes with a VERSION_FALLBACK warning; when nothing qualifies the
// newest import substitutes with the same warning code.
func (r *Resolver) Resolve(id, requestedVersion string) (*ReferenceSpec, []kernel.Warning) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.records[strings.ToLower(id)]
	if len(recs) == 0 {
		return nil, []kernel.Warning{
			kernel.Warningf(kernel.WarnMissingData, "no reference record for %s", id),
		}
	}

	if requestedVersion == "" {
		rec := newestImported(recs)
		return &rec, nil
	}

	var exact *ReferenceSpec
	for i := range recs {
		if compareVersions(recs[i].Version, requestedVersion) == 0 {
			if exact == nil || recs[i].ImportedAt.After(exact.ImportedAt) {
				exact = &recs[i]
			}
		}
	}
	if exact != nil {
		rec := *exact
		return &rec, nil
	}

	var fallback *ReferenceSpec
	for i := range recs {
		if compareVersions(recs[i].Version, requestedVersion) > 0 {
			continue
		}
		if fallback == nil {
			fallback = &recs[i]
			continue
		}
		switch compareVersions(recs[i].Version, fallback.Version) {
		case 1:
			fallback = &recs[i]
		case 0:
			if recs[i].ImportedAt.After(fallback.ImportedAt) {
				fallback = &recs[i]
			}
		}
	}
	if fallback == nil {
		newest := newestImported(recs)
		fallback = &newest
	}

	rec := *fallback
	return &rec, []kernel.Warning{
		kernel.Warningf(kernel.WarnVersionFallback,
			"%s: requested version %s, substituted %s", id, requestedVersion, rec.Version),
	}
}

// ListByCapability filters the latest-per-id projection by capability token.
func (r *Resolver) ListByCapability(token string) []ReferenceSpec {
	return r.listLatest(func(spec ReferenceSpec) bool {
		return containsFold(spec.Capabilities, token)
	})
}

// ListByRole filters the latest-per-id projection by role token.
func (r *Resolver) ListByRole(token string) []ReferenceSpec {
	return r.listLatest(func(spec ReferenceSpec) bool {
		return containsFold(spec.Roles, token)
	})
}

// ListByManufacturer filters the latest-per-id projection by manufacturer.
func (r *Resolver) ListByManufacturer(token string) []ReferenceSpec {
	return r.listLatest(func(spec ReferenceSpec) bool {
		return strings.EqualFold(spec.Manufacturer, token)
	})
}

// ListAll returns the latest-per-id projection.
func (r *Resolver) ListAll() []ReferenceSpec {
	return r.listLatest(func(ReferenceSpec) bool { return true })
}

// listLatest never mixes two versions of the same id in one listing: each id
// contributes only its most recently imported record.
func (r *Resolver) listLatest(match func(ReferenceSpec) bool) []ReferenceSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ReferenceSpec, 0)
	for _, recs := range r.records {
		latest := newestImported(recs)
		if match(latest) {
			out = append(out, latest)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newestImported(recs []ReferenceSpec) ReferenceSpec {
	best := recs[0]
	for _, rec := range recs[1:] {
		if rec.ImportedAt.After(best.ImportedAt) {
			best = rec
		}
	}
	return best
}

func containsFold(values []string, token string) bool {
	for _, v := range values {
		if strings.EqualFold(v, token) {
			return true
		}
	}
	return false
}
