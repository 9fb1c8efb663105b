package main

import (
	"context"
	"fmt"

	"nomadnexus/internal/config"
	"nomadnexus/internal/fitting"
	"nomadnexus/internal/intel"
	"nomadnexus/internal/kernel"
	"nomadnexus/internal/narrative"
	"nomadnexus/internal/ops"
	"nomadnexus/internal/refdata"
	"nomadnexus/internal/report"
	"nomadnexus/internal/rsvp"
)

const configPath = "nexus.yaml"

// app is the wired kernel: every engine constructed once and shared.
type app struct {
	cfg      *config.ProjectConfig
	resolver *refdata.Resolver
	fits     *fitting.Store
	intel    *intel.Engine
	rsvp     *rsvp.Engine
	reports  *report.Engine
	ops      *ops.MemoryProvider
	planning *ops.MemoryPlanning
	threads  *ops.MemoryThreads

	narrative narrative.Log
	pg        *narrative.Postgres
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}

	registry := config.DefaultTTLRegistry()
	if cfg.TTLProfiles != "" {
		registry, err = config.LoadTTLRegistry(cfg.TTLProfiles)
		if err != nil {
			return nil, err
		}
	}

	clock := kernel.SystemClock()
	resolver := refdata.NewResolver(cfg.DefaultGameVersion, nil)
	for _, path := range cfg.ReferenceData {
		if _, err := refdata.ImportPath(resolver, path, clock.Now()); err != nil {
			return nil, fmt.Errorf("importing reference data from %s: %w", path, err)
		}
	}

	a := &app{
		cfg:      cfg,
		resolver: resolver,
		fits:     fitting.NewStore(fitting.NewValidator(resolver), clock, nil),
		intel:    intel.NewEngine(registry, clock, nil),
		rsvp:     rsvp.NewEngine(clock, nil),
		ops:      ops.NewMemoryProvider(),
		planning: ops.NewMemoryPlanning(),
		threads:  ops.NewMemoryThreads(),
	}

	if cfg.Database.DSN != "" {
		pg, err := narrative.NewPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.pg = pg
		a.narrative = pg
	} else {
		a.narrative = narrative.NewMemory()
	}

	a.reports = report.NewEngine(report.Sources{
		Resolver:  a.resolver,
		Fits:      a.fits,
		Intel:     a.intel,
		RSVP:      a.rsvp,
		Ops:       a.ops,
		Planning:  a.planning,
		Threads:   a.threads,
		Narrative: a.narrative,
	}, clock, nil)

	return a, nil
}

func (a *app) Close(ctx context.Context) error {
	if a.pg != nil {
		return a.pg.Close(ctx)
	}
	return nil
}
