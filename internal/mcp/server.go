package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"nomadnexus/internal/intel"
	"nomadnexus/internal/kernel"
	"nomadnexus/internal/ops"
	"nomadnexus/internal/refdata"
	"nomadnexus/internal/report"
	"nomadnexus/internal/rsvp"
)

type Server struct {
	resolver *refdata.Resolver
	intel    *intel.Engine
	rsvp     *rsvp.Engine
	reports  *report.Engine
	ops      ops.OperationProvider
	clock    kernel.Clock
	mcp      *sdk.Server
}

type Deps struct {
	Resolver *refdata.Resolver
	Intel    *intel.Engine
	RSVP     *rsvp.Engine
	Reports  *report.Engine
	Ops      ops.OperationProvider
	Clock    kernel.Clock
}

func NewServer(deps Deps, version string) *Server {
	clock := deps.Clock
	if clock == nil {
		clock = kernel.SystemClock()
	}
	s := &Server{
		resolver: deps.Resolver,
		intel:    deps.Intel,
		rsvp:     deps.RSVP,
		reports:  deps.Reports,
		ops:      deps.Ops,
		clock:    clock,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "nomadnexus",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
