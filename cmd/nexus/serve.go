package main

import (
	"context"

	"github.com/spf13/cobra"

	"nomadnexus/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	server := mcp.NewServer(mcp.Deps{
		Resolver: a.resolver,
		Intel:    a.intel,
		RSVP:     a.rsvp,
		Reports:  a.reports,
		Ops:      a.ops,
	}, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
