package main

import "github.com/spf13/cobra"

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query reference data from the CLI",
	}
	cmd.AddCommand(queryResolveCmd())
	cmd.AddCommand(queryListCmd())
	return cmd
}
