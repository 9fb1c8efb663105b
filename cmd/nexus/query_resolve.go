package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func queryResolveCmd() *cobra.Command {
	var gameVersion string
	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a reference record, with version fallback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryResolve(args[0], gameVersion)
		},
	}
	cmd.Flags().StringVar(&gameVersion, "version", "", "Requested game version")
	return cmd
}

func runQueryResolve(id, gameVersion string) error {
	ctx := context.Background()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	spec, warnings := a.resolver.Resolve(id, gameVersion)
	if spec == nil {
		fmt.Fprintln(os.Stdout, "No record found.")
	} else {
		fmt.Fprintf(os.Stdout, "%s (%s) v%s", spec.Name, spec.Kind, spec.Version)
		if spec.Manufacturer != "" {
			fmt.Fprintf(os.Stdout, " by %s", spec.Manufacturer)
		}
		fmt.Fprintln(os.Stdout)
		if len(spec.Capabilities) > 0 {
			fmt.Fprintf(os.Stdout, "  capabilities: %s\n", strings.Join(spec.Capabilities, ", "))
		}
		if len(spec.Roles) > 0 {
			fmt.Fprintf(os.Stdout, "  roles:        %s\n", strings.Join(spec.Roles, ", "))
		}
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stdout, "  warning [%s]: %s\n", w.Code, w.Message)
	}
	return nil
}
