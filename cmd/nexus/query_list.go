package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nomadnexus/internal/refdata"
)

func queryListCmd() *cobra.Command {
	var capability string
	var role string
	var manufacturer string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest reference record per id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryList(capability, role, manufacturer)
		},
	}
	cmd.Flags().StringVar(&capability, "capability", "", "Capability tag to filter")
	cmd.Flags().StringVar(&role, "role", "", "Role tag to filter")
	cmd.Flags().StringVar(&manufacturer, "manufacturer", "", "Manufacturer to filter")
	return cmd
}

func runQueryList(capability, role, manufacturer string) error {
	ctx := context.Background()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	var specs []refdata.ReferenceSpec
	switch {
	case capability != "":
		specs = a.resolver.ListByCapability(capability)
	case role != "":
		specs = a.resolver.ListByRole(role)
	case manufacturer != "":
		specs = a.resolver.ListByManufacturer(manufacturer)
	default:
		specs = a.resolver.ListAll()
	}

	if len(specs) == 0 {
		fmt.Fprintln(os.Stdout, "No records found.")
		return nil
	}
	for _, spec := range specs {
		fmt.Fprintf(os.Stdout, "%s (%s) v%s [%s]\n", spec.Name, spec.Kind, spec.Version, spec.ID)
	}
	return nil
}
