package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nomadnexus/internal/config"
	"nomadnexus/internal/refdata"
)

func importCmd() *cobra.Command {
	var paths []string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import reference-data files into the resolver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(paths)
		},
	}
	cmd.Flags().StringSliceVar(&paths, "path", nil, "Reference-data file or directory (defaults to the configured paths)")
	return cmd
}

func runImport(paths []string) error {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = cfg.ReferenceData
	}
	if len(paths) == 0 {
		return fmt.Errorf("no reference-data paths configured")
	}

	resolver := refdata.NewResolver(cfg.DefaultGameVersion, nil)
	now := time.Now()

	var imported, skipped int
	var errors []error
	for _, path := range paths {
		result, err := refdata.ImportPath(resolver, path, now)
		if err != nil {
			return err
		}
		imported += result.RecordsImported
		skipped += result.FilesSkipped
		errors = append(errors, result.Errors...)
	}

	fmt.Fprintln(os.Stdout, "Import complete.")
	fmt.Fprintf(os.Stdout, "  Records imported: %d\n", imported)
	fmt.Fprintf(os.Stdout, "  Files skipped:    %d\n", skipped)

	if len(errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(errors))
		for _, item := range errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("import completed with errors")
	}
	return nil
}
