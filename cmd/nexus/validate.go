package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nomadnexus/internal/config"
	"nomadnexus/internal/refdata"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the project config, TTL profiles, and reference data",
		RunE:  runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Config OK: project %q, default version %s\n", cfg.Project, cfg.DefaultGameVersion)

	if cfg.TTLProfiles != "" {
		registry, err := config.LoadTTLRegistry(cfg.TTLProfiles)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "TTL profiles OK: %d profiles\n", len(registry.Profiles))
	} else {
		fmt.Fprintln(os.Stdout, "TTL profiles: using built-in defaults")
	}

	resolver := refdata.NewResolver(cfg.DefaultGameVersion, nil)
	now := time.Now()
	var imported, skipped int
	var importErrors []error
	for _, path := range cfg.ReferenceData {
		result, err := refdata.ImportPath(resolver, path, now)
		if err != nil {
			return err
		}
		imported += result.RecordsImported
		skipped += result.FilesSkipped
		importErrors = append(importErrors, result.Errors...)
	}
	fmt.Fprintf(os.Stdout, "Reference data: %d records, %d files skipped\n", imported, skipped)

	if len(importErrors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(importErrors))
		for _, item := range importErrors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("validation found errors")
	}
	fmt.Fprintln(os.Stdout, "No issues found.")
	return nil
}
