package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var projectName string
	var gameVersion string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new nexus project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName, gameVersion)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&gameVersion, "game-version", "3.23", "Default game version")
	return cmd
}

func runInit(projectName, gameVersion string) error {
	ttlPath := "ttl.yaml"
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(ttlPath); err == nil {
		return fmt.Errorf("%s already exists", ttlPath)
	}

	configContents := fmt.Sprintf(`project: %s
version: 1
default_game_version: "%s"

database:
  dsn: ""

reference_data:
  - ./refdata/

ttl_profiles: ttl.yaml
`, projectName, gameVersion)

	ttlContents := `version: 1
profiles:
  - name: personal-short
    stratum: PERSONAL
    rules:
      - type: PIN
        ttl_seconds: 21600
      - ttl_seconds: 43200
  - name: commons-standard
    stratum: SHARED_COMMONS
    rules:
      - type: PIN
        ttl_seconds: 43200
      - ttl_seconds: 86400
  - name: operational-standard
    stratum: OPERATIONAL
    rules:
      - ttl_seconds: 172800
  - name: command-long
    stratum: COMMAND_ASSESSED
    rules:
      - ttl_seconds: 604800
`

	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(ttlPath, []byte(ttlContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", ttlPath, err)
	}
	if err := os.MkdirAll("refdata", 0o750); err != nil {
		return fmt.Errorf("creating refdata directory: %w", err)
	}

	return nil
}
