package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project            string         `yaml:"project"`
	Version            int            `yaml:"version"`
	DefaultGameVersion string         `yaml:"default_game_version"`
	Database           DatabaseConfig `yaml:"database"`
	ReferenceData      []string       `yaml:"reference_data"`
	TTLProfiles        string         `yaml:"ttl_profiles"`
}

// DatabaseConfig points the optional Postgres narrative-log sink. An empty
// DSN keeps narrative entries in memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.DefaultGameVersion) == "" {
		return fmt.Errorf("default_game_version is required")
	}

	seen := make(map[string]struct{})
	for i, path := range cfg.ReferenceData {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("reference_data entry %d is empty", i)
		}
		if _, exists := seen[path]; exists {
			return fmt.Errorf("duplicate reference_data path: %s", path)
		}
		seen[path] = struct{}{}
	}

	return nil
}
