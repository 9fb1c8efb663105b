package refdata

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Result summarises one import run.
type Result struct {
	RecordsImported int
	FilesSkipped    int
	Errors          []error
}

type importFile struct {
	Version int       `yaml:"version"`
	Source  string    `yaml:"source"`
	Specs   []specDoc `yaml:"specs"`
}

type specDoc struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Version      string   `yaml:"version"`
	Manufacturer string   `yaml:"manufacturer"`
	Capabilities []string `yaml:"capabilities"`
	Roles        []string `yaml:"roles"`
}

// ImportPath loads reference-data yaml files into the resolver. A directory
// is walked for .yaml/.yml files; files that fail to parse or validate are
// skipped and reported in the Result, never failing the whole run.
func ImportPath(resolver *Resolver, path string, now time.Time) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("importing reference data: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = walkYAMLFiles(path)
		if err != nil {
			return nil, fmt.Errorf("importing reference data: %w", err)
		}
	}

	result := &Result{}
	for _, file := range files {
		specs, err := loadImportFile(file, now)
		if err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", file, err))
			continue
		}
		resolver.Add(specs...)
		result.RecordsImported += len(specs)
	}
	return result, nil
}

func loadImportFile(path string, now time.Time) ([]ReferenceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc importFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if doc.Version != 1 {
		return nil, fmt.Errorf("unsupported version: %d", doc.Version)
	}
	source := doc.Source
	if source == "" {
		source = filepath.Base(path)
	}

	specs := make([]ReferenceSpec, 0, len(doc.Specs))
	for i, sd := range doc.Specs {
		if strings.TrimSpace(sd.ID) == "" {
			return nil, fmt.Errorf("spec %d: id is required", i)
		}
		if strings.TrimSpace(sd.Version) == "" {
			return nil, fmt.Errorf("spec %s: version is required", sd.ID)
		}
		kind := Kind(sd.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("spec %s: invalid kind: %q", sd.ID, sd.Kind)
		}
		specs = append(specs, ReferenceSpec{
			ID:           sd.ID,
			Name:         sd.Name,
			Kind:         kind,
			Version:      sd.Version,
			Manufacturer: sd.Manufacturer,
			Source:       source,
			ImportedAt:   now,
			Capabilities: sd.Capabilities,
			Roles:        sd.Roles,
		})
	}
	return specs, nil
}

func walkYAMLFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
