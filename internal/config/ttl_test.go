package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validTTLYAML = `version: 1
profiles:
  - name: personal-short
    stratum: PERSONAL
    rules:
      - type: PIN
        ttl_seconds: 3600
      - ttl_seconds: 7200
  - name: commons-standard
    stratum: SHARED_COMMONS
    rules:
      - ttl_seconds: 14400
  - name: operational-standard
    stratum: OPERATIONAL
    rules:
      - ttl_seconds: 28800
  - name: command-long
    stratum: COMMAND_ASSESSED
    rules:
      - ttl_seconds: 86400
`

func TestLoadTTLRegistry(t *testing.T) {
	t.Run("valid registry loads and resolves", func(t *testing.T) {
		reg, err := LoadTTLRegistry(writeTempTTL(t, validTTLYAML))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		name, ok := reg.ProfileForStratum("PERSONAL")
		if !ok || name != "personal-short" {
			t.Fatalf("expected personal-short, got %q (%v)", name, ok)
		}

		ttl, ok := reg.TTLSeconds("personal-short", "PIN")
		if !ok || ttl != 3600 {
			t.Fatalf("expected pin rule to win, got %d (%v)", ttl, ok)
		}
		ttl, ok = reg.TTLSeconds("personal-short", "NOTE")
		if !ok || ttl != 7200 {
			t.Fatalf("expected catch-all rule, got %d (%v)", ttl, ok)
		}
		if _, ok := reg.TTLSeconds("no-such-profile", "PIN"); ok {
			t.Fatalf("expected unknown profile to miss")
		}
	})

	t.Run("invalid stratum", func(t *testing.T) {
		yaml := "version: 1\nprofiles:\n  - name: bad\n    stratum: SECRET\n    rules:\n      - ttl_seconds: 60\n"
		if _, err := LoadTTLRegistry(writeTempTTL(t, yaml)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("uncovered stratum", func(t *testing.T) {
		yaml := "version: 1\nprofiles:\n  - name: only-personal\n    stratum: PERSONAL\n    rules:\n      - ttl_seconds: 60\n"
		if _, err := LoadTTLRegistry(writeTempTTL(t, yaml)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		yaml := "version: 1\nprofiles:\n  - name: bad\n    stratum: PERSONAL\n    rules:\n      - ttl_seconds: 0\n"
		if _, err := LoadTTLRegistry(writeTempTTL(t, yaml)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("default registry covers all strata", func(t *testing.T) {
		reg := DefaultTTLRegistry()
		for _, stratum := range validStrata {
			name, ok := reg.ProfileForStratum(stratum)
			if !ok {
				t.Fatalf("no profile for stratum %s", stratum)
			}
			if _, ok := reg.TTLSeconds(name, "NOTE"); !ok {
				t.Fatalf("no ttl for profile %s", name)
			}
		}
	})
}

func writeTempTTL(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ttl.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp ttl profiles: %v", err)
	}
	return path
}
