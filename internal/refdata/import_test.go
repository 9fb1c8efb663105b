package refdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRefYAML = `version: 1
source: erkul-export
specs:
  - id: aurora-mr
    name: Aurora MR
    kind: ship
    version: "3.24"
    manufacturer: RSI
    capabilities: [transport]
    roles: [scout]
  - id: fr-66
    name: FR-66 Shield
    kind: component
    version: "3.24"
`

func TestImportPath(t *testing.T) {
	now := time.Date(2953, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("imports a single file", func(t *testing.T) {
		path := writeTempRef(t, "specs.yaml", validRefYAML)
		r := NewResolver("", nil)
		result, err := ImportPath(r, path, now)
		require.NoError(t, err)
		assert.Equal(t, 2, result.RecordsImported)
		assert.Zero(t, result.FilesSkipped)

		rec, warnings := r.Resolve("fr-66", "")
		require.NotNil(t, rec)
		assert.Empty(t, warnings)
		assert.Equal(t, KindComponent, rec.Kind)
		assert.Equal(t, "erkul-export", rec.Source)
		assert.Equal(t, now, rec.ImportedAt)
	})

	t.Run("walks directories and skips bad files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(validRefYAML), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("version: 1\nspecs:\n  - id: x\n    kind: ship\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

		r := NewResolver("", nil)
		result, err := ImportPath(r, dir, now)
		require.NoError(t, err)
		assert.Equal(t, 2, result.RecordsImported)
		assert.Equal(t, 1, result.FilesSkipped)
		require.Len(t, result.Errors, 1)
	})

	t.Run("rejects invalid kind", func(t *testing.T) {
		path := writeTempRef(t, "bad.yaml", "version: 1\nspecs:\n  - id: x\n    version: \"1.0\"\n    kind: station\n")
		r := NewResolver("", nil)
		result, err := ImportPath(r, path, now)
		require.NoError(t, err)
		assert.Zero(t, result.RecordsImported)
		assert.Equal(t, 1, result.FilesSkipped)
	})

	t.Run("missing path errors", func(t *testing.T) {
		r := NewResolver("", nil)
		_, err := ImportPath(r, filepath.Join(t.TempDir(), "missing.yaml"), now)
		require.Error(t, err)
	})
}

func writeTempRef(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}
