package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/provenance"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	return New(filepath.Join(root, "raw"), filepath.Join(root, "public"), filepath.Join(root, "private"))
}

func quietLog() *runlog.Log {
	return runlog.New(runlog.WithLogger(logging.NewNopLogger()))
}

func TestRawRoundTrip(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.WriteRaw("cdcgov", []inventory.RawRepository{
		{Host: "github", Organization: "cdcgov", Name: "tool", CreatedAt: created, Visibility: inventory.VisibilityPublic},
	}))
	require.NoError(t, s.WriteRaw("cdcent", nil))

	log := quietLog()
	raws, err := s.LoadRaw(log)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "tool", raws[0].Name)
	assert.True(t, created.Equal(raws[0].CreatedAt))
	assert.Empty(t, log.Entries())

	data, err := os.ReadFile(s.RawPath("cdcent"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestLoadRawSkipsMalformedFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteRaw("good", []inventory.RawRepository{{Name: "a"}}))
	require.NoError(t, os.WriteFile(filepath.Join(s.RawDir, "bad.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.RawDir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.RawDir, "nested.json"), 0o755))

	log := quietLog()
	raws, err := s.LoadRaw(log)
	require.NoError(t, err)
	assert.Len(t, raws, 1)

	entries := log.Filter(runlog.KindRawFile)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "bad.json")
	assert.Equal(t, runlog.SeverityError, entries[0].Severity)
}

func TestLoadRawMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"), "", "")
	_, err := s.LoadRaw(quietLog())
	assert.Error(t, err)
}

func TestRawPathSanitizesOrganization(t *testing.T) {
	s := New("/raw", "", "")
	assert.Equal(t, filepath.Join("/raw", "group_sub.json"), s.RawPath("group/sub"))
}

func TestCatalogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	catalog := &inventory.Catalog{
		Version:         "2.0",
		Agency:          "CDC",
		MeasurementType: inventory.MeasurementType{Method: "projects"},
		GeneratedAt:     time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
		Organizations:   []string{"cdcgov"},
		Releases:        []inventory.Release{{Name: "tool", Organization: "CDC"}},
	}
	require.NoError(t, s.WriteCatalog(catalog))

	info, err := os.Stat(s.CatalogPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	got, err := ReadCatalog(s.CatalogPath())
	require.NoError(t, err)
	assert.Equal(t, catalog.Releases, got.Releases)
	assert.True(t, catalog.GeneratedAt.Equal(got.GeneratedAt))

	leftovers, err := filepath.Glob(filepath.Join(s.OutputDir, ".*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCrossReference(t *testing.T) {
	t.Run("private dir", func(t *testing.T) {
		s := newTestStore(t)
		mappings := []inventory.PseudonymMapping{
			{RealID: "github/cdcgov/b", Pseudonym: "repo-2", Organization: "cdcgov"},
			{RealID: "github/cdcgov/a", Pseudonym: "repo-1", Organization: "cdcgov"},
		}
		require.NoError(t, s.WriteCrossReference(mappings))

		info, err := os.Stat(s.CrossReferencePath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		got, err := ReadCrossReference(s.CrossReferencePath())
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "github/cdcgov/a", got[0].RealID)
	})

	t.Run("refuses catalog dir", func(t *testing.T) {
		dir := t.TempDir()
		s := New("", dir, dir+string(filepath.Separator))
		err := s.WriteCrossReference(nil)
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		_, statErr := os.Stat(s.CrossReferencePath())
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestWriteRunLogAndProvenance(t *testing.T) {
	s := newTestStore(t)
	log := quietLog()
	log.Add(runlog.Info(runlog.KindOverride, "cdcgov/tool", "status set by README"))
	require.NoError(t, s.WriteRunLog(log))

	data, err := os.ReadFile(s.RunLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"override_applied"`)

	file := &provenance.File{
		RunID:     log.RunID(),
		Generated: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Overrides: []inventory.OverrideAudit{{Repository: "github/cdcgov/tool", Field: inventory.FieldStatus, Original: "development", Overridden: "production", Line: 3}},
		Provenance: provenance.Map{
			"github/cdcgov/tool|status": {{Source: "readme", Field: inventory.FieldStatus, Value: "production", Selected: true}},
		},
	}
	require.NoError(t, s.WriteProvenance(file))

	loaded, err := provenance.Load(s.ProvenancePath())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, log.RunID(), loaded.RunID)
	require.Len(t, loaded.Overrides, 1)
	assert.Equal(t, "production", loaded.Overrides[0].Overridden)

	info, err := os.Stat(s.ProvenancePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.txt")
	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", strings.TrimSpace(string(data)))
}
