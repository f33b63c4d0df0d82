package provenance

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory/pkg/authority"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

func TestTracker(t *testing.T) {
	tr := NewTracker(true)
	repo := "github/cdcgov/prime"

	tr.Track(repo, inventory.FieldOrganization, Provenance{Source: authority.SourceHost, Value: "CDCgov", Priority: 10})
	tr.Track(repo, inventory.FieldOrganization, Provenance{Source: authority.SourceReadme, Value: "Office", Priority: 100, Selected: true, Line: 4})
	tr.Track(repo, inventory.FieldStatus, Provenance{Source: authority.SourceHost, Value: "development", Priority: 10, Selected: true})

	org := tr.FindByField(repo, inventory.FieldOrganization)
	require.Len(t, org, 2)
	assert.Equal(t, inventory.FieldOrganization, org[0].Field)
	assert.False(t, org[0].Timestamp.IsZero())

	fields := tr.FindByResource(repo)
	assert.Len(t, fields, 2)
	assert.Empty(t, tr.FindByResource("github/cdcgov/other"))

	m := tr.Map()
	assert.Len(t, m, 2)

	tr.Clear()
	assert.Empty(t, tr.Map())
}

func TestDisabledTracker(t *testing.T) {
	tr := NewTracker(false)
	tr.Track("r", inventory.FieldStatus, Provenance{Value: "x"})
	assert.Nil(t, tr.FindByField("r", inventory.FieldStatus))
	assert.Nil(t, tr.Map())
}

func TestGenerateReport(t *testing.T) {
	tr := NewTracker(true)
	repo := "github/cdcgov/prime"
	tr.Track(repo, inventory.FieldOrganization, Provenance{Source: authority.SourceHost, Value: "CDCgov", Priority: 10})
	tr.Track(repo, inventory.FieldOrganization, Provenance{Source: authority.SourceReadme, Value: "Office", Priority: 100, Selected: true, Reason: "readme marker"})
	tr.Track(repo, inventory.FieldStatus, Provenance{Source: authority.SourceHost, Value: "development", Priority: 10, Selected: true})

	report := GenerateReport(tr.Map())
	require.Contains(t, report.Repositories, repo)

	org := report.Repositories[repo].Fields[inventory.FieldOrganization]
	assert.Equal(t, "Office", org.Current.Value)
	assert.Equal(t, authority.SourceReadme, org.History[0].Source)
	require.Len(t, org.Conflicts, 1)
	assert.Equal(t, authority.SourceReadme, org.Conflicts[0].SelectedSource)
	assert.ElementsMatch(t, []string{"Office", "CDCgov"}, org.Conflicts[0].Values)

	status := report.Repositories[repo].Fields[inventory.FieldStatus]
	assert.Empty(t, status.Conflicts)

	out := report.String()
	assert.Contains(t, out, repo)
	assert.Contains(t, out, `organization: "Office" (from readme)`)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provenance.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	f := &File{
		RunID:     "run-1",
		Generated: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Provenance: Map{
			"github/cdcgov/prime|status": {{Source: authority.SourceReadme, Field: inventory.FieldStatus, Value: "production", Priority: 100, Selected: true, Line: 2}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err = Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "run-1", loaded.RunID)
	require.Len(t, loaded.Provenance["github/cdcgov/prime|status"], 1)
	assert.Equal(t, "production", loaded.Provenance["github/cdcgov/prime|status"][0].Value)
	assert.Equal(t, 2, loaded.Provenance["github/cdcgov/prime|status"][0].Line)
}
