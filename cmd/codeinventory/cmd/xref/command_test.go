package xref

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/cmd/application"
	"github.com/agentstation/codeinventory/internal/store"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

func TestXrefCommand(t *testing.T) {
	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "raw"), filepath.Join(dir, "public"), filepath.Join(dir, "private"))
	require.NoError(t, st.WriteRaw("cdcgov", []inventory.RawRepository{{
		Host:         "github",
		Organization: "cdcgov",
		Name:         "internal-tool",
		URL:          "https://github.com/cdcgov/internal-tool",
		Visibility:   inventory.VisibilityInternal,
		CreatedAt:    time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}}))

	app := &application.Mock{
		ClientFunc: func(opts ...codeinventory.Option) (codeinventory.Client, error) {
			base := []codeinventory.Option{
				codeinventory.WithRawDir(st.RawDir),
				codeinventory.WithOutputDir(st.OutputDir),
				codeinventory.WithPrivateDir(st.PrivateDir),
			}
			return codeinventory.New(append(base, opts...)...)
		},
	}

	execute := func(args ...string) []inventory.PseudonymMapping {
		cmd := NewCommand(app)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		cmd.SetContext(context.Background())
		require.NoError(t, cmd.Execute())

		var mappings []inventory.PseudonymMapping
		require.NoError(t, json.Unmarshal(out.Bytes(), &mappings))
		return mappings
	}

	written := execute("--salt", "s1")
	require.Len(t, written, 1)
	assert.Equal(t, "github/cdcgov/internal-tool", written[0].RealID)
	assert.NoFileExists(t, st.CatalogPath())

	shown := execute("--show")
	assert.Equal(t, written, shown)

	again := execute("--salt", "s1")
	assert.Equal(t, written[0].Pseudonym, again[0].Pseudonym)
}
