package reconciler

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory/pkg/assemble"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

var fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func raw(org, name string, vis inventory.Visibility, readme string) inventory.RawRepository {
	r := inventory.RawRepository{
		Host:         "github",
		Organization: org,
		Name:         name,
		URL:          "https://github.com/" + org + "/" + name,
		Visibility:   vis,
		Description:  name + " description",
		Language:     "Python",
		CreatedAt:    time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	if readme != "" {
		r.Readme = &readme
	}
	return r
}

func reconcile(t *testing.T, raws []inventory.RawRepository, opts ...Option) *Result {
	t.Helper()
	opts = append([]Option{WithSalt([]byte("test-salt")), WithClock(clock)}, opts...)
	r, err := New(opts...)
	require.NoError(t, err)

	ctx := logging.WithLogger(context.Background(), logging.NewNopLogger())
	res, err := r.Reconcile(ctx, raws)
	require.NoError(t, err)
	return res
}

func catalogJSON(t *testing.T, c *inventory.Catalog) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, assemble.WriteCatalog(&buf, c))
	return buf.String()
}

func TestReconcilePrivateScenario(t *testing.T) {
	readme := "# Chronic Disease Dashboard\n\n" +
		"Org: NCCDPHP\n" +
		"Contact Email: chronicdev@cdc.gov\n" +
		"Exemption: exemptByAgencySystem\n" +
		"Exemption Justification: internal use only\n"
	repo := raw("CDCgov", "chronic-dashboard", inventory.VisibilityPrivate, readme)
	repo.Description = "Indicators for chronic disease programs"
	res := reconcile(t, []inventory.RawRepository{repo})

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "NCCDPHP", rec.Organization)
	assert.Equal(t, "chronicdev@cdc.gov", *rec.Permissions.ContactEmail)
	assert.Equal(t, policy.ExemptByAgencySystem, *rec.Permissions.Exemption)
	assert.Equal(t, "internal use only", *rec.Permissions.Justification)
	assert.Equal(t, inventory.PublicationExempt, rec.Publication)
	assert.NotEmpty(t, rec.PrivateID)

	require.Len(t, res.Mappings, 1)
	assert.Equal(t, "github/cdcgov/chronic-dashboard", res.Mappings[0].RealID)
	assert.Equal(t, rec.PrivateID, res.Mappings[0].Pseudonym)

	require.Len(t, res.Catalog.Releases, 1)
	release := res.Catalog.Releases[0]
	assert.Equal(t, rec.PrivateID, release.Name)
	assert.Equal(t, "NCCDPHP", release.Organization)
	assert.Equal(t, "exemptByAgencySystem", release.Permissions.UsageType)
	require.NotNil(t, release.Permissions.ExemptionText)
	assert.Equal(t, "internal use only", *release.Permissions.ExemptionText)

	doc := catalogJSON(t, res.Catalog)
	assert.NotContains(t, doc, "chronic-dashboard")
	assert.NotContains(t, doc, "github/cdcgov")

	assert.Len(t, res.Audits, 4)
	assert.Equal(t, 4, res.Metadata.Stats.OverridesApplied)
	assert.Equal(t, 1, res.Metadata.Stats.Exempt)
}

func TestReconcilePublicExemptionScenario(t *testing.T) {
	res := reconcile(t, []inventory.RawRepository{
		raw("CDCgov", "open-tool", inventory.VisibilityPublic, "Exemption: exemptByAgencySystem\n"),
	})

	require.Len(t, res.Records, 1)
	assert.Nil(t, res.Records[0].Permissions.Exemption)
	assert.True(t, res.Records[0].Invalid)

	combos := res.Log.Filter(runlog.KindInvalidExemptionCombo)
	require.Len(t, combos, 1)
	var target *errors.InvalidExemptionCombination
	require.ErrorAs(t, combos[0].Err, &target)
	assert.Equal(t, "exemptByAgencySystem", target.Exemption)

	release := res.Catalog.Releases[0]
	assert.Equal(t, "open-tool", release.Name)
	assert.Nil(t, release.Permissions.ExemptionText)
	assert.Equal(t, "governmentWideReuse", release.Permissions.UsageType)
	assert.NotContains(t, catalogJSON(t, res.Catalog), "exemptByAgencySystem")
}

func TestReconcileRecordIsolation(t *testing.T) {
	broken := raw("CDCgov", "broken", inventory.VisibilityPublic, "")
	broken.URL = ""

	res := reconcile(t, []inventory.RawRepository{
		raw("CDCgov", "first", inventory.VisibilityPublic, ""),
		broken,
		raw("CDCgov", "last", inventory.VisibilityPublic, ""),
	})

	assert.Len(t, res.Catalog.Releases, 2)
	assert.Equal(t, 1, res.Metadata.Stats.RecordsDropped)
	assert.Equal(t, 3, res.Metadata.Stats.RecordsRead)

	failures := res.Log.Filter(runlog.KindNormalization)
	require.Len(t, failures, 1)
	assert.Equal(t, runlog.SeverityError, failures[0].Severity)
	assert.True(t, errors.IsNormalizationError(failures[0].Err))
	assert.True(t, res.IsSuccess())
}

func TestReconcileIdempotent(t *testing.T) {
	raws := []inventory.RawRepository{
		raw("CDCgov", "zeta", inventory.VisibilityPublic, "Status: production"),
		raw("CDCent", "alpha", inventory.VisibilityInternal, ""),
		raw("CDCgov", "secret", inventory.VisibilityPrivate, "Exemption: exemptByLaw"),
	}
	reversed := []inventory.RawRepository{raws[2], raws[1], raws[0]}

	first := catalogJSON(t, reconcile(t, raws).Catalog)
	second := catalogJSON(t, reconcile(t, raws).Catalog)
	third := catalogJSON(t, reconcile(t, reversed).Catalog)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func TestReconcilePseudonymStability(t *testing.T) {
	raws := []inventory.RawRepository{raw("CDCgov", "secret", inventory.VisibilityPrivate, "")}

	a := reconcile(t, raws)
	b := reconcile(t, raws)
	c := reconcile(t, raws, WithSalt([]byte("other-salt")))

	assert.Equal(t, a.Records[0].PrivateID, b.Records[0].PrivateID)
	assert.NotEqual(t, a.Records[0].PrivateID, c.Records[0].PrivateID)
	assert.Equal(t, inventory.PublicationWithheld, a.Records[0].Publication)
	assert.Equal(t, 1, a.Metadata.Stats.Withheld)
}

func TestReconcilePrivateCutoff(t *testing.T) {
	cutoff := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	p, err := policy.New(policy.WithPrivateCutoff(cutoff))
	require.NoError(t, err)

	stale := raw("CDCgov", "stale", inventory.VisibilityPrivate, "")
	stale.UpdatedAt = cutoff.AddDate(-1, 0, 0)
	stalePublic := raw("CDCgov", "stale-public", inventory.VisibilityPublic, "")
	stalePublic.UpdatedAt = stale.UpdatedAt

	res := reconcile(t, []inventory.RawRepository{
		stale, stalePublic, raw("CDCgov", "fresh", inventory.VisibilityPrivate, ""),
	}, WithPolicy(p))

	assert.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Metadata.Stats.RecordsExcluded)
	entries := res.Log.Filter(runlog.KindPrivateCutoff)
	require.Len(t, entries, 1)
	assert.Equal(t, "github/cdcgov/stale", entries[0].Repository)
	assert.Contains(t, entries[0].Message, "2025-06-21")
}

func TestReconcileMarkerDiagnostics(t *testing.T) {
	readme := "Status:\nExemption: exemptByLaw\nExemption: exemptByCIO\nNote: prose line\n"
	res := reconcile(t, []inventory.RawRepository{raw("CDCgov", "x", inventory.VisibilityPrivate, readme)})

	malformed := res.Log.Filter(runlog.KindMarkerMalformed)
	require.Len(t, malformed, 1)
	assert.Equal(t, 1, malformed[0].Line)
	assert.Equal(t, "status", malformed[0].Field)

	duplicates := res.Log.Filter(runlog.KindMarkerDuplicate)
	require.Len(t, duplicates, 1)
	assert.Equal(t, 3, duplicates[0].Line)

	assert.Equal(t, policy.ExemptByLaw, *res.Records[0].Permissions.Exemption)
	assert.Len(t, res.Log.Filter(runlog.KindMissingJustification), 1)
}

func TestReconcileDeduplication(t *testing.T) {
	fork := raw("CDCgov", "fork", inventory.VisibilityPublic, "")
	fork.Fork = true
	canonicalFork := raw("CDCgov", "canonical-fork", inventory.VisibilityPublic, "Canonical Source: yes")
	canonicalFork.Fork = true
	mirror := raw("CDCent", "shared", inventory.VisibilityPublic, "")
	mirror.URL = "https://github.com/CDCgov/shared"

	res := reconcile(t, []inventory.RawRepository{
		fork, canonicalFork, mirror, raw("CDCgov", "shared", inventory.VisibilityPublic, ""),
	})

	var names []string
	for _, r := range res.Records {
		names = append(names, r.SourceOrganization+"/"+r.Name)
	}
	assert.Equal(t, []string{"CDCgov/canonical-fork", "CDCgov/shared"}, names)
	assert.True(t, res.Records[1].ReviewRequired)
	assert.Equal(t, 2, res.Metadata.Stats.RecordsExcluded)
	assert.Len(t, res.Log.Filter(runlog.KindForkExcluded), 1)
	assert.Len(t, res.Log.Filter(runlog.KindCrossOrgDuplicate), 1)
}

func TestReconcileBaselineChangeset(t *testing.T) {
	previous := reconcile(t, []inventory.RawRepository{
		raw("CDCgov", "kept", inventory.VisibilityPublic, ""),
		raw("CDCgov", "retired", inventory.VisibilityPublic, ""),
	})

	res := reconcile(t, []inventory.RawRepository{
		raw("CDCgov", "kept", inventory.VisibilityPublic, "Status: production"),
		raw("CDCgov", "new", inventory.VisibilityPublic, ""),
	}, WithBaseline(previous.Catalog))

	require.NotNil(t, res.Changeset)
	assert.True(t, res.HasChanges())
	assert.Equal(t, 1, res.Changeset.Summary.ReleasesAdded)
	assert.Equal(t, 1, res.Changeset.Summary.ReleasesUpdated)
	assert.Equal(t, 1, res.Changeset.Summary.ReleasesRemoved)
	assert.Contains(t, res.Summary(), "Changeset:")
}

func TestReconcileOrganizations(t *testing.T) {
	raws := []inventory.RawRepository{
		raw("CDCgov", "a", inventory.VisibilityPublic, ""),
		raw("CDCent", "b", inventory.VisibilityPublic, ""),
		raw("cdcgov", "c", inventory.VisibilityPublic, ""),
	}
	assert.Equal(t, []string{"CDCent", "CDCgov"}, reconcile(t, raws).Catalog.Organizations)
	assert.Equal(t, []string{"CDCgov", "Empty"},
		reconcile(t, raws, WithOrganizations("Empty", "CDCgov")).Catalog.Organizations)
}

func TestReconcileSchemaViolation(t *testing.T) {
	p, err := policy.New(policy.WithMeasurementMethod(""))
	require.NoError(t, err)

	log := runlog.New(runlog.WithLogger(logging.NewNopLogger()))
	r, err := New(WithPolicy(p), WithSalt([]byte("s")), WithRunLog(log))
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background(), []inventory.RawRepository{raw("CDCgov", "a", inventory.VisibilityPublic, "")})
	require.Error(t, err)
	assert.True(t, errors.IsSchemaViolation(err))
	assert.Error(t, log.Fatal())
}

func TestReconcileCanceled(t *testing.T) {
	r, err := New(WithSalt([]byte("s")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Reconcile(ctx, []inventory.RawRepository{raw("CDCgov", "a", inventory.VisibilityPublic, "")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(WithPolicy(nil))
	assert.True(t, errors.IsValidationError(err))
	_, err = New(WithSalt(nil))
	assert.True(t, errors.IsValidationError(err))
	_, err = New(WithClock(nil))
	assert.True(t, errors.IsValidationError(err))
}
