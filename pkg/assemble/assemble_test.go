package assemble

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory/internal/utils/ptr"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

var generated = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func testPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New(policy.WithRedactionURLs("https://example.gov/exempted", "https://example.gov/instructions"))
	require.NoError(t, err)
	return p
}

func openRecord(org, name string) inventory.CanonicalRecord {
	return inventory.CanonicalRecord{
		Host:               "github",
		SourceOrganization: "CDCgov",
		Name:               name,
		RealID:             "github/cdcgov/" + strings.ToLower(name),
		Organization:       org,
		Description:        name + " tool",
		RepositoryURL:      "https://github.com/CDCgov/" + name,
		HomepageURL:        "https://cdcgov.github.io/" + name,
		Visibility:         inventory.VisibilityPublic,
		Status:             inventory.StatusProduction,
		Languages:          []string{"Go"},
		Permissions: inventory.Permissions{
			License:      ptr.To("Apache-2.0"),
			ContactEmail: ptr.To("team@cdc.gov"),
			ContactName:  ptr.To("Team"),
			UsageType:    "openSource",
		},
		Dates: inventory.Dates{
			Created:      time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
			LastModified: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Publication: inventory.PublicationOpen,
	}
}

func privateRecord(pub inventory.Publication) inventory.CanonicalRecord {
	r := openRecord("Center for Surveillance", "secret")
	r.Visibility = inventory.VisibilityPrivate
	r.Publication = pub
	r.PrivateID = "repo-0123456789ab"
	r.Identifier = r.PrivateID
	r.Permissions.UsageType = "governmentWideReuse"
	if pub == inventory.PublicationExempt {
		r.Permissions.Exemption = ptr.To(policy.ExemptByLaw)
		r.Permissions.Justification = ptr.To("HIPAA")
		r.Permissions.UsageType = "exemptByLaw"
	}
	return r
}

func TestAssembleHeader(t *testing.T) {
	res, err := Assemble(nil, []string{"CDCgov", "cdcent", "cdcgov"}, nil, generated.In(time.FixedZone("EST", -5*3600)))
	require.NoError(t, err)

	c := res.Catalog
	assert.Equal(t, "2.0", c.Version)
	assert.Equal(t, "CDC", c.Agency)
	assert.Equal(t, "projects", c.MeasurementType.Method)
	assert.Equal(t, generated, c.GeneratedAt)
	assert.Equal(t, time.UTC, c.GeneratedAt.Location())
	assert.Equal(t, []string{"cdcent", "CDCgov"}, c.Organizations)
	assert.NotNil(t, c.Releases)
	assert.Empty(t, c.Releases)
}

func TestAssembleSchemaViolation(t *testing.T) {
	p, err := policy.New(policy.WithAgency(""), policy.WithSchemaVersion(""))
	require.NoError(t, err)

	_, err = Assemble([]inventory.CanonicalRecord{openRecord("A", "x")}, nil, p, generated)
	require.Error(t, err)
	assert.True(t, errors.IsSchemaViolation(err))

	var sv *errors.SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, []string{"version", "agency"}, sv.Fields)
}

func TestAssembleSortsReleases(t *testing.T) {
	records := []inventory.CanonicalRecord{
		openRecord("beta", "zed"),
		openRecord("Alpha", "tool"),
		openRecord("beta", "Able"),
		openRecord("alpha", "Other"),
	}
	res, err := Assemble(records, nil, nil, generated)
	require.NoError(t, err)

	var got []string
	for _, r := range res.Catalog.Releases {
		got = append(got, r.Organization+"/"+r.Name)
	}
	assert.Equal(t, []string{"alpha/Other", "Alpha/tool", "beta/Able", "beta/zed"}, got)
}

func TestAssembleOpenRelease(t *testing.T) {
	res, err := Assemble([]inventory.CanonicalRecord{openRecord("Office of Readiness", "tool")}, nil, nil, generated)
	require.NoError(t, err)
	require.Len(t, res.Catalog.Releases, 1)

	r := res.Catalog.Releases[0]
	assert.Equal(t, "tool", r.Name)
	assert.Equal(t, "https://github.com/CDCgov/tool", r.RepositoryURL)
	assert.Equal(t, "https://cdcgov.github.io/tool", r.HomepageURL)
	assert.Equal(t, "team@cdc.gov", r.Contact.Email)
	assert.Equal(t, "N/A", r.Version)
	assert.Equal(t, "git", r.VCS)
	assert.Equal(t, "public", r.RepositoryVisibility)
	assert.Equal(t, []inventory.ReleaseLicense{{Name: "Apache-2.0"}}, r.Permissions.Licenses)
	assert.Nil(t, r.Permissions.ExemptionText)
	assert.Empty(t, r.PrivateID)
	assert.Equal(t, "2020-01-02T03:04:05Z", r.Date.Created)
	assert.Equal(t, "2025-07-01T12:00:00Z", r.Date.MetadataLastUpdated)
	assert.Empty(t, res.Entries)
}

func TestAssembleRedaction(t *testing.T) {
	p := testPolicy(t)

	t.Run("exempt", func(t *testing.T) {
		res, err := Assemble([]inventory.CanonicalRecord{privateRecord(inventory.PublicationExempt)}, nil, p, generated)
		require.NoError(t, err)
		r := res.Catalog.Releases[0]

		assert.Equal(t, "repo-0123456789ab", r.Name)
		assert.Equal(t, "repo-0123456789ab", r.PrivateID)
		assert.Equal(t, "https://example.gov/exempted", r.RepositoryURL)
		assert.Empty(t, r.HomepageURL)
		assert.Equal(t, "shareit@cdc.gov", r.Contact.Email)
		assert.Empty(t, r.Contact.Name)
		require.NotNil(t, r.Permissions.ExemptionText)
		assert.Equal(t, "HIPAA", *r.Permissions.ExemptionText)
		assert.Equal(t, "exemptByLaw", r.Permissions.UsageType)
	})

	t.Run("withheld", func(t *testing.T) {
		res, err := Assemble([]inventory.CanonicalRecord{privateRecord(inventory.PublicationWithheld)}, nil, p, generated)
		require.NoError(t, err)
		r := res.Catalog.Releases[0]

		assert.Equal(t, "repo-0123456789ab", r.Name)
		assert.Equal(t, "https://example.gov/instructions", r.RepositoryURL)
		assert.Nil(t, r.Permissions.ExemptionText)
		assert.Equal(t, "secret tool", r.Description)
	})

	t.Run("redacted description", func(t *testing.T) {
		p, err := policy.New(
			policy.WithRedactionURLs("https://example.gov/exempted", "https://example.gov/instructions"),
			policy.WithRedactDescriptions(true),
		)
		require.NoError(t, err)

		records := []inventory.CanonicalRecord{
			privateRecord(inventory.PublicationWithheld),
			privateRecord(inventory.PublicationExempt),
			openRecord("Center for Surveillance", "open"),
		}
		records[1].PrivateID = "repo-ba9876543210"
		res, err := Assemble(records, nil, p, generated)
		require.NoError(t, err)
		assert.Empty(t, res.Entries)

		for _, r := range res.Catalog.Releases {
			if r.PrivateID == "" {
				assert.Equal(t, "open tool", r.Description)
				continue
			}
			assert.Equal(t, RedactedDescription, r.Description, r.PrivateID)
		}

		var buf bytes.Buffer
		require.NoError(t, WriteCatalog(&buf, res.Catalog))
		assert.NotContains(t, buf.String(), "secret")
	})

	t.Run("real identity never published", func(t *testing.T) {
		res, err := Assemble([]inventory.CanonicalRecord{privateRecord(inventory.PublicationWithheld)}, nil, p, generated)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, WriteCatalog(&buf, res.Catalog))
		assert.NotContains(t, buf.String(), "CDCgov/secret")
		assert.NotContains(t, buf.String(), "team@cdc.gov")
	})
}

func TestAssembleIdempotent(t *testing.T) {
	p := testPolicy(t)
	records := []inventory.CanonicalRecord{
		openRecord("beta", "b"),
		privateRecord(inventory.PublicationExempt),
		openRecord("alpha", "a"),
	}
	reversed := []inventory.CanonicalRecord{records[2], records[1], records[0]}

	render := func(in []inventory.CanonicalRecord, orgs []string) []byte {
		res, err := Assemble(in, orgs, p, generated)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteCatalog(&buf, res.Catalog))
		return buf.Bytes()
	}

	first := render(records, []string{"CDCgov", "CDCent"})
	assert.Equal(t, first, render(records, []string{"CDCgov", "CDCent"}))
	assert.Equal(t, first, render(reversed, []string{"CDCent", "CDCgov"}))
}

func TestAssembleIncompleteRelease(t *testing.T) {
	r := openRecord("A", "bare")
	r.Description = ""
	r.Permissions.ContactEmail = nil

	res, err := Assemble([]inventory.CanonicalRecord{r}, nil, nil, generated)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, runlog.KindIncompleteRelease, res.Entries[0].Kind)
	assert.Equal(t, "release is missing description, contact.email", res.Entries[0].Message)
	assert.Len(t, res.Catalog.Releases, 1)
}

func TestCrossReferenceRoundTrip(t *testing.T) {
	mappings := []inventory.PseudonymMapping{
		{RealID: "github/cdcgov/zeta", Pseudonym: "repo-2", Organization: "CDCgov"},
		{RealID: "github/cdcent/alpha", Pseudonym: "repo-1", Organization: "CDCent"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCrossReference(&buf, mappings))
	assert.Equal(t, "real_id,pseudonym,organization\ngithub/cdcent/alpha,repo-1,CDCent\ngithub/cdcgov/zeta,repo-2,CDCgov\n", buf.String())

	got, err := ReadCrossReference(&buf)
	require.NoError(t, err)
	assert.Equal(t, []inventory.PseudonymMapping{mappings[1], mappings[0]}, got)
}

func TestValidate(t *testing.T) {
	p := testPolicy(t)
	res, err := Assemble([]inventory.CanonicalRecord{
		openRecord("A", "tool"),
		privateRecord(inventory.PublicationExempt),
	}, []string{"CDCgov"}, p, generated)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, res.Catalog))
	decoded, err := ReadCatalog(&buf)
	require.NoError(t, err)
	assert.NoError(t, Validate(decoded))

	t.Run("missing header", func(t *testing.T) {
		bad := *decoded
		bad.Agency = ""
		err := Validate(&bad)
		assert.True(t, errors.IsSchemaViolation(err))
	})

	t.Run("leaked private name", func(t *testing.T) {
		bad := *decoded
		bad.Releases = append([]inventory.Release(nil), decoded.Releases...)
		for i := range bad.Releases {
			if bad.Releases[i].PrivateID != "" {
				bad.Releases[i].Name = "secret"
			}
		}
		err := Validate(&bad)
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		assert.Contains(t, err.Error(), "private id")
	})

	t.Run("nil", func(t *testing.T) {
		assert.True(t, errors.IsSchemaViolation(Validate(nil)))
	})
}
