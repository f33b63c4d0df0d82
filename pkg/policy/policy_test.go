package policy_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
)

func TestDefault(t *testing.T) {
	p := policy.Default()

	assert.Equal(t, "2.0", p.SchemaVersion())
	assert.Equal(t, "CDC", p.Agency())
	assert.Equal(t, "projects", p.MeasurementMethod())
	assert.Equal(t, "shareit@cdc.gov", p.PrivateContactEmail())
	assert.Equal(t, 12, p.PseudonymLength())
	assert.False(t, p.ExemptNonCode())
	assert.False(t, p.RedactDescriptions())
	assert.True(t, p.PrivateCutoff().IsZero())
	assert.Len(t, p.ExemptionCodes(), 5)
	assert.True(t, p.IsExemptionCode(policy.ExemptByCIO))
	assert.False(t, p.IsExemptionCode("exemptByWhim"))
	assert.True(t, p.IsNonCodeLanguage("Markdown"))
	assert.False(t, p.IsNonCodeLanguage("Go"))
	assert.True(t, p.EmailDomainAllowed("anything.org"))
}

func TestLookupMarker(t *testing.T) {
	p := policy.Default()

	tests := []struct {
		key  string
		want inventory.Field
		ok   bool
	}{
		{"Organization", inventory.FieldOrganization, true},
		{"ORG", inventory.FieldOrganization, true},
		{"contact email", inventory.FieldContactEmail, true},
		{"Contact-Email", inventory.FieldContactEmail, true},
		{"contact_email", inventory.FieldContactEmail, true},
		{"Exemption justification", inventory.FieldExemptionJustification, true},
		{"labor hours", inventory.FieldLaborHours, true},
		{"Canonical Source", inventory.FieldCanonicalSource, true},
		{"Maintainer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := p.LookupMarker(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "contactemail", policy.NormalizeKey(" Contact  Email "))
	assert.Equal(t, "contactemail", policy.NormalizeKey("CONTACT_EMAIL"))
	assert.Equal(t, policy.NormalizeKey("état"), policy.NormalizeKey("ÉTAT"))
}

func TestGettersReturnCopies(t *testing.T) {
	p, err := policy.New(policy.WithAllowedEmailDomains("cdc.gov"))
	require.NoError(t, err)

	codes := p.ExemptionCodes()
	codes[0] = "tampered"
	assert.Equal(t, policy.ExemptByLaw, p.ExemptionCodes()[0])

	domains := p.AllowedEmailDomains()
	domains[0] = "evil.com"
	assert.Equal(t, []string{"cdc.gov"}, p.AllowedEmailDomains())

	aliases := p.MarkerAliases()
	delete(aliases, "org")
	_, ok := p.LookupMarker("Org")
	assert.True(t, ok)
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	base := policy.Default()
	derived, err := base.With(
		policy.WithAgency("NIH"),
		policy.WithOrganization("cdcgov", policy.OrganizationDefaults{ContactEmail: "a@cdc.gov"}),
		policy.WithMarkerAlias("Maintainer", inventory.FieldContactName),
	)
	require.NoError(t, err)

	assert.Equal(t, "CDC", base.Agency())
	assert.Equal(t, "NIH", derived.Agency())

	_, ok := base.Organization("cdcgov")
	assert.False(t, ok)
	d, ok := derived.Organization("CDCgov")
	require.True(t, ok)
	assert.Equal(t, "a@cdc.gov", d.ContactEmail)

	_, ok = base.LookupMarker("maintainer")
	assert.False(t, ok)
	_, ok = derived.LookupMarker("maintainer")
	assert.True(t, ok)
}

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  policy.Option
	}{
		{"short pseudonym", policy.WithPseudonym("r-", 4)},
		{"unknown alias field", policy.WithMarkerAlias("Owner", "owner")},
		{"empty alias", policy.WithMarkerAlias(" - ", inventory.FieldStatus)},
		{"no exemption codes", policy.WithExemptionCodes()},
		{"bad private contact", policy.WithPrivateContactEmail("not an address")},
		{"empty acronym", policy.WithOrganizationAcronym("", "Office")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policy.New(tt.opt)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestEmailDomainsAndHosts(t *testing.T) {
	p, err := policy.New(
		policy.WithAllowedEmailDomains("@CDC.gov", " "),
		policy.WithInternalHosts("GitLab", "ado"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"cdc.gov"}, p.AllowedEmailDomains())
	assert.True(t, p.EmailDomainAllowed("cdc.gov"))
	assert.False(t, p.EmailDomainAllowed("gmail.com"))
	assert.True(t, p.IsInternalHost("gitlab"))
	assert.False(t, p.IsInternalHost("github"))
}

const yamlPolicy = `
agency: "CDC"
marker_aliases:
  "Point of Contact": contact_email
organization_acronyms:
  ocio: "Office of the Chief Information Officer"
organizations:
  cdcgov:
    name: "Centers for Disease Control and Prevention"
    contact_email: "opensource@cdc.gov"
exempted_notice_url: "https://example.gov/exempted.pdf"
instructions_url: "https://example.gov/instructions.pdf"
allowed_email_domains: ["cdc.gov"]
internal_hosts: ["gitlab"]
private_cutoff: "2025-06-21"
pseudonym:
  prefix: "cdc-"
  length: 16
exempt_non_code: true
redact_descriptions: true
`

const tomlPolicy = `
agency = "CDC"
private_cutoff = "2025-06-21T00:00:00Z"
internal_hosts = ["gitlab"]
exempt_non_code = true
redact_descriptions = true

[marker_aliases]
"Point of Contact" = "contact_email"

[organization_acronyms]
ocio = "Office of the Chief Information Officer"

[organizations.cdcgov]
name = "Centers for Disease Control and Prevention"
contact_email = "opensource@cdc.gov"

[pseudonym]
prefix = "cdc-"
length = 16
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "policy.yaml", yamlPolicy},
		{"toml", "policy.toml", tomlPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			p, err := policy.Load(path)
			require.NoError(t, err)

			field, ok := p.LookupMarker("point of contact")
			require.True(t, ok)
			assert.Equal(t, inventory.FieldContactEmail, field)

			assert.Equal(t, "Office of the Chief Information Officer", p.OrganizationAcronyms()["ocio"])
			d, ok := p.Organization("cdcgov")
			require.True(t, ok)
			assert.Equal(t, "opensource@cdc.gov", d.ContactEmail)

			assert.True(t, p.IsInternalHost("gitlab"))
			assert.True(t, p.PrivateCutoff().Equal(time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)))
			assert.Equal(t, "cdc-", p.PseudonymPrefix())
			assert.Equal(t, 16, p.PseudonymLength())
			assert.True(t, p.ExemptNonCode())
			assert.True(t, p.RedactDescriptions())
		})
	}
}

func TestLoadOptionsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlPolicy), 0o600))

	p, err := policy.Load(path, policy.WithExemptNonCode(false))
	require.NoError(t, err)
	assert.False(t, p.ExemptNonCode())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := policy.Load(filepath.Join(dir, "missing.yaml"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("colour = \"blue\"\n"), 0o600))
	_, err = policy.Load(unknown)
	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, unknown, parseErr.File)

	badDate := filepath.Join(dir, "date.yaml")
	require.NoError(t, os.WriteFile(badDate, []byte("private_cutoff: \"June 21\"\n"), 0o600))
	_, err = policy.Load(badDate)
	assert.True(t, errors.IsValidationError(err))

	_, err = policy.Parse([]byte("{}"), "ini")
	assert.Error(t, err)
}
