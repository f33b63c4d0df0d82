// Package policy holds the immutable configuration shared by every stage of
// the reconciliation pipeline: the marker alias allow-list, the exemption
// code enumeration, organization defaults, redaction targets and pseudonym
// parameters.
//
// A Policy is built once per run with New or Load and passed explicitly to
// each stage. Its fields are unexported and every getter returns a copy, so a
// stage cannot change the configuration seen by another.
package policy

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/agentstation/codeinventory/pkg/constants"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// Default values.
const (
	DefaultSchemaVersion        = "2.0"
	DefaultAgency               = "CDC"
	DefaultMeasurementMethod    = "projects"
	DefaultVCS                  = "git"
	DefaultPrivateContactEmail  = "shareit@cdc.gov"
	DefaultPseudonymPrefix      = "repo-"
	DefaultNonCodeJustification = "Repository contains no code or only non-code assets like documentation and configuration."
)

// Known exemption codes.
const (
	ExemptByLaw              inventory.ExemptionCode = "exemptByLaw"
	ExemptByNationalSecurity inventory.ExemptionCode = "exemptByNationalSecurity"
	ExemptByAgencySystem     inventory.ExemptionCode = "exemptByAgencySystem"
	ExemptByMissionSystem    inventory.ExemptionCode = "exemptByMissionSystem"
	ExemptByCIO              inventory.ExemptionCode = "exemptByCIO"
)

// OrganizationDefaults are values applied to every repository of an organization
// unless a README marker overrides them.
type OrganizationDefaults struct {
	Name         string `yaml:"name,omitempty" toml:"name,omitempty"`
	ContactEmail string `yaml:"contact_email,omitempty" toml:"contact_email,omitempty"`
	ContactName  string `yaml:"contact_name,omitempty" toml:"contact_name,omitempty"`
}

// Policy is the immutable pipeline configuration.
type Policy struct {
	schemaVersion        string
	agency               string
	measurementMethod    string
	vcs                  string
	markerAliases        map[string]inventory.Field
	exemptionCodes       []inventory.ExemptionCode
	nonCodeLanguages     map[string]bool
	acronyms             map[string]string
	organizations        map[string]OrganizationDefaults
	privateContactEmail  string
	exemptedNoticeURL    string
	instructionsURL      string
	allowedEmailDomains  []string
	internalHosts        []string
	privateCutoff        time.Time
	pseudonymPrefix      string
	pseudonymLength      int
	exemptNonCode        bool
	redactDescriptions   bool
	nonCodeJustification string
}

// defaultMarkerAliases maps README marker keys onto overridable fields.
var defaultMarkerAliases = map[string]inventory.Field{
	"Organization":            inventory.FieldOrganization,
	"Org":                     inventory.FieldOrganization,
	"Contact Email":           inventory.FieldContactEmail,
	"Contact":                 inventory.FieldContactEmail,
	"Contact Name":            inventory.FieldContactName,
	"Exemption":               inventory.FieldExemption,
	"Exemption Justification": inventory.FieldExemptionJustification,
	"Status":                  inventory.FieldStatus,
	"Version":                 inventory.FieldVersion,
	"Description":             inventory.FieldDescription,
	"Homepage":                inventory.FieldHomepage,
	"Labor Hours":             inventory.FieldLaborHours,
	"Canonical Source":        inventory.FieldCanonicalSource,
}

var defaultNonCodeLanguages = []string{
	"markdown", "text", "html", "css", "xml", "yaml", "json", "shell",
	"batchfile", "powershell", "dockerfile", "makefile", "cmake",
	"tex", "roff", "csv", "tsv",
}

func defaults() *Policy {
	p := &Policy{
		schemaVersion:     DefaultSchemaVersion,
		agency:            DefaultAgency,
		measurementMethod: DefaultMeasurementMethod,
		vcs:               DefaultVCS,
		markerAliases:     make(map[string]inventory.Field, len(defaultMarkerAliases)),
		exemptionCodes: []inventory.ExemptionCode{
			ExemptByLaw, ExemptByNationalSecurity, ExemptByAgencySystem, ExemptByMissionSystem, ExemptByCIO,
		},
		nonCodeLanguages:     make(map[string]bool, len(defaultNonCodeLanguages)),
		acronyms:             make(map[string]string),
		organizations:        make(map[string]OrganizationDefaults),
		privateContactEmail:  DefaultPrivateContactEmail,
		pseudonymPrefix:      DefaultPseudonymPrefix,
		pseudonymLength:      constants.DefaultPseudonymLength,
		nonCodeJustification: DefaultNonCodeJustification,
	}
	for alias, field := range defaultMarkerAliases {
		p.markerAliases[NormalizeKey(alias)] = field
	}
	for _, lang := range defaultNonCodeLanguages {
		p.nonCodeLanguages[lang] = true
	}
	return p
}

// Default returns the built-in policy.
func Default() *Policy {
	return defaults()
}

// SchemaVersion returns the catalog schema version.
func (p *Policy) SchemaVersion() string { return p.schemaVersion }

// Agency returns the agency name stamped on the catalog.
func (p *Policy) Agency() string { return p.agency }

// MeasurementMethod returns the catalog measurementType.method.
func (p *Policy) MeasurementMethod() string { return p.measurementMethod }

// VCS returns the version control system recorded on each release.
func (p *Policy) VCS() string { return p.vcs }

// LookupMarker resolves a README marker key to its field.
func (p *Policy) LookupMarker(key string) (inventory.Field, bool) {
	f, ok := p.markerAliases[NormalizeKey(key)]
	return f, ok
}

// MarkerAliases returns a copy of the normalized alias table.
func (p *Policy) MarkerAliases() map[string]inventory.Field {
	out := make(map[string]inventory.Field, len(p.markerAliases))
	for k, v := range p.markerAliases {
		out[k] = v
	}
	return out
}

// ExemptionCodes returns the recognized exemption codes.
func (p *Policy) ExemptionCodes() []inventory.ExemptionCode {
	return slices.Clone(p.exemptionCodes)
}

// IsExemptionCode reports whether code is recognized.
func (p *Policy) IsExemptionCode(code inventory.ExemptionCode) bool {
	return slices.Contains(p.exemptionCodes, code)
}

// IsNonCodeLanguage reports whether lang is documentation or configuration only.
func (p *Policy) IsNonCodeLanguage(lang string) bool {
	return p.nonCodeLanguages[strings.ToLower(strings.TrimSpace(lang))]
}

// OrganizationAcronyms returns a copy of the acronym to organization table.
func (p *Policy) OrganizationAcronyms() map[string]string {
	out := make(map[string]string, len(p.acronyms))
	for k, v := range p.acronyms {
		out[k] = v
	}
	return out
}

// Organization returns the defaults configured for a host organization.
func (p *Policy) Organization(org string) (OrganizationDefaults, bool) {
	d, ok := p.organizations[strings.ToLower(org)]
	return d, ok
}

// PrivateContactEmail returns the contact published for non-public releases.
func (p *Policy) PrivateContactEmail() string { return p.privateContactEmail }

// ExemptedNoticeURL returns the URL published in place of an exempt repository.
func (p *Policy) ExemptedNoticeURL() string { return p.exemptedNoticeURL }

// InstructionsURL returns the URL published in place of a withheld repository.
func (p *Policy) InstructionsURL() string { return p.instructionsURL }

// AllowedEmailDomains returns the accepted contact email domains. Empty means any.
func (p *Policy) AllowedEmailDomains() []string {
	return slices.Clone(p.allowedEmailDomains)
}

// EmailDomainAllowed reports whether a contact email domain is accepted.
func (p *Policy) EmailDomainAllowed(domain string) bool {
	if len(p.allowedEmailDomains) == 0 {
		return true
	}
	return slices.Contains(p.allowedEmailDomains, strings.ToLower(domain))
}

// IsInternalHost reports whether repositories on host are never public.
func (p *Policy) IsInternalHost(host string) bool {
	return slices.Contains(p.internalHosts, strings.ToLower(host))
}

// PrivateCutoff returns the last-modified date before which non-public
// repositories are left out. The zero time disables the cutoff.
func (p *Policy) PrivateCutoff() time.Time { return p.privateCutoff }

// PseudonymPrefix returns the prefix of generated pseudonyms.
func (p *Policy) PseudonymPrefix() string { return p.pseudonymPrefix }

// PseudonymLength returns the number of hash characters kept in a pseudonym.
func (p *Policy) PseudonymLength() int { return p.pseudonymLength }

// ExemptNonCode reports whether private repositories with only non-code
// languages are exempted automatically.
func (p *Policy) ExemptNonCode() bool { return p.exemptNonCode }

// RedactDescriptions reports whether non-public releases publish a placeholder
// instead of their description.
func (p *Policy) RedactDescriptions() bool { return p.redactDescriptions }

// NonCodeJustification returns the justification used for automatic non-code exemptions.
func (p *Policy) NonCodeJustification() string { return p.nonCodeJustification }

// clone returns a deep copy used while applying options.
func (p *Policy) clone() *Policy {
	c := *p
	c.markerAliases = p.MarkerAliases()
	c.exemptionCodes = p.ExemptionCodes()
	c.nonCodeLanguages = make(map[string]bool, len(p.nonCodeLanguages))
	for k, v := range p.nonCodeLanguages {
		c.nonCodeLanguages[k] = v
	}
	c.acronyms = p.OrganizationAcronyms()
	c.organizations = make(map[string]OrganizationDefaults, len(p.organizations))
	for k, v := range p.organizations {
		c.organizations[k] = v
	}
	c.allowedEmailDomains = p.AllowedEmailDomains()
	c.internalHosts = slices.Clone(p.internalHosts)
	return &c
}

// NormalizeKey folds a marker key for comparison: Unicode case folding,
// with whitespace, hyphens and underscores removed.
func NormalizeKey(key string) string {
	folded := cases.Fold().String(key)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch r {
		case ' ', '\t', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
