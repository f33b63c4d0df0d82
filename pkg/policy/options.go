package policy

import (
	"net/mail"
	"strings"
	"time"

	"github.com/agentstation/codeinventory/pkg/constants"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// Option configures a Policy under construction.
type Option func(*Policy) error

// New builds a policy from the defaults and the given options.
func New(opts ...Option) (*Policy, error) {
	return apply(defaults(), opts...)
}

// With returns a copy of p with the options applied. p is unchanged.
func (p *Policy) With(opts ...Option) (*Policy, error) {
	return apply(p.clone(), opts...)
}

func apply(p *Policy, opts ...Option) (*Policy, error) {
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) validate() error {
	switch {
	case p.pseudonymLength < constants.MinPseudonymLength || p.pseudonymLength > 64:
		return errors.NewValidationError("pseudonym.length", p.pseudonymLength, "must be between 8 and 64")
	case len(p.exemptionCodes) == 0:
		return errors.NewValidationError("exemption_codes", nil, "cannot be empty")
	case len(p.markerAliases) == 0:
		return errors.NewValidationError("marker_aliases", nil, "cannot be empty")
	}
	if p.privateContactEmail != "" {
		if _, err := mail.ParseAddress(p.privateContactEmail); err != nil {
			return errors.NewValidationError("private_contact_email", p.privateContactEmail, err.Error())
		}
	}
	return nil
}

// WithSchemaVersion sets the catalog schema version. Empty values are kept so
// that assembly reports the schema violation.
func WithSchemaVersion(v string) Option {
	return func(p *Policy) error {
		p.schemaVersion = strings.TrimSpace(v)
		return nil
	}
}

// WithAgency sets the agency name.
func WithAgency(agency string) Option {
	return func(p *Policy) error {
		p.agency = strings.TrimSpace(agency)
		return nil
	}
}

// WithMeasurementMethod sets measurementType.method.
func WithMeasurementMethod(method string) Option {
	return func(p *Policy) error {
		p.measurementMethod = strings.TrimSpace(method)
		return nil
	}
}

// WithMarkerAlias adds a README marker key for field.
func WithMarkerAlias(alias string, field inventory.Field) Option {
	return func(p *Policy) error {
		if !isField(field) {
			return errors.NewValidationError("marker_aliases", alias, "unknown field "+field.String())
		}
		key := NormalizeKey(alias)
		if key == "" {
			return errors.NewValidationError("marker_aliases", alias, "alias cannot be empty")
		}
		p.markerAliases[key] = field
		return nil
	}
}

// WithExemptionCodes replaces the recognized exemption codes.
func WithExemptionCodes(codes ...inventory.ExemptionCode) Option {
	return func(p *Policy) error {
		p.exemptionCodes = p.exemptionCodes[:0:0]
		for _, c := range codes {
			if c = inventory.ExemptionCode(strings.TrimSpace(string(c))); c != "" {
				p.exemptionCodes = append(p.exemptionCodes, c)
			}
		}
		return nil
	}
}

// WithNonCodeLanguages replaces the non-code language list.
func WithNonCodeLanguages(langs ...string) Option {
	return func(p *Policy) error {
		p.nonCodeLanguages = make(map[string]bool, len(langs))
		for _, l := range langs {
			p.nonCodeLanguages[strings.ToLower(strings.TrimSpace(l))] = true
		}
		return nil
	}
}

// WithOrganizationAcronym maps a repository-name acronym to an organization name.
func WithOrganizationAcronym(acronym, organization string) Option {
	return func(p *Policy) error {
		acronym = strings.ToLower(strings.TrimSpace(acronym))
		if acronym == "" || organization == "" {
			return errors.NewValidationError("organization_acronyms", acronym, "acronym and organization are required")
		}
		p.acronyms[acronym] = organization
		return nil
	}
}

// WithOrganization sets the defaults for a host organization.
func WithOrganization(org string, d OrganizationDefaults) Option {
	return func(p *Policy) error {
		if org == "" {
			return errors.NewValidationError("organizations", org, "organization key cannot be empty")
		}
		p.organizations[strings.ToLower(org)] = d
		return nil
	}
}

// WithPrivateContactEmail sets the contact published for non-public releases.
func WithPrivateContactEmail(email string) Option {
	return func(p *Policy) error {
		p.privateContactEmail = strings.TrimSpace(email)
		return nil
	}
}

// WithRedactionURLs sets the URLs published in place of exempt and withheld repositories.
func WithRedactionURLs(exemptedNotice, instructions string) Option {
	return func(p *Policy) error {
		p.exemptedNoticeURL = strings.TrimSpace(exemptedNotice)
		p.instructionsURL = strings.TrimSpace(instructions)
		return nil
	}
}

// WithAllowedEmailDomains restricts contact emails to the given domains.
func WithAllowedEmailDomains(domains ...string) Option {
	return func(p *Policy) error {
		p.allowedEmailDomains = nil
		for _, d := range domains {
			if d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@")); d != "" {
				p.allowedEmailDomains = append(p.allowedEmailDomains, d)
			}
		}
		return nil
	}
}

// WithInternalHosts marks code hosts whose repositories are never public.
func WithInternalHosts(hosts ...string) Option {
	return func(p *Policy) error {
		p.internalHosts = nil
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				p.internalHosts = append(p.internalHosts, h)
			}
		}
		return nil
	}
}

// WithPrivateCutoff sets the last-modified cutoff for non-public repositories.
func WithPrivateCutoff(t time.Time) Option {
	return func(p *Policy) error {
		p.privateCutoff = t.UTC()
		return nil
	}
}

// WithPseudonym sets the pseudonym prefix and hash length.
func WithPseudonym(prefix string, length int) Option {
	return func(p *Policy) error {
		p.pseudonymPrefix = prefix
		if length != 0 {
			p.pseudonymLength = length
		}
		return nil
	}
}

// WithExemptNonCode enables automatic exemptByCIO for non-code private repositories.
func WithExemptNonCode(enabled bool) Option {
	return func(p *Policy) error {
		p.exemptNonCode = enabled
		return nil
	}
}

// WithRedactDescriptions replaces the description of every non-public release
// with a placeholder.
func WithRedactDescriptions(enabled bool) Option {
	return func(p *Policy) error {
		p.redactDescriptions = enabled
		return nil
	}
}

func isField(f inventory.Field) bool {
	for _, known := range inventory.Fields {
		if f == known {
			return true
		}
	}
	return false
}
