package inventory

import "time"

// ExemptionCode is a declared reason a repository is not openly published.
type ExemptionCode string

// String returns the string representation of the exemption code.
func (c ExemptionCode) String() string {
	return string(c)
}

// Publication is the catalog treatment decided for a record.
type Publication string

const (
	// PublicationOpen publishes the record as-is.
	PublicationOpen Publication = "open"
	// PublicationExempt publishes a redacted record with its exemption.
	PublicationExempt Publication = "exempt"
	// PublicationWithheld publishes a redacted record with no exemption.
	PublicationWithheld Publication = "withheld"
)

// Permissions is the visibility-derived permission block of a record.
type Permissions struct {
	License       *string        `json:"license,omitempty" yaml:"license,omitempty"`
	Exemption     *ExemptionCode `json:"exemption,omitempty" yaml:"exemption,omitempty"`
	Justification *string        `json:"justification,omitempty" yaml:"justification,omitempty"`
	ContactEmail  *string        `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
	ContactName   *string        `json:"contact_name,omitempty" yaml:"contact_name,omitempty"`
	UsageType     string         `json:"usage_type,omitempty" yaml:"usage_type,omitempty"`
}

// Dates holds the timestamps carried into the catalog.
type Dates struct {
	Created      time.Time `json:"created" yaml:"created"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
}

// CanonicalRecord is the reconciled representation of one repository.
//
// A record moves through normalization, override merge, classification and
// pseudonymization. Each stage returns a new value; the input is left untouched.
type CanonicalRecord struct {
	// Identity
	Host               string `json:"host" yaml:"host"`
	SourceOrganization string `json:"source_organization" yaml:"source_organization"` // Organization the record was collected from
	Name               string `json:"name" yaml:"name"`
	RealID             string `json:"real_id" yaml:"real_id"`
	Identifier         string `json:"identifier" yaml:"identifier"` // Repository URL, or pseudonym once withheld

	// Catalog fields
	Organization  string      `json:"organization" yaml:"organization"`
	Description   string      `json:"description" yaml:"description"`
	RepositoryURL string      `json:"repository_url" yaml:"repository_url"`
	HomepageURL   string      `json:"homepage_url,omitempty" yaml:"homepage_url,omitempty"`
	Visibility    Visibility  `json:"visibility" yaml:"visibility"`
	Status        Status      `json:"status" yaml:"status"`
	Version       string      `json:"version,omitempty" yaml:"version,omitempty"`
	LaborHours    float64     `json:"labor_hours" yaml:"labor_hours"`
	Languages     []string    `json:"languages" yaml:"languages"`
	Tags          []string    `json:"tags" yaml:"tags"`
	Permissions   Permissions `json:"permissions" yaml:"permissions"`
	Dates         Dates       `json:"dates" yaml:"dates"`

	// Relationships
	Fork      bool   `json:"fork,omitempty" yaml:"fork,omitempty"`
	Parent    string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Canonical bool   `json:"canonical,omitempty" yaml:"canonical,omitempty"` // Marked as canonical source despite being a fork

	// Classification
	Publication    Publication `json:"publication,omitempty" yaml:"publication,omitempty"`
	Invalid        bool        `json:"invalid,omitempty" yaml:"invalid,omitempty"`
	ReviewRequired bool        `json:"review_required,omitempty" yaml:"review_required,omitempty"`
	PrivateID      string      `json:"private_id,omitempty" yaml:"private_id,omitempty"`
}

// HasExemption reports whether the record declares an exemption.
func (r *CanonicalRecord) HasExemption() bool {
	return r.Permissions.Exemption != nil
}

// IsWithheld reports whether the record's real identity must not be published.
func (r *CanonicalRecord) IsWithheld() bool {
	return !r.Visibility.IsPublic()
}

// Clone returns a deep copy of the record.
func (r CanonicalRecord) Clone() CanonicalRecord {
	c := r
	c.Languages = append([]string(nil), r.Languages...)
	c.Tags = append([]string(nil), r.Tags...)
	c.Permissions.License = clonePtr(r.Permissions.License)
	c.Permissions.Exemption = clonePtr(r.Permissions.Exemption)
	c.Permissions.Justification = clonePtr(r.Permissions.Justification)
	c.Permissions.ContactEmail = clonePtr(r.Permissions.ContactEmail)
	c.Permissions.ContactName = clonePtr(r.Permissions.ContactName)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// OverrideAudit records one field changed by a README marker.
type OverrideAudit struct {
	Repository string `json:"repository" yaml:"repository"`
	Field      Field  `json:"field" yaml:"field"`
	Original   string `json:"original" yaml:"original"`
	Overridden string `json:"overridden" yaml:"overridden"`
	Line       int    `json:"line" yaml:"line"`
}

// PseudonymMapping associates a real private identifier with its pseudonym.
// Mappings belong in the internal cross-reference table only.
type PseudonymMapping struct {
	RealID       string `json:"real_id" yaml:"real_id"`
	Pseudonym    string `json:"pseudonym" yaml:"pseudonym"`
	Organization string `json:"organization" yaml:"organization"`
}
