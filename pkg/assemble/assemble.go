// Package assemble builds the public catalog document from classified,
// pseudonymized records and writes it along with the internal
// cross-reference table.
package assemble

import (
	"sort"
	"strings"
	"time"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

const (
	// DefaultVersion is published when a repository has no release version.
	DefaultVersion = "N/A"
	// RedactedDescription replaces non-public descriptions when the policy redacts them.
	RedactedDescription = "Description withheld."
)

// Result is the assembled catalog plus completeness warnings.
type Result struct {
	Catalog *inventory.Catalog
	Entries []runlog.Entry
}

// Assemble builds the catalog. Releases are sorted by organization then name,
// case-insensitively, and every timestamp in the document is derived from the
// records or from generatedAt, so identical inputs yield identical documents.
//
// Non-public records are published under their pseudonym with redacted URLs
// and the policy private contact. A SchemaViolationError is returned when the
// policy leaves a required top-level field empty.
func Assemble(records []inventory.CanonicalRecord, organizations []string, p *policy.Policy, generatedAt time.Time) (Result, error) {
	if p == nil {
		p = policy.Default()
	}

	var missing []string
	if p.SchemaVersion() == "" {
		missing = append(missing, "version")
	}
	if p.Agency() == "" {
		missing = append(missing, "agency")
	}
	if p.MeasurementMethod() == "" {
		missing = append(missing, "measurementType.method")
	}
	if len(missing) > 0 {
		return Result{}, &errors.SchemaViolationError{Fields: missing}
	}

	generatedAt = generatedAt.UTC()
	catalog := &inventory.Catalog{
		Version:         p.SchemaVersion(),
		Agency:          p.Agency(),
		MeasurementType: inventory.MeasurementType{Method: p.MeasurementMethod()},
		GeneratedAt:     generatedAt,
		Organizations:   sortedOrganizations(organizations),
		Releases:        make([]inventory.Release, 0, len(records)),
	}

	var res Result
	for _, rec := range records {
		release := Release(rec, p, generatedAt)
		if missing := incomplete(release, rec); len(missing) > 0 {
			res.Entries = append(res.Entries, runlog.Entry{
				Severity:     runlog.SeverityWarning,
				Kind:         runlog.KindIncompleteRelease,
				Organization: rec.SourceOrganization,
				Repository:   rec.RealID,
				Message:      "release is missing " + strings.Join(missing, ", "),
			})
		}
		catalog.Releases = append(catalog.Releases, release)
	}

	SortReleases(catalog.Releases)
	res.Catalog = catalog
	return res, nil
}

// Release converts one record into its catalog entry.
func Release(rec inventory.CanonicalRecord, p *policy.Policy, generatedAt time.Time) inventory.Release {
	r := inventory.Release{
		Name:                 rec.Name,
		Organization:         rec.Organization,
		Description:          rec.Description,
		Version:              rec.Version,
		Status:               rec.Status.String(),
		VCS:                  p.VCS(),
		RepositoryURL:        rec.RepositoryURL,
		HomepageURL:          rec.HomepageURL,
		RepositoryVisibility: rec.Visibility.String(),
		LaborHours:           rec.LaborHours,
		Languages:            nonNil(rec.Languages),
		Tags:                 nonNil(rec.Tags),
		Date: inventory.ReleaseDate{
			Created:             formatTime(rec.Dates.Created),
			LastModified:        formatTime(rec.Dates.LastModified),
			MetadataLastUpdated: formatTime(generatedAt),
		},
		Permissions: inventory.ReleasePermissions{
			UsageType: rec.Permissions.UsageType,
			Licenses:  []inventory.ReleaseLicense{},
		},
	}
	if r.Version == "" {
		r.Version = DefaultVersion
	}
	if rec.Permissions.License != nil {
		r.Permissions.Licenses = append(r.Permissions.Licenses, inventory.ReleaseLicense{Name: *rec.Permissions.License})
	}
	if rec.Permissions.ContactEmail != nil {
		r.Contact.Email = *rec.Permissions.ContactEmail
	}
	if rec.Permissions.ContactName != nil {
		r.Contact.Name = *rec.Permissions.ContactName
	}
	if rec.Publication == inventory.PublicationExempt && rec.Permissions.Justification != nil {
		text := *rec.Permissions.Justification
		r.Permissions.ExemptionText = &text
	}

	if !rec.IsWithheld() {
		return r
	}

	// Redacted entries never carry the real name or location.
	r.Name = rec.PrivateID
	r.PrivateID = rec.PrivateID
	r.HomepageURL = ""
	r.Contact = inventory.ReleaseContact{Email: p.PrivateContactEmail()}
	if p.RedactDescriptions() {
		r.Description = RedactedDescription
	}
	if rec.Publication == inventory.PublicationExempt {
		r.RepositoryURL = p.ExemptedNoticeURL()
	} else {
		r.RepositoryURL = p.InstructionsURL()
	}
	return r
}

// SortReleases orders releases by organization then name, case-insensitively.
// Exact spelling and private id break ties.
func SortReleases(releases []inventory.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		a, b := releases[i], releases[j]
		if la, lb := strings.ToLower(a.Organization), strings.ToLower(b.Organization); la != lb {
			return la < lb
		}
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		if a.Organization != b.Organization {
			return a.Organization < b.Organization
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.RepositoryURL < b.RepositoryURL
	})
}

func incomplete(r inventory.Release, rec inventory.CanonicalRecord) []string {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Organization == "" {
		missing = append(missing, "organization")
	}
	if r.Description == "" {
		missing = append(missing, "description")
	}
	if r.Contact.Email == "" {
		missing = append(missing, "contact.email")
	}
	if r.RepositoryURL == "" && !rec.IsWithheld() {
		missing = append(missing, "repositoryURL")
	}
	return missing
}

func sortedOrganizations(orgs []string) []string {
	seen := make(map[string]bool, len(orgs))
	out := make([]string, 0, len(orgs))
	for _, org := range orgs {
		key := strings.ToLower(org)
		if org == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, org)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
