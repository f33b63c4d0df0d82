package differ

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/codeinventory/pkg/inventory"
)

// Differ handles change detection between catalog documents.
type Differ interface {
	// Releases compares two sets of releases and returns changes
	Releases(existing, updated []inventory.Release) *ReleaseChangeset

	// Organizations compares two organization lists
	Organizations(existing, updated []string) *OrganizationChangeset

	// Catalogs compares two complete catalogs. A nil existing catalog
	// reports every release as added.
	Catalogs(existing, updated *inventory.Catalog) *Changeset
}

// differ is the default implementation of Differ.
type differ struct {
	ignoreFields   map[string]bool
	deepComparison bool
}

// New creates a Differ. The metadata timestamp is ignored by default since it
// changes on every run.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields:   map[string]bool{"date.metadataLastUpdated": true},
		deepComparison: true,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// ReleaseID identifies a release across runs: its private id when redacted,
// otherwise its repository URL.
func ReleaseID(r inventory.Release) string {
	if r.PrivateID != "" {
		return r.PrivateID
	}
	if r.RepositoryURL != "" {
		return inventory.NormalizeURL(r.RepositoryURL)
	}
	return strings.ToLower(r.Organization + "/" + r.Name)
}

// Releases compares two sets of releases and returns changes.
func (diff *differ) Releases(existing, updated []inventory.Release) *ReleaseChangeset {
	changeset := &ReleaseChangeset{
		Added:   []inventory.Release{},
		Updated: []ReleaseUpdate{},
		Removed: []inventory.Release{},
	}

	existingMap := make(map[string]inventory.Release, len(existing))
	for _, r := range existing {
		existingMap[ReleaseID(r)] = r
	}

	newMap := make(map[string]inventory.Release, len(updated))
	for _, r := range updated {
		newMap[ReleaseID(r)] = r
	}

	for _, r := range updated {
		if old, exists := existingMap[ReleaseID(r)]; exists {
			if update := diff.release(old, r); update != nil {
				changeset.Updated = append(changeset.Updated, *update)
			}
		} else {
			changeset.Added = append(changeset.Added, r)
		}
	}

	for _, r := range existing {
		if _, exists := newMap[ReleaseID(r)]; !exists {
			changeset.Removed = append(changeset.Removed, r)
		}
	}

	sortReleaseChangeset(changeset)
	return changeset
}

// Organizations compares two organization lists case-insensitively.
func (diff *differ) Organizations(existing, updated []string) *OrganizationChangeset {
	changeset := &OrganizationChangeset{Added: []string{}, Removed: []string{}}

	fold := func(orgs []string) map[string]bool {
		m := make(map[string]bool, len(orgs))
		for _, o := range orgs {
			m[strings.ToLower(o)] = true
		}
		return m
	}
	before, after := fold(existing), fold(updated)

	for _, o := range updated {
		if !before[strings.ToLower(o)] {
			changeset.Added = append(changeset.Added, o)
		}
	}
	for _, o := range existing {
		if !after[strings.ToLower(o)] {
			changeset.Removed = append(changeset.Removed, o)
		}
	}
	sort.Strings(changeset.Added)
	sort.Strings(changeset.Removed)
	return changeset
}

// Catalogs compares two complete catalogs.
func (diff *differ) Catalogs(existing, updated *inventory.Catalog) *Changeset {
	if existing == nil {
		existing = &inventory.Catalog{}
	}
	if updated == nil {
		updated = &inventory.Catalog{}
	}

	releases := diff.Releases(existing.Releases, updated.Releases)
	orgs := diff.Organizations(existing.Organizations, updated.Organizations)
	return &Changeset{
		Releases:      releases,
		Organizations: orgs,
		Summary:       calculateSummary(releases, orgs),
	}
}

// release compares two releases sharing an id.
func (diff *differ) release(existing, updated inventory.Release) *ReleaseUpdate {
	changes := []FieldChange{}

	compare := func(path, oldValue, newValue string) {
		if oldValue != newValue && !diff.ignoreFields[path] {
			changes = append(changes, FieldChange{
				Path:     path,
				OldValue: oldValue,
				NewValue: newValue,
				Type:     ChangeTypeUpdate,
			})
		}
	}

	compare("name", existing.Name, updated.Name)
	compare("organization", existing.Organization, updated.Organization)
	compare("description", truncateString(existing.Description, 50), truncateString(updated.Description, 50))
	compare("version", existing.Version, updated.Version)
	compare("status", existing.Status, updated.Status)
	compare("repositoryURL", existing.RepositoryURL, updated.RepositoryURL)
	compare("homepageURL", existing.HomepageURL, updated.HomepageURL)
	compare("repositoryVisibility", existing.RepositoryVisibility, updated.RepositoryVisibility)
	compare("laborHours", formatFloat(existing.LaborHours), formatFloat(updated.LaborHours))
	compare("contact.email", existing.Contact.Email, updated.Contact.Email)
	compare("contact.name", existing.Contact.Name, updated.Contact.Name)
	compare("date.created", existing.Date.Created, updated.Date.Created)
	compare("date.lastModified", existing.Date.LastModified, updated.Date.LastModified)
	compare("date.metadataLastUpdated", existing.Date.MetadataLastUpdated, updated.Date.MetadataLastUpdated)
	compare("permissions.usageType", existing.Permissions.UsageType, updated.Permissions.UsageType)

	if diff.deepComparison {
		if !slices.Equal(existing.Languages, updated.Languages) {
			compare("languages", strings.Join(existing.Languages, ","), strings.Join(updated.Languages, ","))
		}
		if !slices.Equal(existing.Tags, updated.Tags) {
			compare("tags", strings.Join(existing.Tags, ","), strings.Join(updated.Tags, ","))
		}
		compare("permissions.exemptionText", deref(existing.Permissions.ExemptionText), deref(updated.Permissions.ExemptionText))
		compare("permissions.licenses", joinLicenses(existing.Permissions.Licenses), joinLicenses(updated.Permissions.Licenses))
	}

	if len(changes) == 0 {
		return nil
	}

	return &ReleaseUpdate{
		ID:       ReleaseID(updated),
		Existing: existing,
		New:      updated,
		Changes:  changes,
	}
}

// sortReleaseChangeset sorts all slices in the changeset.
func sortReleaseChangeset(changeset *ReleaseChangeset) {
	sort.Slice(changeset.Added, func(i, j int) bool {
		return ReleaseID(changeset.Added[i]) < ReleaseID(changeset.Added[j])
	})
	sort.Slice(changeset.Updated, func(i, j int) bool {
		return changeset.Updated[i].ID < changeset.Updated[j].ID
	})
	sort.Slice(changeset.Removed, func(i, j int) bool {
		return ReleaseID(changeset.Removed[i]) < ReleaseID(changeset.Removed[j])
	})
}

// Helper functions

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinLicenses(licenses []inventory.ReleaseLicense) string {
	names := make([]string, len(licenses))
	for i, l := range licenses {
		names[i] = l.Name
	}
	return strings.Join(names, ",")
}
