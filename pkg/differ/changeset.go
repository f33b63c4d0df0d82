// Package differ compares two catalog documents and reports which releases
// and organizations were added, updated or removed between runs.
package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/codeinventory/pkg/inventory"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string     `json:"path" yaml:"path"`           // Field path (e.g., "permissions.usageType")
	OldValue string     `json:"old_value" yaml:"old_value"` // Previous value (string representation)
	NewValue string     `json:"new_value" yaml:"new_value"` // New value (string representation)
	Type     ChangeType `json:"type" yaml:"type"`
}

// ReleaseUpdate represents an update to an existing release.
type ReleaseUpdate struct {
	ID       string            `json:"id" yaml:"id"`
	Existing inventory.Release `json:"-" yaml:"-"`
	New      inventory.Release `json:"-" yaml:"-"`
	Changes  []FieldChange     `json:"changes" yaml:"changes"`
}

// ReleaseChangeset represents changes to releases.
type ReleaseChangeset struct {
	Added   []inventory.Release `json:"added" yaml:"added"`
	Updated []ReleaseUpdate     `json:"updated" yaml:"updated"`
	Removed []inventory.Release `json:"removed" yaml:"removed"`
}

// OrganizationChangeset represents changes to the organization list.
type OrganizationChangeset struct {
	Added   []string `json:"added" yaml:"added"`
	Removed []string `json:"removed" yaml:"removed"`
}

// Changeset represents all changes between two catalogs.
type Changeset struct {
	Releases      *ReleaseChangeset      `json:"releases" yaml:"releases"`
	Organizations *OrganizationChangeset `json:"organizations" yaml:"organizations"`
	Summary       ChangesetSummary       `json:"summary" yaml:"summary"`
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	ReleasesAdded        int `json:"releases_added" yaml:"releases_added"`
	ReleasesUpdated      int `json:"releases_updated" yaml:"releases_updated"`
	ReleasesRemoved      int `json:"releases_removed" yaml:"releases_removed"`
	OrganizationsAdded   int `json:"organizations_added" yaml:"organizations_added"`
	OrganizationsRemoved int `json:"organizations_removed" yaml:"organizations_removed"`
	TotalChanges         int `json:"total_changes" yaml:"total_changes"`
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

// calculateSummary computes the summary for a changeset.
func calculateSummary(releases *ReleaseChangeset, orgs *OrganizationChangeset) ChangesetSummary {
	s := ChangesetSummary{
		ReleasesAdded:        len(releases.Added),
		ReleasesUpdated:      len(releases.Updated),
		ReleasesRemoved:      len(releases.Removed),
		OrganizationsAdded:   len(orgs.Added),
		OrganizationsRemoved: len(orgs.Removed),
	}
	s.TotalChanges = s.ReleasesAdded + s.ReleasesUpdated + s.ReleasesRemoved +
		s.OrganizationsAdded + s.OrganizationsRemoved
	return s
}

// HasChanges returns true if the release changeset contains any changes.
func (r *ReleaseChangeset) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Updated) > 0 || len(r.Removed) > 0
}

// HasChanges returns true if the organization changeset contains any changes.
func (o *OrganizationChangeset) HasChanges() bool {
	return len(o.Added) > 0 || len(o.Removed) > 0
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string
	if c.Releases.HasChanges() {
		releaseParts := []string{}
		if len(c.Releases.Added) > 0 {
			releaseParts = append(releaseParts, fmt.Sprintf("%d added", len(c.Releases.Added)))
		}
		if len(c.Releases.Updated) > 0 {
			releaseParts = append(releaseParts, fmt.Sprintf("%d updated", len(c.Releases.Updated)))
		}
		if len(c.Releases.Removed) > 0 {
			releaseParts = append(releaseParts, fmt.Sprintf("%d removed", len(c.Releases.Removed)))
		}
		parts = append(parts, fmt.Sprintf("Releases: %s", strings.Join(releaseParts, ", ")))
	}

	if c.Organizations.HasChanges() {
		orgParts := []string{}
		if len(c.Organizations.Added) > 0 {
			orgParts = append(orgParts, fmt.Sprintf("%d added", len(c.Organizations.Added)))
		}
		if len(c.Organizations.Removed) > 0 {
			orgParts = append(orgParts, fmt.Sprintf("%d removed", len(c.Organizations.Removed)))
		}
		parts = append(parts, fmt.Sprintf("Organizations: %s", strings.Join(orgParts, ", ")))
	}

	return fmt.Sprintf("Changeset: %s (Total: %d changes)", strings.Join(parts, "; "), c.Summary.TotalChanges)
}

// Print writes a detailed, human-readable view of the changeset to w.
func (c *Changeset) Print(w io.Writer) {
	fmt.Fprintln(w, c.String())
	if c.IsEmpty() {
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 80))

	if c.Organizations.HasChanges() {
		for _, org := range c.Organizations.Added {
			fmt.Fprintf(w, "\n➕ Organization %s\n", org)
		}
		for _, org := range c.Organizations.Removed {
			fmt.Fprintf(w, "\n⚠️  Organization %s\n", org)
		}
	}
	if c.Releases.HasChanges() {
		c.Releases.Print(w)
	}
}

// Print writes release changes in a human-readable format.
func (r *ReleaseChangeset) Print(w io.Writer) {
	if len(r.Added) > 0 {
		fmt.Fprintf(w, "\n➕ Added Releases (%d):\n", len(r.Added))
		for _, release := range r.Added {
			fmt.Fprintf(w, "  • %s/%s (%s)\n", release.Organization, release.Name, release.RepositoryVisibility)
		}
	}

	if len(r.Updated) > 0 {
		fmt.Fprintf(w, "\n🔄 Updated Releases (%d):\n", len(r.Updated))
		for _, update := range r.Updated {
			fmt.Fprintf(w, "  • %s:\n", update.ID)
			for _, change := range update.Changes {
				fmt.Fprintf(w, "    - %s: %s → %s\n", change.Path, change.OldValue, change.NewValue)
			}
		}
	}

	if len(r.Removed) > 0 {
		fmt.Fprintf(w, "\n⚠️  Removed Releases (%d):\n", len(r.Removed))
		for _, release := range r.Removed {
			fmt.Fprintf(w, "  • %s/%s\n", release.Organization, release.Name)
		}
	}
}
