// Package normalize maps raw host records onto canonical records.
//
// Normalization is field-by-field with documented defaults: it never reads
// README markers (the merger does) and it never fails a run. A record missing
// its identity fields yields a NormalizationError and is dropped by the caller.
package normalize

import (
	"sort"
	"strings"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Result is a normalized record plus the warnings raised while building it.
type Result struct {
	Record  inventory.CanonicalRecord
	Entries []runlog.Entry
}

// Normalize builds a canonical record from a raw repository.
func Normalize(raw inventory.RawRepository, p *policy.Policy) (Result, error) {
	if p == nil {
		p = policy.Default()
	}

	name := strings.TrimSpace(raw.Name)
	url := strings.TrimSpace(raw.URL)
	switch {
	case name == "":
		return Result{}, errors.NewNormalizationError(raw.Organization, raw.Name, "name", "is required")
	case url == "":
		return Result{}, errors.NewNormalizationError(raw.Organization, raw.Name, "url", "is required")
	}

	var res Result
	realID := raw.RealID()

	visibility, err := inventory.ParseVisibility(string(raw.Visibility))
	if err != nil {
		visibility = inventory.VisibilityPrivate
		res.Entries = append(res.Entries, runlog.Entry{
			Severity:     runlog.SeverityWarning,
			Kind:         runlog.KindUnknownVisibility,
			Organization: raw.Organization,
			Repository:   realID,
			Field:        "visibility",
			Message:      "unknown visibility " + quote(string(raw.Visibility)) + "; treated as private",
		})
	}
	if visibility.IsPublic() && p.IsInternalHost(raw.Host) {
		visibility = inventory.VisibilityInternal
	}

	status := inventory.StatusDevelopment
	if raw.Archived {
		status = inventory.StatusArchived
	}

	rec := inventory.CanonicalRecord{
		Host:               raw.Host,
		SourceOrganization: raw.Organization,
		Name:               name,
		RealID:             realID,
		Identifier:         url,
		Organization:       InferOrganization(name, raw.Organization, p),
		Description:        Description(raw, p),
		RepositoryURL:      url,
		HomepageURL:        strings.TrimSpace(raw.Homepage),
		Visibility:         visibility,
		Status:             status,
		Version:            LatestVersion(raw.Tags),
		Languages:          Languages(raw.Language, raw.Languages),
		Tags:               dedupeSorted(raw.Topics, strings.ToLower),
		Permissions: inventory.Permissions{
			License: license(raw.License),
		},
		Dates: inventory.Dates{
			Created:      raw.CreatedAt.UTC(),
			LastModified: raw.UpdatedAt.UTC(),
		},
		Fork:   raw.Fork,
		Parent: strings.TrimSpace(raw.Parent),
	}

	res.Record = rec
	return res, nil
}

// InferOrganization maps a repository to an organization using the policy's
// acronym table ("ocio-portal" or "portal-ocio"), falling back to the host
// organization. Longer acronyms are tried first so the result is stable.
func InferOrganization(name, hostOrg string, p *policy.Policy) string {
	acronyms := p.OrganizationAcronyms()
	keys := make([]string, 0, len(acronyms))
	for k := range acronyms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	lower := strings.ToLower(name)
	for _, acronym := range keys {
		if strings.Contains(lower, acronym+"-") || strings.Contains(lower, "-"+acronym) {
			return acronyms[acronym]
		}
	}
	return hostOrg
}

// Languages returns the sorted, case-insensitively de-duplicated language set.
func Languages(primary string, all []string) []string {
	langs := append([]string{primary}, all...)
	return dedupeSorted(langs, func(s string) string { return s })
}

func dedupeSorted(in []string, transform func(string) string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = transform(strings.TrimSpace(s))
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

func license(l *string) *string {
	if l == nil {
		return nil
	}
	v := strings.TrimSpace(*l)
	if v == "" || strings.EqualFold(v, "NOASSERTION") {
		return nil
	}
	return &v
}

func quote(s string) string {
	return `"` + s + `"`
}
