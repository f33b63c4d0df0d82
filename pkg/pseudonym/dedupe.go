package pseudonym

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// DedupeResult holds the records that survive deduplication.
type DedupeResult struct {
	Records []inventory.CanonicalRecord
	Entries []runlog.Entry
}

// Dedupe drops forks, repeated identities and cross-organization duplicates.
//
// Forks and mirrors are excluded unless marked as a canonical source. Records
// sharing an identity key keep the first occurrence. Records from different
// organizations that point at the same repository URL collapse onto the one
// whose URL owner matches its source organization; the survivor is flagged for
// review. Input order is preserved.
func Dedupe(records []inventory.CanonicalRecord) DedupeResult {
	var res DedupeResult

	seen := make(map[string]bool, len(records))
	var kept []inventory.CanonicalRecord
	for _, rec := range records {
		if (rec.Fork || rec.Parent != "") && !rec.Canonical {
			msg := "fork excluded"
			if rec.Parent != "" {
				msg = "fork of " + rec.Parent + " excluded"
			}
			entry := runlog.Info(runlog.KindForkExcluded, rec.RealID, msg)
			entry.Organization = rec.SourceOrganization
			res.Entries = append(res.Entries, entry)
			continue
		}

		key := IdentityKey(rec)
		if seen[key] {
			res.Entries = append(res.Entries, runlog.Entry{
				Severity:     runlog.SeverityWarning,
				Kind:         runlog.KindDuplicate,
				Organization: rec.SourceOrganization,
				Repository:   rec.RealID,
				Message:      "duplicate of " + key + " dropped",
			})
			continue
		}
		seen[key] = true
		kept = append(kept, rec.Clone())
	}

	// Group by repository URL.
	groups := make(map[string][]int)
	for i, rec := range kept {
		u := inventory.NormalizeURL(rec.RepositoryURL)
		if u == "" {
			continue
		}
		groups[u] = append(groups[u], i)
	}

	urls := make([]string, 0, len(groups))
	for u, idx := range groups {
		if len(idx) > 1 {
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)

	drop := make(map[int]bool)
	for _, u := range urls {
		idx := groups[u]
		winner := pickOwner(kept, idx, urlOwner(u))
		kept[winner].ReviewRequired = true
		for _, i := range idx {
			if i == winner {
				continue
			}
			drop[i] = true
			res.Entries = append(res.Entries, runlog.Entry{
				Severity:     runlog.SeverityWarning,
				Kind:         runlog.KindCrossOrgDuplicate,
				Organization: kept[i].SourceOrganization,
				Repository:   kept[i].RealID,
				Message:      fmt.Sprintf("same repository as %s; kept %s", u, kept[winner].RealID),
			})
		}
	}

	for i, rec := range kept {
		if !drop[i] {
			res.Records = append(res.Records, rec)
		}
	}
	return res
}

// IdentityKey returns the case-folded host/organization/name key of a record.
func IdentityKey(rec inventory.CanonicalRecord) string {
	if rec.RealID != "" {
		return rec.RealID
	}
	host := rec.Host
	if host == "" {
		host = "unknown"
	}
	return strings.ToLower(host + "/" + rec.SourceOrganization + "/" + rec.Name)
}

// pickOwner prefers the record collected from the organization that owns the
// URL, then the alphabetically first organization.
func pickOwner(records []inventory.CanonicalRecord, idx []int, owner string) int {
	candidates := append([]int(nil), idx...)
	sort.SliceStable(candidates, func(a, b int) bool {
		ra, rb := records[candidates[a]], records[candidates[b]]
		oa := strings.EqualFold(ra.SourceOrganization, owner)
		ob := strings.EqualFold(rb.SourceOrganization, owner)
		if oa != ob {
			return oa
		}
		return strings.ToLower(ra.SourceOrganization) < strings.ToLower(rb.SourceOrganization)
	})
	return candidates[0]
}

// urlOwner returns the owner segment of a normalized repository URL,
// "github.com/cdcgov/tool" yields "cdcgov".
func urlOwner(normalized string) string {
	parts := strings.Split(normalized, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
