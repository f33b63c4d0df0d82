// Package authority decides which source of a field value wins during
// override merging. Each source is given a priority per field pattern; the
// highest priority source holding a value is authoritative.
package authority

import (
	"path/filepath"
	"sort"

	"github.com/agentstation/codeinventory/pkg/inventory"
)

// Source identifies where a field value came from.
type Source string

const (
	// SourceReadme is an override marker declared in the repository README.
	SourceReadme Source = "readme"
	// SourceOrganization is a per-organization default from the policy.
	SourceOrganization Source = "organization_default"
	// SourceHost is the value reported by, or inferred from, the code host.
	SourceHost Source = "host"
)

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// Default priorities.
const (
	PriorityReadme       = 100
	PriorityOrganization = 50
	PriorityHost         = 10
)

// Authority determines which source is authoritative for each field
type Authority interface {
	// Find returns the authority configuration for a field and source, or nil
	// when the source may not set the field.
	Find(field inventory.Field, source Source) *Field

	// List returns all configured authorities
	List() []Field

	// Resolve picks the winning candidate for a field.
	Resolve(field inventory.Field, candidates []Candidate) (Candidate, bool)
}

// Field defines source priority for a field pattern
type Field struct {
	Path     string `json:"path" yaml:"path"`         // Field name or pattern, e.g. "contact_*"
	Source   Source `json:"source" yaml:"source"`     // Which source the priority applies to
	Priority int    `json:"priority" yaml:"priority"` // Priority (higher = more authoritative)
}

// Candidate is a value offered by a source for a field.
type Candidate struct {
	Source Source
	Value  string
	Line   int // README line for marker candidates
}

// authorities provides standard field authorities
type authorities struct {
	fields []Field
}

// New creates an Authority with the default priorities, followed by extra
// field authorities. Extra entries win over defaults of equal priority by
// being more specific.
func New(extra ...Field) Authority {
	return &authorities{
		fields: append(defaultAuthorities(), extra...),
	}
}

// Find returns the authority configuration for a field and source
func (a *authorities) Find(field inventory.Field, source Source) *Field {
	return ByField(field.String(), FilterBySource(a.fields, source))
}

// List returns all configured authorities
func (a *authorities) List() []Field {
	return append([]Field(nil), a.fields...)
}

// Resolve returns the highest priority candidate with a non-empty value.
// Candidates from sources without an authority for the field are ignored.
// Ties keep the earlier candidate.
func (a *authorities) Resolve(field inventory.Field, candidates []Candidate) (Candidate, bool) {
	type ranked struct {
		Candidate
		priority int
		order    int
	}

	var options []ranked
	for i, c := range candidates {
		if c.Value == "" {
			continue
		}
		auth := a.Find(field, c.Source)
		if auth == nil {
			continue
		}
		options = append(options, ranked{Candidate: c, priority: auth.Priority, order: i})
	}
	if len(options) == 0 {
		return Candidate{}, false
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].priority != options[j].priority {
			return options[i].priority > options[j].priority
		}
		return options[i].order < options[j].order
	})
	return options[0].Candidate, true
}

// ByField returns the highest priority authority for a given field path
func ByField(fieldPath string, authorities []Field) *Field {
	var bestMatch *Field
	var bestPriority int
	var bestMatchLength int

	for i, auth := range authorities {
		if MatchesPattern(fieldPath, auth.Path) {
			// Prioritize by: 1) pattern specificity (length), 2) priority, 3) order
			patternLength := len(auth.Path)
			if bestMatch == nil ||
				patternLength > bestMatchLength ||
				(patternLength == bestMatchLength && auth.Priority > bestPriority) {
				bestMatch = &authorities[i]
				bestPriority = auth.Priority
				bestMatchLength = patternLength
			}
		}
	}

	return bestMatch
}

// MatchesPattern checks if a field path matches a pattern (supports * wildcards)
func MatchesPattern(fieldPath, pattern string) bool {
	if fieldPath == pattern {
		return true
	}

	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(fieldPath) >= len(prefix) && fieldPath[:len(prefix)] == prefix
	}

	matched, err := filepath.Match(pattern, fieldPath)
	if err != nil {
		return false
	}
	return matched
}

// FilterBySource returns only the authorities for a specific source
func FilterBySource(authorities []Field, source Source) []Field {
	var filtered []Field
	for _, auth := range authorities {
		if auth.Source == source {
			filtered = append(filtered, auth)
		}
	}
	return filtered
}

// defaultAuthorities returns the default field authorities.
func defaultAuthorities() []Field {
	return []Field{
		// README markers always win
		{Path: "*", Source: SourceReadme, Priority: PriorityReadme},

		// Organization defaults only cover ownership fields
		{Path: "organization", Source: SourceOrganization, Priority: PriorityOrganization},
		{Path: "contact_*", Source: SourceOrganization, Priority: PriorityOrganization},

		// Host values and inference
		{Path: "*", Source: SourceHost, Priority: PriorityHost},
	}
}
