package table

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/provenance"
)

// ProvenanceToTableData converts one repository's field history to table format.
// Shows all fields and their candidates in a single unified table.
func ProvenanceToTableData(fieldProvenance map[inventory.Field][]provenance.Provenance, patterns []string) Data {
	var rows [][]string

	// Sort fields alphabetically
	fields := make([]string, 0, len(fieldProvenance))
	for field := range fieldProvenance {
		if MatchField(string(field), patterns) {
			fields = append(fields, string(field))
		}
	}
	sort.Strings(fields)

	for _, field := range fields {
		history := append([]provenance.Provenance(nil), fieldProvenance[inventory.Field(field)]...)
		if len(history) == 0 {
			continue
		}

		// Highest priority first
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Priority > history[j].Priority
		})

		for i, entry := range history {
			fieldName := ""
			if i == 0 {
				fieldName = field
			}

			currentIndicator := ""
			if entry.Selected {
				currentIndicator = "→"
			}

			line := "-"
			if entry.Line > 0 {
				line = strconv.Itoa(entry.Line)
			}

			rows = append(rows, []string{
				fieldName,
				currentIndicator,
				formatValue(entry.Value),
				string(entry.Source),
				strconv.Itoa(entry.Priority),
				line,
				entry.Reason,
			})
		}
	}

	return Data{
		Headers: []string{"Field", "Curr", "Value", "Source", "Priority", "Line", "Reason"},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignLeft,   // Field
			AlignCenter, // Curr
			AlignLeft,   // Value
			AlignLeft,   // Source
			AlignRight,  // Priority
			AlignRight,  // Line
			AlignLeft,   // Reason
		},
	}
}

// MatchField checks if a field matches any of the provided patterns.
// Matching is case-insensitive and supports glob wildcards.
func MatchField(field string, patterns []string) bool {
	if len(patterns) == 0 {
		return true // No patterns means match all
	}

	fieldLower := strings.ToLower(field)
	for _, pattern := range patterns {
		patternLower := strings.ToLower(pattern)
		matched, err := filepath.Match(patternLower, fieldLower)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func formatValue(v string) string {
	if v == "" {
		return "<empty>"
	}
	return v
}
