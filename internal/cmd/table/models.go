// Package table converts inventory values into rows for tabular CLI output.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/markers"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// ReleasesToTableData converts catalog releases to table format.
func ReleasesToTableData(releases []inventory.Release, wide bool) Data {
	headers := []string{"Name", "Organization", "Status", "Usage Type", "Visibility"}
	if wide {
		headers = append(headers, "Languages", "Contact", "Repository URL")
	}

	rows := make([][]string, 0, len(releases))
	for _, r := range releases {
		row := []string{
			r.Name,
			orDash(r.Organization),
			orDash(r.Status),
			orDash(r.Permissions.UsageType),
			orDash(r.RepositoryVisibility),
		}
		if wide {
			row = append(row,
				orDash(strings.Join(r.Languages, ", ")),
				orDash(r.Contact.Email),
				orDash(r.RepositoryURL),
			)
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// MappingsToTableData converts cross-reference mappings to table format.
func MappingsToTableData(mappings []inventory.PseudonymMapping) Data {
	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []string{m.Pseudonym, m.RealID, m.Organization})
	}
	return Data{
		Headers: []string{"Pseudonym", "Real ID", "Organization"},
		Rows:    rows,
	}
}

// MarkersToTableData converts extracted README markers to table format.
func MarkersToTableData(result markers.Result) Data {
	var rows [][]string
	for _, m := range result.Sorted() {
		rows = append(rows, []string{strconv.Itoa(m.Line), string(m.Field), m.Value, "applied"})
	}
	for _, d := range result.Diagnostics {
		rows = append(rows, []string{strconv.Itoa(d.Line), d.Key, d.Text, string(d.Kind)})
	}
	return Data{
		Headers:         []string{"Line", "Field", "Value", "Status"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// EntriesToTableData converts run log entries to table format.
func EntriesToTableData(entries []runlog.Entry) Data {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		where := e.Repository
		if where == "" {
			where = e.Organization
		}
		if e.Line > 0 {
			where = fmt.Sprintf("%s:%d", where, e.Line)
		}
		rows = append(rows, []string{string(e.Severity), string(e.Kind), orDash(where), e.Message})
	}
	return Data{
		Headers: []string{"Severity", "Kind", "Where", "Message"},
		Rows:    rows,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
