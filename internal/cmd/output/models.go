package output

import (
	"io"

	"github.com/agentstation/codeinventory/internal/cmd/table"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/markers"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Write formats data, or its table form when format renders a table.
func Write(w io.Writer, format Format, data any, tableData func(wide bool) table.Data) error {
	if format.IsTable() && tableData != nil {
		return NewFormatter(format).Format(w, tableData(format == FormatWide))
	}
	return NewFormatter(format).Format(w, data)
}

// Releases writes catalog releases.
func Releases(w io.Writer, format Format, releases []inventory.Release) error {
	return Write(w, format, releases, func(wide bool) table.Data {
		return table.ReleasesToTableData(releases, wide)
	})
}

// Mappings writes cross-reference mappings.
func Mappings(w io.Writer, format Format, mappings []inventory.PseudonymMapping) error {
	return Write(w, format, mappings, func(bool) table.Data {
		return table.MappingsToTableData(mappings)
	})
}

// Markers writes extracted README markers and their diagnostics.
func Markers(w io.Writer, format Format, result markers.Result) error {
	return Write(w, format, result, func(bool) table.Data {
		return table.MarkersToTableData(result)
	})
}

// Entries writes run log entries.
func Entries(w io.Writer, format Format, entries []runlog.Entry) error {
	return Write(w, format, entries, func(bool) table.Data {
		return table.EntriesToTableData(entries)
	})
}
