package assemble

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// CrossReferenceHeader is the header row of the cross-reference table.
var CrossReferenceHeader = []string{"real_id", "pseudonym", "organization"}

// WriteCatalog writes the catalog as indented JSON followed by a newline.
func WriteCatalog(w io.Writer, catalog *inventory.Catalog) error {
	if catalog == nil {
		return errors.NewValidationError("catalog", nil, "catalog is nil")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(catalog); err != nil {
		return errors.WrapIO("write", "catalog", err)
	}
	return nil
}

// ReadCatalog decodes a catalog document.
func ReadCatalog(r io.Reader) (*inventory.Catalog, error) {
	var catalog inventory.Catalog
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return &catalog, nil
}

// WriteCrossReference writes the pseudonym mappings as CSV sorted by real id.
// The table maps pseudonyms back to private repositories and must only be
// written to internal storage.
func WriteCrossReference(w io.Writer, mappings []inventory.PseudonymMapping) error {
	sorted := append([]inventory.PseudonymMapping(nil), mappings...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RealID < sorted[j].RealID })

	cw := csv.NewWriter(w)
	if err := cw.Write(CrossReferenceHeader); err != nil {
		return errors.WrapIO("write", "cross-reference", err)
	}
	for _, m := range sorted {
		if err := cw.Write([]string{m.RealID, m.Pseudonym, m.Organization}); err != nil {
			return errors.WrapIO("write", "cross-reference", err)
		}
	}
	cw.Flush()
	return errors.WrapIO("write", "cross-reference", cw.Error())
}

// ReadCrossReference parses a table written by WriteCrossReference.
func ReadCrossReference(r io.Reader) ([]inventory.PseudonymMapping, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", "", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	mappings := make([]inventory.PseudonymMapping, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(CrossReferenceHeader) {
			return nil, errors.NewParseError("csv", "", "row "+strconv.Itoa(i+2)+" has wrong field count", nil)
		}
		mappings = append(mappings, inventory.PseudonymMapping{RealID: row[0], Pseudonym: row[1], Organization: row[2]})
	}
	return mappings, nil
}
