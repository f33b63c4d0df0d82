package assemble

import (
	"fmt"
	"strconv"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// Validate checks a catalog document against the target schema. It returns a
// SchemaViolationError for missing top-level fields and a ValidationError per
// invalid release, joined.
func Validate(catalog *inventory.Catalog) error {
	if catalog == nil {
		return &errors.SchemaViolationError{Fields: []string{"version", "agency", "measurementType.method", "releases"}}
	}

	var missing []string
	if catalog.Version == "" {
		missing = append(missing, "version")
	}
	if catalog.Agency == "" {
		missing = append(missing, "agency")
	}
	if catalog.MeasurementType.Method == "" {
		missing = append(missing, "measurementType.method")
	}
	if catalog.Releases == nil {
		missing = append(missing, "releases")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, &errors.SchemaViolationError{Fields: missing})
	}

	names := make(map[string]int, len(catalog.Releases))
	for i, r := range catalog.Releases {
		field := fmt.Sprintf("releases[%d]", i)
		switch {
		case r.Name == "":
			errs = append(errs, errors.NewValidationError(field+".name", nil, "is required"))
		case r.Organization == "":
			errs = append(errs, errors.NewValidationError(field+".organization", r.Name, "is required"))
		case r.Permissions.UsageType == "":
			errs = append(errs, errors.NewValidationError(field+".permissions.usageType", r.Name, "is required"))
		case r.RepositoryVisibility != "public" && r.PrivateID == "":
			errs = append(errs, errors.NewValidationError(field+".privateID", r.Name, "is required for non-public releases"))
		case r.RepositoryVisibility != "public" && r.PrivateID != r.Name:
			errs = append(errs, errors.NewValidationError(field+".name", r.Name, "non-public release must be published under its private id"))
		}

		key := r.Organization + "/" + r.Name
		if prev, ok := names[key]; ok {
			errs = append(errs, errors.NewValidationError(field, key, "duplicates releases["+strconv.Itoa(prev)+"]"))
		} else {
			names[key] = i
		}
	}
	return errors.Join(errs...)
}
