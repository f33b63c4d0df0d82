package inventory

// Field names a canonical record field that README override markers may set.
type Field string

// Overridable fields.
const (
	FieldOrganization           Field = "organization"
	FieldContactEmail           Field = "contact_email"
	FieldContactName            Field = "contact_name"
	FieldExemption              Field = "exemption"
	FieldExemptionJustification Field = "exemption_justification"
	FieldStatus                 Field = "status"
	FieldVersion                Field = "version"
	FieldDescription            Field = "description"
	FieldHomepage               Field = "homepage"
	FieldLaborHours             Field = "labor_hours"
	FieldCanonicalSource        Field = "canonical_source"
)

// Fields lists every overridable field in merge order.
var Fields = []Field{
	FieldOrganization,
	FieldContactEmail,
	FieldContactName,
	FieldExemption,
	FieldExemptionJustification,
	FieldStatus,
	FieldVersion,
	FieldDescription,
	FieldHomepage,
	FieldLaborHours,
	FieldCanonicalSource,
}

// String returns the string representation of the field.
func (f Field) String() string {
	return string(f)
}
