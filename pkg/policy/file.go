package policy

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// File is the on-disk policy format, accepted as YAML or TOML.
// Zero values leave the corresponding default untouched.
type File struct {
	SchemaVersion        string                          `yaml:"schema_version" toml:"schema_version"`
	Agency               string                          `yaml:"agency" toml:"agency"`
	MeasurementMethod    string                          `yaml:"measurement_method" toml:"measurement_method"`
	MarkerAliases        map[string]string               `yaml:"marker_aliases" toml:"marker_aliases"`
	ExemptionCodes       []string                        `yaml:"exemption_codes" toml:"exemption_codes"`
	NonCodeLanguages     []string                        `yaml:"non_code_languages" toml:"non_code_languages"`
	OrganizationAcronyms map[string]string               `yaml:"organization_acronyms" toml:"organization_acronyms"`
	Organizations        map[string]OrganizationDefaults `yaml:"organizations" toml:"organizations"`
	PrivateContactEmail  string                          `yaml:"private_contact_email" toml:"private_contact_email"`
	ExemptedNoticeURL    string                          `yaml:"exempted_notice_url" toml:"exempted_notice_url"`
	InstructionsURL      string                          `yaml:"instructions_url" toml:"instructions_url"`
	AllowedEmailDomains  []string                        `yaml:"allowed_email_domains" toml:"allowed_email_domains"`
	InternalHosts        []string                        `yaml:"internal_hosts" toml:"internal_hosts"`
	PrivateCutoff        string                          `yaml:"private_cutoff" toml:"private_cutoff"`
	Pseudonym            PseudonymFile                   `yaml:"pseudonym" toml:"pseudonym"`
	ExemptNonCode        *bool                           `yaml:"exempt_non_code" toml:"exempt_non_code"`
	RedactDescriptions   *bool                           `yaml:"redact_descriptions" toml:"redact_descriptions"`
}

// PseudonymFile configures pseudonym generation.
type PseudonymFile struct {
	Prefix *string `yaml:"prefix" toml:"prefix"`
	Length int     `yaml:"length" toml:"length"`
}

// Load reads a policy file and applies it, then opts, over the defaults.
// The format is chosen by extension: .toml, otherwise YAML.
func Load(path string, opts ...Option) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}

	fileOpts, err := Parse(data, format)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return New(append(fileOpts, opts...)...)
}

// Parse decodes policy data in the given format ("yaml" or "toml") into options.
// Unknown keys are rejected.
func Parse(data []byte, format string) ([]Option, error) {
	var f File
	switch strings.ToLower(format) {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.WrapParse("toml", "", err)
		}
	case "yaml", "yml":
		if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
			return nil, errors.WrapParse("yaml", "", err)
		}
	default:
		return nil, errors.NewValidationError("format", format, "must be yaml or toml")
	}
	return f.Options()
}

// Options converts the file into policy options.
func (f *File) Options() ([]Option, error) {
	var opts []Option

	if f.SchemaVersion != "" {
		opts = append(opts, WithSchemaVersion(f.SchemaVersion))
	}
	if f.Agency != "" {
		opts = append(opts, WithAgency(f.Agency))
	}
	if f.MeasurementMethod != "" {
		opts = append(opts, WithMeasurementMethod(f.MeasurementMethod))
	}

	for _, alias := range sortedKeys(f.MarkerAliases) {
		opts = append(opts, WithMarkerAlias(alias, inventory.Field(f.MarkerAliases[alias])))
	}

	if len(f.ExemptionCodes) > 0 {
		codes := make([]inventory.ExemptionCode, 0, len(f.ExemptionCodes))
		for _, c := range f.ExemptionCodes {
			codes = append(codes, inventory.ExemptionCode(c))
		}
		opts = append(opts, WithExemptionCodes(codes...))
	}
	if len(f.NonCodeLanguages) > 0 {
		opts = append(opts, WithNonCodeLanguages(f.NonCodeLanguages...))
	}

	for _, acronym := range sortedKeys(f.OrganizationAcronyms) {
		opts = append(opts, WithOrganizationAcronym(acronym, f.OrganizationAcronyms[acronym]))
	}
	for _, org := range sortedKeys(f.Organizations) {
		opts = append(opts, WithOrganization(org, f.Organizations[org]))
	}

	if f.PrivateContactEmail != "" {
		opts = append(opts, WithPrivateContactEmail(f.PrivateContactEmail))
	}
	if f.ExemptedNoticeURL != "" || f.InstructionsURL != "" {
		opts = append(opts, WithRedactionURLs(f.ExemptedNoticeURL, f.InstructionsURL))
	}
	if len(f.AllowedEmailDomains) > 0 {
		opts = append(opts, WithAllowedEmailDomains(f.AllowedEmailDomains...))
	}
	if len(f.InternalHosts) > 0 {
		opts = append(opts, WithInternalHosts(f.InternalHosts...))
	}

	if f.PrivateCutoff != "" {
		cutoff, err := parseDate(f.PrivateCutoff)
		if err != nil {
			return nil, errors.NewValidationError("private_cutoff", f.PrivateCutoff, "must be YYYY-MM-DD or RFC 3339")
		}
		opts = append(opts, WithPrivateCutoff(cutoff))
	}

	if f.Pseudonym.Prefix != nil || f.Pseudonym.Length != 0 {
		prefix := DefaultPseudonymPrefix
		if f.Pseudonym.Prefix != nil {
			prefix = *f.Pseudonym.Prefix
		}
		opts = append(opts, WithPseudonym(prefix, f.Pseudonym.Length))
	}
	if f.ExemptNonCode != nil {
		opts = append(opts, WithExemptNonCode(*f.ExemptNonCode))
	}
	if f.RedactDescriptions != nil {
		opts = append(opts, WithRedactDescriptions(*f.RedactDescriptions))
	}

	return opts, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
