// Package exemption classifies reconciled records by visibility and declared
// exemption, deciding how each one is published.
//
//	visibility        exemption                 outcome
//	public            absent                    open
//	public            present                   open, exemption cleared, flagged invalid
//	private/internal  absent                    withheld (pseudonymized)
//	private/internal  present + justification   exempt
//	private/internal  present, no justification exempt, completeness warning
//
// Exemptions are recorded, never adjudicated.
package exemption

import (
	"strings"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Usage types published in the catalog permissions block.
const (
	UsageOpenSource          = "openSource"
	UsageGovernmentWideReuse = "governmentWideReuse"
)

// Result is a classified record plus the warnings raised while classifying it.
type Result struct {
	Record  inventory.CanonicalRecord
	Entries []runlog.Entry
}

// Classify applies the decision table to a merged record. The input is not modified.
func Classify(rec inventory.CanonicalRecord, p *policy.Policy) Result {
	if p == nil {
		p = policy.Default()
	}

	res := Result{Record: rec.Clone()}
	r := &res.Record
	r.Invalid = false

	if r.Permissions.Exemption != nil {
		code, ok := canonicalCode(*r.Permissions.Exemption, p)
		if !ok {
			res.Entries = append(res.Entries, runlog.Entry{
				Severity:     runlog.SeverityWarning,
				Kind:         runlog.KindUnknownExemptionCode,
				Organization: r.SourceOrganization,
				Repository:   r.RealID,
				Field:        inventory.FieldExemption.String(),
				Message:      "unknown exemption code " + string(*r.Permissions.Exemption) + "; treated as absent",
			})
			r.Permissions.Exemption = nil
			r.Permissions.Justification = nil
		} else {
			r.Permissions.Exemption = &code
		}
	}

	switch {
	case r.Visibility.IsPublic() && !r.HasExemption():
		r.Publication = inventory.PublicationOpen

	case r.Visibility.IsPublic():
		err := &errors.InvalidExemptionCombination{Repository: r.RealID, Exemption: string(*r.Permissions.Exemption)}
		entry := runlog.Warning(runlog.KindInvalidExemptionCombo, r.RealID, err)
		entry.Organization = r.SourceOrganization
		entry.Field = inventory.FieldExemption.String()
		res.Entries = append(res.Entries, entry)

		r.Permissions.Exemption = nil
		r.Permissions.Justification = nil
		r.Invalid = true
		r.Publication = inventory.PublicationOpen

	case r.HasExemption():
		r.Publication = inventory.PublicationExempt
		if r.Permissions.Justification == nil || strings.TrimSpace(*r.Permissions.Justification) == "" {
			empty := ""
			r.Permissions.Justification = &empty
			res.Entries = append(res.Entries, runlog.Entry{
				Severity:     runlog.SeverityWarning,
				Kind:         runlog.KindMissingJustification,
				Organization: r.SourceOrganization,
				Repository:   r.RealID,
				Field:        inventory.FieldExemptionJustification.String(),
				Message:      "exemption " + string(*r.Permissions.Exemption) + " has no justification",
			})
		}

	case p.ExemptNonCode() && NonCode(r.Languages, p):
		code := policy.ExemptByCIO
		justification := p.NonCodeJustification()
		r.Permissions.Exemption = &code
		r.Permissions.Justification = &justification
		r.Publication = inventory.PublicationExempt
		res.Entries = append(res.Entries, runlog.Info(runlog.KindNonCodeExemption, r.RealID, "no code languages; exempted as "+string(code)))

	default:
		r.Publication = inventory.PublicationWithheld
	}

	r.Permissions.UsageType = UsageType(r)
	return res
}

// UsageType derives the catalog usageType of a classified record.
func UsageType(r *inventory.CanonicalRecord) string {
	switch r.Publication {
	case inventory.PublicationOpen:
		if r.Permissions.License != nil {
			return UsageOpenSource
		}
		return UsageGovernmentWideReuse
	case inventory.PublicationExempt:
		if r.Permissions.Exemption != nil {
			return string(*r.Permissions.Exemption)
		}
	}
	return UsageGovernmentWideReuse
}

// NonCode reports whether every language is a non-code language. A record
// without detected languages counts as non-code.
func NonCode(languages []string, p *policy.Policy) bool {
	for _, lang := range languages {
		if lang != "" && !p.IsNonCodeLanguage(lang) {
			return false
		}
	}
	return true
}

// canonicalCode matches code case-insensitively against the policy enumeration.
func canonicalCode(code inventory.ExemptionCode, p *policy.Policy) (inventory.ExemptionCode, bool) {
	trimmed := strings.TrimSpace(string(code))
	for _, known := range p.ExemptionCodes() {
		if strings.EqualFold(trimmed, string(known)) {
			return known, true
		}
	}
	return "", false
}
