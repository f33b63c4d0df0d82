package reconciler

import (
	"strconv"
	"time"

	"github.com/agentstation/codeinventory/pkg/authority"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/markers"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/provenance"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Merger applies README override markers and organization defaults to a
// normalized record.
type Merger interface {
	// Merge resolves every overridable field of rec. The input is not modified.
	Merge(rec inventory.CanonicalRecord, found markers.Result) MergeResult
}

// MergeResult is a merged record with its override audit trail.
type MergeResult struct {
	Record  inventory.CanonicalRecord
	Audits  []inventory.OverrideAudit
	Entries []runlog.Entry
}

// merger is the default Merger.
type merger struct {
	policy      *policy.Policy
	authorities authority.Authority
	tracker     provenance.Tracker
	now         func() time.Time
}

// newMerger creates a merger. A nil tracker disables provenance.
func newMerger(p *policy.Policy, authorities authority.Authority, tracker provenance.Tracker, now func() time.Time) Merger {
	if p == nil {
		p = policy.Default()
	}
	if authorities == nil {
		authorities = authority.New()
	}
	if now == nil {
		now = time.Now
	}
	return &merger{policy: p, authorities: authorities, tracker: tracker, now: now}
}

// NewMerger creates a Merger using the default authorities.
func NewMerger(p *policy.Policy) Merger {
	return newMerger(p, nil, nil, nil)
}

// Merge resolves each field from the marker, organization default and host
// candidates. Marker and default values are validated first; invalid values
// are dropped with a warning and never become candidates.
func (m *merger) Merge(rec inventory.CanonicalRecord, found markers.Result) MergeResult {
	res := MergeResult{Record: rec.Clone()}
	r := &res.Record
	defaults, _ := m.policy.Organization(rec.SourceOrganization)

	for _, field := range inventory.Fields {
		host := fieldValue(r, field)

		var candidates []authority.Candidate
		if mk, ok := found.Get(field); ok {
			value, entry := validateValue(field, mk.Value, m.policy)
			if entry != nil {
				entry.Organization = r.SourceOrganization
				entry.Repository = r.RealID
				entry.Line = mk.Line
				res.Entries = append(res.Entries, *entry)
			}
			if value != "" {
				candidates = append(candidates, authority.Candidate{Source: authority.SourceReadme, Value: value, Line: mk.Line})
			}
		}
		if def := m.organizationDefault(r, defaults, field); def != "" {
			value, entry := validateValue(field, def, m.policy)
			if entry != nil {
				entry.Organization = r.SourceOrganization
				entry.Repository = r.RealID
				entry.Message = "organization default: " + entry.Message
				res.Entries = append(res.Entries, *entry)
			}
			if value != "" {
				candidates = append(candidates, authority.Candidate{Source: authority.SourceOrganization, Value: value})
			}
		}
		if host != "" {
			candidates = append(candidates, authority.Candidate{Source: authority.SourceHost, Value: host})
		}

		winner, ok := m.authorities.Resolve(field, candidates)
		if !ok {
			continue
		}
		fallback, _ := m.authorities.Resolve(field, withoutSource(candidates, authority.SourceReadme))
		m.track(r.RealID, field, candidates, winner, host)

		if winner.Value != host {
			setFieldValue(r, field, winner.Value)
		}
		if winner.Source == authority.SourceReadme && winner.Value != fallback.Value {
			res.Audits = append(res.Audits, inventory.OverrideAudit{
				Repository: r.RealID,
				Field:      field,
				Original:   fallback.Value,
				Overridden: winner.Value,
				Line:       winner.Line,
			})
			entry := runlog.Info(runlog.KindOverride, r.RealID, field.String()+" overridden by README marker")
			entry.Organization = r.SourceOrganization
			entry.Field = field.String()
			entry.Line = winner.Line
			res.Entries = append(res.Entries, entry)
		}
	}
	return res
}

// organizationDefault returns the policy default for field. The organization
// name default only applies when no acronym matched the repository name.
func (m *merger) organizationDefault(r *inventory.CanonicalRecord, d policy.OrganizationDefaults, field inventory.Field) string {
	switch field {
	case inventory.FieldOrganization:
		if r.Organization != r.SourceOrganization {
			return ""
		}
		return d.Name
	case inventory.FieldContactEmail:
		return d.ContactEmail
	case inventory.FieldContactName:
		return d.ContactName
	}
	return ""
}

// track records every candidate considered for a field.
func (m *merger) track(repository string, field inventory.Field, candidates []authority.Candidate, winner authority.Candidate, previous string) {
	if m.tracker == nil {
		return
	}
	now := m.now()
	for _, c := range candidates {
		p := provenance.Provenance{
			Source:    c.Source,
			Field:     field,
			Value:     c.Value,
			Timestamp: now,
			Line:      c.Line,
		}
		if auth := m.authorities.Find(field, c.Source); auth != nil {
			p.Priority = auth.Priority
		}
		if c == winner {
			p.Selected = true
			p.Reason = "highest priority source"
			if c.Value != previous {
				p.PreviousValue = previous
			}
		} else {
			p.Reason = "superseded by " + winner.Source.String()
		}
		m.tracker.Track(repository, field, p)
	}
}

func withoutSource(candidates []authority.Candidate, source authority.Source) []authority.Candidate {
	out := make([]authority.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Source != source {
			out = append(out, c)
		}
	}
	return out
}

// fieldValue returns the string form of an overridable field, empty when unset.
func fieldValue(r *inventory.CanonicalRecord, field inventory.Field) string {
	switch field {
	case inventory.FieldOrganization:
		return r.Organization
	case inventory.FieldContactEmail:
		return deref(r.Permissions.ContactEmail)
	case inventory.FieldContactName:
		return deref(r.Permissions.ContactName)
	case inventory.FieldExemption:
		if r.Permissions.Exemption != nil {
			return string(*r.Permissions.Exemption)
		}
	case inventory.FieldExemptionJustification:
		return deref(r.Permissions.Justification)
	case inventory.FieldStatus:
		return r.Status.String()
	case inventory.FieldVersion:
		return r.Version
	case inventory.FieldDescription:
		return r.Description
	case inventory.FieldHomepage:
		return r.HomepageURL
	case inventory.FieldLaborHours:
		if r.LaborHours != 0 {
			return strconv.FormatFloat(r.LaborHours, 'f', -1, 64)
		}
	case inventory.FieldCanonicalSource:
		if r.Canonical {
			return "true"
		}
	}
	return ""
}

// setFieldValue stores an already validated value.
func setFieldValue(r *inventory.CanonicalRecord, field inventory.Field, value string) {
	switch field {
	case inventory.FieldOrganization:
		r.Organization = value
	case inventory.FieldContactEmail:
		r.Permissions.ContactEmail = &value
	case inventory.FieldContactName:
		r.Permissions.ContactName = &value
	case inventory.FieldExemption:
		code := inventory.ExemptionCode(value)
		r.Permissions.Exemption = &code
	case inventory.FieldExemptionJustification:
		r.Permissions.Justification = &value
	case inventory.FieldStatus:
		r.Status = inventory.Status(value)
	case inventory.FieldVersion:
		r.Version = value
	case inventory.FieldDescription:
		r.Description = value
	case inventory.FieldHomepage:
		r.HomepageURL = value
	case inventory.FieldLaborHours:
		r.LaborHours, _ = strconv.ParseFloat(value, 64)
	case inventory.FieldCanonicalSource:
		r.Canonical = value == "true"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
