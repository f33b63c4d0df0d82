package reconciler

import (
	"math"
	"net/mail"
	"strconv"
	"strings"
	"unicode"

	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// ContactSeparator joins multiple contact addresses.
const ContactSeparator = "; "

// validateValue normalizes a marker or default value for field. An empty
// result means the value was rejected; the entry, when non-nil, explains why.
func validateValue(field inventory.Field, value string, p *policy.Policy) (string, *runlog.Entry) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	switch field {
	case inventory.FieldContactEmail:
		valid, invalid := ContactEmails(value, p)
		var entry *runlog.Entry
		if len(invalid) > 0 {
			entry = warning(runlog.KindInvalidContactEmail, field, "invalid contact email dropped: "+strings.Join(invalid, ", "))
		}
		return strings.Join(valid, ContactSeparator), entry

	case inventory.FieldStatus:
		status, err := inventory.ParseStatus(value)
		if err != nil {
			return "", warning(runlog.KindInvalidStatus, field, err.Error())
		}
		return status.String(), nil

	case inventory.FieldLaborHours:
		hours, err := strconv.ParseFloat(value, 64)
		if err != nil || hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
			return "", warning(runlog.KindInvalidLaborHours, field, "labor hours must be a non-negative number, got "+strconv.Quote(value))
		}
		if hours == 0 {
			return "", nil
		}
		return strconv.FormatFloat(hours, 'f', -1, 64), nil

	case inventory.FieldCanonicalSource:
		canonical, ok := ParseYesNo(value)
		if !ok {
			return "", warning(runlog.KindInvalidCanonicalSource, field, "expected yes or no, got "+strconv.Quote(value))
		}
		return strconv.FormatBool(canonical), nil

	case inventory.FieldVersion:
		if len(value) > 1 && (value[0] == 'v' || value[0] == 'V') && unicode.IsDigit(rune(value[1])) {
			value = value[1:]
		}
		return value, nil
	}
	return value, nil
}

// ContactEmails splits a comma or semicolon separated address list. Addresses
// that do not parse, or whose domain the policy does not allow, are returned
// as invalid. Valid addresses are lower-cased and de-duplicated.
func ContactEmails(value string, p *policy.Policy) (valid, invalid []string) {
	seen := make(map[string]bool)
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' })
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := mail.ParseAddress(part)
		if err != nil {
			invalid = append(invalid, part)
			continue
		}
		email := strings.ToLower(addr.Address)
		_, domain, _ := strings.Cut(email, "@")
		if !p.EmailDomainAllowed(domain) {
			invalid = append(invalid, part)
			continue
		}
		if !seen[email] {
			seen[email] = true
			valid = append(valid, email)
		}
	}
	return valid, invalid
}

// ParseYesNo parses yes/no style booleans.
func ParseYesNo(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true, true
	case "no", "n", "false", "0":
		return false, true
	}
	return false, false
}

func warning(kind runlog.Kind, field inventory.Field, message string) *runlog.Entry {
	return &runlog.Entry{
		Severity: runlog.SeverityWarning,
		Kind:     kind,
		Field:    field.String(),
		Message:  message,
	}
}
