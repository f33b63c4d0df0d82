package inventory

import (
	"fmt"
	"strings"
)

// Status is the development status of a repository in the catalog.
type Status string

const (
	// StatusDevelopment is the default status.
	StatusDevelopment Status = "development"
	// StatusProduction marks code running in production.
	StatusProduction Status = "production"
	// StatusMaintenance marks code that only receives fixes.
	StatusMaintenance Status = "maintenance"
	// StatusArchived marks repositories archived at the host or by their owners.
	StatusArchived Status = "archived"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusDevelopment, StatusProduction, StatusMaintenance, StatusArchived}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus parses a status string case-insensitively.
// "maintained" is accepted as an alias for maintenance.
func ParseStatus(s string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "maintained" {
		return StatusMaintenance, nil
	}
	status := Status(normalized)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return status, nil
}
