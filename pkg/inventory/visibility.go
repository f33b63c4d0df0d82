// Package inventory defines the data model shared by every stage of the
// code inventory pipeline: the raw repository records produced by a code
// host, the reconciled canonical records, override audits, pseudonym
// mappings and the catalog document itself.
package inventory

import (
	"fmt"
	"strings"
)

// Visibility is the visibility of a repository as reported by its code host.
type Visibility string

const (
	// VisibilityPublic is an openly readable repository.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate is readable only by explicit members.
	VisibilityPrivate Visibility = "private"
	// VisibilityInternal is readable by every member of the enterprise.
	VisibilityInternal Visibility = "internal"
)

// String returns the string representation of the visibility.
func (v Visibility) String() string {
	return string(v)
}

// IsPublic reports whether the repository is openly published.
func (v Visibility) IsPublic() bool {
	return v == VisibilityPublic
}

// IsValid reports whether v is one of the known visibilities.
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityInternal:
		return true
	}
	return false
}

// ParseVisibility parses a visibility string case-insensitively.
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", fmt.Errorf("unknown visibility %q", s)
	}
	return v, nil
}
