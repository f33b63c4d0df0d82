package inventory

import (
	"strings"
	"time"
)

// RawRepository is one repository as reported by a code host.
// Records are produced by a collector and never modified afterwards.
type RawRepository struct {
	Host          string     `json:"host" yaml:"host"`                                         // Code host, e.g. "github"
	Organization  string     `json:"organization" yaml:"organization"`                         // Organization the repository was listed under
	Name          string     `json:"name" yaml:"name"`                                         // Repository name
	ID            int64      `json:"id,omitempty" yaml:"id,omitempty"`                         // Host-native numeric id
	URL           string     `json:"url" yaml:"url"`                                           // Browse URL, globally unique
	Visibility    Visibility `json:"visibility" yaml:"visibility"`                             // public, private or internal
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`       // Host description
	Homepage      string     `json:"homepage,omitempty" yaml:"homepage,omitempty"`             // Host homepage URL
	Language      string     `json:"language,omitempty" yaml:"language,omitempty"`             // Primary language
	Languages     []string   `json:"languages,omitempty" yaml:"languages,omitempty"`           // All detected languages
	License       *string    `json:"license,omitempty" yaml:"license,omitempty"`               // License identifier, nil when none
	Topics        []string   `json:"topics,omitempty" yaml:"topics,omitempty"`                 // Host topics
	Tags          []string   `json:"tags,omitempty" yaml:"tags,omitempty"`                     // Git tag names
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`                             // Creation time
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`                             // Last push time
	DefaultBranch string     `json:"default_branch,omitempty" yaml:"default_branch,omitempty"` // Default branch
	Archived      bool       `json:"archived,omitempty" yaml:"archived,omitempty"`             // Archived at the host
	Fork          bool       `json:"fork,omitempty" yaml:"fork,omitempty"`                     // Fork of another repository
	Parent        string     `json:"parent,omitempty" yaml:"parent,omitempty"`                 // Fork or mirror source URL
	Readme        *string    `json:"readme,omitempty" yaml:"readme,omitempty"`                 // README text, nil when absent
}

// FullName returns "organization/name".
func (r RawRepository) FullName() string {
	return r.Organization + "/" + r.Name
}

// RealID returns the host-qualified identity of the repository. It is the
// identifier that pseudonyms are derived from for non-public repositories.
func (r RawRepository) RealID() string {
	host := r.Host
	if host == "" {
		host = "unknown"
	}
	return strings.ToLower(host + "/" + r.Organization + "/" + r.Name)
}

// NormalizeURL lower-cases a repository URL and strips the scheme, any
// trailing slash and a ".git" suffix so clone and browse URLs compare equal.
func NormalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")
	return u
}
