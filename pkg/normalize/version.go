package normalize

import (
	"strings"

	"golang.org/x/mod/semver"
)

// LatestVersion returns the highest release (non-prerelease) semantic version
// among tags, without the "v" prefix. Tags that are not versions are ignored.
func LatestVersion(tags []string) string {
	best := ""
	for _, tag := range tags {
		v := strings.TrimSpace(tag)
		if v == "" {
			continue
		}
		if v[0] == 'V' {
			v = "v" + v[1:]
		} else if v[0] != 'v' {
			v = "v" + v
		}
		if !semver.IsValid(v) || semver.Prerelease(v) != "" {
			continue
		}
		if best == "" || semver.Compare(v, best) > 0 {
			best = v
		}
	}
	if best == "" {
		return ""
	}
	return strings.TrimPrefix(semver.Canonical(best), "v")
}
