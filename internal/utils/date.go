package utils

import (
	"regexp"
	"strings"
)

var (
	releaseDateRegex = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	looseDateRegex   = regexp.MustCompile(`^(\d{4})[./](\d{1,2})[./](\d{1,2})$`)
)

// IsValidReleaseDate reports whether s looks like YYYY-MM-DD
func IsValidReleaseDate(s string) bool {
	return releaseDateRegex.MatchString(strings.TrimSpace(s))
}

// NormalizeReleaseDate rewrites YYYY/MM/DD and YYYY.MM.DD with dashes.
// Other inputs are returned trimmed.
func NormalizeReleaseDate(s string) string {
	s = strings.TrimSpace(s)
	if m := looseDateRegex.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	return s
}
