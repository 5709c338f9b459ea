// Package slugify converts display names into URL-safe slugs the way the
// target forum does: lowercase, non-alphanumeric runs collapsed to single
// dashes, no leading or trailing dash.
package slugify

import (
	"regexp"
	"strings"
)

var (
	invalidChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	dashRuns     = regexp.MustCompile(`-+`)
)

func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = invalidChars.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
