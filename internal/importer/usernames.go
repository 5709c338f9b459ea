package importer

import (
	"regexp"
	"strings"

	"github.com/iota-uz/forum-importer/pkg/slugify"
)

var (
	// Characters the forum rejects outright in usernames.
	malformedUsername = regexp.MustCompile(`[^\p{L}\p{N}\s\-_.@]`)

	// Characters stripped by the sanitizing fallback: everything outside
	// the safe identifier class, then whitespace, asterisks and a small
	// fixed set of diacritics.
	unsafeUsernameChars = regexp.MustCompile(`[^\x{00BF}-\x{1FFF}\x{2C00}-\x{D7FF}\-.*\w\s]`)
	strippedRunes       = strings.NewReplacer(" ", "", "*", "", "æ", "", "ø", "", "å", "")

	reservedUsernames = map[string]struct{}{
		"guest":            {},
		"administrators":   {},
		"registered-users": {},
	}
)

const maxUsernameLength = 255

func isUsernameValid(name string) bool {
	if name == "" || len(name) > maxUsernameLength {
		return false
	}
	if malformedUsername.MatchString(name) {
		return false
	}
	_, reserved := reservedUsernames[strings.ToLower(name)]
	return !reserved
}

func cleanUsername(name string) string {
	return strippedRunes.Replace(unsafeUsernameChars.ReplaceAllString(name, ""))
}

// resolveUsername runs the deterministic fallback chain: raw username,
// sanitized username, raw alternative, sanitized alternative. Each candidate
// must pass the forum's validity rule and produce a non-empty slug. Both
// return values are empty when no candidate survives, which means the user
// must be skipped, not created.
func resolveUsername(username, alternative string) (string, string) {
	if slug := slugify.Slugify(username); isUsernameValid(username) && slug != "" {
		return username, slug
	}

	cleaned := cleanUsername(username)
	if slug := slugify.Slugify(cleaned); isUsernameValid(cleaned) && slug != "" {
		return cleaned, slug
	}

	if alternative == "" {
		return "", ""
	}

	if slug := slugify.Slugify(alternative); isUsernameValid(alternative) && slug != "" {
		return alternative, slug
	}

	cleanedAlt := cleanUsername(alternative)
	if slug := slugify.Slugify(cleanedAlt); isUsernameValid(cleanedAlt) && slug != "" {
		return cleanedAlt, slug
	}

	return "", ""
}
