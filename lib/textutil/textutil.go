package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

var illegalFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename strips characters that are invalid in file names on
// common filesystems. It can return an empty string, callers are expected
// to substitute their own fallback.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(illegalFilenameChars.ReplaceAllString(name, ""))
}
