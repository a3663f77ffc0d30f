package domain

import (
	"regexp"
	"strings"
)

var unsafeNameRunes = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName keeps file name prefixes shell and URL safe. Runs of
// disallowed characters collapse to one underscore; separators can never
// survive, so a name cannot escape its directory. May return "".
func SanitizeName(name string) string {
	name = unsafeNameRunes.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.Trim(name, "._-")
}
