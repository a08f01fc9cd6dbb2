// Package slug derives URL-safe identifiers from transliterated titles.
package slug

import (
	"regexp"
	"strings"
)

var (
	wordSeparator   = regexp.MustCompile(`[\s_/]+`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9-]`)
	multipleDash    = regexp.MustCompile(`-+`)
)

// Make converts a transliterated title to its canonical slug: lowercase,
// dashes for separators, ASCII alphanumerics only, no repeated or edge
// dashes. Diacritic marks common in Arabic transliteration (ʿ, ʾ, macrons)
// are stripped rather than replaced.
func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))

	s = strings.NewReplacer(
		"ā", "a", "ī", "i", "ū", "u",
		"ḥ", "h", "ṣ", "s", "ḍ", "d", "ṭ", "t", "ẓ", "z",
		"ʿ", "", "ʾ", "", "'", "", "’", "",
	).Replace(s)

	s = wordSeparator.ReplaceAllString(s, "-")
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = multipleDash.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}
