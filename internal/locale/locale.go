// Package locale resolves per-locale text variants into the primary and
// secondary display strings of an entity.
package locale

import (
	"maktaba/internal/types"
)

const (
	English = "en"
	Arabic  = "ar"
)

// Supported lists the locales the API accepts; the first one is the default.
var Supported = []string{English, Arabic}

func find(entries []types.LocalizedText, loc string) string {
	for _, e := range entries {
		if e.Locale == loc && e.Text != "" {
			return e.Text
		}
	}

	return ""
}

// Primary returns the display string for the requested locale. An English
// request prefers the Latin transliteration when one exists; otherwise the
// requested locale's entry, falling back to the first non-empty entry.
func Primary(entries []types.LocalizedText, transliteration, loc string) string {
	if loc == English && transliteration != "" {
		return transliteration
	}

	if s := find(entries, loc); s != "" {
		return s
	}

	for _, e := range entries {
		if e.Text != "" {
			return e.Text
		}
	}

	return ""
}

// Secondary returns the alternate display string: the Arabic entry for
// non-Arabic requests and the English one (or transliteration) for Arabic
// requests. Empty when no alternate exists or it would repeat the primary.
func Secondary(entries []types.LocalizedText, transliteration, loc string) string {
	var s string
	if loc == Arabic {
		s = find(entries, English)
		if s == "" {
			s = transliteration
		}
	} else {
		s = find(entries, Arabic)
	}

	if s == Primary(entries, transliteration, loc) {
		return ""
	}

	return s
}
