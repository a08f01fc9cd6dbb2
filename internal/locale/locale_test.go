package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"maktaba/internal/types"
)

func entries() []types.LocalizedText {
	return []types.LocalizedText{
		{Locale: English, Text: "Jurisprudence"},
		{Locale: Arabic, Text: "فقه"},
	}
}

func TestPrimary(t *testing.T) {
	// English prefers the transliteration over the translated entry.
	assert.Equal(t, "Fiqh", Primary(entries(), "Fiqh", English))
	assert.Equal(t, "Jurisprudence", Primary(entries(), "", English))

	assert.Equal(t, "فقه", Primary(entries(), "Fiqh", Arabic))

	// No entry for the locale: first non-empty entry wins.
	arOnly := []types.LocalizedText{{Locale: Arabic, Text: "فقه"}}
	assert.Equal(t, "فقه", Primary(arOnly, "", English))

	assert.Equal(t, "", Primary(nil, "", Arabic))
}

func TestSecondary(t *testing.T) {
	assert.Equal(t, "فقه", Secondary(entries(), "Fiqh", English))
	assert.Equal(t, "Jurisprudence", Secondary(entries(), "Fiqh", Arabic))

	// Arabic request without an English entry falls back to transliteration.
	arOnly := []types.LocalizedText{{Locale: Arabic, Text: "فقه"}}
	assert.Equal(t, "Fiqh", Secondary(arOnly, "Fiqh", Arabic))

	// Suppressed when it would repeat the primary.
	assert.Equal(t, "", Secondary(arOnly, "", English))
	assert.Equal(t, "", Secondary(nil, "", English))
}
