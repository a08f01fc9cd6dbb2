package types

// LocalizedText is one per-locale variant of a display string.
type LocalizedText struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// AdvancedGenre is a node of the hierarchical genre taxonomy.
// ParentId refers to another AdvancedGenre by id; empty means root.
type AdvancedGenre struct {
	Id              string          `json:"id"`
	Slug            string          `json:"slug"`
	ParentId        string          `json:"parent_genre_id"`
	Transliteration string          `json:"transliteration"`
	NameEntries     []LocalizedText `json:"name_entries"`
}

// Genre is an entry of the flat (non-hierarchical) genre list.
type Genre struct {
	Id              string          `json:"id"`
	Slug            string          `json:"slug"`
	Transliteration string          `json:"transliteration"`
	NameEntries     []LocalizedText `json:"name_entries"`
}

type Book struct {
	Id              string          `json:"id"`
	Slug            string          `json:"slug"`
	Transliteration string          `json:"transliteration"`
	NameEntries     []LocalizedText `json:"name_entries"`
	Authors         []string        `json:"author_ids"`
	Genres          []string        `json:"genre_ids"`
}

type Author struct {
	Id              string          `json:"id"`
	Slug            string          `json:"slug"`
	Transliteration string          `json:"transliteration"`
	NameEntries     []LocalizedText `json:"name_entries"`
	// Year is the author's death year (AH); 0 when unknown.
	Year    uint16   `json:"year"`
	Regions []string `json:"region_ids"`
}

type Region struct {
	Id              string          `json:"id"`
	Slug            string          `json:"slug"`
	Transliteration string          `json:"transliteration"`
	NameEntries     []LocalizedText `json:"name_entries"`
}

type Empire struct {
	Id              string          `json:"id"`
	Slug            string          `json:"slug"`
	Transliteration string          `json:"transliteration"`
	NameEntries     []LocalizedText `json:"name_entries"`
	StartYear       uint16          `json:"start_year"`
	EndYear         uint16          `json:"end_year"`
}
