package types

// GenreDto is the locale-resolved projection of an AdvancedGenre returned
// by the read API.
type GenreDto struct {
	Id            string `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	SecondaryName string `json:"secondary_name,omitempty"`
	NumberOfBooks int    `json:"number_of_books"`
}

// GenreTreeNode is one node of the genre hierarchy forest.
type GenreTreeNode struct {
	Id            string           `json:"id"`
	Slug          string           `json:"slug"`
	Name          string           `json:"name"`
	SecondaryName string           `json:"secondary_name,omitempty"`
	NumberOfBooks int              `json:"number_of_books"`
	Children      []*GenreTreeNode `json:"children,omitempty"`
}
