package books

import (
	"context"

	"maktaba/internal/types"
)

// Filter scopes the books-with-genres query. Zero fields are ignored;
// present fields combine with AND semantics.
type Filter struct {
	AuthorId string
	BookIds  []string
	YearMin  uint16
	YearMax  uint16
	RegionId string
}

func (f Filter) IsZero() bool {
	return f.AuthorId == "" && len(f.BookIds) == 0 &&
		f.YearMin == 0 && f.YearMax == 0 && f.RegionId == ""
}

// BookGenres is one row of the aggregation input: a book and the ids of
// the advanced genres it is directly tagged with.
type BookGenres struct {
	BookId   string
	GenreIds []string
}

type Repository interface {
	GetById(ctx context.Context, id string) (*types.Book, error)
	// GetByIds shall return map with NON-NULLS!
	GetByIds(ctx context.Context, ids ...string) (map[string]*types.Book, error)

	// WithGenres returns every book matching the filter together with its
	// direct advanced-genre associations.
	WithGenres(ctx context.Context, f Filter) ([]BookGenres, error)

	Search(ctx context.Context, query string, f Filter, genreIds []string,
		limit, offset int) ([]*types.Book, error)

	Save(ctx context.Context, books ...*types.Book) error

	LinkBookAndAuthors(ctx context.Context, bookId string, authorIds ...string) error
	LinkBookAndGenres(ctx context.Context, bookId string, genreIds ...string) error
}
