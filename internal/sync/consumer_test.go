package sync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maktaba/internal/storage/books"
	"maktaba/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAuthorRepo struct {
	existing map[string]*types.Author
	saved    []string
}

func (f *fakeAuthorRepo) GetById(_ context.Context, id string) (*types.Author, error) {
	return f.existing[id], nil
}

func (f *fakeAuthorRepo) GetByIds(_ context.Context, ids ...string) (map[string]*types.Author, error) {
	ret := make(map[string]*types.Author)
	for _, id := range ids {
		if a, ok := f.existing[id]; ok {
			ret[id] = a
		}
	}

	return ret, nil
}

func (f *fakeAuthorRepo) Search(_ context.Context, _, _ string, _ int) ([]*types.Author, error) {
	return nil, nil
}

func (f *fakeAuthorRepo) Save(_ context.Context, rows ...*types.Author) error {
	if f.existing == nil {
		f.existing = make(map[string]*types.Author)
	}
	for _, a := range rows {
		f.saved = append(f.saved, a.Id)
		f.existing[a.Id] = a
	}

	return nil
}

type fakeBookRepo struct {
	saved        []string
	linkedGenres map[string][]string
}

func (f *fakeBookRepo) GetById(_ context.Context, _ string) (*types.Book, error) {
	return nil, nil
}

func (f *fakeBookRepo) GetByIds(_ context.Context, _ ...string) (map[string]*types.Book, error) {
	return map[string]*types.Book{}, nil
}

func (f *fakeBookRepo) WithGenres(_ context.Context, _ books.Filter) ([]books.BookGenres, error) {
	return nil, nil
}

func (f *fakeBookRepo) Search(_ context.Context, _ string, _ books.Filter, _ []string,
	_, _ int) ([]*types.Book, error) {
	return nil, nil
}

func (f *fakeBookRepo) Save(_ context.Context, rows ...*types.Book) error {
	for _, b := range rows {
		f.saved = append(f.saved, b.Id)
	}

	return nil
}

func (f *fakeBookRepo) LinkBookAndAuthors(_ context.Context, _ string, _ ...string) error {
	return nil
}

func (f *fakeBookRepo) LinkBookAndGenres(_ context.Context, bookId string, genreIds ...string) error {
	if f.linkedGenres == nil {
		f.linkedGenres = make(map[string][]string)
	}
	f.linkedGenres[bookId] = genreIds

	return nil
}

type fakeGenreRepo struct {
	advanced []*types.AdvancedGenre
	simple   []*types.Genre
}

func (f *fakeGenreRepo) GetAllAdvanced(_ context.Context) ([]*types.AdvancedGenre, error) {
	return f.advanced, nil
}

func (f *fakeGenreRepo) CountAdvanced(_ context.Context) (int, error) {
	return len(f.advanced), nil
}

func (f *fakeGenreRepo) SaveAdvanced(_ context.Context, rows ...*types.AdvancedGenre) error {
	f.advanced = append(f.advanced, rows...)
	return nil
}

func (f *fakeGenreRepo) GetAllSimple(_ context.Context) ([]*types.Genre, error) {
	return f.simple, nil
}

func (f *fakeGenreRepo) SaveSimple(_ context.Context, rows ...*types.Genre) error {
	f.simple = append(f.simple, rows...)
	return nil
}

func noFetch(id string) (*types.Author, error) {
	panic("unexpected fetchAuthor call for " + id)
}

func TestStoringConsumer_ConsumeBooks_SkipsUnknownGenres(t *testing.T) {
	br := &fakeBookRepo{}
	c := &StoringConsumer{
		Logger:  discardLogger(),
		Books:   br,
		Authors: &fakeAuthorRepo{},
		Genres:  &fakeGenreRepo{},
	}

	err := c.ConsumeGenres(context.Background(),
		[]*types.AdvancedGenre{{Id: "g1", Slug: "fiqh"}}, nil)
	require.NoError(t, err)

	err = c.ConsumeBooks(context.Background(), []*types.Book{
		{Id: "b1", Slug: "b1", Genres: []string{"g1", "g-missing"}},
	}, noFetch)
	require.NoError(t, err)

	assert.Equal(t, []string{"b1"}, br.saved)
	assert.Equal(t, []string{"g1"}, br.linkedGenres["b1"])
}

func TestStoringConsumer_ConsumeBooks_FetchesMissingAuthors(t *testing.T) {
	ar := &fakeAuthorRepo{existing: map[string]*types.Author{
		"a1": {Id: "a1", Slug: "a1"},
	}}
	c := &StoringConsumer{
		Logger:  discardLogger(),
		Books:   &fakeBookRepo{},
		Authors: ar,
		Genres:  &fakeGenreRepo{},
	}

	fetched := 0
	err := c.ConsumeBooks(context.Background(), []*types.Book{
		{Id: "b1", Slug: "b1", Authors: []string{"a1", "a2"}},
	}, func(id string) (*types.Author, error) {
		fetched++
		return &types.Author{Id: id, Slug: id}, nil
	})
	require.NoError(t, err)

	// Only the author the run has not delivered gets a point lookup.
	assert.Equal(t, 1, fetched)
	assert.Equal(t, []string{"a2"}, ar.saved)
}

func TestStoringConsumer_ConsumeBooks_LoadsKnownGenresWhenNotPrimed(t *testing.T) {
	br := &fakeBookRepo{}
	c := &StoringConsumer{
		Logger:  discardLogger(),
		Books:   br,
		Authors: &fakeAuthorRepo{},
		Genres:  &fakeGenreRepo{advanced: []*types.AdvancedGenre{{Id: "g1", Slug: "fiqh"}}},
	}

	// No ConsumeGenres call this run; known genres come from the store.
	err := c.ConsumeBooks(context.Background(), []*types.Book{
		{Id: "b1", Slug: "b1", Genres: []string{"g1"}},
	}, noFetch)
	require.NoError(t, err)

	assert.Equal(t, []string{"g1"}, br.linkedGenres["b1"])
}
