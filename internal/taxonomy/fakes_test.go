package taxonomy

import (
	"context"
	"io"
	"log/slog"

	"maktaba/internal/storage/books"
	"maktaba/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func genre(id, parentId string) *types.AdvancedGenre {
	return &types.AdvancedGenre{
		Id:       id,
		Slug:     id,
		ParentId: parentId,
		NameEntries: []types.LocalizedText{
			{Locale: "en", Text: "Genre " + id},
		},
	}
}

type fakeGenreRepo struct {
	rows  []*types.AdvancedGenre
	count int
	err   error

	getAllCalls int
	countCalls  int
}

func (f *fakeGenreRepo) GetAllAdvanced(_ context.Context) ([]*types.AdvancedGenre, error) {
	f.getAllCalls++
	return f.rows, f.err
}

func (f *fakeGenreRepo) CountAdvanced(_ context.Context) (int, error) {
	f.countCalls++
	return f.count, f.err
}

func (f *fakeGenreRepo) SaveAdvanced(_ context.Context, _ ...*types.AdvancedGenre) error {
	return nil
}

func (f *fakeGenreRepo) GetAllSimple(_ context.Context) ([]*types.Genre, error) {
	return nil, nil
}

func (f *fakeGenreRepo) SaveSimple(_ context.Context, _ ...*types.Genre) error {
	return nil
}

type fakeBookRepo struct {
	rows []books.BookGenres
	err  error

	withGenresCalls int
	lastFilter      books.Filter
}

func (f *fakeBookRepo) WithGenres(_ context.Context, filter books.Filter) ([]books.BookGenres, error) {
	f.withGenresCalls++
	f.lastFilter = filter
	return f.rows, f.err
}

func (f *fakeBookRepo) GetById(_ context.Context, _ string) (*types.Book, error) {
	return nil, nil
}

func (f *fakeBookRepo) GetByIds(_ context.Context, _ ...string) (map[string]*types.Book, error) {
	return map[string]*types.Book{}, nil
}

func (f *fakeBookRepo) Search(_ context.Context, _ string, _ books.Filter, _ []string,
	_, _ int) ([]*types.Book, error) {
	return nil, nil
}

func (f *fakeBookRepo) Save(_ context.Context, _ ...*types.Book) error {
	return nil
}

func (f *fakeBookRepo) LinkBookAndAuthors(_ context.Context, _ string, _ ...string) error {
	return nil
}

func (f *fakeBookRepo) LinkBookAndGenres(_ context.Context, _ string, _ ...string) error {
	return nil
}
