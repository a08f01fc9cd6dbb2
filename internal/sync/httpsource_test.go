package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maktaba/internal/types"
)

type recordingConsumer struct {
	regions  []*types.Region
	empires  []*types.Empire
	advanced []*types.AdvancedGenre
	simple   []*types.Genre
	authors  []*types.Author
	books    []*types.Book
}

func (c *recordingConsumer) ConsumeRegions(_ context.Context, rows []*types.Region) error {
	c.regions = append(c.regions, rows...)
	return nil
}

func (c *recordingConsumer) ConsumeEmpires(_ context.Context, rows []*types.Empire) error {
	c.empires = append(c.empires, rows...)
	return nil
}

func (c *recordingConsumer) ConsumeGenres(_ context.Context, advanced []*types.AdvancedGenre, simple []*types.Genre) error {
	c.advanced = append(c.advanced, advanced...)
	c.simple = append(c.simple, simple...)
	return nil
}

func (c *recordingConsumer) ConsumeAuthors(_ context.Context, rows []*types.Author) error {
	c.authors = append(c.authors, rows...)
	return nil
}

func (c *recordingConsumer) ConsumeBooks(_ context.Context, rows []*types.Book,
	_ func(id string) (*types.Author, error)) error {
	c.books = append(c.books, rows...)
	return nil
}

type failingHandler struct {
	records []string
}

func (f *failingHandler) Handle(_ context.Context, entity, payload string, _ error) error {
	f.records = append(f.records, entity)
	return nil
}

func newTestSource(t *testing.T, pages map[string]string) (*HTTPSource, *failingHandler) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if off := r.URL.Query().Get("offset"); off != "" {
			key += "?offset=" + off
		}

		body, ok := pages[key]
		if !ok {
			body = `{"records": []}`
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	eh := &failingHandler{}
	return &HTTPSource{
		BaseURL: base,
		Client:  srv.Client(),
		Logger:  discardLogger(),
		Errors:  eh,
	}, eh
}

func TestHTTPSource_FetchWalksPages(t *testing.T) {
	source, _ := newTestSource(t, map[string]string{
		"/genres": `{"records": [
			{"id": "g1", "fields": {"name": [{"locale": "en", "text": "Jurisprudence"}],
				"transliteration": "Fiqh", "slug": "fiqh"}}
		], "offset": "p2"}`,
		"/genres?offset=p2": `{"records": [
			{"id": "g2", "fields": {"transliteration": "Uṣūl al-Fiqh", "parent_genre_id": "g1"}}
		]}`,
		"/books": `{"records": [
			{"id": "b1", "fields": {"transliteration": "Risāla", "slug": "risala",
				"author_ids": ["a1"], "genre_ids": ["g2"]}}
		]}`,
	})

	var c recordingConsumer
	require.NoError(t, source.Fetch(context.Background(), &c))

	require.Len(t, c.advanced, 2)
	assert.Equal(t, "fiqh", c.advanced[0].Slug)
	assert.Equal(t, "g1", c.advanced[1].ParentId)
	// Missing slug falls back to the transliteration-derived one.
	assert.Equal(t, "usul-al-fiqh", c.advanced[1].Slug)

	require.Len(t, c.books, 1)
	assert.Equal(t, []string{"a1"}, c.books[0].Authors)
	assert.Equal(t, []string{"g2"}, c.books[0].Genres)
}

func TestHTTPSource_FetchAuthorPointLookup(t *testing.T) {
	source, _ := newTestSource(t, map[string]string{
		"/authors/a9": `{"id": "a9", "fields": {"transliteration": "al-Shāfiʿī", "year": 204}}`,
	})

	a, err := source.fetchAuthor(context.Background(), "a9")
	require.NoError(t, err)

	assert.Equal(t, "a9", a.Id)
	assert.Equal(t, "al-shafii", a.Slug)
	assert.Equal(t, uint16(204), a.Year)
}

func TestHTTPSource_FailedBatchIsRecordedAndFetchContinues(t *testing.T) {
	source, eh := newTestSource(t, map[string]string{
		"/regions": `{"records": [{"id": "r1", "fields": {"slug": "hijaz"}}]}`,
	})

	consumer := &consumerFailingOn{inner: &recordingConsumer{}}
	require.NoError(t, source.Fetch(context.Background(), consumer))

	assert.Equal(t, []string{"regions"}, eh.records)
}

// consumerFailingOn rejects region batches and accepts everything else.
type consumerFailingOn struct {
	inner *recordingConsumer
}

func (c *consumerFailingOn) ConsumeRegions(_ context.Context, _ []*types.Region) error {
	return assert.AnError
}

func (c *consumerFailingOn) ConsumeEmpires(ctx context.Context, rows []*types.Empire) error {
	return c.inner.ConsumeEmpires(ctx, rows)
}

func (c *consumerFailingOn) ConsumeGenres(ctx context.Context, advanced []*types.AdvancedGenre, simple []*types.Genre) error {
	return c.inner.ConsumeGenres(ctx, advanced, simple)
}

func (c *consumerFailingOn) ConsumeAuthors(ctx context.Context, rows []*types.Author) error {
	return c.inner.ConsumeAuthors(ctx, rows)
}

func (c *consumerFailingOn) ConsumeBooks(ctx context.Context, rows []*types.Book,
	fetchAuthor func(id string) (*types.Author, error)) error {
	return c.inner.ConsumeBooks(ctx, rows, fetchAuthor)
}
