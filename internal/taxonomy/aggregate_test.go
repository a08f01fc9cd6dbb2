package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maktaba/internal/storage/books"
	"maktaba/internal/types"
)

func newAggregator(genreRows []*types.AdvancedGenre, bookRows []books.BookGenres) (*Aggregator, *fakeGenreRepo, *fakeBookRepo) {
	gr := &fakeGenreRepo{rows: genreRows}
	br := &fakeBookRepo{rows: bookRows}
	store := NewStore(gr, "", discardLogger())

	return NewAggregator(store, br, discardLogger()), gr, br
}

func taxonomyRows() []*types.AdvancedGenre {
	return []*types.AdvancedGenre{
		genre("fiqh", ""),
		genre("ibadat", "fiqh"),
		genre("muamalat", "fiqh"),
		genre("salat", "ibadat"),
	}
}

func TestAggregator_CountsBottomUp(t *testing.T) {
	agg, _, _ := newAggregator(taxonomyRows(), []books.BookGenres{
		{BookId: "b1", GenreIds: []string{"salat"}},
		{BookId: "b2", GenreIds: []string{"ibadat"}},
		// Tagged with an ancestor and its descendant; must count once at both.
		{BookId: "b3", GenreIds: []string{"fiqh", "salat"}},
		{BookId: "b4", GenreIds: []string{"muamalat"}},
	})

	counts, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"salat":    2,
		"ibadat":   3,
		"muamalat": 1,
		"fiqh":     4,
	}, counts)
}

func TestAggregator_ParentNeverBelowChild(t *testing.T) {
	agg, _, _ := newAggregator(taxonomyRows(), []books.BookGenres{
		{BookId: "b1", GenreIds: []string{"salat"}},
		{BookId: "b2", GenreIds: []string{"salat"}},
	})

	counts, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, counts["ibadat"], counts["salat"])
	assert.GreaterOrEqual(t, counts["fiqh"], counts["ibadat"])
}

func TestAggregator_UnknownGenreTagIgnored(t *testing.T) {
	agg, _, _ := newAggregator(taxonomyRows(), []books.BookGenres{
		{BookId: "b1", GenreIds: []string{"salat", "not-a-genre"}},
	})

	counts, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, counts["salat"])
	assert.NotContains(t, counts, "not-a-genre")
}

func TestAggregator_UnfilteredResultIsCached(t *testing.T) {
	agg, _, br := newAggregator(taxonomyRows(), []books.BookGenres{
		{BookId: "b1", GenreIds: []string{"salat"}},
	})

	first, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	second, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, br.withGenresCalls)

	// Cached results are copies; mutating one must not leak into the next.
	second["salat"] = 99
	third, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, third["salat"])
}

func TestAggregator_FilteredCallBypassesCache(t *testing.T) {
	agg, _, br := newAggregator(taxonomyRows(), []books.BookGenres{
		{BookId: "b1", GenreIds: []string{"salat"}},
		{BookId: "b2", GenreIds: []string{"muamalat"}},
	})

	unfiltered, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, unfiltered["fiqh"])

	// The filter narrows the book set; the cached unfiltered result must
	// survive untouched.
	br.rows = []books.BookGenres{{BookId: "b1", GenreIds: []string{"salat"}}}

	filtered, err := agg.Counts(context.Background(), books.Filter{AuthorId: "a1"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered["fiqh"])
	assert.Equal(t, "a1", br.lastFilter.AuthorId)
	assert.Equal(t, 2, br.withGenresCalls)

	again, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, again["fiqh"])
	assert.Equal(t, 2, br.withGenresCalls)
}

func TestAggregator_RepopulateInvalidatesCache(t *testing.T) {
	agg, _, br := newAggregator(taxonomyRows(), []books.BookGenres{
		{BookId: "b1", GenreIds: []string{"salat"}},
	})

	_, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	require.NoError(t, agg.store.Populate(context.Background()))

	_, err = agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, br.withGenresCalls)
}

func TestAggregator_InvalidateDropsCache(t *testing.T) {
	agg, _, br := newAggregator(taxonomyRows(), nil)

	_, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	agg.Invalidate()

	_, err = agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, br.withGenresCalls)
}

func TestAggregator_TransientErrorServesLastCounts(t *testing.T) {
	agg, _, br := newAggregator(taxonomyRows(), []books.BookGenres{
		{BookId: "b1", GenreIds: []string{"salat"}},
	})

	want, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	// Repopulating keys the cache to a stale generation, forcing a live
	// query; the stale counts still beat an outage.
	require.NoError(t, agg.store.Populate(context.Background()))
	br.rows = nil
	br.err = fmt.Errorf("querying books: %w", context.DeadlineExceeded)

	got, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAggregator_TransientErrorWithoutCacheYieldsZeros(t *testing.T) {
	agg, _, br := newAggregator(taxonomyRows(), nil)
	br.err = fmt.Errorf("querying books: %w", context.DeadlineExceeded)

	counts, err := agg.Counts(context.Background(), books.Filter{})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"fiqh":     0,
		"ibadat":   0,
		"muamalat": 0,
		"salat":    0,
	}, counts)
}

func TestAggregator_NonTransientErrorPropagates(t *testing.T) {
	agg, _, br := newAggregator(taxonomyRows(), nil)
	br.err = errors.New(`column "genre_id" does not exist`)

	_, err := agg.Counts(context.Background(), books.Filter{})
	assert.Error(t, err)
}
