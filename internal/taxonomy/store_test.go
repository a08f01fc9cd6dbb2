package taxonomy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maktaba/internal/types"
)

func TestStore_PopulatesLazilyOnce(t *testing.T) {
	repo := &fakeGenreRepo{rows: []*types.AdvancedGenre{
		genre("fiqh", ""),
		genre("ibadat", "fiqh"),
	}}
	store := NewStore(repo, "", discardLogger())

	assert.False(t, store.Populated())

	g, err := store.ById(context.Background(), "fiqh")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "fiqh", g.Slug)

	g, err = store.BySlug(context.Background(), "ibadat")
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, 1, repo.getAllCalls)
	assert.True(t, store.Populated())
	assert.Equal(t, 2, store.Len())
}

func TestStore_LookupMissReturnsNil(t *testing.T) {
	repo := &fakeGenreRepo{rows: []*types.AdvancedGenre{genre("fiqh", "")}}
	store := NewStore(repo, "", discardLogger())

	g, err := store.ById(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestStore_RepopulateBumpsGeneration(t *testing.T) {
	repo := &fakeGenreRepo{rows: []*types.AdvancedGenre{genre("fiqh", "")}}
	store := NewStore(repo, "", discardLogger())

	require.NoError(t, store.Populate(context.Background()))
	gen := store.Generation()

	repo.rows = []*types.AdvancedGenre{genre("fiqh", ""), genre("hadith", "")}
	require.NoError(t, store.Populate(context.Background()))

	assert.Greater(t, store.Generation(), gen)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, repo.getAllCalls)
}

func TestStore_InvalidateForcesRepopulate(t *testing.T) {
	repo := &fakeGenreRepo{rows: []*types.AdvancedGenre{genre("fiqh", "")}}
	store := NewStore(repo, "", discardLogger())

	_, err := store.All(context.Background())
	require.NoError(t, err)

	store.Invalidate()
	assert.False(t, store.Populated())

	_, err = store.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getAllCalls)
}

func TestStore_HierarchyMemoizedPerGeneration(t *testing.T) {
	repo := &fakeGenreRepo{rows: []*types.AdvancedGenre{
		genre("fiqh", ""),
		genre("ibadat", "fiqh"),
	}}
	store := NewStore(repo, "", discardLogger())

	h1, err := store.Hierarchy(context.Background())
	require.NoError(t, err)
	h2, err := store.Hierarchy(context.Background())
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	require.NoError(t, store.Populate(context.Background()))
	h3, err := store.Hierarchy(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, h1, h3)
}

func TestStore_SnapshotWrittenAndPreferred(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genres.json")

	repo := &fakeGenreRepo{rows: []*types.AdvancedGenre{genre("fiqh", "")}}
	store := NewStore(repo, path, discardLogger())
	require.NoError(t, store.Populate(context.Background()))
	assert.Equal(t, 1, repo.getAllCalls)

	_, err := os.Stat(path)
	require.NoError(t, err)

	// A fresh store must read the file instead of hitting the repository.
	repo2 := &fakeGenreRepo{rows: []*types.AdvancedGenre{genre("other", "")}}
	store2 := NewStore(repo2, path, discardLogger())

	g, err := store2.ById(context.Background(), "fiqh")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, 0, repo2.getAllCalls)
}

func TestStore_CorruptSnapshotFallsBackToRepo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genres.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	repo := &fakeGenreRepo{rows: []*types.AdvancedGenre{genre("fiqh", "")}}
	store := NewStore(repo, path, discardLogger())

	g, err := store.ById(context.Background(), "fiqh")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, 1, repo.getAllCalls)
}
