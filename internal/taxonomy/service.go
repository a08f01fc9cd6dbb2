package taxonomy

import (
	"context"
	"log/slog"
	"sort"

	"maktaba/internal/locale"
	"maktaba/internal/storage/books"
	"maktaba/internal/storage/genres"
	"maktaba/internal/types"
)

// Service is the public read API over the genre taxonomy: point lookups,
// filtered listings, the hierarchy tree and the total count, all with
// aggregated book counts folded in and names resolved per locale.
type Service struct {
	store *Store
	agg   *Aggregator
	repo  genres.Repository
	l     *slog.Logger
}

func NewService(store *Store, agg *Aggregator, repo genres.Repository, l *slog.Logger) *Service {
	return &Service{store: store, agg: agg, repo: repo, l: l}
}

func project(g *types.AdvancedGenre, count int, loc string) *types.GenreDto {
	return &types.GenreDto{
		Id:            g.Id,
		Slug:          g.Slug,
		Name:          locale.Primary(g.NameEntries, g.Transliteration, loc),
		SecondaryName: locale.Secondary(g.NameEntries, g.Transliteration, loc),
		NumberOfBooks: count,
	}
}

// GetById returns nil without error when no such genre exists. The count
// comes from a full aggregation pass: a single genre's count depends on
// the whole subtree under it.
func (s *Service) GetById(ctx context.Context, id, loc string) (*types.GenreDto, error) {
	g, err := s.store.ById(ctx, id)
	if err != nil || g == nil {
		return nil, err
	}

	counts, err := s.agg.Counts(ctx, books.Filter{})
	if err != nil {
		return nil, err
	}

	return project(g, counts[g.Id], loc), nil
}

// GetBySlug returns nil without error when no such genre exists.
func (s *Service) GetBySlug(ctx context.Context, slug, loc string) (*types.GenreDto, error) {
	g, err := s.store.BySlug(ctx, slug)
	if err != nil || g == nil {
		return nil, err
	}

	counts, err := s.agg.Counts(ctx, books.Filter{})
	if err != nil {
		return nil, err
	}

	return project(g, counts[g.Id], loc), nil
}

// List returns every genre with its aggregated count under the filter,
// sorted by count descending (ties keep the snapshot order). Genres whose
// filtered count is zero are dropped, but only when a filter was actually
// supplied: the unfiltered listing includes zero-count genres.
func (s *Service) List(ctx context.Context, loc string, f books.Filter) ([]*types.GenreDto, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.agg.Counts(ctx, f)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.GenreDto, 0, len(all))
	for _, g := range all {
		count := counts[g.Id]
		if count == 0 && !f.IsZero() {
			continue
		}

		ret = append(ret, project(g, count, loc))
	}

	sort.SliceStable(ret, func(i, j int) bool {
		return ret[i].NumberOfBooks > ret[j].NumberOfBooks
	})

	return ret, nil
}

// Tree assembles the hierarchy forest with unfiltered aggregated counts.
// A genre whose parent is missing from the snapshot becomes a root.
func (s *Service) Tree(ctx context.Context, loc string) ([]*types.GenreTreeNode, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.agg.Counts(ctx, books.Filter{})
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*types.GenreTreeNode, len(all))
	for _, g := range all {
		nodes[g.Id] = &types.GenreTreeNode{
			Id:            g.Id,
			Slug:          g.Slug,
			Name:          locale.Primary(g.NameEntries, g.Transliteration, loc),
			SecondaryName: locale.Secondary(g.NameEntries, g.Transliteration, loc),
			NumberOfBooks: counts[g.Id],
		}
	}

	roots := make([]*types.GenreTreeNode, 0, len(all))
	for _, g := range all {
		if parent, ok := nodes[g.ParentId]; ok && g.ParentId != g.Id {
			parent.Children = append(parent.Children, nodes[g.Id])
		} else {
			roots = append(roots, nodes[g.Id])
		}
	}

	return roots, nil
}

// Count avoids aggregation entirely: the snapshot size when populated,
// else a direct count query.
func (s *Service) Count(ctx context.Context) (int, error) {
	if s.store.Populated() {
		return s.store.Len(), nil
	}

	return s.repo.CountAdvanced(ctx)
}

// IdsWithDescendants expands each id to itself plus everything under it.
// Callers filtering books by genre use this for "this genre or anything
// below it" semantics.
func (s *Service) IdsWithDescendants(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	h, err := s.store.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}

	return h.IDsWithDescendants(ids), nil
}

// ResolveRefs maps genre references, each an id or a slug, to genre ids.
// Unknown references are dropped.
func (s *Service) ResolveRefs(ctx context.Context, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))

	for _, ref := range refs {
		g, err := s.store.ById(ctx, ref)
		if err != nil {
			return nil, err
		}

		if g == nil {
			g, err = s.store.BySlug(ctx, ref)
			if err != nil {
				return nil, err
			}
		}

		if g != nil {
			ids = append(ids, g.Id)
		}
	}

	return ids, nil
}

// ResetCache forces the next read to repopulate the snapshot and drops the
// memoized aggregation.
func (s *Service) ResetCache() {
	s.store.Invalidate()
	s.agg.Invalidate()
}
