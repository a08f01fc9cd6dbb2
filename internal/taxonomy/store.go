// Package taxonomy implements the advanced-genre hierarchy: an in-process
// snapshot of the genre records, the parent/child structure derived from
// them, and book counts aggregated bottom-up through that structure.
package taxonomy

import (
	"context"
	"log/slog"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"maktaba/internal/storage/genres"
	"maktaba/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is the snapshot cache of advanced-genre records, keyed by id and
// slug. It populates lazily on first lookup and can be repopulated at any
// time; each (re)population starts a new generation. When snapshotPath is
// non-empty (development mode) a populate prefers a previously written
// snapshot file over a live fetch, and writes one after fetching live.
type Store struct {
	repo         genres.Repository
	l            *slog.Logger
	snapshotPath string

	mu        sync.RWMutex
	populated bool
	gen       uint64
	all       []*types.AdvancedGenre
	byId      map[string]*types.AdvancedGenre
	bySlug    map[string]*types.AdvancedGenre

	hier    *Hierarchy
	hierGen uint64
}

func NewStore(repo genres.Repository, snapshotPath string, l *slog.Logger) *Store {
	return &Store{repo: repo, snapshotPath: snapshotPath, l: l}
}

// Populate replaces the whole snapshot. Safe to call repeatedly; the
// previous generation's records and any caches keyed to them become
// unreachable once it returns.
func (s *Store) Populate(ctx context.Context) error {
	rows, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	byId := make(map[string]*types.AdvancedGenre, len(rows))
	bySlug := make(map[string]*types.AdvancedGenre, len(rows))
	for _, g := range rows {
		byId[g.Id] = g
		bySlug[g.Slug] = g
	}

	s.mu.Lock()
	s.all = rows
	s.byId = byId
	s.bySlug = bySlug
	s.populated = true
	s.gen++
	s.mu.Unlock()

	return nil
}

func (s *Store) fetch(ctx context.Context) ([]*types.AdvancedGenre, error) {
	if s.snapshotPath != "" {
		if rows, ok := s.readSnapshot(ctx); ok {
			return rows, nil
		}
	}

	rows, err := s.repo.GetAllAdvanced(ctx)
	if err != nil {
		return nil, err
	}

	if s.snapshotPath != "" {
		s.writeSnapshot(ctx, rows)
	}

	return rows, nil
}

// readSnapshot treats a missing, unreadable or corrupt file the same way:
// as no snapshot, falling through to a live fetch.
func (s *Store) readSnapshot(ctx context.Context) ([]*types.AdvancedGenre, bool) {
	bs, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.l.WarnContext(ctx, "Failed to read genre snapshot file "+s.snapshotPath+": "+err.Error())
		}
		return nil, false
	}

	var rows []*types.AdvancedGenre
	if err := json.Unmarshal(bs, &rows); err != nil {
		s.l.WarnContext(ctx, "Ignoring corrupt genre snapshot file "+s.snapshotPath+": "+err.Error())
		return nil, false
	}

	return rows, true
}

// writeSnapshot is best effort; a failure must never fail the read path.
func (s *Store) writeSnapshot(ctx context.Context, rows []*types.AdvancedGenre) {
	bs, err := json.Marshal(rows)
	if err == nil {
		err = os.WriteFile(s.snapshotPath, bs, 0o644)
	}

	if err != nil {
		s.l.WarnContext(ctx, "Failed to write genre snapshot file "+s.snapshotPath+": "+err.Error())
	}
}

func (s *Store) ensure(ctx context.Context) error {
	s.mu.RLock()
	ok := s.populated
	s.mu.RUnlock()

	if ok {
		return nil
	}

	return s.Populate(ctx)
}

// Invalidate discards the snapshot so the next lookup repopulates.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.populated = false
	s.all = nil
	s.byId = nil
	s.bySlug = nil
	s.mu.Unlock()
}

func (s *Store) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.populated
}

// Generation identifies the current snapshot; it changes on every
// successful Populate. Cached results derived from the snapshot should be
// keyed by it.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.gen
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byId)
}

// ById returns nil without error when no such genre exists.
func (s *Store) ById(ctx context.Context, id string) (*types.AdvancedGenre, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.byId[id], nil
}

// BySlug returns nil without error when no such genre exists.
func (s *Store) BySlug(ctx context.Context, slug string) (*types.AdvancedGenre, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bySlug[slug], nil
}

// All returns the snapshot's records in their backing-store order. Callers
// must not mutate the returned slice.
func (s *Store) All(ctx context.Context) ([]*types.AdvancedGenre, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.all, nil
}

// Hierarchy returns the parent/child structure for the current snapshot,
// built at most once per generation.
func (s *Store) Hierarchy(ctx context.Context) (*Hierarchy, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hier != nil && s.hierGen == s.gen && s.populated {
		return s.hier, nil
	}

	h, err := BuildHierarchy(all)
	if err != nil {
		return nil, err
	}

	s.hier = h
	s.hierGen = s.gen

	return h, nil
}
