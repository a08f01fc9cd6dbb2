package taxonomy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"maktaba/internal/storage/books"
	"maktaba/internal/types"
)

// Aggregator computes per-genre book counts aggregated bottom-up: a
// genre's count covers the distinct books tagged with it or with any of
// its descendants. The unfiltered result is cached per store generation;
// filtered calls always recompute and never touch the cache.
type Aggregator struct {
	store *Store
	books books.Repository
	l     *slog.Logger

	mu        sync.Mutex
	hasCache  bool
	cachedGen uint64
	cached    map[string]int
}

func NewAggregator(store *Store, br books.Repository, l *slog.Logger) *Aggregator {
	return &Aggregator{store: store, books: br, l: l}
}

// Counts returns the aggregated book count for every genre in the current
// snapshot, scoped by the filter. A transient connectivity failure of the
// book query degrades to the last cached result, or to all-zero counts
// when none exists; any other error propagates.
func (a *Aggregator) Counts(ctx context.Context, f books.Filter) (map[string]int, error) {
	all, err := a.store.All(ctx)
	if err != nil {
		return nil, err
	}
	gen := a.store.Generation()

	if f.IsZero() {
		a.mu.Lock()
		if a.hasCache && a.cachedGen == gen {
			ret := copyCounts(a.cached)
			a.mu.Unlock()
			return ret, nil
		}
		a.mu.Unlock()
	}

	rows, err := a.books.WithGenres(ctx, f)
	if err != nil {
		if !isTransient(err) {
			return nil, err
		}

		return a.degraded(ctx, all, err), nil
	}

	h, err := a.store.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}

	counts := aggregate(all, h, rows)

	if f.IsZero() {
		a.mu.Lock()
		a.cached = copyCounts(counts)
		a.cachedGen = gen
		a.hasCache = true
		a.mu.Unlock()
	}

	return counts, nil
}

// degraded serves the last known counts through a backing-store outage,
// regardless of which generation they were computed from; with no prior
// result every known genre reports zero.
func (a *Aggregator) degraded(ctx context.Context, all []*types.AdvancedGenre, cause error) map[string]int {
	a.l.WarnContext(ctx, "Book query failed, serving degraded genre counts: "+cause.Error())

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.hasCache {
		return copyCounts(a.cached)
	}

	zeros := make(map[string]int, len(all))
	for _, g := range all {
		zeros[g.Id] = 0
	}

	return zeros
}

// Invalidate drops the cached unfiltered result. Repopulating the store
// already invalidates it implicitly via the generation key; this is for
// explicit cache resets.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	a.hasCache = false
	a.cached = nil
	a.mu.Unlock()
}

// aggregate folds direct book sets bottom-up. The hierarchy's post-order
// guarantees every child's set is final before it is merged into the
// parent, and visits each genre exactly once.
func aggregate(all []*types.AdvancedGenre, h *Hierarchy, rows []books.BookGenres) map[string]int {
	known := make(map[string]struct{}, len(all))
	for _, g := range all {
		known[g.Id] = struct{}{}
	}

	direct := make(map[string]map[string]struct{}, len(all))
	for _, row := range rows {
		for _, genreId := range row.GenreIds {
			if _, ok := known[genreId]; !ok {
				continue
			}

			if direct[genreId] == nil {
				direct[genreId] = make(map[string]struct{})
			}
			direct[genreId][row.BookId] = struct{}{}
		}
	}

	agg := make(map[string]map[string]struct{}, len(all))
	counts := make(map[string]int, len(all))

	for _, id := range h.postOrder {
		set := make(map[string]struct{}, len(direct[id]))
		for bookId := range direct[id] {
			set[bookId] = struct{}{}
		}

		for _, child := range h.Children(id) {
			for bookId := range agg[child] {
				set[bookId] = struct{}{}
			}
		}

		agg[id] = set
		counts[id] = len(set)
	}

	return counts
}

func copyCounts(m map[string]int) map[string]int {
	ret := make(map[string]int, len(m))
	for k, v := range m {
		ret[k] = v
	}

	return ret
}

// isTransient recognizes connectivity-class failures: refused or dropped
// connections, timeouts, cancelled dials. Query syntax, permission and
// shape errors are not transient and must propagate.
func isTransient(err error) bool {
	if pgconn.Timeout(err) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
