package genres

import (
	"context"

	"maktaba/internal/types"
)

type Repository interface {
	// GetAllAdvanced returns every node of the hierarchical taxonomy with
	// its name entries, in one round trip. This is the full-snapshot query.
	GetAllAdvanced(ctx context.Context) ([]*types.AdvancedGenre, error)
	CountAdvanced(ctx context.Context) (int, error)
	SaveAdvanced(ctx context.Context, rows ...*types.AdvancedGenre) error

	GetAllSimple(ctx context.Context) ([]*types.Genre, error)
	SaveSimple(ctx context.Context, rows ...*types.Genre) error
}
