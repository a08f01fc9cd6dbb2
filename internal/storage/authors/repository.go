package authors

import (
	"context"

	"maktaba/internal/types"
)

type Repository interface {
	GetById(ctx context.Context, id string) (*types.Author, error)
	// GetByIds shall return map with NON-NULLS!
	GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error)

	Search(ctx context.Context, query string, regionId string, limit int) ([]*types.Author, error)

	Save(ctx context.Context, authors ...*types.Author) error
}
