package regions

import (
	"context"

	"maktaba/internal/types"
)

type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*types.Region, error)
	GetAll(ctx context.Context) ([]*types.Region, error)

	Save(ctx context.Context, regions ...*types.Region) error
}
