package empires

import (
	"context"

	"maktaba/internal/types"
)

type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*types.Empire, error)
	GetAll(ctx context.Context) ([]*types.Empire, error)

	Save(ctx context.Context, empires ...*types.Empire) error
}
