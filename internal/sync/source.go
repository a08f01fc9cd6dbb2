// Package sync pulls entity rows from the upstream content system and
// upserts them into the relational store. The upstream wire format stays
// behind the Source interface; this package only sees decoded rows.
package sync

import (
	"context"

	"maktaba/internal/types"
)

// Source produces upstream rows in dependency order: regions and empires
// first, then genres, authors, and finally books (which reference all of
// the former).
type Source interface {
	Fetch(ctx context.Context, consumer Consumer) error
}

type Consumer interface {
	ConsumeRegions(ctx context.Context, regions []*types.Region) error
	ConsumeEmpires(ctx context.Context, empires []*types.Empire) error
	ConsumeGenres(ctx context.Context, advanced []*types.AdvancedGenre, simple []*types.Genre) error
	ConsumeAuthors(ctx context.Context, authors []*types.Author) error
	// ConsumeBooks may call fetchAuthor for author ids it has not seen; the
	// source must resolve them with a point lookup.
	ConsumeBooks(ctx context.Context, books []*types.Book, fetchAuthor func(id string) (*types.Author, error)) error
}
