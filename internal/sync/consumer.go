package sync

import (
	"context"
	"fmt"
	"log/slog"

	"maktaba/internal/storage/authors"
	"maktaba/internal/storage/books"
	"maktaba/internal/storage/empires"
	"maktaba/internal/storage/genres"
	"maktaba/internal/storage/regions"
	"maktaba/internal/types"
)

// LoggerConsumer only reports what it receives; useful for dry runs.
type LoggerConsumer struct {
	Logger *slog.Logger
}

func (c *LoggerConsumer) ConsumeRegions(_ context.Context, regions []*types.Region) error {
	for _, r := range regions {
		c.Logger.Info("Consumed region " + r.Id + " (" + r.Slug + ")")
	}

	return nil
}

func (c *LoggerConsumer) ConsumeEmpires(_ context.Context, empires []*types.Empire) error {
	for _, e := range empires {
		c.Logger.Info("Consumed empire " + e.Id + " (" + e.Slug + ")")
	}

	return nil
}

func (c *LoggerConsumer) ConsumeGenres(_ context.Context, advanced []*types.AdvancedGenre, simple []*types.Genre) error {
	for _, g := range advanced {
		suffix := ""
		if g.ParentId != "" {
			suffix = " under " + g.ParentId
		}

		c.Logger.Info("Consumed advanced genre " + g.Id + " (" + g.Slug + ")" + suffix)
	}

	for _, g := range simple {
		c.Logger.Info("Consumed simple genre " + g.Id + " (" + g.Slug + ")")
	}

	return nil
}

func (c *LoggerConsumer) ConsumeAuthors(_ context.Context, authors []*types.Author) error {
	for _, a := range authors {
		c.Logger.Info("Consumed author " + a.Id + " (" + a.Slug + ")")
	}

	return nil
}

func (c *LoggerConsumer) ConsumeBooks(_ context.Context, bks []*types.Book, fetchAuthor func(id string) (*types.Author, error)) error {
	for _, b := range bks {
		for _, authorId := range b.Authors {
			// Just make sure there are no errors
			if _, err := fetchAuthor(authorId); err != nil {
				return fmt.Errorf("checking source fetchAuthor: %w", err)
			}
		}

		c.Logger.Info("Consumed book " + b.Id + " (" + b.Slug + ")")
	}

	return nil
}

// StoringConsumer upserts received rows through the repositories,
// resolving authors a book references but the run has not delivered yet.
type StoringConsumer struct {
	Logger  *slog.Logger
	Books   books.Repository
	Authors authors.Repository
	Genres  genres.Repository
	Regions regions.Repository
	Empires empires.Repository

	knownGenres map[string]struct{}
}

func (s *StoringConsumer) ConsumeRegions(ctx context.Context, regions []*types.Region) error {
	return s.Regions.Save(ctx, regions...)
}

func (s *StoringConsumer) ConsumeEmpires(ctx context.Context, empires []*types.Empire) error {
	return s.Empires.Save(ctx, empires...)
}

func (s *StoringConsumer) ConsumeGenres(ctx context.Context, advanced []*types.AdvancedGenre, simple []*types.Genre) error {
	if err := s.Genres.SaveAdvanced(ctx, advanced...); err != nil {
		return fmt.Errorf("saving advanced genres: %w", err)
	}

	if s.knownGenres == nil {
		s.knownGenres = make(map[string]struct{}, len(advanced))
	}
	for _, g := range advanced {
		s.knownGenres[g.Id] = struct{}{}
	}

	if err := s.Genres.SaveSimple(ctx, simple...); err != nil {
		return fmt.Errorf("saving simple genres: %w", err)
	}

	return nil
}

func (s *StoringConsumer) ConsumeAuthors(ctx context.Context, authors []*types.Author) error {
	return s.Authors.Save(ctx, authors...)
}

func (s *StoringConsumer) ConsumeBooks(ctx context.Context, bks []*types.Book, fetchAuthor func(id string) (*types.Author, error)) error {
	uniqAuthorIds := make(map[string]struct{})
	for _, b := range bks {
		for _, authorId := range b.Authors {
			uniqAuthorIds[authorId] = struct{}{}
		}
	}

	var authorIds []string
	for authorId := range uniqAuthorIds {
		authorIds = append(authorIds, authorId)
	}

	as, err := s.Authors.GetByIds(ctx, authorIds...)
	if err != nil {
		return fmt.Errorf("checking existing authors: %w", err)
	}

	for _, authorId := range authorIds {
		if _, ok := as[authorId]; ok {
			continue
		}

		a, err := fetchAuthor(authorId)
		if err != nil {
			return fmt.Errorf("fetching new author: %w", err)
		}

		if err := s.Authors.Save(ctx, a); err != nil {
			return fmt.Errorf("saving new author: %w", err)
		}
	}

	err = s.Books.Save(ctx, bks...)
	if err != nil {
		return fmt.Errorf("saving books: %w", err)
	}

	if s.knownGenres == nil {
		if err := s.loadKnownGenres(ctx); err != nil {
			return err
		}
	}

	for _, book := range bks {
		err := s.Books.LinkBookAndAuthors(ctx, book.Id, book.Authors...)
		if err != nil {
			return fmt.Errorf("linking book and authors: %w", err)
		}

		var bookGenres []string
		for _, genreId := range book.Genres {
			if _, ok := s.knownGenres[genreId]; !ok {
				s.Logger.Warn("Skipping unknown genre "+genreId, slog.String("book", book.Id))
				continue
			}

			bookGenres = append(bookGenres, genreId)
		}

		err = s.Books.LinkBookAndGenres(ctx, book.Id, bookGenres...)
		if err != nil {
			return fmt.Errorf("linking book and genres: %w", err)
		}
	}

	return nil
}

func (s *StoringConsumer) loadKnownGenres(ctx context.Context) error {
	rows, err := s.Genres.GetAllAdvanced(ctx)
	if err != nil {
		return fmt.Errorf("loading known genres: %w", err)
	}

	s.knownGenres = make(map[string]struct{}, len(rows))
	for _, g := range rows {
		s.knownGenres[g.Id] = struct{}{}
	}

	return nil
}
