package books

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"maktaba/internal/types"
)

var (
	subAuthors = goqu.Select(goqu.L("array_agg(author_id order by author_order)")).
			From("book_author").
			Where(goqu.C("book_id").Eq(goqu.C("id").Table("book")))
	subGenres = goqu.Select(goqu.L("array_agg(genre_id)")).
			From("book_genre").
			Where(goqu.C("book_id").Eq(goqu.C("id").Table("book")))
	subNames = goqu.Select(goqu.L("jsonb_agg(jsonb_build_object('locale', locale, 'text', text) order by ord)")).
			From("book_name").
			Where(goqu.C("book_id").Eq(goqu.C("id").Table("book")))
)

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxBook struct {
	Id              string `db:"id"`
	Slug            string `db:"slug"`
	Transliteration string `db:"transliteration"`
}

type pgxBookFull struct {
	Base        pgxBook               `db:""` // follow
	AuthorIds   []string              `db:"authors"`
	GenreIds    []string              `db:"genres"`
	NameEntries []types.LocalizedText `db:"name_entries"`
}

func (b *pgxBookFull) intoCommon() *types.Book {
	return &types.Book{
		Id:              b.Base.Id,
		Slug:            b.Base.Slug,
		Transliteration: b.Base.Transliteration,
		NameEntries:     b.NameEntries,
		Authors:         b.AuthorIds,
		Genres:          b.GenreIds,
	}
}

func (p *pgxRepo) selectFull() *goqu.SelectDataset {
	return p.g.From("book").
		Select("book.*",
			subAuthors.As("authors"),
			subGenres.As("genres"),
			subNames.As("name_entries"))
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.Book, error) {
	sql, params, err := p.selectFull().
		Where(goqu.C("id").Table("book").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxBookFull

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Book, error) {
	if len(ids) == 0 {
		return make(map[string]*types.Book), nil
	}

	sql, params, err := p.selectFull().
		Where(goqu.C("id").Table("book").In(ids)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxBookFull

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*types.Book, len(rows))
	for _, row := range rows {
		ret[row.Base.Id] = row.intoCommon()
	}

	return ret, nil
}

// applyFilter narrows a book query per Filter. Year and region predicates
// go through the authoring relation: a book matches when at least one of
// its authors does.
func applyFilter(qb *goqu.SelectDataset, f Filter) *goqu.SelectDataset {
	if f.AuthorId != "" {
		qb = qb.Where(goqu.C("id").Table("book").In(
			goqu.Select("book_id").
				From("book_author").
				Where(goqu.C("author_id").Eq(f.AuthorId)),
		))
	}

	if len(f.BookIds) > 0 {
		qb = qb.Where(goqu.C("id").Table("book").In(f.BookIds))
	}

	if f.YearMin > 0 || f.YearMax > 0 {
		sub := goqu.Select("book_id").
			From("book_author").
			Join(goqu.T("author"), goqu.On(
				goqu.C("id").Table("author").Eq(goqu.C("author_id")),
			))
		if f.YearMin > 0 {
			sub = sub.Where(goqu.C("year").Gte(f.YearMin))
		}
		if f.YearMax > 0 {
			sub = sub.Where(goqu.C("year").Lte(f.YearMax))
		}

		qb = qb.Where(goqu.C("id").Table("book").In(sub))
	}

	if f.RegionId != "" {
		qb = qb.Where(goqu.C("id").Table("book").In(
			goqu.Select("book_id").
				From("book_author").
				Where(goqu.C("author_id").In(
					goqu.Select("author_id").
						From("author_location").
						Where(goqu.C("region_id").Eq(f.RegionId)),
				)),
		))
	}

	return qb
}

func (p *pgxRepo) WithGenres(ctx context.Context, f Filter) ([]BookGenres, error) {
	qb := p.g.From("book").
		Select(goqu.C("id").Table("book"),
			subGenres.As("genres"))

	sql, params, err := applyFilter(qb, f).ToSQL()
	if err != nil {
		return nil, err
	}

	type row struct {
		Id       string   `db:"id"`
		GenreIds []string `db:"genres"`
	}

	var rows []row

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]BookGenres, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, BookGenres{BookId: r.Id, GenreIds: r.GenreIds})
	}

	return ret, nil
}

func (p *pgxRepo) Search(ctx context.Context, query string, f Filter, genreIds []string,
	limit, offset int) ([]*types.Book, error) {

	qb := applyFilter(p.selectFull(), f).
		Limit(uint(limit))

	if offset != 0 {
		qb = qb.Offset(uint(offset))
	}

	query = strings.ReplaceAll(strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(query),
		"\\", "\\\\"),
		"_", "\\_"),
		"%", "\\%")
	if query != "" {
		qb = qb.Where(goqu.C("transliteration").ILike("%" + query + "%"))
	}

	if len(genreIds) > 0 {
		qb = qb.Where(goqu.C("id").Table("book").In(
			goqu.Select("book_id").
				From("book_genre").
				Where(goqu.C("genre_id").In(genreIds)),
		))
	}

	sql, params, err := qb.
		Order(goqu.C("transliteration").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxBookFull

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Book, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Save(ctx context.Context, books ...*types.Book) error {
	if len(books) == 0 {
		return nil
	}

	rows := make([]any, 0, len(books))
	for _, book := range books {
		rows = append(rows, pgxBook{
			Id:              book.Id,
			Slug:            book.Slug,
			Transliteration: book.Transliteration,
		})
	}

	sql, params, err := p.g.Insert("book").
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", map[string]any{
			"slug":            goqu.L("excluded.slug"),
			"transliteration": goqu.L("excluded.transliteration"),
		})).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	for _, book := range books {
		if err := p.replaceNames(ctx, book.Id, book.NameEntries); err != nil {
			return err
		}
	}

	return nil
}

func (p *pgxRepo) replaceNames(ctx context.Context, bookId string, entries []types.LocalizedText) error {
	sql, params, err := p.g.Delete("book_name").
		Where(goqu.C("book_id").Eq(bookId)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	type row struct {
		BookId string `db:"book_id"`
		Locale string `db:"locale"`
		Text   string `db:"text"`
		Ord    uint16 `db:"ord"`
	}

	rows := make([]any, 0, len(entries))
	for ix, e := range entries {
		rows = append(rows, row{
			BookId: bookId,
			Locale: e.Locale,
			Text:   e.Text,
			Ord:    uint16(ix + 1),
		})
	}

	sql, params, err = p.g.Insert("book_name").
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) LinkBookAndAuthors(ctx context.Context, bookId string, authorIds ...string) error {
	sql, params, err := p.g.Delete("book_author").
		Where(goqu.C("book_id").Eq(bookId)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	if len(authorIds) == 0 {
		return nil
	}

	type row struct {
		BookId      string `db:"book_id"`
		AuthorId    string `db:"author_id"`
		AuthorOrder uint16 `db:"author_order"`
	}

	rows := make([]any, 0, len(authorIds))

	for ix, authorId := range authorIds {
		rows = append(rows, row{
			BookId:      bookId,
			AuthorId:    authorId,
			AuthorOrder: uint16(ix + 1),
		})
	}

	sql, params, err = p.g.Insert("book_author").
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) LinkBookAndGenres(ctx context.Context, bookId string, genreIds ...string) error {
	sql, params, err := p.g.Delete("book_genre").
		Where(goqu.C("book_id").Eq(bookId)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	if len(genreIds) == 0 {
		return nil
	}

	type row struct {
		BookId  string `db:"book_id"`
		GenreId string `db:"genre_id"`
	}

	rows := make([]any, 0, len(genreIds))

	for _, genreId := range genreIds {
		rows = append(rows, row{
			BookId:  bookId,
			GenreId: genreId,
		})
	}

	sql, params, err = p.g.Insert("book_genre").
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
