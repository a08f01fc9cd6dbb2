package authors

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
	subNames = goqu.Select(goqu.L("jsonb_agg(jsonb_build_object('locale', locale, 'text', text) order by ord)")).
			From("author_name").
			Where(goqu.C("author_id").Eq(goqu.C("id").Table("author")))
	subRegions = goqu.Select(goqu.L("array_agg(region_id)")).
			From("author_location").
			Where(goqu.C("author_id").Eq(goqu.C("id").Table("author")))
)

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxAuthor struct {
	Id              string `db:"id"`
	Slug            string `db:"slug"`
	Transliteration string `db:"transliteration"`
	Year            uint16 `db:"year"`
}

type pgxAuthorFull struct {
	Base        pgxAuthor             `db:""` // follow
	NameEntries []types.LocalizedText `db:"name_entries"`
	RegionIds   []string              `db:"regions"`
}

func (a *pgxAuthorFull) intoCommon() *types.Author {
	return &types.Author{
		Id:              a.Base.Id,
		Slug:            a.Base.Slug,
		Transliteration: a.Base.Transliteration,
		NameEntries:     a.NameEntries,
		Year:            a.Base.Year,
		Regions:         a.RegionIds,
	}
}

func (p *pgxRepo) selectFull() *goqu.SelectDataset {
	return p.g.From("author").
		Select("author.*",
			subNames.As("name_entries"),
			subRegions.As("regions"))
}

func (p *pgxRepo) GetById(ctx context.Context, id string) (*types.Author, error) {
	sql, params, err := p.selectFull().
		Where(goqu.C("id").Table("author").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxAuthorFull

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) GetByIds(ctx context.Context, ids ...string) (map[string]*types.Author, error) {
	if len(ids) == 0 {
		return make(map[string]*types.Author), nil
	}

	sql, params, err := p.selectFull().
		Where(goqu.C("id").Table("author").In(ids)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxAuthorFull

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make(map[string]*types.Author, len(rows))
	for _, row := range rows {
		ret[row.Base.Id] = row.intoCommon()
	}

	return ret, nil
}

func (p *pgxRepo) Search(ctx context.Context, query string, regionId string, limit int) ([]*types.Author, error) {
	qb := p.selectFull().
		Order(goqu.C("transliteration").Asc()).
		Limit(uint(limit))

	for _, word := range strings.Split(query, " ") {
		word = strings.ReplaceAll(strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(word),
			"\\", "\\\\"),
			"_", "\\_"),
			"%", "\\%")
		if word != "" {
			qb = qb.Where(goqu.C("transliteration").ILike("%" + word + "%"))
		}
	}

	if regionId != "" {
		qb = qb.Where(goqu.C("id").Table("author").In(
			goqu.Select("author_id").
				From("author_location").
				Where(goqu.C("region_id").Eq(regionId)),
		))
	}

	sql, params, err := qb.ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxAuthorFull

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Author, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Save(ctx context.Context, authors ...*types.Author) error {
	if len(authors) == 0 {
		return nil
	}

	rows := make([]any, 0, len(authors))
	for _, author := range authors {
		rows = append(rows, pgxAuthor{
			Id:              author.Id,
			Slug:            author.Slug,
			Transliteration: author.Transliteration,
			Year:            author.Year,
		})
	}

	sql, params, err := p.g.Insert("author").
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", map[string]any{
			"slug":            goqu.L("excluded.slug"),
			"transliteration": goqu.L("excluded.transliteration"),
			"year":            goqu.L("excluded.year"),
		})).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	for _, author := range authors {
		if err := p.replaceNames(ctx, author.Id, author.NameEntries); err != nil {
			return err
		}
		if err := p.replaceLocations(ctx, author.Id, author.Regions); err != nil {
			return err
		}
	}

	return nil
}

func (p *pgxRepo) replaceNames(ctx context.Context, authorId string, entries []types.LocalizedText) error {
	sql, params, err := p.g.Delete("author_name").
		Where(goqu.C("author_id").Eq(authorId)).
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
		AuthorId string `db:"author_id"`
		Locale   string `db:"locale"`
		Text     string `db:"text"`
		Ord      uint16 `db:"ord"`
	}

	rows := make([]any, 0, len(entries))
	for ix, e := range entries {
		rows = append(rows, row{
			AuthorId: authorId,
			Locale:   e.Locale,
			Text:     e.Text,
			Ord:      uint16(ix + 1),
		})
	}

	sql, params, err = p.g.Insert("author_name").
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) replaceLocations(ctx context.Context, authorId string, regionIds []string) error {
	sql, params, err := p.g.Delete("author_location").
		Where(goqu.C("author_id").Eq(authorId)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	if len(regionIds) == 0 {
		return nil
	}

	type row struct {
		AuthorId string `db:"author_id"`
		RegionId string `db:"region_id"`
	}

	rows := make([]any, 0, len(regionIds))
	for _, regionId := range regionIds {
		rows = append(rows, row{AuthorId: authorId, RegionId: regionId})
	}

	sql, params, err = p.g.Insert("author_location").
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
