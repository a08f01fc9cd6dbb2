package genres

import (
	"context"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"maktaba/internal/types"
)

var (
	subAdvancedNames = goqu.Select(goqu.L("jsonb_agg(jsonb_build_object('locale', locale, 'text', text) order by ord)")).
				From("advanced_genre_name").
				Where(goqu.C("genre_id").Eq(goqu.C("id").Table("advanced_genre")))
	subSimpleNames = goqu.Select(goqu.L("jsonb_agg(jsonb_build_object('locale', locale, 'text', text) order by ord)")).
			From("genre_name").
			Where(goqu.C("genre_id").Eq(goqu.C("id").Table("genre")))
)

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxAdvancedGenre struct {
	Id              string                `db:"id"`
	Slug            string                `db:"slug"`
	ParentId        string                `db:"parent_id"`
	Transliteration string                `db:"transliteration"`
	NameEntries     []types.LocalizedText `db:"name_entries"`
}

type pgxGenre struct {
	Id              string                `db:"id"`
	Slug            string                `db:"slug"`
	Transliteration string                `db:"transliteration"`
	NameEntries     []types.LocalizedText `db:"name_entries"`
}

type pgxNameRow struct {
	GenreId string `db:"genre_id"`
	Locale  string `db:"locale"`
	Text    string `db:"text"`
	Ord     uint16 `db:"ord"`
}

func (p *pgxRepo) GetAllAdvanced(ctx context.Context) ([]*types.AdvancedGenre, error) {
	sql, params, err := p.g.From("advanced_genre").
		Select("id", "slug",
			goqu.L("coalesce(parent_id, '')").As("parent_id"),
			"transliteration",
			subAdvancedNames.As("name_entries")).
		Order(goqu.C("slug").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxAdvancedGenre

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.AdvancedGenre, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, &types.AdvancedGenre{
			Id:              row.Id,
			Slug:            row.Slug,
			ParentId:        row.ParentId,
			Transliteration: row.Transliteration,
			NameEntries:     row.NameEntries,
		})
	}

	return ret, nil
}

func (p *pgxRepo) CountAdvanced(ctx context.Context) (int, error) {
	sql, params, err := p.g.From("advanced_genre").
		Select(goqu.COUNT("*").As("total")).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var total int

	err = pgxscan.Get(ctx, p.pg, &total, sql, params...)
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (p *pgxRepo) SaveAdvanced(ctx context.Context, genres ...*types.AdvancedGenre) error {
	if len(genres) == 0 {
		return nil
	}

	type row struct {
		Id              string  `db:"id"`
		Slug            string  `db:"slug"`
		ParentId        *string `db:"parent_id"`
		Transliteration string  `db:"transliteration"`
	}

	rows := make([]any, 0, len(genres))
	for _, g := range genres {
		var parent *string
		if g.ParentId != "" {
			pid := g.ParentId
			parent = &pid
		}

		rows = append(rows, row{
			Id:              g.Id,
			Slug:            g.Slug,
			ParentId:        parent,
			Transliteration: g.Transliteration,
		})
	}

	sql, params, err := p.g.Insert("advanced_genre").
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", map[string]any{
			"slug":            goqu.L("excluded.slug"),
			"parent_id":       goqu.L("excluded.parent_id"),
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

	for _, g := range genres {
		if err := p.replaceNames(ctx, "advanced_genre_name", g.Id, g.NameEntries); err != nil {
			return err
		}
	}

	return nil
}

func (p *pgxRepo) GetAllSimple(ctx context.Context) ([]*types.Genre, error) {
	sql, params, err := p.g.From("genre").
		Select("id", "slug", "transliteration",
			subSimpleNames.As("name_entries")).
		Order(goqu.C("slug").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxGenre

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Genre, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, &types.Genre{
			Id:              row.Id,
			Slug:            row.Slug,
			Transliteration: row.Transliteration,
			NameEntries:     row.NameEntries,
		})
	}

	return ret, nil
}

func (p *pgxRepo) SaveSimple(ctx context.Context, genres ...*types.Genre) error {
	if len(genres) == 0 {
		return nil
	}

	rows := make([]any, 0, len(genres))
	for _, g := range genres {
		rows = append(rows, pgxGenre{
			Id:              g.Id,
			Slug:            g.Slug,
			Transliteration: g.Transliteration,
		})
	}

	sql, params, err := p.g.Insert("genre").
		Cols("id", "slug", "transliteration").
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

	for _, g := range genres {
		if err := p.replaceNames(ctx, "genre_name", g.Id, g.NameEntries); err != nil {
			return err
		}
	}

	return nil
}

func (p *pgxRepo) replaceNames(ctx context.Context, table, genreId string, entries []types.LocalizedText) error {
	sql, params, err := p.g.Delete(table).
		Where(goqu.C("genre_id").Eq(genreId)).
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

	rows := make([]any, 0, len(entries))
	for ix, e := range entries {
		rows = append(rows, pgxNameRow{
			GenreId: genreId,
			Locale:  e.Locale,
			Text:    e.Text,
			Ord:     uint16(ix + 1),
		})
	}

	sql, params, err = p.g.Insert(table).
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
