package regions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"maktaba/internal/types"
)

var subNames = goqu.Select(goqu.L("jsonb_agg(jsonb_build_object('locale', locale, 'text', text) order by ord)")).
	From("region_name").
	Where(goqu.C("region_id").Eq(goqu.C("id").Table("region")))

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxRegion struct {
	Id              string                `db:"id"`
	Slug            string                `db:"slug"`
	Transliteration string                `db:"transliteration"`
	NameEntries     []types.LocalizedText `db:"name_entries"`
}

func (r *pgxRegion) intoCommon() *types.Region {
	return &types.Region{
		Id:              r.Id,
		Slug:            r.Slug,
		Transliteration: r.Transliteration,
		NameEntries:     r.NameEntries,
	}
}

func (p *pgxRepo) GetBySlug(ctx context.Context, slug string) (*types.Region, error) {
	sql, params, err := p.g.From("region").
		Select("region.*", subNames.As("name_entries")).
		Where(goqu.C("slug").Eq(slug)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxRegion

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) GetAll(ctx context.Context) ([]*types.Region, error) {
	sql, params, err := p.g.From("region").
		Select("region.*", subNames.As("name_entries")).
		Order(goqu.C("slug").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxRegion

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Region, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Save(ctx context.Context, regions ...*types.Region) error {
	if len(regions) == 0 {
		return nil
	}

	rows := make([]any, 0, len(regions))
	for _, region := range regions {
		rows = append(rows, goqu.Record{
			"id":              region.Id,
			"slug":            region.Slug,
			"transliteration": region.Transliteration,
		})
	}

	sql, params, err := p.g.Insert("region").
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

	for _, region := range regions {
		if err := p.replaceNames(ctx, region.Id, region.NameEntries); err != nil {
			return err
		}
	}

	return nil
}

func (p *pgxRepo) replaceNames(ctx context.Context, regionId string, entries []types.LocalizedText) error {
	sql, params, err := p.g.Delete("region_name").
		Where(goqu.C("region_id").Eq(regionId)).
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
		rows = append(rows, goqu.Record{
			"region_id": regionId,
			"locale":    e.Locale,
			"text":      e.Text,
			"ord":       uint16(ix + 1),
		})
	}

	sql, params, err = p.g.Insert("region_name").
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
