package empires

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
	From("empire_name").
	Where(goqu.C("empire_id").Eq(goqu.C("id").Table("empire")))

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxEmpire struct {
	Id              string                `db:"id"`
	Slug            string                `db:"slug"`
	Transliteration string                `db:"transliteration"`
	StartYear       uint16                `db:"start_year"`
	EndYear         uint16                `db:"end_year"`
	NameEntries     []types.LocalizedText `db:"name_entries"`
}

func (e *pgxEmpire) intoCommon() *types.Empire {
	return &types.Empire{
		Id:              e.Id,
		Slug:            e.Slug,
		Transliteration: e.Transliteration,
		NameEntries:     e.NameEntries,
		StartYear:       e.StartYear,
		EndYear:         e.EndYear,
	}
}

func (p *pgxRepo) GetBySlug(ctx context.Context, slug string) (*types.Empire, error) {
	sql, params, err := p.g.From("empire").
		Select("empire.*", subNames.As("name_entries")).
		Where(goqu.C("slug").Eq(slug)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxEmpire

	err = pgxscan.Get(ctx, p.pg, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return row.intoCommon(), nil
}

func (p *pgxRepo) GetAll(ctx context.Context) ([]*types.Empire, error) {
	sql, params, err := p.g.From("empire").
		Select("empire.*", subNames.As("name_entries")).
		Order(goqu.C("start_year").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxEmpire

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*types.Empire, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Save(ctx context.Context, empires ...*types.Empire) error {
	if len(empires) == 0 {
		return nil
	}

	rows := make([]any, 0, len(empires))
	for _, empire := range empires {
		rows = append(rows, goqu.Record{
			"id":              empire.Id,
			"slug":            empire.Slug,
			"transliteration": empire.Transliteration,
			"start_year":      empire.StartYear,
			"end_year":        empire.EndYear,
		})
	}

	sql, params, err := p.g.Insert("empire").
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", map[string]any{
			"slug":            goqu.L("excluded.slug"),
			"transliteration": goqu.L("excluded.transliteration"),
			"start_year":      goqu.L("excluded.start_year"),
			"end_year":        goqu.L("excluded.end_year"),
		})).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	for _, empire := range empires {
		if err := p.replaceNames(ctx, empire.Id, empire.NameEntries); err != nil {
			return err
		}
	}

	return nil
}

func (p *pgxRepo) replaceNames(ctx context.Context, empireId string, entries []types.LocalizedText) error {
	sql, params, err := p.g.Delete("empire_name").
		Where(goqu.C("empire_id").Eq(empireId)).
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
			"empire_id": empireId,
			"locale":    e.Locale,
			"text":      e.Text,
			"ord":       uint16(ix + 1),
		})
	}

	sql, params, err = p.g.Insert("empire_name").
		Rows(rows...).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
