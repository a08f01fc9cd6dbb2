package syncfails

import (
	"context"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxRecord struct {
	Id        uint64     `db:"id"`
	StartTime *time.Time `db:"start_time"`
	Entity    string     `db:"entity"`
	Payload   string     `db:"payload"`
	Error     string     `db:"error"`
}

func (p *pgxRepo) Save(ctx context.Context, startTime *time.Time, entity, payload string, cause error) error {
	sql, params, err := p.g.Insert("sync_fail").
		Rows(goqu.Record{
			"start_time": startTime,
			"entity":     entity,
			"payload":    payload,
			"error":      cause.Error(),
		}).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) GetFails(ctx context.Context, notAfter *time.Time) ([]*Record, error) {
	sql, params, err := p.g.From("sync_fail").
		Where(goqu.C("start_time").Lte(notAfter)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxRecord

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]*Record, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, &Record{
			Id:        row.Id,
			StartTime: row.StartTime,
			Entity:    row.Entity,
			Payload:   row.Payload,
			Error:     row.Error,
		})
	}

	return ret, nil
}

func (p *pgxRepo) DeleteById(ctx context.Context, id uint64) error {
	sql, params, err := p.g.Delete("sync_fail").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}
