package repository

import (
	"context"
	"time"

	"quantfuse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

func (r *PriceRepository) UpsertBars(ctx context.Context, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-repo.upsert-bars")
	defer span.End()

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(
			`INSERT INTO price_bars (symbol, bar_date, close)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (symbol, bar_date) DO UPDATE SET
			     close = EXCLUDED.close`,
			b.Symbol, b.Date, b.Close,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range bars {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *PriceRepository) GetBars(ctx context.Context, symbol string, limit int) ([]domain.PriceBar, error) {
	_, span := r.tracer.Start(ctx, "price-repo.get-bars")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, bar_date, close
		 FROM (SELECT symbol, bar_date, close
		       FROM price_bars
		       WHERE symbol = $1
		       ORDER BY bar_date DESC
		       LIMIT $2) latest
		 ORDER BY bar_date ASC`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBars(rows)
}

func (r *PriceRepository) GetBarsInRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	_, span := r.tracer.Start(ctx, "price-repo.get-bars-in-range")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, bar_date, close
		 FROM price_bars
		 WHERE symbol = $1 AND bar_date >= $2 AND bar_date <= $3
		 ORDER BY bar_date ASC`,
		symbol, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBars(rows)
}

func scanBars(rows pgx.Rows) ([]domain.PriceBar, error) {
	var bars []domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Close); err != nil {
			return nil, err
		}
		b.Date = b.Date.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
