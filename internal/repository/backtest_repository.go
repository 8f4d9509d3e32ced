package repository

import (
	"context"
	"time"

	"quantfuse/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type BacktestRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBacktestRepository(pool PgxPool, tracer trace.Tracer) *BacktestRepository {
	return &BacktestRepository{pool: pool, tracer: tracer}
}

func (r *BacktestRepository) UpsertStrategyRecords(ctx context.Context, symbol string, records []domain.StrategyRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "backtest-repo.upsert-strategy-records")
	defer span.End()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO strategy_records (symbol, trade_date, signal, realized_return,
			                               equity, market_equity, position_size, paper_equity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (symbol, trade_date) DO UPDATE SET
			     signal = EXCLUDED.signal,
			     realized_return = EXCLUDED.realized_return,
			     equity = EXCLUDED.equity,
			     market_equity = EXCLUDED.market_equity,
			     position_size = EXCLUDED.position_size,
			     paper_equity = EXCLUDED.paper_equity`,
			symbol, rec.Date, rec.Signal, rec.RealizedReturn,
			rec.Equity, rec.MarketEquity, rec.PositionSize, rec.PaperEquity,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *BacktestRepository) GetEquityCurve(ctx context.Context, symbol string, limit int) ([]domain.StrategyRecord, error) {
	_, span := r.tracer.Start(ctx, "backtest-repo.get-equity-curve")
	defer span.End()

	if limit <= 0 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx,
		`SELECT trade_date, signal, realized_return, equity,
		        market_equity, position_size, paper_equity
		 FROM (SELECT trade_date, signal, realized_return, equity,
		              market_equity, position_size, paper_equity
		       FROM strategy_records
		       WHERE symbol = $1
		       ORDER BY trade_date DESC
		       LIMIT $2) latest
		 ORDER BY trade_date ASC`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StrategyRecord
	for rows.Next() {
		var rec domain.StrategyRecord
		if err := rows.Scan(
			&rec.Date, &rec.Signal, &rec.RealizedReturn, &rec.Equity,
			&rec.MarketEquity, &rec.PositionSize, &rec.PaperEquity,
		); err != nil {
			return nil, err
		}
		rec.Date = rec.Date.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *BacktestRepository) UpsertPortfolioRecords(ctx context.Context, records []domain.PortfolioRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "backtest-repo.upsert-portfolio-records")
	defer span.End()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO portfolio_records (trade_date, portfolio_equity)
			 VALUES ($1, $2)
			 ON CONFLICT (trade_date) DO UPDATE SET
			     portfolio_equity = EXCLUDED.portfolio_equity`,
			rec.Date, rec.PortfolioEquity,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *BacktestRepository) SaveMetrics(ctx context.Context, metrics []domain.Metric, computedAt time.Time) error {
	if len(metrics) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "backtest-repo.save-metrics")
	defer span.End()

	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(
			`INSERT INTO backtest_metrics (metric, value, computed_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (metric) DO UPDATE SET
			     value = EXCLUDED.value,
			     computed_at = EXCLUDED.computed_at`,
			m.Name, m.Value, computedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *BacktestRepository) GetMetrics(ctx context.Context) ([]domain.Metric, error) {
	_, span := r.tracer.Start(ctx, "backtest-repo.get-metrics")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT metric, value
		 FROM backtest_metrics
		 ORDER BY metric ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Metric
	for rows.Next() {
		var m domain.Metric
		if err := rows.Scan(&m.Name, &m.Value); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
