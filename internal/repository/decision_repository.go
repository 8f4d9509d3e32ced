package repository

import (
	"context"

	"quantfuse/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type DecisionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewDecisionRepository(pool PgxPool, tracer trace.Tracer) *DecisionRepository {
	return &DecisionRepository{pool: pool, tracer: tracer}
}

func (r *DecisionRepository) UpsertDecisions(ctx context.Context, records []domain.FusionRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "decision-repo.upsert-decisions")
	defer span.End()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO fusion_decisions (symbol, trade_date, close, price_signal,
			                               behavioural_score, news_bias, final_decision)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (symbol, trade_date) DO UPDATE SET
			     close = EXCLUDED.close,
			     price_signal = EXCLUDED.price_signal,
			     behavioural_score = EXCLUDED.behavioural_score,
			     news_bias = EXCLUDED.news_bias,
			     final_decision = EXCLUDED.final_decision`,
			rec.Symbol, rec.Date, rec.Close, string(rec.PriceSignal),
			rec.BehaviouralScore, string(rec.NewsBias), string(rec.FinalDecision),
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

func (r *DecisionRepository) ListDecisions(ctx context.Context, symbol string, limit int) ([]domain.FusionRecord, error) {
	_, span := r.tracer.Start(ctx, "decision-repo.list-decisions")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, trade_date, close, price_signal,
		        behavioural_score, news_bias, final_decision
		 FROM fusion_decisions
		 WHERE symbol = $1
		 ORDER BY trade_date DESC
		 LIMIT $2`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FusionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *DecisionRepository) GetLatestDecision(ctx context.Context, symbol string) (*domain.FusionRecord, error) {
	_, span := r.tracer.Start(ctx, "decision-repo.get-latest-decision")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, trade_date, close, price_signal,
		        behavioural_score, news_bias, final_decision
		 FROM fusion_decisions
		 WHERE symbol = $1
		 ORDER BY trade_date DESC
		 LIMIT 1`,
		symbol,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanDecision(rows)
	if err != nil {
		return nil, err
	}
	return &rec, rows.Err()
}

func scanDecision(rows pgx.Rows) (domain.FusionRecord, error) {
	var rec domain.FusionRecord
	var signal, bias, decision string
	if err := rows.Scan(
		&rec.Symbol, &rec.Date, &rec.Close, &signal,
		&rec.BehaviouralScore, &bias, &decision,
	); err != nil {
		return domain.FusionRecord{}, err
	}
	rec.Date = rec.Date.UTC()
	rec.PriceSignal = domain.PriceSignal(signal)
	rec.NewsBias = domain.NewsBias(bias)
	rec.FinalDecision = domain.Decision(decision)
	return rec, nil
}
