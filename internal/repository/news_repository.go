package repository

import (
	"context"
	"time"

	"quantfuse/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type NewsRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewNewsRepository(pool PgxPool, tracer trace.Tracer) *NewsRepository {
	return &NewsRepository{pool: pool, tracer: tracer}
}

func (r *NewsRepository) UpsertItems(ctx context.Context, items []domain.NewsItem) error {
	if len(items) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "news-repo.upsert-items")
	defer span.End()

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(
			`INSERT INTO news_items (symbol, published_at, source, author, title, description, url,
			                         sentiment_compound, sentiment_label, importance_weight,
			                         recency_decay, behavioural_score)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (symbol, url) DO UPDATE SET
			     sentiment_compound = EXCLUDED.sentiment_compound,
			     sentiment_label = EXCLUDED.sentiment_label,
			     importance_weight = EXCLUDED.importance_weight,
			     recency_decay = EXCLUDED.recency_decay,
			     behavioural_score = EXCLUDED.behavioural_score`,
			item.Symbol, item.PublishedAt, item.Source, item.Author, item.Title,
			item.Description, item.URL, item.SentimentCompound, string(item.SentimentLabel),
			item.ImportanceWeight, item.RecencyDecay, item.BehaviouralScore,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range items {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *NewsRepository) ListItems(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error) {
	_, span := r.tracer.Start(ctx, "news-repo.list-items")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, published_at, source, author, title, description, url,
		        sentiment_compound, sentiment_label, importance_weight,
		        recency_decay, behavioural_score
		 FROM news_items
		 WHERE symbol = $1 AND published_at >= $2 AND published_at <= $3
		 ORDER BY published_at ASC`,
		symbol, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.NewsItem
	for rows.Next() {
		var item domain.NewsItem
		var label string
		if err := rows.Scan(
			&item.Symbol, &item.PublishedAt, &item.Source, &item.Author, &item.Title,
			&item.Description, &item.URL, &item.SentimentCompound, &label,
			&item.ImportanceWeight, &item.RecencyDecay, &item.BehaviouralScore,
		); err != nil {
			return nil, err
		}
		item.SentimentLabel = domain.SentimentLabel(label)
		item.PublishedAt = item.PublishedAt.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}
