package repository

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestRunMigrationsExecutesSchema(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")

	t.Run("price", func(t *testing.T) {
		pool := &stubPool{}
		if err := NewPriceRepository(pool, tracer).RunMigrations(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "price_bars") {
			t.Fatalf("expected price_bars schema, got %v", pool.execSQL)
		}
	})

	t.Run("news", func(t *testing.T) {
		pool := &stubPool{}
		if err := NewNewsRepository(pool, tracer).RunMigrations(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "news_items") {
			t.Fatalf("expected news_items schema, got %v", pool.execSQL)
		}
	})

	t.Run("decision", func(t *testing.T) {
		pool := &stubPool{}
		if err := NewDecisionRepository(pool, tracer).RunMigrations(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "fusion_decisions") {
			t.Fatalf("expected fusion_decisions schema, got %v", pool.execSQL)
		}
	})

	t.Run("backtest", func(t *testing.T) {
		pool := &stubPool{}
		if err := NewBacktestRepository(pool, tracer).RunMigrations(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pool.execSQL) != 3 {
			t.Fatalf("expected 3 schema statements, got %d", len(pool.execSQL))
		}
		joined := strings.Join(pool.execSQL, "\n")
		for _, table := range []string{"strategy_records", "portfolio_records", "backtest_metrics"} {
			if !strings.Contains(joined, table) {
				t.Fatalf("missing schema for %s", table)
			}
		}
	})
}
