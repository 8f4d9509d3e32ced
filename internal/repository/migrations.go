package repository

import "context"

// Each repository owns the schema of its tables. Migrations are idempotent
// and run at startup before any writes.

func (r *PriceRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "price-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_bars (
			symbol TEXT NOT NULL,
			bar_date DATE NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (symbol, bar_date)
		)`)
	return err
}

func (r *NewsRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "news-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS news_items (
			symbol TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			sentiment_compound DOUBLE PRECISION NOT NULL DEFAULT 0,
			sentiment_label TEXT NOT NULL DEFAULT 'neutral',
			importance_weight DOUBLE PRECISION NOT NULL DEFAULT 1,
			recency_decay DOUBLE PRECISION NOT NULL DEFAULT 1,
			behavioural_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, url)
		)`)
	return err
}

func (r *DecisionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "decision-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS fusion_decisions (
			symbol TEXT NOT NULL,
			trade_date DATE NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			price_signal TEXT NOT NULL,
			behavioural_score DOUBLE PRECISION NOT NULL,
			news_bias TEXT NOT NULL,
			final_decision TEXT NOT NULL,
			PRIMARY KEY (symbol, trade_date)
		)`)
	return err
}

func (r *BacktestRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "backtest-repo.run-migrations")
	defer span.End()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS strategy_records (
			symbol TEXT NOT NULL,
			trade_date DATE NOT NULL,
			signal INTEGER NOT NULL,
			realized_return DOUBLE PRECISION NOT NULL,
			equity DOUBLE PRECISION NOT NULL,
			market_equity DOUBLE PRECISION NOT NULL,
			position_size DOUBLE PRECISION NOT NULL,
			paper_equity DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (symbol, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_records (
			trade_date DATE PRIMARY KEY,
			portfolio_equity DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_metrics (
			metric TEXT PRIMARY KEY,
			value DOUBLE PRECISION NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
