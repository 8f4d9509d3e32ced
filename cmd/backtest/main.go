package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"quantfuse/internal/backtest"
	"quantfuse/internal/config"
	"quantfuse/internal/domain"
	"quantfuse/internal/fusion"
	"quantfuse/internal/ml/models/xgboost"
	"quantfuse/internal/ml/walkforward"
	"quantfuse/internal/news"
	"quantfuse/internal/repository"
	"quantfuse/internal/service"
	signalengine "quantfuse/internal/signal"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

type options struct {
	symbols []string
}

func main() {
	loadEnvFunc()

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("parse options: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Pipeline.Validate(); err != nil {
		log.Fatalf("invalid pipeline configuration: %v", err)
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	tracer := trace.NewNoopTracerProvider().Tracer("backtest")
	priceRepo := repository.NewPriceRepository(pool, tracer)
	newsRepo := repository.NewNewsRepository(pool, tracer)
	decisionRepo := repository.NewDecisionRepository(pool, tracer)
	backtestRepo := repository.NewBacktestRepository(pool, tracer)
	for name, migrate := range map[string]func(context.Context) error{
		"price":    priceRepo.RunMigrations,
		"news":     newsRepo.RunMigrations,
		"decision": decisionRepo.RunMigrations,
		"backtest": backtestRepo.RunMigrations,
	} {
		if err := migrate(ctx); err != nil {
			log.Fatalf("run %s migrations: %v", name, err)
		}
	}

	p := cfg.Pipeline
	annotator, err := signalengine.NewEngine(p.SMAShortWindow, p.SMALongWindow, p.RSIPeriod, p.VolatilityWindow)
	if err != nil {
		log.Fatalf("build signal engine: %v", err)
	}
	aggregator, err := news.NewAggregator(p.NewsBullishThreshold, p.NewsBearishThreshold, p.ImportanceEpsilon)
	if err != nil {
		log.Fatalf("build news aggregator: %v", err)
	}
	merger, err := fusion.NewEngine(p.HighConfidenceThreshold, p.BreakoutThreshold)
	if err != nil {
		log.Fatalf("build fusion engine: %v", err)
	}
	predictor := walkforward.NewService(tracer, nil, walkforward.Config{
		Window:  p.WalkForwardWindow,
		Workers: p.WalkForwardWorkers,
		Boost: xgboost.TrainOptions{
			Rounds:       p.BoostRounds,
			MaxDepth:     p.BoostMaxDepth,
			LearningRate: p.BoostLearningRate,
			SubSample:    p.BoostSubSample,
		},
	})

	svc := service.NewBacktestService(
		tracer, priceRepo, annotator, predictor, backtestRepo,
		backtest.ExecutorConfig{
			StopLoss:         p.StopLoss,
			TakeProfit:       p.TakeProfit,
			RiskPerTrade:     p.RiskPerTrade,
			MinPositionSize:  p.MinPositionSize,
			StartingCapital:  p.StartingCapital,
			AnomalyThreshold: p.AnomalyThreshold,
			AnomalyDampMax:   p.AnomalyDampMax,
		},
		service.BacktestConfig{
			MinPriceRows:       p.MinPriceRows,
			EnableAnomalyGuard: p.EnableAnomalyGuard,
			GuardTrainRows:     p.WalkForwardWindow,
			AnomalyTrees:       p.AnomalyTrees,
			AnomalySampleSize:  p.AnomalySampleSize,
		},
	)

	decisionSvc := service.NewDecisionService(
		tracer, priceRepo, newsRepo, decisionRepo, nil,
		news.NewScorer(p.DecayHalfLifeDays, nil), aggregator, annotator, merger,
		opts.symbols,
	)
	for _, symbol := range opts.symbols {
		if _, err := decisionSvc.RefreshSymbol(ctx, symbol); err != nil {
			log.Printf("decision refresh for %s: %v", symbol, err)
		}
	}

	log.Printf("starting backtest: symbols=%s window=%d", strings.Join(opts.symbols, ","), p.WalkForwardWindow)

	result, err := svc.Run(ctx, opts.symbols)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	for symbol, curve := range result.Curves {
		if len(curve) == 0 {
			continue
		}
		last := curve[len(curve)-1]
		log.Printf("%s: %d trading days, final equity %.4f", symbol, len(curve), last.Equity)
	}
	log.Printf("portfolio: %d trading days", len(result.Portfolio))
	for _, m := range result.Metrics {
		log.Printf("%-14s %10.4f", m.Name, m.Value)
	}
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	symbolsDefault := strings.TrimSpace(getenv("SYMBOLS"))
	if symbolsDefault == "" {
		symbolsDefault = strings.Join(domain.DefaultSymbols, ",")
	}
	symbolsRaw := fs.String("symbols", symbolsDefault, "comma-separated symbols to backtest")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	symbols, err := normalizeSymbols(*symbolsRaw)
	if err != nil {
		return options{}, err
	}

	return options{symbols: symbols}, nil
}

func normalizeSymbols(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.ToUpper(strings.TrimSpace(p))
		if s == "" {
			continue
		}
		if _, exists := seen[s]; exists {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("symbols cannot be empty")
	}
	return out, nil
}
