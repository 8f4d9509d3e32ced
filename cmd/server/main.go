package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"quantfuse/internal/backtest"
	"quantfuse/internal/bot"
	"quantfuse/internal/cache"
	"quantfuse/internal/config"
	"quantfuse/internal/db"
	"quantfuse/internal/domain"
	"quantfuse/internal/fusion"
	"quantfuse/internal/handler"
	"quantfuse/internal/job"
	"quantfuse/internal/ml/models/xgboost"
	"quantfuse/internal/ml/walkforward"
	"quantfuse/internal/news"
	"quantfuse/internal/repository"
	"quantfuse/internal/service"
	signalengine "quantfuse/internal/signal"
	"quantfuse/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newPriceRepoFunc       = repository.NewPriceRepository
	newNewsRepoFunc        = repository.NewNewsRepository
	newDecisionRepoFunc    = repository.NewDecisionRepository
	newBacktestRepoFunc    = repository.NewBacktestRepository
	newDecisionCacheFunc   = cache.NewDecisionCache
	startPollerFunc        = func(p *job.DecisionPoller, ctx context.Context) { go p.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	if err := cfg.Pipeline.Validate(); err != nil {
		log.Fatalf("invalid pipeline configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	priceRepo := newPriceRepoFunc(db.Pool, tracer)
	newsRepo := newNewsRepoFunc(db.Pool, tracer)
	decisionRepo := newDecisionRepoFunc(db.Pool, tracer)
	backtestRepo := newBacktestRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		for name, migrate := range map[string]func(context.Context) error{
			"price":    priceRepo.RunMigrations,
			"news":     newsRepo.RunMigrations,
			"decision": decisionRepo.RunMigrations,
			"backtest": backtestRepo.RunMigrations,
		} {
			if err := migrate(ctx); err != nil {
				log.Fatalf("failed to run %s migrations: %v", name, err)
			}
		}
	}

	// Build the pipeline engines from config
	p := cfg.Pipeline
	scorer := news.NewScorer(p.DecayHalfLifeDays, nil)
	aggregator, err := news.NewAggregator(p.NewsBullishThreshold, p.NewsBearishThreshold, p.ImportanceEpsilon)
	if err != nil {
		log.Fatalf("failed to build news aggregator: %v", err)
	}
	annotator, err := signalengine.NewEngine(p.SMAShortWindow, p.SMALongWindow, p.RSIPeriod, p.VolatilityWindow)
	if err != nil {
		log.Fatalf("failed to build signal engine: %v", err)
	}
	merger, err := fusion.NewEngine(p.HighConfidenceThreshold, p.BreakoutThreshold)
	if err != nil {
		log.Fatalf("failed to build fusion engine: %v", err)
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

	symbols := cfg.Symbols
	if len(symbols) == 0 {
		symbols = domain.DefaultSymbols
	}

	// Create services
	decisionCache := newDecisionCacheFunc(cache.Client)
	decisionService := service.NewDecisionService(
		tracer, priceRepo, newsRepo, decisionRepo, decisionCache,
		scorer, aggregator, annotator, merger, symbols,
	)
	backtestService := service.NewBacktestService(
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

	// Start Telegram bot and the decision poller
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	alerts := startTelegramBotFunc(decisionService, backtestRepo, symbols)
	poller := job.NewDecisionPoller(tracer, decisionService, alerts, symbols, cfg.DecisionPollSecs)
	startPollerFunc(poller, ctx)

	// Create handlers and routes
	h := handler.New(tracer, decisionService, backtestRepo).
		WithBacktestRunner(backtestService, symbols)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("quantfuse"))
	r.Use(cors.Default())

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
