package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"quantfuse/internal/bot"
	"quantfuse/internal/cache"
	"quantfuse/internal/config"
	"quantfuse/internal/job"
	"quantfuse/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewPriceRepo := newPriceRepoFunc
	origNewNewsRepo := newNewsRepoFunc
	origNewDecisionRepo := newDecisionRepoFunc
	origNewBacktestRepo := newBacktestRepoFunc
	origNewDecisionCache := newDecisionCacheFunc
	origStartPoller := startPollerFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			HTTPPort:         8080,
			DecisionPollSecs: 1,
			Pipeline:         config.DefaultPipeline(),
		}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newPriceRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.PriceRepository {
		return nil
	}
	newNewsRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.NewsRepository {
		return nil
	}
	newDecisionRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.DecisionRepository {
		return nil
	}
	newBacktestRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.BacktestRepository {
		return nil
	}
	newDecisionCacheFunc = func(*redis.Client) *cache.DecisionCache { return nil }
	startPollerFunc = func(*job.DecisionPoller, context.Context) {}
	startTelegramBotFunc = func(bot.DecisionQuerier, bot.MetricsReader, []string) *bot.AlertDispatcher {
		return nil
	}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newPriceRepoFunc = origNewPriceRepo
		newNewsRepoFunc = origNewNewsRepo
		newDecisionRepoFunc = origNewDecisionRepo
		newBacktestRepoFunc = origNewBacktestRepo
		newDecisionCacheFunc = origNewDecisionCache
		startPollerFunc = origStartPoller
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
