package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"quantfuse/internal/backtest"
	"quantfuse/internal/domain"
	"quantfuse/internal/ml/features"
	"quantfuse/internal/ml/models/iforest"

	"go.opentelemetry.io/otel/trace"
)

const backtestLookbackBars = 2000

type DirectionPredictor interface {
	Predict(ctx context.Context, ds features.Dataset) ([]domain.PredictionRecord, error)
}

type BacktestStore interface {
	UpsertStrategyRecords(ctx context.Context, symbol string, records []domain.StrategyRecord) error
	UpsertPortfolioRecords(ctx context.Context, records []domain.PortfolioRecord) error
	SaveMetrics(ctx context.Context, metrics []domain.Metric, computedAt time.Time) error
}

type BacktestConfig struct {
	MinPriceRows       int
	EnableAnomalyGuard bool
	GuardTrainRows     int
	AnomalyTrees       int
	AnomalySampleSize  int
}

type BacktestResult struct {
	Curves    map[string][]domain.StrategyRecord
	Portfolio []domain.PortfolioRecord
	Metrics   []domain.Metric
}

// BacktestService runs the full walk-forward backtest: per-symbol prediction
// and strategy execution in parallel, then portfolio aggregation and the
// metrics table. Each symbol owns its working copies; results join before
// aggregation.
type BacktestService struct {
	tracer    trace.Tracer
	prices    PriceBarStore
	annotator BarAnnotator
	predictor DirectionPredictor
	store     BacktestStore
	execCfg   backtest.ExecutorConfig
	cfg       BacktestConfig
}

func NewBacktestService(
	tracer trace.Tracer,
	prices PriceBarStore,
	annotator BarAnnotator,
	predictor DirectionPredictor,
	store BacktestStore,
	execCfg backtest.ExecutorConfig,
	cfg BacktestConfig,
) *BacktestService {
	if cfg.MinPriceRows <= 0 {
		cfg.MinPriceRows = 600
	}
	if cfg.GuardTrainRows <= 0 {
		cfg.GuardTrainRows = 500
	}
	return &BacktestService{
		tracer:    tracer,
		prices:    prices,
		annotator: annotator,
		predictor: predictor,
		store:     store,
		execCfg:   execCfg,
		cfg:       cfg,
	}
}

// Run backtests every symbol and aggregates the basket. Symbols without
// enough price history are skipped with a warning; any other symbol failure
// fails the whole run.
func (s *BacktestService) Run(ctx context.Context, symbols []string) (*BacktestResult, error) {
	ctx, span := s.tracer.Start(ctx, "backtest-service.run")
	defer span.End()

	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to backtest")
	}

	curves := make(map[string][]domain.StrategyRecord, len(symbols))
	errs := make(map[string]error, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(symbol))
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := s.runSymbol(ctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[symbol] = err
				return
			}
			if records != nil {
				curves[symbol] = records
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		failed := make([]string, 0, len(errs))
		for symbol := range errs {
			failed = append(failed, symbol)
		}
		sort.Strings(failed)
		return nil, fmt.Errorf("backtest %s: %w", failed[0], errs[failed[0]])
	}
	if len(curves) == 0 {
		return nil, fmt.Errorf("no symbols with sufficient price history")
	}

	portfolio := backtest.AggregatePortfolio(curves)
	metrics := backtest.ComputeMetrics(portfolio)

	if err := s.store.UpsertPortfolioRecords(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("persist portfolio: %w", err)
	}
	if err := s.store.SaveMetrics(ctx, metrics, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("persist metrics: %w", err)
	}

	return &BacktestResult{
		Curves:    curves,
		Portfolio: portfolio,
		Metrics:   metrics,
	}, nil
}

func (s *BacktestService) runSymbol(ctx context.Context, symbol string) ([]domain.StrategyRecord, error) {
	ctx, span := s.tracer.Start(ctx, "backtest-service.run-symbol")
	defer span.End()

	bars, err := s.prices.GetBars(ctx, symbol, backtestLookbackBars)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) < s.cfg.MinPriceRows {
		log.Printf("skipping %s: %d price rows, need >= %d", symbol, len(bars), s.cfg.MinPriceRows)
		return nil, nil
	}

	annotated := s.annotator.Annotate(bars)
	ds := features.Build(annotated)

	predictions, err := s.predictor.Predict(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("walk-forward predict: %w", err)
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("no rows beyond the training window (%d annotated bars)", len(annotated))
	}

	guard, err := s.trainGuard(ds)
	if err != nil {
		return nil, err
	}
	executor, err := backtest.NewExecutor(s.execCfg, guard)
	if err != nil {
		return nil, err
	}

	records := executor.Run(annotated, predictions)
	if err := s.store.UpsertStrategyRecords(ctx, symbol, records); err != nil {
		return nil, fmt.Errorf("persist strategy records: %w", err)
	}
	return records, nil
}

// trainGuard fits the anomaly model on the warm-up window only, so scored
// days never contribute to their own baseline.
func (s *BacktestService) trainGuard(ds features.Dataset) (backtest.Guard, error) {
	if !s.cfg.EnableAnomalyGuard {
		return nil, nil
	}
	rows := s.cfg.GuardTrainRows
	if rows > ds.Len() {
		rows = ds.Len()
	}
	if rows == 0 {
		return nil, nil
	}
	model, err := iforest.Train(ds.X[:rows], iforest.TrainOptions{
		NumTrees:   s.cfg.AnomalyTrees,
		SampleSize: s.cfg.AnomalySampleSize,
	})
	if err != nil {
		return nil, fmt.Errorf("train anomaly guard: %w", err)
	}
	return model, nil
}
