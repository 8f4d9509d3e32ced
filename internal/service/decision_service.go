package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"quantfuse/internal/domain"
	"quantfuse/internal/news"

	"go.opentelemetry.io/otel/trace"
)

const (
	decisionLookbackBars = 250
	newsLookbackDays     = 30
)

type PriceBarStore interface {
	GetBars(ctx context.Context, symbol string, limit int) ([]domain.PriceBar, error)
}

type NewsStore interface {
	UpsertItems(ctx context.Context, items []domain.NewsItem) error
	ListItems(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error)
}

type DecisionStore interface {
	UpsertDecisions(ctx context.Context, records []domain.FusionRecord) error
	ListDecisions(ctx context.Context, symbol string, limit int) ([]domain.FusionRecord, error)
	GetLatestDecision(ctx context.Context, symbol string) (*domain.FusionRecord, error)
}

type DecisionCache interface {
	SetLatest(ctx context.Context, rec domain.FusionRecord) error
	GetLatest(ctx context.Context, symbol string) (*domain.FusionRecord, error)
}

type NewsScorer interface {
	ScoreAll(articles []news.RawArticle) []domain.NewsItem
}

type NewsAggregator interface {
	Aggregate(items []domain.NewsItem) []domain.DailyNewsAggregate
}

type BarAnnotator interface {
	Annotate(bars []domain.PriceBar) []domain.AnnotatedBar
}

type DecisionMerger interface {
	Merge(bars []domain.AnnotatedBar, aggregates []domain.DailyNewsAggregate) []domain.FusionRecord
}

// DecisionService runs the news-fusion pipeline for the configured symbols:
// score incoming articles, aggregate them per day, annotate the price stream,
// merge the two and persist the resulting decisions.
type DecisionService struct {
	tracer     trace.Tracer
	prices     PriceBarStore
	newsStore  NewsStore
	decisions  DecisionStore
	cache      DecisionCache
	scorer     NewsScorer
	aggregator NewsAggregator
	annotator  BarAnnotator
	merger     DecisionMerger
	symbols    map[string]struct{}
}

func NewDecisionService(
	tracer trace.Tracer,
	prices PriceBarStore,
	newsStore NewsStore,
	decisions DecisionStore,
	cache DecisionCache,
	scorer NewsScorer,
	aggregator NewsAggregator,
	annotator BarAnnotator,
	merger DecisionMerger,
	symbols []string,
) *DecisionService {
	allowed := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		allowed[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	return &DecisionService{
		tracer:     tracer,
		prices:     prices,
		newsStore:  newsStore,
		decisions:  decisions,
		cache:      cache,
		scorer:     scorer,
		aggregator: aggregator,
		annotator:  annotator,
		merger:     merger,
		symbols:    allowed,
	}
}

func (s *DecisionService) Symbols() []string {
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// IngestNews scores a batch of raw articles and persists them. Returns the
// number of stored items.
func (s *DecisionService) IngestNews(ctx context.Context, symbol string, articles []news.RawArticle) (int, error) {
	ctx, span := s.tracer.Start(ctx, "decision-service.ingest-news")
	defer span.End()

	symbol, err := s.normalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	if len(articles) == 0 {
		return 0, nil
	}
	for i := range articles {
		articles[i].Symbol = symbol
	}

	items := s.scorer.ScoreAll(articles)
	if err := s.newsStore.UpsertItems(ctx, items); err != nil {
		return 0, fmt.Errorf("persist news for %s: %w", symbol, err)
	}
	return len(items), nil
}

// RefreshSymbol recomputes the fusion decision stream for one symbol from the
// stored price and news history, persists it, and returns the latest record.
func (s *DecisionService) RefreshSymbol(ctx context.Context, symbol string) (*domain.FusionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "decision-service.refresh-symbol")
	defer span.End()

	symbol, err := s.normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	bars, err := s.prices.GetBars(ctx, symbol, decisionLookbackBars)
	if err != nil {
		return nil, fmt.Errorf("get bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price history for %s", symbol)
	}

	annotated := s.annotator.Annotate(bars)
	if len(annotated) == 0 {
		return nil, fmt.Errorf("not enough price history for %s: %d bars inside warm-up", symbol, len(bars))
	}

	from := annotated[0].Date.AddDate(0, 0, -newsLookbackDays)
	to := annotated[len(annotated)-1].Date.AddDate(0, 0, 1)
	items, err := s.newsStore.ListItems(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("list news for %s: %w", symbol, err)
	}

	records := s.merger.Merge(annotated, s.aggregator.Aggregate(items))
	if err := s.decisions.UpsertDecisions(ctx, records); err != nil {
		return nil, fmt.Errorf("persist decisions for %s: %w", symbol, err)
	}

	latest := records[len(records)-1]
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, latest); err != nil {
			log.Printf("decision cache set error for %s: %v", symbol, err)
		}
	}
	return &latest, nil
}

func (s *DecisionService) ListDecisions(ctx context.Context, symbol string, limit int) ([]domain.FusionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "decision-service.list-decisions")
	defer span.End()

	symbol, err := s.normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.decisions.ListDecisions(ctx, symbol, limit)
}

// GetLatestDecision serves from the cache when possible and falls back to the
// store, repopulating the cache on a miss.
func (s *DecisionService) GetLatestDecision(ctx context.Context, symbol string) (*domain.FusionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "decision-service.get-latest-decision")
	defer span.End()

	symbol, err := s.normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetLatest(ctx, symbol)
		if err != nil {
			log.Printf("decision cache get error for %s: %v", symbol, err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	rec, err := s.decisions.GetLatestDecision(ctx, symbol)
	if err != nil || rec == nil {
		return rec, err
	}
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, *rec); err != nil {
			log.Printf("decision cache set error for %s: %v", symbol, err)
		}
	}
	return rec, nil
}

func (s *DecisionService) normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	if _, ok := s.symbols[symbol]; !ok {
		return "", fmt.Errorf("unsupported symbol: %s", symbol)
	}
	return symbol, nil
}
