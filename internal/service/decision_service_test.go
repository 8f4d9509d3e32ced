package service

import (
	"context"
	"testing"
	"time"

	"quantfuse/internal/domain"
	"quantfuse/internal/fusion"
	"quantfuse/internal/news"
	"quantfuse/internal/signal"

	"go.opentelemetry.io/otel/trace"
)

func nilTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("service-test")
}

type stubPriceStore struct {
	bars []domain.PriceBar
	err  error
}

func (s *stubPriceStore) GetBars(ctx context.Context, symbol string, limit int) ([]domain.PriceBar, error) {
	return s.bars, s.err
}

type stubNewsStore struct {
	items    []domain.NewsItem
	upserted []domain.NewsItem
}

func (s *stubNewsStore) UpsertItems(ctx context.Context, items []domain.NewsItem) error {
	s.upserted = append(s.upserted, items...)
	return nil
}

func (s *stubNewsStore) ListItems(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error) {
	return s.items, nil
}

type stubDecisionStore struct {
	upserted []domain.FusionRecord
	latest   *domain.FusionRecord
}

func (s *stubDecisionStore) UpsertDecisions(ctx context.Context, records []domain.FusionRecord) error {
	s.upserted = append(s.upserted, records...)
	return nil
}

func (s *stubDecisionStore) ListDecisions(ctx context.Context, symbol string, limit int) ([]domain.FusionRecord, error) {
	return s.upserted, nil
}

func (s *stubDecisionStore) GetLatestDecision(ctx context.Context, symbol string) (*domain.FusionRecord, error) {
	return s.latest, nil
}

type stubCache struct {
	records map[string]domain.FusionRecord
}

func newStubCache() *stubCache {
	return &stubCache{records: make(map[string]domain.FusionRecord)}
}

func (c *stubCache) SetLatest(ctx context.Context, rec domain.FusionRecord) error {
	c.records[rec.Symbol] = rec
	return nil
}

func (c *stubCache) GetLatest(ctx context.Context, symbol string) (*domain.FusionRecord, error) {
	rec, ok := c.records[symbol]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func newTestDecisionService(t *testing.T, prices *stubPriceStore, newsStore *stubNewsStore, decisions *stubDecisionStore, cache DecisionCache) *DecisionService {
	t.Helper()
	aggregator, err := news.NewAggregator(0.1, -0.1, 0.1)
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	annotator, err := signal.NewEngine(3, 5, 3, 3)
	if err != nil {
		t.Fatalf("signal engine: %v", err)
	}
	merger, err := fusion.NewEngine(0.25, 0.35)
	if err != nil {
		t.Fatalf("fusion engine: %v", err)
	}
	return NewDecisionService(
		nilTracer(),
		prices,
		newsStore,
		decisions,
		cache,
		news.NewScorer(3, nil),
		aggregator,
		annotator,
		merger,
		[]string{"TCS", "INFY"},
	)
}

func risingBars(n int) []domain.PriceBar {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		bars[i] = domain.PriceBar{
			Symbol: "TCS",
			Date:   base.AddDate(0, 0, i),
			Close:  100 + float64(i),
		}
	}
	return bars
}

func TestIngestNewsScoresAndPersists(t *testing.T) {
	newsStore := &stubNewsStore{}
	svc := newTestDecisionService(t, &stubPriceStore{}, newsStore, &stubDecisionStore{}, nil)

	count, err := svc.IngestNews(context.Background(), "tcs", []news.RawArticle{
		{Title: "Record earnings and excellent profit", PublishedAt: time.Now().UTC().Format(time.RFC3339)},
		{Title: "Analyst view on the quarter", PublishedAt: time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 || len(newsStore.upserted) != 2 {
		t.Fatalf("expected 2 stored items, got count=%d stored=%d", count, len(newsStore.upserted))
	}
	for _, item := range newsStore.upserted {
		if item.Symbol != "TCS" {
			t.Fatalf("expected normalized symbol TCS, got %q", item.Symbol)
		}
		if item.BehaviouralScore == 0 && item.SentimentCompound != 0 {
			t.Fatalf("behavioural score not computed: %+v", item)
		}
	}
}

func TestIngestNewsRejectsUnknownSymbol(t *testing.T) {
	svc := newTestDecisionService(t, &stubPriceStore{}, &stubNewsStore{}, &stubDecisionStore{}, nil)
	if _, err := svc.IngestNews(context.Background(), "AAPL", nil); err == nil {
		t.Fatal("expected error for unsupported symbol")
	}
}

func TestRefreshSymbolPersistsAndCaches(t *testing.T) {
	newsDate := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	newsStore := &stubNewsStore{
		items: []domain.NewsItem{
			{Symbol: "TCS", PublishedAt: newsDate, BehaviouralScore: 0.4},
		},
	}
	decisions := &stubDecisionStore{}
	cache := newStubCache()
	svc := newTestDecisionService(t, &stubPriceStore{bars: risingBars(60)}, newsStore, decisions, cache)

	latest, err := svc.RefreshSymbol(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest decision")
	}
	if len(decisions.upserted) == 0 {
		t.Fatal("expected decisions to be persisted")
	}
	cached, _ := cache.GetLatest(context.Background(), "TCS")
	if cached == nil || !cached.Date.Equal(latest.Date) {
		t.Fatalf("expected latest decision cached, got %+v", cached)
	}
	// rising closes with bullish news carried forward: high-confidence buy
	if latest.FinalDecision != domain.DecisionBuyHighConf {
		t.Fatalf("expected BUY_HIGH_CONFIDENCE, got %s", latest.FinalDecision)
	}
}

func TestRefreshSymbolFailsWithoutPrices(t *testing.T) {
	svc := newTestDecisionService(t, &stubPriceStore{}, &stubNewsStore{}, &stubDecisionStore{}, nil)
	if _, err := svc.RefreshSymbol(context.Background(), "TCS"); err == nil {
		t.Fatal("expected error for empty price history")
	}
}

func TestGetLatestDecisionPrefersCache(t *testing.T) {
	cache := newStubCache()
	cached := domain.FusionRecord{Symbol: "TCS", FinalDecision: domain.DecisionHold}
	cache.records["TCS"] = cached

	stale := domain.FusionRecord{Symbol: "TCS", FinalDecision: domain.DecisionSell}
	svc := newTestDecisionService(t, &stubPriceStore{}, &stubNewsStore{}, &stubDecisionStore{latest: &stale}, cache)

	got, err := svc.GetLatestDecision(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FinalDecision != domain.DecisionHold {
		t.Fatalf("expected cached decision, got %s", got.FinalDecision)
	}
}

func TestGetLatestDecisionFallsBackToStore(t *testing.T) {
	cache := newStubCache()
	latest := domain.FusionRecord{Symbol: "TCS", FinalDecision: domain.DecisionBuy}
	svc := newTestDecisionService(t, &stubPriceStore{}, &stubNewsStore{}, &stubDecisionStore{latest: &latest}, cache)

	got, err := svc.GetLatestDecision(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.FinalDecision != domain.DecisionBuy {
		t.Fatalf("expected store decision, got %+v", got)
	}
	if _, ok := cache.records["TCS"]; !ok {
		t.Fatal("expected cache repopulated after store hit")
	}
}
