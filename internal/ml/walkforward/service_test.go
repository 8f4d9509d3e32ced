package walkforward

import (
	"context"
	"errors"
	"testing"
	"time"

	"quantfuse/internal/domain"
	"quantfuse/internal/ml/features"

	"go.opentelemetry.io/otel/trace"
)

func nilTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("walkforward-test")
}

type stubPredictor struct {
	direction int
}

func (p stubPredictor) PredictClass(sample []float64) int { return p.direction }

type stubFitter struct {
	mu       chan struct{}
	fits     int
	lastSize int
	err      error
}

func newStubFitter() *stubFitter {
	return &stubFitter{mu: make(chan struct{}, 1)}
}

func (f *stubFitter) Fit(samples [][]float64, labels []int) (Predictor, error) {
	f.mu <- struct{}{}
	f.fits++
	f.lastSize = len(samples)
	<-f.mu
	if f.err != nil {
		return nil, f.err
	}
	// echo the last window label so tests can assert alignment
	return stubPredictor{direction: labels[len(labels)-1]}, nil
}

func syntheticDataset(n int) features.Dataset {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.AnnotatedBar, n)
	for i := range bars {
		close := 100.0
		if i%2 == 0 {
			close = 101.0
		}
		bars[i] = domain.AnnotatedBar{
			PriceBar: domain.PriceBar{
				Symbol: "TCS",
				Date:   base.AddDate(0, 0, i),
				Close:  close,
				Return: 0.001 * float64(i%5),
				RSI:    50,
			},
		}
	}
	return features.Build(bars)
}

func TestPredictWindowingAndOrder(t *testing.T) {
	ds := syntheticDataset(30)
	fitter := newStubFitter()
	svc := NewService(nilTracer(), fitter, Config{Window: 10, Workers: 3})

	preds, err := svc.Predict(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(preds) != 30-10 {
		t.Fatalf("expected %d predictions, got %d", 30-10, len(preds))
	}
	if fitter.lastSize != 10 {
		t.Fatalf("expected window size 10, got %d", fitter.lastSize)
	}
	for i := 1; i < len(preds); i++ {
		if !preds[i-1].Date.Before(preds[i].Date) {
			t.Fatalf("predictions out of order: %v then %v", preds[i-1].Date, preds[i].Date)
		}
	}
	if !preds[0].Date.Equal(ds.Dates[10]) {
		t.Fatalf("first prediction at %v, want %v", preds[0].Date, ds.Dates[10])
	}
}

func TestPredictShortDatasetYieldsNothing(t *testing.T) {
	ds := syntheticDataset(8)
	svc := NewService(nilTracer(), newStubFitter(), Config{Window: 10, Workers: 2})

	preds, err := svc.Predict(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds != nil {
		t.Fatalf("expected no predictions, got %d", len(preds))
	}
}

func TestPredictSingleClassWindowFallsBack(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.AnnotatedBar, 12)
	for i := range bars {
		// strictly rising closes: every label is 1
		bars[i] = domain.AnnotatedBar{
			PriceBar: domain.PriceBar{Symbol: "TCS", Date: base.AddDate(0, 0, i), Close: 100 + float64(i)},
		}
	}
	ds := features.Build(bars)

	fitter := newStubFitter()
	svc := NewService(nilTracer(), fitter, Config{Window: 5, Workers: 2})
	preds, err := svc.Predict(context.Background(), ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fitter.fits != 0 {
		t.Fatalf("expected no model fits for uniform windows, got %d", fitter.fits)
	}
	for _, p := range preds {
		if p.Direction != 1 {
			t.Fatalf("expected fallback direction 1, got %d at %v", p.Direction, p.Date)
		}
	}
}

func TestPredictPropagatesFitError(t *testing.T) {
	ds := syntheticDataset(20)
	fitter := newStubFitter()
	fitter.err = errors.New("fit exploded")
	svc := NewService(nilTracer(), fitter, Config{Window: 5, Workers: 2})

	if _, err := svc.Predict(context.Background(), ds); err == nil {
		t.Fatal("expected fit error to propagate")
	}
}

func TestPredictHonorsCancelledContext(t *testing.T) {
	ds := syntheticDataset(40)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(nilTracer(), newStubFitter(), Config{Window: 5, Workers: 2})
	if _, err := svc.Predict(ctx, ds); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUniformClass(t *testing.T) {
	if class, ok := uniformClass([]int{1, 1, 1}); !ok || class != 1 {
		t.Fatalf("expected uniform class 1, got %d %v", class, ok)
	}
	if _, ok := uniformClass([]int{1, 0, 1}); ok {
		t.Fatal("expected mixed labels to be non-uniform")
	}
}
