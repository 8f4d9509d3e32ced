package walkforward

import (
	"context"
	"fmt"
	"sync"

	"quantfuse/internal/domain"
	"quantfuse/internal/ml/features"
	"quantfuse/internal/ml/models/xgboost"

	"go.opentelemetry.io/otel/trace"
)

// Predictor is the trained-model surface the trainer consumes.
type Predictor interface {
	PredictClass(sample []float64) int
}

// Fitter trains a fresh model on one window. Implementations must be safe for
// concurrent use; the default fitter trains an independent boosted ensemble
// per call.
type Fitter interface {
	Fit(samples [][]float64, labels []int) (Predictor, error)
}

type Config struct {
	Window  int
	Workers int
	Boost   xgboost.TrainOptions
}

// Service produces strictly causal next-day direction predictions: the
// prediction for row i comes from a model trained only on rows [i-W, i).
// Windows are independent, so they are fitted in parallel; output order is
// always chronological regardless of worker scheduling.
type Service struct {
	tracer trace.Tracer
	fitter Fitter
	cfg    Config
}

func NewService(tracer trace.Tracer, fitter Fitter, cfg Config) *Service {
	if cfg.Window <= 0 {
		cfg.Window = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if fitter == nil {
		fitter = boostFitter{opts: cfg.Boost}
	}
	return &Service{tracer: tracer, fitter: fitter, cfg: cfg}
}

// Predict returns one record per row from index W onward. Datasets shorter
// than W+1 rows yield no predictions and no error.
func (s *Service) Predict(ctx context.Context, ds features.Dataset) ([]domain.PredictionRecord, error) {
	_, span := s.tracer.Start(ctx, "walkforward.predict")
	defer span.End()

	n := ds.Len()
	w := s.cfg.Window
	if n <= w {
		return nil, nil
	}

	type slot struct {
		direction int
		err       error
	}
	slots := make([]slot, n-w)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for k := 0; k < s.cfg.Workers; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				direction, err := s.predictRow(ds, i)
				slots[i-w] = slot{direction: direction, err: err}
			}
		}()
	}

feed:
	for i := w; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.PredictionRecord, 0, n-w)
	for idx := range slots {
		if slots[idx].err != nil {
			return nil, fmt.Errorf("fit window ending %s: %w", ds.Dates[w+idx].Format("2006-01-02"), slots[idx].err)
		}
		out = append(out, domain.PredictionRecord{
			Date:      ds.Dates[w+idx],
			Direction: slots[idx].direction,
		})
	}
	return out, nil
}

func (s *Service) predictRow(ds features.Dataset, i int) (int, error) {
	labels := ds.Y[i-s.cfg.Window : i]
	if class, uniform := uniformClass(labels); uniform {
		// a single-class window cannot train a classifier; predict its
		// only observed class
		return class, nil
	}
	model, err := s.fitter.Fit(ds.X[i-s.cfg.Window:i], labels)
	if err != nil {
		return 0, err
	}
	return model.PredictClass(ds.X[i]), nil
}

func uniformClass(labels []int) (int, bool) {
	if len(labels) == 0 {
		return 0, true
	}
	first := labels[0]
	for _, l := range labels[1:] {
		if l != first {
			return 0, false
		}
	}
	return first, true
}

type boostFitter struct {
	opts xgboost.TrainOptions
}

func (f boostFitter) Fit(samples [][]float64, labels []int) (Predictor, error) {
	return xgboost.Train(samples, labels, f.opts)
}
