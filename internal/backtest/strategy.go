package backtest

import (
	"fmt"
	"time"

	"quantfuse/internal/domain"
	"quantfuse/internal/ml/common"
)

// Guard scores a feature row for anomaly; scores near 1 mean the day looks
// nothing like the training history. Optional.
type Guard interface {
	PredictScore(sample []float64) float64
}

type ExecutorConfig struct {
	StopLoss         float64
	TakeProfit       float64
	RiskPerTrade     float64
	MinPositionSize  float64
	StartingCapital  float64
	AnomalyThreshold float64
	AnomalyDampMax   float64
}

// Executor turns walk-forward predictions plus the trend filter into realized
// returns, an equity curve, and a paper-trading curve with volatility-based
// position sizing. A position opened on signal[t-1] earns the clipped return
// at t; prediction and trend must both agree for a signal.
type Executor struct {
	cfg   ExecutorConfig
	guard Guard
}

func NewExecutor(cfg ExecutorConfig, guard Guard) (*Executor, error) {
	if cfg.StopLoss <= 0 || cfg.TakeProfit <= 0 {
		return nil, fmt.Errorf("stop loss and take profit must be positive, got %v/%v", cfg.StopLoss, cfg.TakeProfit)
	}
	if cfg.RiskPerTrade <= 0 {
		return nil, fmt.Errorf("risk per trade must be positive, got %v", cfg.RiskPerTrade)
	}
	if cfg.MinPositionSize <= 0 || cfg.MinPositionSize > 1 {
		return nil, fmt.Errorf("minimum position size must be in (0,1], got %v", cfg.MinPositionSize)
	}
	if cfg.StartingCapital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive, got %v", cfg.StartingCapital)
	}
	if cfg.AnomalyDampMax < 0 || cfg.AnomalyDampMax > 1 {
		return nil, fmt.Errorf("anomaly damp max must be in [0,1], got %v", cfg.AnomalyDampMax)
	}
	return &Executor{cfg: cfg, guard: guard}, nil
}

// Run walks the bars that carry a prediction, in date order. Bars without a
// prediction (the training warm-up) are skipped.
func (e *Executor) Run(bars []domain.AnnotatedBar, predictions []domain.PredictionRecord) []domain.StrategyRecord {
	directions := make(map[time.Time]int, len(predictions))
	for _, p := range predictions {
		directions[p.Date] = p.Direction
	}

	out := make([]domain.StrategyRecord, 0, len(predictions))
	equity := 1.0
	marketEquity := 1.0
	paperEquity := 1.0
	prevSignal := 0

	for _, bar := range bars {
		direction, ok := directions[bar.Date]
		if !ok {
			continue
		}

		signal := direction * trendFlag(bar)

		realized := 0.0
		if prevSignal == 1 {
			realized = e.clip(bar.Return)
		}
		equity *= 1 + realized
		marketEquity *= 1 + bar.Return

		size := e.positionSize(bar)
		paperEquity *= 1 + size*realized

		out = append(out, domain.StrategyRecord{
			Date:           bar.Date,
			Signal:         signal,
			RealizedReturn: realized,
			Equity:         equity,
			MarketEquity:   marketEquity,
			PositionSize:   size,
			PaperEquity:    paperEquity * e.cfg.StartingCapital,
		})
		prevSignal = signal
	}
	return out
}

// trendFlag gates the prediction on the prevailing trend: close above the
// short SMA.
func trendFlag(bar domain.AnnotatedBar) int {
	if bar.Close > bar.SMAShort {
		return 1
	}
	return 0
}

func (e *Executor) clip(r float64) float64 {
	if r <= -e.cfg.StopLoss {
		return -e.cfg.StopLoss
	}
	if r >= e.cfg.TakeProfit {
		return e.cfg.TakeProfit
	}
	return r
}

// positionSize scales exposure inversely with volatility, floored rather than
// allowed to blow up when volatility is zero at series boundaries.
func (e *Executor) positionSize(bar domain.AnnotatedBar) float64 {
	size := e.cfg.MinPositionSize
	if bar.Volatility > 0 {
		size = e.cfg.RiskPerTrade / (bar.Volatility * 100)
		if size > 1 {
			size = 1
		}
		if size < e.cfg.MinPositionSize {
			size = e.cfg.MinPositionSize
		}
	}
	return e.damp(size, bar)
}

// damp shrinks the position on anomalous days. The damping ramps linearly
// from 0 at the threshold to AnomalyDampMax at score 1.
func (e *Executor) damp(size float64, bar domain.AnnotatedBar) float64 {
	if e.guard == nil || e.cfg.AnomalyDampMax == 0 || e.cfg.AnomalyThreshold >= 1 {
		return size
	}
	score := common.Clamp01(e.guard.PredictScore(common.FeatureVector(bar)))
	if score <= e.cfg.AnomalyThreshold {
		return size
	}
	excess := (score - e.cfg.AnomalyThreshold) / (1 - e.cfg.AnomalyThreshold)
	size *= 1 - e.cfg.AnomalyDampMax*excess
	if size < e.cfg.MinPositionSize {
		size = e.cfg.MinPositionSize
	}
	return size
}
