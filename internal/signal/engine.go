package signal

import (
	"fmt"
	"math"
	"sort"

	"quantfuse/internal/domain"
)

// Engine derives BUY/HOLD/SELL trend signals from close-only price history.
// It is deterministic and performs no I/O.
type Engine struct {
	shortWindow int
	longWindow  int
	rsiPeriod   int
	volWindow   int
}

func NewEngine(shortWindow, longWindow, rsiPeriod, volWindow int) (*Engine, error) {
	if shortWindow <= 0 || longWindow <= 0 || shortWindow >= longWindow {
		return nil, fmt.Errorf("sma windows must satisfy 0 < short < long, got %d/%d", shortWindow, longWindow)
	}
	if rsiPeriod <= 0 {
		return nil, fmt.Errorf("rsi period must be positive, got %d", rsiPeriod)
	}
	if volWindow <= 0 {
		return nil, fmt.Errorf("volatility window must be positive, got %d", volWindow)
	}
	return &Engine{
		shortWindow: shortWindow,
		longWindow:  longWindow,
		rsiPeriod:   rsiPeriod,
		volWindow:   volWindow,
	}, nil
}

// Annotate computes derived features for every bar and attaches the row-wise
// trend signal. Bars inside the warm-up window (before every feature is fully
// populated) are dropped, not defaulted to HOLD.
func (e *Engine) Annotate(bars []domain.PriceBar) []domain.AnnotatedBar {
	bars = normalizeBars(bars)
	n := len(bars)
	start := e.warmup()
	if n <= start {
		return nil
	}

	closes := make([]float64, n)
	for i := range bars {
		closes[i] = bars[i].Close
	}

	returns := returnSeries(closes)
	smaShort := smaSeries(closes, e.shortWindow)
	smaLong := smaSeries(closes, e.longWindow)
	rsi := rsiSeries(closes, e.rsiPeriod)
	vol := rollingStdSeries(returns, e.volWindow)

	out := make([]domain.AnnotatedBar, 0, n-start)
	for i := start; i < n; i++ {
		bar := bars[i]
		bar.Return = returns[i]
		bar.SMAShort = smaShort[i]
		bar.SMALong = smaLong[i]
		bar.RSI = rsi[i]
		bar.Volatility = vol[i]
		out = append(out, domain.AnnotatedBar{
			PriceBar: bar,
			Signal:   trendSignal(bar.Close, bar.SMAShort, bar.SMALong),
		})
	}
	return out
}

// warmup is the first index at which return, both SMAs, RSI and volatility
// are all populated.
func (e *Engine) warmup() int {
	start := e.longWindow - 1
	if e.volWindow > start {
		start = e.volWindow
	}
	if e.rsiPeriod > start {
		start = e.rsiPeriod
	}
	return start
}

// trendSignal is the row-wise rule with no hysteresis.
func trendSignal(close, smaShort, smaLong float64) domain.PriceSignal {
	if close > smaShort && smaShort > smaLong {
		return domain.SignalBuy
	}
	if close < smaShort && smaShort < smaLong {
		return domain.SignalSell
	}
	return domain.SignalHold
}

func normalizeBars(in []domain.PriceBar) []domain.PriceBar {
	out := make([]domain.PriceBar, 0, len(in))
	for _, b := range in {
		if b.Close <= 0 {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func returnSeries(closes []float64) []float64 {
	out := nanSeries(len(closes))
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

func smaSeries(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if len(values) < window {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingStdSeries is the sample standard deviation over the trailing window,
// skipping leading NaN inputs.
func rollingStdSeries(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	if window < 2 {
		return out
	}
	for i := window; i < len(values); i++ {
		segment := values[i-window+1 : i+1]
		if hasNaN(segment) {
			continue
		}
		mean := 0.0
		for _, v := range segment {
			mean += v
		}
		mean /= float64(window)
		variance := 0.0
		for _, v := range segment {
			d := v - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(window-1))
	}
	return out
}

func rsiSeries(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if len(closes) <= period {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
