package backtest

import (
	"math"
	"sort"
	"time"

	"quantfuse/internal/domain"
)

const tradingDaysPerYear = 252

// AggregatePortfolio aligns per-instrument equity curves on the union of
// their dates, forward-fills each instrument from its last known equity, and
// averages across instruments. An instrument contributes only from its first
// date onward; history is never back-filled.
func AggregatePortfolio(curves map[string][]domain.StrategyRecord) []domain.PortfolioRecord {
	type point struct {
		date   time.Time
		equity float64
	}
	series := make(map[string][]point, len(curves))
	dateSet := make(map[time.Time]struct{})
	for symbol, records := range curves {
		if len(records) == 0 {
			continue
		}
		pts := make([]point, len(records))
		for i, r := range records {
			pts[i] = point{date: r.Date, equity: r.Equity}
			dateSet[r.Date] = struct{}{}
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].date.Before(pts[j].date) })
		series[symbol] = pts
	}
	if len(series) == 0 {
		return nil
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	cursor := make(map[string]int, len(series))
	out := make([]domain.PortfolioRecord, 0, len(dates))
	for _, d := range dates {
		equities := make(map[string]float64, len(series))
		sum := 0.0
		for symbol, pts := range series {
			i := cursor[symbol]
			for i < len(pts) && !pts[i].date.After(d) {
				i++
			}
			cursor[symbol] = i
			if i == 0 {
				// not listed yet
				continue
			}
			eq := pts[i-1].equity
			equities[symbol] = eq
			sum += eq
		}
		if len(equities) == 0 {
			continue
		}
		out = append(out, domain.PortfolioRecord{
			Date:             d,
			InstrumentEquity: equities,
			PortfolioEquity:  sum / float64(len(equities)),
		})
	}
	return out
}

// ComputeMetrics summarizes a portfolio equity curve. Degenerate inputs
// (empty curve, zero variance, no trades) produce zero-valued metrics, never
// NaN or Inf.
func ComputeMetrics(records []domain.PortfolioRecord) []domain.Metric {
	equity := make([]float64, len(records))
	for i, r := range records {
		equity[i] = r.PortfolioEquity
	}
	return []domain.Metric{
		{Name: domain.MetricCAGR, Value: cagr(equity)},
		{Name: domain.MetricMaxDrawdown, Value: maxDrawdown(equity)},
		{Name: domain.MetricSharpe, Value: sharpe(equity)},
		{Name: domain.MetricWinRate, Value: winRate(equity)},
		{Name: domain.MetricTotalTrades, Value: float64(totalTrades(equity))},
	}
}

func cagr(equity []float64) float64 {
	n := len(equity)
	if n == 0 || equity[n-1] <= 0 {
		return 0
	}
	return math.Pow(equity[n-1], tradingDaysPerYear/float64(n)) - 1
}

func maxDrawdown(equity []float64) float64 {
	worst := 0.0
	runningMax := 0.0
	for _, e := range equity {
		if e > runningMax {
			runningMax = e
		}
		if runningMax <= 0 {
			continue
		}
		dd := (e - runningMax) / runningMax
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

func dailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i]/equity[i-1]-1)
	}
	return out
}

func sharpe(equity []float64) float64 {
	returns := dailyReturns(equity)
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return math.Sqrt(tradingDaysPerYear) * mean / std
}

func winRate(equity []float64) float64 {
	wins := 0
	trades := 0
	for _, r := range dailyReturns(equity) {
		if r == 0 {
			continue
		}
		trades++
		if r > 0 {
			wins++
		}
	}
	if trades == 0 {
		return 0
	}
	return float64(wins) / float64(trades)
}

func totalTrades(equity []float64) int {
	trades := 0
	for _, r := range dailyReturns(equity) {
		if r != 0 {
			trades++
		}
	}
	return trades
}
