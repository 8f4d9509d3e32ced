package news

import (
	"fmt"
	"sort"
	"time"

	"quantfuse/internal/domain"
)

// Aggregator collapses scored items into one DailyNewsAggregate per calendar
// day. Items are weighted by |behavioural_score| + epsilon so strong-opinion
// articles dominate without discarding near-zero filler.
type Aggregator struct {
	bullishThreshold float64
	bearishThreshold float64
	epsilon          float64
}

func NewAggregator(bullishThreshold, bearishThreshold, epsilon float64) (*Aggregator, error) {
	if bullishThreshold <= 0 {
		return nil, fmt.Errorf("bullish threshold must be positive, got %v", bullishThreshold)
	}
	if bearishThreshold >= 0 {
		return nil, fmt.Errorf("bearish threshold must be negative, got %v", bearishThreshold)
	}
	if epsilon <= 0 {
		return nil, fmt.Errorf("epsilon must be positive, got %v", epsilon)
	}
	return &Aggregator{
		bullishThreshold: bullishThreshold,
		bearishThreshold: bearishThreshold,
		epsilon:          epsilon,
	}, nil
}

// Aggregate groups items by publish calendar day (timezone-naive UTC) and
// returns one aggregate per day, ordered by date ascending. Items without a
// usable publish date are skipped.
func (a *Aggregator) Aggregate(items []domain.NewsItem) []domain.DailyNewsAggregate {
	type bucket struct {
		symbol    string
		weightSum float64
		scoreSum  float64
		count     int
	}
	buckets := make(map[time.Time]*bucket)

	for _, item := range items {
		if item.PublishedAt.IsZero() {
			continue
		}
		day := calendarDay(item.PublishedAt)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{symbol: item.Symbol}
			buckets[day] = b
		}
		w := abs(item.BehaviouralScore) + a.epsilon
		b.weightSum += w
		b.scoreSum += w * item.BehaviouralScore
		b.count++
	}

	out := make([]domain.DailyNewsAggregate, 0, len(buckets))
	for day, b := range buckets {
		score := b.scoreSum / b.weightSum
		out = append(out, domain.DailyNewsAggregate{
			Symbol:           b.symbol,
			Date:             day,
			BehaviouralScore: score,
			ItemCount:        b.count,
			Bias:             a.Bias(score),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Bias labels a daily score with the same thresholds every downstream
// consumer sees.
func (a *Aggregator) Bias(score float64) domain.NewsBias {
	switch {
	case score > a.bullishThreshold:
		return domain.BiasBullish
	case score < a.bearishThreshold:
		return domain.BiasBearish
	default:
		return domain.BiasNeutral
	}
}

func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
