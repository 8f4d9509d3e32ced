package fusion

import (
	"fmt"
	"sort"

	"quantfuse/internal/domain"
)

// Engine merges the daily news aggregate stream onto the trading-day price
// stream and applies the final decision rules. The merge is a backward as-of
// join: every trading day sees the most recent aggregate on or before its
// date, never a future one. The engine is deterministic and side-effect-free.
type Engine struct {
	highThreshold     float64
	breakoutThreshold float64
}

func NewEngine(highThreshold, breakoutThreshold float64) (*Engine, error) {
	if highThreshold <= 0 || highThreshold > 1 {
		return nil, fmt.Errorf("high confidence threshold must be in (0,1], got %v", highThreshold)
	}
	if breakoutThreshold <= 0 || breakoutThreshold > 1 {
		return nil, fmt.Errorf("breakout threshold must be in (0,1], got %v", breakoutThreshold)
	}
	return &Engine{
		highThreshold:     highThreshold,
		breakoutThreshold: breakoutThreshold,
	}, nil
}

// Merge produces one FusionRecord per trading day. Days with no aggregate on
// or before them default to score 0.0 and NEUTRAL bias.
func (e *Engine) Merge(bars []domain.AnnotatedBar, aggregates []domain.DailyNewsAggregate) []domain.FusionRecord {
	sorted := append([]domain.DailyNewsAggregate(nil), aggregates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]domain.FusionRecord, 0, len(bars))
	j := -1
	for _, bar := range bars {
		for j+1 < len(sorted) && !sorted[j+1].Date.After(bar.Date) {
			j++
		}

		score := 0.0
		bias := domain.BiasNeutral
		if j >= 0 {
			score = sorted[j].BehaviouralScore
			bias = sorted[j].Bias
		}

		out = append(out, domain.FusionRecord{
			Symbol:           bar.Symbol,
			Date:             bar.Date,
			Close:            bar.Close,
			PriceSignal:      bar.Signal,
			BehaviouralScore: score,
			NewsBias:         bias,
			FinalDecision:    e.decide(bar.Signal, score),
		})
	}
	return out
}

// decide applies the priority ladder; the first matching rule wins.
func (e *Engine) decide(signal domain.PriceSignal, score float64) domain.Decision {
	switch {
	case signal == domain.SignalBuy && score > e.highThreshold:
		return domain.DecisionBuyHighConf
	case signal == domain.SignalBuy && score < -e.highThreshold:
		return domain.DecisionAvoidNegNews
	case signal == domain.SignalHold && score > e.breakoutThreshold:
		return domain.DecisionWatchBreakout
	default:
		return passThrough(signal)
	}
}

func passThrough(signal domain.PriceSignal) domain.Decision {
	switch signal {
	case domain.SignalBuy:
		return domain.DecisionBuy
	case domain.SignalSell:
		return domain.DecisionSell
	default:
		return domain.DecisionHold
	}
}
