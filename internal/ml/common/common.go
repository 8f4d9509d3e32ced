package common

import (
	"math"

	"quantfuse/internal/domain"
)

// FeatureNames is the feature order shared by every model in this package
// tree. Keep FeatureVector in sync with it.
var FeatureNames = []string{
	"return",
	"sma_short",
	"sma_long",
	"rsi",
	"volatility",
}

func FeatureVector(bar domain.AnnotatedBar) []float64 {
	return []float64{
		bar.Return,
		bar.SMAShort,
		bar.SMALong,
		bar.RSI,
		bar.Volatility,
	}
}

// DirectionLabel is 1 when the next close is strictly above the current one.
func DirectionLabel(current, next domain.AnnotatedBar) int {
	if next.Close > current.Close {
		return 1
	}
	return 0
}

func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
