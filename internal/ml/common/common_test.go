package common

import (
	"math"
	"testing"

	"quantfuse/internal/domain"
)

func TestFeatureVectorMatchesFeatureNames(t *testing.T) {
	bar := domain.AnnotatedBar{
		PriceBar: domain.PriceBar{Return: 0.01, SMAShort: 99, SMALong: 98, RSI: 60, Volatility: 0.015},
	}
	vec := FeatureVector(bar)
	if len(vec) != len(FeatureNames) {
		t.Fatalf("feature vector length %d != %d names", len(vec), len(FeatureNames))
	}
	want := []float64{0.01, 99, 98, 60, 0.015}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("feature %s = %v, want %v", FeatureNames[i], vec[i], want[i])
		}
	}
}

func TestDirectionLabel(t *testing.T) {
	up := domain.AnnotatedBar{PriceBar: domain.PriceBar{Close: 101}}
	down := domain.AnnotatedBar{PriceBar: domain.PriceBar{Close: 100}}
	if DirectionLabel(down, up) != 1 {
		t.Fatal("expected label 1 for rising close")
	}
	if DirectionLabel(up, down) != 0 {
		t.Fatal("expected label 0 for falling close")
	}
	if DirectionLabel(up, up) != 0 {
		t.Fatal("expected label 0 for flat close")
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.5) != 0 || Clamp01(1.5) != 1 || Clamp01(0.3) != 0.3 {
		t.Fatal("clamp bounds violated")
	}
	if Clamp01(math.NaN()) != 0.5 {
		t.Fatal("expected NaN to clamp to 0.5")
	}
}
