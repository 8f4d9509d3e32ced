package xgboost

import "testing"

func TestTrainValidatesInput(t *testing.T) {
	if _, err := Train(nil, nil, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if _, err := Train([][]float64{{1, 2}}, []int{0, 1}, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for sample/label mismatch")
	}
}

func TestTrainAndPredictSmoke(t *testing.T) {
	samples := make([][]float64, 0, 200)
	labels := make([]int, 0, 200)
	for i := 0; i < 200; i++ {
		v := float64(i % 10)
		samples = append(samples, []float64{v, v / 2, v * 2, 50 + v, 0.01})
		if i%2 == 0 {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}

	model, err := Train(samples, labels, TrainOptions{Rounds: 10, MaxDepth: 3, LearningRate: 0.1, SubSample: 0.8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	class := model.PredictClass(samples[0])
	if class != 0 && class != 1 {
		t.Fatalf("expected binary class, got %d", class)
	}
}

func TestNilModelPredictsZero(t *testing.T) {
	var m *Model
	if m.PredictClass([]float64{1}) != 0 {
		t.Fatal("expected nil model to predict 0")
	}
}
