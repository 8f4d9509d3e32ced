package xgboost

import (
	"errors"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

type TrainOptions struct {
	Rounds       int
	MaxDepth     int
	LearningRate float64
	SubSample    float64
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       100,
		MaxDepth:     3,
		LearningRate: 0.05,
		SubSample:    0.8,
	}
}

// Model wraps a boo gradient-boosted multi-class ensemble behind the narrow
// surface the walk-forward trainer needs.
type Model struct {
	ensemble *boo.MultiClass
}

func Train(samples [][]float64, labels []int, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 {
		return nil, errors.New("empty training dataset")
	}
	if len(samples) != len(labels) {
		return nil, errors.New("sample/label length mismatch")
	}
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultTrainOptions().Rounds
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTrainOptions().MaxDepth
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.SubSample <= 0 || opts.SubSample > 1 {
		opts.SubSample = DefaultTrainOptions().SubSample
	}

	data := &utils.DataBunch{
		Data:   samples,
		Labels: labels,
	}
	o := boo.DefaultXOptions()
	o.Rounds = opts.Rounds
	o.MaxDepth = opts.MaxDepth
	o.LearningRate = opts.LearningRate
	o.SubSample = opts.SubSample

	return &Model{ensemble: boo.NewMultiClass(data, o)}, nil
}

// PredictClass returns the predicted class label for a single feature vector.
func (m *Model) PredictClass(sample []float64) int {
	if m == nil || m.ensemble == nil {
		return 0
	}
	return m.ensemble.PredictSingleClass(sample)
}
