package features

import (
	"time"

	"quantfuse/internal/domain"
	"quantfuse/internal/ml/common"
)

// Dataset is the supervised training matrix built from annotated bars: one
// feature row per trading day, labeled with the direction of the following
// day's close. X has one row per bar; Y has one label per bar except the last,
// which has no next close to compare against.
type Dataset struct {
	Symbol string
	Dates  []time.Time
	X      [][]float64
	Y      []int
}

func Build(bars []domain.AnnotatedBar) Dataset {
	ds := Dataset{
		Dates: make([]time.Time, len(bars)),
		X:     make([][]float64, len(bars)),
	}
	if len(bars) == 0 {
		return ds
	}
	ds.Symbol = bars[0].Symbol
	for i := range bars {
		ds.Dates[i] = bars[i].Date
		ds.X[i] = common.FeatureVector(bars[i])
	}
	ds.Y = make([]int, len(bars)-1)
	for i := 0; i < len(bars)-1; i++ {
		ds.Y[i] = common.DirectionLabel(bars[i], bars[i+1])
	}
	return ds
}

// Len is the number of feature rows.
func (d Dataset) Len() int {
	return len(d.X)
}
