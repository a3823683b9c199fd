package grade

import (
	"github.com/montanaflynn/stats"

	"github.com/trezcool/alama/core"
)

const (
	MidtermWeight = 0.4
	FinalWeight   = 0.6

	// composites live on a 0-10 scale, GPAs on a 0-4 scale
	ScoreScale = 10.0
	GPAScale   = 4.0
)

// ComputeComposite returns 0.4*midterm + 0.6*final; a missing score counts as 0.
func ComputeComposite(midterm, final *float64) float64 {
	return MidtermWeight*valueOrZero(midterm) + FinalWeight*valueOrZero(final)
}

// ComputeGPA rescales the mean composite to the GPA scale, rounded to 2 decimals.
// A student without composites has a GPA of 0.
func ComputeGPA(composites []float64) float64 {
	if len(composites) == 0 {
		return 0
	}
	mean, err := stats.Mean(composites)
	if err != nil {
		return 0
	}
	return core.Round(mean/ScoreScale*GPAScale, 2)
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
