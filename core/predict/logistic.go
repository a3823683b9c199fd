package predict

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"
)

var (
	errEmptyTrainingSet = errors.New("logistic: empty training set")
	errLengthMismatch   = errors.New("logistic: x and y lengths differ")
	errDiverged         = errors.New("logistic: fit diverged")
	errSingleClass      = errors.New("logistic: training labels hold a single class")
)

// LogisticRegression fits a one-feature logistic model by batch gradient descent with L2 regularization.
type LogisticRegression struct {
	LearningRate float64
	Iterations   int
	L2           float64
}

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{LearningRate: 0.5, Iterations: 2000, L2: 0.01}
}

func (lr *LogisticRegression) Fit(x []float64, y []bool) (Model, error) {
	if len(x) == 0 {
		return nil, errEmptyTrainingSet
	}
	if len(x) != len(y) {
		return nil, errLengthMismatch
	}

	var positives int
	for _, label := range y {
		if label {
			positives++
		}
	}
	if positives == 0 || positives == len(y) {
		return nil, errSingleClass
	}
	prior := float64(positives) / float64(len(y))

	mean, _ := stats.Mean(x)
	std, _ := stats.StandardDeviationPopulation(x)
	if std == 0 {
		return constantModel(prior), nil
	}

	n := float64(len(x))
	var w, b float64
	for iter := 0; iter < lr.Iterations; iter++ {
		var gw, gb float64
		for i, xi := range x {
			z := (xi - mean) / std
			diff := sigmoid(w*z+b) - boolToFloat(y[i])
			gw += diff * z
			gb += diff
		}
		w -= lr.LearningRate * (gw/n + lr.L2*w)
		b -= lr.LearningRate * gb / n
	}
	if math.IsNaN(w) || math.IsNaN(b) || math.IsInf(w, 0) || math.IsInf(b, 0) {
		return nil, errDiverged
	}
	return logisticModel{w: w, b: b, mean: mean, std: std}, nil
}

type logisticModel struct {
	w, b      float64
	mean, std float64
}

func (m logisticModel) Probability(x float64) float64 {
	return sigmoid(m.w*(x-m.mean)/m.std + m.b)
}

type constantModel float64

func (m constantModel) Probability(float64) float64 { return float64(m) }

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
