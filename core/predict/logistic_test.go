package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogisticRegression_Fit(t *testing.T) {
	lr := NewLogisticRegression()

	t.Run("bad input", func(t *testing.T) {
		_, err := lr.Fit(nil, nil)
		assert.Equal(t, errEmptyTrainingSet, err)
		_, err = lr.Fit([]float64{1, 2}, []bool{true})
		assert.Equal(t, errLengthMismatch, err)
	})

	t.Run("one class cannot be fitted", func(t *testing.T) {
		_, err := lr.Fit([]float64{1, 2, 3}, []bool{false, false, false})
		assert.Equal(t, errSingleClass, err)

		_, err = lr.Fit([]float64{1, 2, 3}, []bool{true, true, true})
		assert.Equal(t, errSingleClass, err)
	})

	t.Run("constant feature returns the prior", func(t *testing.T) {
		m, err := lr.Fit([]float64{4, 4, 4, 4}, []bool{true, false, false, false})
		require.NoError(t, err)
		assert.Equal(t, 0.25, m.Probability(4))
	})

	t.Run("low scores are more likely to fail", func(t *testing.T) {
		m, err := lr.Fit(
			[]float64{1, 1.5, 2, 3, 6, 7, 8, 9},
			[]bool{true, true, true, true, false, false, false, false},
		)
		require.NoError(t, err)
		assert.Greater(t, m.Probability(1), 0.5)
		assert.Less(t, m.Probability(9), 0.5)
		assert.Greater(t, m.Probability(2), m.Probability(3))
	})
}
