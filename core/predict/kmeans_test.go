package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMeans_Cluster(t *testing.T) {
	points := [][]float64{{0, 0}, {0.1, 0}, {10, 10}, {10, 10.1}}

	t.Run("bad k", func(t *testing.T) {
		km := NewKMeans(DefaultSeed)
		_, err := km.Cluster(points, 0)
		assert.Equal(t, errBadK, err)
		_, err = km.Cluster(points, 5)
		assert.Equal(t, errBadK, err)
	})

	t.Run("too few distinct points", func(t *testing.T) {
		_, err := NewKMeans(DefaultSeed).Cluster([][]float64{{1, 1}, {1, 1}, {1, 1}}, 2)
		assert.Equal(t, errTooFewDistinct, err)
	})

	t.Run("single group", func(t *testing.T) {
		labels, err := NewKMeans(DefaultSeed).Cluster(points, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 0, 0}, labels)
	})

	t.Run("two groups", func(t *testing.T) {
		labels, err := NewKMeans(DefaultSeed).Cluster(points, 2)
		require.NoError(t, err)
		require.Len(t, labels, 4)
		assert.Equal(t, labels[0], labels[1])
		assert.Equal(t, labels[2], labels[3])
		assert.NotEqual(t, labels[0], labels[2])
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := NewKMeans(7).Cluster(points, 2)
		require.NoError(t, err)
		b, err := (&KMeans{Seed: 7}).Cluster(points, 2)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestRecenter_keepsEmptyGroups(t *testing.T) {
	prev := [][]float64{{0, 0}, {5, 5}}
	next := recenter([][]float64{{1, 1}, {3, 3}}, []int{0, 0}, prev)
	assert.Equal(t, [][]float64{{2, 2}, {5, 5}}, next)
}
