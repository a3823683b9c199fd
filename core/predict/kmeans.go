package predict

import (
	"errors"
	"math"
	"math/rand"
)

const defaultMaxIter = 300

var (
	errBadK           = errors.New("kmeans: k must be between 1 and the number of points")
	errTooFewDistinct = errors.New("kmeans: not enough distinct points for k clusters")
)

// KMeans is Lloyd's algorithm seeded with k-means++. A fixed Seed gives reproducible groups.
type KMeans struct {
	Seed    int64
	MaxIter int
}

func NewKMeans(seed int64) *KMeans {
	return &KMeans{Seed: seed, MaxIter: defaultMaxIter}
}

func (km *KMeans) Cluster(points [][]float64, k int) ([]int, error) {
	if k < 1 || k > len(points) {
		return nil, errBadK
	}
	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}

	rng := rand.New(rand.NewSource(km.Seed))
	centroids, err := seedCentroids(points, k, rng)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			if c := nearest(p, centroids); labels[i] != c {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		centroids = recenter(points, labels, centroids)
	}
	return labels, nil
}

// seedCentroids picks k distinct starting centroids with the k-means++ rule.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) ([][]float64, error) {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := sqDist(p, centroids[0])
			for _, c := range centroids[1:] {
				d = math.Min(d, sqDist(p, c))
			}
			dist[i] = d
			total += d
		}
		if total == 0 {
			return nil, errTooFewDistinct
		}

		target := rng.Float64() * total
		next := -1
		for i, d := range dist {
			if d == 0 {
				continue
			}
			next = i
			if target -= d; target < 0 {
				break
			}
		}
		centroids = append(centroids, clone(points[next]))
	}
	return centroids, nil
}

// recenter moves every centroid to the mean of its points; empty groups keep their centroid.
func recenter(points [][]float64, labels []int, prev [][]float64) [][]float64 {
	dims := len(prev[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for d := range p {
			sums[c][d] += p[d]
		}
	}

	next := make([][]float64, len(prev))
	for c := range prev {
		if counts[c] == 0 {
			next[c] = prev[c]
			continue
		}
		next[c] = make([]float64, dims)
		for d := range sums[c] {
			next[c][d] = sums[c][d] / float64(counts[c])
		}
	}
	return next
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		diff := a[i] - b[i]
		s += diff * diff
	}
	return s
}

func clone(p []float64) []float64 {
	c := make([]float64, len(p))
	copy(c, p)
	return c
}
