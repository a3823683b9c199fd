package predict

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clustererFunc func(points [][]float64, k int) ([]int, error)

func (f clustererFunc) Cluster(points [][]float64, k int) ([]int, error) { return f(points, k) }

type classifierFunc func(x []float64, y []bool) (Model, error)

func (f classifierFunc) Fit(x []float64, y []bool) (Model, error) { return f(x, y) }

func row(id int, midterm, final float64) Row {
	return Row{StudentID: id, Midterm: midterm, Final: final, Composite: 0.4*midterm + 0.6*final}
}

func separated() []Row {
	return []Row{
		row(1, 1, 1), row(2, 1.2, 1),
		row(3, 5, 5), row(4, 5, 5.2),
		row(5, 9, 9), row(6, 9.1, 9),
	}
}

func TestScorer_Score_empty(t *testing.T) {
	got := NewScorer().Score(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScorer_Score_doesNotMutateInput(t *testing.T) {
	rows := separated()
	_ = NewScorer().Score(rows)
	for _, r := range rows {
		assert.Empty(t, r.Tier)
		assert.Zero(t, r.FailRisk)
	}
}

func TestScorer_Score_insufficientData(t *testing.T) {
	tests := []struct {
		name   string
		scorer *Scorer
		rows   []Row
	}{
		{
			name:   "single row",
			scorer: NewScorer(),
			rows:   []Row{row(1, 5, 5)},
		},
		{
			name:   "one distinct point",
			scorer: NewScorer(),
			rows:   []Row{row(1, 5, 5), row(2, 5, 5), row(3, 5, 5)},
		},
		{
			name: "clustering fails",
			scorer: NewScorer(WithClusterer(clustererFunc(func([][]float64, int) ([]int, error) {
				return nil, errors.New("boom")
			}))),
			rows: separated(),
		},
		{
			name: "clustering returns too few labels",
			scorer: NewScorer(WithClusterer(clustererFunc(func([][]float64, int) ([]int, error) {
				return []int{0}, nil
			}))),
			rows: separated(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range tt.scorer.Score(tt.rows) {
				assert.Equal(t, TierInsufficient, r.Tier)
				assert.Zero(t, r.GroupID)
			}
		})
	}
}

func TestScorer_Score_groupsAreRankedByComposite(t *testing.T) {
	var gotK int
	scorer := NewScorer(WithClusterer(clustererFunc(func(points [][]float64, k int) ([]int, error) {
		gotK = k
		return []int{2, 2, 0, 0, 1, 1}, nil
	})))

	got := scorer.Score(separated())
	assert.Equal(t, MaxTiers, gotK)

	wantTiers := []string{TierNeedsImprovement, TierNeedsImprovement, TierGood, TierGood, TierExcellent, TierExcellent}
	wantGroups := []int{0, 0, 1, 1, 2, 2}
	for i, r := range got {
		assert.Equal(t, wantTiers[i], r.Tier, "row %d", i)
		assert.Equal(t, wantGroups[i], r.GroupID, "row %d", i)
	}
}

func TestScorer_Score_twoDistinctPoints(t *testing.T) {
	var gotK int
	scorer := NewScorer(WithClusterer(clustererFunc(func(points [][]float64, k int) ([]int, error) {
		gotK = k
		return []int{1, 0, 0}, nil
	})))

	got := scorer.Score([]Row{row(1, 2, 2), row(2, 8, 8), row(3, 8, 8)})
	assert.Equal(t, 2, gotK)
	assert.Equal(t, TierNeedsImprovement, got[0].Tier)
	assert.Equal(t, TierExcellent, got[1].Tier)
	assert.Equal(t, 1, got[2].GroupID)
}

func TestScorer_Score_kmeans(t *testing.T) {
	scorer := NewScorer()
	got := scorer.Score(separated())
	require.Len(t, got, 6)

	assert.Equal(t, TierNeedsImprovement, got[0].Tier)
	assert.Equal(t, TierNeedsImprovement, got[1].Tier)
	assert.Equal(t, TierGood, got[2].Tier)
	assert.Equal(t, TierGood, got[3].Tier)
	assert.Equal(t, TierExcellent, got[4].Tier)
	assert.Equal(t, TierExcellent, got[5].Tier)

	// failing rows carry the highest risk
	assert.Greater(t, got[0].FailRisk, 50.0)
	assert.Less(t, got[5].FailRisk, 50.0)
	assert.Greater(t, got[0].FailRisk, got[3].FailRisk)

	// seeded clustering is reproducible
	assert.Equal(t, got, scorer.Score(separated()))
}

func TestScorer_Score_risk(t *testing.T) {
	constant := classifierFunc(func([]float64, []bool) (Model, error) { return constantModel(0.12345), nil })

	t.Run("too few rows", func(t *testing.T) {
		got := NewScorer(WithClassifier(constant)).Score(separated()[:MinRowsForRisk])
		for _, r := range got {
			assert.Zero(t, r.FailRisk)
		}
	})

	t.Run("fit fails", func(t *testing.T) {
		failing := classifierFunc(func([]float64, []bool) (Model, error) { return nil, errors.New("boom") })
		for _, r := range NewScorer(WithClassifier(failing)).Score(separated()) {
			assert.Zero(t, r.FailRisk)
		}
	})

	t.Run("every row failing", func(t *testing.T) {
		rows := []Row{row(1, 0, 0), row(2, 1, 0), row(3, 2, 1), row(4, 3, 1), row(5, 4, 2), row(6, 2, 2)}
		got := NewScorer().Score(rows)
		require.Len(t, got, 6)
		for _, r := range got {
			assert.Zero(t, r.FailRisk)
		}
	})

	t.Run("every row passing", func(t *testing.T) {
		rows := []Row{row(1, 5, 5), row(2, 6, 5), row(3, 7, 8), row(4, 8, 8), row(5, 9, 9), row(6, 10, 10)}
		for _, r := range NewScorer().Score(rows) {
			assert.Zero(t, r.FailRisk)
		}
	})

	t.Run("labels and rounding", func(t *testing.T) {
		var gotX []float64
		var gotY []bool
		spy := classifierFunc(func(x []float64, y []bool) (Model, error) {
			gotX, gotY = x, y
			return constantModel(0.12345), nil
		})
		for _, r := range NewScorer(WithClassifier(spy)).Score(separated()) {
			assert.Equal(t, 12.3, r.FailRisk)
		}
		assert.Equal(t, []float64{1, 1.2, 5, 5, 9, 9.1}, gotX)
		assert.Equal(t, []bool{true, true, false, false, false, false}, gotY)
	})
}
