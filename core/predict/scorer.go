package predict

import (
	"sort"

	"github.com/trezcool/alama/core"
)

// DefaultSeed keeps tiering reproducible between calls.
const DefaultSeed = 42

type (
	Scorer struct {
		clusterer  Clusterer
		classifier Classifier
		logger     core.Logger
	}

	ScorerOption func(*Scorer)
)

func WithClusterer(c Clusterer) ScorerOption {
	return func(s *Scorer) { s.clusterer = c }
}

func WithClassifier(c Classifier) ScorerOption {
	return func(s *Scorer) { s.classifier = c }
}

func WithLogger(l core.Logger) ScorerOption {
	return func(s *Scorer) { s.logger = l }
}

// NewScorer uses k-means tiering and logistic fail-risk unless told otherwise.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		clusterer:  NewKMeans(DefaultSeed),
		classifier: NewLogisticRegression(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns a copy of rows with Tier, GroupID and FailRisk set.
// Strategy failures never escape: they degrade to "insufficient data" tiers and a 0 risk.
func (s *Scorer) Score(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	if len(out) == 0 {
		return out
	}
	s.tier(out)
	s.risk(out)
	return out
}

func (s *Scorer) tier(rows []Row) {
	points := make([][]float64, len(rows))
	distinct := make(map[[2]float64]struct{}, len(rows))
	for i, r := range rows {
		points[i] = []float64{r.Midterm, r.Final}
		distinct[[2]float64{r.Midterm, r.Final}] = struct{}{}
	}

	k := MaxTiers
	if len(distinct) < k {
		k = len(distinct)
	}
	if k < 2 {
		markInsufficient(rows)
		return
	}

	labels, err := s.clusterer.Cluster(points, k)
	if err != nil || len(labels) != len(rows) {
		s.warn("clustering failed; tiers left as insufficient data", err)
		markInsufficient(rows)
		return
	}

	// order groups by mean composite, ascending
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i, l := range labels {
		sums[l] += rows[i].Composite
		counts[l]++
	}
	groups := make([]int, 0, len(counts))
	for l := range counts {
		groups = append(groups, l)
	}
	sort.Slice(groups, func(i, j int) bool {
		mi := sums[groups[i]] / float64(counts[groups[i]])
		mj := sums[groups[j]] / float64(counts[groups[j]])
		if mi == mj {
			return groups[i] < groups[j]
		}
		return mi < mj
	})
	rank := make(map[int]int, len(groups))
	for r, l := range groups {
		rank[l] = r
	}

	last := len(groups) - 1
	for i, l := range labels {
		r := rank[l]
		rows[i].GroupID = r
		switch {
		case r == 0:
			rows[i].Tier = TierNeedsImprovement
		case r == last:
			rows[i].Tier = TierExcellent
		default:
			rows[i].Tier = TierGood
		}
	}
}

func (s *Scorer) risk(rows []Row) {
	for i := range rows {
		rows[i].FailRisk = 0
	}
	if len(rows) <= MinRowsForRisk {
		return
	}

	x := make([]float64, len(rows))
	y := make([]bool, len(rows))
	for i, r := range rows {
		x[i] = r.Midterm
		y[i] = r.Composite < FailingComposite
	}
	model, err := s.classifier.Fit(x, y)
	if err != nil {
		s.warn("fail-risk model could not be fitted; risks left at 0", err)
		return
	}
	for i, r := range rows {
		rows[i].FailRisk = core.Round(model.Probability(r.Midterm)*100, 1)
	}
}

func (s *Scorer) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, err)
	}
}

func markInsufficient(rows []Row) {
	for i := range rows {
		rows[i].Tier = TierInsufficient
		rows[i].GroupID = 0
	}
}
