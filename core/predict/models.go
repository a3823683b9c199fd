package predict

const (
	TierInsufficient     = "insufficient data"
	TierNeedsImprovement = "Needs Improvement"
	TierGood             = "Good"
	TierExcellent        = "Excellent"

	// FailingComposite is the composite below which a grade counts as failing.
	FailingComposite = 4.0
	// MinRowsForRisk is the row count the dataset must exceed before a classifier is fitted.
	MinRowsForRisk = 5
	// MaxTiers is the maximum number of performance groups.
	MaxTiers = 3
)

// Row is one graded (student, subject) pair. Tier, GroupID and FailRisk are filled by the Scorer.
type Row struct {
	StudentID   int     `json:"student_id"`
	StudentCode string  `json:"student_code"`
	StudentName string  `json:"student_name"`
	SubjectID   int     `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	Midterm     float64 `json:"midterm"`
	Final       float64 `json:"final"`
	Composite   float64 `json:"composite"`
	Tier        string  `json:"tier"`
	GroupID     int     `json:"group_id"`
	FailRisk    float64 `json:"fail_risk"` // percent, 1 decimal
}

type Filter struct {
	SubjectID int `query:"subject_id"`
}

type (
	// Clusterer partitions points into k groups and returns the group index of every point.
	Clusterer interface {
		Cluster(points [][]float64, k int) ([]int, error)
	}

	// Classifier fits a binary model of y from the single feature x.
	Classifier interface {
		Fit(x []float64, y []bool) (Model, error)
	}

	// Model returns the probability that the label is true for x.
	Model interface {
		Probability(x float64) float64
	}
)
