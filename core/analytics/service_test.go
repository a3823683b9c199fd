package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
)

func gpa(id int, classID *int, className string, v float64) StudentGPA {
	return StudentGPA{StudentID: id, ClassID: classID, ClassName: className, GPA: v}
}

func TestDistribution(t *testing.T) {
	students := []StudentGPA{
		gpa(1, nil, "", 0),
		gpa(2, nil, "", 0.99),
		gpa(3, nil, "", 1),
		gpa(4, nil, "", 2.5),
		gpa(5, nil, "", 3.99),
		gpa(6, nil, "", 4), // in no bin
	}
	bins := Distribution(students)

	counts := make([]int, 0, len(bins))
	labels := make([]string, 0, len(bins))
	for _, b := range bins {
		counts = append(counts, b.Count)
		labels = append(labels, b.Label)
	}
	assert.Equal(t, []int{2, 1, 1, 1}, counts)
	assert.Equal(t, []string{"0.0-1.0", "1.0-2.0", "2.0-3.0", "3.0-4.0"}, labels)

	for _, b := range Distribution(nil) {
		assert.Zero(t, b.Count)
	}
}

func TestAverageByClass(t *testing.T) {
	a, b := core.Int(1), core.Int(2)
	got := AverageByClass([]StudentGPA{
		gpa(1, b, "11B", 2),
		gpa(2, a, "10A", 3),
		gpa(3, a, "10A", 3.5),
		gpa(4, nil, "", 0.5),
		gpa(5, a, "10A", 2.9),
	})
	want := []ClassAverage{
		{ClassID: 1, ClassName: "10A", Students: 3, AverageGPA: 3.13},
		{ClassID: 2, ClassName: "11B", Students: 1, AverageGPA: 2},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, AverageByClass(nil))
}

func TestOverallStats(t *testing.T) {
	assert.Equal(t, Overall{}, OverallStats(nil))
	assert.Equal(t,
		Overall{TotalStudents: 3, AverageGPA: 2.33, MinGPA: 1, MaxGPA: 4},
		OverallStats([]StudentGPA{gpa(1, nil, "", 2), gpa(2, nil, "", 1), gpa(3, core.Int(1), "10A", 4)}),
	)
}

func TestRiskByClass(t *testing.T) {
	a, b := core.Int(1), core.Int(2)
	report := RiskByClass([]StudentGPA{
		gpa(1, a, "10A", 1.99),
		gpa(2, a, "10A", 2),
		gpa(3, b, "11B", 0),
		gpa(4, b, "11B", 1),
		gpa(5, nil, "", 0), // classless students are not counted
	})

	assert.Equal(t, []ClassRisk{
		{ClassName: "10A", RiskCount: RiskCount{Total: 2, HighRisk: 1, LowRisk: 1}},
		{ClassName: "11B", RiskCount: RiskCount{Total: 2, HighRisk: 2}},
	}, report.Classes)

	var sum RiskCount
	for _, c := range report.Classes {
		sum.Total += c.Total
		sum.HighRisk += c.HighRisk
		sum.LowRisk += c.LowRisk
	}
	assert.Equal(t, sum, report.All)
	assert.Equal(t, RiskReport{Classes: []ClassRisk{}}, RiskByClass(nil))
}

func TestPersonalStats(t *testing.T) {
	t.Run("no subjects", func(t *testing.T) {
		got := PersonalStats(7, 1.5, nil)
		assert.Equal(t, Personal{
			StudentID:    7,
			GPA:          1.5,
			Subjects:     []SubjectAverage{},
			PredictedGPA: 1.5,
			RiskLevel:    RiskHigh,
		}, got)
	})

	t.Run("mixed", func(t *testing.T) {
		got := PersonalStats(7, 3.95, []SubjectScore{
			{SubjectID: 1, SubjectCode: "MATH", SubjectName: "Mathematics", Midterm: core.Float64(6), Final: core.Float64(9)},
			{SubjectID: 2, SubjectCode: "PHY", SubjectName: "Physics", Midterm: core.Float64(7)},
			{SubjectID: 3, SubjectCode: "BIO", SubjectName: "Biology", Midterm: core.Float64(9), Final: core.Float64(6)},
		})
		assert.Equal(t, 3, got.TotalSubjects)
		assert.Equal(t, 2, got.CompletedSubjects)
		assert.Len(t, got.Subjects, 2)
		assert.Equal(t, 8.0, got.Subjects[0].Average)
		assert.Equal(t, 7.0, got.Subjects[1].Average)
		assert.Equal(t, 7.5, got.AverageScore)
		assert.Equal(t, 4.0, got.PredictedGPA)  // capped
		assert.Equal(t, RiskLow, got.RiskLevel)
	})

	t.Run("average score uses unrounded subject averages", func(t *testing.T) {
		got := PersonalStats(7, 0, []SubjectScore{
			{SubjectID: 1, SubjectCode: "MATH", SubjectName: "Mathematics", Midterm: core.Float64(2), Final: core.Float64(0)},
			{SubjectID: 2, SubjectCode: "PHY", SubjectName: "Physics", Midterm: core.Float64(0), Final: core.Float64(0)},
		})
		require.Len(t, got.Subjects, 2)
		assert.Equal(t, 0.67, got.Subjects[0].Average)
		assert.Equal(t, 0.0, got.Subjects[1].Average)
		assert.Equal(t, 0.33, got.AverageScore)
	})
}

func TestSummarize_empty(t *testing.T) {
	got := Summarize(nil)
	assert.Equal(t, Distribution(nil), got.Distribution)
	assert.Equal(t, []ClassAverage{}, got.Classes)
	assert.Equal(t, Overall{}, got.Overall)
	assert.Equal(t, RiskReport{Classes: []ClassRisk{}}, got.Risk)
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, RiskHigh, RiskLevel(0))
	assert.Equal(t, RiskHigh, RiskLevel(2.49))
	assert.Equal(t, RiskLow, RiskLevel(2.5))
	assert.Equal(t, RiskLow, RiskLevel(4))
}
