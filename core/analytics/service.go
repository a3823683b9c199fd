package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

const (
	// HighRiskGPA splits high and low risk students per class.
	HighRiskGPA = 2.0
	// PersonalRiskGPA is the threshold of the personal risk label.
	PersonalRiskGPA = 2.5

	RiskHigh = "High"
	RiskLow  = "Low"

	projectionStep = 0.1
	maxGPA         = 4.0
)

var ErrStudentNotFound = core.NewNotFoundError("student")

// half-open GPA bins; a GPA of exactly 4.0 falls in none of them
var binEdges = [][2]float64{{0, 1}, {1, 2}, {2, 3}, {3, 4}}

type (
	Repository interface {
		QueryStudentGPAs(ctx context.Context) ([]StudentGPA, error)
		GetStudentGPA(ctx context.Context, studentID int) (float64, error)
		QuerySubjectScores(ctx context.Context, studentID int) ([]SubjectScore, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	students, err := svc.repo.QueryStudentGPAs(ctx)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying student GPAs")
	}
	return Summarize(students), nil
}

// Summarize runs every GPA report over students. Summarize(nil) is the empty summary.
func Summarize(students []StudentGPA) Summary {
	return Summary{
		Distribution: Distribution(students),
		Classes:      AverageByClass(students),
		Overall:      OverallStats(students),
		Risk:         RiskByClass(students),
	}
}

func (svc *Service) Distribution(ctx context.Context) ([]Bin, error) {
	students, err := svc.repo.QueryStudentGPAs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying student GPAs")
	}
	return Distribution(students), nil
}

func (svc *Service) AverageByClass(ctx context.Context) ([]ClassAverage, error) {
	students, err := svc.repo.QueryStudentGPAs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying student GPAs")
	}
	return AverageByClass(students), nil
}

func (svc *Service) OverallStats(ctx context.Context) (Overall, error) {
	students, err := svc.repo.QueryStudentGPAs(ctx)
	if err != nil {
		return Overall{}, errors.Wrap(err, "querying student GPAs")
	}
	return OverallStats(students), nil
}

func (svc *Service) RiskByClass(ctx context.Context) (RiskReport, error) {
	students, err := svc.repo.QueryStudentGPAs(ctx)
	if err != nil {
		return RiskReport{}, errors.Wrap(err, "querying student GPAs")
	}
	return RiskByClass(students), nil
}

// PersonalStats returns ErrStudentNotFound when the student does not exist.
func (svc *Service) PersonalStats(ctx context.Context, studentID int) (Personal, error) {
	gpa, err := svc.repo.GetStudentGPA(ctx, studentID)
	if err != nil {
		return Personal{}, err
	}
	scores, err := svc.repo.QuerySubjectScores(ctx, studentID)
	if err != nil {
		return Personal{}, errors.Wrap(err, "querying subject scores")
	}
	return PersonalStats(studentID, gpa, scores), nil
}

// Distribution counts students per GPA bin [0,1) [1,2) [2,3) [3,4).
func Distribution(students []StudentGPA) []Bin {
	bins := make([]Bin, len(binEdges))
	for i, edge := range binEdges {
		bins[i] = Bin{Label: fmt.Sprintf("%.1f-%.1f", edge[0], edge[1]), Min: edge[0], Max: edge[1]}
	}
	for _, s := range students {
		for i := range bins {
			if s.GPA >= bins[i].Min && s.GPA < bins[i].Max {
				bins[i].Count++
				break
			}
		}
	}
	return bins
}

// AverageByClass averages GPAs per class, ordered by class name. Students without a class are left out.
func AverageByClass(students []StudentGPA) []ClassAverage {
	type acc struct {
		id   int
		gpas []float64
	}
	byClass := make(map[string]*acc)
	for _, s := range students {
		if s.ClassID == nil {
			continue
		}
		a, ok := byClass[s.ClassName]
		if !ok {
			a = &acc{id: *s.ClassID}
			byClass[s.ClassName] = a
		}
		a.gpas = append(a.gpas, s.GPA)
	}

	out := make([]ClassAverage, 0, len(byClass))
	for name, a := range byClass {
		mean, _ := stats.Mean(a.gpas)
		out = append(out, ClassAverage{
			ClassID:    a.id,
			ClassName:  name,
			Students:   len(a.gpas),
			AverageGPA: core.Round(mean, 2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassName < out[j].ClassName })
	return out
}

// OverallStats is all zeros when there are no students.
func OverallStats(students []StudentGPA) Overall {
	if len(students) == 0 {
		return Overall{}
	}
	gpas := make(stats.Float64Data, 0, len(students))
	for _, s := range students {
		gpas = append(gpas, s.GPA)
	}
	mean, _ := gpas.Mean()
	lo, _ := gpas.Min()
	hi, _ := gpas.Max()
	return Overall{
		TotalStudents: len(students),
		AverageGPA:    core.Round(mean, 2),
		MinGPA:        lo,
		MaxGPA:        hi,
	}
}

// RiskByClass splits each class at HighRiskGPA. The All row sums the class rows.
func RiskByClass(students []StudentGPA) RiskReport {
	byClass := make(map[string]*RiskCount)
	for _, s := range students {
		if s.ClassID == nil {
			continue
		}
		rc, ok := byClass[s.ClassName]
		if !ok {
			rc = &RiskCount{}
			byClass[s.ClassName] = rc
		}
		rc.Total++
		if s.GPA < HighRiskGPA {
			rc.HighRisk++
		} else {
			rc.LowRisk++
		}
	}

	report := RiskReport{Classes: make([]ClassRisk, 0, len(byClass))}
	for name, rc := range byClass {
		report.Classes = append(report.Classes, ClassRisk{ClassName: name, RiskCount: *rc})
		report.All.Total += rc.Total
		report.All.HighRisk += rc.HighRisk
		report.All.LowRisk += rc.LowRisk
	}
	sort.Slice(report.Classes, func(i, j int) bool { return report.Classes[i].ClassName < report.Classes[j].ClassName })
	return report
}

// PersonalStats weighs each completed subject as (midterm + 2*final) / 3.
// Subject averages are rounded for display only; AverageScore is rounded once, from the raw averages.
// This is not the 0.4/0.6 composite used for the GPA; both are kept on purpose.
func PersonalStats(studentID int, gpa float64, scores []SubjectScore) Personal {
	p := Personal{
		StudentID:     studentID,
		GPA:           gpa,
		TotalSubjects: len(scores),
		Subjects:      []SubjectAverage{},
		PredictedGPA:  gpa,
		RiskLevel:     RiskLevel(gpa),
	}
	if len(scores) == 0 {
		return p
	}

	averages := make([]float64, 0, len(scores))
	for _, sc := range scores {
		if sc.Midterm == nil || sc.Final == nil {
			continue
		}
		avg := (*sc.Midterm + *sc.Final*2) / 3
		averages = append(averages, avg)
		p.Subjects = append(p.Subjects, SubjectAverage{
			SubjectID:   sc.SubjectID,
			SubjectCode: sc.SubjectCode,
			SubjectName: sc.SubjectName,
			Midterm:     *sc.Midterm,
			Final:       *sc.Final,
			Average:     core.Round(avg, 2),
		})
	}
	p.CompletedSubjects = len(averages)
	if len(averages) > 0 {
		mean, _ := stats.Mean(averages)
		p.AverageScore = core.Round(mean, 2)
	}
	p.PredictedGPA = core.Round(math.Min(maxGPA, gpa+projectionStep), 2)
	return p
}

func RiskLevel(gpa float64) string {
	if gpa >= PersonalRiskGPA {
		return RiskLow
	}
	return RiskHigh
}
