package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/predict"
)

type AnalyticsRepository struct {
	db *DB
}

var (
	_ analytics.Repository = (*AnalyticsRepository)(nil) // interface compliance check
	_ predict.Repository   = (*AnalyticsRepository)(nil)
)

// NewAnalyticsRepository serves both the analytics and the predictive scoring reads.
func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (repo *AnalyticsRepository) QueryStudentGPAs(_ context.Context) ([]analytics.StudentGPA, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]analytics.StudentGPA, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		out = append(out, analytics.StudentGPA{
			StudentID: s.ID,
			ClassID:   s.ClassID,
			ClassName: repo.db.className(s.ClassID),
			GPA:       s.GPA,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (repo *AnalyticsRepository) GetStudentGPA(_ context.Context, studentID int) (float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[studentID]; ok {
		return s.GPA, nil
	}
	return 0, analytics.ErrStudentNotFound
}

func (repo *AnalyticsRepository) QuerySubjectScores(_ context.Context, studentID int) ([]analytics.SubjectScore, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	scores := make([]analytics.SubjectScore, 0)
	for _, e := range repo.db.enrollments {
		if e.StudentID != studentID {
			continue
		}
		subj, ok := repo.db.subjects[e.SubjectID]
		if !ok {
			continue
		}
		sc := analytics.SubjectScore{SubjectID: subj.ID, SubjectCode: subj.Code, SubjectName: subj.Name}
		if g, graded := repo.db.pairGrade(studentID, subj.ID); graded {
			sc.Midterm = g.Midterm
			sc.Final = g.Final
		}
		scores = append(scores, sc)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].SubjectName != scores[j].SubjectName {
			return scores[i].SubjectName < scores[j].SubjectName
		}
		return scores[i].SubjectID < scores[j].SubjectID
	})
	return scores, nil
}

func (repo *AnalyticsRepository) QueryScoreRows(_ context.Context, filter predict.Filter) ([]predict.Row, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]predict.Row, 0, len(repo.db.grades))
	for _, g := range repo.db.grades {
		if filter.SubjectID != 0 && g.SubjectID != filter.SubjectID {
			continue
		}
		s, ok := repo.db.students[g.StudentID]
		if !ok {
			continue
		}
		subj, ok := repo.db.subjects[g.SubjectID]
		if !ok {
			continue
		}
		row := predict.Row{
			StudentID:   s.ID,
			StudentCode: s.Code,
			StudentName: s.Name,
			SubjectID:   subj.ID,
			SubjectName: subj.Name,
			Composite:   g.Composite,
		}
		if g.Midterm != nil {
			row.Midterm = *g.Midterm
		}
		if g.Final != nil {
			row.Final = *g.Final
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.StudentName != b.StudentName:
			return a.StudentName < b.StudentName
		case a.StudentID != b.StudentID:
			return a.StudentID < b.StudentID
		default:
			return a.SubjectName < b.SubjectName
		}
	})
	return rows, nil
}
