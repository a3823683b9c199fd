package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) IsEnrolled(_ context.Context, studentID, subjectID int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.isEnrolled(studentID, subjectID), nil
}

func (repo *gradeRepository) GetGrade(_ context.Context, filter grade.GetFilter, _ ...core.DBExecutor) (grade.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != 0 {
		if g, ok := repo.db.grades[filter.ID]; ok {
			return *g, nil
		}
		return grade.Grade{}, grade.ErrNotFound
	}
	if g, ok := repo.db.pairGrade(filter.StudentID, filter.SubjectID); ok {
		return *g, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (repo *gradeRepository) CreateGrade(_ context.Context, g grade.Grade, _ ...core.DBExecutor) (grade.Grade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, exists := repo.db.pairGrade(g.StudentID, g.SubjectID); exists {
		return grade.Grade{}, grade.ErrDuplicateGrade
	}
	g.ID = repo.db.nextID("grade")
	repo.db.grades[g.ID] = &g
	return g, nil
}

func (repo *gradeRepository) UpdateGrade(_ context.Context, g grade.Grade, _ ...core.DBExecutor) (grade.Grade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grades[g.ID]; !ok {
		return grade.Grade{}, grade.ErrNotFound
	}
	if other, exists := repo.db.pairGrade(g.StudentID, g.SubjectID); exists && other.ID != g.ID {
		return grade.Grade{}, grade.ErrDuplicateGrade
	}
	repo.db.grades[g.ID] = &g
	return g, nil
}

func (repo *gradeRepository) DeleteGrade(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return grade.ErrNotFound
	}
	delete(repo.db.grades, id)
	return nil
}

func (repo *gradeRepository) QueryComposites(_ context.Context, studentID int, _ ...core.DBExecutor) ([]float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []int
	for _, g := range repo.db.grades {
		if g.StudentID == studentID {
			ids = append(ids, g.ID)
		}
	}
	sort.Ints(ids)
	composites := make([]float64, 0, len(ids))
	for _, id := range ids {
		composites = append(composites, repo.db.grades[id].Composite)
	}
	return composites, nil
}

func (repo *gradeRepository) SetStudentGPA(_ context.Context, studentID int, gpa float64, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.students[studentID]
	if !ok {
		return grade.ErrNotFound
	}
	s.GPA = gpa
	return nil
}

func (repo *gradeRepository) QueryEntries(_ context.Context, filter grade.EntryFilter) ([]grade.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]grade.Entry, 0)
	for _, e := range repo.db.enrollments {
		if filter.StudentID != 0 && e.StudentID != filter.StudentID {
			continue
		}
		if filter.SubjectID != 0 && e.SubjectID != filter.SubjectID {
			continue
		}
		s, ok := repo.db.students[e.StudentID]
		if !ok {
			continue
		}
		if filter.ClassID != 0 && (s.ClassID == nil || *s.ClassID != filter.ClassID) {
			continue
		}
		subj, ok := repo.db.subjects[e.SubjectID]
		if !ok {
			continue
		}

		entry := grade.Entry{
			StudentID:   s.ID,
			StudentCode: s.Code,
			StudentName: s.Name,
			ClassName:   repo.db.className(s.ClassID),
			SubjectID:   subj.ID,
			SubjectCode: subj.Code,
			SubjectName: subj.Name,
			Mark:        grade.Ungraded{},
		}
		if g, graded := repo.db.pairGrade(s.ID, subj.ID); graded {
			entry.Mark = grade.Graded{Grade: *g}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.ClassName != b.ClassName:
			return a.ClassName < b.ClassName
		case a.StudentName != b.StudentName:
			return a.StudentName < b.StudentName
		case a.StudentID != b.StudentID:
			return a.StudentID < b.StudentID
		default:
			return a.SubjectName < b.SubjectName
		}
	})
	return entries, nil
}
