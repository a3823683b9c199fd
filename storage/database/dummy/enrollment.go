package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) read(e *enrollment.Enrollment) enrollment.Enrollment {
	out := *e
	if s, ok := repo.db.subjects[e.SubjectID]; ok {
		out.SubjectCode = s.Code
		out.SubjectName = s.Name
	}
	return out
}

func (repo *enrollmentRepository) StudentExists(_ context.Context, studentID int, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.students[studentID]
	return ok, nil
}

func (repo *enrollmentRepository) MissingSubjects(_ context.Context, subjectIDs []int, _ ...core.DBExecutor) ([]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var missing []int
	for _, id := range subjectIDs {
		if _, ok := repo.db.subjects[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, studentID, subjectID int, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.SubjectID == subjectID {
			return repo.read(e), nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.db.isEnrolled(e.StudentID, e.SubjectID) {
		return enrollment.Enrollment{}, core.NewConflictError("student is already enrolled in this subject")
	}
	e.ID = repo.db.nextID("enrollment")
	repo.db.enrollments[e.ID] = &e
	return repo.read(&e), nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, studentID int) ([]enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			enrollments = append(enrollments, repo.read(e))
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].SubjectName != enrollments[j].SubjectName {
			return enrollments[i].SubjectName < enrollments[j].SubjectName
		}
		return enrollments[i].SubjectID < enrollments[j].SubjectID
	})
	return enrollments, nil
}
