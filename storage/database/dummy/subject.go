package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/alama/core/subject"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) CheckCodeUniqueness(_ context.Context, code string, excludedSubjects ...subject.Subject) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[int]struct{}, len(excludedSubjects))
	for _, s := range excludedSubjects {
		excluded[s.ID] = struct{}{}
	}
	for _, s := range repo.db.subjects {
		if _, skip := excluded[s.ID]; skip {
			continue
		}
		if strings.EqualFold(s.Code, code) {
			return subject.ErrCodeExists
		}
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, s subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = repo.db.nextID("subject")
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *subjectRepository) GetSubject(_ context.Context, id int) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) QuerySubjects(_ context.Context, filter subject.QueryFilter) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	subjects := make([]subject.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Code), search) {
			continue
		}
		subjects = append(subjects, *s)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Name != subjects[j].Name {
			return subjects[i].Name < subjects[j].Name
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects, nil
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, s subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[s.ID]; !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *subjectRepository) HasGrades(_ context.Context, id int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, g := range repo.db.grades {
		if g.SubjectID == id {
			return true, nil
		}
	}
	return false, nil
}

// DeleteSubject cascades to the subject's enrollments.
func (repo *subjectRepository) DeleteSubject(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	delete(repo.db.subjects, id)
	for eid, e := range repo.db.enrollments {
		if e.SubjectID == id {
			delete(repo.db.enrollments, eid)
		}
	}
	return nil
}
