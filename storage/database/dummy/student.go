package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// read returns a copy of s with its class name joined.
func (repo *studentRepository) read(s *student.Student) student.Student {
	out := *s
	out.ClassName = repo.db.className(s.ClassID)
	return out
}

func (repo *studentRepository) CheckCodeUniqueness(_ context.Context, code string, excludedStudents ...student.Student) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[int]struct{}, len(excludedStudents))
	for _, s := range excludedStudents {
		excluded[s.ID] = struct{}{}
	}
	for _, s := range repo.db.students {
		if _, skip := excluded[s.ID]; skip {
			continue
		}
		if strings.EqualFold(s.Code, code) {
			return student.ErrCodeExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = repo.db.nextID("student")
	s.ClassName = ""
	repo.db.students[s.ID] = &s
	return repo.read(&s), nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return repo.read(s), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByCode(_ context.Context, code string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, s := range repo.db.students {
		if strings.EqualFold(s.Code, code) {
			return repo.read(s), nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Code), search) {
			continue
		}
		if filter.ClassID != 0 && (s.ClassID == nil || *s.ClassID != filter.ClassID) {
			continue
		}
		students = append(students, repo.read(s))
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].ClassName != students[j].ClassName {
			return students[i].ClassName < students[j].ClassName
		}
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.students[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	orig.Code = s.Code
	orig.Name = s.Name
	orig.BirthDate = s.BirthDate
	orig.Gender = s.Gender
	orig.ClassID = s.ClassID
	orig.UpdatedAt = s.UpdatedAt
	return repo.read(orig), nil
}

// DeleteStudent cascades to the student's enrollments, grades and accounts.
func (repo *studentRepository) DeleteStudent(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	for eid, e := range repo.db.enrollments {
		if e.StudentID == id {
			delete(repo.db.enrollments, eid)
		}
	}
	for gid, g := range repo.db.grades {
		if g.StudentID == id {
			delete(repo.db.grades, gid)
		}
	}
	for uid, u := range repo.db.users {
		if u.StudentID != nil && *u.StudentID == id {
			delete(repo.db.users, uid)
		}
	}
	return nil
}

func (repo *studentRepository) CreateClass(_ context.Context, c student.Class) (student.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = repo.db.nextID("class")
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *studentRepository) GetClass(_ context.Context, id int) (student.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return *c, nil
	}
	return student.Class{}, student.ErrClassNotFound
}

func (repo *studentRepository) GetClassByName(_ context.Context, name string, _ ...core.DBExecutor) (student.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, c := range repo.db.classes {
		if c.Name == name {
			return *c, nil
		}
	}
	return student.Class{}, student.ErrClassNotFound
}

func (repo *studentRepository) QueryClasses(_ context.Context) ([]student.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]student.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}
