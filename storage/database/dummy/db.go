package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

// DB is an in-memory database holding every table of the application.
// Transactions are serialized but never rolled back: a failing unit of work keeps the writes it made.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	seq  map[string]int

	classes     map[int]*student.Class
	students    map[int]*student.Student
	subjects    map[int]*subject.Subject
	enrollments map[int]*enrollment.Enrollment
	grades      map[int]*grade.Grade
	users       map[string]*user.User
}

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{
		seq:         make(map[string]int),
		classes:     make(map[int]*student.Class),
		students:    make(map[int]*student.Student),
		subjects:    make(map[int]*subject.Subject),
		enrollments: make(map[int]*enrollment.Enrollment),
		grades:      make(map[int]*grade.Grade),
		users:       make(map[string]*user.User),
	}
}

func (db *DB) InTx(_ context.Context, fn func(tx core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(nil)
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.seq = make(map[string]int)
	db.classes = make(map[int]*student.Class)
	db.students = make(map[int]*student.Student)
	db.subjects = make(map[int]*subject.Subject)
	db.enrollments = make(map[int]*enrollment.Enrollment)
	db.grades = make(map[int]*grade.Grade)
	db.users = make(map[string]*user.User)
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

func (db *DB) className(classID *int) string {
	if classID == nil {
		return ""
	}
	if c, ok := db.classes[*classID]; ok {
		return c.Name
	}
	return ""
}

func (db *DB) isEnrolled(studentID, subjectID int) bool {
	for _, e := range db.enrollments {
		if e.StudentID == studentID && e.SubjectID == subjectID {
			return true
		}
	}
	return false
}

func (db *DB) pairGrade(studentID, subjectID int) (*grade.Grade, bool) {
	for _, g := range db.grades {
		if g.StudentID == studentID && g.SubjectID == subjectID {
			return g, true
		}
	}
	return nil, false
}
