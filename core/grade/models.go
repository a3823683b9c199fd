package grade

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

type Grade struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"`
	SubjectID int       `json:"subject_id"`
	Midterm   *float64  `json:"midterm"`
	Final     *float64  `json:"final"`
	Composite float64   `json:"composite"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Completed reports whether both exam scores are recorded.
func (g Grade) Completed() bool {
	return g.Midterm != nil && g.Final != nil
}

// NewGrade contains information needed to record a Grade.
type NewGrade struct {
	StudentID int      `json:"student_id" validate:"required,gt=0"`
	SubjectID int      `json:"subject_id" validate:"required,gt=0"`
	Midterm   *float64 `json:"midterm" validate:"omitempty,score"`
	Final     *float64 `json:"final" validate:"omitempty,score"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	return validate.Struct(ng)
}

// UpdateGrade replaces both scores of a Grade.
// A zero StudentID or SubjectID keeps the current one.
type UpdateGrade struct {
	StudentID int      `json:"student_id" validate:"omitempty,gt=0"`
	SubjectID int      `json:"subject_id" validate:"omitempty,gt=0"`
	Midterm   *float64 `json:"midterm" validate:"omitempty,score"`
	Final     *float64 `json:"final" validate:"omitempty,score"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	return validate.Struct(ug)
}

type GetFilter struct {
	ID        int
	StudentID int
	SubjectID int
}

// EntryFilter narrows a roster listing. Zero values match everything.
type EntryFilter struct {
	SubjectID int `query:"subject_id"`
	ClassID   int `query:"class_id"`
	StudentID int `query:"student_id"`
}

// Mark is what a roster Entry holds for its (student, subject) pair: Graded or Ungraded.
type Mark interface {
	isMark()
}

type (
	Graded struct {
		Grade Grade
	}

	Ungraded struct{}
)

func (Graded) isMark()   {}
func (Ungraded) isMark() {}

const (
	StatusGraded   = "graded"
	StatusUngraded = "ungraded"
)

// Entry is one enrolled (student, subject) pair on a roster.
type Entry struct {
	StudentID   int
	StudentCode string
	StudentName string
	ClassName   string
	SubjectID   int
	SubjectCode string
	SubjectName string
	Mark        Mark
}

// Grade returns the recorded Grade, if any.
func (e Entry) Grade() (Grade, bool) {
	if g, ok := e.Mark.(Graded); ok {
		return g.Grade, true
	}
	return Grade{}, false
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := struct {
		StudentID   int    `json:"student_id"`
		StudentCode string `json:"student_code"`
		StudentName string `json:"student_name"`
		ClassName   string `json:"class_name"`
		SubjectID   int    `json:"subject_id"`
		SubjectCode string `json:"subject_code"`
		SubjectName string `json:"subject_name"`
		Status      string `json:"status"`
		Grade       *Grade `json:"grade,omitempty"`
	}{
		StudentID:   e.StudentID,
		StudentCode: e.StudentCode,
		StudentName: e.StudentName,
		ClassName:   e.ClassName,
		SubjectID:   e.SubjectID,
		SubjectCode: e.SubjectCode,
		SubjectName: e.SubjectName,
		Status:      StatusUngraded,
	}
	if g, ok := e.Grade(); ok {
		out.Status = StatusGraded
		out.Grade = &g
	}
	return json.Marshal(out)
}
