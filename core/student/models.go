package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

const dateLayout = "2006-01-02"

type Class struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Student struct {
	ID        int        `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date"`
	Gender    string     `json:"gender"`
	ClassID   *int       `json:"class_id"`
	ClassName string     `json:"class_name"`
	GPA       float64    `json:"gpa"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	UpdatedAt time.Time  `json:"updated_at"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name string `json:"name" validate:"required,max=50"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Code      string `json:"code" validate:"required,max=20,alphanum_"`
	Name      string `json:"name" validate:"required,max=100"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender    string `json:"gender" validate:"omitempty,max=10"`
	ClassID   *int   `json:"class_id" validate:"omitempty,gt=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc *Service) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.BirthDate = core.CleanString(ns.BirthDate)
	ns.Gender = core.CleanString(ns.Gender)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.Code)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty strings keep the current values.
type UpdateStudent struct {
	Code      string `json:"code" validate:"omitempty,max=20,alphanum_"`
	Name      string `json:"name" validate:"omitempty,max=100"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender    string `json:"gender" validate:"omitempty,max=10"`
	ClassID   *int   `json:"class_id" validate:"omitempty,gt=0"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate, svc *Service) error {
	if code := core.CleanString(us.Code); code != "" {
		us.Code = code
	} else {
		us.Code = orig.Code
	}
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	us.BirthDate = core.CleanString(us.BirthDate)
	if us.BirthDate == "" && orig.BirthDate != nil {
		us.BirthDate = orig.BirthDate.Format(dateLayout)
	}
	if gender := core.CleanString(us.Gender); gender != "" {
		us.Gender = gender
	} else {
		us.Gender = orig.Gender
	}
	if us.ClassID == nil {
		us.ClassID = orig.ClassID
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.checkUniqueness(us.Code, orig)
}

type QueryFilter struct {
	Search  string `query:"search"`
	ClassID int    `query:"class_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassID == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
