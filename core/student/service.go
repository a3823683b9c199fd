package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("student")
	ErrClassNotFound = core.NewNotFoundError("class")
	ErrCodeExists    = errors.New("a student with this code already exists")
	ErrClassExists   = errors.New("a class with this name already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedStudents ...Student) error
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		GetStudentByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND on the filter fields and orders by class name then student name.
		// QueryFilter.Search does a case-insensitive match on Student.Name or Student.Code.
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		// UpdateStudent never touches the stored GPA.
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error

		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClass(ctx context.Context, id int) (Class, error)
		GetClassByName(ctx context.Context, name string, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context) ([]Class, error)
	}

	// AccountRemover deletes the user accounts linked to a student.
	AccountRemover interface {
		DeleteStudentAccounts(ctx context.Context, studentID int, exec ...core.DBExecutor) error
	}

	Service struct {
		db       core.Transactor
		repo     Repository
		accounts AccountRemover
	}
)

func NewService(db core.Transactor, repo Repository, accounts AccountRemover) *Service {
	return &Service{db: db, repo: repo, accounts: accounts}
}

func (svc *Service) checkUniqueness(code string, exclStudents ...Student) error {
	if err := svc.repo.CheckCodeUniqueness(context.Background(), code, exclStudents...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

// checkClass reports an unknown class as a validation error on class_id.
func (svc *Service) checkClass(ctx context.Context, classID *int) error {
	if classID == nil {
		return nil
	}
	if _, err := svc.repo.GetClass(ctx, *classID); err != nil {
		if errors.Cause(err) == ErrClassNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding class")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	birthDate, err := parseDate(ns.BirthDate)
	if err != nil {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "birth_date", Error: "invalid date"})
	}
	if err = svc.checkClass(ctx, ns.ClassID); err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	s := Student{
		Code:      ns.Code,
		Name:      ns.Name,
		BirthDate: birthDate,
		Gender:    ns.Gender,
		ClassID:   ns.ClassID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Student, error) {
	return svc.repo.GetStudentByCode(ctx, core.CleanString(code))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	birthDate, err := parseDate(us.BirthDate)
	if err != nil {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "birth_date", Error: "invalid date"})
	}
	if err = svc.checkClass(ctx, us.ClassID); err != nil {
		return Student{}, err
	}
	s := orig
	s.Code = us.Code
	s.Name = us.Name
	s.BirthDate = birthDate
	s.Gender = us.Gender
	s.ClassID = us.ClassID
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

// Delete removes a student along with the linked account; enrollments and grades cascade.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetStudent(ctx, id, tx); err != nil {
			return err
		}
		if err := svc.accounts.DeleteStudentAccounts(ctx, id, tx); err != nil {
			return errors.Wrap(err, "deleting student accounts")
		}
		return svc.repo.DeleteStudent(ctx, id, tx)
	})
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if _, err := svc.repo.GetClassByName(ctx, nc.Name); err == nil {
		return Class{}, core.NewValidationError(ErrClassExists, core.FieldError{Field: "name", Error: ErrClassExists.Error()})
	} else if errors.Cause(err) != ErrClassNotFound {
		return Class{}, errors.Wrap(err, "finding class by name")
	}
	return svc.repo.CreateClass(ctx, Class{Name: nc.Name})
}

func (svc *Service) QueryClasses(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryClasses(ctx)
}
