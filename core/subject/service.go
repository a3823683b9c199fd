package subject

import (
	"context"
	"errors"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("subject")
	ErrCodeExists = errors.New("a subject with this code already exists")
	ErrHasGrades  = core.NewConflictError("subject cannot be deleted while grades reference it")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects ...Subject) error
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		// QuerySubjects orders by name; QueryFilter.Search matches name or code case-insensitively.
		QuerySubjects(ctx context.Context, filter QueryFilter) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		HasGrades(ctx context.Context, id int) (bool, error)
		DeleteSubject(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(code string, exclSubjects ...Subject) error {
	if err := svc.repo.CheckCodeUniqueness(context.Background(), code, exclSubjects...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, Subject{
		Code:        ns.Code,
		Name:        ns.Name,
		Description: ns.Description,
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Subject, error) {
	filter.Clean()
	return svc.repo.QuerySubjects(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, orig Subject, us UpdateSubject) (Subject, error) {
	s := orig
	s.Code = us.Code
	s.Name = us.Name
	if us.Description != nil {
		s.Description = *us.Description
	}
	return svc.repo.UpdateSubject(ctx, s)
}

// Delete refuses to remove a subject that still has grades.
func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetSubject(ctx, id); err != nil {
		return err
	}
	graded, err := svc.repo.HasGrades(ctx, id)
	if err != nil {
		return err
	}
	if graded {
		return ErrHasGrades
	}
	return svc.repo.DeleteSubject(ctx, id)
}
