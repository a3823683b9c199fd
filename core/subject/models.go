package subject

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

type Subject struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Code        string `json:"code" validate:"required,max=20,alphanum_"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, svc *Service) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.Code)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
type UpdateSubject struct {
	Code        string  `json:"code" validate:"omitempty,max=20,alphanum_"`
	Name        string  `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description"`
}

func (us *UpdateSubject) Validate(orig Subject, validate *validator.Validate, svc *Service) error {
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
	if us.Description != nil {
		desc := core.CleanString(*us.Description)
		us.Description = &desc
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.checkUniqueness(us.Code, orig)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
