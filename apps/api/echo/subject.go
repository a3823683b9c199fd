package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/subject"
)

var errSubjectNotFoundInCtx = errors.New("subject object not found in echo.Context")

type subjectApi struct {
	svc      *subject.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := subjectApi{svc: deps.SubjectSvc, validate: deps.Validate}

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(func(ctx echo.Context, id int) (interface{}, error) {
		return api.svc.GetByID(ctx.Request().Context(), id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *subjectApi) query(ctx echo.Context) error {
	filter := new(subject.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []subject.Subject{})
	}

	subjects, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(subject.Subject)
	if !ok {
		return errors.Wrap(errSubjectNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) update(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(subject.Subject)
	if !ok {
		return errors.Wrap(errSubjectNotFoundInCtx, "retrieving object from context")
	}

	var data subject.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err := data.Validate(s, api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(subject.Subject)
	if !ok {
		return errors.Wrap(errSubjectNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
