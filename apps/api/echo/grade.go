package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/grade"
)

type gradeApi struct {
	svc      *grade.Service
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{svc: deps.GradeSvc, validate: deps.Validate}

	gg := g.Group("/grades", jwt, adminMiddleware())
	gg.GET("", api.query)
	gg.POST("", api.create)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update)
	gg.DELETE("/:id", api.destroy)
}

// query lists the roster: every enrolled pair, graded or not.
func (api *gradeApi) query(ctx echo.Context) error {
	filter := grade.EntryFilter{
		SubjectID: queryID(ctx, "subject_id"),
		ClassID:   queryID(ctx, "class_id"),
		StudentID: queryID(ctx, "student_id"),
	}

	entries, err := api.svc.QueryEntries(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying roster entries")
	}
	if entries == nil {
		entries = []grade.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *gradeApi) create(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	g, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	g, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding grade by ID")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var data grade.UpdateGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	g, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}
