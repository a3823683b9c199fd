package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/grade"
)

// meApi serves the student portal; every route acts on the caller's own student record.
type meApi struct {
	gradeSvc      *grade.Service
	enrollmentSvc *enrollment.Service
	analyticsSvc  *analytics.Service
	validate      *validator.Validate
}

func registerMeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := meApi{
		gradeSvc:      deps.GradeSvc,
		enrollmentSvc: deps.EnrollmentSvc,
		analyticsSvc:  deps.AnalyticsSvc,
		validate:      deps.Validate,
	}

	mg := g.Group("/me", jwt, studentMiddleware())
	mg.GET("/grades", api.grades)
	mg.GET("/stats", api.stats)
	mg.GET("/enrollments", api.enrollments)
	mg.POST("/enrollments", api.enroll)
}

func (api *meApi) grades(ctx echo.Context) error {
	studentID, err := getContextStudentID(ctx)
	if err != nil {
		return err
	}
	entries, err := api.gradeSvc.StudentEntries(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying student grades")
	}
	if entries == nil {
		entries = []grade.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *meApi) stats(ctx echo.Context) error {
	studentID, err := getContextStudentID(ctx)
	if err != nil {
		return err
	}
	stats, err := api.analyticsSvc.PersonalStats(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing personal stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *meApi) enrollments(ctx echo.Context) error {
	studentID, err := getContextStudentID(ctx)
	if err != nil {
		return err
	}
	enrollments, err := api.enrollmentSvc.Query(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *meApi) enroll(ctx echo.Context) error {
	studentID, err := getContextStudentID(ctx)
	if err != nil {
		return err
	}
	return enroll(ctx, api.enrollmentSvc, api.validate, studentID)
}
