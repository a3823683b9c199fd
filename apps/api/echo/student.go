package echoapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/user"
)

var errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

type (
	classApi struct {
		svc      *student.Service
		validate *validator.Validate
	}

	studentApi struct {
		svc           *student.Service
		userSvc       *user.Service
		enrollmentSvc *enrollment.Service
		analyticsSvc  *analytics.Service
		validate      *validator.Validate
		accounts      core.AccountsConfig
	}
)

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{svc: deps.StudentSvc, validate: deps.Validate}

	cg := g.Group("/classes", jwt, adminMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create)
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		svc:           deps.StudentSvc,
		userSvc:       deps.UserSvc,
		enrollmentSvc: deps.EnrollmentSvc,
		analyticsSvc:  deps.AnalyticsSvc,
		validate:      deps.Validate,
		accounts:      deps.Conf.Accounts,
	}

	sg := g.Group("/students", jwt, adminMiddleware())
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.POST("/import", api.importCSV)
	sg.GET("/export", api.exportCSV)
	sg.POST("/accounts", api.createAccounts)

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(func(ctx echo.Context, id int) (interface{}, error) {
		return api.svc.GetByID(ctx.Request().Context(), id)
	}))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/enrollments", api.queryEnrollments)
	dg.POST("/enrollments", api.enroll)
	dg.DELETE("/enrollments", api.unenroll)
	dg.GET("/stats", api.stats)
}

// Classes

func (api *classApi) query(ctx echo.Context) error {
	classes, err := api.svc.QueryClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []student.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data student.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	class, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

// Students

func studentFilter(ctx echo.Context) student.QueryFilter {
	return student.QueryFilter{Search: ctx.QueryParam("search"), ClassID: queryID(ctx, "class_id")}
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.Query(ctx.Request().Context(), studentFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(s, api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) importCSV(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	rows, err := student.ReadCSV(f)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "invalid CSV file"})
	}
	added, err := api.svc.Import(ctx.Request().Context(), rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: added})
}

func (api *studentApi) exportCSV(ctx echo.Context) error {
	students, err := api.svc.Export(ctx.Request().Context(), studentFilter(ctx))
	if err != nil {
		return errors.Wrap(err, "exporting students")
	}
	var buf bytes.Buffer
	if err = student.WriteCSV(&buf, students); err != nil {
		return errors.Wrap(err, "writing csv")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="students.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *studentApi) createAccounts(ctx echo.Context) error {
	students, err := api.svc.Query(ctx.Request().Context(), student.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	created, err := api.userSvc.CreateStudentAccounts(ctx.Request().Context(), student.AccountSeeds(students), api.accounts)
	if err != nil {
		return errors.Wrap(err, "creating student accounts")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: created})
}

func (api *studentApi) queryEnrollments(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	enrollments, err := api.enrollmentSvc.Query(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *studentApi) enroll(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return enroll(ctx, api.enrollmentSvc, api.validate, s.ID)
}

func (api *studentApi) unenroll(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var subjectIDs []int
	for _, v := range ctx.QueryParams()["subject_id"] {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "invalid subject id: " + v})
		}
		subjectIDs = append(subjectIDs, id)
	}
	if len(subjectIDs) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "this field is required"})
	}

	res, err := api.enrollmentSvc.UnenrollMany(ctx.Request().Context(), s.ID, subjectIDs)
	if err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) stats(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	stats, err := api.analyticsSvc.PersonalStats(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "computing personal stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// enroll registers studentID for the subjects in the request body; shared by admin and self-service routes.
func enroll(ctx echo.Context, svc *enrollment.Service, validate *validator.Validate, studentID int) error {
	var data enrollment.EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := validate.Struct(data); err != nil {
		return err
	}

	created, err := svc.Enroll(ctx.Request().Context(), studentID, data.SubjectIDs)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: created})
}

// CountResponse reports how many records an operation created or imported.
type CountResponse struct {
	Count int `json:"count"`
}
