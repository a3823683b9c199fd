package enrollment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/storage/database/dummy"
	"github.com/trezcool/alama/tests"
)

type env struct {
	svc       *enrollment.Service
	grades    *grade.Service
	gradeRepo grade.Repository
	students  student.Repository
	studentID int
	math, phy int
}

func setup(t *testing.T) env {
	db := dummydb.Open()
	e := env{
		gradeRepo: dummydb.NewGradeRepository(db),
		students:  dummydb.NewStudentRepository(db),
	}
	e.grades = grade.NewService(db, e.gradeRepo)
	e.svc = enrollment.NewService(db, dummydb.NewEnrollmentRepository(db), e.grades)

	subjects := dummydb.NewSubjectRepository(db)
	e.studentID = testutil.CreateStudent(t, e.students, "S001", "Alice", nil).ID
	e.math = testutil.CreateSubject(t, subjects, "MATH", "Mathematics").ID
	e.phy = testutil.CreateSubject(t, subjects, "PHY", "Physics").ID
	return e
}

func TestService_Enroll(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.svc.Enroll(ctx, 999, []int{e.math})
	assert.Equal(t, enrollment.ErrStudentNotFound, err)

	_, err = e.svc.Enroll(ctx, e.studentID, []int{e.math, 77, 42, 77})
	require.IsType(t, &core.ValidationError{}, err)
	assert.Equal(t, []core.FieldError{{Field: "subject_ids", Error: "unknown subject ids: 42, 77"}}, err.(*core.ValidationError).Fields)

	// nothing was written by the rejected batch
	enrolled, err := e.svc.Query(ctx, e.studentID)
	require.NoError(t, err)
	assert.Empty(t, enrolled)

	created, err := e.svc.Enroll(ctx, e.studentID, []int{e.phy, e.math, e.math})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = e.svc.Enroll(ctx, e.studentID, []int{e.math})
	require.NoError(t, err)
	assert.Zero(t, created)

	enrolled, err = e.svc.Query(ctx, e.studentID)
	require.NoError(t, err)
	require.Len(t, enrolled, 2)
	assert.Equal(t, "MATH", enrolled[0].SubjectCode)
	assert.Equal(t, "Physics", enrolled[1].SubjectName)
}

func TestService_Unenroll(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Enroll(ctx, e.studentID, []int{e.math, e.phy})
	require.NoError(t, err)

	_, err = e.grades.Create(ctx, grade.NewGrade{StudentID: e.studentID, SubjectID: e.math, Midterm: core.Float64(10), Final: core.Float64(10)})
	require.NoError(t, err)
	_, err = e.grades.Create(ctx, grade.NewGrade{StudentID: e.studentID, SubjectID: e.phy, Midterm: core.Float64(5), Final: core.Float64(5)})
	require.NoError(t, err)
	s, err := e.students.GetStudent(ctx, e.studentID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.GPA)

	require.NoError(t, e.svc.Unenroll(ctx, e.studentID, e.phy))
	assert.Equal(t, enrollment.ErrNotFound, e.svc.Unenroll(ctx, e.studentID, e.phy))

	s, err = e.students.GetStudent(ctx, e.studentID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, s.GPA)

	entries, err := e.grades.StudentEntries(ctx, e.studentID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.math, entries[0].SubjectID)
}

func TestService_UnenrollMany(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Enroll(ctx, e.studentID, []int{e.math, e.phy})
	require.NoError(t, err)
	_, err = e.grades.Create(ctx, grade.NewGrade{StudentID: e.studentID, SubjectID: e.math, Final: core.Float64(10)})
	require.NoError(t, err)

	res, err := e.svc.UnenrollMany(ctx, e.studentID, nil)
	require.NoError(t, err)
	assert.Equal(t, enrollment.UnenrollResult{Removed: []int{}, NotFound: []int{}}, res)

	res, err = e.svc.UnenrollMany(ctx, e.studentID, []int{99, e.math, e.math})
	require.NoError(t, err)
	assert.Equal(t, enrollment.UnenrollResult{Removed: []int{e.math}, NotFound: []int{99}}, res)

	s, err := e.students.GetStudent(ctx, e.studentID)
	require.NoError(t, err)
	assert.Zero(t, s.GPA)

	enrolled, err := e.svc.Query(ctx, e.studentID)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, e.phy, enrolled[0].SubjectID)
}
