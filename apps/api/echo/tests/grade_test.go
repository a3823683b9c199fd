package tests

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/tests"
)

func studentGPA(t *testing.T, s student.Student) float64 {
	t.Helper()
	stored, err := stdRepo.GetStudent(context.Background(), s.ID)
	require.NoError(t, err)
	return stored.GPA
}

func Test_gradeApi_create(t *testing.T) {
	f := setup(t)
	testutil.Enroll(t, enrRepo, f.alice.ID, f.math.ID, f.physic.ID)

	newGrade := func(studentID, subjectID int, mid, fin *float64) []byte {
		return marchallObj(t, grade.NewGrade{StudentID: studentID, SubjectID: subjectID, Midterm: mid, Final: fin})
	}

	tests := []httpTest{
		{
			name:     "student",
			token:    f.aliceToken,
			body:     newGrade(f.alice.ID, f.math.ID, core.Float64(8), core.Float64(9)),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "missing ids",
			token:    f.adminToken,
			body:     []byte(`{"midterm": 5}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"student_id": "this field is required",
				"subject_id": "this field is required",
			}),
		},
		{
			name:     "score out of range",
			token:    f.adminToken,
			body:     newGrade(f.alice.ID, f.math.ID, core.Float64(10.5), core.Float64(-1)),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"midterm": "score must be between 0 and 10",
				"final":   "score must be between 0 and 10",
			}),
		},
		{
			name:     "not enrolled",
			token:    f.adminToken,
			body:     newGrade(f.bob.ID, f.math.ID, core.Float64(8), core.Float64(9)),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: grade.ErrNotEnrolled.Error()}),
		},
		{
			name:     "ok",
			token:    f.adminToken,
			body:     newGrade(f.alice.ID, f.math.ID, core.Float64(8), core.Float64(9)),
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate",
			token:    f.adminToken,
			body:     newGrade(f.alice.ID, f.math.ID, core.Float64(2), core.Float64(3)),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: grade.ErrDuplicateGrade.Error()}),
		},
		{
			name:     "midterm only",
			token:    f.adminToken,
			body:     newGrade(f.alice.ID, f.physic.ID, core.Float64(5), nil),
			wantCode: http.StatusCreated,
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/grades"
	}
	runHTTPTests(t, tests)

	// composites 8.6 and 2.0 average to 5.3, i.e. 2.12 on the GPA scale
	assert.Equal(t, 2.12, studentGPA(t, f.alice))
	assert.Equal(t, 0.0, studentGPA(t, f.bob))

	g, err := gradeRepo.GetGrade(context.Background(), grade.GetFilter{StudentID: f.alice.ID, SubjectID: f.math.ID})
	require.NoError(t, err)
	assert.InDelta(t, 8.6, g.Composite, 1e-9)
	assert.True(t, g.Completed())
}

func Test_gradeApi_query(t *testing.T) {
	f := setup(t)
	testutil.Enroll(t, enrRepo, f.alice.ID, f.math.ID, f.physic.ID)
	testutil.Enroll(t, enrRepo, f.bob.ID, f.math.ID)
	g := testutil.CreateGrade(t, gradeRepo, f.alice.ID, f.math.ID, core.Float64(7), core.Float64(6))

	entry := func(s student.Student, subj int, code, name string, mark grade.Mark) grade.Entry {
		return grade.Entry{
			StudentID:   s.ID,
			StudentCode: s.Code,
			StudentName: s.Name,
			ClassName:   s.ClassName,
			SubjectID:   subj,
			SubjectCode: code,
			SubjectName: name,
			Mark:        mark,
		}
	}
	aliceMath := entry(f.alice, f.math.ID, f.math.Code, f.math.Name, grade.Graded{Grade: g})
	alicePhy := entry(f.alice, f.physic.ID, f.physic.Code, f.physic.Name, grade.Ungraded{})
	bobMath := entry(f.bob, f.math.ID, f.math.Code, f.math.Name, grade.Ungraded{})

	tests := []httpTest{
		{
			name:     "all",
			path:     "/v1/grades",
			wantCode: http.StatusOK,
			wantData: marchallList(t, bobMath, aliceMath, alicePhy),
		},
		{
			name:     "by subject",
			path:     "/v1/grades?subject_id=" + strconv.Itoa(f.math.ID),
			wantCode: http.StatusOK,
			wantData: marchallList(t, bobMath, aliceMath),
		},
		{
			name:     "by class",
			path:     "/v1/grades?class_id=" + strconv.Itoa(f.class.ID),
			wantCode: http.StatusOK,
			wantData: marchallList(t, aliceMath, alicePhy),
		},
		{
			name:     "by student",
			path:     "/v1/grades?student_id=" + strconv.Itoa(f.bob.ID),
			wantCode: http.StatusOK,
			wantData: marchallList(t, bobMath),
		},
		{
			name:     "malformed filters are ignored",
			path:     "/v1/grades?subject_id=math&class_id=-3&student_id=" + strconv.Itoa(f.bob.ID),
			wantCode: http.StatusOK,
			wantData: marchallList(t, bobMath),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].token = f.adminToken
	}
	runHTTPTests(t, tests)

	t.Run("status field", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/grades?student_id="+strconv.Itoa(f.alice.ID), f.adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var raw []map[string]interface{}
		unmarshal(t, rec, &raw)
		require.Len(t, raw, 2)
		assert.Equal(t, grade.StatusGraded, raw[0]["status"])
		assert.NotNil(t, raw[0]["grade"])
		assert.Equal(t, grade.StatusUngraded, raw[1]["status"])
		assert.NotContains(t, raw[1], "grade")
	})
}

func Test_gradeApi_detail(t *testing.T) {
	f := setup(t)
	testutil.Enroll(t, enrRepo, f.alice.ID, f.math.ID, f.physic.ID)
	testutil.Enroll(t, enrRepo, f.bob.ID, f.math.ID)
	mathGrade := testutil.CreateGrade(t, gradeRepo, f.alice.ID, f.math.ID, core.Float64(8), core.Float64(9))
	phyGrade := testutil.CreateGrade(t, gradeRepo, f.alice.ID, f.physic.ID, core.Float64(5), core.Float64(5))
	path := func(g grade.Grade) string { return "/v1/grades/" + strconv.Itoa(g.ID) }

	tests := []httpTest{
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     path(mathGrade),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, mathGrade),
		},
		{
			name:     "unknown",
			method:   http.MethodGet,
			path:     "/v1/grades/999",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "grade not found"}),
		},
		{
			name:     "malformed id",
			method:   http.MethodPut,
			path:     "/v1/grades/x",
			body:     []byte("{}"),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name:     "move onto a graded pair",
			method:   http.MethodPut,
			path:     path(phyGrade),
			body:     marchallObj(t, grade.UpdateGrade{SubjectID: f.math.ID, Midterm: core.Float64(5), Final: core.Float64(5)}),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: grade.ErrDuplicateGrade.Error()}),
		},
		{
			name:     "move onto an unenrolled pair",
			method:   http.MethodPut,
			path:     path(phyGrade),
			body:     marchallObj(t, grade.UpdateGrade{StudentID: f.bob.ID, Midterm: core.Float64(5), Final: core.Float64(5)}),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: grade.ErrNotEnrolled.Error()}),
		},
	}
	for i := range tests {
		tests[i].token = f.adminToken
	}
	runHTTPTests(t, tests)

	t.Run("update recomputes GPA", func(t *testing.T) {
		body := marchallObj(t, grade.UpdateGrade{Midterm: core.Float64(10), Final: core.Float64(10)})
		req, rec := newAuthRequest(http.MethodPut, path(phyGrade), f.adminToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated grade.Grade
		unmarshal(t, rec, &updated)
		assert.Equal(t, 10.0, updated.Composite)
		// (8.6 + 10) / 2 = 9.3
		assert.Equal(t, 3.72, studentGPA(t, f.alice))
	})

	t.Run("delete recomputes GPA", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path(phyGrade), f.adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Equal(t, 3.44, studentGPA(t, f.alice))

		req, rec = newAuthRequest(http.MethodDelete, path(mathGrade), f.adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Equal(t, 0.0, studentGPA(t, f.alice))
	})

	t.Run("unenroll drops the grade", func(t *testing.T) {
		g := testutil.CreateGrade(t, gradeRepo, f.bob.ID, f.math.ID, core.Float64(4), core.Float64(4))
		require.NoError(t, gradeRepo.SetStudentGPA(context.Background(), f.bob.ID, 1.6))

		req, rec := newAuthRequest(http.MethodDelete, studentPath(f.bob, "/enrollments?subject_id="+strconv.Itoa(f.math.ID)), f.adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		_, err := gradeRepo.GetGrade(context.Background(), grade.GetFilter{ID: g.ID})
		assert.Equal(t, grade.ErrNotFound, err)
		assert.Equal(t, 0.0, studentGPA(t, f.bob))
	})
}
