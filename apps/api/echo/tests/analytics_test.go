package tests

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/assistant"
	"github.com/trezcool/alama/core/predict"
	"github.com/trezcool/alama/tests"
)

func Test_analyticsApi_summary(t *testing.T) {
	f := setup(t)
	carol := testutil.CreateStudent(t, stdRepo, "S003", "Carol", &f.class.ID)
	ctx := context.Background()
	require.NoError(t, gradeRepo.SetStudentGPA(ctx, f.alice.ID, 3.5))
	require.NoError(t, gradeRepo.SetStudentGPA(ctx, f.bob.ID, 1.0))
	require.NoError(t, gradeRepo.SetStudentGPA(ctx, carol.ID, 4.0))

	want := analytics.Summary{
		Distribution: []analytics.Bin{
			{Label: "0.0-1.0", Min: 0, Max: 1},
			{Label: "1.0-2.0", Min: 1, Max: 2, Count: 1},
			{Label: "2.0-3.0", Min: 2, Max: 3},
			{Label: "3.0-4.0", Min: 3, Max: 4, Count: 1}, // Carol's 4.0 is in no bin
		},
		Classes: []analytics.ClassAverage{
			{ClassID: f.class.ID, ClassName: "10A1", Students: 2, AverageGPA: 3.75},
		},
		Overall: analytics.Overall{TotalStudents: 3, AverageGPA: 2.83, MinGPA: 1, MaxGPA: 4},
		Risk: analytics.RiskReport{
			All: analytics.RiskCount{Total: 2, LowRisk: 2},
			Classes: []analytics.ClassRisk{
				{ClassName: "10A1", RiskCount: analytics.RiskCount{Total: 2, LowRisk: 2}},
			},
		},
	}

	tests := []httpTest{
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student",
			token:    f.aliceToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "admin",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, want),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].path = "/v1/analytics"
	}
	runHTTPTests(t, tests)
}

func Test_analyticsApi_predictions(t *testing.T) {
	f := setup(t)

	t.Run("no grades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/analytics/predictions", f.adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	carol := testutil.CreateStudent(t, stdRepo, "S003", "Carol", &f.class.ID)
	scores := map[int][2][2]float64{ // student -> {math, physics} -> {midterm, final}
		f.alice.ID: {{9, 9.5}, {8.5, 9}},
		f.bob.ID:   {{2, 1.5}, {3, 2}},
		carol.ID:   {{5.5, 6}, {6, 5.5}},
	}
	for studentID, s := range scores {
		testutil.Enroll(t, enrRepo, studentID, f.math.ID, f.physic.ID)
		testutil.CreateGrade(t, gradeRepo, studentID, f.math.ID, core.Float64(s[0][0]), core.Float64(s[0][1]))
		testutil.CreateGrade(t, gradeRepo, studentID, f.physic.ID, core.Float64(s[1][0]), core.Float64(s[1][1]))
	}

	t.Run("all subjects", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/analytics/predictions", f.adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rows []predict.Row
		unmarshal(t, rec, &rows)
		require.Len(t, rows, 6)

		byStudent := make(map[int][]predict.Row)
		for _, r := range rows {
			byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
			assert.GreaterOrEqual(t, r.FailRisk, 0.0)
			assert.LessOrEqual(t, r.FailRisk, 100.0)
		}
		for _, r := range byStudent[f.alice.ID] {
			assert.Equal(t, predict.TierExcellent, r.Tier)
			assert.Equal(t, 2, r.GroupID)
		}
		for _, r := range byStudent[f.bob.ID] {
			assert.Equal(t, predict.TierNeedsImprovement, r.Tier)
			assert.Equal(t, 0, r.GroupID)
			assert.Greater(t, r.FailRisk, byStudent[f.alice.ID][0].FailRisk)
		}
		for _, r := range byStudent[carol.ID] {
			assert.Equal(t, predict.TierGood, r.Tier)
			assert.Equal(t, 1, r.GroupID)
		}
	})

	t.Run("one subject has too few rows for risk", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/analytics/predictions?subject_id="+strconv.Itoa(f.math.ID), f.adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rows []predict.Row
		unmarshal(t, rec, &rows)
		require.Len(t, rows, 3)
		for _, r := range rows {
			assert.Equal(t, f.math.ID, r.SubjectID)
			assert.Equal(t, 0.0, r.FailRisk)
		}
	})

	t.Run("malformed subject filter is ignored", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/analytics/predictions?subject_id=math", f.adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var rows []predict.Row
		unmarshal(t, rec, &rows)
		assert.Len(t, rows, 6)
	})
}

func Test_analyticsApi_assistant(t *testing.T) {
	f := setup(t)
	ask := func(q string) []byte {
		return marchallObj(t, assistant.Question{Question: q})
	}

	t.Run("validation", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/analytics/assistant", f.adminToken, ask("   "))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"question": "this field is required"}),
		}, rec)
	})

	t.Run("no data", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/analytics/assistant", f.adminToken, ask("Who leads?"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, assistant.Answer{Answer: assistant.NoDataMessage}),
		}, rec)
		assert.Empty(t, chat.lastPrompt())
	})

	testutil.Enroll(t, enrRepo, f.alice.ID, f.math.ID)
	testutil.CreateGrade(t, gradeRepo, f.alice.ID, f.math.ID, core.Float64(8), core.Float64(9))

	t.Run("answer", func(t *testing.T) {
		chat.set("  Alice leads.\n", nil)
		req, rec := newAuthRequest(http.MethodPost, "/v1/analytics/assistant", f.adminToken, ask("Who leads?"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, assistant.Answer{Answer: "Alice leads.", Rows: 1}),
		}, rec)

		prompt := chat.lastPrompt()
		assert.Contains(t, prompt, "Who leads?")
		assert.Contains(t, prompt, "Alice,Mathematics,8,9,8.6,insufficient data,0,0\n")
	})

	t.Run("client failure", func(t *testing.T) {
		chat.set("", errors.New("quota exceeded"))
		req, rec := newAuthRequest(http.MethodPost, "/v1/analytics/assistant", f.adminToken, ask("Who leads?"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, assistant.Answer{Answer: conf.Assistant.FallbackMessage, Rows: 1, Fallback: true}),
		}, rec)
	})
}

// brokenAnalytics fails every read.
type brokenAnalytics struct{ err error }

func (r brokenAnalytics) QueryStudentGPAs(context.Context) ([]analytics.StudentGPA, error) {
	return nil, r.err
}

func (r brokenAnalytics) GetStudentGPA(context.Context, int) (float64, error) {
	return 0, r.err
}

func (r brokenAnalytics) QuerySubjectScores(context.Context, int) ([]analytics.SubjectScore, error) {
	return nil, r.err
}

func (r brokenAnalytics) QueryScoreRows(context.Context, predict.Filter) ([]predict.Row, error) {
	return nil, r.err
}

func Test_analyticsApi_storeFailure(t *testing.T) {
	f := setup(t)
	broken := newServer(testutil.NewLogger(), brokenAnalytics{err: errors.New("connection refused")})

	tests := []httpTest{
		{
			name:     "summary is empty",
			path:     "/v1/analytics",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, analytics.Summarize(nil)),
		},
		{
			name:     "predictions are empty",
			path:     "/v1/analytics/predictions",
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, f.adminToken)
			broken.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
