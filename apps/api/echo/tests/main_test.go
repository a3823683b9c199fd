package tests

import (
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	. "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/assistant"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/predict"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database/dummy"
	"github.com/trezcool/alama/tests"
)

var (
	conf *core.Config
	db   *dummydb.DB
	app  *Server
	chat *fakeChat

	usrRepo   user.Repository
	stdRepo   student.Repository
	subjRepo  subject.Repository
	gradeRepo grade.Repository
	enrRepo   enrollment.Repository
	gradeSvc  *grade.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	conf = core.NewTestConfig()
	logger := testutil.NewLogger()

	// set up DB & repos
	db = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	stdRepo = dummydb.NewStudentRepository(db)
	subjRepo = dummydb.NewSubjectRepository(db)
	gradeRepo = dummydb.NewGradeRepository(db)
	enrRepo = dummydb.NewEnrollmentRepository(db)

	chat = new(fakeChat)
	gradeSvc = grade.NewService(db, gradeRepo)
	app = newServer(logger, dummydb.NewAnalyticsRepository(db))

	os.Exit(m.Run())
}

type analyticsRepository interface {
	analytics.Repository
	predict.Repository
}

// newServer wires a server over the shared repos, reading analytics from analyticsRepo.
func newServer(logger core.Logger, analyticsRepo analyticsRepository) *Server {
	usrSvc := user.NewService(usrRepo)
	predictSvc := predict.NewService(analyticsRepo, predict.NewScorer(predict.WithLogger(logger)))
	translator := NewTranslator()

	return NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      NewValidator(translator),
		Translator:    translator,
		Metrics:       NewMetrics(prometheus.NewRegistry()),
		UserSvc:       usrSvc,
		StudentSvc:    student.NewService(db, stdRepo, usrSvc),
		SubjectSvc:    subject.NewService(subjRepo),
		GradeSvc:      gradeSvc,
		EnrollmentSvc: enrollment.NewService(db, enrRepo, gradeSvc),
		AnalyticsSvc:  analytics.NewService(analyticsRepo),
		PredictSvc:    predictSvc,
		AssistantSvc:  assistant.NewService(conf.Assistant, predictSvc, chat, logger),
	})
}

// fixtures shared by most tests
type fixtures struct {
	admin        user.User
	adminToken   string
	class        student.Class
	alice, bob   student.Student
	aliceUser    user.User
	aliceToken   string
	math, physic subject.Subject
}

func setup(t *testing.T) fixtures {
	db.Reset()
	chat.set("", nil)

	var f fixtures
	f.admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "Adm1n!pass", []string{user.RoleAdmin}, true, nil)
	f.adminToken = getToken(t, conf, f.admin)

	f.class = testutil.CreateClass(t, stdRepo, "10A1")
	f.alice = testutil.CreateStudent(t, stdRepo, "S001", "Alice", &f.class.ID)
	f.bob = testutil.CreateStudent(t, stdRepo, "S002", "Bob", nil)
	f.aliceUser = testutil.CreateUser(t, usrRepo, "Alice", "s001", "s001@student.test", "123456", []string{user.RoleStudent}, true, &f.alice.ID)
	f.aliceToken = getToken(t, conf, f.aliceUser)

	f.math = testutil.CreateSubject(t, subjRepo, "MATH", "Mathematics")
	f.physic = testutil.CreateSubject(t, subjRepo, "PHY", "Physics")
	return f
}
