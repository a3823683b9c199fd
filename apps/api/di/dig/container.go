package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/assistant"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/predict"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
	assistantsvc "github.com/trezcool/alama/services/assistant"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage/database"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sql.DB {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Connect(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newTransactor(db *sqlxrepos.DB) core.Transactor {
	return db
}

func newScorer(logger core.Logger) *predict.Scorer {
	return predict.NewScorer(predict.WithLogger(logger))
}

func newAssistantService(conf *core.Config, predictSvc *predict.Service, logger core.Logger) (*assistant.Service, error) {
	client, err := assistantsvc.NewGeminiClient(context.Background(), conf.Assistant)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Warn("assistant API key is not set; the assistant will answer with its fallback message")
	}
	return assistant.NewService(conf.Assistant, predictSvc, client, logger), nil
}

func newMetrics() *echoapi.Metrics {
	return echoapi.NewMetrics(prometheus.DefaultRegisterer)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	// config & logging
	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewDB))
	must(c.Provide(newTransactor))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewStudentRepository))
	must(c.Provide(sqlxrepos.NewSubjectRepository))
	must(c.Provide(sqlxrepos.NewGradeRepository))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository))
	must(c.Provide(sqlxrepos.NewAnalyticsRepository, dig.As(new(analytics.Repository), new(predict.Repository))))

	// validation
	must(c.Provide(echoapi.NewTranslator))
	must(c.Provide(echoapi.NewValidator))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(func(svc *user.Service) student.AccountRemover { return svc }))
	must(c.Provide(student.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(grade.NewService))
	must(c.Provide(func(svc *grade.Service) enrollment.Grader { return svc }))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(analytics.NewService))
	must(c.Provide(newScorer))
	must(c.Provide(predict.NewService))
	must(c.Provide(newAssistantService))

	// API
	must(c.Provide(newMetrics))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
