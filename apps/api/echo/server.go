package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/assistant"
	"github.com/trezcool/alama/core/enrollment"
	"github.com/trezcool/alama/core/grade"
	"github.com/trezcool/alama/core/predict"
	"github.com/trezcool/alama/core/student"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

type (
	ServerDeps struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *Metrics `optional:"true"`

		UserSvc       *user.Service
		StudentSvc    *student.Service
		SubjectSvc    *subject.Service
		GradeSvc      *grade.Service
		EnrollmentSvc *enrollment.Service
		AnalyticsSvc  *analytics.Service
		PredictSvc    *predict.Service
		AssistantSvc  *assistant.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwt      jwtConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwt:      newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.middleware())
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwt.JWTConfig)

	registerUserAPI(v1, jwt, s.jwt, s.deps)
	registerClassAPI(v1, jwt, s.deps)
	registerStudentAPI(v1, jwt, s.deps)
	registerSubjectAPI(v1, jwt, s.deps)
	registerGradeAPI(v1, jwt, s.deps)
	registerAnalyticsAPI(v1, jwt, s.deps)
	registerMeAPI(v1, jwt, s.deps)
}

// Start blocks until the server stops; failures other than a graceful close are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Alama API!")
}

// NewTranslator returns the English translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every custom tag and translation registered.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}
