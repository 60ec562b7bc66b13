package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/parent"
	"github.com/charlesacademy/portal/core/school"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/teacher"
	"github.com/charlesacademy/portal/core/user"
	"github.com/charlesacademy/portal/services/session"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Sessions   session.Store

		UserSvc       user.Service
		ClassSvc      classroom.Service
		StudentSvc    student.Service
		TeacherSvc    teacher.Service
		AttendanceSvc attendance.Service
		ExamSvc       exam.Service
		FeeSvc        fee.Service
		ParentSvc     parent.Service
		SchoolSvc     school.Service

		// DisableReqLogs turns off echo's request logger (tests).
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc, deps.Sessions),
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(s.metrics.middleware)
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)
	s.app.GET("/metrics", s.metrics.handler())

	api := s.app.Group("/api")
	authed := api.Group("", s.auth.middleware()...)

	registerUserAPI(api, authed, s.deps, s.auth)
	registerClassAPI(authed, s.deps)
	registerStudentAPI(authed, s.deps)
	registerTeacherAPI(authed, s.deps)
	registerAttendanceAPI(authed, s.deps)
	registerExamAPI(authed, s.deps)
	registerFeeAPI(authed, s.deps)
	registerParentAPI(api, authed, s.deps)
	registerSchoolAPI(authed, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
