package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/charlesacademy/portal/apps/api/echo"
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
	emailsvc "github.com/charlesacademy/portal/services/email"
	logsvc "github.com/charlesacademy/portal/services/logger"
	"github.com/charlesacademy/portal/services/session"
	"github.com/charlesacademy/portal/storage/database"
	sqlxrepos "github.com/charlesacademy/portal/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up token sessions
	var sessions session.Store
	if conf.Redis.Addr != "" {
		store, closeRedis, err := session.NewRedisStore(context.Background(), conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer func() { _ = closeRedis() }()
		sessions = store
	} else {
		logger.Warn("REDIS_ADDR not set: revoked tokens are kept in memory")
		sessions = session.NewMemoryStore()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	classSvc := classroom.NewService(sqlxrepos.NewClassroomRepository(db))
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), usrSvc, classSvc, mailSvc, conf)
	teacherSvc := teacher.NewService(sqlxrepos.NewTeacherRepository(db), usrSvc, classSvc, mailSvc, conf)
	attendanceSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), studentSvc, teacherSvc)
	examSvc := exam.NewService(sqlxrepos.NewExamRepository(db), classSvc, studentSvc)
	feeSvc := fee.NewService(sqlxrepos.NewFeeRepository(db), classSvc, studentSvc)
	parentSvc := parent.NewService(sqlxrepos.NewParentRepository(db), usrSvc, studentSvc, attendanceSvc, feeSvc, mailSvc, conf)
	schoolSvc := school.NewService(sqlxrepos.NewSchoolRepository(db), classSvc, studentSvc, teacherSvc, feeSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			Sessions:      sessions,
			UserSvc:       usrSvc,
			ClassSvc:      classSvc,
			StudentSvc:    studentSvc,
			TeacherSvc:    teacherSvc,
			AttendanceSvc: attendanceSvc,
			ExamSvc:       examSvc,
			FeeSvc:        feeSvc,
			ParentSvc:     parentSvc,
			SchoolSvc:     schoolSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
