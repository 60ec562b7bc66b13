// Package testutil wires the services on top of the in-memory storage for tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

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
	inmemdb "github.com/charlesacademy/portal/storage/database/inmem"
)

// Env holds a fresh set of services sharing one in-memory database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Sessions   session.Store

	DB       *inmemdb.DB
	UserRepo user.Repository

	UserSvc       user.Service
	ClassSvc      classroom.Service
	StudentSvc    student.Service
	TeacherSvc    teacher.Service
	AttendanceSvc attendance.Service
	ExamSvc       exam.Service
	FeeSvc        fee.Service
	ParentSvc     parent.Service
	SchoolSvc     school.Service
}

// NewConfig returns the default config in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.RollbarToken = ""
	conf.Parents.RegistrationOpen = true
	conf.Parents.MaxPerStudent = 2
	return conf
}

func NewTranslator() ut.Translator {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	return translator
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)

	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Mail:       mailSvc,
		Sessions:   session.NewMemoryStore(),
		DB:         db,
		UserRepo:   inmemdb.NewUserRepository(db),
	}
	env.UserSvc = user.NewService(env.UserRepo, mailSvc, conf)
	env.ClassSvc = classroom.NewService(inmemdb.NewClassroomRepository(db))
	env.StudentSvc = student.NewService(inmemdb.NewStudentRepository(db), env.UserSvc, env.ClassSvc, mailSvc, conf)
	env.TeacherSvc = teacher.NewService(inmemdb.NewTeacherRepository(db), env.UserSvc, env.ClassSvc, mailSvc, conf)
	env.AttendanceSvc = attendance.NewService(inmemdb.NewAttendanceRepository(db), env.StudentSvc, env.TeacherSvc)
	env.ExamSvc = exam.NewService(inmemdb.NewExamRepository(db), env.ClassSvc, env.StudentSvc)
	env.FeeSvc = fee.NewService(inmemdb.NewFeeRepository(db), env.ClassSvc, env.StudentSvc)
	env.ParentSvc = parent.NewService(
		inmemdb.NewParentRepository(db),
		env.UserSvc,
		env.StudentSvc,
		env.AttendanceSvc,
		env.FeeSvc,
		mailSvc,
		conf,
	)
	env.SchoolSvc = school.NewService(inmemdb.NewSchoolRepository(db), env.ClassSvc, env.StudentSvc, env.TeacherSvc, env.FeeSvc)
	return env
}

// CreateUser saves a user straight through the repository. An empty pwd leaves the user without password.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FirstName: name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
