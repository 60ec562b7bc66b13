package student_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/user"
	inmemdb "github.com/charlesacademy/portal/storage/database/inmem"
	"github.com/charlesacademy/portal/testutil"
)

func TestUsername(t *testing.T) {
	assert.Equal(t, "student_ca_eng_2024_0001", student.Username("CA/ENG/2024/0001"))
}

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	c, err := env.ClassSvc.Create(ctx, classroom.NewClassRoom{Name: "English Class", Code: "ENG"})
	require.NoError(t, err)

	acc, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "Amani Juma", ClassroomID: c.ID, AdmissionYear: 2024, Email: "amani@mail.co.tz"})
	require.NoError(t, err)
	s := acc.Student
	assert.Equal(t, "CA/ENG/2024/0001", s.RegistrationNumber)
	assert.Equal(t, student.StatusActive, s.Status)
	assert.Equal(t, "student_ca_eng_2024_0001", acc.Username)
	assert.NotEmpty(t, acc.Password)
	assert.Len(t, env.Mail.SentMessages(), 1, "credentials mailed")

	usr, err := env.UserSvc.GetByID(ctx, s.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.Equal(t, "Amani", usr.FirstName)
	assert.NoError(t, usr.CheckPassword(acc.Password))

	t.Run("without email", func(t *testing.T) {
		env.Mail.Clear()
		acc, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "Baraka", ClassroomID: c.ID, AdmissionYear: 2024})
		require.NoError(t, err)
		assert.Equal(t, "CA/ENG/2024/0002", acc.Student.RegistrationNumber)
		assert.Empty(t, env.Mail.SentMessages())

		usr, err := env.UserSvc.GetByID(ctx, acc.Student.UserID)
		require.NoError(t, err)
		assert.Equal(t, "student_ca_eng_2024_0002@"+env.Conf.SchoolEmailDomain, usr.Email)
	})

	t.Run("sequence per year", func(t *testing.T) {
		regNo, err := env.StudentSvc.NextRegistrationNumber(ctx, c, 2025)
		require.NoError(t, err)
		assert.Equal(t, "CA/ENG/2025/0001", regNo)
	})

	t.Run("taken email", func(t *testing.T) {
		_, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "Other Amani", ClassroomID: c.ID, Email: "amani@mail.co.tz"})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, student.ErrEmailExists, verr.Err)
	})

	t.Run("lookup by registration number", func(t *testing.T) {
		got, err := env.StudentSvc.GetByRegistrationNumber(ctx, " ca/eng/2024/0001 ")
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
	})

	t.Run("delete removes the account", func(t *testing.T) {
		require.NoError(t, env.StudentSvc.Delete(ctx, s))
		_, err := env.UserSvc.GetByID(ctx, s.UserID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		_, err = env.StudentSvc.Get(ctx, s.ID)
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	})
}

func TestService_ForUser(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	repo := inmemdb.NewStudentRepository(env.DB)
	now := time.Now().UTC()

	orphan, err := repo.CreateStudent(ctx, student.Student{
		FullName:           "Neema Kimaro",
		RegistrationNumber: "CA/F1/2023/0007",
		Status:             student.StatusActive,
		AdmissionYear:      2023,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	require.NoError(t, err)

	stranger := testutil.CreateUser(t, env.UserRepo, "Juma", "juma", "juma@charles.ac.tz", "", user.RoleStudent, true)
	_, err = env.StudentSvc.ForUser(ctx, stranger)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))

	teacherUsr := testutil.CreateUser(t, env.UserRepo, "Neema", "neema_t", "neema@charles.ac.tz", "", user.RoleTeacher, true)
	_, err = env.StudentSvc.ForUser(ctx, teacherUsr)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err), "only students get linked")

	usr := testutil.CreateUser(t, env.UserRepo, "", "ca/f1/2023/0007", "neema.k@charles.ac.tz", "", user.RoleStudent, true)
	s, err := env.StudentSvc.ForUser(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, s.ID)
	assert.Equal(t, usr.ID, s.UserID)

	// linked from now on
	s, err = env.StudentSvc.GetByUserID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, s.ID)
}
