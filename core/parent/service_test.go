package parent_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/parent"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/user"
	"github.com/charlesacademy/portal/testutil"
)

const pwd = "Kilimanjaro#42"

func registration(t *testing.T, env *testutil.Env, name, uname, regNo string) parent.Registration {
	t.Helper()
	r := parent.Registration{
		Profile:                   parent.Profile{FullName: name, Phone: "0754000111", Relationship: "guardian"},
		Username:                  uname,
		Email:                     uname + "@mail.co.tz",
		Password:                  pwd,
		PasswordConfirm:           pwd,
		StudentRegistrationNumber: regNo,
	}
	require.NoError(t, r.Validate(env.Validate))
	return r
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_registration(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	c, err := env.ClassSvc.Create(ctx, classroom.NewClassRoom{Name: "Form One", Code: "F1"})
	require.NoError(t, err)
	acc, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "Amani Juma", ClassroomID: c.ID, AdmissionYear: 2024})
	require.NoError(t, err)
	amani := acc.Student

	p, err := env.ParentSvc.Register(ctx, registration(t, env, "Rehema Juma", "rehema", amani.RegistrationNumber))
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.Equal(t, "+255754000111", p.Phone)
	assert.Equal(t, parent.RelationshipGuardian, p.Relationship)
	assert.Len(t, env.Mail.SentMessages(), 1)

	usr, err := env.UserSvc.GetByID(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleParent, usr.Role)
	assert.False(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(pwd))

	_, err = env.ParentSvc.Register(ctx, registration(t, env, "Zuhura Ali", "zuhura", "CA/F1/2024/0042"))
	assert.Equal(t, "student_registration_number", fieldOf(t, err))

	t.Run("approve", func(t *testing.T) {
		env.Mail.Clear()
		approved, err := env.ParentSvc.Decide(ctx, p, parent.Decision{Action: parent.ActionApprove})
		require.NoError(t, err)
		assert.True(t, approved.IsActive)
		assert.Len(t, env.Mail.SentMessages(), 1, "status mail")

		usr, err := env.UserSvc.GetByID(ctx, p.UserID)
		require.NoError(t, err)
		assert.True(t, usr.IsActive)

		_, err = env.ParentSvc.Decide(ctx, approved, parent.Decision{Action: parent.ActionApprove})
		assert.Equal(t, "action", fieldOf(t, err))
		p = approved
	})

	t.Run("capacity", func(t *testing.T) {
		second, err := env.ParentSvc.Register(ctx, registration(t, env, "Juma Hassan", "juma", amani.RegistrationNumber))
		require.NoError(t, err)

		_, err = env.ParentSvc.Register(ctx, registration(t, env, "Third Person", "third", amani.RegistrationNumber))
		assert.Equal(t, "student_registration_number", fieldOf(t, err))
		_, err = env.UserSvc.GetByUsername(ctx, "third")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err), "no account left behind")

		_, err = env.ParentSvc.Decide(ctx, second, parent.Decision{Action: parent.ActionReject, Reason: "unknown to the school"})
		require.NoError(t, err)
		_, err = env.ParentSvc.Get(ctx, second.ID)
		assert.Equal(t, parent.ErrNotFound, errors.Cause(err))
		_, err = env.UserSvc.GetByID(ctx, second.UserID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("closed", func(t *testing.T) {
		env.Conf.Parents.RegistrationOpen = false
		defer func() { env.Conf.Parents.RegistrationOpen = true }()
		_, err := env.ParentSvc.Register(ctx, registration(t, env, "Late Comer", "late", amani.RegistrationNumber))
		assert.Equal(t, parent.ErrRegistrationClosed, err)
	})

	t.Run("dashboard", func(t *testing.T) {
		i64 := func(i int64) *int64 { return &i }
		_, err := env.FeeSvc.CreateStructure(ctx, fee.NewStructure{ClassroomID: c.ID, TotalFee: i64(500000)})
		require.NoError(t, err)
		_, err = env.FeeSvc.RecordPayment(ctx, fee.NewPayment{StudentID: amani.ID, AmountPaid: 100000})
		require.NoError(t, err)
		m := attendance.Mark{Statuses: map[int64]string{amani.ID: attendance.StatusPresent}}
		require.NoError(t, m.Validate(env.Validate))
		_, err = env.AttendanceSvc.MarkStudents(ctx, m)
		require.NoError(t, err)

		d, err := env.ParentSvc.Dashboard(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "RJ", d.Initials)
		require.Len(t, d.Children, 1)
		assert.Equal(t, int64(400000), d.Children[0].Fees.Balance)
		assert.Equal(t, 1, d.Children[0].Attendance.Present)
		assert.Equal(t, int64(400000), d.FamilyBalance)
	})
}

func TestService_links(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	c, err := env.ClassSvc.Create(ctx, classroom.NewClassRoom{Name: "Form One", Code: "F1"})
	require.NoError(t, err)
	var kids []student.Student
	for _, name := range []string{"Amani Juma", "Baraka Juma"} {
		acc, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: name, ClassroomID: c.ID, AdmissionYear: 2024})
		require.NoError(t, err)
		kids = append(kids, acc.Student)
	}

	np := parent.NewParent{
		Profile:    parent.Profile{FullName: "Musa Juma", Phone: "255700000001", Relationship: "father"},
		Email:      "musa@mail.co.tz",
		StudentIDs: []int64{kids[0].ID, kids[0].ID},
	}
	require.NoError(t, np.Validate(env.Validate))
	acc, err := env.ParentSvc.Create(ctx, np)
	require.NoError(t, err)
	p := acc.Parent
	assert.Equal(t, "musa@mail.co.tz", acc.Username)
	assert.True(t, p.IsActive)
	assert.Equal(t, []int64{kids[0].ID}, p.StudentIDs, "duplicates dropped")

	p, err = env.ParentSvc.LinkStudent(ctx, p, kids[1].ID)
	require.NoError(t, err)
	p, err = env.ParentSvc.LinkStudent(ctx, p, kids[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{kids[0].ID, kids[1].ID}, p.StudentIDs)

	children, err := env.ParentSvc.Children(ctx, p)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	p, err = env.ParentSvc.UnlinkStudent(ctx, p, kids[0].ID)
	require.NoError(t, err)
	_, err = env.ParentSvc.Child(ctx, p, kids[0].ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	got, err := env.ParentSvc.Child(ctx, p, kids[1].ID)
	require.NoError(t, err)
	assert.Equal(t, kids[1].ID, got.ID)

	stored, err := env.ParentSvc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{kids[1].ID}, stored.StudentIDs)
}
