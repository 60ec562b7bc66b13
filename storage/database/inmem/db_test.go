package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/parent"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/teacher"
	"github.com/charlesacademy/portal/testutil"
)

// the deletes below follow the ON DELETE rules of fs/migrations
func TestDB_deleteRules(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	c, err := env.ClassSvc.Create(ctx, classroom.NewClassRoom{Name: "Form One", Code: "F1"})
	require.NoError(t, err)
	maths, err := env.ClassSvc.CreateSubject(ctx, c.ID, classroom.NewSubject{Name: "Mathematics"})
	require.NoError(t, err)
	english, err := env.ClassSvc.CreateSubject(ctx, c.ID, classroom.NewSubject{Name: "English"})
	require.NoError(t, err)

	enroll := func(name string) student.Student {
		acc, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: name, ClassroomID: c.ID, AdmissionYear: 2024})
		require.NoError(t, err)
		return acc.Student
	}
	amani, baraka := enroll("Amani Juma"), enroll("Baraka Mosha")

	tacc, err := env.TeacherSvc.Create(ctx, teacher.NewTeacher{
		FirstName: "Neema", LastName: "Kimaro", Email: "neema@charles.ac.tz",
		SubjectIDs: []int64{maths.ID, english.ID}, ClassroomIDs: []int64{c.ID},
	})
	require.NoError(t, err)

	e, err := env.ExamSvc.Create(ctx, exam.NewExam{Name: "Midterm", ClassroomID: c.ID, ExamType: exam.TypeMidterm, Date: day})
	require.NoError(t, err)
	m := func(i int) *int { return &i }
	_, err = env.ExamSvc.EnterMarks(ctx, e, exam.EnterMarks{Marks: map[string]*int{
		exam.SheetKey(amani.ID, maths.ID):   m(81),
		exam.SheetKey(amani.ID, english.ID): m(64),
		exam.SheetKey(baraka.ID, maths.ID):  m(55),
	}})
	require.NoError(t, err)

	_, err = env.AttendanceSvc.MarkStudents(ctx, attendance.Mark{Date: day, Statuses: map[int64]string{
		amani.ID:  attendance.StatusPresent,
		baraka.ID: attendance.StatusLate,
	}})
	require.NoError(t, err)

	pacc, err := env.ParentSvc.Create(ctx, parent.NewParent{
		Profile:    parent.Profile{FullName: "Rehema Juma", Phone: "0712345678", Relationship: "mother"},
		Email:      "rehema@mail.co.tz",
		StudentIDs: []int64{amani.ID, baraka.ID},
	})
	require.NoError(t, err)

	t.Run("student", func(t *testing.T) {
		require.NoError(t, env.StudentSvc.Delete(ctx, amani))

		sheet, err := env.ExamSvc.MarksSheet(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{exam.SheetKey(baraka.ID, maths.ID): 55}, sheet)

		recs, err := env.AttendanceSvc.ListStudents(ctx, &attendance.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, baraka.ID, recs[0].StudentID)

		p, err := env.ParentSvc.Get(ctx, pacc.Parent.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{baraka.ID}, p.StudentIDs)
	})

	t.Run("subject", func(t *testing.T) {
		require.NoError(t, env.ClassSvc.DeleteSubject(ctx, maths.ID))

		sheet, err := env.ExamSvc.MarksSheet(ctx, e)
		require.NoError(t, err)
		assert.Empty(t, sheet)

		tch, err := env.TeacherSvc.Get(ctx, tacc.Teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{english.ID}, tch.SubjectIDs)
	})

	t.Run("classroom", func(t *testing.T) {
		require.NoError(t, env.ClassSvc.Delete(ctx, c.ID))

		_, err := env.ExamSvc.Get(ctx, e.ID)
		assert.Equal(t, exam.ErrNotFound, errors.Cause(err))

		subjects, err := env.ClassSvc.QuerySubjects(ctx)
		require.NoError(t, err)
		assert.Empty(t, subjects)

		s, err := env.StudentSvc.Get(ctx, baraka.ID)
		require.NoError(t, err, "students outlive their class")
		assert.Zero(t, s.ClassroomID)

		tch, err := env.TeacherSvc.Get(ctx, tacc.Teacher.ID)
		require.NoError(t, err)
		assert.Empty(t, tch.SubjectIDs)
		assert.Empty(t, tch.ClassroomIDs)
	})

	t.Run("teacher", func(t *testing.T) {
		_, err := env.AttendanceSvc.MarkTeachers(ctx, attendance.Mark{Date: day, Statuses: map[int64]string{
			tacc.Teacher.ID: attendance.StatusAbsent,
		}})
		require.NoError(t, err)

		tch, err := env.TeacherSvc.Get(ctx, tacc.Teacher.ID)
		require.NoError(t, err)
		require.NoError(t, env.TeacherSvc.Delete(ctx, tch))

		recs, err := env.AttendanceSvc.ListTeachers(ctx, &attendance.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("user", func(t *testing.T) {
		s, err := env.StudentSvc.Get(ctx, baraka.ID)
		require.NoError(t, err)
		require.NotEmpty(t, s.UserID)
		require.NoError(t, env.UserSvc.Delete(ctx, s.UserID, pacc.Parent.UserID))

		s, err = env.StudentSvc.Get(ctx, baraka.ID)
		require.NoError(t, err)
		assert.Empty(t, s.UserID)

		_, err = env.ParentSvc.Get(ctx, pacc.Parent.ID)
		assert.Equal(t, parent.ErrNotFound, errors.Cause(err))
	})
}
