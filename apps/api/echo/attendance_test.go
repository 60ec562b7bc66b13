package echoapi_test

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/charlesacademy/portal/apps/api/echo"
	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/user"
)

func Test_attendanceApi_students(t *testing.T) {
	app := setup(t)
	_, teacherToken := app.createUser(t, "walter", user.RoleTeacher)
	_, accountantToken := app.createUser(t, "penny", user.RoleAccountant)
	c, _ := app.createClass(t, "Form One", "F1")
	other, _ := app.createClass(t, "Form Two", "F2")
	amani := app.createStudent(t, "Amani Juma", c.ID).Student
	baraka := app.createStudent(t, "Baraka Mosha", c.ID).Student
	outsider := app.createStudent(t, "Chausiku Said", other.ID).Student

	day := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)
	mark := func(token string, m attendance.Mark) (int, echoapi.MarkResponse) {
		rec := app.do(t, http.MethodPost, "/api/attendance/students", token, m)
		var resp echoapi.MarkResponse
		if rec.Code == http.StatusOK {
			decode(t, rec, &resp)
		}
		return rec.Code, resp
	}

	code, _ := mark(accountantToken, attendance.Mark{Date: day, Statuses: map[int64]string{amani.ID: attendance.StatusPresent}})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := mark(teacherToken, attendance.Mark{
		Date:        day,
		ClassroomID: c.ID,
		Statuses:    map[int64]string{amani.ID: "present", baraka.ID: attendance.StatusAbsent},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, resp.Saved)
	assert.True(t, resp.Date.Equal(attendance.Day(day)))

	// marking again on the same day updates the record
	code, resp = mark(teacherToken, attendance.Mark{Date: day, Statuses: map[int64]string{amani.ID: attendance.StatusLate}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, resp.Saved)

	code, _ = mark(teacherToken, attendance.Mark{Date: day, ClassroomID: c.ID, Statuses: map[int64]string{outsider.ID: attendance.StatusPresent}})
	assert.Equal(t, http.StatusBadRequest, code, "student of another class")
	code, _ = mark(teacherToken, attendance.Mark{Date: day, Statuses: map[int64]string{amani.ID: "SICK"}})
	assert.Equal(t, http.StatusBadRequest, code, "unknown status")
	code, _ = mark(teacherToken, attendance.Mark{Date: day, Statuses: map[int64]string{999: attendance.StatusPresent}})
	assert.Equal(t, http.StatusBadRequest, code, "unknown student")

	t.Run("List", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/attendance/students?date=2024-03-04T00:00:00Z&classroom="+fmt.Sprint(c.ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var recs []attendance.StudentAttendance
		decode(t, rec, &recs)
		got := make(map[int64]string, len(recs))
		for _, r := range recs {
			got[r.StudentID] = r.Status
		}
		assert.Equal(t, map[int64]string{amani.ID: attendance.StatusLate, baraka.ID: attendance.StatusAbsent}, got)
	})

	t.Run("Summary", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/attendance/students/%d/summary", amani.ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s attendance.Summary
		decode(t, rec, &s)
		// late is not present
		assert.Equal(t, attendance.Summary{Late: 1, Total: 1, Percentage: 0}, s)
	})

	t.Run("Monthly", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/attendance/monthly?year=2024&month=3&classroom=%d", c.ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep attendance.MonthlyReport
		decode(t, rec, &rep)
		assert.Equal(t, 31, rep.DaysInMonth)
		require.Len(t, rep.Rows, 2)
		assert.Equal(t, amani.ID, rep.Rows[0].StudentID)
		assert.Equal(t, map[int]string{4: attendance.StatusLate}, rep.Rows[0].Days)
		assert.Equal(t, map[int]string{4: attendance.StatusAbsent}, rep.Rows[1].Days)
	})

	t.Run("Monthly XLSX", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/attendance/monthly/xlsx?year=2024&month=3&classroom=%d", c.ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance_2024_03.xlsx")
		// xlsx files are zip archives
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
	})

	t.Run("Bad month", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/attendance/monthly?year=2024&month=13", teacherToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_attendanceApi_teachers(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	_, teacherToken := app.createUser(t, "walter", user.RoleTeacher)
	acc := app.createTeacher(t, "Neema", "Kimaro", "neema@charles.ac.tz")

	m := attendance.Mark{Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), Statuses: map[int64]string{acc.Teacher.ID: attendance.StatusPresent}}
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodPost, "/api/attendance/teachers", teacherToken, m).Code)

	rec := app.do(t, http.MethodPost, "/api/attendance/teachers", adminToken, m)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/attendance/teachers?year=2024", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recs []attendance.TeacherAttendance
	decode(t, rec, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, acc.Teacher.ID, recs[0].TeacherID)
}
