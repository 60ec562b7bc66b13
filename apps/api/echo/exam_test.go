package echoapi_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/charlesacademy/portal/apps/api/echo"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/user"
)

func Test_examApi(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	_, teacherToken := app.createUser(t, "walter", user.RoleTeacher)
	_, accountantToken := app.createUser(t, "penny", user.RoleAccountant)
	c, subs := app.createClass(t, "Form One", "F1", "Mathematics", "English")
	other, _ := app.createClass(t, "Form Two", "F2")
	math, eng := subs[0], subs[1]
	amani := app.createStudent(t, "Amani Juma", c.ID).Student
	baraka := app.createStudent(t, "Baraka Mosha", c.ID).Student
	outsider := app.createStudent(t, "Chausiku Said", other.ID).Student

	rec := app.do(t, http.MethodPost, "/api/exams", accountantToken, exam.NewExam{Name: "Midterm", ClassroomID: c.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/exams", teacherToken, exam.NewExam{
		Name:        "Midterm",
		ClassroomID: c.ID,
		ExamType:    "midterm",
		Date:        time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e exam.Exam
	decode(t, rec, &e)
	assert.Equal(t, exam.TypeMidterm, e.ExamType)
	assert.True(t, e.Date.Equal(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)))

	examPath := fmt.Sprintf("/api/exams/%d", e.ID)
	marks := func(m map[string]*int) int {
		return app.do(t, http.MethodPut, examPath+"/marks", teacherToken, exam.EnterMarks{Marks: m}).Code
	}
	n := func(i int) *int { return &i }

	rec = app.do(t, http.MethodPut, examPath+"/marks", teacherToken, exam.EnterMarks{Marks: map[string]*int{
		exam.SheetKey(amani.ID, math.ID):  n(85),
		exam.SheetKey(amani.ID, eng.ID):   n(75),
		exam.SheetKey(baraka.ID, math.ID): n(30),
		exam.SheetKey(baraka.ID, eng.ID):  nil,
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved echoapi.EnterMarksResponse
	decode(t, rec, &saved)
	assert.Equal(t, 3, saved.Saved)

	assert.Equal(t, http.StatusBadRequest, marks(map[string]*int{exam.SheetKey(amani.ID, math.ID): n(101)}), "over 100")
	assert.Equal(t, http.StatusBadRequest, marks(map[string]*int{exam.SheetKey(outsider.ID, math.ID): n(50)}), "student of another class")
	assert.Equal(t, http.StatusBadRequest, marks(map[string]*int{"bogus": n(50)}), "malformed key")

	// re-entering a mark overwrites it
	assert.Equal(t, http.StatusOK, marks(map[string]*int{exam.SheetKey(baraka.ID, math.ID): n(35)}))

	t.Run("Marks sheet", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, examPath+"/marks", teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sheet map[string]int
		decode(t, rec, &sheet)
		assert.Equal(t, map[string]int{
			exam.SheetKey(amani.ID, math.ID):  85,
			exam.SheetKey(amani.ID, eng.ID):   75,
			exam.SheetKey(baraka.ID, math.ID): 35,
		}, sheet)
	})

	t.Run("Results", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, examPath+"/results", teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res exam.ExamResults
		decode(t, rec, &res)
		require.Len(t, res.Subjects, 2)
		require.Len(t, res.Rows, 2)

		assert.Equal(t, amani.ID, res.Rows[0].Student.ID)
		assert.Equal(t, 160, res.Rows[0].Total)
		assert.Equal(t, 80.0, res.Rows[0].Average)
		assert.Equal(t, "A", res.Rows[0].Grade)

		assert.Equal(t, baraka.ID, res.Rows[1].Student.ID)
		assert.Equal(t, 35, res.Rows[1].Total)
		assert.Equal(t, 35.0, res.Rows[1].Average)
		assert.Equal(t, "F", res.Rows[1].Grade)
		assert.Nil(t, res.Rows[1].Marks[eng.ID])
	})

	t.Run("Results PDF", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, examPath+"/results/pdf", teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("Report card", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/students/%d/report-card", amani.ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rc exam.ReportCard
		decode(t, rec, &rc)
		require.Len(t, rc.Lines, 2)
		assert.Equal(t, "Midterm", rc.Lines[0].ExamName)
		assert.Equal(t, 80.0, rc.Average)
		assert.Equal(t, "A", rc.Grade)

		rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/students/%d/report-card/pdf", amani.ID), teacherToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "report_card_CA_F1_2024_0001.pdf")
	})

	app.run(t, []httpTest{
		{name: "List", path: fmt.Sprintf("/api/exams?classroom=%d", c.ID), token: teacherToken, wantCode: http.StatusOK, wantData: marshalObj(t, []exam.Exam{e})},
		{name: "List other class", path: fmt.Sprintf("/api/exams?classroom=%d", other.ID), token: teacherToken, wantCode: http.StatusOK, wantData: []byte("[]")},
		{name: "Teachers cannot delete", method: http.MethodDelete, path: examPath, token: teacherToken, wantCode: http.StatusForbidden},
		{name: "Delete", method: http.MethodDelete, path: examPath, token: adminToken, wantCode: http.StatusNoContent},
		{name: "Deleted", path: examPath, token: adminToken, wantCode: http.StatusNotFound},
	})
}

func Test_teacherApi_dashboard(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	c, _ := app.createClass(t, "Form One", "F1")
	acc := app.createTeacher(t, "Neema", "Kimaro", "neema@charles.ac.tz", c.ID)
	assert.Equal(t, "neema@charles.ac.tz", acc.Username)
	assert.NotEmpty(t, acc.Password)

	usr, err := app.env.UserSvc.GetByEmail(context.Background(), acc.Teacher.Email)
	require.NoError(t, err)
	token := getToken(t, app, usr)

	rec := app.do(t, http.MethodGet, "/api/teachers/dashboard", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dash echoapi.TeacherDashboard
	decode(t, rec, &dash)
	assert.Equal(t, acc.Teacher.ID, dash.Teacher.ID)
	require.Len(t, dash.Teacher.ClassRooms, 1)
	assert.Equal(t, c.ID, dash.Teacher.ClassRooms[0].ID)

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/teachers/dashboard", adminToken).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/teachers", token).Code)

	rec = app.do(t, http.MethodDelete, fmt.Sprintf("/api/teachers/%d", acc.Teacher.ID), adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/teachers/dashboard", token).Code)
}
