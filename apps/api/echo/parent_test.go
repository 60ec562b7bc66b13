package echoapi_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/charlesacademy/portal/apps/api/echo"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/parent"
	"github.com/charlesacademy/portal/core/student"
)

func newRegistration(name, uname, regNo string) parent.Registration {
	return parent.Registration{
		Profile: parent.Profile{
			FullName:     name,
			Phone:        "0712345678",
			Relationship: "mother",
		},
		Username:                  uname,
		Email:                     uname + "@mail.co.tz",
		Password:                  testPwd,
		PasswordConfirm:           testPwd,
		StudentRegistrationNumber: regNo,
	}
}

func Test_parentApi_registration(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	c, _ := app.createClass(t, "Form One", "F1")
	amani := app.createStudent(t, "Amani Juma", c.ID).Student
	baraka := app.createStudent(t, "Baraka Mosha", c.ID).Student
	i64 := func(i int64) *int64 { return &i }
	_, err := app.env.FeeSvc.CreateStructure(context.Background(), fee.NewStructure{ClassroomID: c.ID, TotalFee: i64(500000)})
	require.NoError(t, err)

	register := func(r parent.Registration) (int, parent.Parent) {
		rec := app.do(t, http.MethodPost, "/api/parents/register", "", r)
		var p parent.Parent
		if rec.Code == http.StatusCreated {
			decode(t, rec, &p)
		}
		return rec.Code, p
	}
	login := func(uname string) (int, echoapi.LoginResponse) {
		rec := app.do(t, http.MethodPost, "/api/auth/login", "", echoapi.LoginRequest{Username: uname, Password: testPwd})
		var resp echoapi.LoginResponse
		if rec.Code == http.StatusOK {
			decode(t, rec, &resp)
		}
		return rec.Code, resp
	}

	// the registration number is matched case-insensitively
	code, p := register(newRegistration("Rehema  Juma", "rehema", "ca/f1/2024/0001"))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Rehema Juma", p.FullName)
	assert.Equal(t, "+255712345678", p.Phone)
	assert.Equal(t, parent.RelationshipMother, p.Relationship)
	assert.Equal(t, []int64{amani.ID}, p.StudentIDs)
	assert.False(t, p.IsActive)

	t.Run("Pending accounts cannot log in", func(t *testing.T) {
		code, _ := login("rehema")
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("Unknown student", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/parents/register", "", newRegistration("Zuhura Ali", "zuhura", "CA/F1/2024/0099"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var errs map[string]string
		decode(t, rec, &errs)
		assert.Contains(t, errs, "student_registration_number")
	})

	t.Run("Taken username", func(t *testing.T) {
		code, _ := register(newRegistration("Rehema Other", "rehema", amani.RegistrationNumber))
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Approve", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, fmt.Sprintf("/api/parents/%d/decision", p.ID), adminToken, parent.Decision{Action: "approve"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var approved parent.Parent
		decode(t, rec, &approved)
		assert.True(t, approved.IsActive)

		rec = app.do(t, http.MethodPost, fmt.Sprintf("/api/parents/%d/decision", p.ID), adminToken, parent.Decision{Action: "approve"})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "already active")

		code, resp := login("rehema")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "/parents", resp.LandingPath)
	})

	t.Run("Portal", func(t *testing.T) {
		_, resp := login("rehema")
		token := resp.Token

		rec := app.do(t, http.MethodGet, "/api/parents/portal", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data echoapi.ParentPortal
		decode(t, rec, &data)
		assert.Equal(t, "RJ", data.Initials)
		require.Len(t, data.Children, 1)
		assert.Equal(t, amani.ID, data.Children[0].Student.ID)
		assert.Equal(t, int64(500000), data.FamilyBalance)

		app.run(t, []httpTest{
			{name: "Children", path: "/api/parents/portal/children", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, []student.Student{amani})},
			{name: "Child", path: fmt.Sprintf("/api/parents/portal/children/%d", amani.ID), token: token, wantCode: http.StatusOK},
			{name: "Someone else's child", path: fmt.Sprintf("/api/parents/portal/children/%d", baraka.ID), token: token, wantCode: http.StatusNotFound},
			{name: "Child results", path: fmt.Sprintf("/api/parents/portal/children/%d/results", amani.ID), token: token, wantCode: http.StatusOK},
			{name: "Child fees", path: fmt.Sprintf("/api/parents/portal/children/%d/fees", amani.ID), token: token, wantCode: http.StatusOK},
			{name: "Announcements", path: "/api/parents/portal/announcements", token: token, wantCode: http.StatusOK},
			{name: "Parents are not admins", path: "/api/parents", token: token, wantCode: http.StatusForbidden},
			{name: "Admins have no portal", path: "/api/parents/portal", token: adminToken, wantCode: http.StatusForbidden},
		})

		rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/parents/portal/children/%d/fees/pdf", amani.ID), token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

		occupation := "Nurse"
		rec = app.do(t, http.MethodPut, "/api/parents/portal/profile", token, parent.UpdateParent{Occupation: &occupation})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated parent.Parent
		decode(t, rec, &updated)
		assert.Equal(t, occupation, updated.Occupation)
	})

	t.Run("At most two parents per student", func(t *testing.T) {
		code, second := register(newRegistration("Juma Hassan", "juma", amani.RegistrationNumber))
		require.Equal(t, http.StatusCreated, code)

		rec := app.do(t, http.MethodPost, "/api/parents/register", "", newRegistration("Third Person", "third", amani.RegistrationNumber))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"student_registration_number": %q}`, parent.ErrTooManyParents.Error()), rec.Body.String())

		// rejecting a registration frees the seat
		rec = app.do(t, http.MethodPost, fmt.Sprintf("/api/parents/%d/decision", second.ID), adminToken, parent.Decision{Action: "reject", Reason: "unknown"})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, fmt.Sprintf("/api/parents/%d", second.ID), adminToken).Code)
		code, _ = login("juma")
		assert.Equal(t, http.StatusBadRequest, code)

		code, _ = register(newRegistration("Third Person", "third", amani.RegistrationNumber))
		assert.Equal(t, http.StatusCreated, code)
	})

	t.Run("Deactivate", func(t *testing.T) {
		_, resp := login("rehema")
		rec := app.do(t, http.MethodPut, fmt.Sprintf("/api/parents/%d/active", p.ID), adminToken, map[string]interface{}{"is_active": false})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/parents/portal", resp.Token).Code)
	})
}

func Test_parentApi_registrationClosed(t *testing.T) {
	app := setup(t)
	c, _ := app.createClass(t, "Form One", "F1")
	amani := app.createStudent(t, "Amani Juma", c.ID).Student
	app.env.Conf.Parents.RegistrationOpen = false

	rec := app.do(t, http.MethodPost, "/api/parents/register", "", newRegistration("Rehema Juma", "rehema", amani.RegistrationNumber))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"error": %q}`, parent.ErrRegistrationClosed.Error()), rec.Body.String())
}

func Test_parentApi_admin(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)
	c, _ := app.createClass(t, "Form One", "F1")
	amani := app.createStudent(t, "Amani Juma", c.ID).Student
	baraka := app.createStudent(t, "Baraka Mosha", c.ID).Student

	rec := app.do(t, http.MethodPost, "/api/parents", adminToken, parent.NewParent{
		Profile:    parent.Profile{FullName: "Musa Mosha", Phone: "+255700000001", Relationship: "father"},
		Email:      "musa@mail.co.tz",
		StudentIDs: []int64{baraka.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var acc parent.Account
	decode(t, rec, &acc)
	assert.True(t, acc.Parent.IsActive)
	assert.NotEmpty(t, acc.Password)

	parentPath := fmt.Sprintf("/api/parents/%d", acc.Parent.ID)
	rec = app.do(t, http.MethodPost, fmt.Sprintf("%s/students/%d", parentPath, amani.ID), adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var linked parent.Parent
	decode(t, rec, &linked)
	assert.ElementsMatch(t, []int64{amani.ID, baraka.ID}, linked.StudentIDs)

	rec = app.do(t, http.MethodGet, parentPath+"/children", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var children []student.Student
	decode(t, rec, &children)
	assert.Len(t, children, 2)

	rec = app.do(t, http.MethodDelete, fmt.Sprintf("%s/students/%d", parentPath, baraka.ID), adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &linked)
	assert.Equal(t, []int64{amani.ID}, linked.StudentIDs)

	rec = app.do(t, http.MethodDelete, parentPath, adminToken)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, parentPath, adminToken).Code)
}
