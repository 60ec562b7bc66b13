package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/charlesacademy/portal/apps/api/echo"
	"github.com/charlesacademy/portal/core/user"
	"github.com/charlesacademy/portal/testutil"
)

func Test_home(t *testing.T) {
	app := setup(t)

	rec := app.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to")
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	for _, role := range user.AllRoles {
		name := strings.ToLower(role)
		testutil.CreateUser(t, app.env.UserRepo, "Test", "user_"+name, name+"@charles.ac.tz", testPwd, role, true)
	}
	testutil.CreateUser(t, app.env.UserRepo, "Gone", "gone", "gone@charles.ac.tz", testPwd, user.RoleStudent, false)

	tests := []struct {
		name         string
		uname        string
		pwd          string
		wantCode     int
		wantLanding  string
		wantErrorMsg string
	}{
		{name: "admin", uname: "user_admin", pwd: testPwd, wantCode: http.StatusOK, wantLanding: "/dashboard"},
		{name: "teacher", uname: "user_teacher", pwd: testPwd, wantCode: http.StatusOK, wantLanding: "/teachers/dashboard"},
		{name: "student", uname: "user_student", pwd: testPwd, wantCode: http.StatusOK, wantLanding: "/students/portal"},
		{name: "parent", uname: "user_parent", pwd: testPwd, wantCode: http.StatusOK, wantLanding: "/parents"},
		{name: "accountant", uname: "user_accountant", pwd: testPwd, wantCode: http.StatusOK, wantLanding: "/fees"},
		{name: "by email", uname: "TEACHER@charles.ac.tz", pwd: testPwd, wantCode: http.StatusOK, wantLanding: "/teachers/dashboard"},
		{name: "wrong password", uname: "user_admin", pwd: "nope", wantCode: http.StatusBadRequest, wantErrorMsg: "authentication failed"},
		{name: "unknown user", uname: "ghost", pwd: testPwd, wantCode: http.StatusBadRequest, wantErrorMsg: "authentication failed"},
		{name: "inactive", uname: "gone", pwd: testPwd, wantCode: http.StatusForbidden, wantErrorMsg: "account deactivated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/api/auth/login", "", echoapi.LoginRequest{Username: tt.uname, Password: tt.pwd})
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantErrorMsg != "" {
				var herr httpErr
				decode(t, rec, &herr)
				assert.Equal(t, tt.wantErrorMsg, herr.Error)
				return
			}
			var resp echoapi.LoginResponse
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, tt.wantLanding, resp.LandingPath)
			require.NotNil(t, resp.User)
			assert.False(t, resp.User.LastLogin.IsZero())

			// the token opens the authed endpoints
			rec = app.do(t, http.MethodGet, "/api/auth/me", resp.Token)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	t.Run("missing fields", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/auth/login", "", echoapi.LoginRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var errs map[string]string
		decode(t, rec, &errs)
		assert.Contains(t, errs, "username")
		assert.Contains(t, errs, "password")
	})
}

func Test_userApi_logout(t *testing.T) {
	app := setup(t)
	_, token := app.createUser(t, "walter", user.RoleTeacher)

	app.run(t, []httpTest{
		{name: "before logout", path: "/api/auth/me", token: token, wantCode: http.StatusOK},
		{
			name: "logout", method: http.MethodPost, path: "/api/auth/logout", token: token, wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.SuccessResponse{Success: "You have been logged out."}),
		},
		{
			name: "after logout", path: "/api/auth/me", token: token, wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "token has been revoked"}),
		},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	_, token := app.createUser(t, "walter", user.RoleTeacher)

	rec := app.do(t, http.MethodPost, "/api/auth/token-refresh", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	assert.NotEqual(t, token, resp.Token)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/auth/me", resp.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/auth/me", token).Code)
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	usr, token := app.createUser(t, "penny", user.RoleAccountant)

	app.run(t, []httpTest{
		{name: "Auth required", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Bad token", path: "/api/auth/me", token: "not.a.jwt", wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Me", path: "/api/auth/me", token: token, wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.MeResponse{User: usr, LandingPath: "/fees"}),
		},
	})
}

func Test_userApi_changePassword(t *testing.T) {
	app := setup(t)
	_, token := app.createUser(t, "walter", user.RoleTeacher)
	newPwd := "Serengeti&2077"

	rec := app.do(t, http.MethodPost, "/api/auth/change-password", token, user.ChangePassword{
		OldPassword: "wrong", Password: newPwd, PasswordConfirm: newPwd,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/change-password", token, user.ChangePassword{
		OldPassword: testPwd, Password: newPwd, PasswordConfirm: newPwd,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", echoapi.LoginRequest{Username: "walter", Password: newPwd})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(t, http.MethodPost, "/api/auth/login", "", echoapi.LoginRequest{Username: "walter", Password: testPwd})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_userApi_resetPassword(t *testing.T) {
	app := setup(t)
	usr, _ := app.createUser(t, "walter", user.RoleTeacher)

	// unknown emails look the same from outside
	for _, email := range []string{"ghost@charles.ac.tz", usr.Email} {
		rec := app.do(t, http.MethodPost, "/api/auth/password-reset", "", echoapi.PasswordResetRequest{Email: email})
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	sent := app.env.Mail.SentMessages()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].To, 1)
	assert.Equal(t, usr.Email, sent[0].To[0].Address)
}

func Test_userApi_users(t *testing.T) {
	app := setup(t)
	admin, adminToken := app.createUser(t, "admin", user.RoleAdmin)
	teacher, teacherToken := app.createUser(t, "walter", user.RoleTeacher)
	_, studentToken := app.createUser(t, "sam", user.RoleStudent)

	app.run(t, []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/users", token: studentToken, wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Roles", path: "/api/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, user.Roles)},
		{name: "Own profile", path: "/api/users/" + teacher.ID, token: teacherToken, wantCode: http.StatusOK, wantData: marshalObj(t, teacher)},
		{
			name: "Someone else's profile", path: "/api/users/" + admin.ID, token: teacherToken, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Admin cannot delete self", method: http.MethodDelete, path: "/api/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden,
		},
		{name: "Delete", method: http.MethodDelete, path: "/api/users/" + teacher.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "Deleted user token", path: "/api/auth/me", token: teacherToken, wantCode: http.StatusUnauthorized},
	})
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	adminToken := app.adminToken(t)

	nu := user.NewUser{
		FirstName:       "Grace",
		LastName:        "Mushi",
		Username:        "gmushi",
		Email:           "grace@charles.ac.tz",
		Role:            user.RoleAccountant,
		Password:        testPwd,
		PasswordConfirm: testPwd,
	}
	rec := app.do(t, http.MethodPost, "/api/users", adminToken, nu)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, "gmushi", usr.Username)
	assert.Equal(t, user.RoleAccountant, usr.Role)

	// taken username
	rec = app.do(t, http.MethodPost, "/api/users", adminToken, nu)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown role
	nu.Username, nu.Email, nu.Role = "other", "other@charles.ac.tz", "JANITOR"
	rec = app.do(t, http.MethodPost, "/api/users", adminToken, nu)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
