package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/charlesacademy/portal/apps/api/echo"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/teacher"
	"github.com/charlesacademy/portal/core/user"
	"github.com/charlesacademy/portal/testutil"
)

const testPwd = "Kilimanjaro#42"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	echoapi.Server
	env *testutil.Env
}

func setup(t *testing.T) *testApp {
	env := testutil.NewEnv(t)
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		Sessions:       env.Sessions,
		UserSvc:        env.UserSvc,
		ClassSvc:       env.ClassSvc,
		StudentSvc:     env.StudentSvc,
		TeacherSvc:     env.TeacherSvc,
		AttendanceSvc:  env.AttendanceSvc,
		ExamSvc:        env.ExamSvc,
		FeeSvc:         env.FeeSvc,
		ParentSvc:      env.ParentSvc,
		SchoolSvc:      env.SchoolSvc,
		DisableReqLogs: true,
	})
	return &testApp{Server: srv, env: env}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do sends obj (if any) as JSON and returns the recorded response.
func (app *testApp) do(t *testing.T, method, path, token string, obj ...interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data [][]byte
	if len(obj) > 0 {
		data = append(data, marshalObj(t, obj[0]))
	}
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			var data [][]byte
			if tt.body != nil {
				data = append(data, tt.body)
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, data...)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func (app *testApp) createUser(t *testing.T, uname, role string) (user.User, string) {
	t.Helper()
	usr := testutil.CreateUser(t, app.env.UserRepo, "Test", uname, uname+"@charles.ac.tz", testPwd, role, true)
	return usr, getToken(t, app, usr)
}

func (app *testApp) adminToken(t *testing.T) string {
	_, token := app.createUser(t, "admin", user.RoleAdmin)
	return token
}

func (app *testApp) createClass(t *testing.T, name, code string, subjects ...string) (classroom.ClassRoom, []classroom.Subject) {
	t.Helper()
	ctx := context.Background()
	c, err := app.env.ClassSvc.Create(ctx, classroom.NewClassRoom{Name: name, Code: code})
	require.NoError(t, err)
	subs := make([]classroom.Subject, 0, len(subjects))
	for _, s := range subjects {
		sub, err := app.env.ClassSvc.CreateSubject(ctx, c.ID, classroom.NewSubject{Name: s})
		require.NoError(t, err)
		subs = append(subs, sub)
	}
	return c, subs
}

func (app *testApp) createStudent(t *testing.T, name string, classID int64) student.Account {
	t.Helper()
	acc, err := app.env.StudentSvc.Create(context.Background(), student.NewStudent{
		FullName:      name,
		ClassroomID:   classID,
		AdmissionYear: 2024,
	})
	require.NoError(t, err)
	return acc
}

func (app *testApp) createTeacher(t *testing.T, first, last, email string, classIDs ...int64) teacher.Account {
	t.Helper()
	acc, err := app.env.TeacherSvc.Create(context.Background(), teacher.NewTeacher{
		FirstName:    first,
		LastName:     last,
		Email:        email,
		ClassroomIDs: classIDs,
	})
	require.NoError(t, err)
	return acc
}

// studentToken logs in as the account of s.
func (app *testApp) studentToken(t *testing.T, s student.Student) string {
	t.Helper()
	usr, err := app.env.UserSvc.GetByID(context.Background(), s.UserID)
	require.NoError(t, err)
	return getToken(t, app, usr)
}

func getToken(t *testing.T, app *testApp, usr user.User) string {
	token, err := echoapi.GenerateToken(app.env.Conf, echoapi.NewClaims(app.env.Conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
