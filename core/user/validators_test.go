package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesacademy/portal/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	LoadCommonPasswords(nopLogger{})
	return validate, translator
}

func fieldErrors(t *testing.T, err error, translator ut.Translator) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "unexpected error type %T", err)
	errs := make(map[string]string, len(vErrs))
	for _, e := range vErrs {
		errs[e.Field()] = e.Translate(translator)
	}
	return errs
}

func TestPasswordPolicy(t *testing.T) {
	validate, translator := newValidator(t)

	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "min len", pwd: "Ab1@", want: pwdMinLenText},
		{name: "no whitespace", pwd: "Ab1@ cdefg", want: pwdNoSpaceText},
		{name: "not all numeric", pwd: "1234567890", want: pwdNotAllNumText},
		{name: "complexity", pwd: "abcdefgh12", want: pwdComplexityText},
		{name: "similar to username", pwd: "Janedoe@1", want: pwdAttrSimText},
		{name: "too common", pwd: "P@ssw0rd", want: pwdNoCommonText},
		{name: "valid", pwd: "Kilimanjaro#42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				FirstName:       "Jane",
				LastName:        "Doe",
				Username:        "janedoe",
				Email:           "jane@school.test",
				Role:            RoleTeacher,
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			errs := fieldErrors(t, validate.Struct(nu), translator)
			assert.Equal(t, tt.want, errs["password"])
		})
	}
}

func TestRoleValidation(t *testing.T) {
	validate, translator := newValidator(t)

	nu := NewUser{
		Username:        "janedoe",
		Email:           "jane@school.test",
		Role:            "PRINCIPAL",
		Password:        "Kilimanjaro#42",
		PasswordConfirm: "Kilimanjaro#42",
	}
	errs := fieldErrors(t, validate.Struct(nu), translator)
	assert.Equal(t, map[string]string{"role": roleText}, errs)

	nu.Role = RoleAccountant
	assert.NoError(t, validate.Struct(nu))
}

func TestChangePasswordSimilarity(t *testing.T) {
	validate, translator := newValidator(t)

	usr := User{FirstName: "Amani", LastName: "Juma", Username: "amanijuma", Email: "amani@school.test"}
	cp := ChangePassword{OldPassword: "x", Password: "Amanijuma#1", PasswordConfirm: "Amanijuma#1"}
	errs := fieldErrors(t, cp.Validate(usr, validate), translator)
	assert.Equal(t, pwdAttrSimText, errs["password"])
}

func TestGeneratePassword(t *testing.T) {
	validate, _ := newValidator(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		pwd, err := GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, pwd, genPwdLen)
		assert.False(t, seen[pwd], "duplicate password generated")
		seen[pwd] = true

		rp := ResetUserPassword{Token: "t", UID: "u", Password: pwd, PasswordConfirm: pwd}
		assert.NoError(t, rp.Validate(validate), "generated password %q rejected", pwd)
	}
}

func TestLandingPath(t *testing.T) {
	tests := []struct {
		role string
		want string
	}{
		{role: RoleAdmin, want: "/dashboard"},
		{role: RoleTeacher, want: "/teachers/dashboard"},
		{role: RoleStudent, want: "/students/portal"},
		{role: RoleParent, want: "/parents"},
		{role: RoleAccountant, want: "/fees"},
		{role: "", want: "/login"},
		{role: "lol", want: "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, LandingPath(tt.role))
			assert.Equal(t, tt.want, User{Role: tt.role}.LandingPath())
		})
	}
}
