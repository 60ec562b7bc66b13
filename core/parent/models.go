package parent

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/user"
)

// Relationships
const (
	RelationshipFather   = "FATHER"
	RelationshipMother   = "MOTHER"
	RelationshipGuardian = "GUARDIAN"
	RelationshipOther    = "OTHER"
)

var Relationships = []string{RelationshipFather, RelationshipMother, RelationshipGuardian, RelationshipOther}

// Registration decisions
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

const countryCode = "+255"

type Parent struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Relationship string    `json:"relationship"`
	Address      string    `json:"address"`
	Occupation   string    `json:"occupation"`
	StudentIDs   []int64   `json:"student_ids"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Initials of the first and last names, used for avatars.
func (p Parent) Initials() string {
	names := strings.Fields(p.FullName)
	switch {
	case len(names) >= 2:
		first, _ := utf8.DecodeRuneInString(names[0])
		last, _ := utf8.DecodeRuneInString(names[len(names)-1])
		return strings.ToUpper(string([]rune{first, last}))
	case len(names) == 1:
		runes := []rune(names[0])
		if len(runes) > 2 {
			runes = runes[:2]
		}
		return strings.ToUpper(string(runes))
	}
	return ""
}

func (p Parent) HasChild(studentID int64) bool {
	for _, id := range p.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// NormalizePhone trims phone and puts it in international format:
// a leading 0 becomes the country code, anything else gets a "+" prefix.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	switch {
	case phone == "", strings.HasPrefix(phone, "+"):
		return phone
	case strings.HasPrefix(phone, "0"):
		return countryCode + phone[1:]
	default:
		return "+" + phone
	}
}

// Profile holds the fields shared by registration and admin creation.
type Profile struct {
	FullName     string `json:"full_name" validate:"required,notblank,max=200"`
	Phone        string `json:"phone" validate:"required,phone"`
	Relationship string `json:"relationship" validate:"required,oneof=FATHER MOTHER GUARDIAN OTHER"`
	Address      string `json:"address" validate:"max=500"`
	Occupation   string `json:"occupation" validate:"max=100"`
}

func (p *Profile) clean() {
	p.FullName = strings.Join(strings.Fields(p.FullName), " ")
	p.Phone = NormalizePhone(p.Phone)
	p.Relationship = strings.ToUpper(core.CleanString(p.Relationship))
	if p.Relationship == "" {
		p.Relationship = RelationshipGuardian
	}
	p.Address = core.CleanString(p.Address)
	p.Occupation = core.CleanString(p.Occupation)
}

// Registration is a parent signing up for the portal. The account stays inactive
// until an admin approves it.
type Registration struct {
	Profile
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	Password                  string `json:"password"`
	PasswordConfirm           string `json:"password_confirm"`
	StudentRegistrationNumber string `json:"student_registration_number" validate:"required,max=50"`
}

func (r *Registration) Validate(validate *validator.Validate) error {
	r.Profile.clean()
	r.Username = core.CleanString(r.Username, true /* lower */)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.StudentRegistrationNumber = strings.ToUpper(core.CleanString(r.StudentRegistrationNumber))

	var errs validator.ValidationErrors
	for _, s := range []interface{}{r.newUser(), r} {
		if err := validate.Struct(s); err != nil {
			verrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return err
			}
			errs = append(errs, verrs...)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r Registration) newUser() user.NewUser {
	first, last := splitName(r.FullName)
	return user.NewUser{
		FirstName:       first,
		LastName:        last,
		Username:        r.Username,
		Email:           r.Email,
		Role:            user.RoleParent,
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
	}
}

// NewParent is a parent added by an admin. An empty Password means a random one gets generated.
type NewParent struct {
	Profile
	Email      string  `json:"email" validate:"required,email"`
	Username   string  `json:"username" validate:"omitempty,min=3,max=150,alphanum_"`
	StudentIDs []int64 `json:"student_ids" validate:"dive,gt=0"`
}

func (np *NewParent) Validate(validate *validator.Validate) error {
	np.Profile.clean()
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Username = core.CleanString(np.Username, true /* lower */)
	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.Username == "" {
		np.Username = np.Email
	}
	return nil
}

// Account is a parent created by an admin with the credentials of its login account.
type Account struct {
	Parent   Parent `json:"parent"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

type UpdateParent struct {
	FullName     *string `json:"full_name" validate:"omitempty,notblank,max=200"`
	Phone        *string `json:"phone" validate:"omitempty,phone"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Relationship *string `json:"relationship" validate:"omitempty,oneof=FATHER MOTHER GUARDIAN OTHER"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	Occupation   *string `json:"occupation" validate:"omitempty,max=100"`
}

func (up *UpdateParent) Validate(validate *validator.Validate) error {
	if up.FullName != nil {
		*up.FullName = strings.Join(strings.Fields(*up.FullName), " ")
	}
	if up.Phone != nil {
		*up.Phone = NormalizePhone(*up.Phone)
	}
	if up.Email != nil {
		*up.Email = core.CleanString(*up.Email, true /* lower */)
	}
	if up.Relationship != nil {
		*up.Relationship = strings.ToUpper(core.CleanString(*up.Relationship))
	}
	for _, s := range []*string{up.Address, up.Occupation} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(up)
}

// Decision is an admin's answer to a pending registration.
type Decision struct {
	Action string `json:"action" validate:"required,oneof=APPROVE REJECT"`
	Reason string `json:"reason" validate:"max=500"`
}

func (d *Decision) Validate(validate *validator.Validate) error {
	d.Action = strings.ToUpper(core.CleanString(d.Action))
	d.Reason = core.CleanString(d.Reason)
	return validate.Struct(d)
}

type SetActive struct {
	IsActive *bool  `json:"is_active" validate:"required"`
	Reason   string `json:"reason" validate:"max=500"`
}

func (sa *SetActive) Validate(validate *validator.Validate) error {
	sa.Reason = core.CleanString(sa.Reason)
	return validate.Struct(sa)
}

type QueryFilter struct {
	Search    string `query:"search"`
	IsActive  *bool  `query:"is_active"`
	StudentID int64  `query:"student"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Parent. The first non-empty field is used.
type GetFilter struct {
	ID     int64
	UserID string
}

// ChildSummary is what the parent portal shows about one child.
type ChildSummary struct {
	Student    student.Student    `json:"student"`
	Attendance attendance.Summary `json:"attendance"`
	Fees       fee.Summary        `json:"fees"`
}

type Dashboard struct {
	Parent        Parent         `json:"parent"`
	Initials      string         `json:"initials"`
	Children      []ChildSummary `json:"children"`
	FamilyBalance int64          `json:"family_balance"`
}

func splitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
