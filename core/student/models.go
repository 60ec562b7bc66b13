package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core"
)

// Statuses
const (
	StatusActive      = "ACTIVE"
	StatusGraduated   = "GRADUATED"
	StatusTransferred = "TRANSFERRED"
)

var Statuses = []string{StatusActive, StatusGraduated, StatusTransferred}

type Student struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id,omitempty"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email,omitempty"`
	ClassroomID        int64     `json:"classroom_id,omitempty"`
	AdmissionYear      int       `json:"admission_year"`
	RegistrationNumber string    `json:"registration_number"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Names splits FullName into a first name and the rest.
func (s Student) Names() (first, last string) {
	parts := strings.Fields(s.FullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// Account is a freshly enrolled Student with the credentials of its login account.
type Account struct {
	Student  Student `json:"student"`
	Username string  `json:"username"`
	Password string  `json:"password,omitempty"`
}

type NewStudent struct {
	FullName      string `json:"full_name" validate:"required,min=3,max=200"`
	Email         string `json:"email" validate:"omitempty,email"`
	ClassroomID   int64  `json:"classroom_id" validate:"required,gt=0"`
	AdmissionYear int    `json:"admission_year" validate:"omitempty,gte=2000,lte=2100"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FullName = strings.Join(strings.Fields(ns.FullName), " ")
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	if ns.AdmissionYear == 0 {
		ns.AdmissionYear = time.Now().Year()
	}
	return validate.Struct(ns)
}

type UpdateStudent struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=3,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	ClassroomID *int64  `json:"classroom_id" validate:"omitempty,gt=0"`
	Status      string  `json:"status" validate:"omitempty,oneof=ACTIVE GRADUATED TRANSFERRED"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	if us.FullName != nil {
		*us.FullName = strings.Join(strings.Fields(*us.FullName), " ")
	}
	if us.Email != nil {
		*us.Email = core.CleanString(*us.Email, true /* lower */)
	}
	us.Status = strings.ToUpper(core.CleanString(us.Status))
	return validate.Struct(us)
}

type QueryFilter struct {
	Search        string  `query:"search"`
	ClassroomID   int64   `query:"classroom"`
	Status        string  `query:"status"`
	AdmissionYear int     `query:"admission_year"`
	IDs           []int64 `query:"-"`
	Unlinked      bool    `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = strings.ToUpper(core.CleanString(qf.Status))
}

// GetFilter selects a single Student. The first non-empty field is used.
type GetFilter struct {
	ID                 int64
	UserID             string
	RegistrationNumber string
	Email              string
}
