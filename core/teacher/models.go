package teacher

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
)

type Teacher struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	SubjectIDs   []int64   `json:"subject_ids"`
	ClassroomIDs []int64   `json:"classroom_ids"`
	IsAvailable  bool      `json:"is_available"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t Teacher) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// Detail is a Teacher with its subjects and classes resolved.
type Detail struct {
	Teacher
	Subjects   []classroom.Subject   `json:"subjects"`
	ClassRooms []classroom.ClassRoom `json:"classrooms"`
}

// Account is a freshly added Teacher with the credentials of its login account.
type Account struct {
	Teacher  Teacher `json:"teacher"`
	Username string  `json:"username"`
	Password string  `json:"password,omitempty"`
}

type NewTeacher struct {
	FirstName    string  `json:"first_name" validate:"required,notblank,max=100"`
	LastName     string  `json:"last_name" validate:"required,notblank,max=100"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        string  `json:"phone" validate:"omitempty,max=20"`
	SubjectIDs   []int64 `json:"subject_ids" validate:"dive,gt=0"`
	ClassroomIDs []int64 `json:"classroom_ids" validate:"dive,gt=0"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
	return validate.Struct(nt)
}

type UpdateTeacher struct {
	FirstName    *string  `json:"first_name" validate:"omitempty,notblank,max=100"`
	LastName     *string  `json:"last_name" validate:"omitempty,notblank,max=100"`
	Email        *string  `json:"email" validate:"omitempty,email"`
	Phone        *string  `json:"phone" validate:"omitempty,max=20"`
	IsAvailable  *bool    `json:"is_available"`
	SubjectIDs   *[]int64 `json:"subject_ids" validate:"omitempty,dive,gt=0"`
	ClassroomIDs *[]int64 `json:"classroom_ids" validate:"omitempty,dive,gt=0"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate) error {
	for _, s := range []*string{ut.FirstName, ut.LastName, ut.Phone} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if ut.Email != nil {
		*ut.Email = core.CleanString(*ut.Email, true /* lower */)
	}
	return validate.Struct(ut)
}

type QueryFilter struct {
	Search      string `query:"search"`
	IsAvailable *bool  `query:"is_available"`
	ClassroomID int64  `query:"classroom"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
