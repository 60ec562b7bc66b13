package classroom

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core"
)

// DefaultFee is the fee of a ClassRoom created without one.
const DefaultFee int64 = 30000

type ClassRoom struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
	Fee  int64  `json:"fee"`
}

type Subject struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ClassroomID int64  `json:"classroom_id"`
}

// ClassRoomDetail is a ClassRoom with its subjects.
type ClassRoomDetail struct {
	ClassRoom
	Subjects []Subject `json:"subjects"`
}

type NewClassRoom struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
	Code string `json:"code" validate:"required,max=10,alphanum"`
	Fee  *int64 `json:"fee" validate:"omitempty,min=0"`
}

func (nc *NewClassRoom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	return validate.Struct(nc)
}

type UpdateClassRoom struct {
	Name *string `json:"name" validate:"omitempty,notblank,max=100"`
	Code *string `json:"code" validate:"omitempty,max=10,alphanum"`
	Fee  *int64  `json:"fee" validate:"omitempty,min=0"`
}

func (uc *UpdateClassRoom) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		*uc.Name = core.CleanString(*uc.Name)
	}
	if uc.Code != nil {
		*uc.Code = strings.ToUpper(core.CleanString(*uc.Code))
	}
	return validate.Struct(uc)
}

type NewSubject struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// SeedClass describes a class and its subjects in the seed file.
type SeedClass struct {
	Name     string   `yaml:"name"`
	Code     string   `yaml:"code"`
	Fee      int64    `yaml:"fee"`
	Subjects []string `yaml:"subjects"`
}

type QueryFilter struct {
	Search string `query:"search"`
}
