package fee

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core/student"
)

type Structure struct {
	ID          int64 `json:"id"`
	ClassroomID int64 `json:"classroom_id"`
	TotalFee    int64 `json:"total_fee"`
}

type Payment struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	AmountPaid int64     `json:"amount_paid"`
	Date       time.Time `json:"date"`
	ReceiptNo  string    `json:"receipt_no"`
}

type NewStructure struct {
	ClassroomID int64  `json:"classroom_id" validate:"required,gt=0"`
	TotalFee    *int64 `json:"total_fee" validate:"required,min=0"`
}

func (ns *NewStructure) Validate(validate *validator.Validate) error { return validate.Struct(ns) }

type UpdateStructure struct {
	TotalFee *int64 `json:"total_fee" validate:"required,min=0"`
}

func (us *UpdateStructure) Validate(validate *validator.Validate) error { return validate.Struct(us) }

type NewPayment struct {
	StudentID  int64 `json:"student_id" validate:"required,gt=0"`
	AmountPaid int64 `json:"amount_paid" validate:"required,gt=0"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error { return validate.Struct(np) }

type PaymentFilter struct {
	StudentIDs []int64   `query:"student"`
	From       time.Time `query:"from"`
	To         time.Time `query:"to"`
}

// Balance is what is left to pay on totalFee once paid is deducted.
func Balance(totalFee, paid int64) int64 { return totalFee - paid }

// Summary is the fee position of one student. TotalFee is 0 when the student's
// class has no fee structure.
type Summary struct {
	Student      student.Student `json:"student"`
	TotalFee     int64           `json:"total_fee"`
	TotalPaid    int64           `json:"total_paid"`
	Balance      int64           `json:"balance"`
	HasStructure bool            `json:"has_structure"`
}

type StudentReport struct {
	Summary
	Payments []Payment `json:"payments"`
}
