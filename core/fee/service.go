package fee

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/student"
)

var (
	ErrStructureNotFound = core.NewNotFoundError("fee structure")
	ErrPaymentNotFound   = core.NewNotFoundError("payment")
	ErrStructureExists   = errors.New("this class already has a fee structure")
	ErrReceiptExists     = errors.New("receipt number already used")
)

const (
	receiptLen      = 8
	receiptAttempts = 3
)

type (
	Repository interface {
		CreateStructure(ctx context.Context, fs Structure) (Structure, error)
		QueryStructures(ctx context.Context) ([]Structure, error)
		GetStructure(ctx context.Context, id int64) (Structure, error)
		GetStructureByClassroom(ctx context.Context, classroomID int64) (Structure, error)
		UpdateStructure(ctx context.Context, fs Structure) (Structure, error)
		DeleteStructure(ctx context.Context, id int64) error

		// CreatePayment returns ErrReceiptExists when the receipt number is taken.
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		// QueryPayments returns the payments newest first.
		QueryPayments(ctx context.Context, filter *PaymentFilter) ([]Payment, error)
		// SumPayments returns the amount paid by each of the given students (all when none given).
		SumPayments(ctx context.Context, studentIDs ...int64) (map[int64]int64, error)
		TotalCollected(ctx context.Context) (int64, error)
	}

	Service interface {
		CreateStructure(ctx context.Context, ns NewStructure) (Structure, error)
		QueryStructures(ctx context.Context) ([]Structure, error)
		GetStructure(ctx context.Context, id int64) (Structure, error)
		UpdateStructure(ctx context.Context, fs Structure, us UpdateStructure) (Structure, error)
		DeleteStructure(ctx context.Context, id int64) error

		RecordPayment(ctx context.Context, np NewPayment) (Payment, error)
		QueryPayments(ctx context.Context, filter *PaymentFilter) ([]Payment, error)
		StudentReport(ctx context.Context, s student.Student) (StudentReport, error)
		Summaries(ctx context.Context, students ...student.Student) ([]Summary, error)
		// DueList returns the students that still owe money. Students whose class has
		// no fee structure are skipped.
		DueList(ctx context.Context, classroomID int64) ([]Summary, error)
		TotalCollected(ctx context.Context) (int64, error)
	}

	service struct {
		repo       Repository
		classSvc   classroom.Service
		studentSvc student.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classSvc classroom.Service, studentSvc student.Service) Service {
	return &service{
		repo:       repo,
		classSvc:   classSvc,
		studentSvc: studentSvc,
	}
}

func (svc *service) CreateStructure(ctx context.Context, ns NewStructure) (Structure, error) {
	if _, err := svc.classSvc.Get(ctx, ns.ClassroomID); err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return Structure{}, core.NewFieldError("classroom_id", "class does not exist")
		}
		return Structure{}, errors.Wrap(err, "finding classroom")
	}
	errExists := core.NewValidationError(ErrStructureExists, core.FieldError{Field: "classroom_id", Error: ErrStructureExists.Error()})
	_, err := svc.repo.GetStructureByClassroom(ctx, ns.ClassroomID)
	switch {
	case err == nil:
		return Structure{}, errExists
	case errors.Cause(err) != ErrStructureNotFound:
		return Structure{}, errors.Wrap(err, "finding fee structure")
	}

	fs, err := svc.repo.CreateStructure(ctx, Structure{ClassroomID: ns.ClassroomID, TotalFee: *ns.TotalFee})
	if err != nil {
		// a concurrent insert won the unique classroom key
		if errors.Cause(err) == ErrStructureExists {
			return Structure{}, errExists
		}
		return Structure{}, err
	}
	return fs, nil
}

func (svc *service) QueryStructures(ctx context.Context) ([]Structure, error) {
	return svc.repo.QueryStructures(ctx)
}

func (svc *service) GetStructure(ctx context.Context, id int64) (Structure, error) {
	return svc.repo.GetStructure(ctx, id)
}

func (svc *service) UpdateStructure(ctx context.Context, fs Structure, us UpdateStructure) (Structure, error) {
	fs.TotalFee = *us.TotalFee
	return svc.repo.UpdateStructure(ctx, fs)
}

func (svc *service) DeleteStructure(ctx context.Context, id int64) error {
	return svc.repo.DeleteStructure(ctx, id)
}

func newReceiptNo() string {
	return strings.ToUpper(uuid.New().String()[:receiptLen])
}

func (svc *service) RecordPayment(ctx context.Context, np NewPayment) (Payment, error) {
	if _, err := svc.studentSvc.Get(ctx, np.StudentID); err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Payment{}, core.NewFieldError("student_id", "student does not exist")
		}
		return Payment{}, errors.Wrap(err, "finding student")
	}

	p := Payment{StudentID: np.StudentID, AmountPaid: np.AmountPaid, Date: time.Now().UTC()}
	var err error
	for i := 0; i < receiptAttempts; i++ {
		p.ReceiptNo = newReceiptNo()
		var created Payment
		if created, err = svc.repo.CreatePayment(ctx, p); err == nil {
			return created, nil
		}
		if errors.Cause(err) != ErrReceiptExists {
			break
		}
	}
	return Payment{}, errors.Wrap(err, "creating payment")
}

func (svc *service) QueryPayments(ctx context.Context, filter *PaymentFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

func (svc *service) StudentReport(ctx context.Context, s student.Student) (StudentReport, error) {
	summaries, err := svc.Summaries(ctx, s)
	if err != nil {
		return StudentReport{}, err
	}
	payments, err := svc.repo.QueryPayments(ctx, &PaymentFilter{StudentIDs: []int64{s.ID}})
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying payments")
	}
	return StudentReport{Summary: summaries[0], Payments: payments}, nil
}

func (svc *service) Summaries(ctx context.Context, students ...student.Student) ([]Summary, error) {
	if len(students) == 0 {
		return []Summary{}, nil
	}
	structures, err := svc.repo.QueryStructures(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	fees := make(map[int64]int64, len(structures))
	for _, fs := range structures {
		fees[fs.ClassroomID] = fs.TotalFee
	}

	ids := make([]int64, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	paid, err := svc.repo.SumPayments(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "summing payments")
	}

	res := make([]Summary, 0, len(students))
	for _, s := range students {
		total, ok := fees[s.ClassroomID]
		res = append(res, Summary{
			Student:      s,
			TotalFee:     total,
			TotalPaid:    paid[s.ID],
			Balance:      Balance(total, paid[s.ID]),
			HasStructure: ok && s.ClassroomID > 0,
		})
	}
	return res, nil
}

func (svc *service) DueList(ctx context.Context, classroomID int64) ([]Summary, error) {
	students, err := svc.studentSvc.Query(ctx, &student.QueryFilter{ClassroomID: classroomID})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	summaries, err := svc.Summaries(ctx, students...)
	if err != nil {
		return nil, err
	}
	due := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if s.HasStructure && s.Balance > 0 {
			due = append(due, s)
		}
	}
	return due, nil
}

func (svc *service) TotalCollected(ctx context.Context) (int64, error) {
	return svc.repo.TotalCollected(ctx)
}
