package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/fee"
)

type feeStructureRow struct {
	ID          int64 `db:"id"`
	ClassroomID int64 `db:"classroom_id"`
	TotalFee    int64 `db:"total_fee"`
}

type paymentRow struct {
	ID         int64     `db:"id"`
	StudentID  int64     `db:"student_id"`
	AmountPaid int64     `db:"amount_paid"`
	Date       time.Time `db:"date"`
	ReceiptNo  string    `db:"receipt_no"`
}

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateStructure(ctx context.Context, fs fee.Structure) (fee.Structure, error) {
	q := `INSERT INTO fee_structure (classroom_id, total_fee) VALUES ($1, $2) RETURNING id`
	if err := repo.db.GetContext(ctx, &fs.ID, q, fs.ClassroomID, fs.TotalFee); err != nil {
		if violatedConstraint(err) == "fee_structure_classroom_key" {
			err = fee.ErrStructureExists
		}
		return fee.Structure{}, errors.Wrap(err, "inserting fee structure")
	}
	return fs, nil
}

func (repo *feeRepository) QueryStructures(ctx context.Context) ([]fee.Structure, error) {
	var rows []feeStructureRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT id, classroom_id, total_fee FROM fee_structure ORDER BY classroom_id`); err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	structures := make([]fee.Structure, 0, len(rows))
	for _, r := range rows {
		structures = append(structures, fee.Structure(r))
	}
	return structures, nil
}

func (repo *feeRepository) getStructure(ctx context.Context, col string, val int64) (fee.Structure, error) {
	var row feeStructureRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, classroom_id, total_fee FROM fee_structure WHERE `+col+` = $1`, val); err != nil {
		return fee.Structure{}, trapNoRowsErr(err, fee.ErrStructureNotFound, "finding fee structure")
	}
	return fee.Structure(row), nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, id int64) (fee.Structure, error) {
	return repo.getStructure(ctx, "id", id)
}

func (repo *feeRepository) GetStructureByClassroom(ctx context.Context, classroomID int64) (fee.Structure, error) {
	return repo.getStructure(ctx, "classroom_id", classroomID)
}

func (repo *feeRepository) UpdateStructure(ctx context.Context, fs fee.Structure) (fee.Structure, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE fee_structure SET total_fee = $1 WHERE id = $2`, fs.TotalFee, fs.ID)
	if err != nil {
		return fee.Structure{}, errors.Wrap(err, "updating fee structure")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fee.Structure{}, fee.ErrStructureNotFound
	}
	return fs, nil
}

func (repo *feeRepository) DeleteStructure(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "fee_structure", id, fee.ErrStructureNotFound)
}

func (repo *feeRepository) CreatePayment(ctx context.Context, p fee.Payment) (fee.Payment, error) {
	q := `INSERT INTO payment (student_id, amount_paid, date, receipt_no) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.GetContext(ctx, &p.ID, q, p.StudentID, p.AmountPaid, p.Date.UTC(), p.ReceiptNo); err != nil {
		if violatedConstraint(err) == "payment_receipt_no_key" {
			return fee.Payment{}, fee.ErrReceiptExists
		}
		return fee.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *feeRepository) QueryPayments(ctx context.Context, filter *fee.PaymentFilter) ([]fee.Payment, error) {
	var w where
	if filter != nil {
		if len(filter.StudentIDs) > 0 {
			w.add("student_id = ANY(?)", pq.Array(filter.StudentIDs))
		}
		if !filter.From.IsZero() {
			w.add("date >= ?", filter.From.UTC())
		}
		if !filter.To.IsZero() {
			w.add("date <= ?", filter.To.UTC())
		}
	}
	var rows []paymentRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, `SELECT id, student_id, amount_paid, date, receipt_no FROM payment`, " ORDER BY date DESC, id DESC"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]fee.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, fee.Payment(r))
	}
	return payments, nil
}

func (repo *feeRepository) SumPayments(ctx context.Context, studentIDs ...int64) (map[int64]int64, error) {
	var w where
	if len(studentIDs) > 0 {
		w.add("student_id = ANY(?)", pq.Array(studentIDs))
	}
	var rows []struct {
		StudentID int64 `db:"student_id"`
		Total     int64 `db:"total"`
	}
	q := w.query(repo.db, `SELECT student_id, SUM(amount_paid) AS total FROM payment`, " GROUP BY student_id")
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "summing payments")
	}
	sums := make(map[int64]int64, len(rows))
	for _, r := range rows {
		sums[r.StudentID] = r.Total
	}
	return sums, nil
}

func (repo *feeRepository) TotalCollected(ctx context.Context) (int64, error) {
	var total int64
	if err := repo.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(amount_paid), 0) FROM payment`); err != nil {
		return 0, errors.Wrap(err, "summing payments")
	}
	return total, nil
}
