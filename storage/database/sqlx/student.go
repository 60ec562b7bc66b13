package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/charlesacademy/portal/core/student"
)

const studentColumns = `id, user_id, full_name, email, classroom_id, admission_year, registration_number, status, created_at, updated_at`

type studentRow struct {
	ID                 int64       `db:"id"`
	UserID             null.String `db:"user_id"`
	FullName           string      `db:"full_name"`
	Email              null.String `db:"email"`
	ClassroomID        null.Int64  `db:"classroom_id"`
	AdmissionYear      int         `db:"admission_year"`
	RegistrationNumber string      `db:"registration_number"`
	Status             string      `db:"status"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func newStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:                 s.ID,
		UserID:             null.NewString(s.UserID, s.UserID != ""),
		FullName:           s.FullName,
		Email:              null.NewString(s.Email, s.Email != ""),
		ClassroomID:        null.NewInt64(s.ClassroomID, s.ClassroomID > 0),
		AdmissionYear:      s.AdmissionYear,
		RegistrationNumber: s.RegistrationNumber,
		Status:             s.Status,
		CreatedAt:          s.CreatedAt.UTC(),
		UpdatedAt:          s.UpdatedAt.UTC(),
	}
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:                 r.ID,
		UserID:             r.UserID.String,
		FullName:           r.FullName,
		Email:              r.Email.String,
		ClassroomID:        r.ClassroomID.Int64,
		AdmissionYear:      r.AdmissionYear,
		RegistrationNumber: r.RegistrationNumber,
		Status:             r.Status,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) uniquenessErr(err error) error {
	switch violatedConstraint(err) {
	case "student_email_key":
		return student.ErrEmailExists
	case "student_registration_number_key":
		return student.ErrRegNoExists
	}
	return err
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO student (user_id, full_name, email, classroom_id, admission_year, registration_number, status, created_at, updated_at)
		VALUES (:user_id, :full_name, :email, :classroom_id, :admission_year, :registration_number, :status, :created_at, :updated_at)
		RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "preparing student insert")
	}
	defer func() { _ = stmt.Close() }()
	if err = stmt.GetContext(ctx, &s.ID, newStudentRow(s)); err != nil {
		return student.Student{}, errors.Wrap(repo.uniquenessErr(err), "inserting student")
	}
	return s, nil
}

func studentWhere(filter *student.QueryFilter) where {
	var w where
	if filter == nil {
		return w
	}
	if filter.Search != "" {
		w.ilike(filter.Search, "full_name", "email", "registration_number")
	}
	if filter.ClassroomID > 0 {
		w.add("classroom_id = ?", filter.ClassroomID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.AdmissionYear > 0 {
		w.add("admission_year = ?", filter.AdmissionYear)
	}
	if len(filter.IDs) > 0 {
		w.add("id = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.Unlinked {
		w.add("user_id IS NULL")
	}
	return w
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter) ([]student.Student, error) {
	w := studentWhere(filter)
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, `SELECT `+studentColumns+` FROM student`, " ORDER BY full_name, id"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var w where
	switch {
	case filter.ID > 0:
		w.add("id = ?", filter.ID)
	case filter.UserID != "":
		if _, err := uuid.Parse(filter.UserID); err != nil {
			return student.Student{}, student.ErrNotFound
		}
		w.add("user_id = ?", filter.UserID)
	case filter.RegistrationNumber != "":
		w.add("registration_number = ?", filter.RegistrationNumber)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	default:
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	if err := repo.db.GetContext(ctx, &row, w.query(repo.db, `SELECT `+studentColumns+` FROM student`, " LIMIT 1"), w.args...); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return row.student(), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE student SET user_id = :user_id, full_name = :full_name, email = :email, classroom_id = :classroom_id,
		admission_year = :admission_year, registration_number = :registration_number, status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newStudentRow(s))
	if err != nil {
		return student.Student{}, errors.Wrap(repo.uniquenessErr(err), "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "student", id, student.ErrNotFound)
}

func (repo *studentRepository) CountStudents(ctx context.Context, filter *student.QueryFilter) (int, error) {
	w := studentWhere(filter)
	var n int
	if err := repo.db.GetContext(ctx, &n, w.query(repo.db, `SELECT COUNT(*) FROM student`, ""), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}
