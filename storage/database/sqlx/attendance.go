package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/attendance"
)

const dateLayout = "2006-01-02"

type attendanceRow struct {
	ID       int64     `db:"id"`
	PersonID int64     `db:"person_id"`
	Date     time.Time `db:"date"`
	Status   string    `db:"status"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// upsert saves (person, date, status) triples in table, keyed on (personCol, date).
func (repo *attendanceRepository) upsert(ctx context.Context, table, personCol string, ids []int64, dates, statuses []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `INSERT INTO ` + table + ` (` + personCol + `, date, status)
		SELECT * FROM UNNEST($1::bigint[], $2::date[], $3::varchar[])
		ON CONFLICT (` + personCol + `, date) DO UPDATE SET status = EXCLUDED.status`
	res, err := repo.db.ExecContext(ctx, q, pq.Array(ids), pq.Array(dates), pq.Array(statuses))
	if err != nil {
		return 0, errors.Wrapf(err, "upserting %s", table)
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrapf(err, "counting %s rows", table)
}

func (repo *attendanceRepository) query(ctx context.Context, table, personCol string, filter *attendance.QueryFilter) ([]attendanceRow, error) {
	var w where
	if filter != nil {
		if !filter.From.IsZero() {
			w.add("date >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			w.add("date < ?", filter.To)
		}
		if len(filter.PersonIDs) > 0 {
			w.add(personCol+" = ANY(?)", pq.Array(filter.PersonIDs))
		}
	}
	base := `SELECT id, ` + personCol + ` AS person_id, date, status FROM ` + table
	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, base, " ORDER BY date DESC, "+personCol), w.args...); err != nil {
		return nil, errors.Wrapf(err, "querying %s", table)
	}
	return rows, nil
}

func (repo *attendanceRepository) UpsertStudentAttendance(ctx context.Context, recs []attendance.StudentAttendance) (int, error) {
	ids := make([]int64, len(recs))
	dates := make([]string, len(recs))
	statuses := make([]string, len(recs))
	for i, r := range recs {
		ids[i], dates[i], statuses[i] = r.StudentID, r.Date.Format(dateLayout), r.Status
	}
	return repo.upsert(ctx, "student_attendance", "student_id", ids, dates, statuses)
}

func (repo *attendanceRepository) QueryStudentAttendance(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.StudentAttendance, error) {
	rows, err := repo.query(ctx, "student_attendance", "student_id", filter)
	if err != nil {
		return nil, err
	}
	recs := make([]attendance.StudentAttendance, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, attendance.StudentAttendance{ID: r.ID, StudentID: r.PersonID, Date: r.Date, Status: r.Status})
	}
	return recs, nil
}

func (repo *attendanceRepository) UpsertTeacherAttendance(ctx context.Context, recs []attendance.TeacherAttendance) (int, error) {
	ids := make([]int64, len(recs))
	dates := make([]string, len(recs))
	statuses := make([]string, len(recs))
	for i, r := range recs {
		ids[i], dates[i], statuses[i] = r.TeacherID, r.Date.Format(dateLayout), r.Status
	}
	return repo.upsert(ctx, "teacher_attendance", "teacher_id", ids, dates, statuses)
}

func (repo *attendanceRepository) QueryTeacherAttendance(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.TeacherAttendance, error) {
	rows, err := repo.query(ctx, "teacher_attendance", "teacher_id", filter)
	if err != nil {
		return nil, err
	}
	recs := make([]attendance.TeacherAttendance, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, attendance.TeacherAttendance{ID: r.ID, TeacherID: r.PersonID, Date: r.Date, Status: r.Status})
	}
	return recs, nil
}
