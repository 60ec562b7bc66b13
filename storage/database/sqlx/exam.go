package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/exam"
)

type examRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	ClassroomID int64     `db:"classroom_id"`
	ExamType    string    `db:"exam_type"`
	Date        time.Time `db:"date"`
}

type resultRow struct {
	ID        int64 `db:"id"`
	StudentID int64 `db:"student_id"`
	ExamID    int64 `db:"exam_id"`
	SubjectID int64 `db:"subject_id"`
	Marks     int   `db:"marks"`
}

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil)

func NewExamRepository(db *sqlx.DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) CreateExam(ctx context.Context, e exam.Exam) (exam.Exam, error) {
	q := `INSERT INTO exam (name, classroom_id, exam_type, date) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.GetContext(ctx, &e.ID, q, e.Name, e.ClassroomID, e.ExamType, e.Date.Format(dateLayout)); err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return e, nil
}

func (repo *examRepository) QueryExams(ctx context.Context, filter *exam.QueryFilter) ([]exam.Exam, error) {
	var w where
	if filter != nil {
		if filter.ClassroomID > 0 {
			w.add("classroom_id = ?", filter.ClassroomID)
		}
		if filter.ExamType != "" {
			w.add("exam_type = ?", filter.ExamType)
		}
	}
	var rows []examRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, `SELECT id, name, classroom_id, exam_type, date FROM exam`, " ORDER BY date DESC, id DESC"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	exams := make([]exam.Exam, 0, len(rows))
	for _, r := range rows {
		exams = append(exams, exam.Exam(r))
	}
	return exams, nil
}

func (repo *examRepository) GetExam(ctx context.Context, id int64) (exam.Exam, error) {
	var row examRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, name, classroom_id, exam_type, date FROM exam WHERE id = $1`, id); err != nil {
		return exam.Exam{}, trapNoRowsErr(err, exam.ErrNotFound, "finding exam")
	}
	return exam.Exam(row), nil
}

func (repo *examRepository) DeleteExam(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "exam", id, exam.ErrNotFound)
}

func (repo *examRepository) UpsertResults(ctx context.Context, results []exam.Result) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	var studentIDs, examIDs, subjectIDs, marks []int64
	for _, r := range results {
		studentIDs = append(studentIDs, r.StudentID)
		examIDs = append(examIDs, r.ExamID)
		subjectIDs = append(subjectIDs, r.SubjectID)
		marks = append(marks, int64(r.Marks))
	}
	q := `INSERT INTO result (student_id, exam_id, subject_id, marks)
		SELECT * FROM UNNEST($1::bigint[], $2::bigint[], $3::bigint[], $4::int[])
		ON CONFLICT (student_id, exam_id, subject_id) DO UPDATE SET marks = EXCLUDED.marks`
	res, err := repo.db.ExecContext(ctx, q, pq.Array(studentIDs), pq.Array(examIDs), pq.Array(subjectIDs), pq.Array(marks))
	if err != nil {
		return 0, errors.Wrap(err, "upserting results")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "counting results")
}

func (repo *examRepository) QueryResults(ctx context.Context, filter exam.ResultFilter) ([]exam.Result, error) {
	var w where
	if filter.ExamID > 0 {
		w.add("r.exam_id = ?", filter.ExamID)
	}
	if len(filter.StudentIDs) > 0 {
		w.add("r.student_id = ANY(?)", pq.Array(filter.StudentIDs))
	}
	base := `SELECT r.id, r.student_id, r.exam_id, r.subject_id, r.marks FROM result r JOIN exam e ON e.id = r.exam_id`
	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, base, " ORDER BY e.date, r.exam_id, r.subject_id, r.student_id"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	results := make([]exam.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, exam.Result(r))
	}
	return results, nil
}
