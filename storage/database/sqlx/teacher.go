package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/teacher"
)

// subject and classroom IDs are aggregated from the link tables
const teacherSelect = `SELECT t.id, t.first_name, t.last_name, t.email, t.phone, t.is_available, t.created_at,
	COALESCE((SELECT array_agg(ts.subject_id ORDER BY ts.subject_id) FROM teacher_subject ts WHERE ts.teacher_id = t.id), '{}') AS subject_ids,
	COALESCE((SELECT array_agg(tc.classroom_id ORDER BY tc.classroom_id) FROM teacher_classroom tc WHERE tc.teacher_id = t.id), '{}') AS classroom_ids
	FROM teacher t`

type teacherRow struct {
	ID           int64         `db:"id"`
	FirstName    string        `db:"first_name"`
	LastName     string        `db:"last_name"`
	Email        string        `db:"email"`
	Phone        string        `db:"phone"`
	IsAvailable  bool          `db:"is_available"`
	CreatedAt    time.Time     `db:"created_at"`
	SubjectIDs   pq.Int64Array `db:"subject_ids"`
	ClassroomIDs pq.Int64Array `db:"classroom_ids"`
}

func (r teacherRow) teacher() teacher.Teacher {
	return teacher.Teacher{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		SubjectIDs:   []int64(r.SubjectIDs),
		ClassroomIDs: []int64(r.ClassroomIDs),
		IsAvailable:  r.IsAvailable,
		CreatedAt:    r.CreatedAt,
	}
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) uniquenessErr(err error) error {
	if violatedConstraint(err) == "teacher_email_key" {
		return teacher.ErrEmailExists
	}
	return err
}

// setLinks replaces the subjects and classes of the teacher.
func (repo *teacherRepository) setLinks(ctx context.Context, tx *sqlx.Tx, t teacher.Teacher) error {
	links := []struct {
		table, col string
		ids        []int64
	}{
		{"teacher_subject", "subject_id", t.SubjectIDs},
		{"teacher_classroom", "classroom_id", t.ClassroomIDs},
	}
	for _, l := range links {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+l.table+` WHERE teacher_id = $1`, t.ID); err != nil {
			return errors.Wrapf(err, "clearing %s", l.table)
		}
		if len(l.ids) == 0 {
			continue
		}
		q := `INSERT INTO ` + l.table + ` (teacher_id, ` + l.col + `) SELECT $1, UNNEST($2::bigint[]) ON CONFLICT DO NOTHING`
		if _, err := tx.ExecContext(ctx, q, t.ID, pq.Array(l.ids)); err != nil {
			return errors.Wrapf(err, "filling %s", l.table)
		}
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO teacher (first_name, last_name, email, phone, is_available, created_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		if err := tx.GetContext(ctx, &t.ID, q, t.FirstName, t.LastName, t.Email, t.Phone, t.IsAvailable, t.CreatedAt.UTC()); err != nil {
			return errors.Wrap(repo.uniquenessErr(err), "inserting teacher")
		}
		return repo.setLinks(ctx, tx, t)
	})
	if err != nil {
		return teacher.Teacher{}, err
	}
	return t, nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter) ([]teacher.Teacher, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.ilike(filter.Search, "t.first_name", "t.last_name", "t.email")
		}
		if filter.IsAvailable != nil {
			w.add("t.is_available = ?", *filter.IsAvailable)
		}
		if filter.ClassroomID > 0 {
			w.add("EXISTS (SELECT 1 FROM teacher_classroom tc WHERE tc.teacher_id = t.id AND tc.classroom_id = ?)", filter.ClassroomID)
		}
	}
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, teacherSelect, " ORDER BY t.first_name, t.last_name"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, r := range rows {
		teachers = append(teachers, r.teacher())
	}
	return teachers, nil
}

func (repo *teacherRepository) getTeacher(ctx context.Context, cond string, arg interface{}) (teacher.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, teacherSelect+" WHERE "+cond, arg); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "finding teacher")
	}
	return row.teacher(), nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, id int64) (teacher.Teacher, error) {
	return repo.getTeacher(ctx, "t.id = $1", id)
}

func (repo *teacherRepository) GetTeacherByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	return repo.getTeacher(ctx, "t.email = $1", email)
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE teacher SET first_name = $1, last_name = $2, email = $3, phone = $4, is_available = $5 WHERE id = $6`
		res, err := tx.ExecContext(ctx, q, t.FirstName, t.LastName, t.Email, t.Phone, t.IsAvailable, t.ID)
		if err != nil {
			return errors.Wrap(repo.uniquenessErr(err), "updating teacher")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return teacher.ErrNotFound
		}
		return repo.setLinks(ctx, tx, t)
	})
	if err != nil {
		return teacher.Teacher{}, err
	}
	return t, nil
}

func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "teacher", id, teacher.ErrNotFound)
}

func (repo *teacherRepository) CountTeachers(ctx context.Context) (int, error) {
	return count(ctx, repo.db, "teacher")
}
