package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/classroom"
)

type classroomRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Code string `db:"code"`
	Fee  int64  `db:"fee"`
}

type subjectRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	ClassroomID int64  `db:"classroom_id"`
}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *sqlx.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) uniquenessErr(err error) error {
	switch violatedConstraint(err) {
	case "classroom_code_key":
		return classroom.ErrCodeExists
	case "subject_classroom_name_key":
		return classroom.ErrSubjectExists
	}
	return err
}

func (repo *classroomRepository) CreateClassRoom(ctx context.Context, c classroom.ClassRoom) (classroom.ClassRoom, error) {
	q := `INSERT INTO classroom (name, code, fee) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.GetContext(ctx, &c.ID, q, c.Name, c.Code, c.Fee); err != nil {
		return classroom.ClassRoom{}, errors.Wrap(repo.uniquenessErr(err), "inserting classroom")
	}
	return c, nil
}

func (repo *classroomRepository) QueryClassRooms(ctx context.Context, filter *classroom.QueryFilter) ([]classroom.ClassRoom, error) {
	var w where
	if filter != nil && filter.Search != "" {
		w.ilike(filter.Search, "name", "code")
	}
	var rows []classroomRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, `SELECT id, name, code, fee FROM classroom`, " ORDER BY name"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	classes := make([]classroom.ClassRoom, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, classroom.ClassRoom(r))
	}
	return classes, nil
}

func (repo *classroomRepository) getClassRoom(ctx context.Context, col string, val interface{}) (classroom.ClassRoom, error) {
	var row classroomRow
	q := `SELECT id, name, code, fee FROM classroom WHERE ` + col + ` = $1`
	if err := repo.db.GetContext(ctx, &row, q, val); err != nil {
		return classroom.ClassRoom{}, trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom")
	}
	return classroom.ClassRoom(row), nil
}

func (repo *classroomRepository) GetClassRoom(ctx context.Context, id int64) (classroom.ClassRoom, error) {
	return repo.getClassRoom(ctx, "id", id)
}

func (repo *classroomRepository) GetClassRoomByCode(ctx context.Context, code string) (classroom.ClassRoom, error) {
	return repo.getClassRoom(ctx, "code", code)
}

func (repo *classroomRepository) UpdateClassRoom(ctx context.Context, c classroom.ClassRoom) (classroom.ClassRoom, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE classroom SET name = $1, code = $2, fee = $3 WHERE id = $4`, c.Name, c.Code, c.Fee, c.ID)
	if err != nil {
		return classroom.ClassRoom{}, errors.Wrap(repo.uniquenessErr(err), "updating classroom")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return classroom.ClassRoom{}, classroom.ErrNotFound
	}
	return c, nil
}

func (repo *classroomRepository) DeleteClassRoom(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "classroom", id, classroom.ErrNotFound)
}

func (repo *classroomRepository) CountClassRooms(ctx context.Context) (int, error) {
	return count(ctx, repo.db, "classroom")
}

func (repo *classroomRepository) CreateSubject(ctx context.Context, s classroom.Subject) (classroom.Subject, error) {
	q := `INSERT INTO subject (name, classroom_id) VALUES ($1, $2) RETURNING id`
	if err := repo.db.GetContext(ctx, &s.ID, q, s.Name, s.ClassroomID); err != nil {
		return classroom.Subject{}, errors.Wrap(repo.uniquenessErr(err), "inserting subject")
	}
	return s, nil
}

func (repo *classroomRepository) selectSubjects(ctx context.Context, w where) ([]classroom.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, `SELECT id, name, classroom_id FROM subject`, " ORDER BY classroom_id, name"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]classroom.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, classroom.Subject(r))
	}
	return subjects, nil
}

func (repo *classroomRepository) QuerySubjects(ctx context.Context, classroomIDs ...int64) ([]classroom.Subject, error) {
	var w where
	if len(classroomIDs) > 0 {
		w.add("classroom_id = ANY(?)", pq.Array(classroomIDs))
	}
	return repo.selectSubjects(ctx, w)
}

func (repo *classroomRepository) GetSubject(ctx context.Context, id int64) (classroom.Subject, error) {
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, name, classroom_id FROM subject WHERE id = $1`, id); err != nil {
		return classroom.Subject{}, trapNoRowsErr(err, classroom.ErrSubjectNotFound, "finding subject")
	}
	return classroom.Subject(row), nil
}

func (repo *classroomRepository) GetSubjectsByID(ctx context.Context, ids ...int64) ([]classroom.Subject, error) {
	var w where
	w.add("id = ANY(?)", pq.Array(ids))
	return repo.selectSubjects(ctx, w)
}

func (repo *classroomRepository) UpdateSubject(ctx context.Context, s classroom.Subject) (classroom.Subject, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE subject SET name = $1 WHERE id = $2`, s.Name, s.ID)
	if err != nil {
		return classroom.Subject{}, errors.Wrap(repo.uniquenessErr(err), "updating subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return classroom.Subject{}, classroom.ErrSubjectNotFound
	}
	return s, nil
}

func (repo *classroomRepository) DeleteSubject(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "subject", id, classroom.ErrSubjectNotFound)
}

func (repo *classroomRepository) CountSubjects(ctx context.Context) (int, error) {
	return count(ctx, repo.db, "subject")
}
