package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/charlesacademy/portal/core/parent"
)

const parentSelect = `SELECT p.id, p.user_id, p.full_name, p.phone, p.email, p.relationship, p.address,
	p.occupation, p.is_active, p.created_at, p.updated_at,
	COALESCE((SELECT array_agg(ps.student_id ORDER BY ps.student_id) FROM parent_student ps WHERE ps.parent_id = p.id), '{}') AS student_ids
	FROM parent p`

type parentRow struct {
	ID           int64         `db:"id"`
	UserID       null.String   `db:"user_id"`
	FullName     string        `db:"full_name"`
	Phone        string        `db:"phone"`
	Email        string        `db:"email"`
	Relationship string        `db:"relationship"`
	Address      string        `db:"address"`
	Occupation   string        `db:"occupation"`
	IsActive     bool          `db:"is_active"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
	StudentIDs   pq.Int64Array `db:"student_ids"`
}

func newParentRow(p parent.Parent) parentRow {
	return parentRow{
		ID:           p.ID,
		UserID:       null.NewString(p.UserID, p.UserID != ""),
		FullName:     p.FullName,
		Phone:        p.Phone,
		Email:        p.Email,
		Relationship: p.Relationship,
		Address:      p.Address,
		Occupation:   p.Occupation,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func (r parentRow) parent() parent.Parent {
	return parent.Parent{
		ID:           r.ID,
		UserID:       r.UserID.String,
		FullName:     r.FullName,
		Phone:        r.Phone,
		Email:        r.Email,
		Relationship: r.Relationship,
		Address:      r.Address,
		Occupation:   r.Occupation,
		StudentIDs:   []int64(r.StudentIDs),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type parentRepository struct {
	db *sqlx.DB
}

var _ parent.Repository = (*parentRepository)(nil)

func NewParentRepository(db *sqlx.DB) parent.Repository {
	return &parentRepository{db: db}
}

func (repo *parentRepository) CreateParent(ctx context.Context, p parent.Parent) (parent.Parent, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO parent (user_id, full_name, phone, email, relationship, address, occupation, is_active, created_at, updated_at)
			VALUES (:user_id, :full_name, :phone, :email, :relationship, :address, :occupation, :is_active, :created_at, :updated_at)
			RETURNING id`
		stmt, err := tx.PrepareNamedContext(ctx, q)
		if err != nil {
			return errors.Wrap(err, "preparing parent insert")
		}
		defer stmt.Close()
		if err = stmt.GetContext(ctx, &p.ID, newParentRow(p)); err != nil {
			return errors.Wrap(err, "inserting parent")
		}
		return linkStudents(ctx, tx, p.ID, p.StudentIDs)
	})
	if err != nil {
		return parent.Parent{}, err
	}
	return p, nil
}

func linkStudents(ctx context.Context, tx *sqlx.Tx, parentID int64, studentIDs []int64) error {
	if len(studentIDs) == 0 {
		return nil
	}
	q := `INSERT INTO parent_student (parent_id, student_id) SELECT $1, UNNEST($2::bigint[]) ON CONFLICT DO NOTHING`
	_, err := tx.ExecContext(ctx, q, parentID, pq.Array(studentIDs))
	return errors.Wrap(err, "linking students")
}

func (repo *parentRepository) QueryParents(ctx context.Context, filter *parent.QueryFilter) ([]parent.Parent, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.ilike(filter.Search, "p.full_name", "p.email", "p.phone")
		}
		if filter.IsActive != nil {
			w.add("p.is_active = ?", *filter.IsActive)
		}
		if filter.StudentID != 0 {
			w.add("EXISTS (SELECT 1 FROM parent_student ps WHERE ps.parent_id = p.id AND ps.student_id = ?)", filter.StudentID)
		}
	}
	var rows []parentRow
	if err := repo.db.SelectContext(ctx, &rows, w.query(repo.db, parentSelect, " ORDER BY p.created_at DESC, p.id DESC"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying parents")
	}
	parents := make([]parent.Parent, 0, len(rows))
	for _, r := range rows {
		parents = append(parents, r.parent())
	}
	return parents, nil
}

func (repo *parentRepository) GetParent(ctx context.Context, filter parent.GetFilter) (parent.Parent, error) {
	var w where
	switch {
	case filter.ID != 0:
		w.add("p.id = ?", filter.ID)
	case filter.UserID != "":
		if _, err := uuid.Parse(filter.UserID); err != nil {
			return parent.Parent{}, parent.ErrNotFound
		}
		w.add("p.user_id = ?", filter.UserID)
	default:
		return parent.Parent{}, parent.ErrNotFound
	}
	var row parentRow
	if err := repo.db.GetContext(ctx, &row, w.query(repo.db, parentSelect, ""), w.args...); err != nil {
		return parent.Parent{}, trapNoRowsErr(err, parent.ErrNotFound, "finding parent")
	}
	return row.parent(), nil
}

func (repo *parentRepository) UpdateParent(ctx context.Context, p parent.Parent) (parent.Parent, error) {
	q := `UPDATE parent SET user_id = :user_id, full_name = :full_name, phone = :phone, email = :email,
		relationship = :relationship, address = :address, occupation = :occupation, is_active = :is_active,
		updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newParentRow(p))
	if err != nil {
		return parent.Parent{}, errors.Wrap(err, "updating parent")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return parent.Parent{}, parent.ErrNotFound
	}
	return p, nil
}

func (repo *parentRepository) DeleteParent(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "parent", id, parent.ErrNotFound)
}

func (repo *parentRepository) LinkStudents(ctx context.Context, parentID int64, studentIDs ...int64) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return linkStudents(ctx, tx, parentID, studentIDs)
	})
}

func (repo *parentRepository) UnlinkStudents(ctx context.Context, parentID int64, studentIDs ...int64) error {
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM parent_student WHERE parent_id = $1 AND student_id = ANY($2)`,
		parentID, pq.Array(studentIDs))
	return errors.Wrap(err, "unlinking students")
}

func (repo *parentRepository) CountParentsOfStudent(ctx context.Context, studentID int64) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM parent_student WHERE student_id = $1`, studentID); err != nil {
		return 0, errors.Wrap(err, "counting parents")
	}
	return n, nil
}
