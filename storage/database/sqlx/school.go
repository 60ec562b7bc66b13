package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/school"
)

const announcementSelect = `SELECT id, title, message, created_at, updated_at FROM announcement`

type announcementRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateAnnouncement(ctx context.Context, a school.Announcement) (school.Announcement, error) {
	q := `INSERT INTO announcement (title, message, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.GetContext(ctx, &a.ID, q, a.Title, a.Message, a.CreatedAt.UTC(), a.UpdatedAt.UTC()); err != nil {
		return school.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo *schoolRepository) selectAnnouncements(ctx context.Context, q string, args ...interface{}) ([]school.Announcement, error) {
	var rows []announcementRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	list := make([]school.Announcement, 0, len(rows))
	for _, r := range rows {
		list = append(list, school.Announcement(r))
	}
	return list, nil
}

func (repo *schoolRepository) QueryAnnouncements(ctx context.Context, page core.Page) ([]school.Announcement, error) {
	q := announcementSelect + ` ORDER BY created_at DESC, id DESC`
	if page.Size > 0 {
		return repo.selectAnnouncements(ctx, q+` LIMIT $1 OFFSET $2`, page.Size, page.Offset())
	}
	return repo.selectAnnouncements(ctx, q)
}

func (repo *schoolRepository) CountAnnouncements(ctx context.Context) (int, error) {
	return count(ctx, repo.db, "announcement")
}

func (repo *schoolRepository) GetAnnouncement(ctx context.Context, id int64) (school.Announcement, error) {
	var row announcementRow
	if err := repo.db.GetContext(ctx, &row, announcementSelect+` WHERE id = $1`, id); err != nil {
		return school.Announcement{}, trapNoRowsErr(err, school.ErrAnnouncementNotFound, "finding announcement")
	}
	return school.Announcement(row), nil
}

func (repo *schoolRepository) GetAdjacentAnnouncement(ctx context.Context, a school.Announcement, older bool) (school.Announcement, error) {
	q := announcementSelect + ` WHERE (created_at, id) > ($1, $2) ORDER BY created_at ASC, id ASC LIMIT 1`
	if older {
		q = announcementSelect + ` WHERE (created_at, id) < ($1, $2) ORDER BY created_at DESC, id DESC LIMIT 1`
	}
	var row announcementRow
	if err := repo.db.GetContext(ctx, &row, q, a.CreatedAt.UTC(), a.ID); err != nil {
		return school.Announcement{}, trapNoRowsErr(err, school.ErrAnnouncementNotFound, "finding adjacent announcement")
	}
	return school.Announcement(row), nil
}

func (repo *schoolRepository) UpdateAnnouncement(ctx context.Context, a school.Announcement) (school.Announcement, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE announcement SET title = $1, message = $2, updated_at = $3 WHERE id = $4`,
		a.Title, a.Message, a.UpdatedAt.UTC(), a.ID)
	if err != nil {
		return school.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Announcement{}, school.ErrAnnouncementNotFound
	}
	return a, nil
}

func (repo *schoolRepository) DeleteAnnouncement(ctx context.Context, id int64) error {
	return deleteByID(ctx, repo.db, "announcement", id, school.ErrAnnouncementNotFound)
}

func (repo *schoolRepository) GetSettings(ctx context.Context) (school.Settings, error) {
	var s school.Settings
	q := `SELECT name, contact_email, phone, academic_year, theme_color, logo_url FROM school_settings WHERE id = 1`
	if err := repo.db.GetContext(ctx, &s, q); err != nil {
		return school.Settings{}, trapNoRowsErr(err, school.ErrSettingsNotFound, "finding school settings")
	}
	return s, nil
}

func (repo *schoolRepository) SaveSettings(ctx context.Context, s school.Settings) (school.Settings, error) {
	q := `INSERT INTO school_settings (id, name, contact_email, phone, academic_year, theme_color, logo_url)
		VALUES (1, :name, :contact_email, :phone, :academic_year, :theme_color, :logo_url)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, contact_email = EXCLUDED.contact_email,
		phone = EXCLUDED.phone, academic_year = EXCLUDED.academic_year, theme_color = EXCLUDED.theme_color,
		logo_url = EXCLUDED.logo_url`
	if _, err := repo.db.NamedExecContext(ctx, q, s); err != nil {
		return school.Settings{}, errors.Wrap(err, "saving school settings")
	}
	return s, nil
}
