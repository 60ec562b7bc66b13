package inmemdb

import (
	"context"
	"sort"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/school"
)

type schoolRepository struct {
	announcements *table[school.Announcement]
	settings      *settingsTable
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{announcements: db.announcement, settings: db.settings}
}

// newer reports whether a was created after b.
func newer(a, b school.Announcement) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (repo *schoolRepository) newestFirst() []school.Announcement {
	list := repo.announcements.all()
	sort.SliceStable(list, func(i, j int) bool { return newer(list[i], list[j]) })
	return list
}

func (repo *schoolRepository) CreateAnnouncement(ctx context.Context, a school.Announcement) (school.Announcement, error) {
	repo.announcements.Lock()
	defer repo.announcements.Unlock()
	return repo.announcements.insert(a, func(a *school.Announcement, id int64) { a.ID = id }), nil
}

func (repo *schoolRepository) QueryAnnouncements(ctx context.Context, page core.Page) ([]school.Announcement, error) {
	repo.announcements.RLock()
	defer repo.announcements.RUnlock()

	list := repo.newestFirst()
	if page.Size <= 0 {
		return list, nil
	}
	start := page.Offset()
	if start >= len(list) {
		return []school.Announcement{}, nil
	}
	end := start + page.Size
	if end > len(list) {
		end = len(list)
	}
	return list[start:end], nil
}

func (repo *schoolRepository) CountAnnouncements(ctx context.Context) (int, error) {
	repo.announcements.RLock()
	defer repo.announcements.RUnlock()
	return len(repo.announcements.rows), nil
}

func (repo *schoolRepository) GetAnnouncement(ctx context.Context, id int64) (school.Announcement, error) {
	repo.announcements.RLock()
	defer repo.announcements.RUnlock()

	if a, ok := repo.announcements.get(id); ok {
		return a, nil
	}
	return school.Announcement{}, school.ErrAnnouncementNotFound
}

func (repo *schoolRepository) GetAdjacentAnnouncement(ctx context.Context, a school.Announcement, older bool) (school.Announcement, error) {
	repo.announcements.RLock()
	defer repo.announcements.RUnlock()

	list := repo.newestFirst()
	if older {
		for _, other := range list {
			if newer(a, other) {
				return other, nil
			}
		}
	} else {
		for i := len(list) - 1; i >= 0; i-- {
			if newer(list[i], a) {
				return list[i], nil
			}
		}
	}
	return school.Announcement{}, school.ErrAnnouncementNotFound
}

func (repo *schoolRepository) UpdateAnnouncement(ctx context.Context, a school.Announcement) (school.Announcement, error) {
	repo.announcements.Lock()
	defer repo.announcements.Unlock()

	if !repo.announcements.replace(a.ID, a) {
		return school.Announcement{}, school.ErrAnnouncementNotFound
	}
	return a, nil
}

func (repo *schoolRepository) DeleteAnnouncement(ctx context.Context, id int64) error {
	repo.announcements.Lock()
	defer repo.announcements.Unlock()

	if !repo.announcements.remove(id) {
		return school.ErrAnnouncementNotFound
	}
	return nil
}

func (repo *schoolRepository) GetSettings(ctx context.Context) (school.Settings, error) {
	repo.settings.RLock()
	defer repo.settings.RUnlock()

	if repo.settings.row == nil {
		return school.Settings{}, school.ErrSettingsNotFound
	}
	return *repo.settings.row, nil
}

func (repo *schoolRepository) SaveSettings(ctx context.Context, s school.Settings) (school.Settings, error) {
	repo.settings.Lock()
	defer repo.settings.Unlock()

	repo.settings.row = &s
	return s, nil
}
