package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/teacher"
)

var (
	ErrAnnouncementNotFound = core.NewNotFoundError("announcement")
	ErrSettingsNotFound     = core.NewNotFoundError("school settings")
)

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		// QueryAnnouncements returns a page of announcements, newest first.
		QueryAnnouncements(ctx context.Context, page core.Page) ([]Announcement, error)
		CountAnnouncements(ctx context.Context) (int, error)
		GetAnnouncement(ctx context.Context, id int64) (Announcement, error)
		// GetAdjacentAnnouncement returns the closest announcement created before (older)
		// or after a, ErrAnnouncementNotFound when there is none.
		GetAdjacentAnnouncement(ctx context.Context, a Announcement, older bool) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id int64) error

		// GetSettings returns ErrSettingsNotFound until settings get saved.
		GetSettings(ctx context.Context) (Settings, error)
		// SaveSettings creates or replaces the one settings row.
		SaveSettings(ctx context.Context, s Settings) (Settings, error)
	}

	Service interface {
		CreateAnnouncement(ctx context.Context, na NewAnnouncement) (Announcement, error)
		// Announcements returns a page of 10 announcements. Out of range pages give the last one.
		Announcements(ctx context.Context, pageNum int) (AnnouncementPage, error)
		LatestAnnouncements(ctx context.Context) ([]AnnouncementItem, error)
		GetAnnouncement(ctx context.Context, id int64) (Announcement, error)
		AnnouncementDetail(ctx context.Context, id int64) (AnnouncementDetail, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, na NewAnnouncement) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id int64) error

		// Settings returns the school settings, saving the defaults the first time.
		Settings(ctx context.Context) (Settings, error)
		UpdateSettings(ctx context.Context, us UpdateSettings) (Settings, error)

		Stats(ctx context.Context) (Stats, error)
	}

	service struct {
		repo       Repository
		classSvc   classroom.Service
		studentSvc student.Service
		teacherSvc teacher.Service
		feeSvc     fee.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classSvc classroom.Service, studentSvc student.Service, teacherSvc teacher.Service, feeSvc fee.Service) Service {
	return &service{
		repo:       repo,
		classSvc:   classSvc,
		studentSvc: studentSvc,
		teacherSvc: teacherSvc,
		feeSvc:     feeSvc,
	}
}

func (svc *service) CreateAnnouncement(ctx context.Context, na NewAnnouncement) (Announcement, error) {
	now := time.Now().UTC()
	return svc.repo.CreateAnnouncement(ctx, Announcement{
		Title:     na.Title,
		Message:   na.Message,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Announcements(ctx context.Context, pageNum int) (AnnouncementPage, error) {
	count, err := svc.repo.CountAnnouncements(ctx)
	if err != nil {
		return AnnouncementPage{}, errors.Wrap(err, "counting announcements")
	}
	page := core.Page{Number: pageNum, Size: AnnouncementsPerPage}
	info := core.NewPageInfo(page, count)
	if info.Number > info.NumPages {
		page.Number = info.NumPages
		info = core.NewPageInfo(page, count)
	}
	page.Number = info.Number

	as, err := svc.repo.QueryAnnouncements(ctx, page)
	if err != nil {
		return AnnouncementPage{}, errors.Wrap(err, "querying announcements")
	}
	return AnnouncementPage{Results: NewAnnouncementItems(as), PageInfo: info}, nil
}

func (svc *service) LatestAnnouncements(ctx context.Context) ([]AnnouncementItem, error) {
	as, err := svc.repo.QueryAnnouncements(ctx, core.Page{Number: 1, Size: latestCount})
	if err != nil {
		return nil, err
	}
	return NewAnnouncementItems(as), nil
}

func (svc *service) GetAnnouncement(ctx context.Context, id int64) (Announcement, error) {
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *service) AnnouncementDetail(ctx context.Context, id int64) (AnnouncementDetail, error) {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return AnnouncementDetail{}, err
	}
	d := AnnouncementDetail{Announcement: a}
	for _, older := range []bool{true, false} {
		adj, err := svc.repo.GetAdjacentAnnouncement(ctx, a, older)
		if err != nil {
			if errors.Cause(err) == ErrAnnouncementNotFound {
				continue
			}
			return AnnouncementDetail{}, errors.Wrap(err, "finding adjacent announcement")
		}
		if older {
			d.Next = &adj
		} else {
			d.Previous = &adj
		}
	}
	return d, nil
}

func (svc *service) UpdateAnnouncement(ctx context.Context, a Announcement, na NewAnnouncement) (Announcement, error) {
	a.Title = na.Title
	a.Message = na.Message
	a.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAnnouncement(ctx, a)
}

func (svc *service) DeleteAnnouncement(ctx context.Context, id int64) error {
	return svc.repo.DeleteAnnouncement(ctx, id)
}

func (svc *service) Settings(ctx context.Context) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx)
	if errors.Cause(err) == ErrSettingsNotFound {
		return svc.repo.SaveSettings(ctx, DefaultSettings())
	}
	return s, err
}

func (svc *service) UpdateSettings(ctx context.Context, us UpdateSettings) (Settings, error) {
	s, err := svc.Settings(ctx)
	if err != nil {
		return Settings{}, err
	}
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.ContactEmail != nil {
		s.ContactEmail = *us.ContactEmail
	}
	if us.Phone != nil {
		s.Phone = *us.Phone
	}
	if us.AcademicYear != nil {
		s.AcademicYear = *us.AcademicYear
	}
	if us.ThemeColor != nil {
		s.ThemeColor = *us.ThemeColor
	}
	if us.LogoURL != nil {
		s.LogoURL = *us.LogoURL
	}
	return svc.repo.SaveSettings(ctx, s)
}

func (svc *service) Stats(ctx context.Context) (Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.Students, err = svc.studentSvc.Count(ctx, nil); err != nil {
		return Stats{}, errors.Wrap(err, "counting students")
	}
	if st.Teachers, err = svc.teacherSvc.Count(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting teachers")
	}
	if st.Classes, err = svc.classSvc.Count(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting classes")
	}
	if st.Subjects, err = svc.classSvc.CountSubjects(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting subjects")
	}
	if st.FeesCollected, err = svc.feeSvc.TotalCollected(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "summing fees")
	}
	if st.Announcements, err = svc.repo.CountAnnouncements(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting announcements")
	}
	if st.LatestAnnouncements, err = svc.LatestAnnouncements(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "querying announcements")
	}
	return st, nil
}
