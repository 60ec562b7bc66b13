package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core"
)

const (
	AnnouncementsPerPage = 10
	shortMessageLen      = 100
	latestCount          = 5
)

type Announcement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShortMessage is the message cut to its first 100 characters, for lists.
func (a Announcement) ShortMessage() string { return core.Truncate(a.Message, shortMessageLen) }

// AnnouncementItem is an Announcement as shown in lists.
type AnnouncementItem struct {
	Announcement
	ShortMessage string `json:"short_message"`
}

func NewAnnouncementItems(as []Announcement) []AnnouncementItem {
	items := make([]AnnouncementItem, len(as))
	for i, a := range as {
		items[i] = AnnouncementItem{Announcement: a, ShortMessage: a.ShortMessage()}
	}
	return items
}

type AnnouncementPage struct {
	Results []AnnouncementItem `json:"results"`
	core.PageInfo
}

// AnnouncementDetail is an announcement with its neighbours: Next is the older one,
// Previous the newer one.
type AnnouncementDetail struct {
	Announcement
	Next     *Announcement `json:"next"`
	Previous *Announcement `json:"previous"`
}

type NewAnnouncement struct {
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Message string `json:"message" validate:"required,notblank"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Message = core.CleanString(na.Message)
	return validate.Struct(na)
}

type Settings struct {
	Name         string `json:"name" db:"name"`
	ContactEmail string `json:"contact_email" db:"contact_email"`
	Phone        string `json:"phone" db:"phone"`
	AcademicYear string `json:"academic_year" db:"academic_year"`
	ThemeColor   string `json:"theme_color" db:"theme_color"`
	LogoURL      string `json:"logo_url" db:"logo_url"`
}

// DefaultSettings are the settings of a school that never saved any.
func DefaultSettings() Settings {
	return Settings{
		Name:         "Charles Academy",
		ContactEmail: "admin@charlesacademy.edu",
		Phone:        "+255 123 456 789",
		AcademicYear: time.Now().Format("2006"),
		ThemeColor:   "#4361ee",
	}
}

type UpdateSettings struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=200"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	AcademicYear *string `json:"academic_year" validate:"omitempty,max=20"`
	ThemeColor   *string `json:"theme_color" validate:"omitempty,hexcolor_"`
	LogoURL      *string `json:"logo_url" validate:"omitempty,url,max=500"`
}

func (us *UpdateSettings) Validate(validate *validator.Validate) error {
	for _, s := range []*string{us.Name, us.Phone, us.AcademicYear, us.ThemeColor, us.LogoURL} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if us.ContactEmail != nil {
		*us.ContactEmail = core.CleanString(*us.ContactEmail, true /* lower */)
	}
	return validate.Struct(us)
}

// Stats are the figures of the admin dashboard.
type Stats struct {
	Students            int                `json:"students"`
	Teachers            int                `json:"teachers"`
	Classes             int                `json:"classes"`
	Subjects            int                `json:"subjects"`
	FeesCollected       int64              `json:"fees_collected"`
	Announcements       int                `json:"announcements"`
	LatestAnnouncements []AnnouncementItem `json:"latest_announcements"`
}
