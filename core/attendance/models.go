package attendance

import (
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core"
)

// Statuses
const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
	StatusLate    = "LATE"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate}

type StudentAttendance struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
}

type TeacherAttendance struct {
	ID        int64     `json:"id"`
	TeacherID int64     `json:"teacher_id"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Mark holds one attendance sheet: the status of each person (keyed by ID) on Date.
// Date defaults to today and blank statuses are skipped.
type Mark struct {
	Date        time.Time        `json:"date"`
	ClassroomID int64            `json:"classroom_id" validate:"omitempty,gt=0"`
	Statuses    map[int64]string `json:"statuses" validate:"required,dive,keys,gt=0,endkeys,oneof=PRESENT ABSENT LATE"`
}

func (m *Mark) Validate(validate *validator.Validate) error {
	if m.Date.IsZero() {
		m.Date = time.Now()
	}
	m.Date = Day(m.Date)
	statuses := make(map[int64]string, len(m.Statuses))
	for id, st := range m.Statuses {
		if st = strings.ToUpper(core.CleanString(st)); st != "" {
			statuses[id] = st
		}
	}
	m.Statuses = statuses
	return validate.Struct(m)
}

type QueryFilter struct {
	Date        time.Time `query:"date"`
	Month       int       `query:"month" validate:"omitempty,min=1,max=12"`
	Year        int       `query:"year" validate:"omitempty,min=2000,max=2100"`
	ClassroomID int64     `query:"classroom"`
	PersonID    int64     `query:"person"`

	// resolved by the service
	From      time.Time `query:"-"`
	To        time.Time `query:"-"`
	PersonIDs []int64   `query:"-"`
}

// Clean turns Date or Month/Year into the [From, To) range. A Month without Year
// means that month of the current year.
func (qf *QueryFilter) Clean() {
	switch {
	case !qf.Date.IsZero():
		qf.From = Day(qf.Date)
		qf.To = qf.From.AddDate(0, 0, 1)
	case qf.Month > 0:
		year := qf.Year
		if year == 0 {
			year = time.Now().Year()
		}
		qf.From = time.Date(year, time.Month(qf.Month), 1, 0, 0, 0, 0, time.UTC)
		qf.To = qf.From.AddDate(0, 1, 0)
	case qf.Year > 0:
		qf.From = time.Date(qf.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		qf.To = qf.From.AddDate(1, 0, 0)
	}
	if qf.PersonID > 0 {
		qf.PersonIDs = append(qf.PersonIDs, qf.PersonID)
	}
}

// Summary counts the attendance records of one person.
type Summary struct {
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Summarize computes the share of PRESENT records, rounded to one decimal.
func Summarize(statuses ...string) Summary {
	var s Summary
	for _, st := range statuses {
		switch st {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		}
		s.Total++
	}
	if s.Total > 0 {
		s.Percentage = math.Round(float64(s.Present)/float64(s.Total)*1000) / 10
	}
	return s
}

// MonthlyRow is the attendance of one student over a month, keyed by day of month.
type MonthlyRow struct {
	StudentID          int64          `json:"student_id"`
	FullName           string         `json:"full_name"`
	RegistrationNumber string         `json:"registration_number"`
	Days               map[int]string `json:"days"`
	Summary            Summary        `json:"summary"`
}

type MonthlyReport struct {
	Year        int          `json:"year"`
	Month       time.Month   `json:"month"`
	DaysInMonth int          `json:"days_in_month"`
	ClassroomID int64        `json:"classroom_id,omitempty"`
	Rows        []MonthlyRow `json:"rows"`
}
