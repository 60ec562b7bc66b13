package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/charlesacademy/portal/core/attendance"
)

type attendanceRepository struct {
	students *table[attendance.StudentAttendance]
	teachers *table[attendance.TeacherAttendance]
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{students: db.studentAttendance, teachers: db.teacherAttendance}
}

// inRange reports whether the record of person on date passes the filter.
func inRange(filter *attendance.QueryFilter, person int64, date time.Time) bool {
	if filter == nil {
		return true
	}
	switch {
	case !filter.From.IsZero() && date.Before(filter.From),
		!filter.To.IsZero() && !date.Before(filter.To),
		len(filter.PersonIDs) > 0 && !containsID(filter.PersonIDs, person):
		return false
	}
	return true
}

// newestFirst orders by date, most recent first, then by person.
func newestFirst(date func(i int) time.Time, person func(i int) int64) func(i, j int) bool {
	return func(i, j int) bool {
		if di, dj := date(i), date(j); !di.Equal(dj) {
			return di.After(dj)
		}
		return person(i) < person(j)
	}
}

func (repo *attendanceRepository) UpsertStudentAttendance(ctx context.Context, recs []attendance.StudentAttendance) (int, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	for _, rec := range recs {
		rec.Date = attendance.Day(rec.Date)
		found := false
		for _, row := range repo.students.rows {
			if row.StudentID == rec.StudentID && row.Date.Equal(rec.Date) {
				row.Status, found = rec.Status, true
				break
			}
		}
		if !found {
			repo.students.insert(rec, func(r *attendance.StudentAttendance, id int64) { r.ID = id })
		}
	}
	return len(recs), nil
}

func (repo *attendanceRepository) QueryStudentAttendance(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.StudentAttendance, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	recs := make([]attendance.StudentAttendance, 0)
	for _, r := range repo.students.all() {
		if inRange(filter, r.StudentID, r.Date) {
			recs = append(recs, r)
		}
	}
	sort.SliceStable(recs, newestFirst(func(i int) time.Time { return recs[i].Date },
		func(i int) int64 { return recs[i].StudentID }))
	return recs, nil
}

func (repo *attendanceRepository) UpsertTeacherAttendance(ctx context.Context, recs []attendance.TeacherAttendance) (int, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	for _, rec := range recs {
		rec.Date = attendance.Day(rec.Date)
		found := false
		for _, row := range repo.teachers.rows {
			if row.TeacherID == rec.TeacherID && row.Date.Equal(rec.Date) {
				row.Status, found = rec.Status, true
				break
			}
		}
		if !found {
			repo.teachers.insert(rec, func(r *attendance.TeacherAttendance, id int64) { r.ID = id })
		}
	}
	return len(recs), nil
}

func (repo *attendanceRepository) QueryTeacherAttendance(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.TeacherAttendance, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	recs := make([]attendance.TeacherAttendance, 0)
	for _, r := range repo.teachers.all() {
		if inRange(filter, r.TeacherID, r.Date) {
			recs = append(recs, r)
		}
	}
	sort.SliceStable(recs, newestFirst(func(i int) time.Time { return recs[i].Date },
		func(i int) int64 { return recs[i].TeacherID }))
	return recs, nil
}
