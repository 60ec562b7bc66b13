package attendance

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/teacher"
)

type (
	Repository interface {
		// UpsertStudentAttendance creates the records or updates the status of those
		// that already exist for the same student and date.
		UpsertStudentAttendance(ctx context.Context, recs []StudentAttendance) (int, error)
		// QueryStudentAttendance returns the records in [From, To) of PersonIDs, newest first.
		QueryStudentAttendance(ctx context.Context, filter *QueryFilter) ([]StudentAttendance, error)
		UpsertTeacherAttendance(ctx context.Context, recs []TeacherAttendance) (int, error)
		QueryTeacherAttendance(ctx context.Context, filter *QueryFilter) ([]TeacherAttendance, error)
	}

	Service interface {
		MarkStudents(ctx context.Context, m Mark) (int, error)
		MarkTeachers(ctx context.Context, m Mark) (int, error)
		ListStudents(ctx context.Context, filter *QueryFilter) ([]StudentAttendance, error)
		ListTeachers(ctx context.Context, filter *QueryFilter) ([]TeacherAttendance, error)
		StudentSummary(ctx context.Context, studentID int64) (Summary, error)
		MonthlyReport(ctx context.Context, year int, month time.Month, classroomID int64) (MonthlyReport, error)
	}

	service struct {
		repo       Repository
		studentSvc student.Service
		teacherSvc teacher.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, studentSvc student.Service, teacherSvc teacher.Service) Service {
	return &service{
		repo:       repo,
		studentSvc: studentSvc,
		teacherSvc: teacherSvc,
	}
}

func (svc *service) MarkStudents(ctx context.Context, m Mark) (int, error) {
	if len(m.Statuses) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(m.Statuses))
	for id := range m.Statuses {
		ids = append(ids, id)
	}
	students, err := svc.studentSvc.GetMany(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "finding students")
	}

	recs := make([]StudentAttendance, 0, len(ids))
	for _, id := range sortedIDs(ids) {
		s, ok := students[id]
		if !ok || (m.ClassroomID > 0 && s.ClassroomID != m.ClassroomID) {
			return 0, core.NewFieldError("statuses", "unknown student "+strconv.FormatInt(id, 10))
		}
		recs = append(recs, StudentAttendance{StudentID: id, Date: m.Date, Status: m.Statuses[id]})
	}
	return svc.repo.UpsertStudentAttendance(ctx, recs)
}

func (svc *service) MarkTeachers(ctx context.Context, m Mark) (int, error) {
	if len(m.Statuses) == 0 {
		return 0, nil
	}
	teachers, err := svc.teacherSvc.Query(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying teachers")
	}
	known := make(map[int64]bool, len(teachers))
	for _, t := range teachers {
		known[t.ID] = true
	}

	recs := make([]TeacherAttendance, 0, len(m.Statuses))
	for _, id := range sortedIDs(mapKeys(m.Statuses)) {
		if !known[id] {
			return 0, core.NewFieldError("statuses", "unknown teacher "+strconv.FormatInt(id, 10))
		}
		recs = append(recs, TeacherAttendance{TeacherID: id, Date: m.Date, Status: m.Statuses[id]})
	}
	return svc.repo.UpsertTeacherAttendance(ctx, recs)
}

func (svc *service) ListStudents(ctx context.Context, filter *QueryFilter) ([]StudentAttendance, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Clean()
	if filter.ClassroomID > 0 {
		students, err := svc.studentSvc.Query(ctx, &student.QueryFilter{ClassroomID: filter.ClassroomID})
		if err != nil {
			return nil, errors.Wrap(err, "querying students")
		}
		if len(students) == 0 {
			return []StudentAttendance{}, nil
		}
		ids := make([]int64, 0, len(students))
		for _, s := range students {
			if filter.PersonID == 0 || filter.PersonID == s.ID {
				ids = append(ids, s.ID)
			}
		}
		if len(ids) == 0 {
			return []StudentAttendance{}, nil
		}
		filter.PersonIDs = ids
	}
	return svc.repo.QueryStudentAttendance(ctx, filter)
}

func (svc *service) ListTeachers(ctx context.Context, filter *QueryFilter) ([]TeacherAttendance, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Clean()
	return svc.repo.QueryTeacherAttendance(ctx, filter)
}

func (svc *service) StudentSummary(ctx context.Context, studentID int64) (Summary, error) {
	recs, err := svc.repo.QueryStudentAttendance(ctx, &QueryFilter{PersonIDs: []int64{studentID}})
	if err != nil {
		return Summary{}, err
	}
	statuses := make([]string, len(recs))
	for i, r := range recs {
		statuses[i] = r.Status
	}
	return Summarize(statuses...), nil
}

func (svc *service) MonthlyReport(ctx context.Context, year int, month time.Month, classroomID int64) (MonthlyReport, error) {
	if month < time.January || month > time.December {
		return MonthlyReport{}, core.NewFieldError("month", "month must be between 1 and 12")
	}
	students, err := svc.studentSvc.Query(ctx, &student.QueryFilter{ClassroomID: classroomID})
	if err != nil {
		return MonthlyReport{}, errors.Wrap(err, "querying students")
	}
	recs, err := svc.ListStudents(ctx, &QueryFilter{Month: int(month), Year: year, ClassroomID: classroomID})
	if err != nil {
		return MonthlyReport{}, err
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	report := MonthlyReport{
		Year:        year,
		Month:       month,
		DaysInMonth: from.AddDate(0, 1, -1).Day(),
		ClassroomID: classroomID,
		Rows:        make([]MonthlyRow, 0, len(students)),
	}
	byStudent := make(map[int64][]StudentAttendance, len(students))
	for _, r := range recs {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}
	for _, s := range students {
		row := MonthlyRow{
			StudentID:          s.ID,
			FullName:           s.FullName,
			RegistrationNumber: s.RegistrationNumber,
			Days:               make(map[int]string),
		}
		statuses := make([]string, 0, len(byStudent[s.ID]))
		for _, r := range byStudent[s.ID] {
			row.Days[r.Date.Day()] = r.Status
			statuses = append(statuses, r.Status)
		}
		row.Summary = Summarize(statuses...)
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func mapKeys(m map[int64]string) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func sortedIDs(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
