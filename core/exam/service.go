package exam

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/student"
)

var ErrNotFound = core.NewNotFoundError("exam")

type (
	Repository interface {
		CreateExam(ctx context.Context, e Exam) (Exam, error)
		// QueryExams returns the exams newest first.
		QueryExams(ctx context.Context, filter *QueryFilter) ([]Exam, error)
		GetExam(ctx context.Context, id int64) (Exam, error)
		DeleteExam(ctx context.Context, id int64) error
		// UpsertResults creates the results or updates the marks of those that already
		// exist for the same student, exam and subject.
		UpsertResults(ctx context.Context, results []Result) (int, error)
		QueryResults(ctx context.Context, filter ResultFilter) ([]Result, error)
	}

	Service interface {
		Create(ctx context.Context, ne NewExam) (Exam, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Exam, error)
		Get(ctx context.Context, id int64) (Exam, error)
		Delete(ctx context.Context, id int64) error
		// EnterMarks saves the marks of students of the exam's class in subjects of that class.
		EnterMarks(ctx context.Context, e Exam, em EnterMarks) (int, error)
		MarksSheet(ctx context.Context, e Exam) (map[string]int, error)
		Results(ctx context.Context, e Exam) (ExamResults, error)
		ReportCard(ctx context.Context, s student.Student) (ReportCard, error)
	}

	service struct {
		repo       Repository
		classSvc   classroom.Service
		studentSvc student.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classSvc classroom.Service, studentSvc student.Service) Service {
	return &service{
		repo:       repo,
		classSvc:   classSvc,
		studentSvc: studentSvc,
	}
}

func (svc *service) Create(ctx context.Context, ne NewExam) (Exam, error) {
	if _, err := svc.classSvc.Get(ctx, ne.ClassroomID); err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return Exam{}, core.NewFieldError("classroom_id", "class does not exist")
		}
		return Exam{}, errors.Wrap(err, "finding classroom")
	}
	return svc.repo.CreateExam(ctx, Exam{
		Name:        ne.Name,
		ClassroomID: ne.ClassroomID,
		ExamType:    ne.ExamType,
		Date:        ne.Date,
	})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Exam, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryExams(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id int64) (Exam, error) {
	return svc.repo.GetExam(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteExam(ctx, id)
}

// classMembers returns the students and subjects of the exam's class.
func (svc *service) classMembers(ctx context.Context, e Exam) ([]student.Student, []classroom.Subject, error) {
	students, err := svc.studentSvc.Query(ctx, &student.QueryFilter{ClassroomID: e.ClassroomID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying students")
	}
	subjects, err := svc.classSvc.QuerySubjects(ctx, e.ClassroomID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying subjects")
	}
	return students, subjects, nil
}

func (svc *service) EnterMarks(ctx context.Context, e Exam, em EnterMarks) (int, error) {
	students, subjects, err := svc.classMembers(ctx, e)
	if err != nil {
		return 0, err
	}
	inClass := make(map[int64]bool, len(students))
	for _, s := range students {
		inClass[s.ID] = true
	}
	ofClass := make(map[int64]bool, len(subjects))
	for _, s := range subjects {
		ofClass[s.ID] = true
	}

	keys := make([]string, 0, len(em.Marks))
	for k := range em.Marks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]Result, 0, len(keys))
	for _, key := range keys {
		marks := em.Marks[key]
		if marks == nil {
			continue
		}
		studentID, subjectID, err := parseSheetKey(key)
		if err != nil {
			return 0, core.NewFieldError("marks", err.Error())
		}
		if !inClass[studentID] {
			return 0, core.NewFieldError("marks", "student is not in the exam's class: "+key)
		}
		if !ofClass[subjectID] {
			return 0, core.NewFieldError("marks", "subject is not taught in the exam's class: "+key)
		}
		results = append(results, Result{StudentID: studentID, ExamID: e.ID, SubjectID: subjectID, Marks: *marks})
	}
	if len(results) == 0 {
		return 0, nil
	}
	return svc.repo.UpsertResults(ctx, results)
}

func (svc *service) MarksSheet(ctx context.Context, e Exam) (map[string]int, error) {
	results, err := svc.repo.QueryResults(ctx, ResultFilter{ExamID: e.ID})
	if err != nil {
		return nil, err
	}
	sheet := make(map[string]int, len(results))
	for _, r := range results {
		sheet[SheetKey(r.StudentID, r.SubjectID)] = r.Marks
	}
	return sheet, nil
}

func (svc *service) Results(ctx context.Context, e Exam) (ExamResults, error) {
	students, subjects, err := svc.classMembers(ctx, e)
	if err != nil {
		return ExamResults{}, err
	}
	sheet, err := svc.MarksSheet(ctx, e)
	if err != nil {
		return ExamResults{}, err
	}

	res := ExamResults{Exam: e, Subjects: subjects, Rows: make([]StudentResults, 0, len(students))}
	for _, s := range students {
		row := StudentResults{Student: s, Marks: make(map[int64]*int, len(subjects))}
		count := 0
		for _, sub := range subjects {
			marks, ok := sheet[SheetKey(s.ID, sub.ID)]
			if !ok {
				row.Marks[sub.ID] = nil
				continue
			}
			m := marks
			row.Marks[sub.ID] = &m
			row.Total += marks
			count++
		}
		row.Average = average(row.Total, count)
		row.Grade = gradeLetter(row.Total, count)
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func (svc *service) ReportCard(ctx context.Context, s student.Student) (ReportCard, error) {
	results, err := svc.repo.QueryResults(ctx, ResultFilter{StudentIDs: []int64{s.ID}})
	if err != nil {
		return ReportCard{}, err
	}

	exams := make(map[int64]Exam)
	subjectIDs := make([]int64, 0, len(results))
	for _, r := range results {
		if _, ok := exams[r.ExamID]; !ok {
			e, err := svc.repo.GetExam(ctx, r.ExamID)
			if err != nil {
				return ReportCard{}, errors.Wrap(err, "finding exam")
			}
			exams[r.ExamID] = e
		}
		subjectIDs = append(subjectIDs, r.SubjectID)
	}
	subjects, err := svc.classSvc.GetSubjects(ctx, subjectIDs...)
	if err != nil {
		return ReportCard{}, errors.Wrap(err, "finding subjects")
	}
	subjectNames := make(map[int64]string, len(subjects))
	for _, sub := range subjects {
		subjectNames[sub.ID] = sub.Name
	}

	card := ReportCard{Student: s, Lines: make([]ReportLine, 0, len(results))}
	for _, r := range results {
		card.Lines = append(card.Lines, ReportLine{
			Result:      r,
			ExamName:    exams[r.ExamID].Name,
			SubjectName: subjectNames[r.SubjectID],
			Grade:       r.Grade(),
		})
		card.Total += r.Marks
	}
	card.Average = average(card.Total, len(results))
	card.Grade = gradeLetter(card.Total, len(results))
	return card, nil
}
