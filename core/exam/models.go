package exam

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/student"
)

// Exam types
const (
	TypeMidterm = "MIDTERM"
	TypeFinal   = "FINAL"
	TypeMonthly = "MONTHLY"
)

var Types = []string{TypeMidterm, TypeFinal, TypeMonthly}

type Exam struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ClassroomID int64     `json:"classroom_id"`
	ExamType    string    `json:"exam_type"`
	Date        time.Time `json:"date"`
}

type Result struct {
	ID        int64 `json:"id"`
	StudentID int64 `json:"student_id"`
	ExamID    int64 `json:"exam_id"`
	SubjectID int64 `json:"subject_id"`
	Marks     int   `json:"marks"`
}

func (r Result) Grade() Grade { return GradeFor(float64(r.Marks)) }

type Grade struct {
	Letter string `json:"letter"`
	Remark string `json:"remark"`
}

// grade ladder, highest threshold first
var grades = []struct {
	min float64
	Grade
}{
	{80, Grade{"A", "Excellent"}},
	{70, Grade{"B", "Very Good"}},
	{60, Grade{"C", "Good"}},
	{50, Grade{"D", "Fair"}},
	{40, Grade{"E", "Pass"}},
}

var gradeFail = Grade{"F", "Fail"}

// GradeFor maps marks (or an average of marks) to its grade.
func GradeFor(marks float64) Grade {
	for _, g := range grades {
		if marks >= g.min {
			return g.Grade
		}
	}
	return gradeFail
}

// SheetKey is the key of a student's marks in a subject, in marks sheets and EnterMarks.
func SheetKey(studentID, subjectID int64) string {
	return fmt.Sprintf("%d_%d", studentID, subjectID)
}

func parseSheetKey(key string) (studentID, subjectID int64, err error) {
	parts := strings.Split(key, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid key %q", key)
	}
	if studentID, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid key %q", key)
	}
	if subjectID, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid key %q", key)
	}
	return studentID, subjectID, nil
}

type NewExam struct {
	Name        string    `json:"name" validate:"required,notblank,max=100"`
	ClassroomID int64     `json:"classroom_id" validate:"required,gt=0"`
	ExamType    string    `json:"exam_type" validate:"required,oneof=MIDTERM FINAL MONTHLY"`
	Date        time.Time `json:"date"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.ExamType = strings.ToUpper(core.CleanString(ne.ExamType))
	if ne.ExamType == "" {
		ne.ExamType = TypeMonthly
	}
	if ne.Date.IsZero() {
		ne.Date = time.Now()
	}
	y, m, d := ne.Date.Date()
	ne.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return validate.Struct(ne)
}

// EnterMarks holds the marks of an exam keyed by SheetKey. Nil entries are skipped.
type EnterMarks struct {
	Marks map[string]*int `json:"marks" validate:"required,dive,omitempty,min=0,max=100"`
}

func (em *EnterMarks) Validate(validate *validator.Validate) error {
	return validate.Struct(em)
}

type QueryFilter struct {
	ClassroomID int64  `query:"classroom"`
	ExamType    string `query:"exam_type"`
}

func (qf *QueryFilter) Clean() {
	qf.ExamType = strings.ToUpper(core.CleanString(qf.ExamType))
}

// ResultFilter selects results. Zero fields are ignored.
type ResultFilter struct {
	ExamID     int64
	StudentIDs []int64
}

// StudentResults is one row of an exam results table.
type StudentResults struct {
	Student student.Student `json:"student"`
	// subject ID -> marks, nil when not entered
	Marks   map[int64]*int `json:"marks"`
	Total   int            `json:"total"`
	Average float64        `json:"average"`
	Grade   string         `json:"grade"`
}

type ExamResults struct {
	Exam     Exam                `json:"exam"`
	Subjects []classroom.Subject `json:"subjects"`
	Rows     []StudentResults    `json:"rows"`
}

// ReportLine is a result with its exam and subject names resolved.
type ReportLine struct {
	Result
	ExamName    string `json:"exam_name"`
	SubjectName string `json:"subject_name"`
	Grade       Grade  `json:"grade"`
}

type ReportCard struct {
	Student student.Student `json:"student"`
	Lines   []ReportLine    `json:"lines"`
	Total   int             `json:"total"`
	Average float64         `json:"average"`
	Grade   string          `json:"grade"`
}

// average rounds total/count to 2 decimals, 0 when count is 0.
func average(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(count)*100) / 100
}

func gradeLetter(total, count int) string {
	if count == 0 {
		return "-"
	}
	return GradeFor(average(total, count)).Letter
}
