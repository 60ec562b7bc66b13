package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/student"
)

var (
	class = classroom.ClassRoom{ID: 1, Name: "Form One", Code: "F1", Fee: 30000}
	jane  = student.Student{ID: 7, FullName: "Jane Doe", RegistrationNumber: "CA/F1/2024/0001", ClassroomID: 1, Status: student.StatusActive}
)

func intPtr(i int) *int { return &i }

func TestAmount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{30000, "30,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Amount(tc.n))
	}
}

func TestPDFs(t *testing.T) {
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	math := classroom.Subject{ID: 1, Name: "Mathematics", ClassroomID: 1}
	bio := classroom.Subject{ID: 2, Name: "Biology", ClassroomID: 1}

	tests := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"report card", func() ([]byte, error) {
			return ReportCard("Charles Academy", exam.ReportCard{
				Student: jane,
				Lines: []exam.ReportLine{
					{Result: exam.Result{Marks: 85}, ExamName: "Midterm", SubjectName: "Mathematics", Grade: exam.GradeFor(85)},
				},
				Total: 85, Average: 85, Grade: "A",
			}, class)
		}},
		{"exam results", func() ([]byte, error) {
			return ExamResults("Charles Academy", exam.ExamResults{
				Exam:     exam.Exam{ID: 1, Name: "Midterm", ClassroomID: 1, ExamType: exam.TypeMidterm, Date: day},
				Subjects: []classroom.Subject{math, bio},
				Rows: []exam.StudentResults{
					{Student: jane, Marks: map[int64]*int{1: intPtr(70), 2: nil}, Total: 70, Average: 70, Grade: "B"},
				},
			}, class)
		}},
		{"students list", func() ([]byte, error) {
			return StudentsList("Charles Académie", []student.Student{jane}, map[int64]classroom.ClassRoom{1: class})
		}},
		{"fee statement", func() ([]byte, error) {
			return FeeStatement("Charles Academy", fee.StudentReport{
				Summary:  fee.Summary{Student: jane, TotalFee: 30000, TotalPaid: 10000, Balance: 20000, HasStructure: true},
				Payments: []fee.Payment{{ID: 1, StudentID: 7, AmountPaid: 10000, Date: day, ReceiptNo: "AB12CD34"}},
			}, class)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := tc.render()
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")), "not a pdf")
		})
	}
}

func TestMonthlyAttendance(t *testing.T) {
	rep := attendance.MonthlyReport{
		Year: 2024, Month: time.February, DaysInMonth: 29, ClassroomID: 1,
		Rows: []attendance.MonthlyRow{{
			StudentID:          7,
			FullName:           jane.FullName,
			RegistrationNumber: jane.RegistrationNumber,
			Days:               map[int]string{1: attendance.StatusPresent, 2: attendance.StatusLate},
			Summary:            attendance.Summarize(attendance.StatusPresent, attendance.StatusLate),
		}},
	}
	doc, err := MonthlyAttendance("Charles Academy", rep, class)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(doc))
	require.NoError(t, err)
	defer f.Close()

	title, _ := f.GetCellValue("Attendance", "A1")
	assert.Equal(t, "Charles Academy - Attendance February 2024 - Form One", title)
	rows, err := f.GetRows("Attendance")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Reg. No", rows[2][0])
	assert.Equal(t, "%", rows[2][len(rows[2])-1])
	assert.Equal(t, []string{jane.RegistrationNumber, jane.FullName, "P", "L"}, rows[3][:4])
	assert.Equal(t, "50", rows[3][len(rows[3])-1])
}

func TestDueFees(t *testing.T) {
	dues := []fee.Summary{
		{Student: jane, TotalFee: 30000, TotalPaid: 10000, Balance: 20000, HasStructure: true},
		{Student: student.Student{FullName: "John Roe", RegistrationNumber: "CA/F1/2024/0002", ClassroomID: 1}, TotalFee: 30000, Balance: 30000, HasStructure: true},
	}
	doc, err := DueFees("Charles Academy", dues, map[int64]classroom.ClassRoom{1: class})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(doc))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Due Fees")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"CA/F1/2024/0001", "Jane Doe", "Form One", "30000", "10000", "20000"}, rows[3])
	assert.Equal(t, "50000", rows[5][5])
}
