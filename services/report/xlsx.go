package report

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/fee"
)

// status letters of the monthly attendance grid
var statusLetters = map[string]string{
	attendance.StatusPresent: "P",
	attendance.StatusAbsent:  "A",
	attendance.StatusLate:    "L",
}

// sheet writes rows below a bold title and header line on the first sheet of a new workbook.
type sheet struct {
	f    *excelize.File
	name string
	row  int
}

func newSheet(name, title string) (*sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "naming sheet")
	}
	s := &sheet{f: f, name: name, row: 1}
	if err := s.styledRow(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}, title); err != nil {
		_ = f.Close()
		return nil, err
	}
	s.row++ // blank line
	return s, nil
}

func (s *sheet) cell(col int) string {
	name, _ := excelize.CoordinatesToCellName(col, s.row)
	return name
}

func (s *sheet) addRow(values ...interface{}) error {
	if err := s.f.SetSheetRow(s.name, s.cell(1), &values); err != nil {
		return errors.Wrapf(err, "writing row %d", s.row)
	}
	s.row++
	return nil
}

func (s *sheet) styledRow(style *excelize.Style, values ...interface{}) error {
	styleID, err := s.f.NewStyle(style)
	if err != nil {
		return errors.Wrap(err, "creating style")
	}
	if err = s.f.SetCellStyle(s.name, s.cell(1), s.cell(len(values)), styleID); err != nil {
		return errors.Wrap(err, "styling row")
	}
	return s.addRow(values...)
}

func (s *sheet) header(values ...interface{}) error {
	return s.styledRow(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4361EE"}},
	}, values...)
}

func (s *sheet) bytes() ([]byte, error) {
	defer func() { _ = s.f.Close() }()
	buf, err := s.f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

// MonthlyAttendance is the attendance grid of a month: one row per student, one column per day.
func MonthlyAttendance(school string, rep attendance.MonthlyReport, class classroom.ClassRoom) ([]byte, error) {
	title := fmt.Sprintf("%s - Attendance %s %d", school, rep.Month, rep.Year)
	if class.Name != "" {
		title += " - " + class.Name
	}
	s, err := newSheet("Attendance", title)
	if err != nil {
		return nil, err
	}

	headers := []interface{}{"Reg. No", "Full Name"}
	for d := 1; d <= rep.DaysInMonth; d++ {
		headers = append(headers, d)
	}
	headers = append(headers, "Present", "Absent", "Late", "Total", "%")
	if err = s.header(headers...); err != nil {
		return nil, err
	}

	for _, r := range rep.Rows {
		values := []interface{}{r.RegistrationNumber, r.FullName}
		for d := 1; d <= rep.DaysInMonth; d++ {
			values = append(values, statusLetters[r.Days[d]])
		}
		values = append(values, r.Summary.Present, r.Summary.Absent, r.Summary.Late, r.Summary.Total, r.Summary.Percentage)
		if err = s.addRow(values...); err != nil {
			return nil, err
		}
	}

	last, _ := excelize.ColumnNumberToName(rep.DaysInMonth + 2)
	_ = s.f.SetColWidth(s.name, "A", "A", 22)
	_ = s.f.SetColWidth(s.name, "B", "B", 28)
	_ = s.f.SetColWidth(s.name, "C", last, 4)
	return s.bytes()
}

// DueFees lists the students who still owe fees.
func DueFees(school string, dues []fee.Summary, classes map[int64]classroom.ClassRoom) ([]byte, error) {
	s, err := newSheet("Due Fees", school+" - Due Fees")
	if err != nil {
		return nil, err
	}
	if err = s.header("Reg. No", "Full Name", "Class", "Total Fee", "Paid", "Balance"); err != nil {
		return nil, err
	}

	var total int64
	for _, d := range dues {
		total += d.Balance
		err = s.addRow(
			d.Student.RegistrationNumber,
			d.Student.FullName,
			classes[d.Student.ClassroomID].Name,
			d.TotalFee,
			d.TotalPaid,
			d.Balance,
		)
		if err != nil {
			return nil, err
		}
	}
	if err = s.styledRow(&excelize.Style{Font: &excelize.Font{Bold: true}}, "", "Total", "", "", "", total); err != nil {
		return nil, err
	}

	_ = s.f.SetColWidth(s.name, "A", "A", 22)
	_ = s.f.SetColWidth(s.name, "B", "C", 28)
	_ = s.f.SetColWidth(s.name, "D", "F", 14)
	return s.bytes()
}
