// Package report renders the downloadable documents of the portal: PDFs and spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/student"
)

const (
	dateFormat = "02 Jan 2006"
	lineHeight = 7.0
	font       = "Helvetica"
)

// document is an A4 PDF with the school name in the header of every page.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(school, title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	doc := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetTitle(title, true)
	pdf.SetAuthor(school, true)
	pdf.AliasNbPages("")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(font, "B", 16)
		pdf.CellFormat(0, 10, doc.tr(school), "", 1, "C", false, 0, "")
		pdf.SetFont(font, "", 12)
		pdf.CellFormat(0, 8, doc.tr(title), "B", 1, "C", false, 0, "")
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(font, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return doc
}

// field writes a "label: value" line.
func (d *document) field(label, value string) {
	d.pdf.SetFont(font, "B", 10)
	d.pdf.CellFormat(45, lineHeight, d.tr(label+":"), "", 0, "L", false, 0, "")
	d.pdf.SetFont(font, "", 10)
	d.pdf.CellFormat(0, lineHeight, d.tr(value), "", 1, "L", false, 0, "")
}

// table writes a bordered table. The last width stretches to the right margin when 0.
func (d *document) table(widths []float64, headers []string, rows [][]string) {
	d.pdf.Ln(3)
	d.pdf.SetFont(font, "B", 10)
	d.pdf.SetFillColor(67, 97, 238)
	d.pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		d.pdf.CellFormat(widths[i], lineHeight+1, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont(font, "", 10)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFillColor(240, 243, 255)
	for n, row := range rows {
		for i, cell := range row {
			align := "L"
			if i > 0 && isNumeric(cell) {
				align = "R"
			}
			d.pdf.CellFormat(widths[i], lineHeight, d.tr(cell), "1", 0, align, n%2 == 1, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering pdf")
	}
	return buf.Bytes(), nil
}

func isNumeric(s string) bool {
	s = strings.ReplaceAll(s, ",", "")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Amount formats an amount with thousands separators.
func Amount(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func marks(m *int) string {
	if m == nil {
		return "-"
	}
	return strconv.Itoa(*m)
}

func decimal(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// ReportCard lists every result of a student with the overall average and grade.
func ReportCard(school string, rc exam.ReportCard, class classroom.ClassRoom) ([]byte, error) {
	doc := newDocument(school, "Report Card")
	doc.field("Student", rc.Student.FullName)
	doc.field("Registration No", rc.Student.RegistrationNumber)
	doc.field("Class", class.Name)

	rows := make([][]string, 0, len(rc.Lines))
	for _, l := range rc.Lines {
		rows = append(rows, []string{l.ExamName, l.SubjectName, strconv.Itoa(l.Marks), l.Grade.Letter, l.Grade.Remark})
	}
	doc.table([]float64{50, 50, 25, 20, 45}, []string{"Exam", "Subject", "Marks", "Grade", "Remark"}, rows)

	doc.pdf.Ln(4)
	doc.field("Total", strconv.Itoa(rc.Total))
	doc.field("Average", decimal(rc.Average))
	doc.field("Grade", rc.Grade)
	return doc.output()
}

// ExamResults is the results table of an exam: one row per student, one column per subject.
func ExamResults(school string, res exam.ExamResults, class classroom.ClassRoom) ([]byte, error) {
	doc := newDocument(school, fmt.Sprintf("%s Results", res.Exam.Name))
	doc.field("Class", class.Name)
	doc.field("Exam type", res.Exam.ExamType)
	doc.field("Date", res.Exam.Date.Format(dateFormat))

	// name + subjects + total, average, grade share the 190mm of the page
	subjW := 100.0 / float64(len(res.Subjects)+1)
	widths := []float64{50}
	headers := []string{"Student"}
	for _, s := range res.Subjects {
		widths = append(widths, subjW)
		headers = append(headers, s.Name)
	}
	widths = append(widths, subjW, 20, 20)
	headers = append(headers, "Total", "Average", "Grade")

	rows := make([][]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		row := []string{r.Student.FullName}
		for _, s := range res.Subjects {
			row = append(row, marks(r.Marks[s.ID]))
		}
		row = append(row, strconv.Itoa(r.Total), decimal(r.Average), r.Grade)
		rows = append(rows, row)
	}
	doc.table(widths, headers, rows)
	return doc.output()
}

// StudentsList lists the students with their class.
func StudentsList(school string, students []student.Student, classes map[int64]classroom.ClassRoom) ([]byte, error) {
	doc := newDocument(school, "Students List")
	doc.field("Generated", time.Now().Format(dateFormat))
	doc.field("Total", strconv.Itoa(len(students)))

	rows := make([][]string, 0, len(students))
	for i, s := range students {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.RegistrationNumber,
			s.FullName,
			classes[s.ClassroomID].Name,
			s.Status,
		})
	}
	doc.table([]float64{12, 45, 63, 40, 30}, []string{"#", "Reg. No", "Full Name", "Class", "Status"}, rows)
	return doc.output()
}

// FeeStatement is the fee situation of a student with all their payments.
func FeeStatement(school string, rep fee.StudentReport, class classroom.ClassRoom) ([]byte, error) {
	doc := newDocument(school, "Fee Statement")
	doc.field("Student", rep.Student.FullName)
	doc.field("Registration No", rep.Student.RegistrationNumber)
	doc.field("Class", class.Name)
	doc.field("Total fee", Amount(rep.TotalFee))
	doc.field("Total paid", Amount(rep.TotalPaid))
	doc.field("Balance", Amount(rep.Balance))

	rows := make([][]string, 0, len(rep.Payments))
	for _, p := range rep.Payments {
		rows = append(rows, []string{p.Date.Format(dateFormat), p.ReceiptNo, Amount(p.AmountPaid)})
	}
	doc.table([]float64{60, 60, 70}, []string{"Date", "Receipt No", "Amount"}, rows)
	return doc.output()
}
