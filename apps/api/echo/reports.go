package echoapi

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/school"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/services/report"
)

// reporter renders the documents that several APIs offer for download.
type reporter struct {
	classSvc  classroom.Service
	examSvc   exam.Service
	feeSvc    fee.Service
	schoolSvc school.Service
}

func newReporter(deps ServerDeps) reporter {
	return reporter{
		classSvc:  deps.ClassSvc,
		examSvc:   deps.ExamSvc,
		feeSvc:    deps.FeeSvc,
		schoolSvc: deps.SchoolSvc,
	}
}

func (r reporter) schoolName(ctx context.Context) (string, error) {
	settings, err := r.schoolSvc.Settings(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting school settings")
	}
	return settings.Name, nil
}

// classOf returns the class with the given ID, the zero ClassRoom when there is none.
func (r reporter) classOf(ctx context.Context, id int64) (classroom.ClassRoom, error) {
	if id == 0 {
		return classroom.ClassRoom{}, nil
	}
	c, err := r.classSvc.Get(ctx, id)
	if err != nil && !core.IsNotFound(err) {
		return classroom.ClassRoom{}, errors.Wrap(err, "getting class")
	}
	return c, nil
}

func (r reporter) reportCard(ctx echo.Context, s student.Student) error {
	rctx := ctx.Request().Context()
	name, err := r.schoolName(rctx)
	if err != nil {
		return err
	}
	rc, err := r.examSvc.ReportCard(rctx, s)
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	class, err := r.classOf(rctx, s.ClassroomID)
	if err != nil {
		return err
	}
	data, err := report.ReportCard(name, rc, class)
	if err != nil {
		return errors.Wrap(err, "rendering report card")
	}
	return attachment(ctx, mimePDF, fmt.Sprintf("report_card_%s.pdf", fileSlug(s.RegistrationNumber)), data)
}

func (r reporter) feeStatement(ctx echo.Context, s student.Student) error {
	rctx := ctx.Request().Context()
	name, err := r.schoolName(rctx)
	if err != nil {
		return err
	}
	rep, err := r.feeSvc.StudentReport(rctx, s)
	if err != nil {
		return errors.Wrap(err, "building fee report")
	}
	class, err := r.classOf(rctx, s.ClassroomID)
	if err != nil {
		return err
	}
	data, err := report.FeeStatement(name, rep, class)
	if err != nil {
		return errors.Wrap(err, "rendering fee statement")
	}
	return attachment(ctx, mimePDF, fmt.Sprintf("fee_statement_%s.pdf", fileSlug(s.RegistrationNumber)), data)
}

func (r reporter) examResults(ctx echo.Context, e exam.Exam) error {
	rctx := ctx.Request().Context()
	name, err := r.schoolName(rctx)
	if err != nil {
		return err
	}
	res, err := r.examSvc.Results(rctx, e)
	if err != nil {
		return errors.Wrap(err, "building exam results")
	}
	class, err := r.classOf(rctx, e.ClassroomID)
	if err != nil {
		return err
	}
	data, err := report.ExamResults(name, res, class)
	if err != nil {
		return errors.Wrap(err, "rendering exam results")
	}
	return attachment(ctx, mimePDF, fmt.Sprintf("results_%s_%s.pdf", fileSlug(e.Name), e.Date.Format("20060102")), data)
}

func (r reporter) studentsList(ctx echo.Context, students []student.Student) error {
	rctx := ctx.Request().Context()
	name, err := r.schoolName(rctx)
	if err != nil {
		return err
	}
	classes, err := r.classesOf(rctx, students...)
	if err != nil {
		return err
	}
	data, err := report.StudentsList(name, students, classes)
	if err != nil {
		return errors.Wrap(err, "rendering students list")
	}
	return attachment(ctx, mimePDF, fmt.Sprintf("students_%s.pdf", time.Now().Format("20060102")), data)
}

func (r reporter) classesOf(ctx context.Context, students ...student.Student) (map[int64]classroom.ClassRoom, error) {
	ids := make([]int64, 0, len(students))
	for _, s := range students {
		if s.ClassroomID != 0 {
			ids = append(ids, s.ClassroomID)
		}
	}
	classes, err := r.classSvc.GetMany(ctx, ids...)
	return classes, errors.Wrap(err, "getting classes")
}
