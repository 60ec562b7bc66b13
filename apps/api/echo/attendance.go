package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/services/report"
)

type attendanceApi struct {
	svc        attendance.Service
	studentSvc student.Service
	reports    reporter
	validate   *validator.Validate
}

func registerAttendanceAPI(authed *echo.Group, deps ServerDeps) {
	api := attendanceApi{
		svc:        deps.AttendanceSvc,
		studentSvc: deps.StudentSvc,
		reports:    newReporter(deps),
		validate:   deps.Validate,
	}
	admin := roleMiddleware(deps.UserSvc, adminOnly...)

	ag := authed.Group("/attendance", roleMiddleware(deps.UserSvc, staff...))
	ag.POST("/students", api.markStudents)
	ag.GET("/students", api.listStudents)
	ag.GET("/students/:id/summary", api.studentSummary)
	ag.POST("/teachers", api.markTeachers, admin)
	ag.GET("/teachers", api.listTeachers, admin)
	ag.GET("/monthly", api.monthly)
	ag.GET("/monthly/xlsx", api.monthlyXLSX)
}

func (api *attendanceApi) bindMark(ctx echo.Context) (attendance.Mark, error) {
	var data attendance.Mark
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to Mark")
	}
	if err := data.Validate(api.validate); err != nil {
		return data, err
	}
	return data, nil
}

func (api *attendanceApi) bindFilter(ctx echo.Context) (*attendance.QueryFilter, error) {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to QueryFilter")
	}
	if err := api.validate.Struct(filter); err != nil {
		return nil, err
	}
	return filter, nil
}

func (api *attendanceApi) markStudents(ctx echo.Context) error {
	data, err := api.bindMark(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkStudents(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "marking students attendance")
	}
	return ctx.JSON(http.StatusOK, MarkResponse{Date: data.Date, Saved: n})
}

func (api *attendanceApi) markTeachers(ctx echo.Context) error {
	data, err := api.bindMark(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkTeachers(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "marking teachers attendance")
	}
	return ctx.JSON(http.StatusOK, MarkResponse{Date: data.Date, Saved: n})
}

func (api *attendanceApi) listStudents(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.ListStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing students attendance")
	}
	if recs == nil {
		recs = []attendance.StudentAttendance{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) listTeachers(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.ListTeachers(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing teachers attendance")
	}
	if recs == nil {
		recs = []attendance.TeacherAttendance{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) studentSummary(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	s, err := api.studentSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	summary, err := api.svc.StudentSummary(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

// monthlyReport builds the report of the year, month and classroom query params.
// Year and month default to the current ones.
func (api *attendanceApi) monthlyReport(ctx echo.Context) (attendance.MonthlyReport, error) {
	now := time.Now()
	year := queryInt(ctx, "year", now.Year())
	month := queryInt(ctx, "month", int(now.Month()))
	classroomID := int64(queryInt(ctx, "classroom", 0))

	rep, err := api.svc.MonthlyReport(ctx.Request().Context(), year, time.Month(month), classroomID)
	if err != nil {
		return rep, errors.Wrap(err, "building monthly report")
	}
	return rep, nil
}

func (api *attendanceApi) monthly(ctx echo.Context) error {
	rep, err := api.monthlyReport(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *attendanceApi) monthlyXLSX(ctx echo.Context) error {
	rep, err := api.monthlyReport(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	name, err := api.reports.schoolName(rctx)
	if err != nil {
		return err
	}
	class, err := api.reports.classOf(rctx, rep.ClassroomID)
	if err != nil {
		return err
	}
	data, err := report.MonthlyAttendance(name, rep, class)
	if err != nil {
		return errors.Wrap(err, "rendering monthly attendance")
	}
	return attachment(ctx, mimeXLSX, fmt.Sprintf("attendance_%d_%02d.xlsx", rep.Year, rep.Month), data)
}

type MarkResponse struct {
	Date  time.Time `json:"date"`
	Saved int       `json:"saved"`
}
