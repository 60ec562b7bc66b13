package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/classroom"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/school"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/user"
)

const recentAttendanceLen = 10

type studentApi struct {
	svc           student.Service
	userSvc       user.Service
	attendanceSvc attendance.Service
	examSvc       exam.Service
	feeSvc        fee.Service
	schoolSvc     school.Service
	reports       reporter
	validate      *validator.Validate
}

func registerStudentAPI(authed *echo.Group, deps ServerDeps) {
	api := studentApi{
		svc:           deps.StudentSvc,
		userSvc:       deps.UserSvc,
		attendanceSvc: deps.AttendanceSvc,
		examSvc:       deps.ExamSvc,
		feeSvc:        deps.FeeSvc,
		schoolSvc:     deps.SchoolSvc,
		reports:       newReporter(deps),
		validate:      deps.Validate,
	}
	admin := roleMiddleware(deps.UserSvc, adminOnly...)
	office := roleMiddleware(deps.UserSvc, officeStaff...)
	staffOnly := roleMiddleware(deps.UserSvc, staff...)

	sg := authed.Group("/students")
	sg.GET("", api.query, office)
	sg.POST("", api.create, admin)
	sg.GET("/pdf", api.listPDF, staffOnly)

	// student portal
	pg := sg.Group("/portal", roleMiddleware(deps.UserSvc, user.RoleStudent))
	pg.GET("", api.portal)
	pg.GET("/attendance", api.myAttendance)
	pg.GET("/results", api.myResults)
	pg.GET("/report-card/pdf", api.myReportCardPDF)
	pg.GET("/fees", api.myFees)

	sg.GET("/:id", api.retrieve, office)
	sg.PUT("/:id", api.update, admin)
	sg.DELETE("/:id", api.destroy, admin)
	sg.GET("/:id/report-card", api.reportCard, staffOnly)
	sg.GET("/:id/report-card/pdf", api.reportCardPDF, staffOnly)
}

func (api *studentApi) getStudent(ctx echo.Context) (student.Student, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return student.Student{}, err
	}
	return api.svc.Get(ctx.Request().Context(), id)
}

// ctxStudent is the student profile of the logged in STUDENT user.
func (api *studentApi) ctxStudent(ctx echo.Context) (student.Student, error) {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context user")
	}
	return api.svc.ForUser(ctx.Request().Context(), usr)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	students, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) listPDF(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	students, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return api.reports.studentsList(ctx, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.getStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	rctx := ctx.Request().Context()

	detail := StudentDetail{Student: s}
	if s.ClassroomID != 0 {
		c, err := api.reports.classOf(rctx, s.ClassroomID)
		if err != nil {
			return err
		}
		if c.ID != 0 {
			detail.ClassRoom = &c
		}
	}
	if detail.Attendance, err = api.attendanceSvc.StudentSummary(rctx, s.ID); err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	recent, err := api.attendanceSvc.ListStudents(rctx, &attendance.QueryFilter{PersonID: s.ID})
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	if len(recent) > recentAttendanceLen {
		recent = recent[:recentAttendanceLen]
	}
	detail.RecentAttendance = recent
	if detail.Results, err = api.examSvc.ReportCard(rctx, s); err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, err := api.getStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err = api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s, err := api.getStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	if err = api.svc.Delete(ctx.Request().Context(), s); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) reportCard(ctx echo.Context) error {
	s, err := api.getStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	rc, err := api.examSvc.ReportCard(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *studentApi) reportCardPDF(ctx echo.Context) error {
	s, err := api.getStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return api.reports.reportCard(ctx, s)
}

// Student portal

func (api *studentApi) portal(ctx echo.Context) error {
	s, err := api.ctxStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	rctx := ctx.Request().Context()

	data := StudentPortal{Student: s}
	if s.ClassroomID != 0 {
		c, err := api.reports.classOf(rctx, s.ClassroomID)
		if err != nil {
			return err
		}
		if c.ID != 0 {
			data.ClassRoom = &c
		}
	}
	if data.Attendance, err = api.attendanceSvc.StudentSummary(rctx, s.ID); err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	if data.Results, err = api.examSvc.ReportCard(rctx, s); err != nil {
		return errors.Wrap(err, "building report card")
	}
	summaries, err := api.feeSvc.Summaries(rctx, s)
	if err != nil {
		return errors.Wrap(err, "summarizing fees")
	}
	if len(summaries) > 0 {
		data.Fees = summaries[0]
	}
	if data.Announcements, err = api.schoolSvc.LatestAnnouncements(rctx); err != nil {
		return errors.Wrap(err, "getting announcements")
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *studentApi) myAttendance(ctx echo.Context) error {
	s, err := api.ctxStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}

	filter := new(attendance.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err = api.validate.Struct(filter); err != nil {
		return err
	}
	filter.ClassroomID = 0
	filter.PersonID = s.ID

	recs, err := api.attendanceSvc.ListStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing attendance")
	}
	statuses := make([]string, len(recs))
	for i, r := range recs {
		statuses[i] = r.Status
	}
	if recs == nil {
		recs = []attendance.StudentAttendance{}
	}
	return ctx.JSON(http.StatusOK, MyAttendance{Records: recs, Summary: attendance.Summarize(statuses...)})
}

func (api *studentApi) myResults(ctx echo.Context) error {
	s, err := api.ctxStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	rc, err := api.examSvc.ReportCard(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *studentApi) myReportCardPDF(ctx echo.Context) error {
	s, err := api.ctxStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	return api.reports.reportCard(ctx, s)
}

func (api *studentApi) myFees(ctx echo.Context) error {
	s, err := api.ctxStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	rep, err := api.feeSvc.StudentReport(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "building fee report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

type (
	StudentDetail struct {
		student.Student
		ClassRoom        *classroom.ClassRoom           `json:"classroom"`
		Attendance       attendance.Summary             `json:"attendance"`
		RecentAttendance []attendance.StudentAttendance `json:"recent_attendance"`
		Results          exam.ReportCard                `json:"results"`
	}

	StudentPortal struct {
		Student       student.Student           `json:"student"`
		ClassRoom     *classroom.ClassRoom      `json:"classroom"`
		Attendance    attendance.Summary        `json:"attendance"`
		Results       exam.ReportCard           `json:"results"`
		Fees          fee.Summary               `json:"fees"`
		Announcements []school.AnnouncementItem `json:"announcements"`
	}

	MyAttendance struct {
		Records []attendance.StudentAttendance `json:"records"`
		Summary attendance.Summary             `json:"summary"`
	}
)
