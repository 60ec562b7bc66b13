package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/attendance"
	"github.com/charlesacademy/portal/core/exam"
	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/parent"
	"github.com/charlesacademy/portal/core/school"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/core/user"
)

var errRegistrationClosed = echo.NewHTTPError(http.StatusForbidden, parent.ErrRegistrationClosed.Error())

type parentApi struct {
	svc           parent.Service
	userSvc       user.Service
	attendanceSvc attendance.Service
	examSvc       exam.Service
	feeSvc        fee.Service
	schoolSvc     school.Service
	reports       reporter
	validate      *validator.Validate
}

func registerParentAPI(g, authed *echo.Group, deps ServerDeps) {
	api := parentApi{
		svc:           deps.ParentSvc,
		userSvc:       deps.UserSvc,
		attendanceSvc: deps.AttendanceSvc,
		examSvc:       deps.ExamSvc,
		feeSvc:        deps.FeeSvc,
		schoolSvc:     deps.SchoolSvc,
		reports:       newReporter(deps),
		validate:      deps.Validate,
	}

	// un-authed endpoints
	g.POST("/parents/register", api.register)

	pg := authed.Group("/parents")

	// parent portal
	portal := pg.Group("/portal", roleMiddleware(deps.UserSvc, user.RoleParent), api.ctxParentMiddleware)
	portal.GET("", api.dashboard)
	portal.GET("/profile", api.profile)
	portal.PUT("/profile", api.updateProfile)
	portal.GET("/announcements", api.announcements)
	portal.GET("/children", api.children)
	portal.GET("/children/:id", api.child)
	portal.GET("/children/:id/results", api.childResults)
	portal.GET("/children/:id/results/pdf", api.childResultsPDF)
	portal.GET("/children/:id/fees", api.childFees)
	portal.GET("/children/:id/fees/pdf", api.childFeesPDF)

	// admin endpoints
	admin := roleMiddleware(deps.UserSvc, adminOnly...)
	pg.GET("", api.query, admin)
	pg.POST("", api.create, admin)
	pg.GET("/:id", api.retrieve, admin)
	pg.PUT("/:id", api.update, admin)
	pg.DELETE("/:id", api.destroy, admin)
	pg.POST("/:id/decision", api.decide, admin)
	pg.PUT("/:id/active", api.setActive, admin)
	pg.GET("/:id/children", api.parentChildren, admin)
	pg.POST("/:id/students/:studentID", api.linkStudent, admin)
	pg.DELETE("/:id/students/:studentID", api.unlinkStudent, admin)
}

const contextParentKey = "parent"

// ctxParentMiddleware loads the parent profile of the logged in PARENT user.
func (api *parentApi) ctxParentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		p, err := api.svc.GetByUserID(ctx.Request().Context(), usr.ID)
		if err != nil {
			return errors.Wrap(err, "getting parent of user")
		}
		if !p.IsActive {
			return errAccountDeactivated
		}
		ctx.Set(contextParentKey, p)
		return next(ctx)
	}
}

func ctxParent(ctx echo.Context) parent.Parent {
	p, _ := ctx.Get(contextParentKey).(parent.Parent)
	return p
}

func (api *parentApi) getParent(ctx echo.Context) (parent.Parent, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return parent.Parent{}, err
	}
	return api.svc.Get(ctx.Request().Context(), id)
}

// Public

func (api *parentApi) register(ctx echo.Context) error {
	var data parent.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == parent.ErrRegistrationClosed {
			return errRegistrationClosed
		}
		return errors.Wrap(err, "registering parent")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// Admin

func (api *parentApi) query(ctx echo.Context) error {
	filter := new(parent.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []parent.Parent{})
	}
	filter.Clean()

	parents, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	if parents == nil {
		parents = []parent.Parent{}
	}
	return ctx.JSON(http.StatusOK, parents)
}

func (api *parentApi) create(ctx echo.Context) error {
	var data parent.NewParent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating parent")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *parentApi) retrieve(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) update(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}
	return api.doUpdate(ctx, p)
}

func (api *parentApi) doUpdate(ctx echo.Context, p parent.Parent) error {
	var data parent.UpdateParent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateParent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Update(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating parent")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) destroy(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}
	if err = api.svc.Delete(ctx.Request().Context(), p); err != nil {
		return errors.Wrap(err, "deleting parent")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *parentApi) decide(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}

	var data parent.Decision
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err = api.svc.Decide(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "deciding registration")
	}
	if data.Action == parent.ActionReject {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) setActive(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}

	var data parent.SetActive
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActive")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err = api.svc.SetActive(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "setting parent active")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) parentChildren(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}
	children, err := api.svc.Children(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "getting children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *parentApi) linkStudent(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}
	studentID, err := pathID(ctx, "studentID")
	if err != nil {
		return err
	}
	p, err = api.svc.LinkStudent(ctx.Request().Context(), p, studentID)
	if err != nil {
		return errors.Wrap(err, "linking student")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) unlinkStudent(ctx echo.Context) error {
	p, err := api.getParent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting parent")
	}
	studentID, err := pathID(ctx, "studentID")
	if err != nil {
		return err
	}
	p, err = api.svc.UnlinkStudent(ctx.Request().Context(), p, studentID)
	if err != nil {
		return errors.Wrap(err, "unlinking student")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Parent portal

func (api *parentApi) getChild(ctx echo.Context) (student.Student, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return student.Student{}, err
	}
	return api.svc.Child(ctx.Request().Context(), ctxParent(ctx), id)
}

func (api *parentApi) dashboard(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	dash, err := api.svc.Dashboard(rctx, ctxParent(ctx))
	if err != nil {
		return errors.Wrap(err, "building parent dashboard")
	}
	latest, err := api.schoolSvc.LatestAnnouncements(rctx)
	if err != nil {
		return errors.Wrap(err, "getting announcements")
	}
	return ctx.JSON(http.StatusOK, ParentPortal{Dashboard: dash, Announcements: latest})
}

func (api *parentApi) profile(ctx echo.Context) error {
	p := ctxParent(ctx)
	return ctx.JSON(http.StatusOK, ParentProfile{Parent: p, Initials: p.Initials()})
}

func (api *parentApi) updateProfile(ctx echo.Context) error {
	return api.doUpdate(ctx, ctxParent(ctx))
}

func (api *parentApi) announcements(ctx echo.Context) error {
	page, err := api.schoolSvc.Announcements(ctx.Request().Context(), queryInt(ctx, "page", 1))
	if err != nil {
		return errors.Wrap(err, "getting announcements")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *parentApi) children(ctx echo.Context) error {
	children, err := api.svc.Children(ctx.Request().Context(), ctxParent(ctx))
	if err != nil {
		return errors.Wrap(err, "getting children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *parentApi) child(ctx echo.Context) error {
	s, err := api.getChild(ctx)
	if err != nil {
		return errors.Wrap(err, "getting child")
	}
	rctx := ctx.Request().Context()

	detail := ChildDetail{Student: s}
	if detail.Attendance, err = api.attendanceSvc.StudentSummary(rctx, s.ID); err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	if detail.Fees, err = api.feeSvc.StudentReport(rctx, s); err != nil {
		return errors.Wrap(err, "building fee report")
	}
	if detail.Results, err = api.examSvc.ReportCard(rctx, s); err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *parentApi) childResults(ctx echo.Context) error {
	s, err := api.getChild(ctx)
	if err != nil {
		return errors.Wrap(err, "getting child")
	}
	rc, err := api.examSvc.ReportCard(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *parentApi) childResultsPDF(ctx echo.Context) error {
	s, err := api.getChild(ctx)
	if err != nil {
		return errors.Wrap(err, "getting child")
	}
	return api.reports.reportCard(ctx, s)
}

func (api *parentApi) childFees(ctx echo.Context) error {
	s, err := api.getChild(ctx)
	if err != nil {
		return errors.Wrap(err, "getting child")
	}
	rep, err := api.feeSvc.StudentReport(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "building fee report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *parentApi) childFeesPDF(ctx echo.Context) error {
	s, err := api.getChild(ctx)
	if err != nil {
		return errors.Wrap(err, "getting child")
	}
	return api.reports.feeStatement(ctx, s)
}

type (
	ParentPortal struct {
		parent.Dashboard
		Announcements []school.AnnouncementItem `json:"announcements"`
	}

	ParentProfile struct {
		parent.Parent
		Initials string `json:"initials"`
	}

	ChildDetail struct {
		Student    student.Student    `json:"student"`
		Attendance attendance.Summary `json:"attendance"`
		Fees       fee.StudentReport  `json:"fees"`
		Results    exam.ReportCard    `json:"results"`
	}
)
