package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/school"
	"github.com/charlesacademy/portal/core/teacher"
	"github.com/charlesacademy/portal/core/user"
)

type teacherApi struct {
	svc       teacher.Service
	userSvc   user.Service
	schoolSvc school.Service
	validate  *validator.Validate
}

func registerTeacherAPI(authed *echo.Group, deps ServerDeps) {
	api := teacherApi{
		svc:       deps.TeacherSvc,
		userSvc:   deps.UserSvc,
		schoolSvc: deps.SchoolSvc,
		validate:  deps.Validate,
	}
	admin := roleMiddleware(deps.UserSvc, adminOnly...)

	tg := authed.Group("/teachers")
	tg.GET("/dashboard", api.dashboard, roleMiddleware(deps.UserSvc, user.RoleTeacher))
	tg.GET("", api.query, admin)
	tg.POST("", api.create, admin)
	tg.GET("/:id", api.retrieve, admin)
	tg.PUT("/:id", api.update, admin)
	tg.DELETE("/:id", api.destroy, admin)
}

func (api *teacherApi) getTeacher(ctx echo.Context) (teacher.Teacher, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return teacher.Teacher{}, err
	}
	return api.svc.Get(ctx.Request().Context(), id)
}

func (api *teacherApi) query(ctx echo.Context) error {
	filter := new(teacher.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []teacher.Teacher{})
	}
	filter.Clean()

	teachers, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []teacher.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *teacherApi) create(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *teacherApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.svc.GetDetail(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *teacherApi) update(ctx echo.Context) error {
	t, err := api.getTeacher(ctx)
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}

	var data teacher.UpdateTeacher
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err = api.svc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teacherApi) destroy(ctx echo.Context) error {
	t, err := api.getTeacher(ctx)
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}
	if err = api.svc.Delete(ctx.Request().Context(), t); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rctx := ctx.Request().Context()

	detail, err := api.svc.ForUser(rctx, usr)
	if err != nil {
		return errors.Wrap(err, "getting teacher of user")
	}
	latest, err := api.schoolSvc.LatestAnnouncements(rctx)
	if err != nil {
		return errors.Wrap(err, "getting announcements")
	}
	return ctx.JSON(http.StatusOK, TeacherDashboard{Teacher: detail, Announcements: latest})
}

type TeacherDashboard struct {
	Teacher       teacher.Detail            `json:"teacher"`
	Announcements []school.AnnouncementItem `json:"announcements"`
}
