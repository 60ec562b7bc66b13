package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/classroom"
)

type classApi struct {
	svc      classroom.Service
	validate *validator.Validate
}

func registerClassAPI(authed *echo.Group, deps ServerDeps) {
	api := classApi{svc: deps.ClassSvc, validate: deps.Validate}
	admin := roleMiddleware(deps.UserSvc, adminOnly...)

	cg := authed.Group("/classes", roleMiddleware(deps.UserSvc, officeStaff...))
	cg.GET("", api.query)
	cg.POST("", api.create, admin)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, admin)
	cg.DELETE("/:id", api.destroy, admin)
	cg.GET("/:id/subjects", api.querySubjects)
	cg.POST("/:id/subjects", api.createSubject, admin)

	sg := authed.Group("/subjects", roleMiddleware(deps.UserSvc, officeStaff...))
	sg.GET("", api.queryAllSubjects)
	sg.GET("/:id", api.retrieveSubject)
	sg.PUT("/:id", api.updateSubject, admin)
	sg.DELETE("/:id", api.destroySubject, admin)
}

func (api *classApi) getClass(ctx echo.Context) (classroom.ClassRoom, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return classroom.ClassRoom{}, err
	}
	return api.svc.Get(ctx.Request().Context(), id)
}

func (api *classApi) getSubject(ctx echo.Context) (classroom.Subject, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return classroom.Subject{}, err
	}
	return api.svc.GetSubject(ctx.Request().Context(), id)
}

func (api *classApi) query(ctx echo.Context) error {
	filter := new(classroom.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classroom.ClassRoom{})
	}
	classes, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []classroom.ClassRoom{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data classroom.NewClassRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassRoom")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.svc.GetDetail(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *classApi) update(ctx echo.Context) error {
	c, err := api.getClass(ctx)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}

	var data classroom.UpdateClassRoom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassRoom")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) destroy(ctx echo.Context) error {
	c, err := api.getClass(ctx)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	if err = api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) querySubjects(ctx echo.Context) error {
	c, err := api.getClass(ctx)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []classroom.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *classApi) queryAllSubjects(ctx echo.Context) error {
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []classroom.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *classApi) createSubject(ctx echo.Context) error {
	c, err := api.getClass(ctx)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}

	var data classroom.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSubject(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *classApi) retrieveSubject(ctx echo.Context) error {
	s, err := api.getSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *classApi) updateSubject(ctx echo.Context) error {
	s, err := api.getSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}

	var data classroom.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	s, err = api.svc.UpdateSubject(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *classApi) destroySubject(ctx echo.Context) error {
	s, err := api.getSubject(ctx)
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	if err = api.svc.DeleteSubject(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
