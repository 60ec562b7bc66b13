package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/school"
)

type schoolApi struct {
	svc      school.Service
	validate *validator.Validate
}

func registerSchoolAPI(authed *echo.Group, deps ServerDeps) {
	api := schoolApi{svc: deps.SchoolSvc, validate: deps.Validate}
	admin := roleMiddleware(deps.UserSvc, adminOnly...)

	ag := authed.Group("/announcements")
	ag.GET("", api.announcements)
	ag.POST("", api.createAnnouncement, admin)
	ag.GET("/:id", api.announcement)
	ag.PUT("/:id", api.updateAnnouncement, admin)
	ag.DELETE("/:id", api.destroyAnnouncement, admin)

	authed.GET("/settings", api.settings)
	authed.PUT("/settings", api.updateSettings, admin)

	authed.GET("/dashboard", api.dashboard, admin)
}

func (api *schoolApi) getAnnouncement(ctx echo.Context) (school.Announcement, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return school.Announcement{}, err
	}
	return api.svc.GetAnnouncement(ctx.Request().Context(), id)
}

func (api *schoolApi) announcements(ctx echo.Context) error {
	page, err := api.svc.Announcements(ctx.Request().Context(), queryInt(ctx, "page", 1))
	if err != nil {
		return errors.Wrap(err, "getting announcements")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *schoolApi) createAnnouncement(ctx echo.Context) error {
	var data school.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.CreateAnnouncement(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *schoolApi) announcement(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	detail, err := api.svc.AnnouncementDetail(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting announcement")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *schoolApi) updateAnnouncement(ctx echo.Context) error {
	a, err := api.getAnnouncement(ctx)
	if err != nil {
		return errors.Wrap(err, "getting announcement")
	}

	var data school.NewAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err = api.svc.UpdateAnnouncement(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *schoolApi) destroyAnnouncement(ctx echo.Context) error {
	a, err := api.getAnnouncement(ctx)
	if err != nil {
		return errors.Wrap(err, "getting announcement")
	}
	if err = api.svc.DeleteAnnouncement(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) settings(ctx echo.Context) error {
	settings, err := api.svc.Settings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting school settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *schoolApi) updateSettings(ctx echo.Context) error {
	var data school.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	settings, err := api.svc.UpdateSettings(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating school settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *schoolApi) dashboard(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
