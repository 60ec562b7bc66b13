package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/exam"
)

type examApi struct {
	svc      exam.Service
	reports  reporter
	validate *validator.Validate
}

func registerExamAPI(authed *echo.Group, deps ServerDeps) {
	api := examApi{
		svc:      deps.ExamSvc,
		reports:  newReporter(deps),
		validate: deps.Validate,
	}

	eg := authed.Group("/exams", roleMiddleware(deps.UserSvc, staff...))
	eg.GET("", api.query)
	eg.POST("", api.create)
	eg.GET("/:id", api.retrieve)
	eg.DELETE("/:id", api.destroy, roleMiddleware(deps.UserSvc, adminOnly...))
	eg.GET("/:id/marks", api.marksSheet)
	eg.PUT("/:id/marks", api.enterMarks)
	eg.GET("/:id/results", api.results)
	eg.GET("/:id/results/pdf", api.resultsPDF)
}

func (api *examApi) getExam(ctx echo.Context) (exam.Exam, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return exam.Exam{}, err
	}
	return api.svc.Get(ctx.Request().Context(), id)
}

func (api *examApi) query(ctx echo.Context) error {
	filter := new(exam.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Exam{})
	}
	filter.Clean()

	exams, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	e, err := api.getExam(ctx)
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *examApi) destroy(ctx echo.Context) error {
	e, err := api.getExam(ctx)
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	if err = api.svc.Delete(ctx.Request().Context(), e.ID); err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) marksSheet(ctx echo.Context) error {
	e, err := api.getExam(ctx)
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	sheet, err := api.svc.MarksSheet(ctx.Request().Context(), e)
	if err != nil {
		return errors.Wrap(err, "getting marks sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *examApi) enterMarks(ctx echo.Context) error {
	e, err := api.getExam(ctx)
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}

	var data exam.EnterMarks
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnterMarks")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.EnterMarks(ctx.Request().Context(), e, data)
	if err != nil {
		return errors.Wrap(err, "entering marks")
	}
	return ctx.JSON(http.StatusOK, EnterMarksResponse{Saved: n})
}

func (api *examApi) results(ctx echo.Context) error {
	e, err := api.getExam(ctx)
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	res, err := api.svc.Results(ctx.Request().Context(), e)
	if err != nil {
		return errors.Wrap(err, "building exam results")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *examApi) resultsPDF(ctx echo.Context) error {
	e, err := api.getExam(ctx)
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	return api.reports.examResults(ctx, e)
}

type EnterMarksResponse struct {
	Saved int `json:"saved"`
}
