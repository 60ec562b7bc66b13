package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/charlesacademy/portal/core/fee"
	"github.com/charlesacademy/portal/core/student"
	"github.com/charlesacademy/portal/services/report"
)

type feeApi struct {
	svc        fee.Service
	studentSvc student.Service
	reports    reporter
	validate   *validator.Validate
}

func registerFeeAPI(authed *echo.Group, deps ServerDeps) {
	api := feeApi{
		svc:        deps.FeeSvc,
		studentSvc: deps.StudentSvc,
		reports:    newReporter(deps),
		validate:   deps.Validate,
	}

	fg := authed.Group("/fees", roleMiddleware(deps.UserSvc, bursary...))
	fg.GET("/structures", api.queryStructures)
	fg.POST("/structures", api.createStructure)
	fg.GET("/structures/:id", api.retrieveStructure)
	fg.PUT("/structures/:id", api.updateStructure)
	fg.DELETE("/structures/:id", api.destroyStructure)

	fg.GET("/payments", api.queryPayments)
	fg.POST("/payments", api.recordPayment)

	fg.GET("/students/:id", api.studentReport)
	fg.GET("/students/:id/statement/pdf", api.statementPDF)

	fg.GET("/due", api.dueList)
	fg.GET("/due/xlsx", api.dueListXLSX)
	fg.GET("/total", api.totalCollected)
}

func (api *feeApi) getStructure(ctx echo.Context) (fee.Structure, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return fee.Structure{}, err
	}
	return api.svc.GetStructure(ctx.Request().Context(), id)
}

func (api *feeApi) getStudent(ctx echo.Context) (student.Student, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return student.Student{}, err
	}
	return api.studentSvc.Get(ctx.Request().Context(), id)
}

func (api *feeApi) queryStructures(ctx echo.Context) error {
	structures, err := api.svc.QueryStructures(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	if structures == nil {
		structures = []fee.Structure{}
	}
	return ctx.JSON(http.StatusOK, structures)
}

func (api *feeApi) createStructure(ctx echo.Context) error {
	var data fee.NewStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStructure")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fs, err := api.svc.CreateStructure(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusCreated, fs)
}

func (api *feeApi) retrieveStructure(ctx echo.Context) error {
	fs, err := api.getStructure(ctx)
	if err != nil {
		return errors.Wrap(err, "getting fee structure")
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *feeApi) updateStructure(ctx echo.Context) error {
	fs, err := api.getStructure(ctx)
	if err != nil {
		return errors.Wrap(err, "getting fee structure")
	}

	var data fee.UpdateStructure
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStructure")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	fs, err = api.svc.UpdateStructure(ctx.Request().Context(), fs, data)
	if err != nil {
		return errors.Wrap(err, "updating fee structure")
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *feeApi) destroyStructure(ctx echo.Context) error {
	fs, err := api.getStructure(ctx)
	if err != nil {
		return errors.Wrap(err, "getting fee structure")
	}
	if err = api.svc.DeleteStructure(ctx.Request().Context(), fs.ID); err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *feeApi) queryPayments(ctx echo.Context) error {
	filter := new(fee.PaymentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []fee.Payment{})
	}
	payments, err := api.svc.QueryPayments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []fee.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *feeApi) recordPayment(ctx echo.Context) error {
	var data fee.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *feeApi) studentReport(ctx echo.Context) error {
	s, err := api.getStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	rep, err := api.svc.StudentReport(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "building fee report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *feeApi) statementPDF(ctx echo.Context) error {
	s, err := api.getStudent(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return api.reports.feeStatement(ctx, s)
}

func (api *feeApi) dueList(ctx echo.Context) error {
	due, err := api.svc.DueList(ctx.Request().Context(), int64(queryInt(ctx, "classroom", 0)))
	if err != nil {
		return errors.Wrap(err, "listing due fees")
	}
	return ctx.JSON(http.StatusOK, due)
}

func (api *feeApi) dueListXLSX(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	due, err := api.svc.DueList(rctx, int64(queryInt(ctx, "classroom", 0)))
	if err != nil {
		return errors.Wrap(err, "listing due fees")
	}
	name, err := api.reports.schoolName(rctx)
	if err != nil {
		return err
	}
	students := make([]student.Student, len(due))
	for i, d := range due {
		students[i] = d.Student
	}
	classes, err := api.reports.classesOf(rctx, students...)
	if err != nil {
		return err
	}
	data, err := report.DueFees(name, due, classes)
	if err != nil {
		return errors.Wrap(err, "rendering due fees")
	}
	return attachment(ctx, mimeXLSX, fmt.Sprintf("due_fees_%s.xlsx", time.Now().Format("20060102")), data)
}

func (api *feeApi) totalCollected(ctx echo.Context) error {
	total, err := api.svc.TotalCollected(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "totalling payments")
	}
	return ctx.JSON(http.StatusOK, TotalResponse{Total: total})
}

type TotalResponse struct {
	Total int64 `json:"total"`
}
