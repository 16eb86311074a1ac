package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core/payment"
)

type paymentResponse struct {
	Message string `json:"message"`
	payment.Payment
}

type paymentApi struct {
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *payment.Service, validate *validator.Validate) {
	api := paymentApi{svc: svc, validate: validate}

	g.POST("/pay", api.pay, authed...)

	ig := g.Group("/installments", authed...)
	ig.GET("", api.queryInstallments)
	ig.POST("", api.createInstallment)
	ig.GET("/:id", api.retrieveInstallment)

	rg := g.Group("/receipts", authed...)
	rg.GET("", api.queryReceipts)
	rg.GET("/:id", api.retrieveReceipt)
}

// pay records an installment with its receipt, unlocking uniform & books when due.
func (api *paymentApi) pay(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate, api.svc.Policy()); err != nil {
		return err
	}

	pmt, err := api.svc.RecordPayment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, paymentResponse{Message: "Payment recorded successfully", Payment: pmt})
}

func (api *paymentApi) filter(ctx echo.Context) (payment.QueryFilter, error) {
	studentID, err := intQueryParam(ctx, studentParam)
	return payment.QueryFilter{StudentID: studentID}, err
}

func (api *paymentApi) queryInstallments(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	insts, err := api.svc.QueryInstallments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying installments")
	}
	if insts == nil {
		insts = []payment.Installment{}
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *paymentApi) createInstallment(ctx echo.Context) error {
	var data payment.NewInstallment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstallment")
	}
	if err := data.Validate(api.validate, api.svc.Policy()); err != nil {
		return err
	}

	inst, err := api.svc.CreateInstallment(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *paymentApi) retrieveInstallment(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	inst, err := api.svc.GetInstallment(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *paymentApi) queryReceipts(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	rcpts, err := api.svc.QueryReceipts(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	if rcpts == nil {
		rcpts = []payment.Receipt{}
	}
	return ctx.JSON(http.StatusOK, rcpts)
}

func (api *paymentApi) retrieveReceipt(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	rcpt, err := api.svc.GetReceipt(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rcpt)
}
