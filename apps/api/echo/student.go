package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/student"
)

type studentApi struct {
	svc      *student.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, svc *student.Service, validate *validator.Validate) {
	api := studentApi{svc: svc, validate: validate}

	g.GET("", api.query)
	g.POST("", api.create)
	g.GET("/specializations", api.specializations)

	// detail endpoints
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.PATCH("/:id", api.update)
	g.DELETE("/:id", api.destroy)
	g.PATCH("/:id/delivery", api.setDelivery)
}

func (api *studentApi) query(ctx echo.Context) error {
	level, err := intQueryParam(ctx, "level")
	if err != nil {
		return err
	}
	filter := student.QueryFilter{
		Search:         ctx.QueryParam("search"),
		Level:          level,
		Specialization: ctx.QueryParam("specialization"),
	}
	var ord Ordering
	ord.Bind(ctx)

	items, err := api.svc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return err
	}
	if items == nil {
		items = []student.ListItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) specializations(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, student.Specializations)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	dtl, err := api.svc.GetDetail(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dtl)
}

// update serves both PUT and PATCH: omitted fields are left untouched.
func (api *studentApi) update(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	n, err := api.svc.Delete(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n == 0 {
		return core.NewNotFoundError("Student not found.")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) setDelivery(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data student.DeliveryUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeliveryUpdate")
	}

	dtl, err := api.svc.SetDelivery(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dtl)
}
