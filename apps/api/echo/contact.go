package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/contact"
)

type contactApi struct {
	svc      *contact.Service
	validate *validator.Validate
}

func registerContactAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *contact.Service, validate *validator.Validate) {
	api := contactApi{svc: svc, validate: validate}

	// un-authed endpoints
	g.POST("", api.create)

	// admin endpoints
	g.GET("", api.query, authed...)
	g.GET("/:id", api.retrieve, authed...)
	g.PATCH("/:id", api.update, authed...)
	g.DELETE("/:id", api.destroy, authed...)
}

func (api *contactApi) create(ctx echo.Context) error {
	var data contact.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *contactApi) query(ctx echo.Context) error {
	var filter contact.QueryFilter
	if val := ctx.QueryParam("is_read"); val != "" {
		isRead := strings.ToLower(val) == "true"
		filter.IsRead = &isRead
	}

	msgs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying contact messages")
	}
	if msgs == nil {
		msgs = []contact.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *contactApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	msg, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *contactApi) update(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data contact.UpdateMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMessage")
	}

	msg, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *contactApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	n, err := api.svc.Delete(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deleting contact message")
	}
	if n == 0 {
		return core.NewNotFoundError("Contact message not found.")
	}
	return ctx.NoContent(http.StatusNoContent)
}
