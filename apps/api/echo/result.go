package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
	"github.com/trezcool/schooloffice/core/result"
)

type resultApi struct {
	svc      *result.Service
	validate *validator.Validate
}

func registerResultAPI(g *echo.Group, svc *result.Service, validate *validator.Validate) {
	api := resultApi{svc: svc, validate: validate}

	g.POST("/add_subject", api.addSubject)
	g.GET("", api.query)
	g.POST("", api.create)

	// detail endpoints
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.PATCH("/:id", api.update)
	g.DELETE("/:id", api.destroy)
	g.DELETE("/:id/subjects/:subject_id", api.removeSubject)
}

// addSubject records a subject score and returns the student's updated Result.
func (api *resultApi) addSubject(ctx echo.Context) error {
	var data result.NewSubjectScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubjectScore")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.AddSubjectScore(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *resultApi) query(ctx echo.Context) error {
	studentID, err := intQueryParam(ctx, studentParam)
	if err != nil {
		return err
	}
	results, err := api.svc.Query(ctx.Request().Context(), result.QueryFilter{StudentID: studentID})
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []result.Result{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) create(ctx echo.Context) error {
	var data result.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *resultApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) update(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data result.UpdateResult
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateResult")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	n, err := api.svc.Delete(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "deleting result")
	}
	if n == 0 {
		return core.NewNotFoundError("Result not found.")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *resultApi) removeSubject(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	subjectID, err := idParam(ctx, "subject_id")
	if err != nil {
		return err
	}

	res, err := api.svc.RemoveSubject(ctx.Request().Context(), id, subjectID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
