package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core/work"
)

type (
	WorkListResponse struct {
		Works  []work.Work `json:"works"`
		Totals work.Totals `json:"totals"`
	}

	WorkStatusResponse struct {
		WorkID   string        `json:"workId"`
		Counts   work.Counts   `json:"counts"`
		Statuses []work.Status `json:"statuses"`
	}

	workApi struct {
		svc      *work.Service
		validate *validator.Validate
	}
)

func newWorkStatusResponse(w work.Work) WorkStatusResponse {
	return WorkStatusResponse{WorkID: w.ID, Counts: w.Counts, Statuses: w.Statuses}
}

func registerWorkAPI(g *echo.Group, svc *work.Service, validate *validator.Validate) {
	api := workApi{
		svc:      svc,
		validate: validate,
	}

	wg := g.Group("/work")
	wg.POST("/add", api.create)
	wg.GET("", api.query)
	wg.GET("/totals", api.totals)
	wg.POST("/recompute-totals", api.recompute)

	wg.POST("/status/:workId", api.upsertStatus)
	wg.GET("/status/:workId", api.retrieveStatus)

	// detail endpoints
	wg.GET("/:id", api.retrieve)
	wg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *workApi) create(ctx echo.Context) error {
	var data work.NewWork
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWork")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	w, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return created(ctx, w, "Work added successfully")
}

func (api *workApi) query(ctx echo.Context) error {
	c := ctx.Request().Context()
	works, err := api.svc.QueryAll(c)
	if err != nil {
		return errors.Wrap(err, "querying works")
	}
	totals, err := api.svc.Totals(c)
	if err != nil {
		return errors.Wrap(err, "getting totals")
	}
	return ok(ctx, WorkListResponse{Works: works, Totals: totals})
}

func (api *workApi) totals(ctx echo.Context) error {
	totals, err := api.svc.Totals(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting totals")
	}
	return ok(ctx, totals)
}

func (api *workApi) recompute(ctx echo.Context) error {
	totals, err := api.svc.RecomputeAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ok(ctx, totals, "Totals recomputed successfully")
}

func (api *workApi) retrieve(ctx echo.Context) error {
	w, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ok(ctx, w)
}

func (api *workApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ok(ctx, nil, "Work deleted successfully")
}

func (api *workApi) upsertStatus(ctx echo.Context) error {
	var data work.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	w, err := api.svc.UpsertStatus(ctx.Request().Context(), ctx.Param("workId"), data)
	if err != nil {
		return err
	}
	return ok(ctx, newWorkStatusResponse(w), "Status updated successfully")
}

func (api *workApi) retrieveStatus(ctx echo.Context) error {
	w, err := api.svc.Get(ctx.Request().Context(), ctx.Param("workId"))
	if err != nil {
		return err
	}
	return ok(ctx, newWorkStatusResponse(w))
}
