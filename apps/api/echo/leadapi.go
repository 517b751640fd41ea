package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core/lead"
)

type leadApi struct {
	svc *lead.Service
}

func registerLeadAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *Deps) {
	api := leadApi{svc: deps.LeadSvc}

	lg := g.Group("/leads")

	// the public enquiry form posts here, un-authed
	// TODO: rate limit `/enquiry`
	lg.POST("/enquiry", api.enquire)

	// staff endpoints
	sg := lg.Group("", auth, staffMiddleware())
	sg.GET("", api.query)
	sg.GET("/statuses", api.queryStatuses)
	sg.DELETE("", api.destroyMultiple)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *leadApi) enquire(ctx echo.Context) error {
	var data lead.NewLead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLead")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ld, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating lead")
	}
	return ctx.JSON(http.StatusCreated, ld)
}

func (api *leadApi) query(ctx echo.Context) error {
	filter := new(lead.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lead.Lead{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	leads, err := api.svc.Query(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying leads")
	}
	if leads == nil {
		leads = []lead.Lead{}
	}
	return ctx.JSON(http.StatusOK, leads)
}

func (api *leadApi) queryStatuses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, lead.AllStatuses)
}

func (api *leadApi) retrieve(ctx echo.Context) error {
	ld, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lead.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding lead by ID")
	}
	return ctx.JSON(http.StatusOK, ld)
}

func (api *leadApi) update(ctx echo.Context) error {
	ld, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lead.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding lead by ID")
	}

	var data lead.UpdateLead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLead")
	}
	if err := data.Validate(ld); err != nil {
		return err
	}

	ld, err = api.svc.Update(ld.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lead")
	}
	return ctx.JSON(http.StatusOK, ld)
}

func (api *leadApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.GetByID(ctx.Param("id")); err != nil {
		if errors.Cause(err) == lead.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding lead by ID")
	}
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lead")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *leadApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting leads")
	}
	return ctx.NoContent(http.StatusNoContent)
}
