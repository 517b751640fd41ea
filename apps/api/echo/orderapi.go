package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/order"
	"github.com/cadenza-app/cadenza/core/user"
)

type orderApi struct {
	svc *order.Service
}

func registerOrderAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *Deps) {
	api := orderApi{svc: deps.OrderSvc}

	og := g.Group("/orders", auth, teacherMiddleware())
	og.POST("", api.create)
	og.GET("", api.query)
	og.GET("/:id", api.retrieve)
	og.PUT("/:id", api.update)
	og.DELETE("/:id", api.destroy)

	// batching is a staff concern
	bg := g.Group("/batches", auth, staffMiddleware())
	bg.POST("", api.buildBatch)
	bg.GET("", api.queryBatches)
	bg.GET("/:id", api.retrieveBatch)
	bg.GET("/:id/orders", api.batchOrders)
	bg.GET("/:id/summary", api.batchSummary)
	bg.GET("/:id/packing-list.pdf", api.packingListPDF)
	bg.POST("/:id/submit", api.submitBatch)
	bg.POST("/:id/fulfill", api.fulfillBatch)
}

// Handlers

func (api *orderApi) create(ctx echo.Context) error {
	var data order.NewOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOrder")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}
	ord, err := api.svc.Create(auth.UserID, data)
	if err != nil {
		return errors.Wrap(err, "creating order")
	}
	return ctx.JSON(http.StatusCreated, ord)
}

// query lists all orders for staff; teachers only see their own.
func (api *orderApi) query(ctx echo.Context) error {
	if !contextHasAnyRole(ctx, user.RoleAdmin, user.RoleStaff) {
		auth, err := getContextAuth(ctx)
		if err != nil {
			return err
		}
		orders, err := api.svc.QueryByTeacher(auth.UserID)
		if err != nil {
			return errors.Wrap(err, "querying orders")
		}
		if orders == nil {
			orders = []order.Order{}
		}
		return ctx.JSON(http.StatusOK, orders)
	}

	filter := new(order.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []order.Order{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	orders, err := api.svc.Query(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying orders")
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return ctx.JSON(http.StatusOK, orders)
}

func (api *orderApi) retrieve(ctx echo.Context) error {
	ord, err := api.getOwnedOrder(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderApi) update(ctx echo.Context) error {
	ord, err := api.getOwnedOrder(ctx)
	if err != nil {
		return err
	}

	var data order.UpdateOrder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOrder")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ord, err = api.svc.Update(ord.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating order")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderApi) destroy(ctx echo.Context) error {
	ord, err := api.getOwnedOrder(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ord.ID); err != nil {
		return errors.Wrap(err, "deleting order")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *orderApi) buildBatch(ctx echo.Context) error {
	var data BuildBatchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BuildBatchRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	b, err := api.svc.BuildBatch(data.Cutoff)
	if err != nil {
		return errors.Wrap(err, "building batch")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *orderApi) queryBatches(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	batches, err := api.svc.QueryBatches(ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying batches")
	}
	if batches == nil {
		batches = []order.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *orderApi) retrieveBatch(ctx echo.Context) error {
	b, err := api.getBatch(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *orderApi) batchOrders(ctx echo.Context) error {
	b, err := api.getBatch(ctx)
	if err != nil {
		return err
	}
	orders, err := api.svc.BatchOrders(b.ID)
	if err != nil {
		return errors.Wrap(err, "querying batch orders")
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return ctx.JSON(http.StatusOK, orders)
}

func (api *orderApi) batchSummary(ctx echo.Context) error {
	b, err := api.getBatch(ctx)
	if err != nil {
		return err
	}
	orders, err := api.svc.BatchOrders(b.ID)
	if err != nil {
		return errors.Wrap(err, "querying batch orders")
	}
	lines := order.Summarize(orders)
	if lines == nil {
		lines = []order.SummaryLine{}
	}
	return ctx.JSON(http.StatusOK, lines)
}

func (api *orderApi) packingListPDF(ctx echo.Context) error {
	b, err := api.getBatch(ctx)
	if err != nil {
		return err
	}
	orders, err := api.svc.BatchOrders(b.ID)
	if err != nil {
		return errors.Wrap(err, "querying batch orders")
	}
	doc, err := order.PackingListPDF(b, orders)
	if err != nil {
		return errors.Wrap(err, "rendering packing list pdf")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="packing-list.pdf"`)
	return ctx.Blob(http.StatusOK, "application/pdf", doc)
}

func (api *orderApi) submitBatch(ctx echo.Context) error {
	b, err := api.getBatch(ctx)
	if err != nil {
		return err
	}
	b, err = api.svc.SubmitBatch(b.ID)
	if err != nil {
		return errors.Wrap(err, "submitting batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *orderApi) fulfillBatch(ctx echo.Context) error {
	b, err := api.getBatch(ctx)
	if err != nil {
		return err
	}
	b, err = api.svc.FulfillBatch(b.ID)
	if err != nil {
		return errors.Wrap(err, "fulfilling batch")
	}
	return ctx.JSON(http.StatusOK, b)
}

// helpers

// getOwnedOrder loads the order; teachers only reach their own.
func (api *orderApi) getOwnedOrder(ctx echo.Context) (order.Order, error) {
	ord, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return order.Order{}, errHttpNotFound
		}
		return order.Order{}, errors.Wrap(err, "finding order by ID")
	}

	if !contextHasAnyRole(ctx, user.RoleAdmin, user.RoleStaff) {
		auth, err := getContextAuth(ctx)
		if err != nil {
			return order.Order{}, err
		}
		if ord.TeacherID != auth.UserID {
			return order.Order{}, errHttpNotFound
		}
	}
	return ord, nil
}

func (api *orderApi) getBatch(ctx echo.Context) (order.Batch, error) {
	b, err := api.svc.GetBatchByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == order.ErrBatchNotFound {
			return order.Batch{}, errHttpNotFound
		}
		return order.Batch{}, errors.Wrap(err, "finding batch by ID")
	}
	return b, nil
}

type BuildBatchRequest struct {
	Cutoff time.Time `json:"cutoff"`
}

// Validate defaults a zero cutoff to now: "batch everything open so far".
func (br *BuildBatchRequest) Validate() error {
	if br.Cutoff.IsZero() {
		br.Cutoff = time.Now().UTC()
	}
	if err := core.Validate.Struct(br); err != nil {
		return err
	}
	return nil
}
