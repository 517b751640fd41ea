package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core/task"
	"github.com/cadenza-app/cadenza/core/user"
)

type taskApi struct {
	svc     *task.Service
	userSvc *user.Service
}

func registerTaskAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *Deps) {
	api := taskApi{svc: deps.TaskSvc, userSvc: deps.UserSvc}

	tg := g.Group("/tasks", auth)

	// admins manage the task list
	tg.POST("", api.create, adminMiddleware())
	tg.GET("", api.query, adminMiddleware())
	tg.PUT("/:id", api.update, adminMiddleware())
	tg.DELETE("/:id", api.destroy, adminMiddleware())
	tg.DELETE("", api.destroyMultiple, adminMiddleware())

	// every portal user has their own view
	tg.GET("/me", api.visible)
	tg.GET("/me/pending", api.pending)
	tg.GET("/me/counts", api.counts)
	tg.GET("/:id", api.retrieve)
	tg.POST("/:id/complete", api.complete)
	tg.POST("/:id/uncomplete", api.uncomplete)
}

// Handlers

func (api *taskApi) create(ctx echo.Context) error {
	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.Create(auth.UserID, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tasks, err := api.svc.Query(ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

// retrieve returns the task; non-admins only see tasks currently visible to them.
func (api *taskApi) retrieve(ctx echo.Context) error {
	t, err := api.getTask(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	t, err := api.getTask(ctx)
	if err != nil {
		return err
	}

	var data task.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := data.Validate(t); err != nil {
		return err
	}

	t, err = api.svc.Update(t.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	t, err := api.getTask(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(t.ID); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *taskApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting tasks")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *taskApi) visible(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tasks, err := api.svc.VisibleForUser(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying visible tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) pending(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tasks, err := api.svc.PendingForUser(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying pending tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) counts(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	counts, err := api.svc.CountsForUser(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "counting tasks")
	}
	return ctx.JSON(http.StatusOK, counts)
}

func (api *taskApi) complete(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	t, err := api.svc.Complete(ctx.Param("id"), ctxUsr)
	if err != nil {
		if errors.Cause(err) == task.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) uncomplete(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	t, err := api.svc.Uncomplete(ctx.Param("id"), ctxUsr)
	if err != nil {
		if errors.Cause(err) == task.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "uncompleting task")
	}
	return ctx.JSON(http.StatusOK, t)
}

// helpers

func (api *taskApi) getTask(ctx echo.Context) (task.Task, error) {
	t, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == task.ErrNotFound {
			return task.Task{}, errHttpNotFound
		}
		return task.Task{}, errors.Wrap(err, "finding task by ID")
	}

	// invisible tasks do not exist for non-admins
	if !contextHasAnyRole(ctx, user.RoleAdmin) {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return task.Task{}, errors.Wrap(err, "getting context user")
		}
		tasks, err := api.svc.VisibleForUser(ctxUsr)
		if err != nil {
			return task.Task{}, errors.Wrap(err, "querying visible tasks")
		}
		for _, vt := range tasks {
			if vt.ID == t.ID {
				return t, nil
			}
		}
		return task.Task{}, errHttpNotFound
	}
	return t, nil
}
