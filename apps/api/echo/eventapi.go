package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core/event"
	"github.com/cadenza-app/cadenza/core/user"
)

type eventApi struct {
	svc     *event.Service
	userSvc *user.Service
}

func registerEventAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *Deps) {
	api := eventApi{svc: deps.EventSvc, userSvc: deps.UserSvc}

	eg := g.Group("/events", auth)
	eg.POST("", api.create, staffMiddleware())
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update, staffMiddleware())
	eg.DELETE("/:id", api.destroy, staffMiddleware())

	eg.POST("/:id/classes", api.createClass, staffMiddleware())
	eg.GET("/:id/classes", api.queryClasses)

	cg := g.Group("/classes", auth)
	cg.GET("/mine", api.queryOwnClasses, requireRoles(user.RoleAdmin, user.RoleStaff, user.RoleTeacher, user.RoleParent))
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass, staffMiddleware())
	cg.DELETE("/:id", api.destroyClass, staffMiddleware())
	cg.GET("/:id/roster.pdf", api.rosterPDF, teacherMiddleware())
	cg.POST("/:id/roster", api.addToRoster, parentMiddleware())
	cg.DELETE("/:id/roster", api.removeFromRoster, parentMiddleware())
}

// Handlers

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	evt, err := api.svc.CreateEvent(data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) query(ctx echo.Context) error {
	filter := new(event.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []event.Event{})
	}
	filter.Clean()

	// non-staff callers only see published events
	if !contextHasAnyRole(ctx, user.RoleAdmin, user.RoleStaff) {
		published := true
		filter.Published = &published
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	events, err := api.svc.QueryEvents(filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	evt, err := api.getEvent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	evt, err := api.getEvent(ctx)
	if err != nil {
		return err
	}

	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(evt); err != nil {
		return err
	}

	evt, err = api.svc.UpdateEvent(evt.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	evt, err := api.getEvent(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteEvents(evt.ID); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) createClass(ctx echo.Context) error {
	evt, err := api.getEvent(ctx)
	if err != nil {
		return err
	}

	var data event.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(evt); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(evt.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *eventApi) queryClasses(ctx echo.Context) error {
	evt, err := api.getEvent(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.QueryClassesByEvent(evt.ID)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []event.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

// queryOwnClasses lists the classes a teacher leads, or the classes a parent's
// children are signed up for.
func (api *eventApi) queryOwnClasses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var classes []event.Class
	switch {
	case ctxUsr.IsTeacher():
		classes, err = api.svc.QueryClassesByTeacher(ctxUsr.ID)
	default:
		classes, err = api.svc.QueryClassesByParent(ctxUsr.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []event.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *eventApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *eventApi) updateClass(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}
	evt, err := api.svc.GetEventByID(cls.EventID)
	if err != nil {
		return errors.Wrap(err, "finding event by ID")
	}

	var data event.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(cls, evt); err != nil {
		return err
	}

	cls, err = api.svc.UpdateClass(cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *eventApi) destroyClass(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteClasses(cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// rosterPDF streams a printable roster sheet. A teacher may only print their
// own classes; staff may print any.
func (api *eventApi) rosterPDF(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}

	if !contextHasAnyRole(ctx, user.RoleAdmin, user.RoleStaff) {
		auth, err := getContextAuth(ctx)
		if err != nil {
			return err
		}
		if cls.TeacherID != auth.UserID {
			return errHttpForbidden
		}
	}

	evt, err := api.svc.GetEventByID(cls.EventID)
	if err != nil {
		return errors.Wrap(err, "finding event by ID")
	}
	doc, err := event.RosterPDF(evt, cls)
	if err != nil {
		return errors.Wrap(err, "rendering roster pdf")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="roster.pdf"`)
	return ctx.Blob(http.StatusOK, "application/pdf", doc)
}

// addToRoster signs a child up. Parents can only sign up their own children;
// staff may act on any parent's behalf.
func (api *eventApi) addToRoster(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}

	var data event.NewRosterEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRosterEntry")
	}
	if !contextHasAnyRole(ctx, user.RoleAdmin, user.RoleStaff) {
		auth, err := getContextAuth(ctx)
		if err != nil {
			return err
		}
		data.ParentID = auth.UserID
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err = api.svc.AddToRoster(cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding to roster")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *eventApi) removeFromRoster(ctx echo.Context) error {
	cls, err := api.getClass(ctx)
	if err != nil {
		return err
	}

	var data event.NewRosterEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRosterEntry")
	}
	if !contextHasAnyRole(ctx, user.RoleAdmin, user.RoleStaff) {
		auth, err := getContextAuth(ctx)
		if err != nil {
			return err
		}
		data.ParentID = auth.UserID
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err = api.svc.RemoveFromRoster(cls.ID, data.StudentName, data.ParentID)
	if err != nil {
		return errors.Wrap(err, "removing from roster")
	}
	return ctx.JSON(http.StatusOK, cls)
}

// helpers

func (api *eventApi) getEvent(ctx echo.Context) (event.Event, error) {
	evt, err := api.svc.GetEventByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == event.ErrNotFound {
			return event.Event{}, errHttpNotFound
		}
		return event.Event{}, errors.Wrap(err, "finding event by ID")
	}
	// unpublished events do not exist for non-staff callers
	if !evt.Published && !contextHasAnyRole(ctx, user.RoleAdmin, user.RoleStaff, user.RoleTeacher) {
		return event.Event{}, errHttpNotFound
	}
	return evt, nil
}

func (api *eventApi) getClass(ctx echo.Context) (event.Class, error) {
	cls, err := api.svc.GetClassByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == event.ErrClassNotFound {
			return event.Class{}, errHttpNotFound
		}
		return event.Class{}, errors.Wrap(err, "finding class by ID")
	}
	return cls, nil
}
