package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core/resource"
	"github.com/cadenza-app/cadenza/core/user"
)

type resourceApi struct {
	svc *resource.Service
}

func registerResourceAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *Deps) {
	api := resourceApi{svc: deps.ResourceSvc}

	rg := g.Group("/resources", auth, teacherMiddleware())
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
	rg.GET("/:id/download", api.download)
	rg.POST("", api.upload)

	// edits are a staff concern; deletion belongs to the uploader or an admin
	rg.PUT("/:id", api.update, staffMiddleware())
	rg.DELETE("/:id", api.destroy)
	rg.DELETE("", api.destroyMultiple)
}

// Handlers

// upload takes a multipart form: a `file` part plus title/description fields.
func (api *resourceApi) upload(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return errors.Wrap(err, "getting form file")
	}

	data := resource.NewResource{
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
	}
	if err := data.Validate(); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "opening form file")
	}
	defer file.Close()

	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Upload(auth.UserID, data, file)
	if err != nil {
		return errors.Wrap(err, "uploading resource")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *resourceApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	resources, err := api.svc.Query(ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if resources == nil {
		resources = []resource.Resource{}
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *resourceApi) retrieve(ctx echo.Context) error {
	res, err := api.getResource(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// download streams the file contents.
func (api *resourceApi) download(ctx echo.Context) error {
	res, rc, err := api.svc.OpenFile(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == resource.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "opening resource file")
	}
	defer rc.Close()

	contentType := res.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+res.Filename+`"`)
	return ctx.Stream(http.StatusOK, contentType, rc)
}

func (api *resourceApi) update(ctx echo.Context) error {
	res, err := api.getResource(ctx)
	if err != nil {
		return err
	}

	var data resource.UpdateResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateResource")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	res, err = api.svc.Update(res.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating resource")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resourceApi) destroy(ctx echo.Context) error {
	res, err := api.getResource(ctx)
	if err != nil {
		return err
	}
	if err := api.checkCanDelete(ctx, res); err != nil {
		return err
	}
	if err := api.svc.Delete(res.ID); err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *resourceApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	for _, id := range query.IDs {
		res, err := api.svc.GetByID(id)
		if err != nil {
			if errors.Cause(err) == resource.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding resource by ID")
		}
		if err := api.checkCanDelete(ctx, res); err != nil {
			return err
		}
	}
	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting resources")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// helpers

// checkCanDelete only lets the uploader or an admin remove a resource.
func (api *resourceApi) checkCanDelete(ctx echo.Context, res resource.Resource) error {
	if contextHasAnyRole(ctx, user.RoleAdmin) {
		return nil
	}
	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}
	if res.UploadedBy != auth.UserID {
		return errHttpForbidden
	}
	return nil
}

func (api *resourceApi) getResource(ctx echo.Context) (resource.Resource, error) {
	res, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == resource.ErrNotFound {
			return resource.Resource{}, errHttpNotFound
		}
		return resource.Resource{}, errors.Wrap(err, "finding resource by ID")
	}
	return res, nil
}
