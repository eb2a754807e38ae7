package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/sims/core/faculty"
)

type facultyApi struct {
	auth     *authenticator
	svc      *faculty.Service
	validate *validator.Validate
}

func registerFacultyAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *faculty.Service,
	validate *validator.Validate,
) {
	api := facultyApi{auth: auth, svc: svc, validate: validate}

	fg := g.Group("/faculty", jwt, adminMiddleware())
	fg.GET("", api.query)
	fg.POST("", api.create)
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update)
	fg.DELETE("/:id", api.destroy)
}

func (api *facultyApi) query(ctx echo.Context) error {
	filter := new(faculty.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []faculty.Faculty{})
	}
	filter.Clean()
	facs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying faculty")
	}
	return ctx.JSON(http.StatusOK, facs)
}

func (api *facultyApi) create(ctx echo.Context) error {
	var data faculty.NewFaculty
	if err := bind(ctx, &data, "NewFaculty"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	fac, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, fac)
}

func (api *facultyApi) retrieve(ctx echo.Context) error {
	fac, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding faculty")
	}
	return ctx.JSON(http.StatusOK, fac)
}

func (api *facultyApi) update(ctx echo.Context) error {
	fac, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding faculty")
	}
	var data faculty.UpdateFaculty
	if err = bind(ctx, &data, "UpdateFaculty"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if fac, err = api.svc.Update(ctx.Request().Context(), fac, data); err != nil {
		return errors.Wrap(err, "updating faculty")
	}
	return ctx.JSON(http.StatusOK, fac)
}

func (api *facultyApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	return ctx.NoContent(http.StatusNoContent)
}
