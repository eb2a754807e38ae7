package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academia/sims/core/dashboard"
)

type dashboardApi struct {
	auth *authenticator
	svc  *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *dashboard.Service) {
	api := dashboardApi{auth: auth, svc: svc}
	g.GET("/me/dashboard", api.retrieve, jwt)
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	d, err := api.svc.ForUser(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}
