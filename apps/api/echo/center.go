package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/center"
)

type centerApi struct {
	svc *center.Service
}

func registerCenterAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := centerApi{svc: deps.Centers}

	cg := g.Group("/centers")

	// the login screen picks its center from this list
	cg.GET("", api.query)

	cg.POST("", api.create, append(authed, requireRole(account.RoleOwner))...)
}

// Handlers

func (api *centerApi) query(ctx echo.Context) error {
	centers, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying centers")
	}
	return ctx.JSON(http.StatusOK, centers)
}

func (api *centerApi) create(ctx echo.Context) error {
	var data center.NewCenter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCenter")
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating center")
	}
	return ctx.JSON(http.StatusCreated, c)
}
