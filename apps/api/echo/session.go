package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core/auth"
)

type sessionApi struct {
	svc     *auth.Service
	jwtConf middleware.JWTConfig
	appName string
}

func registerSessionAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps, jwtConf middleware.JWTConfig) {
	api := sessionApi{
		svc:     deps.Auth,
		jwtConf: jwtConf,
		appName: deps.Conf.AppName,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	ag.POST("/logout", api.logout, authed...)
	ag.GET("/me", api.me, authed...)
}

// Handlers

func (api *sessionApi) login(ctx echo.Context) error {
	var data auth.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	sess, err := api.svc.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	resp, err := newLoginResponse(api.jwtConf, api.appName, sess)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *sessionApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	api.svc.Logout(sess.ID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) me(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}
