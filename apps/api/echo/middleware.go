package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/darien/gradebook/core/auth"
)

// requireRole lets through the identities holding one of roles. Owners hold every staff role.
func requireRole(roles ...string) echo.MiddlewareFunc {
	return requireIdentity(func(ident auth.Identity) bool { return ident.HasRole(roles...) })
}

// requireIdentity lets through the identities allowed accepts.
func requireIdentity(allowed func(auth.Identity) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getContextSession(ctx)
			if err != nil {
				return err
			}
			if allowed(sess.Identity) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
