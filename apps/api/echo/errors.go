package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darien/gradebook/core"
	"github.com/darien/gradebook/core/academic"
	"github.com/darien/gradebook/core/account"
	"github.com/darien/gradebook/core/auth"
	"github.com/darien/gradebook/core/center"
)

var (
	errUnauthorized        = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidCredentials  = echo.NewHTTPError(http.StatusBadRequest, auth.ErrInvalidCredentials.Error())
	errHttpForbidden       = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound        = echo.NewHTTPError(http.StatusNotFound, "not found")
	errHttpInvalidDate     = "invalid date, expected YYYY-MM-DD"
	errHttpInvalidDateSpan = "end date is before start date"
)

// sentinelHTTPError maps the domain sentinels that reach the handler unwrapped by a validation error.
// Errors of non comparable types, such as validator.ValidationErrors, never match.
func sentinelHTTPError(err error) (*echo.HTTPError, bool) {
	switch err {
	case auth.ErrInvalidCredentials:
		return errInvalidCredentials, true
	case auth.ErrSessionNotFound:
		return errUnauthorized, true
	case center.ErrNotFound, account.ErrNotFound, academic.ErrNotFound,
		academic.ErrStudentNotFound, academic.ErrSubjectNotFound:
		return errHttpNotFound, true
	}
	return nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if herr, ok := sentinelHTTPError(cause); ok {
			cause = herr
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			if sess, sErr := getContextSession(ctx); sErr == nil {
				logger.Error(msg, errors.Wrap(err, msg), sess.Identity)
			} else {
				logger.Error(msg, errors.Wrap(err, msg))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
