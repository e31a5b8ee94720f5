package echoweb

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrollment"
	"github.com/trezcool/campus/core/user"
)

// MsgServerError is shown for failures the person can do nothing about but retry.
const MsgServerError = "Something went wrong. Please try again in a moment."

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type errorPage struct {
	Title   string
	Message string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders our errors as pages.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func (s *Server) newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		var code int
		var denial *enrollment.Denial
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			switch code {
			case http.StatusUnauthorized:
				s.sessions.signOut(ctx)
				logRenderError(ctx, ctx.Redirect(http.StatusFound, loginURL(requestPath(ctx))))
				return
			case http.StatusNotFound:
				denial = enrollment.PageNotFoundDenial()
			default:
				message = http.StatusText(code)
				if m, ok := origErr.Message.(string); ok {
					message = m
				}
			}
		case *core.NotFoundError:
			code = http.StatusNotFound
			denial = enrollment.PageNotFoundDenial()
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = http.StatusText(code)
			if vErr, ok := core.TranslateValidationErrors(origErr, s.deps.Translator).(*core.ValidationError); ok && len(vErr.Fields) > 0 {
				message = vErr.Fields[0].Field + ": " + vErr.Fields[0].Error
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
		case *core.RemoteError:
			code = http.StatusServiceUnavailable
			message = origErr.Message
			logger.Error(origErr.Error(), errors.Wrap(err, "remote failure"), contextUser(ctx))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = MsgServerError
			logger.Error(http.StatusText(code), errors.Wrap(err, http.StatusText(code)), contextUser(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && denial == nil {
			message = err.Error()
		}

		// Send response
		var rErr error
		switch {
		case ctx.Request().Method == http.MethodHead: // Issue #608
			rErr = ctx.NoContent(code)
		case denial != nil:
			rErr = s.render(ctx, code, "denial", denial)
		default:
			rErr = s.render(ctx, code, "error", errorPage{Title: http.StatusText(code), Message: message})
		}
		logRenderError(ctx, rErr)
	}
}

func logRenderError(ctx echo.Context, err error) {
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}

// contextUser identifies the signed-in person in error reports.
func contextUser(ctx echo.Context) user.User {
	var usr user.User
	if claims, ok := getContextClaims(ctx); ok {
		usr.ID = claims.Subject
		usr.Email = claims.Email
	}
	return usr
}
