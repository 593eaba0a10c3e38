package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
	"github.com/trezcool/classboard/core/user"
	"github.com/trezcool/classboard/core/work"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidCredentials = echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	errRefreshExpired     = echo.NewHTTPError(http.StatusUnauthorized, "refresh has expired")
	errWorkNotFound       = echo.NewHTTPError(http.StatusNotFound, "Work not found")
	errUserNotFound       = echo.NewHTTPError(http.StatusNotFound, "User not found")

	errNoFile            = errors.New("No file uploaded")
	msgValidationFailed  = "Validation failed"
	msgInternalServerErr = "Internal server error"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders every error as a Response.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		resp := Response{Success: false}

		origErr := errors.Cause(err)
		switch origErr {
		case work.ErrNotFound:
			origErr = errWorkNotFound
		case user.ErrNotFound:
			origErr = errUserNotFound
		}

		switch e := origErr.(type) {
		case *echo.HTTPError:
			if e == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				resp.Message = fmt.Sprint(e.Message)
				break
			}
			if e.Internal != nil {
				if herr, ok := e.Internal.(*echo.HTTPError); ok {
					e = herr
				}
			}
			code = e.Code
			resp.Message = fmt.Sprint(e.Message)
		case validator.ValidationErrors:
			resp.Errors = make(map[string]string, len(e))
			for _, vErr := range e {
				resp.Errors[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			resp.Message = msgValidationFailed
		case *core.ValidationError:
			if e.Fields != nil {
				resp.Errors = make(map[string]string, len(e.Fields))
				for _, fErr := range e.Fields {
					resp.Errors[fErr.Field] = fErr.Error
				}
			}
			code = http.StatusBadRequest
			resp.Message = e.Error()
			if resp.Message == "" {
				resp.Message = msgValidationFailed
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			resp.Message = msgInternalServerErr
			resp.Error = err.Error()

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Name = claims.Name
				usr.Email = claims.Email
			}
			logger.Error(msgInternalServerErr, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
