package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/pkg/logging"
)

// ErrorHandler renders every failure as {"status":"error","kind","message"}.
// Internal errors never leak their text to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	kind, code, msg := classify(err)

	body := transport.ErrorBody{Status: "error", Kind: string(kind), Message: msg}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "error", werr)
	}
}

func classify(err error) (apperr.Kind, int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		kind := apperr.KindForStatus(he.Code)
		if he.Code >= http.StatusInternalServerError && he.Code != http.StatusServiceUnavailable {
			return kind, he.Code, http.StatusText(he.Code)
		}
		return kind, he.Code, fmt.Sprint(he.Message)
	}

	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		return kind, http.StatusInternalServerError, "internal server error"
	}
	return kind, kind.HTTPStatus(), err.Error()
}

// fail logs a handler error at a level matching its kind and hands it to
// the error handler.
func fail(l *slog.Logger, event string, err error) error {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "kind", kind, "error", err)
	} else {
		l.Warn(event, "status", status, "kind", kind, "error", err)
	}
	return err
}

func badBody(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", 400, "reason", "invalid body", "error", err)
	return fmt.Errorf("%w: invalid body", apperr.ErrInvalidRequest)
}
