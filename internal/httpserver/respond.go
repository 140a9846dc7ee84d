package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Skotchmaster/checkout/internal/cart"
	"github.com/Skotchmaster/checkout/internal/checkout"
	"github.com/Skotchmaster/checkout/internal/confirm"
	"github.com/Skotchmaster/checkout/internal/geo"
	"github.com/Skotchmaster/checkout/internal/notify"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/internal/transport"
	"github.com/Skotchmaster/checkout/internal/validate"
	middleware "github.com/Skotchmaster/checkout/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

const noticesKey = "notices"

// Notices installs a per-request collector so handlers can return the notices they raised.
func Notices(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		col := &notify.Collector{}
		ctx := notify.IntoContext(c.Request().Context(), notify.Tee{col, notify.Log{}})
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set(noticesKey, col)
		return next(c)
	}
}

func collected(c echo.Context) []notify.Notice {
	if col, ok := c.Get(noticesKey).(*notify.Collector); ok {
		return col.Notices()
	}
	return []notify.Notice{}
}

func reply(c echo.Context, status int, data any) error {
	return c.JSON(status, transport.Response{Data: data, Notices: collected(c)})
}

// dialog reads the confirmation answer the client sent with the request.
func dialog(c echo.Context) confirm.Dialog {
	return confirm.Static(c.QueryParam("confirm") == "true" || c.Request().Header.Get("X-Confirm") == "true")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrUnauthenticated), errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, validate.ErrInvalidForm):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrDuplicateSubmit), errors.Is(err, cart.ErrMultipleCarts):
		return http.StatusConflict
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, geo.ErrInvalidCoordinate):
		return http.StatusBadRequest
	default:
		return repo.Status(err)
	}
}

// fail logs err under event and writes the mapped status with the collected notices.
func fail(c echo.Context, l *slog.Logger, event string, err error, prompt *confirm.Prompt) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "error", err)
	}

	resp := transport.Response{Error: err.Error(), Notices: collected(c)}
	if status >= http.StatusInternalServerError {
		resp.Error = "internal error"
	}
	var fe *validate.FormError
	if errors.As(err, &fe) {
		resp.Fields = fe.Fields
	}
	if status == http.StatusPreconditionRequired {
		resp.Prompt = prompt
	}
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderLocation, middleware.LoginPath)
	}
	return c.JSON(status, resp)
}
