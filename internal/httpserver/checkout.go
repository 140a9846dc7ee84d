package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/checkout/internal/checkout"
	"github.com/Skotchmaster/checkout/internal/confirm"
	"github.com/Skotchmaster/checkout/internal/geo"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/transport"
	"github.com/Skotchmaster/checkout/pkg/logging"
	middleware "github.com/Skotchmaster/checkout/pkg/middleware/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const idempotencyHeader = "Idempotency-Key"

type OrderReader interface {
	Order(ctx context.Context, userID uuid.UUID, orderID uint) (*models.Order, error)
}

type CheckoutHTTP struct {
	Svc    *checkout.Service
	Orders OrderReader
}

// ResolveAddress is best-effort: geocoder failures still answer 200 with the notices raised.
func (h *CheckoutHTTP) ResolveAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "resolve.address")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "resolve_address_error", err, nil)
	}

	var req transport.LocateRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("resolve_address_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.Response{Error: "invalid body", Notices: collected(c)})
	}

	var loc geo.StaticLocator
	if req.Latitude != nil && req.Longitude != nil {
		loc.Position = &geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	addr, err := h.Svc.ResolveAddress(ctx, userID, loc)
	if err != nil {
		if status := statusFor(err); status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return fail(c, l, "resolve_address_error", err, nil)
		}
		l.Info("address_not_resolved", "error", err)
		return reply(c, http.StatusOK, nil)
	}
	return reply(c, http.StatusOK, addr)
}

func (h *CheckoutHTTP) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "place.order")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "place_order_error", err, nil)
	}

	var req transport.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("place_order_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.Response{Error: "invalid body", Notices: collected(c)})
	}

	receipt, err := h.Svc.PlaceOrder(ctx, checkout.Request{
		UserID:         userID,
		Form:           req.Form(),
		IdempotencyKey: c.Request().Header.Get(idempotencyHeader),
	}, dialog(c))
	if err != nil {
		return fail(c, l, "place_order_error", err, &confirm.PlaceOrderPrompt)
	}

	if receipt.Replayed {
		return reply(c, http.StatusOK, receipt)
	}
	l.Info("order_placed", "order_id", receipt.Order.ID, "failed_lines", len(receipt.Failed))
	return reply(c, http.StatusCreated, receipt)
}

func (h *CheckoutHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.order")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "get_order_error", err, nil)
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, transport.Response{Error: "invalid order id", Notices: collected(c)})
	}

	order, err := h.Orders.Order(ctx, userID, uint(id))
	if err != nil {
		return fail(c, l, "get_order_error", err, nil)
	}
	return reply(c, http.StatusOK, order)
}
