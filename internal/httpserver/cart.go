package httpserver

import (
	"net/http"
	"strconv"

	"github.com/Skotchmaster/checkout/internal/badge"
	"github.com/Skotchmaster/checkout/internal/checkout"
	"github.com/Skotchmaster/checkout/internal/confirm"
	"github.com/Skotchmaster/checkout/internal/transport"
	"github.com/Skotchmaster/checkout/pkg/logging"
	middleware "github.com/Skotchmaster/checkout/pkg/middleware/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Svc *checkout.Service
	Hub *badge.Hub
}

func lineID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid line id")
	}
	return uint(id), nil
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "get_cart_error", err, nil)
	}

	view, err := h.Svc.Cart(ctx, userID)
	if err != nil {
		return fail(c, l, "get_cart_error", err, nil)
	}
	return reply(c, http.StatusOK, view)
}

func (h *CartHTTP) AddLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart.line")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "add_cart_line_error", err, nil)
	}

	var req transport.AddLineRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_cart_line_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.Response{Error: "invalid body", Notices: collected(c)})
	}
	if req.ProductID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, transport.Response{Error: "product_id required", Notices: collected(c)})
	}

	view, err := h.Svc.AddLine(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, l, "add_cart_line_error", err, nil)
	}
	l.Info("cart_line_added", "product_id", req.ProductID)
	return reply(c, http.StatusCreated, view)
}

func (h *CartHTTP) UpdateLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "update.cart.line")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "update_cart_line_error", err, nil)
	}
	id, err := lineID(c)
	if err != nil {
		return err
	}

	var req transport.UpdateLineRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_cart_line_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.Response{Error: "invalid body", Notices: collected(c)})
	}

	view, err := h.Svc.UpdateLine(ctx, userID, id, req.Quantity)
	if err != nil {
		return fail(c, l, "update_cart_line_error", err, nil)
	}
	return reply(c, http.StatusOK, view)
}

func (h *CartHTTP) DeleteLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.cart.line")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "delete_cart_line_error", err, nil)
	}
	id, err := lineID(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.RemoveLine(ctx, userID, id, dialog(c))
	if err != nil {
		return fail(c, l, "delete_cart_line_error", err, &confirm.DeleteLinePrompt)
	}
	l.Info("cart_line_deleted", "line_id", id)
	return reply(c, http.StatusOK, view)
}

func (h *CartHTTP) DeleteAll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.all.cart.lines")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "delete_all_cart_lines_error", err, nil)
	}

	res, err := h.Svc.ClearCart(ctx, userID, dialog(c))
	if err != nil {
		return fail(c, l, "delete_all_cart_lines_error", err, &confirm.DeleteAllPrompt)
	}
	l.Info("cart_cleared", "requested", res.Requested, "deleted", res.Deleted, "failed", len(res.Failed))
	return reply(c, http.StatusOK, res)
}

// Badge streams the user's cart item count as server-sent events until the client goes away.
func (h *CartHTTP) Badge(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.badge")

	userID, err := middleware.UserID(c)
	if err != nil {
		return fail(c, l, "cart_badge_error", err, nil)
	}

	counts := make(chan int, 1)
	unsubscribe := h.Hub.Subscribe(userID, func(n int) {
		select {
		case counts <- n:
		default:
			select {
			case <-counts:
			default:
			}
			counts <- n
		}
	})
	defer unsubscribe()

	if _, err := h.Svc.Cart(ctx, userID); err != nil {
		l.Warn("cart_badge_load_failed", "error", err)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for {
		select {
		case n := <-counts:
			if _, err := w.Write([]byte("event: badge\ndata: " + strconv.Itoa(n) + "\n\n")); err != nil {
				return nil
			}
			w.Flush()
		case <-ctx.Done():
			return nil
		}
	}
}
