package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prockx/storefront/internal/export"
	"github.com/prockx/storefront/internal/service/order"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/pkg/logging"
	middleware "github.com/prockx/storefront/pkg/middleware/auth"
)

type OrdersHTTP struct {
	Svc *order.Service
}

func requester(c echo.Context) order.Requester {
	id, _ := middleware.UserID(c)
	return order.Requester{ID: id, Role: middleware.Role(c)}
}

func (h *OrdersHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_order_error", err)
	}

	res, err := h.Svc.SubmitOrder(ctx, requester(c), req)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", res.Order.ID, "payment_session", res.PaymentSession != nil)
	return c.JSON(http.StatusCreated, transport.OK(res))
}

func (h *OrdersHTTP) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.my_orders")

	orders, err := h.Svc.ListMine(ctx, requester(c))
	if err != nil {
		return fail(l, "get_my_orders_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(orders))
}

func (h *OrdersHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	o, err := h.Svc.GetOrder(ctx, requester(c), c.Param("id"))
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(o))
}

func (h *OrdersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	orders, err := h.Svc.ListAll(ctx, requester(c))
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(orders))
}

func (h *OrdersHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_order_status_error", err)
	}

	o, err := h.Svc.UpdateStatus(ctx, requester(c), c.Param("id"), req)
	if err != nil {
		return fail(l, "update_order_status_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(o))
}

func (h *OrdersHTTP) Export(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.export")

	var buf bytes.Buffer
	if err := h.Svc.Export(ctx, requester(c), &buf); err != nil {
		return fail(l, "export_orders_error", err)
	}

	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}
