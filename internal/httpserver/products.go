package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/service/catalog"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/internal/util"
	"github.com/prockx/storefront/pkg/logging"
)

type ProductsHTTP struct {
	Svc *catalog.Service
}

func priceParam(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", apperr.ErrInvalidRequest, name)
	}
	return &d, nil
}

func productQuery(c echo.Context) (transport.ProductQuery, error) {
	q := transport.ProductQuery{
		Page:     util.ParseIntDefault(c.QueryParam("page"), 1),
		Limit:    util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
		Category: c.QueryParam("category"),
		Brand:    c.QueryParam("brand"),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		InStock:  c.QueryParam("inStock") == "true",
		Featured: c.QueryParam("featured") == "true",
	}
	var err error
	if q.MinPrice, err = priceParam(c, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = priceParam(c, "maxPrice"); err != nil {
		return q, err
	}
	return q, nil
}

func productID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: product not found", apperr.ErrNotFound)
	}
	return id, nil
}

func (h *ProductsHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	q, err := productQuery(c)
	if err != nil {
		return fail(l, "get_products_error", err)
	}

	list, err := h.Svc.List(ctx, q)
	if err != nil {
		return fail(l, "get_products_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(list))
}

func (h *ProductsHTTP) Categories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.categories")

	cats, err := h.Svc.Categories(ctx)
	if err != nil {
		return fail(l, "get_categories_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(cats))
}

func (h *ProductsHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := productID(c)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(p))
}

func (h *ProductsHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "product_create_error", err)
	}

	p, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "product_create_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, transport.OK(p))
}

func (h *ProductsHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch_product")

	id, err := productID(c)
	if err != nil {
		return fail(l, "product_patch_error", err)
	}
	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "product_patch_error", err)
	}

	p, err := h.Svc.Patch(ctx, id, req)
	if err != nil {
		return fail(l, "product_patch_error", err)
	}

	l.Info("patch_product_success", "product_id", p.ID)
	return c.JSON(http.StatusOK, transport.OK(p))
}

func (h *ProductsHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := productID(c)
	if err != nil {
		return fail(l, "product_delete_error", err)
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "product_delete_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.JSON(http.StatusOK, transport.Envelope{Status: "success", Message: "product deleted"})
}
