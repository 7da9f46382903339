package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prockx/storefront/internal/access"
	"github.com/prockx/storefront/internal/export"
	"github.com/prockx/storefront/internal/repo"
	"github.com/prockx/storefront/internal/service/account"
	"github.com/prockx/storefront/internal/service/auth"
	"github.com/prockx/storefront/internal/service/catalog"
	"github.com/prockx/storefront/internal/service/order"
	"github.com/prockx/storefront/internal/testutil"
	"github.com/prockx/storefront/internal/transport"
)

const adminEmail = "admin@example.com"

type testEnv struct {
	e *echo.Echo
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	gdb := testutil.NewDB(t)
	r := repo.New(gdb)
	policy, err := access.New()
	require.NoError(t, err)

	authSvc := &auth.Service{
		Repo:          r,
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		AdminEmail:    adminEmail,
	}
	d := &Deps{
		DB:              gdb,
		AuthHandler:     &AuthHTTP{Svc: authSvc},
		UsersHandler:    &UsersHTTP{Svc: &account.Service{Repo: r}},
		ProductsHandler: &ProductsHTTP{Svc: &catalog.Service{Repo: r}},
		OrdersHandler: &OrdersHTTP{Svc: &order.Service{
			Repo:      r,
			Access:    policy,
			Currency:  "kzt",
			ClientURL: "http://shop.test",
			Metrics:   order.NewMetrics(),
		}},
		JWTSecret: authSvc.AccessSecret,
		Refresher: authSvc,
	}
	return &testEnv{e: NewServer(d, opts)}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string          `json:"status"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func (env *testEnv) register(t *testing.T, name, email string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", transport.RegisterRequest{
		Name: name, Email: email, Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp transport.AuthResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (env *testEnv) createProduct(t *testing.T, adminToken, name, price string, stock int) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/products", adminToken, map[string]any{
		"name": name, "description": "d", "price": price, "category": "books", "brand": "Acme", "stock": stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &p))
	return p.ID
}

func checkoutBody(productID string, method string) map[string]any {
	return map[string]any{
		"order_items": []map[string]any{
			{"product_id": productID, "name": "book", "unit_price": "1000", "quantity": 2, "image": "/b.png"},
		},
		"shipping_address": map[string]string{"street": "Abay 1", "city": "Almaty"},
		"payment_method":   method,
		"tax_price":        "0",
		"shipping_price":   "300",
		"total_price":      "1",
	}
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t, Options{})
	admin := env.register(t, "Root", adminEmail)
	ann := env.register(t, "Ann", "ann@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	pid := env.createProduct(t, admin, "book", "1000", 5)

	rec := env.do(t, http.MethodPost, "/api/orders", ann, checkoutBody(pid, "card"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res struct {
		Order struct {
			ID         string          `json:"id"`
			Status     string          `json:"status"`
			IsPaid     bool            `json:"is_paid"`
			ItemsTotal decimal.Decimal `json:"items_total"`
			GrandTotal decimal.Decimal `json:"grand_total"`
		} `json:"order"`
		PaymentSession *json.RawMessage `json:"payment_session"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "pending", res.Order.Status)
	assert.False(t, res.Order.IsPaid)
	assert.True(t, decimal.NewFromInt(2000).Equal(res.Order.ItemsTotal))
	assert.True(t, decimal.NewFromInt(2300).Equal(res.Order.GrandTotal))
	assert.Nil(t, res.PaymentSession)

	rec = env.do(t, http.MethodGet, "/api/products/"+pid, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"stock":3`)

	orderPath := "/api/orders/" + res.Order.ID
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, orderPath, ann, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, orderPath, admin, nil).Code)

	rec = env.do(t, http.MethodGet, orderPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode(t, rec).Kind)

	rec = env.do(t, http.MethodGet, "/api/orders/nope", ann, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Kind)

	rec = env.do(t, http.MethodGet, "/api/orders/myorders", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &mine))
	assert.Len(t, mine, 1)

	rec = env.do(t, http.MethodPut, orderPath+"/status", ann, map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, orderPath+"/status", admin, map[string]any{"status": "shipped", "is_paid": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(decode(t, rec).Data), `"status":"shipped"`)

	rec = env.do(t, http.MethodPut, orderPath+"/status", admin, map[string]any{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode(t, rec).Kind)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/orders", ann, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/orders", admin, nil).Code)

	rec = env.do(t, http.MethodGet, "/api/orders/export", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

func TestCheckout_Errors(t *testing.T) {
	env := newTestEnv(t, Options{})
	admin := env.register(t, "Root", adminEmail)
	ann := env.register(t, "Ann", "ann@example.com")
	pid := env.createProduct(t, admin, "book", "1000", 5)

	rec := env.do(t, http.MethodPost, "/api/orders", "", checkoutBody(pid, "card"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "unauthorized", body.Kind)

	empty := checkoutBody(pid, "card")
	empty["order_items"] = []any{}
	rec = env.do(t, http.MethodPost, "/api/orders", ann, empty)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode(t, rec).Kind)

	rec = env.do(t, http.MethodPost, "/api/orders", ann, checkoutBody(pid, "bitcoin"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+ann)
	raw := httptest.NewRecorder()
	env.e.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestProductsAndUsers(t *testing.T) {
	env := newTestEnv(t, Options{})
	admin := env.register(t, "Root", adminEmail)
	ann := env.register(t, "Ann", "ann@example.com")
	env.createProduct(t, admin, "book", "10", 0)
	env.createProduct(t, admin, "pen", "2", 3)

	rec := env.do(t, http.MethodPost, "/api/products", ann, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/products?inStock=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list transport.ProductList
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	require.Len(t, list.Products, 1)
	assert.Equal(t, "pen", list.Products[0].Name)
	assert.EqualValues(t, 1, list.Pagination.Total)

	rec = env.do(t, http.MethodGet, "/api/products?minPrice=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/products/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["books"]`, string(decode(t, rec).Data))

	rec = env.do(t, http.MethodGet, "/api/auth/me", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), "ann@example.com")

	rec = env.do(t, http.MethodPut, "/api/users/profile", ann, map[string]any{"phone": "+77011234567"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/users", ann, nil).Code)
	rec = env.do(t, http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", "", nil).Code)
	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decode(t, rec).Status)

	rec = env.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Kind)
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{AuthRateLimit: 2})
	login := transport.LoginRequest{Email: "ghost@example.com", Password: "whatever"}

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/auth/login", "", login).Code)
	}
	rec := env.do(t, http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode(t, rec).Kind)
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req.WithContext(context.Background()), rec)

	ErrorHandler(assert.AnError, c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal", body.Kind)
	assert.NotContains(t, body.Message, assert.AnError.Error())
}
