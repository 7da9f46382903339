package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/internal/service/auth"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/pkg/logging"
	middleware "github.com/prockx/storefront/pkg/middleware/auth"
	"github.com/prockx/storefront/pkg/tokens"
)

type AuthHTTP struct {
	Svc          *auth.Service
	CookieSecure bool
}

func (h *AuthHTTP) setCookies(c echo.Context, pair *tokens.Pair) {
	access := tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp)
	refresh := tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp)
	access.Secure, refresh.Secure = h.CookieSecure, h.CookieSecure
	c.SetCookie(access)
	c.SetCookie(refresh)
}

func (h *AuthHTTP) clearCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}

func (h *AuthHTTP) respond(c echo.Context, code int, user *models.User, pair *tokens.Pair) error {
	h.setCookies(c, pair)
	return c.JSON(code, transport.OK(transport.AuthResponse{
		User:  transport.SummaryOf(user),
		Token: pair.AccessToken,
	}))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "register_error", err)
	}

	user, pair, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return h.respond(c, http.StatusCreated, user, pair)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "login_error", err)
	}

	user, pair, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_success", "user_id", user.ID)
	return h.respond(c, http.StatusOK, user, pair)
}

func refreshTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.Bind(&body)
	return body.RefreshToken
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	token := refreshTokenFrom(c)
	if token == "" {
		l.Warn("refresh_error", "status", 401, "reason", "missing refresh token")
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	pair, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		h.clearCookies(c)
		return fail(l, "refresh_error", err)
	}

	h.setCookies(c, pair)
	return c.JSON(http.StatusOK, transport.OK(map[string]string{"token": pair.AccessToken}))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if err := h.Svc.Logout(ctx, refreshTokenFrom(c)); err != nil {
		l.Error("logout_error", "status", 500, "reason", "cannot revoke refresh token", "error", err)
	}
	h.clearCookies(c)
	return c.JSON(http.StatusOK, transport.Envelope{Status: "success", Message: "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	id, ok := middleware.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	user, err := h.Svc.Me(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return fail(l, "me_error", apperr.ErrUnauthorized)
		}
		return fail(l, "me_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(transport.SummaryOf(user)))
}
