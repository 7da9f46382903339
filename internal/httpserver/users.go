package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/service/account"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/pkg/logging"
	middleware "github.com/prockx/storefront/pkg/middleware/auth"
)

type UsersHTTP struct {
	Svc *account.Service
}

func (h *UsersHTTP) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.profile")

	id, _ := middleware.UserID(c)
	user, err := h.Svc.Profile(ctx, id)
	if err != nil {
		return fail(l, "get_profile_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(user))
}

func (h *UsersHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update_profile")

	var req transport.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_profile_error", err)
	}

	id, _ := middleware.UserID(c)
	user, err := h.Svc.UpdateProfile(ctx, id, req)
	if err != nil {
		return fail(l, "update_profile_error", err)
	}

	l.Info("update_profile_success", "user_id", id)
	return c.JSON(http.StatusOK, transport.OK(user))
}

func (h *UsersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	users, err := h.Svc.ListUsers(ctx)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK(users))
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.delete")

	target, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(l, "delete_user_error", apperr.ErrNotFound)
	}

	requester, _ := middleware.UserID(c)
	if err := h.Svc.DeleteUser(ctx, requester, target); err != nil {
		return fail(l, "delete_user_error", err)
	}

	l.Info("delete_user_success", "user_id", target)
	return c.JSON(http.StatusOK, transport.Envelope{Status: "success", Message: "user deleted"})
}
