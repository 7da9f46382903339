package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err    error
		kind   Kind
		status int
	}{
		{fmt.Errorf("%w: items required", ErrInvalidRequest), KindInvalidRequest, http.StatusBadRequest},
		{ErrUnauthorized, KindUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: not your order", ErrForbidden), KindForbidden, http.StatusForbidden},
		{fmt.Errorf("get order: %w", gorm.ErrRecordNotFound), KindNotFound, http.StatusNotFound},
		{ErrConflict, KindConflict, http.StatusConflict},
		{fmt.Errorf("%w: stripe: boom", ErrUpstream), KindUpstream, http.StatusBadGateway},
		{errors.New("disk on fire"), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			k := KindOf(tt.err)
			assert.Equal(t, tt.kind, k)
			assert.Equal(t, tt.status, k.HTTPStatus())
		})
	}
}

func TestNotFoundOr(t *testing.T) {
	err := NotFoundOr(gorm.ErrRecordNotFound, "order")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "order not found")

	other := errors.New("timeout")
	assert.Same(t, other, NotFoundOr(other, "order"))
}

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, KindUnauthorized, KindForStatus(http.StatusUnauthorized))
	assert.Equal(t, KindRateLimited, KindForStatus(http.StatusTooManyRequests))
	assert.Equal(t, KindInternal, KindForStatus(http.StatusTeapot))
}
