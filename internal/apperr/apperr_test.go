package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", New(KindInvalidArgument, "bad input"), http.StatusBadRequest},
		{"dependency exists", New(KindDependencyExists, "still linked"), http.StatusBadRequest},
		{"not found", New(KindNotFound, "missing"), http.StatusNotFound},
		{"duplicate key", New(KindDuplicateKey, "already exists"), http.StatusConflict},
		{"internal", Internal(errors.New("db down"), "query failed"), http.StatusInternalServerError},
		{"plain error", errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	err := Newf(KindNotFound, "panel not found: %s", "p1")
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindInvalidArgument))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}

func TestIsKind_Wrapped(t *testing.T) {
	inner := New(KindDuplicateKey, "ip address already exists")
	wrapped := fmt.Errorf("create panel: %w", inner)
	assert.True(t, IsKind(wrapped, KindDuplicateKey))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindInternal, errors.New("connection refused"), "failed to query panels")
	assert.Equal(t, "failed to query panels: connection refused", err.Error())
	assert.Equal(t, "connection refused", errors.Unwrap(err).Error())

	bare := New(KindInvalidArgument, "panel_name is required")
	assert.Equal(t, "panel_name is required", bare.Error())
}
