package store_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Houeta/ems-roster/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: store.ErrAuthenticationFailed},
		{status: http.StatusForbidden, want: store.ErrPermissionDenied},
		{status: http.StatusNotFound, want: store.ErrResourceNotFound},
		{status: http.StatusConflict, want: store.ErrRevisionConflict},
		{status: http.StatusInternalServerError, want: store.ErrProvider},
		{status: http.StatusTeapot, want: store.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, store.KindForStatus(tt.status))
		})
	}
}

func TestProviderError(t *testing.T) {
	t.Parallel()

	err := error(&store.ProviderError{
		Op:      "read document",
		Status:  http.StatusForbidden,
		Message: "Resource not accessible by personal access token",
		Kind:    store.ErrPermissionDenied,
	})

	assert.ErrorIs(t, err, store.ErrPermissionDenied)
	assert.NotErrorIs(t, err, store.ErrAuthenticationFailed)
	assert.Equal(t,
		"read document: permission denied (status 403): Resource not accessible by personal access token",
		err.Error())

	var perr *store.ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusForbidden, perr.Status)
}
