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
		{"validation", Validation("download", "url is required"), http.StatusBadRequest},
		{"not found", NotFound("cut", "unknown video"), http.StatusNotFound},
		{"unavailable", Unavailable("cut", errors.New("ffmpeg missing")), http.StatusInternalServerError},
		{"failed", Failed("cut", "no segments", nil), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NotFound("file", "missing")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorUnwrapAndMessage(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Failed("download", "fetch failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch failed", Message(err))
	assert.Equal(t, "download: fetch failed: exit status 1", err.Error())
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "operation_failed", KindOf(err).String())
}
