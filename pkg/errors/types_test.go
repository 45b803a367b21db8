package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cause := stderrors.New("sermon 3 pending -> transcribed")
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		want int
	}{
		{"not found", NotFound("sermon", nil), ErrCodeNotFound, http.StatusNotFound},
		{"conflict", Conflict(cause), ErrCodeConflict, http.StatusConflict},
		{"invalid state", InvalidState(cause), ErrCodeInvalidState, http.StatusConflict},
		{"trim invalid", TrimInvalid(nil), ErrCodeTrimInvalid, http.StatusUnprocessableEntity},
		{"validation", Validation(cause), ErrCodeValidation, http.StatusBadRequest},
		{"invalid param", InvalidParam("id", "x"), ErrCodeValidation, http.StatusBadRequest},
		{"missing field", MissingField("content"), ErrCodeMissingField, http.StatusBadRequest},
		{"too large", TooLarge(1024), ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		{"rate limited", RateLimited(), ErrCodeRateLimited, http.StatusTooManyRequests},
		{"service down", ServiceDown(nil), ErrCodeServiceDown, http.StatusServiceUnavailable},
		{"internal", Internal(cause), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestConstructorsKeepCause(t *testing.T) {
	cause := stderrors.New("clip 4 done -> pending")

	err := InvalidState(cause)
	assert.Equal(t, cause.Error(), err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INVALID_STATE: clip 4 done -> pending", err.Error())

	nf := NotFound("clip", fmt.Errorf("load: %w", cause))
	assert.Equal(t, "clip", nf.Details["resource"])
	assert.ErrorIs(t, nf, cause)

	internal := Internal(cause)
	assert.Equal(t, "internal server error", internal.Message)
	assert.Contains(t, internal.Error(), "caused by")

	body := InvalidBody(cause)
	assert.Equal(t, cause.Error(), body.Details["error"])
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("apply trim: %w", TrimInvalid(nil))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeTrimInvalid, appErr.Code)

	_, ok = As(stderrors.New("plain"))
	assert.False(t, ok)
}
