package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	err := ErrUpstreamFailure.WithDetail("status_code", 503)

	assert.Equal(t, 503, err.Details["status_code"])
	assert.Empty(t, ErrUpstreamFailure.Details)
}

func TestWithCause_Unwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ErrUpstreamFailure.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsMissingIdentifier(ErrMissingIdentifier))
	assert.True(t, IsUpstreamFailure(ErrUpstreamFailure.WithDetail("status_code", 500)))
	assert.True(t, IsMalformedResponse(fmt.Errorf("wrapped: %w", ErrMalformedResponse)))
	assert.True(t, IsDownstreamFailure(ErrDownstreamFailure.WithCause(stderrors.New("x"))))
	assert.False(t, IsUpstreamFailure(ErrDownstreamFailure))
	assert.False(t, IsUpstreamFailure(stderrors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(ErrMissingIdentifier))
	assert.Equal(t, http.StatusBadGateway, ToHTTPStatus(ErrUpstreamFailure))
	assert.Equal(t, http.StatusBadGateway, ToHTTPStatus(ErrMalformedResponse))
	assert.Equal(t, http.StatusBadGateway, ToHTTPStatus(ErrDownstreamFailure))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(stderrors.New("unknown")))
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrMissingIdentifier)

	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "MISSING_IDENTIFIER", resp["error_code"])
	assert.NotContains(t, resp, "details")
}

func TestToErrorResponse_UnknownError(t *testing.T) {
	resp := ToErrorResponse(stderrors.New("boom"))

	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "INTERNAL_ERROR", resp["error_code"])
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 600)

	require.Len(t, Truncate(long, 500), 500)
	assert.Equal(t, "short", Truncate("short", 500))
}
