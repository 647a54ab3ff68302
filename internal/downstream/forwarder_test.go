package downstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadrelay/internal/config"
	"leadrelay/internal/logger"
	"leadrelay/pkg/circuitbreaker"
	"leadrelay/pkg/errors"
)

func newTestForwarder(serverURL string) *Forwarder {
	return NewForwarder(config.DownstreamConfig{URL: serverURL, TimeoutSeconds: 5}, nil, logger.NopLogger())
}

func TestForwarder_Forward_SendsMinimalBody(t *testing.T) {
	var got map[string]interface{}
	var contentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestForwarder(server.URL).Forward(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]interface{}{"leadId": "42"}, got)
}

func TestForwarder_Forward_Accepts2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := newTestForwarder(server.URL).Forward(context.Background(), "42")
	assert.NoError(t, err)
}

func TestForwarder_Forward_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rejected", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	err := newTestForwarder(server.URL).Forward(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsDownstreamFailure(err))

	appErr, ok := err.(*errors.Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Details["status_code"])
}

func TestForwarder_Forward_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	err := newTestForwarder(server.URL).Forward(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsDownstreamFailure(err))
}

func TestForwarder_Forward_BreakerOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	breaker := circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("downstream-test"))
	forwarder := NewForwarder(config.DownstreamConfig{URL: server.URL, TimeoutSeconds: 5}, breaker, logger.NopLogger())

	// Default settings trip after 3 requests at >=50% failure.
	for i := 0; i < 3; i++ {
		err := forwarder.Forward(context.Background(), "42")
		require.Error(t, err)
	}

	err := forwarder.Forward(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsDownstreamFailure(err))
	assert.True(t, breaker.IsOpen())
}
