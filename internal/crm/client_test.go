package crm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadrelay/internal/config"
	"leadrelay/internal/logger"
	"leadrelay/pkg/errors"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.CRMConfig{BaseURL: serverURL, TimeoutSeconds: 5}, nil, logger.NopLogger())
}

func TestClient_Resolve_ObjectEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"result": {"ID": "42", "STATUS_ID": "WON", "MOVED_TIME": "2025-11-03 17:06:27"}}`)
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).Resolve(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", record.ID)
	assert.Equal(t, "WON", record.StatusID)
	assert.Equal(t, "2025-11-03 17:06:27", record.MovedTimeRaw)
}

func TestClient_Resolve_ArrayEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"result": {"ID": "7", "STATUS": "C5", "MOVED_DATE": "2025-11-03T20:06:27Z"}}]`)
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).Resolve(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, "7", record.ID)
	assert.Equal(t, "C5", record.StatusID)
	assert.Equal(t, "2025-11-03T20:06:27Z", record.MovedTimeRaw)
}

func TestClient_Resolve_NumericID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result": {"ID": 42, "STATUS_ID": "WON"}}`)
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).Resolve(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", record.ID)
	assert.Nil(t, record.MovedTimeRaw)
}

func TestClient_Resolve_LowercaseIDFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result": {"id": "42", "STATUS_ID": "WON"}}`)
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).Resolve(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", record.ID)
}

func TestClient_Resolve_MovedTimeKeyPriority(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result": {"ID": "1", "MOVED_TIME": "first", "MOVED_TIME_UTC": "second"}}`)
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).Resolve(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "first", record.MovedTimeRaw)
}

func TestClient_Resolve_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Resolve(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamFailure(err))

	appErr, ok := err.(*errors.Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.Details["status_code"])
}

func TestClient_Resolve_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Resolve(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamFailure(err))
}

func TestClient_Resolve_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"missing result", `{"ok": true}`},
		{"result not object", `{"result": "gone"}`},
		{"empty array", `[]`},
		{"result missing id", `{"result": {"STATUS_ID": "WON"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Resolve(context.Background(), "42")
			require.Error(t, err)
			assert.True(t, errors.IsMalformedResponse(err))
		})
	}
}

func TestClient_Resolve_DiagnosticBodyTruncated(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(long)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Resolve(context.Background(), "42")
	require.Error(t, err)

	appErr, ok := err.(*errors.Error)
	require.True(t, ok)
	body, _ := appErr.Details["body"].(string)
	assert.LessOrEqual(t, len(body), 500)
}
