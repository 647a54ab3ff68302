package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadrelay/internal/config"
	"leadrelay/internal/crm"
	"leadrelay/internal/downstream"
	"leadrelay/internal/logger"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(router)
	return router
}

func postWebhook(t *testing.T, router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/lead-status", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_Forwarded(t *testing.T) {
	resolver := &fakeResolver{record: &crm.LeadRecord{
		ID:           "42",
		StatusID:     "WON",
		MovedTimeRaw: "2025-11-03 17:06:27",
	}}
	svc := newTestService(resolver, &fakeForwarder{})
	router := newTestRouter(svc)

	w := postWebhook(t, router, map[string]interface{}{"leadId": "42"})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, true, resp["forwarded"])
	assert.Equal(t, "42", resp["leadId"])
}

func TestHandler_NotForwarded(t *testing.T) {
	resolver := &fakeResolver{record: &crm.LeadRecord{
		ID:           "42",
		StatusID:     "LOST",
		MovedTimeRaw: "2025-11-03 17:06:27",
	}}
	forwarder := &fakeForwarder{}
	svc := newTestService(resolver, forwarder)
	router := newTestRouter(svc)

	w := postWebhook(t, router, map[string]interface{}{"leadId": "42"})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, false, resp["forwarded"])
	assert.Equal(t, "LOST", resp["statusId"])

	reasons, ok := resp["reasons"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, reasons["statusPass"])
	assert.Equal(t, true, reasons["movedPass"])

	assert.Zero(t, forwarder.calls)
}

func TestHandler_MissingIdentifier(t *testing.T) {
	svc := newTestService(&fakeResolver{}, &fakeForwarder{})
	router := newTestRouter(svc)

	w := postWebhook(t, router, map[string]interface{}{"event": "update"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["ok"])
}

func TestHandler_MalformedJSON(t *testing.T) {
	svc := newTestService(&fakeResolver{}, &fakeForwarder{})
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/webhook/lead-status", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

// The end-to-end tests run the real CRM client and forwarder against
// httptest servers, exercising the full receive -> refetch -> validate ->
// forward path.

func TestHandler_EndToEnd_Forwarded(t *testing.T) {
	var forwardedBody atomic.Value

	crmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"result": {"ID": "42", "STATUS_ID": "WON", "MOVED_TIME": "2025-11-03T20:06:27Z"}}`)
	}))
	defer crmServer.Close()

	downstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		forwardedBody.Store(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer downstreamServer.Close()

	client := crm.NewClient(config.CRMConfig{BaseURL: crmServer.URL, TimeoutSeconds: 5}, nil, logger.NopLogger())
	forwarder := downstream.NewForwarder(config.DownstreamConfig{URL: downstreamServer.URL, TimeoutSeconds: 5}, nil, logger.NopLogger())

	svc := NewService(config.RelayConfig{
		AcceptedStatuses:     []string{"WON"},
		RecencyWindowSeconds: 60,
	}, client, forwarder, logger.NopLogger())
	svc.now = func() time.Time { return testNow }

	router := newTestRouter(svc)
	w := postWebhook(t, router, map[string]interface{}{
		"data[FIELDS][ID]": "42",
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["forwarded"])

	body, ok := forwardedBody.Load().(map[string]interface{})
	require.True(t, ok, "downstream was not called")
	assert.Equal(t, map[string]interface{}{"leadId": "42"}, body)
}

func TestHandler_EndToEnd_CRMDown(t *testing.T) {
	crmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer crmServer.Close()

	client := crm.NewClient(config.CRMConfig{BaseURL: crmServer.URL, TimeoutSeconds: 5}, nil, logger.NopLogger())

	svc := newTestService(client, &fakeForwarder{})
	router := newTestRouter(svc)

	w := postWebhook(t, router, map[string]interface{}{"leadId": "42"})

	require.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, false, resp["ok"])
}
