package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/dispatcher"
	"github.com/andhy-leong/MediboxApi/internal/models"
	"github.com/andhy-leong/MediboxApi/internal/pending"
	"github.com/andhy-leong/MediboxApi/internal/registry"
)

type fakeSession struct {
	mu       sync.Mutex
	received []models.Alert
}

func (f *fakeSession) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if alert, ok := v.(models.Alert); ok {
		f.received = append(f.received, alert)
	}
	return nil
}

func (f *fakeSession) Close() error { return nil }

type fakeTransport struct{ connected bool }

func (f *fakeTransport) IsConnected() bool { return f.connected }

func newAPIFixture(t *testing.T, connected bool) (*httptest.Server, *registry.Registry, *pending.Store) {
	t.Helper()
	logger := zap.NewNop()

	reg := registry.New(logger)
	store := pending.NewStore(logger)
	disp := dispatcher.New(store, reg, logger)

	handler := NewHandler(disp, reg, &fakeTransport{connected: connected}, logger)
	router := NewRouter(logger)
	router.RegisterGatewayRoutes(handler)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, reg, store
}

func TestNotify_QueuesWhenOffline(t *testing.T) {
	server, _, store := newAPIFixture(t, true)

	resp, err := http.Post(server.URL+"/notify", "application/json",
		strings.NewReader(`{"aideId": "aide-1", "patientId": "P1", "alertType": "test"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body NotifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Sent)
	assert.Equal(t, 1, store.Count("aide-1"))
}

func TestNotify_DeliversWhenConnected(t *testing.T) {
	server, reg, _ := newAPIFixture(t, true)
	session := &fakeSession{}
	reg.Register("aide-1", session)

	resp, err := http.Post(server.URL+"/notify", "application/json",
		strings.NewReader(`{"aideId": "aide-1", "patientId": "P1", "alertType": "test", "message": "hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body NotifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Sent)

	session.mu.Lock()
	defer session.mu.Unlock()
	require.Len(t, session.received, 1)
	assert.Equal(t, "hello", session.received[0].Message)
}

func TestNotify_RejectsMissingFields(t *testing.T) {
	server, _, _ := newAPIFixture(t, true)

	resp, err := http.Post(server.URL+"/notify", "application/json",
		strings.NewReader(`{"patientId": "P1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotify_RejectsInvalidJSON(t *testing.T) {
	server, _, _ := newAPIFixture(t, true)

	resp, err := http.Post(server.URL+"/notify", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotify_MethodNotAllowed(t *testing.T) {
	server, _, _ := newAPIFixture(t, true)

	resp, err := http.Get(server.URL + "/notify")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatus_ReportsConnectivityAndSessions(t *testing.T) {
	server, reg, _ := newAPIFixture(t, true)
	reg.Register("aide-1", &fakeSession{})
	reg.Register("aide-1", &fakeSession{})

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.MQTTConnected)
	assert.Equal(t, []string{"aide-1"}, body.ConnectedCaregivers)
	assert.Equal(t, map[string]int{"aide-1": 2}, body.Sessions)
}

func TestStatus_TransportDown(t *testing.T) {
	server, _, _ := newAPIFixture(t, false)

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.MQTTConnected)
	assert.Empty(t, body.ConnectedCaregivers)
}
