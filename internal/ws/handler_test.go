package ws

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/directory"
	"github.com/andhy-leong/MediboxApi/internal/models"
	"github.com/andhy-leong/MediboxApi/internal/pending"
	"github.com/andhy-leong/MediboxApi/internal/registry"
)

type wsFixture struct {
	registry *registry.Registry
	store    *pending.Store
	server   *httptest.Server
}

// newWSFixture serves the handler over httptest with a stub directory
// knowing caregiver "aide-1" / password "s3cret". Caregiver "boom"
// makes the credential lookup fail.
func newWSFixture(t *testing.T, token string) *wsFixture {
	t.Helper()
	logger := zap.NewNop()

	directoryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/boom") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"mot_de_passe": "s3cret"}`))
	}))
	t.Cleanup(directoryServer.Close)

	reg := registry.New(logger)
	store := pending.NewStore(logger)
	handler := NewHandler(reg, store, directory.NewClient(directoryServer.URL, logger), token, logger)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &wsFixture{registry: reg, store: store, server: server}
}

func (f *wsFixture) dial(t *testing.T, params url.Values) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?" + params.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandshake_MissingIDCheckedBeforePassword(t *testing.T) {
	f := newWSFixture(t, "")

	// Neither id nor pwd: the id error wins.
	conn := f.dial(t, url.Values{})
	msg := readMessage(t, conn)
	assert.Equal(t, "Missing id", msg["error"])
}

func TestHandshake_MissingPassword(t *testing.T) {
	f := newWSFixture(t, "")

	conn := f.dial(t, url.Values{"id": {"aide-1"}})
	msg := readMessage(t, conn)
	assert.Equal(t, "Missing password", msg["error"])
}

func TestHandshake_InvalidTokenRejectsValidCredentials(t *testing.T) {
	f := newWSFixture(t, "shared-secret")

	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"s3cret"}, "token": {"wrong"}})
	msg := readMessage(t, conn)
	assert.Equal(t, "Invalid token", msg["error"])
	assert.Empty(t, f.registry.Caregivers())
}

func TestHandshake_NoTokenConfiguredSkipsCheck(t *testing.T) {
	f := newWSFixture(t, "")

	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"s3cret"}})

	f.store.Enqueue("aide-1", models.Alert{Message: "still here"})
	require.NoError(t, conn.WriteJSON(models.ClientMessage{Type: models.ClientMessageResendPending}))
	msg := readMessage(t, conn)
	assert.Equal(t, "still here", msg["message"])
}

func TestHandshake_CredentialLookupFailure(t *testing.T) {
	f := newWSFixture(t, "")

	conn := f.dial(t, url.Values{"id": {"boom"}, "pwd": {"whatever"}})
	msg := readMessage(t, conn)
	assert.Equal(t, "Authentication failed due to API error", msg["error"])
}

func TestHandshake_WrongPassword(t *testing.T) {
	f := newWSFixture(t, "")

	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"nope"}})
	msg := readMessage(t, conn)
	assert.Equal(t, "Invalid password", msg["error"])
	assert.Empty(t, f.registry.Caregivers())
}

func TestHandshake_SuccessFlushesPendingAlerts(t *testing.T) {
	f := newWSFixture(t, "shared-secret")

	// Queued entirely while the caregiver was offline.
	first := f.store.Enqueue("aide-1", models.Alert{Type: models.SeverityWarning, Message: "first"})
	second := f.store.Enqueue("aide-1", models.Alert{Type: models.SeverityCritical, Message: "second"})

	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"s3cret"}, "token": {"shared-secret"}})

	msg1 := readMessage(t, conn)
	msg2 := readMessage(t, conn)
	assert.Equal(t, first.AlertID, msg1["alertId"])
	assert.Equal(t, second.AlertID, msg2["alertId"])

	assert.Eventually(t, func() bool {
		return len(f.registry.Caregivers()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReadLoop_AckRemovesPendingAlert(t *testing.T) {
	f := newWSFixture(t, "")

	queued := f.store.Enqueue("aide-1", models.Alert{Message: "ack me"})
	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"s3cret"}})

	msg := readMessage(t, conn)
	require.Equal(t, queued.AlertID, msg["alertId"])

	require.NoError(t, conn.WriteJSON(models.ClientMessage{
		Type:    models.ClientMessageAck,
		AlertID: queued.AlertID,
	}))

	assert.Eventually(t, func() bool {
		return f.store.Count("aide-1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestReadLoop_ResendPendingFlushesAgain(t *testing.T) {
	f := newWSFixture(t, "")

	queued := f.store.Enqueue("aide-1", models.Alert{Message: "again"})
	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"s3cret"}})

	// Connect-time flush, then an explicit resend.
	msg := readMessage(t, conn)
	require.Equal(t, queued.AlertID, msg["alertId"])

	require.NoError(t, conn.WriteJSON(models.ClientMessage{Type: models.ClientMessageResendPending}))
	msg = readMessage(t, conn)
	assert.Equal(t, queued.AlertID, msg["alertId"])

	// Still pending: a resend is not an ack.
	assert.Equal(t, 1, f.store.Count("aide-1"))
}

func TestReadLoop_UnknownMessagesAreIgnored(t *testing.T) {
	f := newWSFixture(t, "")

	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"s3cret"}})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not even json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "selfie", "data": 42}))

	// The loop survived; a resend still round-trips.
	f.store.Enqueue("aide-1", models.Alert{Message: "alive"})
	require.NoError(t, conn.WriteJSON(models.ClientMessage{Type: models.ClientMessageResendPending}))
	msg := readMessage(t, conn)
	assert.Equal(t, "alive", msg["message"])
}

func TestDisconnect_UnregistersSession(t *testing.T) {
	f := newWSFixture(t, "")

	conn := f.dial(t, url.Values{"id": {"aide-1"}, "pwd": {"s3cret"}})
	assert.Eventually(t, func() bool {
		return len(f.registry.Caregivers()) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool {
		return len(f.registry.Caregivers()) == 0
	}, time.Second, 10*time.Millisecond)
}
