package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/directory"
	"github.com/andhy-leong/MediboxApi/internal/models"
	"github.com/andhy-leong/MediboxApi/internal/pending"
	"github.com/andhy-leong/MediboxApi/internal/registry"
)

// Handler upgrades caregiver connections, runs the handshake, and
// serves the per-connection read loop.
//
// Handshake order is fixed: identity before credential. Missing id,
// missing password, then the shared-secret token, then the directory
// credential lookup, then the password comparison. Every rejection
// sends one JSON error object and closes.
type Handler struct {
	upgrader  websocket.Upgrader
	registry  *registry.Registry
	store     *pending.Store
	directory *directory.Client
	token     string
	logger    *zap.Logger
}

// NewHandler creates the WebSocket endpoint handler. An empty token
// disables the shared-secret check.
func NewHandler(reg *registry.Registry, store *pending.Store, dir *directory.Client, token string, logger *zap.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			// The box web clients connect cross-origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		registry:  reg,
		store:     store,
		directory: dir,
		token:     token,
		logger:    logger,
	}
}

// ServeHTTP handles one caregiver connection for its whole lifetime.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	caregiverID := query.Get("id")
	password := query.Get("pwd")
	token := query.Get("token")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	if caregiverID == "" {
		h.reject(conn, "Missing id")
		return
	}
	if password == "" {
		h.reject(conn, "Missing password")
		return
	}
	if h.token != "" && token != h.token {
		h.logger.Warn("Connection rejected: invalid token",
			zap.String("caregiver_id", caregiverID),
		)
		h.reject(conn, "Invalid token")
		return
	}

	stored, err := h.directory.FetchCaregiverPassword(r.Context(), caregiverID)
	if err != nil {
		h.logger.Error("Credential lookup failed",
			zap.String("caregiver_id", caregiverID),
			zap.Error(err),
		)
		h.reject(conn, "Authentication failed due to API error")
		return
	}
	if stored != password {
		h.logger.Warn("Connection rejected: password mismatch",
			zap.String("caregiver_id", caregiverID),
		)
		h.reject(conn, "Invalid password")
		return
	}

	session := newSession(conn, caregiverID)
	h.registry.Register(caregiverID, session)
	defer func() {
		h.registry.Unregister(caregiverID, session)
		conn.Close()
	}()

	// Flush-on-connect: everything that queued up while the caregiver
	// was offline goes out before any new traffic.
	h.flushPending(session)

	h.readLoop(session)
}

// readLoop consumes acknowledgment and resend-request messages until
// the socket closes. Messages of any other shape are ignored.
func (h *Handler) readLoop(session *Session) {
	for {
		_, data, err := session.conn.ReadMessage()
		if err != nil {
			h.logger.Debug("Caregiver socket closed",
				zap.String("caregiver_id", session.caregiverID),
				zap.Error(err),
			)
			return
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case models.ClientMessageAck:
			if msg.AlertID != "" {
				h.store.Acknowledge(session.caregiverID, msg.AlertID)
			}
		case models.ClientMessageResendPending:
			h.flushPending(session)
		}
	}
}

func (h *Handler) flushPending(session *Session) {
	alerts := h.store.Drain(session.caregiverID)
	for _, alert := range alerts {
		if err := session.Send(alert); err != nil {
			h.logger.Warn("Failed to flush pending alert",
				zap.String("caregiver_id", session.caregiverID),
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}
	if len(alerts) > 0 {
		h.logger.Info("Flushed pending alerts",
			zap.String("caregiver_id", session.caregiverID),
			zap.Int("alert_count", len(alerts)),
		)
	}
}

func (h *Handler) reject(conn *websocket.Conn, reason string) {
	if err := conn.WriteJSON(models.ErrorMessage{Error: reason}); err != nil {
		h.logger.Debug("Failed to send rejection", zap.Error(err))
	}
	conn.Close()
}
