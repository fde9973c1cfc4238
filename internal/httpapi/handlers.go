package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/dispatcher"
	"github.com/andhy-leong/MediboxApi/internal/models"
	"github.com/andhy-leong/MediboxApi/internal/registry"
)

// NotifyRequest is the manual-trigger payload, used for operational
// testing of the delivery path.
type NotifyRequest struct {
	AideID    string `json:"aideId"`
	PatientID string `json:"patientId"`
	AlertType string `json:"alertType"`
	Message   string `json:"message"`
}

// NotifyResponse reports whether the alert reached at least one open
// socket. False still means the alert is queued.
type NotifyResponse struct {
	Sent bool `json:"sent"`
}

// StatusResponse is the introspection payload.
type StatusResponse struct {
	MQTTConnected       bool           `json:"mqttConnected"`
	ConnectedCaregivers []string       `json:"connectedCaregivers"`
	Sessions            map[string]int `json:"sessions"`
}

// ConnectivityChecker reports transport connectivity for the status
// endpoint.
type ConnectivityChecker interface {
	IsConnected() bool
}

// Handler serves the gateway's operational HTTP endpoints.
type Handler struct {
	dispatcher *dispatcher.Dispatcher
	registry   *registry.Registry
	transport  ConnectivityChecker
	logger     *zap.Logger
}

// NewHandler creates the HTTP API handler.
func NewHandler(d *dispatcher.Dispatcher, reg *registry.Registry, transport ConnectivityChecker, logger *zap.Logger) *Handler {
	return &Handler{
		dispatcher: d,
		registry:   reg,
		transport:  transport,
		logger:     logger,
	}
}

// Notify dispatches an alert directly, bypassing the topic router.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AideID == "" || req.PatientID == "" {
		writeError(w, http.StatusBadRequest, "aideId and patientId are required")
		return
	}

	message := req.Message
	if message == "" {
		message = "Manual alert"
	}

	sent := h.dispatcher.Dispatch(req.AideID, models.Alert{
		Type:      models.SeverityInfo,
		PatientID: req.PatientID,
		AlertType: req.AlertType,
		Message:   message,
	})

	writeJSON(w, http.StatusOK, NotifyResponse{Sent: sent})
}

// Status reports transport connectivity and connected caregivers.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	connected := false
	if h.transport != nil {
		connected = h.transport.IsConnected()
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		MQTTConnected:       connected,
		ConnectedCaregivers: h.registry.Caregivers(),
		Sessions:            h.registry.Summarize(),
	})
}
