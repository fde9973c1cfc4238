package models

// Inbound message kinds accepted on an authenticated caregiver socket.
const (
	ClientMessageAck           = "ack"
	ClientMessageResendPending = "resend_pending"
)

// ClientMessage is the envelope a connected caregiver client sends.
// AlertID is only meaningful for acknowledgments.
type ClientMessage struct {
	Type    string `json:"type"`
	AlertID string `json:"alertId,omitempty"`
}

// ErrorMessage is sent once over the socket before a rejected
// connection is closed.
type ErrorMessage struct {
	Error string `json:"error"`
}
