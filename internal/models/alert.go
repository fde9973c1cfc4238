package models

import "time"

// Severity classifies an alert pushed to a caregiver.
type Severity string

const (
	SeverityInfo                  Severity = "info"
	SeverityWarning               Severity = "warning"
	SeverityCritical              Severity = "critical"
	SeverityRequest               Severity = "request"
	SeverityBoxAlert              Severity = "box_alert"
	SeverityDistributionConfirmed Severity = "distribution_confirmed"
)

// Alert is one queued notification destined for exactly one caregiver.
// AlertID and Timestamp are assigned by the pending store at enqueue time;
// the struct is never mutated afterwards.
type Alert struct {
	Type      Severity  `json:"type"`
	PatientID string    `json:"patientId"`
	AlertType string    `json:"alertType"`
	Message   string    `json:"message"`
	Topic     string    `json:"topic"`
	AlertID   string    `json:"alertId"`
	Timestamp time.Time `json:"timestamp"`
}
