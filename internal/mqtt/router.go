package mqtt

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/config"
	"github.com/andhy-leong/MediboxApi/internal/datastore"
	"github.com/andhy-leong/MediboxApi/internal/directory"
	"github.com/andhy-leong/MediboxApi/internal/dispatcher"
	"github.com/andhy-leong/MediboxApi/internal/models"
)

// Box topic classes. The subtype is free-form; these are the classes
// the gateway routes specially, everything else becomes a generic
// box_alert.
const (
	classMaintenanceFault   = "panne"
	classLowStock           = "seuilmedoc"
	classOutOfStock         = "finmedoc"
	classDoseDistribution   = "distribution"
	classPrescription       = "ordonnance"
	classMedicationList     = "listemedoc"
	classClientProvisioning = "nouveauclient"
)

// Router decodes inbound box messages on `alert/box/<patientId>/<subtype...>`,
// resolves the owning caregiver through the directory cache, and hands
// alert-bearing classes to the dispatcher. Request and provisioning
// classes additionally hit the data-store API; a store failure drops
// the side effect only, never the notification.
type Router struct {
	cache              *directory.Cache
	dispatcher         *dispatcher.Dispatcher
	store              *datastore.Client
	notifyDistribution bool
	logger             *zap.Logger
}

// NewRouter creates a topic router.
func NewRouter(cfg *config.Config, cache *directory.Cache, d *dispatcher.Dispatcher, store *datastore.Client, logger *zap.Logger) *Router {
	return &Router{
		cache:              cache,
		dispatcher:         d,
		store:              store,
		notifyDistribution: cfg.Notify.Distribution,
		logger:             logger,
	}
}

// HandleMessage routes one inbound transport message. Messages that do
// not match the box topic shape are ignored; unresolvable patients are
// logged and dropped.
func (r *Router) HandleMessage(topic string, payload []byte) error {
	segments := splitTopic(topic)
	if len(segments) < 4 || segments[0] != "alert" || segments[1] != "box" {
		r.logger.Debug("Ignoring message on unrecognized topic",
			zap.String("topic", topic),
		)
		return nil
	}

	patientID := segments[2]
	subtype := strings.Join(segments[3:], "/")
	message := string(payload)

	// Maintenance faults are operational noise for technicians, not
	// caregiver alerts.
	if segments[3] == classMaintenanceFault {
		r.logger.Warn("Box reported a maintenance fault",
			zap.String("patient_id", patientID),
			zap.String("topic", topic),
			zap.String("payload", message),
		)
		return nil
	}

	ctx := context.Background()
	caregiverID, ok := r.cache.CaregiverFor(ctx, patientID)
	if !ok {
		r.logger.Warn("No caregiver found for patient, dropping event",
			zap.String("patient_id", patientID),
			zap.String("topic", topic),
		)
		return nil
	}

	alert := models.Alert{
		PatientID: patientID,
		AlertType: subtype,
		Message:   message,
		Topic:     topic,
	}

	switch segments[3] {
	case classLowStock:
		alert.Type = models.SeverityWarning
		r.dispatcher.Dispatch(caregiverID, alert)

	case classOutOfStock:
		alert.Type = models.SeverityCritical
		r.dispatcher.Dispatch(caregiverID, alert)

	case classDoseDistribution:
		if err := r.store.CreateDistribution(ctx, patientID, payload); err != nil {
			r.logger.Error("Failed to record distribution",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
		}
		// Recorded but not pushed unless explicitly enabled.
		if r.notifyDistribution {
			alert.Type = models.SeverityDistributionConfirmed
			r.dispatcher.Dispatch(caregiverID, alert)
		}

	case classPrescription:
		if err := r.store.CreatePrescriptionRequest(ctx, patientID, message); err != nil {
			r.logger.Error("Failed to record prescription request",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
		}
		alert.Type = models.SeverityRequest
		r.dispatcher.Dispatch(caregiverID, alert)

	case classMedicationList:
		list, err := r.store.FetchMedicationList(ctx, patientID)
		if err != nil {
			r.logger.Error("Failed to fetch medication list",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
		} else {
			alert.Message = string(list)
		}
		alert.Type = models.SeverityRequest
		r.dispatcher.Dispatch(caregiverID, alert)

	case classClientProvisioning:
		if err := r.store.CreateClientProvisioning(ctx, patientID, message); err != nil {
			r.logger.Error("Failed to record client provisioning request",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
		}
		alert.Type = models.SeverityInfo
		r.dispatcher.Dispatch(caregiverID, alert)

	default:
		alert.Type = models.SeverityBoxAlert
		r.dispatcher.Dispatch(caregiverID, alert)
	}

	return nil
}

// splitTopic splits a topic into its non-empty segments.
func splitTopic(topic string) []string {
	var segments []string
	for _, s := range strings.Split(topic, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
